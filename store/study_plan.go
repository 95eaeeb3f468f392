package store

import (
	"context"
	"fmt"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store/cache"
)

// StudyPlan groups the articles a user is studying together with its goals
// and denormalized progress counters. ReminderPattern makes review reminders
// recur until completed; empty means one-shot reminders.
type StudyPlan struct {
	ID               int32         `json:"id"`
	UID              string        `json:"uid"`
	CreatorID        int32         `json:"creator_id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	SpacingAlgorithm srs.Algorithm `json:"spacing_algorithm"`
	DifficultyLevel  int           `json:"difficulty_level"`
	DailyGoal        int           `json:"daily_goal"`
	WeeklyGoal       int           `json:"weekly_goal"`
	MonthlyGoal      int           `json:"monthly_goal"`
	TotalItems       int           `json:"total_items"`
	CompletedItems   int           `json:"completed_items"`
	MasteredItems    int           `json:"mastered_items"`
	IsActive         bool          `json:"is_active"`
	ReminderMethod   string        `json:"reminder_method"`
	ReminderPattern  string        `json:"reminder_pattern"`
	CreatedTs        int64         `json:"created_ts"`
	UpdatedTs        int64         `json:"updated_ts"`
}

type FindStudyPlan struct {
	ID        *int32
	UID       *string
	CreatorID *int32
	IsActive  *bool

	Limit  *int
	Offset *int
}

type UpdateStudyPlan struct {
	ID               int32
	UpdatedTs        *int64
	Name             *string
	Description      *string
	SpacingAlgorithm *srs.Algorithm
	DifficultyLevel  *int
	DailyGoal        *int
	WeeklyGoal       *int
	MonthlyGoal      *int
	IsActive         *bool
	ReminderMethod   *string
	ReminderPattern  *string
}

// PlanCounterDelta is applied to a plan with atomic increments.
type PlanCounterDelta struct {
	TotalItems     int
	CompletedItems int
	MasteredItems  int
}

// IsZero reports whether applying the delta is a no-op.
func (d PlanCounterDelta) IsZero() bool {
	return d.TotalItems == 0 && d.CompletedItems == 0 && d.MasteredItems == 0
}

func studyPlanCacheKey(id int32) string {
	return cache.GenerateCacheKey("study_plan", fmt.Sprint(id))
}

func (s *Store) CreateStudyPlan(ctx context.Context, create *StudyPlan) (*StudyPlan, error) {
	return s.driver.CreateStudyPlan(ctx, create)
}

func (s *Store) ListStudyPlans(ctx context.Context, find *FindStudyPlan) ([]*StudyPlan, error) {
	return s.driver.ListStudyPlans(ctx, find)
}

func (s *Store) CountStudyPlans(ctx context.Context, find *FindStudyPlan) (int, error) {
	return s.driver.CountStudyPlans(ctx, find)
}

// GetStudyPlan returns nil when no plan matches. Lookups by ID alone are
// served from the plan cache.
func (s *Store) GetStudyPlan(ctx context.Context, find *FindStudyPlan) (*StudyPlan, error) {
	byIDOnly := find.ID != nil && find.UID == nil && find.CreatorID == nil && find.IsActive == nil
	if byIDOnly {
		plan := &StudyPlan{}
		if s.planCache.Get(ctx, studyPlanCacheKey(*find.ID), plan) {
			return plan, nil
		}
	}

	gen := s.planGen.Load()
	list, err := s.driver.ListStudyPlans(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	plan := list[0]
	// A write that landed during the read may already have invalidated the
	// key; caching this row would bring its old counters back.
	if s.planGen.Load() == gen {
		s.planCache.Set(ctx, studyPlanCacheKey(plan.ID), plan)
	}
	return plan, nil
}

// invalidatePlan drops the cached plan once a write to it has returned.
func (s *Store) invalidatePlan(ctx context.Context, id int32) {
	s.planGen.Add(1)
	s.planCache.Delete(ctx, studyPlanCacheKey(id))
}

func (s *Store) UpdateStudyPlan(ctx context.Context, update *UpdateStudyPlan) (*StudyPlan, error) {
	plan, err := s.driver.UpdateStudyPlan(ctx, update)
	s.invalidatePlan(ctx, update.ID)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// ReconcileStudyPlanCounters recomputes a plan's counters from its items.
func (s *Store) ReconcileStudyPlanCounters(ctx context.Context, planID int32) (*StudyPlan, error) {
	plan, err := s.driver.ReconcileStudyPlanCounters(ctx, planID)
	s.invalidatePlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	return plan, nil
}
