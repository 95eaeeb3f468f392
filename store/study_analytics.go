package store

import (
	"context"
)

// PeriodType is the granularity of an analytics rollup.
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// StudyAnalytics is the rollup of one plan over one period. Rows are derived
// data: rebuilding a period replaces every computed column.
type StudyAnalytics struct {
	ID         int32
	PlanID     int32
	PeriodType PeriodType
	// PeriodDate is the first day of the period, formatted 2006-01-02.
	PeriodDate string

	ItemsReviewed       int
	NewItems            int
	ReviewedItems       int
	MasteredItems       int
	FailedItems         int
	StudyTime           int
	SessionCount        int
	AverageRating       float64
	CompletionRate      float64
	RetentionRate       float64
	EfficiencyScore     float64
	ProgressVelocity    float64
	ConsistencyScore    float64
	DailyGoalProgress   float64
	WeeklyGoalProgress  float64
	MonthlyGoalProgress float64

	CreatedTs int64
}

type FindStudyAnalytics struct {
	PlanID     *int32
	PeriodType *PeriodType
	// PeriodDateFrom and PeriodDateTo are inclusive.
	PeriodDateFrom *string
	PeriodDateTo   *string

	Limit *int
}

// UpsertStudyAnalytics inserts the row or replaces the computed columns of
// the existing (plan, period type, period date) row.
func (s *Store) UpsertStudyAnalytics(ctx context.Context, upsert *StudyAnalytics) (*StudyAnalytics, error) {
	return s.driver.UpsertStudyAnalytics(ctx, upsert)
}

// ListStudyAnalytics returns rows ordered by period date ascending.
func (s *Store) ListStudyAnalytics(ctx context.Context, find *FindStudyAnalytics) ([]*StudyAnalytics, error) {
	return s.driver.ListStudyAnalytics(ctx, find)
}
