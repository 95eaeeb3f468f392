package store

import (
	"context"
	"time"

	"github.com/hrygo/studyhub/plugin/srs"
)

// StudyItem is one article inside a study plan together with its
// spaced-repetition state.
type StudyItem struct {
	ID        int32
	UID       string
	PlanID    int32
	ArticleID int32

	Status srs.Status
	// SuspendedFrom is the status to restore on resume.
	SuspendedFrom *srs.Status

	CurrentInterval    int
	EaseFactor         float64
	ConsecutiveCorrect int
	ConsecutiveFailed  int
	NextReviewTs       *int64
	LastReviewedTs     *int64
	FirstStudiedTs     *int64
	MasteredTs         *int64
	TotalReviews       int
	AverageRating      float64

	ImportanceLevel int
	DifficultyLevel int
	Notes           string

	// Version is bumped on every write and used for optimistic concurrency.
	Version   int64
	CreatedTs int64
	UpdatedTs int64
}

// ScheduleState extracts the scheduler input from the item.
func (i *StudyItem) ScheduleState() srs.ItemState {
	return srs.ItemState{
		Status:             i.Status,
		CurrentInterval:    i.CurrentInterval,
		EaseFactor:         i.EaseFactor,
		ConsecutiveCorrect: i.ConsecutiveCorrect,
		ConsecutiveFailed:  i.ConsecutiveFailed,
	}
}

// NextReviewTime returns the next review time or nil.
func (i *StudyItem) NextReviewTime() *time.Time {
	if i.NextReviewTs == nil {
		return nil
	}
	t := time.Unix(*i.NextReviewTs, 0)
	return &t
}

type FindStudyItem struct {
	ID         *int32
	UID        *string
	PlanID     *int32
	ArticleID  *int32
	CreatorID  *int32
	StatusList []srs.Status

	Limit  *int
	Offset *int
}

// FindDueStudyItem selects the items a user should study now.
type FindDueStudyItem struct {
	CreatorID  int32
	PlanID     *int32
	Now        int64
	IncludeNew bool

	Limit *int
}

type UpdateStudyItem struct {
	ID int32
	// ExpectedVersion must match the stored version or the update fails
	// with ErrConflict.
	ExpectedVersion int64

	Status             *srs.Status
	SuspendedFrom      *srs.Status
	ClearSuspendedFrom bool
	CurrentInterval    *int
	EaseFactor         *float64
	ConsecutiveCorrect *int
	ConsecutiveFailed  *int
	NextReviewTs       *int64
	ClearNextReview    bool
	LastReviewedTs     *int64
	FirstStudiedTs     *int64
	MasteredTs         *int64
	ClearMasteredTs    bool
	TotalReviews       *int
	AverageRating      *float64
	ImportanceLevel    *int
	DifficultyLevel    *int
	Notes              *string
	UpdatedTs          *int64
}

type DeleteStudyItem struct {
	ID int32
}

// CreateStudyItem inserts the item and bumps the plan's total_items in one transaction.
func (s *Store) CreateStudyItem(ctx context.Context, create *StudyItem) (*StudyItem, error) {
	item, err := s.driver.CreateStudyItem(ctx, create)
	s.invalidatePlan(ctx, create.PlanID)
	return item, err
}

func (s *Store) ListStudyItems(ctx context.Context, find *FindStudyItem) ([]*StudyItem, error) {
	return s.driver.ListStudyItems(ctx, find)
}

func (s *Store) CountStudyItems(ctx context.Context, find *FindStudyItem) (int, error) {
	return s.driver.CountStudyItems(ctx, find)
}

// GetStudyItem returns nil when no item matches.
func (s *Store) GetStudyItem(ctx context.Context, find *FindStudyItem) (*StudyItem, error) {
	list, err := s.driver.ListStudyItems(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListDueStudyItems returns due items ordered by next review (never-scheduled
// first), importance, difficulty and id.
func (s *Store) ListDueStudyItems(ctx context.Context, find *FindDueStudyItem) ([]*StudyItem, error) {
	return s.driver.ListDueStudyItems(ctx, find)
}

func (s *Store) CountDueStudyItems(ctx context.Context, find *FindDueStudyItem) (int, error) {
	return s.driver.CountDueStudyItems(ctx, find)
}

// DeleteStudyItem removes the item, fixes the plan counters and cancels the
// item's active reminders in one transaction.
func (s *Store) DeleteStudyItem(ctx context.Context, delete *DeleteStudyItem) (*StudyItem, error) {
	item, err := s.driver.DeleteStudyItem(ctx, delete)
	if item != nil {
		s.invalidatePlan(ctx, item.PlanID)
	}
	return item, err
}
