package store

import (
	"context"
)

// ReminderChange reschedules an item's reminder inside an item commit.
type ReminderChange struct {
	// CancelActive cancels the item's pending and sent reminders.
	CancelActive bool
	// Create is inserted after the cancellation when set.
	Create *StudyReminder
}

// StudyItemCommit is every write caused by one item transition. The item
// update, log insert and counter increments are applied atomically. The
// reminder change runs under a savepoint inside the same transaction: if it
// fails it is rolled back alone and reported in the result.
type StudyItemCommit struct {
	PlanID   int32
	Update   *UpdateStudyItem
	Log      *StudyLog
	Counters PlanCounterDelta
	Reminder *ReminderChange
}

type StudyItemCommitResult struct {
	Item        *StudyItem
	Log         *StudyLog
	Reminder    *StudyReminder
	ReminderErr error
}

// CommitStudyItem applies the commit. A stale ExpectedVersion yields ErrConflict
// and nothing is written.
func (s *Store) CommitStudyItem(ctx context.Context, commit *StudyItemCommit) (*StudyItemCommitResult, error) {
	result, err := s.driver.CommitStudyItem(ctx, commit)
	if err == nil && !commit.Counters.IsZero() {
		s.invalidatePlan(ctx, commit.PlanID)
	}
	return result, err
}
