package store

import (
	"context"
)

// ReminderStatus is the delivery state of a study reminder.
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderSent      ReminderStatus = "sent"
	ReminderCompleted ReminderStatus = "completed"
	ReminderSkipped   ReminderStatus = "skipped"
	ReminderCancelled ReminderStatus = "cancelled"
)

// Active reports whether the reminder still awaits the user.
func (s ReminderStatus) Active() bool {
	return s == ReminderPending || s == ReminderSent
}

// StudyReminder tells a user that an item is due.
type StudyReminder struct {
	ID                int32
	UID               string
	ItemID            int32
	PlanID            int32
	CreatorID         int32
	ReminderTs        int64
	Status            ReminderStatus
	Priority          int
	Method            string
	IsRecurring       bool
	RecurrencePattern string
	SnoozeUntilTs     *int64
	AttemptCount      int
	SentTs            *int64
	CompletedTs       *int64
	CreatedTs         int64
	UpdatedTs         int64
}

type FindStudyReminder struct {
	ID         *int32
	UID        *string
	ItemID     *int32
	CreatorID  *int32
	StatusList []ReminderStatus
	// DueBefore selects pending reminders whose reminder and snooze times have passed.
	DueBefore *int64

	Limit  *int
	Offset *int
}

type UpdateStudyReminder struct {
	ID int32
	// ExpectedStatus must match the stored status or the update fails with ErrConflict.
	ExpectedStatus ReminderStatus

	Status        *ReminderStatus
	ReminderTs    *int64
	SnoozeUntilTs *int64
	AttemptCount  *int
	SentTs        *int64
	CompletedTs   *int64
	UpdatedTs     *int64
}

func (s *Store) CreateStudyReminder(ctx context.Context, create *StudyReminder) (*StudyReminder, error) {
	return s.driver.CreateStudyReminder(ctx, create)
}

func (s *Store) ListStudyReminders(ctx context.Context, find *FindStudyReminder) ([]*StudyReminder, error) {
	return s.driver.ListStudyReminders(ctx, find)
}

// GetStudyReminder returns nil when no reminder matches.
func (s *Store) GetStudyReminder(ctx context.Context, find *FindStudyReminder) (*StudyReminder, error) {
	list, err := s.driver.ListStudyReminders(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateStudyReminder applies a compare-and-set status transition.
func (s *Store) UpdateStudyReminder(ctx context.Context, update *UpdateStudyReminder) (*StudyReminder, error) {
	return s.driver.UpdateStudyReminder(ctx, update)
}
