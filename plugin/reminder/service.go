package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/studyhub/store"
)

// Store is the persistence the reminder service needs.
type Store interface {
	CreateStudyReminder(ctx context.Context, create *store.StudyReminder) (*store.StudyReminder, error)
	ListStudyReminders(ctx context.Context, find *store.FindStudyReminder) ([]*store.StudyReminder, error)
	GetStudyReminder(ctx context.Context, find *store.FindStudyReminder) (*store.StudyReminder, error)
	UpdateStudyReminder(ctx context.Context, update *store.UpdateStudyReminder) (*store.StudyReminder, error)
}

// Service resolves reminders on behalf of users and delivers due ones.
// Every status change is a compare-and-set on the status it was read with.
type Service struct {
	store     Store
	notifier  Notifier
	now       func() time.Time
	batchSize int
	logger    *slog.Logger
}

// NewService creates a reminder service. A nil notifier logs only.
func NewService(store Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	return &Service{
		store:     store,
		notifier:  notifier,
		now:       time.Now,
		batchSize: 100,
		logger:    slog.Default(),
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetBatchSize limits how many reminders ProcessDue handles per call.
func (s *Service) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ListForUser returns the user's reminders, optionally filtered by status.
func (s *Service) ListForUser(ctx context.Context, userID int32, statuses []store.ReminderStatus, limit, offset int) ([]*store.StudyReminder, error) {
	find := &store.FindStudyReminder{CreatorID: &userID, StatusList: statuses}
	if limit > 0 {
		find.Limit = &limit
		find.Offset = &offset
	}
	list, err := s.store.ListStudyReminders(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return list, nil
}

// Complete marks a sent reminder completed. Recurring reminders get their
// next pending occurrence.
func (s *Service) Complete(ctx context.Context, userID, id int32) (*store.StudyReminder, error) {
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	completed, err := s.transition(ctx, reminder, store.ReminderCompleted, func(u *store.UpdateStudyReminder) {
		u.CompletedTs = &now
	})
	if err != nil {
		return nil, err
	}

	if completed.IsRecurring {
		next, ok := nextOccurrence(time.Unix(completed.ReminderTs, 0), completed.RecurrencePattern, s.now())
		if !ok {
			s.logger.Warn("unknown recurrence pattern", "reminder_id", completed.ID, "pattern", completed.RecurrencePattern)
			return completed, nil
		}
		if _, err := s.store.CreateStudyReminder(ctx, &store.StudyReminder{
			UID:               shortuuid.New(),
			ItemID:            completed.ItemID,
			PlanID:            completed.PlanID,
			CreatorID:         completed.CreatorID,
			ReminderTs:        next.Unix(),
			Status:            store.ReminderPending,
			Priority:          completed.Priority,
			Method:            completed.Method,
			IsRecurring:       true,
			RecurrencePattern: completed.RecurrencePattern,
		}); err != nil {
			return nil, fmt.Errorf("failed to create next occurrence: %w", err)
		}
	}
	return completed, nil
}

// Snooze moves a sent reminder back to pending until the given time.
func (s *Service) Snooze(ctx context.Context, userID, id int32, until time.Time) (*store.StudyReminder, error) {
	if !until.After(s.now()) {
		return nil, ErrInvalidSnooze
	}
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	untilTs := until.Unix()
	attempts := reminder.AttemptCount + 1
	return s.transition(ctx, reminder, store.ReminderPending, func(u *store.UpdateStudyReminder) {
		u.SnoozeUntilTs = &untilTs
		u.ReminderTs = &untilTs
		u.AttemptCount = &attempts
	})
}

// Skip drops a pending reminder.
func (s *Service) Skip(ctx context.Context, userID, id int32) (*store.StudyReminder, error) {
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, reminder, store.ReminderSkipped, nil)
}

// Cancel withdraws a pending or sent reminder.
func (s *Service) Cancel(ctx context.Context, userID, id int32) (*store.StudyReminder, error) {
	reminder, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, reminder, store.ReminderCancelled, nil)
}

// ProcessDue hands pending reminders whose time has come to the notifier and
// marks them sent. A reminder whose delivery fails stays pending with its
// attempt count bumped. It returns how many reminders were sent.
func (s *Service) ProcessDue(ctx context.Context) (int, error) {
	now := s.now().Unix()
	limit := s.batchSize
	due, err := s.store.ListStudyReminders(ctx, &store.FindStudyReminder{DueBefore: &now, Limit: &limit})
	if err != nil {
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}

	sent := 0
	for _, reminder := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		attempts := reminder.AttemptCount + 1
		if err := s.notifier.Notify(ctx, NewNotification(reminder)); err != nil {
			s.logger.Warn("failed to deliver reminder", "reminder_id", reminder.ID, "error", err)
			if _, err := s.store.UpdateStudyReminder(ctx, &store.UpdateStudyReminder{
				ID:             reminder.ID,
				ExpectedStatus: store.ReminderPending,
				AttemptCount:   &attempts,
				UpdatedTs:      &now,
			}); err != nil && !errors.Is(err, store.ErrConflict) {
				s.logger.Error("failed to record delivery attempt", "reminder_id", reminder.ID, "error", err)
			}
			continue
		}

		status := store.ReminderSent
		if _, err := s.store.UpdateStudyReminder(ctx, &store.UpdateStudyReminder{
			ID:             reminder.ID,
			ExpectedStatus: store.ReminderPending,
			Status:         &status,
			SentTs:         &now,
			AttemptCount:   &attempts,
			UpdatedTs:      &now,
		}); err != nil {
			// Cancelled by a review while we were notifying.
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return sent, fmt.Errorf("failed to mark reminder sent: %w", err)
		}
		sent++
	}
	return sent, nil
}

func (s *Service) get(ctx context.Context, userID, id int32) (*store.StudyReminder, error) {
	reminder, err := s.store.GetStudyReminder(ctx, &store.FindStudyReminder{ID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	if reminder == nil || reminder.CreatorID != userID {
		return nil, ErrNotFound
	}
	return reminder, nil
}

func (s *Service) transition(ctx context.Context, reminder *store.StudyReminder, to store.ReminderStatus, mutate func(*store.UpdateStudyReminder)) (*store.StudyReminder, error) {
	if !CanTransition(reminder.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, reminder.Status, to)
	}
	now := s.now().Unix()
	update := &store.UpdateStudyReminder{
		ID:             reminder.ID,
		ExpectedStatus: reminder.Status,
		Status:         &to,
		UpdatedTs:      &now,
	}
	if mutate != nil {
		mutate(update)
	}
	updated, err := s.store.UpdateStudyReminder(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update reminder: %w", err)
	}
	return updated, nil
}
