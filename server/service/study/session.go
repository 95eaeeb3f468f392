package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/studyhub/plugin/reminder"
	"github.com/hrygo/studyhub/plugin/srs"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
)

func (s *service) RecordSession(ctx context.Context, userID, itemID int32, input *SessionInput) (*SessionResult, error) {
	if err := validateSession(input); err != nil {
		return nil, err
	}
	item, plan, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	scheduler, err := srs.NewScheduler(plan.SpacingAlgorithm, plan.DifficultyLevel)
	if err != nil {
		return nil, apperrors.Internal("study plan has invalid scheduling settings", err)
	}
	now := s.now()
	schedule, err := scheduler.Schedule(item.ScheduleState(), input.Rating, now)
	if err != nil {
		switch {
		case errors.Is(err, srs.ErrInvalidRating):
			return nil, apperrors.InvalidInput("rating", err.Error())
		case errors.Is(err, srs.ErrItemSuspended), errors.Is(err, srs.ErrItemMastered):
			return nil, apperrors.PreconditionFailed("item cannot be studied in its current status", err).
				WithContext("status", string(item.Status))
		}
		return nil, fmt.Errorf("failed to schedule item: %w", err)
	}

	nowTs := now.Unix()
	totalReviews := item.TotalReviews + 1
	averageRating := (item.AverageRating*float64(item.TotalReviews) + float64(input.Rating)) / float64(totalReviews)
	update := &store.UpdateStudyItem{
		ID:                 item.ID,
		ExpectedVersion:    item.Version,
		Status:             &schedule.NewStatus,
		CurrentInterval:    &schedule.NewInterval,
		EaseFactor:         &schedule.NewEase,
		ConsecutiveCorrect: &schedule.ConsecutiveCorrect,
		ConsecutiveFailed:  &schedule.ConsecutiveFailed,
		LastReviewedTs:     &nowTs,
		TotalReviews:       &totalReviews,
		AverageRating:      &averageRating,
		UpdatedTs:          &nowTs,
	}
	if schedule.NextReviewAt != nil {
		next := schedule.NextReviewAt.Unix()
		update.NextReviewTs = &next
	} else {
		update.ClearNextReview = true
	}
	if item.FirstStudiedTs == nil {
		update.FirstStudiedTs = &nowTs
	}
	if schedule.ShouldMaster {
		update.MasteredTs = &nowTs
	}

	var counters store.PlanCounterDelta
	if item.TotalReviews == 0 {
		counters.CompletedItems = 1
	}
	if schedule.ShouldMaster {
		counters.MasteredItems = 1
	}

	timeOfDay := input.TimeOfDay
	if timeOfDay == "" {
		timeOfDay = timeOfDayLabel(now.In(s.loc))
	}
	log := &store.StudyLog{
		ItemID:           item.ID,
		PlanID:           plan.ID,
		CreatorID:        userID,
		Rating:           input.Rating,
		StudyTime:        input.StudyTime,
		Understanding:    input.Understanding,
		Retention:        input.Retention,
		Application:      input.Application,
		Confidence:       input.Confidence,
		PreviousInterval: item.CurrentInterval,
		NewInterval:      schedule.NewInterval,
		PreviousEase:     item.EaseFactor,
		NewEase:          schedule.NewEase,
		PreviousStatus:   item.Status,
		NewStatus:        schedule.NewStatus,
		Device:           input.Device,
		Location:         input.Location,
		TimeOfDay:        timeOfDay,
		CreatedTs:        nowTs,
	}

	result, err := s.store.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID:   plan.ID,
		Update:   update,
		Log:      log,
		Counters: counters,
		Reminder: s.reminderChange(item, plan, schedule.NextReviewAt),
	})
	if err != nil {
		return nil, s.mapStoreError(err, "study item")
	}
	if result.ReminderErr != nil {
		// Retried by the next write to the item.
		s.logger.Warn("study session recorded without reminder",
			slog.Int("item_id", int(item.ID)),
			slog.String("error", result.ReminderErr.Error()))
	}

	return &SessionResult{
		Item:         result.Item,
		Log:          result.Log,
		Schedule:     schedule,
		Reminder:     result.Reminder,
		StatusUpdate: statusUpdate(item.Status, schedule.NewStatus),
	}, nil
}

func (s *service) SuspendItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error) {
	item, plan, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !srs.CanTransition(item.Status, srs.StatusSuspended, srs.TriggerSuspend) {
		return nil, transitionError(item.Status, srs.TriggerSuspend)
	}

	status, from, now := srs.StatusSuspended, item.Status, s.now().Unix()
	result, err := s.store.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID: plan.ID,
		Update: &store.UpdateStudyItem{
			ID:              item.ID,
			ExpectedVersion: item.Version,
			Status:          &status,
			SuspendedFrom:   &from,
			UpdatedTs:       &now,
		},
		Reminder: &store.ReminderChange{CancelActive: true},
	})
	if err != nil {
		return nil, s.mapStoreError(err, "study item")
	}
	return result.Item, nil
}

func (s *service) ResumeItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error) {
	item, plan, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	status := srs.StatusLearning
	if item.SuspendedFrom != nil {
		status = *item.SuspendedFrom
	}
	if item.Status != srs.StatusSuspended || !srs.CanTransition(item.Status, status, srs.TriggerResume) {
		return nil, transitionError(item.Status, srs.TriggerResume)
	}

	now := s.now()
	nowTs := now.Unix()
	var nextReview *time.Time
	if t := item.NextReviewTime(); t != nil {
		if t.Before(now) {
			t = &now
		}
		nextReview = t
	}
	result, err := s.store.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID: plan.ID,
		Update: &store.UpdateStudyItem{
			ID:                 item.ID,
			ExpectedVersion:    item.Version,
			Status:             &status,
			ClearSuspendedFrom: true,
			UpdatedTs:          &nowTs,
		},
		Reminder: s.reminderChange(item, plan, nextReview),
	})
	if err != nil {
		return nil, s.mapStoreError(err, "study item")
	}
	return result.Item, nil
}

func (s *service) ResetItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error) {
	item, plan, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if !srs.CanTransition(item.Status, srs.StatusLearning, srs.TriggerReset) {
		return nil, transitionError(item.Status, srs.TriggerReset)
	}

	now := s.now()
	nextReview := now.AddDate(0, 0, 1)
	status, interval, correct := srs.StatusLearning, 1, 0
	nowTs, nextTs := now.Unix(), nextReview.Unix()
	result, err := s.store.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID: plan.ID,
		Update: &store.UpdateStudyItem{
			ID:                 item.ID,
			ExpectedVersion:    item.Version,
			Status:             &status,
			CurrentInterval:    &interval,
			ConsecutiveCorrect: &correct,
			NextReviewTs:       &nextTs,
			ClearMasteredTs:    true,
			UpdatedTs:          &nowTs,
		},
		Counters: store.PlanCounterDelta{MasteredItems: -1},
		Reminder: s.reminderChange(item, plan, &nextReview),
	})
	if err != nil {
		return nil, s.mapStoreError(err, "study item")
	}
	return result.Item, nil
}

// reminderChange replaces the item's active reminder with one at nextReview,
// or only cancels it when there is no next review. The new reminder uses the
// plan's delivery method and recurrence pattern.
func (s *service) reminderChange(item *store.StudyItem, plan *store.StudyPlan, nextReview *time.Time) *store.ReminderChange {
	change := &store.ReminderChange{CancelActive: true}
	if nextReview != nil {
		change.Create = reminder.Plan(item, plan, *nextReview, reminder.OptionsFor(plan))
	}
	return change
}

func validateSession(input *SessionInput) error {
	if input == nil {
		return apperrors.InvalidInput("rating", "is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return apperrors.InvalidInput("rating", "must be between 1 and 5")
	}
	if input.StudyTime < 0 || input.StudyTime > MaxStudyTime {
		return apperrors.InvalidInput("study_time", fmt.Sprintf("must be between 0 and %d seconds", MaxStudyTime))
	}
	scores := []struct {
		field string
		value int
	}{
		{"understanding", input.Understanding},
		{"retention", input.Retention},
		{"application", input.Application},
		{"confidence", input.Confidence},
	}
	for _, score := range scores {
		if score.value != 0 && (score.value < 1 || score.value > 5) {
			return apperrors.InvalidInput(score.field, "must be between 1 and 5")
		}
	}
	return nil
}

func transitionError(status srs.Status, trigger srs.Trigger) error {
	return apperrors.PreconditionFailed(fmt.Sprintf("cannot %s an item in status %s", trigger, status), srs.ErrInvalidTransition).
		WithContext("status", string(status))
}

func statusUpdate(from, to srs.Status) string {
	switch {
	case from == to:
		return "no change"
	case to == srs.StatusMastered:
		return "mastered!"
	default:
		return fmt.Sprintf("%s -> %s", from, to)
	}
}

func timeOfDayLabel(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "morning"
	case h >= 12 && h < 17:
		return "afternoon"
	case h >= 17 && h < 22:
		return "evening"
	default:
		return "night"
	}
}
