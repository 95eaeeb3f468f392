package study

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyhub/plugin/reminder"
	"github.com/hrygo/studyhub/plugin/srs"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
)

const day = 24 * time.Hour

func TestRecordSessionProgression(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	steps := []struct {
		rating       int
		wantInterval int
		wantEase     float64
		wantStatus   srs.Status
		wantUpdate   string
	}{
		{4, 1, 2.5, srs.StatusLearning, "new -> learning"},
		{4, 6, 2.5, srs.StatusLearning, "no change"},
		{5, 15, 2.5, srs.StatusReview, "learning -> review"},
		{2, 7, 2.3, srs.StatusLearning, "review -> learning"},
	}
	for i, step := range steps {
		result := study(ctx, t, svc, item.ID, step.rating)
		assert.Equal(t, step.wantInterval, result.Item.CurrentInterval, "step %d", i)
		assert.InDelta(t, step.wantEase, result.Item.EaseFactor, 1e-9, "step %d", i)
		assert.Equal(t, step.wantStatus, result.Item.Status, "step %d", i)
		assert.Equal(t, step.wantUpdate, result.StatusUpdate, "step %d", i)
		assert.Equal(t, i+1, result.Item.TotalReviews, "step %d", i)
		assert.GreaterOrEqual(t, result.Item.EaseFactor, srs.MinEaseFactor)

		require.NotNil(t, result.Item.NextReviewTs)
		assert.Equal(t, clock.now.AddDate(0, 0, step.wantInterval).Unix(), *result.Item.NextReviewTs)
		require.NotNil(t, result.Log)
		assert.Equal(t, step.rating, result.Log.Rating)
		assert.Equal(t, step.wantInterval, result.Log.NewInterval)
		require.NotNil(t, result.Reminder)
		assert.Equal(t, *result.Item.NextReviewTs, result.Reminder.ReminderTs)

		clock.Advance(day)
	}

	got, err := svc.GetItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ConsecutiveFailed)
	assert.Zero(t, got.ConsecutiveCorrect)
	assert.InDelta(t, 3.75, got.AverageRating, 1e-9)
	require.NotNil(t, got.FirstStudiedTs)

	updated, err := svc.GetPlan(ctx, testUserID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CompletedItems)

	logs, total, err := svc.ListItemLogs(ctx, testUserID, item.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, logs, 4)
	assert.Equal(t, srs.StatusNew, logs[0].PreviousStatus)
	assert.Equal(t, "morning", logs[0].TimeOfDay)

	// Only the latest reminder stays active.
	reminders, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{
		ItemID:     &item.ID,
		StatusList: []store.ReminderStatus{store.ReminderPending, store.ReminderSent},
	})
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	assert.Equal(t, *got.NextReviewTs, reminders[0].ReminderTs)
}

func TestRecordSessionSchedulesRecurringReminder(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan, err := svc.CreatePlan(ctx, testUserID, &CreatePlanRequest{
		Name:            "Storage engines",
		ReminderMethod:  reminder.MethodPush,
		ReminderPattern: reminder.PatternDaily,
	})
	require.NoError(t, err)
	item := addArticle(ctx, t, svc, ts, plan, 4)

	result := study(ctx, t, svc, item.ID, 4)
	require.NotNil(t, result.Reminder)
	assert.True(t, result.Reminder.IsRecurring)
	assert.Equal(t, reminder.PatternDaily, result.Reminder.RecurrencePattern)
	assert.Equal(t, reminder.MethodPush, result.Reminder.Method)
	firstDue := clock.now.AddDate(0, 0, 1)
	assert.Equal(t, firstDue.Unix(), result.Reminder.ReminderTs)

	reminders := reminder.NewService(ts, reminder.NewMockNotifier())
	reminderNow := firstDue.Add(2 * time.Hour)
	reminders.SetClock(func() time.Time { return reminderNow })

	sent, err := reminders.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	completed, err := reminders.Complete(ctx, testUserID, result.Reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, store.ReminderCompleted, completed.Status)

	pending, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{
		ItemID:     &item.ID,
		StatusList: []store.ReminderStatus{store.ReminderPending},
	})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	next := pending[0]
	assert.NotEqual(t, result.Reminder.ID, next.ID)
	assert.Equal(t, firstDue.AddDate(0, 0, 1).Unix(), next.ReminderTs)
	assert.True(t, next.ReminderTs > reminderNow.Unix())
	assert.True(t, next.IsRecurring)
	assert.Equal(t, reminder.PatternDaily, next.RecurrencePattern)
	assert.Equal(t, reminder.MethodPush, next.Method)
}

func TestRecordSessionMastery(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	var result *SessionResult
	for i := 0; i < 5; i++ {
		result = study(ctx, t, svc, item.ID, 5)
		clock.Advance(day)
	}
	assert.Equal(t, srs.StatusMastered, result.Item.Status)
	assert.True(t, result.Schedule.ShouldMaster)
	assert.Equal(t, "mastered!", result.StatusUpdate)
	assert.Nil(t, result.Item.NextReviewTs)
	assert.NotNil(t, result.Item.MasteredTs)
	assert.Nil(t, result.Reminder)

	got, err := svc.GetPlan(ctx, testUserID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MasteredItems)

	_, err = svc.RecordSession(ctx, testUserID, item.ID, &SessionInput{Rating: 5})
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)

	_, err = svc.SuspendItem(ctx, testUserID, item.ID)
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)

	reset, err := svc.ResetItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.StatusLearning, reset.Status)
	assert.Equal(t, 1, reset.CurrentInterval)
	assert.Nil(t, reset.MasteredTs)
	require.NotNil(t, reset.NextReviewTs)
	assert.Equal(t, clock.now.AddDate(0, 0, 1).Unix(), *reset.NextReviewTs)

	got, err = svc.GetPlan(ctx, testUserID, plan.ID)
	require.NoError(t, err)
	assert.Zero(t, got.MasteredItems)

	_, err = svc.ResetItem(ctx, testUserID, item.ID)
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)
}

func TestRecordSessionInvalidInput(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	tests := []struct {
		name  string
		input *SessionInput
		field string
	}{
		{"rating zero", &SessionInput{Rating: 0}, "rating"},
		{"rating six", &SessionInput{Rating: 6}, "rating"},
		{"negative time", &SessionInput{Rating: 3, StudyTime: -1}, "study_time"},
		{"time over a day", &SessionInput{Rating: 3, StudyTime: MaxStudyTime + 1}, "study_time"},
		{"sub-score out of range", &SessionInput{Rating: 3, Retention: 7}, "retention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordSession(ctx, testUserID, item.ID, tt.input)
			assertCode(t, err, apperrors.ErrCodeInvalidInput)
			var studyErr *apperrors.StudyError
			require.ErrorAs(t, err, &studyErr)
			assert.Equal(t, tt.field, studyErr.Field)
		})
	}

	got, err := svc.GetItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalReviews)
	assert.Equal(t, item.Version, got.Version)
}

func TestRecordSessionNotFound(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	_, err := svc.RecordSession(ctx, otherUserID, item.ID, &SessionInput{Rating: 4})
	assertCode(t, err, apperrors.ErrCodeNotFound)

	_, err = svc.RecordSession(ctx, testUserID, 424242, &SessionInput{Rating: 4})
	assertCode(t, err, apperrors.ErrCodeNotFound)
}

// staleStore serves an outdated snapshot of one item, like a reader that lost
// a race against another session.
type staleStore struct {
	Store
	stale *store.StudyItem
}

func (s *staleStore) GetStudyItem(ctx context.Context, find *store.FindStudyItem) (*store.StudyItem, error) {
	if find.ID != nil && *find.ID == s.stale.ID {
		copied := *s.stale
		return &copied, nil
	}
	return s.Store.GetStudyItem(ctx, find)
}

func TestRecordSessionConflict(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	winner := study(ctx, t, svc, item.ID, 4)

	loser := NewService(&staleStore{Store: ts, stale: item}, WithClock(clock.Now))
	_, err := loser.RecordSession(ctx, testUserID, item.ID, &SessionInput{Rating: 1})
	assertCode(t, err, apperrors.ErrCodeConflict)

	got, err := svc.GetItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.Item.Version, got.Version)
	assert.Equal(t, 1, got.TotalReviews)
	assert.Equal(t, 1, got.ConsecutiveCorrect)

	_, total, err := svc.ListItemLogs(ctx, testUserID, item.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestSuspendAndResume(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)
	studied := study(ctx, t, svc, item.ID, 4)

	suspended, err := svc.SuspendItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.StatusSuspended, suspended.Status)
	require.NotNil(t, suspended.SuspendedFrom)
	assert.Equal(t, srs.StatusLearning, *suspended.SuspendedFrom)

	active, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{
		ItemID:     &item.ID,
		StatusList: []store.ReminderStatus{store.ReminderPending, store.ReminderSent},
	})
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.RecordSession(ctx, testUserID, item.ID, &SessionInput{Rating: 4})
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)
	_, err = svc.SuspendItem(ctx, testUserID, item.ID)
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)

	due, _, err := svc.GetDueItems(ctx, testUserID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, due)

	// Resume after the original review time: the reminder fires immediately.
	clock.Advance(3 * day)
	resumed, err := svc.ResumeItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.StatusLearning, resumed.Status)
	assert.Nil(t, resumed.SuspendedFrom)
	assert.Equal(t, *studied.Item.NextReviewTs, *resumed.NextReviewTs)

	active, err = ts.ListStudyReminders(ctx, &store.FindStudyReminder{
		ItemID:     &item.ID,
		StatusList: []store.ReminderStatus{store.ReminderPending},
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, clock.now.Unix(), active[0].ReminderTs)

	_, err = svc.ResumeItem(ctx, testUserID, item.ID)
	assertCode(t, err, apperrors.ErrCodePreconditionFailed)
}

func TestSuspendNewItemResumesAsNew(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	_, err := svc.SuspendItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	resumed, err := svc.ResumeItem(ctx, testUserID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, srs.StatusNew, resumed.Status)
	assert.Nil(t, resumed.NextReviewTs)
}

func TestGetDueItemsOrdering(t *testing.T) {
	ctx := context.Background()
	svc, ts, clock := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")

	a := addArticle(ctx, t, svc, ts, plan, 3)
	b := addArticle(ctx, t, svc, ts, plan, 5)
	fresh := addArticle(ctx, t, svc, ts, plan, 1)
	later := addArticle(ctx, t, svc, ts, plan, 5)

	// A and B become due yesterday, the last item next week.
	study(ctx, t, svc, a.ID, 4)
	study(ctx, t, svc, b.ID, 4)
	clock.Advance(2 * day)
	study(ctx, t, svc, later.ID, 4)
	study(ctx, t, svc, later.ID, 4)

	items, total, err := svc.GetDueItems(ctx, testUserID, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)

	items, total, err = svc.GetDueItems(ctx, testUserID, 0, true)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 3)
	assert.Equal(t, []int32{fresh.ID, b.ID, a.ID}, []int32{items[0].ID, items[1].ID, items[2].ID})

	items, total, err = svc.GetDueItems(ctx, testUserID, 1, true)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 1)

	items, _, err = svc.GetDueItems(ctx, otherUserID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, items)

	// Inactive plans drop out of the queue.
	inactive := false
	_, err = svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{IsActive: &inactive})
	require.NoError(t, err)
	items, total, err = svc.GetDueItems(ctx, testUserID, 0, true)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}
