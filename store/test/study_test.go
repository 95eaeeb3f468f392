package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
)

func createTestingPlan(ctx context.Context, t *testing.T, ts *store.Store, creatorID int32) *store.StudyPlan {
	t.Helper()
	plan, err := ts.CreateStudyPlan(ctx, &store.StudyPlan{
		UID:              fmt.Sprintf("plan-%d-%d", creatorID, time.Now().UnixNano()),
		CreatorID:        creatorID,
		Name:             "Go concurrency",
		SpacingAlgorithm: srs.AlgorithmSM2,
		DifficultyLevel:  3,
		DailyGoal:        5,
		IsActive:         true,
	})
	require.NoError(t, err)
	return plan
}

func createTestingItem(ctx context.Context, t *testing.T, ts *store.Store, plan *store.StudyPlan, articleUID string) *store.StudyItem {
	t.Helper()
	article, err := ts.CreateArticle(ctx, &store.Article{
		UID:       articleUID,
		CreatorID: plan.CreatorID,
		Title:     articleUID,
		Slug:      articleUID,
	})
	require.NoError(t, err)
	item, err := ts.CreateStudyItem(ctx, &store.StudyItem{
		UID:             "item-" + articleUID,
		PlanID:          plan.ID,
		ArticleID:       article.ID,
		Status:          srs.StatusNew,
		EaseFactor:      srs.DefaultEaseFactor,
		ImportanceLevel: 3,
		DifficultyLevel: 3,
	})
	require.NoError(t, err)
	return item
}

func reviewCommit(item *store.StudyItem, rating int, now int64) *store.StudyItemCommit {
	status := srs.StatusLearning
	interval := 1
	correct := 1
	total := item.TotalReviews + 1
	next := now + 86400
	return &store.StudyItemCommit{
		PlanID: item.PlanID,
		Update: &store.UpdateStudyItem{
			ID:                 item.ID,
			ExpectedVersion:    item.Version,
			Status:             &status,
			CurrentInterval:    &interval,
			ConsecutiveCorrect: &correct,
			NextReviewTs:       &next,
			LastReviewedTs:     &now,
			TotalReviews:       &total,
			UpdatedTs:          &now,
		},
		Log: &store.StudyLog{
			ItemID:         item.ID,
			PlanID:         item.PlanID,
			CreatorID:      1,
			Rating:         rating,
			NewInterval:    interval,
			PreviousStatus: item.Status,
			NewStatus:      status,
			CreatedTs:      now,
		},
		Counters: store.PlanCounterDelta{CompletedItems: 1},
		Reminder: &store.ReminderChange{
			CancelActive: true,
			Create: &store.StudyReminder{
				UID:        fmt.Sprintf("reminder-%d-%d", item.ID, item.Version),
				ItemID:     item.ID,
				PlanID:     item.PlanID,
				CreatorID:  1,
				ReminderTs: next,
				Status:     store.ReminderPending,
				Priority:   3,
				Method:     "app",
			},
		},
	}
}

func TestMigrateStampsSchemaVersion(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)

	setting, err := ts.GetSystemSetting(ctx, store.SchemaVersionSettingName)
	require.NoError(t, err)
	require.NotNil(t, setting)
	current, err := ts.GetCurrentSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, current, setting.Value)

	// Migrating again is a no-op.
	require.NoError(t, ts.Migrate(ctx))
}

func TestStudyItemCreateBumpsPlanCounters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)

	item := createTestingItem(ctx, t, ts, plan, "article-a")
	assert.Equal(t, srs.StatusNew, item.Status)
	assert.Equal(t, int64(1), item.Version)
	assert.Nil(t, item.NextReviewTs)

	got, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalItems)

	_, err = ts.CreateStudyItem(ctx, &store.StudyItem{
		UID:             "item-dup",
		PlanID:          plan.ID,
		ArticleID:       item.ArticleID,
		Status:          srs.StatusNew,
		EaseFactor:      srs.DefaultEaseFactor,
		ImportanceLevel: 3,
		DifficultyLevel: 3,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err = ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalItems)
}

func TestCommitStudyItem(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-commit")
	now := time.Now().Unix()

	result, err := ts.CommitStudyItem(ctx, reviewCommit(item, 4, now))
	require.NoError(t, err)
	require.NoError(t, result.ReminderErr)
	assert.Equal(t, int64(2), result.Item.Version)
	assert.Equal(t, srs.StatusLearning, result.Item.Status)
	assert.Equal(t, 1, result.Item.TotalReviews)
	require.NotNil(t, result.Log)
	assert.Equal(t, 4, result.Log.Rating)
	require.NotNil(t, result.Reminder)
	assert.Equal(t, store.ReminderPending, result.Reminder.Status)

	got, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedItems)

	// A second commit replaces the active reminder.
	second := reviewCommit(result.Item, 5, now+1)
	second.Counters = store.PlanCounterDelta{}
	result2, err := ts.CommitStudyItem(ctx, second)
	require.NoError(t, err)

	active, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{
		ItemID:     &item.ID,
		StatusList: []store.ReminderStatus{store.ReminderPending, store.ReminderSent},
	})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, result2.Reminder.ID, active[0].ID)

	logs, err := ts.ListStudyLogs(ctx, &store.FindStudyLog{ItemID: &item.ID})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
	assert.Equal(t, 4, logs[0].Rating)
	assert.Equal(t, 5, logs[1].Rating)
}

func TestCommitStudyItemConflict(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-conflict")
	now := time.Now().Unix()

	_, err := ts.CommitStudyItem(ctx, reviewCommit(item, 4, now))
	require.NoError(t, err)

	// item still carries version 1.
	_, err = ts.CommitStudyItem(ctx, reviewCommit(item, 2, now))
	require.ErrorIs(t, err, store.ErrConflict)

	count, err := ts.CountStudyLogs(ctx, &store.FindStudyLog{ItemID: &item.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedItems)
}

func TestCommitStudyItemReminderFailureKeepsReview(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-savepoint")
	other := createTestingItem(ctx, t, ts, plan, "article-savepoint-other")
	now := time.Now().Unix()

	first, err := ts.CommitStudyItem(ctx, reviewCommit(other, 4, now))
	require.NoError(t, err)

	// Reusing a reminder uid violates its unique constraint.
	commit := reviewCommit(item, 4, now)
	commit.Reminder.Create.UID = first.Reminder.UID
	result, err := ts.CommitStudyItem(ctx, commit)
	require.NoError(t, err)
	require.Error(t, result.ReminderErr)
	assert.Nil(t, result.Reminder)
	assert.Equal(t, 1, result.Item.TotalReviews)

	count, err := ts.CountStudyLogs(ctx, &store.FindStudyLog{ItemID: &item.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestListDueStudyItemsOrdering(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 7)
	now := time.Now().Unix()

	fresh := createTestingItem(ctx, t, ts, plan, "due-new")
	early := createTestingItem(ctx, t, ts, plan, "due-early")
	late := createTestingItem(ctx, t, ts, plan, "due-late")
	future := createTestingItem(ctx, t, ts, plan, "due-future")

	setNext := func(item *store.StudyItem, next int64, importance int) {
		status := srs.StatusReview
		_, err := ts.CommitStudyItem(ctx, &store.StudyItemCommit{
			PlanID: item.PlanID,
			Update: &store.UpdateStudyItem{
				ID:              item.ID,
				ExpectedVersion: item.Version,
				Status:          &status,
				NextReviewTs:    &next,
				ImportanceLevel: &importance,
			},
		})
		require.NoError(t, err)
	}
	setNext(early, now-7200, 1)
	setNext(late, now-60, 5)
	setNext(future, now+86400, 5)

	limit := 10
	due, err := ts.ListDueStudyItems(ctx, &store.FindDueStudyItem{CreatorID: 7, Now: now, IncludeNew: true, Limit: &limit})
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []int32{fresh.ID, early.ID, late.ID}, []int32{due[0].ID, due[1].ID, due[2].ID})

	count, err := ts.CountDueStudyItems(ctx, &store.FindDueStudyItem{CreatorID: 7, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Other users and inactive plans see nothing.
	count, err = ts.CountDueStudyItems(ctx, &store.FindDueStudyItem{CreatorID: 8, Now: now, IncludeNew: true})
	require.NoError(t, err)
	assert.Zero(t, count)

	inactive := false
	_, err = ts.UpdateStudyPlan(ctx, &store.UpdateStudyPlan{ID: plan.ID, IsActive: &inactive})
	require.NoError(t, err)
	count, err = ts.CountDueStudyItems(ctx, &store.FindDueStudyItem{CreatorID: 7, Now: now, IncludeNew: true})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDeleteStudyItemAdjustsCounters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-delete")
	createTestingItem(ctx, t, ts, plan, "article-keep")

	result, err := ts.CommitStudyItem(ctx, reviewCommit(item, 4, time.Now().Unix()))
	require.NoError(t, err)

	deleted, err := ts.DeleteStudyItem(ctx, &store.DeleteStudyItem{ID: item.ID})
	require.NoError(t, err)
	assert.Equal(t, item.ID, deleted.ID)

	got, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalItems)
	assert.Equal(t, 0, got.CompletedItems)

	reminder, err := ts.GetStudyReminder(ctx, &store.FindStudyReminder{ID: &result.Reminder.ID})
	require.NoError(t, err)
	assert.Equal(t, store.ReminderCancelled, reminder.Status)

	_, err = ts.DeleteStudyItem(ctx, &store.DeleteStudyItem{ID: item.ID})
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReconcileStudyPlanCounters(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-reconcile")

	// Drift the counters on purpose.
	_, err := ts.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID:   plan.ID,
		Update:   &store.UpdateStudyItem{ID: item.ID, ExpectedVersion: item.Version},
		Counters: store.PlanCounterDelta{TotalItems: 3, MasteredItems: 2},
	})
	require.NoError(t, err)

	reconciled, err := ts.ReconcileStudyPlanCounters(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reconciled.TotalItems)
	assert.Equal(t, 0, reconciled.CompletedItems)
	assert.Equal(t, 0, reconciled.MasteredItems)
}

func TestUpsertStudyAnalyticsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)

	row := &store.StudyAnalytics{
		PlanID:         plan.ID,
		PeriodType:     store.PeriodDaily,
		PeriodDate:     "2026-03-02",
		ItemsReviewed:  3,
		SessionCount:   4,
		AverageRating:  3.75,
		RetentionRate:  0.75,
		CompletionRate: 0.5,
	}
	first, err := ts.UpsertStudyAnalytics(ctx, row)
	require.NoError(t, err)

	second, err := ts.UpsertStudyAnalytics(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	row.ItemsReviewed = 5
	third, err := ts.UpsertStudyAnalytics(ctx, row)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, first.CreatedTs, third.CreatedTs)
	assert.Equal(t, 5, third.ItemsReviewed)

	periodType := store.PeriodDaily
	list, err := ts.ListStudyAnalytics(ctx, &store.FindStudyAnalytics{PlanID: &plan.ID, PeriodType: &periodType})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateStudyReminderCompareAndSet(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan := createTestingPlan(ctx, t, ts, 1)
	item := createTestingItem(ctx, t, ts, plan, "article-reminder")
	now := time.Now().Unix()

	reminder, err := ts.CreateStudyReminder(ctx, &store.StudyReminder{
		UID:        "reminder-cas",
		ItemID:     item.ID,
		PlanID:     plan.ID,
		CreatorID:  1,
		ReminderTs: now - 10,
		Status:     store.ReminderPending,
		Priority:   3,
		Method:     "app",
	})
	require.NoError(t, err)

	due, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{DueBefore: &now})
	require.NoError(t, err)
	require.Len(t, due, 1)

	sent := store.ReminderSent
	updated, err := ts.UpdateStudyReminder(ctx, &store.UpdateStudyReminder{
		ID:             reminder.ID,
		ExpectedStatus: store.ReminderPending,
		Status:         &sent,
		SentTs:         &now,
	})
	require.NoError(t, err)
	assert.Equal(t, store.ReminderSent, updated.Status)

	_, err = ts.UpdateStudyReminder(ctx, &store.UpdateStudyReminder{
		ID:             reminder.ID,
		ExpectedStatus: store.ReminderPending,
		Status:         &sent,
	})
	require.ErrorIs(t, err, store.ErrConflict)
}

// interleavingDriver runs afterList once, right after the next ListStudyPlans
// has read its rows.
type interleavingDriver struct {
	store.Driver
	afterList func()
}

func (d *interleavingDriver) ListStudyPlans(ctx context.Context, find *store.FindStudyPlan) ([]*store.StudyPlan, error) {
	list, err := d.Driver.ListStudyPlans(ctx, find)
	if hook := d.afterList; hook != nil {
		d.afterList = nil
		hook()
	}
	return list, err
}

func TestGetStudyPlanDoesNotCacheRowReadBeforeWrite(t *testing.T) {
	ctx := context.Background()
	var driver *interleavingDriver
	ts := NewTestingStoreWithDriver(ctx, t, func(d store.Driver) store.Driver {
		driver = &interleavingDriver{Driver: d}
		return driver
	})
	plan := createTestingPlan(ctx, t, ts, 1)

	item := createTestingItem(ctx, t, ts, plan, "interleaved-article")
	require.NotNil(t, item)

	driver.afterList = func() {
		name := "Renamed during read"
		_, err := ts.UpdateStudyPlan(ctx, &store.UpdateStudyPlan{ID: plan.ID, Name: &name})
		require.NoError(t, err)
	}
	stale, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, "Go concurrency", stale.Name)

	fresh, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, "Renamed during read", fresh.Name)
	assert.Equal(t, 1, fresh.TotalItems)

	cached, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &plan.ID})
	require.NoError(t, err)
	assert.Equal(t, fresh.Name, cached.Name)
}

func TestStudyPlanReminderSettings(t *testing.T) {
	ctx := context.Background()
	ts := NewTestingStore(ctx, t)
	plan, err := ts.CreateStudyPlan(ctx, &store.StudyPlan{
		UID:              "plan-reminder-settings",
		CreatorID:        1,
		Name:             "Weekly recap",
		SpacingAlgorithm: srs.AlgorithmAnki,
		DifficultyLevel:  3,
		IsActive:         true,
		ReminderMethod:   "email",
		ReminderPattern:  "weekly",
	})
	require.NoError(t, err)
	assert.Equal(t, "email", plan.ReminderMethod)
	assert.Equal(t, "weekly", plan.ReminderPattern)

	pattern := "daily"
	updated, err := ts.UpdateStudyPlan(ctx, &store.UpdateStudyPlan{ID: plan.ID, ReminderPattern: &pattern})
	require.NoError(t, err)
	assert.Equal(t, "daily", updated.ReminderPattern)
	assert.Equal(t, "email", updated.ReminderMethod)

	hourly := "hourly"
	_, err = ts.UpdateStudyPlan(ctx, &store.UpdateStudyPlan{ID: plan.ID, ReminderPattern: &hourly})
	require.Error(t, err)
}
