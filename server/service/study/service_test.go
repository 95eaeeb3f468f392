package study

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyhub/plugin/reminder"
	"github.com/hrygo/studyhub/plugin/srs"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
	teststore "github.com/hrygo/studyhub/store/test"
)

const (
	testUserID  = int32(101)
	otherUserID = int32(202)
)

// testClock is a settable clock shared by the service under test.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (Service, *store.Store, *testClock) {
	t.Helper()
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	clock := &testClock{now: time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)}
	return NewService(ts, WithClock(clock.Now)), ts, clock
}

func createPlan(ctx context.Context, t *testing.T, svc Service, algorithm string) *store.StudyPlan {
	t.Helper()
	plan, err := svc.CreatePlan(ctx, testUserID, &CreatePlanRequest{
		Name:             "Distributed systems",
		SpacingAlgorithm: algorithm,
		DailyGoal:        5,
	})
	require.NoError(t, err)
	return plan
}

func addArticle(ctx context.Context, t *testing.T, svc Service, ts *store.Store, plan *store.StudyPlan, importance int) *store.StudyItem {
	t.Helper()
	uid := fmt.Sprintf("article-%d", time.Now().UnixNano())
	article, err := ts.CreateArticle(ctx, &store.Article{UID: uid, CreatorID: 1, Title: "Raft " + uid, Slug: uid})
	require.NoError(t, err)
	item, err := svc.AddArticle(ctx, testUserID, plan.ID, &AddArticleRequest{
		ArticleID:       article.ID,
		ImportanceLevel: importance,
	})
	require.NoError(t, err)
	return item
}

func study(ctx context.Context, t *testing.T, svc Service, itemID int32, rating int) *SessionResult {
	t.Helper()
	result, err := svc.RecordSession(ctx, testUserID, itemID, &SessionInput{Rating: rating, StudyTime: 90})
	require.NoError(t, err)
	return result
}

func assertCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, code), "expected %s, got %v", code, err)
}

func TestCreatePlan(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	plan, err := svc.CreatePlan(ctx, testUserID, &CreatePlanRequest{Name: "  Databases  "})
	require.NoError(t, err)
	assert.Equal(t, "Databases", plan.Name)
	assert.Equal(t, srs.DefaultAlgorithm, plan.SpacingAlgorithm)
	assert.Equal(t, DefaultLevel, plan.DifficultyLevel)
	assert.True(t, plan.IsActive)
	assert.NotEmpty(t, plan.UID)
	assert.Equal(t, reminder.MethodApp, plan.ReminderMethod)
	assert.Empty(t, plan.ReminderPattern)

	tests := []struct {
		name  string
		req   *CreatePlanRequest
		field string
	}{
		{"empty name", &CreatePlanRequest{Name: " "}, "name"},
		{"unknown algorithm", &CreatePlanRequest{Name: "x", SpacingAlgorithm: "leitner"}, "spacing_algorithm"},
		{"difficulty too high", &CreatePlanRequest{Name: "x", DifficultyLevel: 6}, "difficulty_level"},
		{"negative goal", &CreatePlanRequest{Name: "x", WeeklyGoal: -1}, "weekly_goal"},
		{"unknown reminder method", &CreatePlanRequest{Name: "x", ReminderMethod: "pager"}, "reminder_method"},
		{"unknown reminder pattern", &CreatePlanRequest{Name: "x", ReminderPattern: "hourly"}, "reminder_pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePlan(ctx, testUserID, tt.req)
			assertCode(t, err, apperrors.ErrCodeInvalidInput)
			var studyErr *apperrors.StudyError
			require.ErrorAs(t, err, &studyErr)
			assert.Equal(t, tt.field, studyErr.Field)
		})
	}
}

func TestPlanOwnership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")

	_, err := svc.GetPlan(ctx, otherUserID, plan.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)

	name := "Renamed"
	_, err = svc.UpdatePlan(ctx, otherUserID, plan.ID, &UpdatePlanRequest{Name: &name})
	assertCode(t, err, apperrors.ErrCodeNotFound)

	plans, total, err := svc.ListPlans(ctx, otherUserID, &ListPlansRequest{})
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.Zero(t, total)
}

func TestUpdatePlan(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")

	name, algorithm, inactive, goal := "Consensus", "anki", false, 10
	updated, err := svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{
		Name:             &name,
		SpacingAlgorithm: &algorithm,
		IsActive:         &inactive,
		DailyGoal:        &goal,
	})
	require.NoError(t, err)
	assert.Equal(t, "Consensus", updated.Name)
	assert.Equal(t, srs.AlgorithmAnki, updated.SpacingAlgorithm)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 10, updated.DailyGoal)

	active := true
	plans, total, err := svc.ListPlans(ctx, testUserID, &ListPlansRequest{IsActive: &active})
	require.NoError(t, err)
	assert.Empty(t, plans)
	assert.Zero(t, total)

	bad := "fsrs"
	_, err = svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{SpacingAlgorithm: &bad})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)

	method, pattern := reminder.MethodEmail, reminder.PatternWeekly
	updated, err = svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{ReminderMethod: &method, ReminderPattern: &pattern})
	require.NoError(t, err)
	assert.Equal(t, reminder.MethodEmail, updated.ReminderMethod)
	assert.Equal(t, reminder.PatternWeekly, updated.ReminderPattern)

	oneShot := ""
	updated, err = svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{ReminderPattern: &oneShot})
	require.NoError(t, err)
	assert.Empty(t, updated.ReminderPattern)
	assert.Equal(t, reminder.MethodEmail, updated.ReminderMethod)

	badPattern := "monthly"
	_, err = svc.UpdatePlan(ctx, testUserID, plan.ID, &UpdatePlanRequest{ReminderPattern: &badPattern})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)
}

func TestAddArticle(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")

	item := addArticle(ctx, t, svc, ts, plan, 0)
	assert.Equal(t, srs.StatusNew, item.Status)
	assert.Equal(t, srs.DefaultEaseFactor, item.EaseFactor)
	assert.Equal(t, DefaultLevel, item.ImportanceLevel)
	assert.Nil(t, item.NextReviewTs)

	_, err := svc.AddArticle(ctx, testUserID, plan.ID, &AddArticleRequest{ArticleID: item.ArticleID})
	assertCode(t, err, apperrors.ErrCodeConflict)

	_, err = svc.AddArticle(ctx, testUserID, plan.ID, &AddArticleRequest{ArticleID: 99999})
	assertCode(t, err, apperrors.ErrCodeNotFound)

	_, err = svc.AddArticle(ctx, testUserID, plan.ID, &AddArticleRequest{ArticleID: item.ArticleID, ImportanceLevel: 9})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)

	got, err := svc.GetPlan(ctx, testUserID, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalItems)
}

func TestUpdateItem(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)

	importance, notes := 5, "## Key idea\n\nLeader election."
	updated, err := svc.UpdateItem(ctx, testUserID, item.ID, &UpdateItemRequest{ImportanceLevel: &importance, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.ImportanceLevel)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, item.Version+1, updated.Version)

	bad := 0
	_, err = svc.UpdateItem(ctx, testUserID, item.ID, &UpdateItemRequest{DifficultyLevel: &bad})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)

	_, err = svc.GetItem(ctx, otherUserID, item.ID)
	assertCode(t, err, apperrors.ErrCodeNotFound)
}

func TestListItemsWithFilter(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	for _, importance := range []int{1, 4, 5, 2, 5} {
		addArticle(ctx, t, svc, ts, plan, importance)
	}

	items, total, err := svc.ListItems(ctx, testUserID, plan.ID, &ListItemsRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 5, total)

	items, total, err = svc.ListItems(ctx, testUserID, plan.ID, &ListItemsRequest{Filter: "importance >= 4", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 3, total)

	items, total, err = svc.ListItems(ctx, testUserID, plan.ID, &ListItemsRequest{Filter: "importance >= 4", Offset: 2})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 3, total)

	_, _, err = svc.ListItems(ctx, testUserID, plan.ID, &ListItemsRequest{Filter: "importance +"})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)

	status := srs.Status("forgotten")
	_, _, err = svc.ListItems(ctx, testUserID, plan.ID, &ListItemsRequest{Status: &status})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)
}

func TestRemoveItem(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")
	item := addArticle(ctx, t, svc, ts, plan, 3)
	study(ctx, t, svc, item.ID, 4)

	assertCode(t, svc.RemoveItem(ctx, otherUserID, item.ID), apperrors.ErrCodeNotFound)
	require.NoError(t, svc.RemoveItem(ctx, testUserID, item.ID))

	got, err := svc.GetPlan(ctx, testUserID, plan.ID)
	require.NoError(t, err)
	assert.Zero(t, got.TotalItems)
	assert.Zero(t, got.CompletedItems)

	reminders, err := ts.ListStudyReminders(ctx, &store.FindStudyReminder{ItemID: &item.ID})
	require.NoError(t, err)
	for _, r := range reminders {
		assert.Equal(t, store.ReminderCancelled, r.Status)
	}
	assertCode(t, svc.RemoveItem(ctx, testUserID, item.ID), apperrors.ErrCodeNotFound)
}

func TestListAnalytics(t *testing.T) {
	ctx := context.Background()
	svc, ts, _ := newTestService(t)
	plan := createPlan(ctx, t, svc, "sm2")

	for _, row := range []*store.StudyAnalytics{
		{PlanID: plan.ID, PeriodType: store.PeriodDaily, PeriodDate: "2025-03-11", ItemsReviewed: 2, SessionCount: 2, StudyTime: 100, AverageRating: 4},
		{PlanID: plan.ID, PeriodType: store.PeriodDaily, PeriodDate: "2025-03-12", ItemsReviewed: 3, SessionCount: 6, StudyTime: 50, AverageRating: 2.5},
		{PlanID: plan.ID, PeriodType: store.PeriodDaily, PeriodDate: "2025-01-01", ItemsReviewed: 9, SessionCount: 9},
	} {
		_, err := ts.UpsertStudyAnalytics(ctx, row)
		require.NoError(t, err)
	}

	report, err := svc.ListAnalytics(ctx, testUserID, plan.ID, &ListAnalyticsRequest{Days: 7})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, 5, report.TotalStats.ItemsReviewed)
	assert.Equal(t, 8, report.TotalStats.SessionCount)
	assert.Equal(t, 150, report.TotalStats.StudyTime)
	// (2*4 + 6*2.5) / 8
	assert.Equal(t, 2.875, report.TotalStats.AverageRating)

	_, err = svc.ListAnalytics(ctx, testUserID, plan.ID, &ListAnalyticsRequest{PeriodType: "hourly"})
	assertCode(t, err, apperrors.ErrCodeInvalidInput)
}
