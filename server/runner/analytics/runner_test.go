package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
	teststore "github.com/hrygo/studyhub/store/test"
)

var testNow = time.Date(2025, 3, 12, 18, 0, 0, 0, time.UTC)

func createPlan(ctx context.Context, t *testing.T, ts *store.Store, active bool) *store.StudyPlan {
	t.Helper()
	plan, err := ts.CreateStudyPlan(ctx, &store.StudyPlan{
		UID:              fmt.Sprintf("plan-%d", time.Now().UnixNano()),
		CreatorID:        1,
		Name:             "Compilers",
		SpacingAlgorithm: srs.AlgorithmSM2,
		DifficultyLevel:  3,
		DailyGoal:        2,
		WeeklyGoal:       10,
		MonthlyGoal:      40,
		IsActive:         active,
	})
	require.NoError(t, err)
	return plan
}

// recordLog commits one session for a fresh item of plan at ts.
func recordLog(ctx context.Context, t *testing.T, s *store.Store, plan *store.StudyPlan, rating int, ts time.Time) {
	t.Helper()
	uid := fmt.Sprintf("article-%d", time.Now().UnixNano())
	article, err := s.CreateArticle(ctx, &store.Article{UID: uid, CreatorID: 1, Title: uid, Slug: uid})
	require.NoError(t, err)
	item, err := s.CreateStudyItem(ctx, &store.StudyItem{
		UID:             "item-" + uid,
		PlanID:          plan.ID,
		ArticleID:       article.ID,
		Status:          srs.StatusNew,
		EaseFactor:      srs.DefaultEaseFactor,
		ImportanceLevel: 3,
		DifficultyLevel: 3,
	})
	require.NoError(t, err)

	status, total, unix := srs.StatusLearning, 1, ts.Unix()
	_, err = s.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID: plan.ID,
		Update: &store.UpdateStudyItem{
			ID:              item.ID,
			ExpectedVersion: item.Version,
			Status:          &status,
			TotalReviews:    &total,
			LastReviewedTs:  &unix,
			UpdatedTs:       &unix,
		},
		Log: &store.StudyLog{
			ItemID:         item.ID,
			PlanID:         plan.ID,
			CreatorID:      1,
			Rating:         rating,
			StudyTime:      60,
			PreviousStatus: srs.StatusNew,
			NewStatus:      status,
			CreatedTs:      unix,
		},
		Counters: store.PlanCounterDelta{CompletedItems: 1},
	})
	require.NoError(t, err)
}

func listRows(ctx context.Context, t *testing.T, ts *store.Store, planID int32, periodType store.PeriodType) []*store.StudyAnalytics {
	t.Helper()
	rows, err := ts.ListStudyAnalytics(ctx, &store.FindStudyAnalytics{PlanID: &planID, PeriodType: &periodType})
	require.NoError(t, err)
	return rows
}

func TestRebuildPeriodIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	plan := createPlan(ctx, t, ts, true)
	recordLog(ctx, t, ts, plan, 4, testNow.Add(-2*time.Hour))
	recordLog(ctx, t, ts, plan, 2, testNow.Add(-time.Hour))
	// Yesterday, outside the daily window.
	recordLog(ctx, t, ts, plan, 5, testNow.AddDate(0, 0, -1))

	rebuilder := NewRebuilder(ts, time.UTC)
	first, err := rebuilder.RebuildPeriod(ctx, plan.ID, store.PeriodDaily, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-12", first.PeriodDate)
	assert.Equal(t, 2, first.SessionCount)
	assert.Equal(t, 2, first.ItemsReviewed)
	assert.Equal(t, 2, first.NewItems)
	assert.Equal(t, 1, first.FailedItems)
	assert.Equal(t, 0.5, first.RetentionRate)
	assert.Equal(t, 1.0, first.DailyGoalProgress)

	second, err := rebuilder.RebuildPeriod(ctx, plan.ID, store.PeriodDaily, testNow)
	require.NoError(t, err)
	second.CreatedTs = first.CreatedTs
	assert.Equal(t, first, second)
	assert.Len(t, listRows(ctx, t, ts, plan.ID, store.PeriodDaily), 1)

	weekly, err := rebuilder.RebuildPeriod(ctx, plan.ID, store.PeriodWeekly, testNow)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", weekly.PeriodDate)
	assert.Equal(t, 3, weekly.SessionCount)
}

func TestRebuildPeriodReplacesStaleRow(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	plan := createPlan(ctx, t, ts, true)
	recordLog(ctx, t, ts, plan, 4, testNow)

	_, err := ts.UpsertStudyAnalytics(ctx, &store.StudyAnalytics{
		PlanID:        plan.ID,
		PeriodType:    store.PeriodDaily,
		PeriodDate:    "2025-03-12",
		SessionCount:  99,
		AverageRating: 1,
	})
	require.NoError(t, err)

	row, err := NewRebuilder(ts, time.UTC).RebuildPeriod(ctx, plan.ID, store.PeriodDaily, testNow)
	require.NoError(t, err)
	assert.Equal(t, 1, row.SessionCount)
	assert.Equal(t, 4.0, row.AverageRating)
	assert.Len(t, listRows(ctx, t, ts, plan.ID, store.PeriodDaily), 1)
}

func TestRebuildPeriodCancelledLeavesRow(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	plan := createPlan(ctx, t, ts, true)
	recordLog(ctx, t, ts, plan, 4, testNow)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := NewRebuilder(ts, time.UTC).RebuildPeriod(cancelled, plan.ID, store.PeriodDaily, testNow)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, listRows(ctx, t, ts, plan.ID, store.PeriodDaily))
}

func TestRebuildPeriodErrors(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	rebuilder := NewRebuilder(ts, time.UTC)

	_, err := rebuilder.RebuildPeriod(ctx, 4242, store.PeriodDaily, testNow)
	assert.ErrorIs(t, err, store.ErrNotFound)

	plan := createPlan(ctx, t, ts, true)
	_, err = rebuilder.RebuildPeriod(ctx, plan.ID, "quarterly", testNow)
	assert.Error(t, err)
}

func TestRunnerRollups(t *testing.T) {
	ctx := context.Background()
	ts := teststore.NewTestingStore(ctx, t)
	active := createPlan(ctx, t, ts, true)
	inactive := createPlan(ctx, t, ts, false)
	recordLog(ctx, t, ts, active, 4, testNow)
	recordLog(ctx, t, ts, active, 5, testNow.AddDate(0, 0, -1))
	recordLog(ctx, t, ts, inactive, 5, testNow)

	runner := NewRunner(ts, time.UTC, Config{Concurrency: 2})
	runner.SetClock(func() time.Time { return testNow })

	require.NoError(t, runner.RunHourly(ctx))
	daily := listRows(ctx, t, ts, active.ID, store.PeriodDaily)
	require.Len(t, daily, 1)
	assert.Equal(t, "2025-03-12", daily[0].PeriodDate)
	assert.Empty(t, listRows(ctx, t, ts, inactive.ID, store.PeriodDaily))

	require.NoError(t, runner.RunNightly(ctx))
	daily = listRows(ctx, t, ts, active.ID, store.PeriodDaily)
	require.Len(t, daily, 2)
	assert.Equal(t, "2025-03-11", daily[0].PeriodDate)
	assert.Equal(t, 1, daily[0].SessionCount)

	weekly := listRows(ctx, t, ts, active.ID, store.PeriodWeekly)
	require.Len(t, weekly, 1)
	assert.Equal(t, 2, weekly[0].SessionCount)
	monthly := listRows(ctx, t, ts, active.ID, store.PeriodMonthly)
	require.Len(t, monthly, 1)
	assert.Equal(t, "2025-03-01", monthly[0].PeriodDate)

	plan, err := ts.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &active.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, plan.TotalItems)
	assert.Equal(t, 2, plan.CompletedItems)
}

func TestRunnerStopsWithContext(t *testing.T) {
	ts := teststore.NewTestingStore(context.Background(), t)
	runner := NewRunner(ts, time.UTC, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
}
