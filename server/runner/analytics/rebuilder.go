package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/hrygo/studyhub/plugin/analytics"
	"github.com/hrygo/studyhub/store"
)

// Store is the interface for store operations needed by the analytics runner.
type Store interface {
	GetStudyPlan(ctx context.Context, find *store.FindStudyPlan) (*store.StudyPlan, error)
	ListStudyPlans(ctx context.Context, find *store.FindStudyPlan) ([]*store.StudyPlan, error)
	ReconcileStudyPlanCounters(ctx context.Context, planID int32) (*store.StudyPlan, error)
	ListStudyLogs(ctx context.Context, find *store.FindStudyLog) ([]*store.StudyLog, error)
	UpsertStudyAnalytics(ctx context.Context, upsert *store.StudyAnalytics) (*store.StudyAnalytics, error)
}

// Rebuilder recomputes analytics rows from study logs.
type Rebuilder struct {
	store Store
	loc   *time.Location
}

func NewRebuilder(store Store, loc *time.Location) *Rebuilder {
	if loc == nil {
		loc = time.UTC
	}
	return &Rebuilder{store: store, loc: loc}
}

// RebuildPeriod replaces the plan's row for the period containing date. The
// upsert is the only write, so a cancelled rebuild leaves the old row intact.
func (r *Rebuilder) RebuildPeriod(ctx context.Context, planID int32, periodType store.PeriodType, date time.Time) (*store.StudyAnalytics, error) {
	window, err := analytics.NewWindow(periodType, date, r.loc)
	if err != nil {
		return nil, err
	}
	plan, err := r.store.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &planID})
	if err != nil {
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("study plan %d: %w", planID, store.ErrNotFound)
	}

	logs, err := r.listLogs(ctx, planID, window)
	if err != nil {
		return nil, err
	}
	previousLogs, err := r.listLogs(ctx, planID, window.Previous())
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row, err := r.store.UpsertStudyAnalytics(ctx, analytics.Compute(plan, window, logs, previousLogs))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert study analytics: %w", err)
	}
	return row, nil
}

func (r *Rebuilder) listLogs(ctx context.Context, planID int32, window analytics.Window) ([]*store.StudyLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, end := window.Bounds()
	logs, err := r.store.ListStudyLogs(ctx, &store.FindStudyLog{
		PlanID:          &planID,
		CreatedTsAfter:  &start,
		CreatedTsBefore: &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list study logs: %w", err)
	}
	return logs, nil
}
