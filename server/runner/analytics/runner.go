// Package analytics runs the background rollups of study logs into
// per-plan analytics rows.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/hrygo/studyhub/store"
)

// Config tunes the runner. Zero values fall back to DefaultConfig.
type Config struct {
	// HourlyCron refreshes today's daily rows.
	HourlyCron string
	// NightlyCron finalizes yesterday and reconciles plan counters.
	NightlyCron string
	// Concurrency bounds how many plans are rebuilt at once.
	Concurrency int
	// PlanTimeout bounds the work for one plan.
	PlanTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		HourlyCron:  "5 * * * *",
		NightlyCron: "15 0 * * *",
		Concurrency: 4,
		PlanTimeout: 30 * time.Second,
	}
}

type Runner struct {
	store     Store
	rebuilder *Rebuilder
	loc       *time.Location
	config    Config
	now       func() time.Time
	cron      *gocron.Scheduler
}

// NewRunner creates an analytics runner.
func NewRunner(store Store, loc *time.Location, config Config) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	defaults := DefaultConfig()
	if config.HourlyCron == "" {
		config.HourlyCron = defaults.HourlyCron
	}
	if config.NightlyCron == "" {
		config.NightlyCron = defaults.NightlyCron
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.PlanTimeout <= 0 {
		config.PlanTimeout = defaults.PlanTimeout
	}
	return &Runner{
		store:     store,
		rebuilder: NewRebuilder(store, loc),
		loc:       loc,
		config:    config,
		now:       time.Now,
	}
}

// SetClock replaces time.Now (for testing).
func (r *Runner) SetClock(now func() time.Time) {
	r.now = now
}

// Rebuilder returns the rebuilder used by the runner.
func (r *Runner) Rebuilder() *Rebuilder {
	return r.rebuilder
}

// Run schedules the rollups and blocks until ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	r.cron = gocron.NewScheduler(r.loc)
	r.cron.SingletonModeAll()

	if _, err := r.cron.Cron(r.config.HourlyCron).Do(func() {
		if err := r.RunHourly(ctx); err != nil {
			slog.Warn("hourly analytics rollup stopped", "error", err)
		}
	}); err != nil {
		return err
	}
	if _, err := r.cron.Cron(r.config.NightlyCron).Do(func() {
		if err := r.RunNightly(ctx); err != nil {
			slog.Warn("nightly analytics rollup stopped", "error", err)
		}
	}); err != nil {
		return err
	}

	r.cron.StartAsync()
	slog.Info("analytics runner started",
		"hourly", r.config.HourlyCron,
		"nightly", r.config.NightlyCron,
		"concurrency", r.config.Concurrency)

	<-ctx.Done()
	r.cron.Stop()
	slog.Info("analytics runner stopped")
	return nil
}

// RunHourly rebuilds today's daily row of every active plan.
func (r *Runner) RunHourly(ctx context.Context) error {
	today := r.now().In(r.loc)
	return r.forEachActivePlan(ctx, func(ctx context.Context, plan *store.StudyPlan) error {
		_, err := r.rebuilder.RebuildPeriod(ctx, plan.ID, store.PeriodDaily, today)
		return err
	})
}

// RunNightly finalizes yesterday's daily row and the weekly and monthly rows
// containing yesterday, then reconciles the plan counters.
func (r *Runner) RunNightly(ctx context.Context) error {
	yesterday := r.now().In(r.loc).AddDate(0, 0, -1)
	return r.forEachActivePlan(ctx, func(ctx context.Context, plan *store.StudyPlan) error {
		if err := r.RebuildPlan(ctx, plan.ID, yesterday); err != nil {
			return err
		}
		_, err := r.store.ReconcileStudyPlanCounters(ctx, plan.ID)
		return err
	})
}

// RebuildPlan rebuilds the daily, weekly and monthly rows containing date.
func (r *Runner) RebuildPlan(ctx context.Context, planID int32, date time.Time) error {
	for _, periodType := range []store.PeriodType{store.PeriodDaily, store.PeriodWeekly, store.PeriodMonthly} {
		if _, err := r.rebuilder.RebuildPeriod(ctx, planID, periodType, date); err != nil {
			return err
		}
	}
	return nil
}

// forEachActivePlan runs fn for every active plan with bounded concurrency.
// A failing plan is logged and keeps its previous rows.
func (r *Runner) forEachActivePlan(ctx context.Context, fn func(ctx context.Context, plan *store.StudyPlan) error) error {
	active := true
	plans, err := r.store.ListStudyPlans(ctx, &store.FindStudyPlan{IsActive: &active})
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for _, plan := range plans {
		plan := plan
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			planCtx, cancel := context.WithTimeout(ctx, r.config.PlanTimeout)
			defer cancel()
			if err := fn(planCtx, plan); err != nil {
				slog.Warn("analytics rebuild failed",
					slog.Int("plan_id", int(plan.ID)),
					slog.String("error", err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
