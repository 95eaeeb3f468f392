package study

import (
	"context"
	"fmt"
	"math"

	"github.com/hrygo/studyhub/plugin/analytics"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
)

func (s *service) ListAnalytics(ctx context.Context, userID, planID int32, find *ListAnalyticsRequest) (*AnalyticsReport, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	periodType := find.PeriodType
	if periodType == "" {
		periodType = store.PeriodDaily
	}
	if _, err := analytics.ParsePeriodType(string(periodType)); err != nil {
		return nil, apperrors.InvalidInput("period", err.Error())
	}
	days := find.Days
	if days <= 0 {
		days = DefaultAnalyticsDays
	}
	if days > 366 {
		return nil, apperrors.InvalidInput("days", "must be at most 366")
	}

	now := s.now().In(s.loc)
	from, err := analytics.NewWindow(periodType, now.AddDate(0, 0, -(days-1)), s.loc)
	if err != nil {
		return nil, err
	}
	fromDate, toDate := from.PeriodDate(), now.Format(analytics.PeriodDateLayout)
	rows, err := s.store.ListStudyAnalytics(ctx, &store.FindStudyAnalytics{
		PlanID:         &plan.ID,
		PeriodType:     &periodType,
		PeriodDateFrom: &fromDate,
		PeriodDateTo:   &toDate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list study analytics: %w", err)
	}
	return &AnalyticsReport{Plan: plan, Rows: rows, TotalStats: totalStats(rows)}, nil
}

func totalStats(rows []*store.StudyAnalytics) *TotalStats {
	stats := &TotalStats{}
	ratingSum := 0.0
	for _, row := range rows {
		stats.ItemsReviewed += row.ItemsReviewed
		stats.StudyTime += row.StudyTime
		stats.SessionCount += row.SessionCount
		stats.MasteredItems += row.MasteredItems
		stats.FailedItems += row.FailedItems
		ratingSum += row.AverageRating * float64(row.SessionCount)
	}
	if stats.SessionCount > 0 {
		stats.AverageRating = math.Round(ratingSum/float64(stats.SessionCount)*1e4) / 1e4
	}
	return stats
}
