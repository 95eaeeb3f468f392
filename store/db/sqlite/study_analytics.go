package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/studyhub/store"
)

var studyAnalyticsFields = []string{
	"id", "plan_id", "period_type", "period_date",
	"items_reviewed", "new_items", "reviewed_items", "mastered_items", "failed_items",
	"study_time", "session_count", "average_rating", "completion_rate", "retention_rate",
	"efficiency_score", "progress_velocity", "consistency_score",
	"daily_goal_progress", "weekly_goal_progress", "monthly_goal_progress", "created_ts",
}

// studyAnalyticsComputed are the columns replaced on upsert.
var studyAnalyticsComputed = studyAnalyticsFields[4 : len(studyAnalyticsFields)-1]

func scanStudyAnalytics(s scanner) (*store.StudyAnalytics, error) {
	row := &store.StudyAnalytics{}
	if err := s.Scan(
		&row.ID,
		&row.PlanID,
		&row.PeriodType,
		&row.PeriodDate,
		&row.ItemsReviewed,
		&row.NewItems,
		&row.ReviewedItems,
		&row.MasteredItems,
		&row.FailedItems,
		&row.StudyTime,
		&row.SessionCount,
		&row.AverageRating,
		&row.CompletionRate,
		&row.RetentionRate,
		&row.EfficiencyScore,
		&row.ProgressVelocity,
		&row.ConsistencyScore,
		&row.DailyGoalProgress,
		&row.WeeklyGoalProgress,
		&row.MonthlyGoalProgress,
		&row.CreatedTs,
	); err != nil {
		return nil, err
	}
	return row, nil
}

func (d *DB) UpsertStudyAnalytics(ctx context.Context, upsert *store.StudyAnalytics) (*store.StudyAnalytics, error) {
	fields := append([]string{"plan_id", "period_type", "period_date"}, studyAnalyticsComputed...)
	args := []any{
		upsert.PlanID, upsert.PeriodType, upsert.PeriodDate,
		upsert.ItemsReviewed, upsert.NewItems, upsert.ReviewedItems, upsert.MasteredItems, upsert.FailedItems,
		upsert.StudyTime, upsert.SessionCount, upsert.AverageRating, upsert.CompletionRate, upsert.RetentionRate,
		upsert.EfficiencyScore, upsert.ProgressVelocity, upsert.ConsistencyScore,
		upsert.DailyGoalProgress, upsert.WeeklyGoalProgress, upsert.MonthlyGoalProgress,
	}
	if upsert.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, upsert.CreatedTs)
	}

	set := make([]string, 0, len(studyAnalyticsComputed))
	for _, field := range studyAnalyticsComputed {
		set = append(set, field+" = EXCLUDED."+field)
	}

	stmt := `INSERT INTO study_analytics (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		ON CONFLICT(plan_id, period_type, period_date) DO UPDATE SET ` + strings.Join(set, ", ") + `
		RETURNING ` + columns("", studyAnalyticsFields)
	row, err := scanStudyAnalytics(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert study analytics: %w", err)
	}
	return row, nil
}

func (d *DB) ListStudyAnalytics(ctx context.Context, find *store.FindStudyAnalytics) ([]*store.StudyAnalytics, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.PlanID; v != nil {
		where, args = append(where, "plan_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PeriodType; v != nil {
		where, args = append(where, "period_type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PeriodDateFrom; v != nil {
		where, args = append(where, "period_date >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PeriodDateTo; v != nil {
		where, args = append(where, "period_date <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT ` + columns("", studyAnalyticsFields) + ` FROM study_analytics
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY period_date ASC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study analytics: %w", err)
	}
	defer rows.Close()

	list := []*store.StudyAnalytics{}
	for rows.Next() {
		row, err := scanStudyAnalytics(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study analytics: %w", err)
		}
		list = append(list, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study analytics: %w", err)
	}
	return list, nil
}
