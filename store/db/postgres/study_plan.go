package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/studyhub/store"
)

var studyPlanFields = []string{
	"id", "uid", "creator_id", "name", "description", "spacing_algorithm", "difficulty_level",
	"daily_goal", "weekly_goal", "monthly_goal", "total_items", "completed_items", "mastered_items",
	"is_active", "reminder_method", "reminder_pattern", "created_ts", "updated_ts",
}

func scanStudyPlan(s scanner) (*store.StudyPlan, error) {
	plan := &store.StudyPlan{}
	if err := s.Scan(
		&plan.ID,
		&plan.UID,
		&plan.CreatorID,
		&plan.Name,
		&plan.Description,
		&plan.SpacingAlgorithm,
		&plan.DifficultyLevel,
		&plan.DailyGoal,
		&plan.WeeklyGoal,
		&plan.MonthlyGoal,
		&plan.TotalItems,
		&plan.CompletedItems,
		&plan.MasteredItems,
		&plan.IsActive,
		&plan.ReminderMethod,
		&plan.ReminderPattern,
		&plan.CreatedTs,
		&plan.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return plan, nil
}

func (d *DB) CreateStudyPlan(ctx context.Context, create *store.StudyPlan) (*store.StudyPlan, error) {
	fields := []string{
		"uid", "creator_id", "name", "description", "spacing_algorithm", "difficulty_level",
		"daily_goal", "weekly_goal", "monthly_goal", "is_active", "reminder_method", "reminder_pattern",
	}
	args := []any{
		create.UID, create.CreatorID, create.Name, create.Description, create.SpacingAlgorithm, create.DifficultyLevel,
		create.DailyGoal, create.WeeklyGoal, create.MonthlyGoal, create.IsActive, create.ReminderMethod, create.ReminderPattern,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO study_plan (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + columns("", studyPlanFields)
	plan, err := scanStudyPlan(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create study plan: %w", err)
	}
	return plan, nil
}

func studyPlanWhere(find *store.FindStudyPlan) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "study_plan.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "study_plan.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "study_plan.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.IsActive; v != nil {
		where, args = append(where, "study_plan.is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	return where, args
}

func (d *DB) ListStudyPlans(ctx context.Context, find *store.FindStudyPlan) ([]*store.StudyPlan, error) {
	where, args := studyPlanWhere(find)
	query := `SELECT ` + columns("study_plan", studyPlanFields) + ` FROM study_plan
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY study_plan.created_ts DESC, study_plan.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study plans: %w", err)
	}
	defer rows.Close()

	list := []*store.StudyPlan{}
	for rows.Next() {
		plan, err := scanStudyPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study plan: %w", err)
		}
		list = append(list, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study plans: %w", err)
	}
	return list, nil
}

func (d *DB) CountStudyPlans(ctx context.Context, find *store.FindStudyPlan) (int, error) {
	where, args := studyPlanWhere(find)
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM study_plan WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count study plans: %w", err)
	}
	return count, nil
}

func (d *DB) UpdateStudyPlan(ctx context.Context, update *store.UpdateStudyPlan) (*store.StudyPlan, error) {
	set, args := []string{}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Name; v != nil {
		set, args = append(set, "name = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.SpacingAlgorithm; v != nil {
		set, args = append(set, "spacing_algorithm = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DifficultyLevel; v != nil {
		set, args = append(set, "difficulty_level = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DailyGoal; v != nil {
		set, args = append(set, "daily_goal = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.WeeklyGoal; v != nil {
		set, args = append(set, "weekly_goal = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.MonthlyGoal; v != nil {
		set, args = append(set, "monthly_goal = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.IsActive; v != nil {
		set, args = append(set, "is_active = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ReminderMethod; v != nil {
		set, args = append(set, "reminder_method = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ReminderPattern; v != nil {
		set, args = append(set, "reminder_pattern = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE study_plan SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)) + `
		RETURNING ` + columns("", studyPlanFields)
	plan, err := scanStudyPlan(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update study plan: %w", err)
	}
	return plan, nil
}

// applyPlanCounters increments the plan counters by delta.
func applyPlanCounters(ctx context.Context, q querier, planID int32, delta store.PlanCounterDelta, updatedTs int64) error {
	if delta.IsZero() {
		return nil
	}
	stmt := `UPDATE study_plan SET
		total_items = total_items + ` + placeholder(1) + `,
		completed_items = completed_items + ` + placeholder(2) + `,
		mastered_items = mastered_items + ` + placeholder(3) + `,
		updated_ts = ` + placeholder(4) + `
		WHERE id = ` + placeholder(5)
	result, err := q.ExecContext(ctx, stmt, delta.TotalItems, delta.CompletedItems, delta.MasteredItems, updatedTs, planID)
	if err != nil {
		return fmt.Errorf("failed to update study plan counters: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *DB) ReconcileStudyPlanCounters(ctx context.Context, planID int32) (*store.StudyPlan, error) {
	stmt := `UPDATE study_plan SET
		total_items = (SELECT COUNT(*) FROM study_item WHERE study_item.plan_id = study_plan.id),
		completed_items = (SELECT COUNT(*) FROM study_item WHERE study_item.plan_id = study_plan.id AND study_item.total_reviews > 0),
		mastered_items = (SELECT COUNT(*) FROM study_item WHERE study_item.plan_id = study_plan.id AND study_item.status = 'mastered')
		WHERE id = ` + placeholder(1) + `
		RETURNING ` + columns("", studyPlanFields)
	plan, err := scanStudyPlan(d.db.QueryRowContext(ctx, stmt, planID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to reconcile study plan counters: %w", err)
	}
	return plan, nil
}
