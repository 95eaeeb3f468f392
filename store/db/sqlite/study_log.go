package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/studyhub/store"
)

var studyLogFields = []string{
	"id", "item_id", "plan_id", "creator_id", "rating", "study_time",
	"understanding", "retention", "application", "confidence",
	"previous_interval", "new_interval", "previous_ease", "new_ease",
	"previous_status", "new_status", "device", "location", "time_of_day", "created_ts",
}

func scanStudyLog(s scanner) (*store.StudyLog, error) {
	log := &store.StudyLog{}
	if err := s.Scan(
		&log.ID,
		&log.ItemID,
		&log.PlanID,
		&log.CreatorID,
		&log.Rating,
		&log.StudyTime,
		&log.Understanding,
		&log.Retention,
		&log.Application,
		&log.Confidence,
		&log.PreviousInterval,
		&log.NewInterval,
		&log.PreviousEase,
		&log.NewEase,
		&log.PreviousStatus,
		&log.NewStatus,
		&log.Device,
		&log.Location,
		&log.TimeOfDay,
		&log.CreatedTs,
	); err != nil {
		return nil, err
	}
	return log, nil
}

func insertStudyLog(ctx context.Context, q querier, create *store.StudyLog) (*store.StudyLog, error) {
	fields := []string{
		"item_id", "plan_id", "creator_id", "rating", "study_time",
		"understanding", "retention", "application", "confidence",
		"previous_interval", "new_interval", "previous_ease", "new_ease",
		"previous_status", "new_status", "device", "location", "time_of_day",
	}
	args := []any{
		create.ItemID, create.PlanID, create.CreatorID, create.Rating, create.StudyTime,
		create.Understanding, create.Retention, create.Application, create.Confidence,
		create.PreviousInterval, create.NewInterval, create.PreviousEase, create.NewEase,
		create.PreviousStatus, create.NewStatus, create.Device, create.Location, create.TimeOfDay,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO study_log (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + columns("", studyLogFields)
	log, err := scanStudyLog(q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to create study log: %w", err)
	}
	return log, nil
}

func studyLogWhere(find *store.FindStudyLog) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ItemID; v != nil {
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PlanID; v != nil {
		where, args = append(where, "plan_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsAfter; v != nil {
		where, args = append(where, "created_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatedTsBefore; v != nil {
		where, args = append(where, "created_ts < "+placeholder(len(args)+1)), append(args, *v)
	}
	return where, args
}

func (d *DB) ListStudyLogs(ctx context.Context, find *store.FindStudyLog) ([]*store.StudyLog, error) {
	where, args := studyLogWhere(find)
	query := `SELECT ` + columns("", studyLogFields) + ` FROM study_log
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study logs: %w", err)
	}
	defer rows.Close()

	list := []*store.StudyLog{}
	for rows.Next() {
		log, err := scanStudyLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study log: %w", err)
		}
		list = append(list, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study logs: %w", err)
	}
	return list, nil
}

func (d *DB) CountStudyLogs(ctx context.Context, find *store.FindStudyLog) (int, error) {
	where, args := studyLogWhere(find)
	var count int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM study_log WHERE `+strings.Join(where, " AND "), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count study logs: %w", err)
	}
	return count, nil
}
