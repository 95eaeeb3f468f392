package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/studyhub/store"
)

var studyReminderFields = []string{
	"id", "uid", "item_id", "plan_id", "creator_id", "reminder_ts", "status", "priority", "method",
	"is_recurring", "recurrence_pattern", "snooze_until_ts", "attempt_count", "sent_ts", "completed_ts",
	"created_ts", "updated_ts",
}

func scanStudyReminder(s scanner) (*store.StudyReminder, error) {
	reminder := &store.StudyReminder{}
	var snoozeUntilTs, sentTs, completedTs sql.NullInt64
	if err := s.Scan(
		&reminder.ID,
		&reminder.UID,
		&reminder.ItemID,
		&reminder.PlanID,
		&reminder.CreatorID,
		&reminder.ReminderTs,
		&reminder.Status,
		&reminder.Priority,
		&reminder.Method,
		&reminder.IsRecurring,
		&reminder.RecurrencePattern,
		&snoozeUntilTs,
		&reminder.AttemptCount,
		&sentTs,
		&completedTs,
		&reminder.CreatedTs,
		&reminder.UpdatedTs,
	); err != nil {
		return nil, err
	}
	reminder.SnoozeUntilTs = nullInt64Ptr(snoozeUntilTs)
	reminder.SentTs = nullInt64Ptr(sentTs)
	reminder.CompletedTs = nullInt64Ptr(completedTs)
	return reminder, nil
}

func insertStudyReminder(ctx context.Context, q querier, create *store.StudyReminder) (*store.StudyReminder, error) {
	fields := []string{
		"uid", "item_id", "plan_id", "creator_id", "reminder_ts", "status", "priority", "method",
		"is_recurring", "recurrence_pattern", "snooze_until_ts", "attempt_count",
	}
	args := []any{
		create.UID, create.ItemID, create.PlanID, create.CreatorID, create.ReminderTs, create.Status, create.Priority, create.Method,
		create.IsRecurring, create.RecurrencePattern, int64PtrArg(create.SnoozeUntilTs), create.AttemptCount,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	stmt := `INSERT INTO study_reminder (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + columns("", studyReminderFields)
	reminder, err := scanStudyReminder(q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create study reminder: %w", err)
	}
	return reminder, nil
}

// cancelActiveReminders cancels every pending or sent reminder of an item.
func cancelActiveReminders(ctx context.Context, q querier, itemID int32, updatedTs int64) error {
	stmt := `UPDATE study_reminder SET status = ` + placeholder(1) + `, updated_ts = ` + placeholder(2) + `
		WHERE item_id = ` + placeholder(3) + ` AND status IN ('pending', 'sent')`
	if _, err := q.ExecContext(ctx, stmt, store.ReminderCancelled, updatedTs, itemID); err != nil {
		return fmt.Errorf("failed to cancel study reminders: %w", err)
	}
	return nil
}

func (d *DB) CreateStudyReminder(ctx context.Context, create *store.StudyReminder) (*store.StudyReminder, error) {
	return insertStudyReminder(ctx, d.db, create)
}

func (d *DB) ListStudyReminders(ctx context.Context, find *store.FindStudyReminder) ([]*store.StudyReminder, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ItemID; v != nil {
		where, args = append(where, "item_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.StatusList) > 0 {
		var in string
		in, args = inList(args, find.StatusList)
		where = append(where, "status IN "+in)
	}
	if v := find.DueBefore; v != nil {
		where = append(where, "status = 'pending'")
		where, args = append(where, "reminder_ts <= "+placeholder(len(args)+1)), append(args, *v)
		where, args = append(where, "(snooze_until_ts IS NULL OR snooze_until_ts <= "+placeholder(len(args)+1)+")"), append(args, *v)
	}

	query := `SELECT ` + columns("", studyReminderFields) + ` FROM study_reminder
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY reminder_ts ASC, priority DESC, id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study reminders: %w", err)
	}
	defer rows.Close()

	list := []*store.StudyReminder{}
	for rows.Next() {
		reminder, err := scanStudyReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study reminder: %w", err)
		}
		list = append(list, reminder)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study reminders: %w", err)
	}
	return list, nil
}

func (d *DB) UpdateStudyReminder(ctx context.Context, update *store.UpdateStudyReminder) (*store.StudyReminder, error) {
	set, args := []string{}, []any{}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ReminderTs; v != nil {
		set, args = append(set, "reminder_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.SnoozeUntilTs; v != nil {
		set, args = append(set, "snooze_until_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.AttemptCount; v != nil {
		set, args = append(set, "attempt_count = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.SentTs; v != nil {
		set, args = append(set, "sent_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CompletedTs; v != nil {
		set, args = append(set, "completed_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("no fields to update")
	}

	args = append(args, update.ID, update.ExpectedStatus)
	stmt := `UPDATE study_reminder SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)-1) + ` AND status = ` + placeholder(len(args)) + `
		RETURNING ` + columns("", studyReminderFields)
	reminder, err := scanStudyReminder(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("failed to update study reminder: %w", err)
	}
	return reminder, nil
}
