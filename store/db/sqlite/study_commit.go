package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hrygo/studyhub/store"
)

func (d *DB) CommitStudyItem(ctx context.Context, commit *store.StudyItemCommit) (*store.StudyItemCommitResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result := &store.StudyItemCommitResult{}
	result.Item, err = updateStudyItem(ctx, tx, commit.Update)
	if err != nil {
		return nil, err
	}
	if commit.Log != nil {
		result.Log, err = insertStudyLog(ctx, tx, commit.Log)
		if err != nil {
			return nil, err
		}
	}
	if err := applyPlanCounters(ctx, tx, commit.PlanID, commit.Counters, result.Item.UpdatedTs); err != nil {
		return nil, err
	}

	if change := commit.Reminder; change != nil {
		if _, err := tx.ExecContext(ctx, "SAVEPOINT study_reminder"); err != nil {
			return nil, fmt.Errorf("failed to create savepoint: %w", err)
		}
		result.Reminder, result.ReminderErr = applyReminderChange(ctx, tx, result.Item, change)
		if result.ReminderErr != nil {
			slog.Warn("study reminder reschedule failed",
				slog.Int("item_id", int(result.Item.ID)),
				slog.String("error", result.ReminderErr.Error()))
			if _, err := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT study_reminder"); err != nil {
				return nil, fmt.Errorf("failed to roll back savepoint: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT study_reminder"); err != nil {
			return nil, fmt.Errorf("failed to release savepoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit study item: %w", err)
	}
	return result, nil
}

func applyReminderChange(ctx context.Context, q querier, item *store.StudyItem, change *store.ReminderChange) (*store.StudyReminder, error) {
	if change.CancelActive {
		if err := cancelActiveReminders(ctx, q, item.ID, item.UpdatedTs); err != nil {
			return nil, err
		}
	}
	if change.Create == nil {
		return nil, nil
	}
	return insertStudyReminder(ctx, q, change.Create)
}
