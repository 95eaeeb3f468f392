package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
)

var studyItemFields = []string{
	"id", "uid", "plan_id", "article_id", "status", "suspended_from",
	"current_interval", "ease_factor", "consecutive_correct", "consecutive_failed",
	"next_review_ts", "last_reviewed_ts", "first_studied_ts", "mastered_ts",
	"total_reviews", "average_rating", "importance_level", "difficulty_level", "notes",
	"version", "created_ts", "updated_ts",
}

func scanStudyItem(s scanner) (*store.StudyItem, error) {
	item := &store.StudyItem{}
	var suspendedFrom sql.NullString
	var nextReviewTs, lastReviewedTs, firstStudiedTs, masteredTs sql.NullInt64
	if err := s.Scan(
		&item.ID,
		&item.UID,
		&item.PlanID,
		&item.ArticleID,
		&item.Status,
		&suspendedFrom,
		&item.CurrentInterval,
		&item.EaseFactor,
		&item.ConsecutiveCorrect,
		&item.ConsecutiveFailed,
		&nextReviewTs,
		&lastReviewedTs,
		&firstStudiedTs,
		&masteredTs,
		&item.TotalReviews,
		&item.AverageRating,
		&item.ImportanceLevel,
		&item.DifficultyLevel,
		&item.Notes,
		&item.Version,
		&item.CreatedTs,
		&item.UpdatedTs,
	); err != nil {
		return nil, err
	}
	if suspendedFrom.Valid && suspendedFrom.String != "" {
		status := srs.Status(suspendedFrom.String)
		item.SuspendedFrom = &status
	}
	item.NextReviewTs = nullInt64Ptr(nextReviewTs)
	item.LastReviewedTs = nullInt64Ptr(lastReviewedTs)
	item.FirstStudiedTs = nullInt64Ptr(firstStudiedTs)
	item.MasteredTs = nullInt64Ptr(masteredTs)
	return item, nil
}

func (d *DB) CreateStudyItem(ctx context.Context, create *store.StudyItem) (*store.StudyItem, error) {
	fields := []string{
		"uid", "plan_id", "article_id", "status", "current_interval", "ease_factor",
		"next_review_ts", "importance_level", "difficulty_level", "notes",
	}
	args := []any{
		create.UID, create.PlanID, create.ArticleID, create.Status, create.CurrentInterval, create.EaseFactor,
		int64PtrArg(create.NextReviewTs), create.ImportanceLevel, create.DifficultyLevel, create.Notes,
	}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields, args = append(fields, "updated_ts"), append(args, create.UpdatedTs)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT INTO study_item (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING ` + columns("", studyItemFields)
	item, err := scanStudyItem(tx.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create study item: %w", err)
	}
	if err := applyPlanCounters(ctx, tx, item.PlanID, store.PlanCounterDelta{TotalItems: 1}, item.UpdatedTs); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit study item: %w", err)
	}
	return item, nil
}

func studyItemWhere(find *store.FindStudyItem) ([]string, []any) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "study_item.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "study_item.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.PlanID; v != nil {
		where, args = append(where, "study_item.plan_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ArticleID; v != nil {
		where, args = append(where, "study_item.article_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "study_plan.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.StatusList) > 0 {
		var in string
		in, args = inList(args, find.StatusList)
		where = append(where, "study_item.status IN "+in)
	}
	return where, args
}

func (d *DB) ListStudyItems(ctx context.Context, find *store.FindStudyItem) ([]*store.StudyItem, error) {
	where, args := studyItemWhere(find)
	query := `SELECT ` + columns("study_item", studyItemFields) + `
		FROM study_item
		JOIN study_plan ON study_plan.id = study_item.plan_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY study_item.created_ts DESC, study_item.id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}
	return d.queryStudyItems(ctx, query, args)
}

func (d *DB) CountStudyItems(ctx context.Context, find *store.FindStudyItem) (int, error) {
	where, args := studyItemWhere(find)
	query := `SELECT COUNT(*) FROM study_item
		JOIN study_plan ON study_plan.id = study_item.plan_id
		WHERE ` + strings.Join(where, " AND ")
	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count study items: %w", err)
	}
	return count, nil
}

func dueStudyItemWhere(find *store.FindDueStudyItem) ([]string, []any) {
	where, args := []string{
		"study_plan.is_active = " + placeholder(1),
		"study_plan.creator_id = " + placeholder(2),
		"study_item.status NOT IN ('mastered', 'suspended')",
	}, []any{true, find.CreatorID}
	if find.IncludeNew {
		where, args = append(where, "(study_item.next_review_ts <= "+placeholder(len(args)+1)+" OR study_item.status = 'new')"), append(args, find.Now)
	} else {
		where, args = append(where, "study_item.next_review_ts <= "+placeholder(len(args)+1)), append(args, find.Now)
	}
	if v := find.PlanID; v != nil {
		where, args = append(where, "study_item.plan_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	return where, args
}

func (d *DB) ListDueStudyItems(ctx context.Context, find *store.FindDueStudyItem) ([]*store.StudyItem, error) {
	where, args := dueStudyItemWhere(find)
	query := `SELECT ` + columns("study_item", studyItemFields) + `
		FROM study_item
		JOIN study_plan ON study_plan.id = study_item.plan_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY (study_item.next_review_ts IS NULL) DESC, study_item.next_review_ts ASC,
			study_item.importance_level DESC, study_item.difficulty_level DESC, study_item.id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}
	return d.queryStudyItems(ctx, query, args)
}

func (d *DB) CountDueStudyItems(ctx context.Context, find *store.FindDueStudyItem) (int, error) {
	where, args := dueStudyItemWhere(find)
	query := `SELECT COUNT(*) FROM study_item
		JOIN study_plan ON study_plan.id = study_item.plan_id
		WHERE ` + strings.Join(where, " AND ")
	var count int
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count due study items: %w", err)
	}
	return count, nil
}

func (d *DB) queryStudyItems(ctx context.Context, query string, args []any) ([]*store.StudyItem, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query study items: %w", err)
	}
	defer rows.Close()

	list := []*store.StudyItem{}
	for rows.Next() {
		item, err := scanStudyItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan study item: %w", err)
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate study items: %w", err)
	}
	return list, nil
}

// updateStudyItem applies update when the stored version still matches.
func updateStudyItem(ctx context.Context, q querier, update *store.UpdateStudyItem) (*store.StudyItem, error) {
	set, args := []string{"version = version + 1"}, []any{}
	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.ClearSuspendedFrom {
		set = append(set, "suspended_from = NULL")
	} else if v := update.SuspendedFrom; v != nil {
		set, args = append(set, "suspended_from = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.CurrentInterval; v != nil {
		set, args = append(set, "current_interval = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.EaseFactor; v != nil {
		set, args = append(set, "ease_factor = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ConsecutiveCorrect; v != nil {
		set, args = append(set, "consecutive_correct = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ConsecutiveFailed; v != nil {
		set, args = append(set, "consecutive_failed = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.ClearNextReview {
		set = append(set, "next_review_ts = NULL")
	} else if v := update.NextReviewTs; v != nil {
		set, args = append(set, "next_review_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastReviewedTs; v != nil {
		set, args = append(set, "last_reviewed_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.FirstStudiedTs; v != nil {
		set, args = append(set, "first_studied_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if update.ClearMasteredTs {
		set = append(set, "mastered_ts = NULL")
	} else if v := update.MasteredTs; v != nil {
		set, args = append(set, "mastered_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.TotalReviews; v != nil {
		set, args = append(set, "total_reviews = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.AverageRating; v != nil {
		set, args = append(set, "average_rating = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ImportanceLevel; v != nil {
		set, args = append(set, "importance_level = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.DifficultyLevel; v != nil {
		set, args = append(set, "difficulty_level = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Notes; v != nil {
		set, args = append(set, "notes = "+placeholder(len(args)+1)), append(args, *v)
	}

	args = append(args, update.ID, update.ExpectedVersion)
	stmt := `UPDATE study_item SET ` + strings.Join(set, ", ") + `
		WHERE id = ` + placeholder(len(args)-1) + ` AND version = ` + placeholder(len(args)) + `
		RETURNING ` + columns("", studyItemFields)
	item, err := scanStudyItem(q.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrConflict
		}
		return nil, fmt.Errorf("failed to update study item: %w", err)
	}
	return item, nil
}

func (d *DB) DeleteStudyItem(ctx context.Context, delete *store.DeleteStudyItem) (*store.StudyItem, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := scanStudyItem(tx.QueryRowContext(ctx, `DELETE FROM study_item WHERE id = `+placeholder(1)+` RETURNING `+columns("", studyItemFields), delete.ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete study item: %w", err)
	}

	delta := store.PlanCounterDelta{TotalItems: -1}
	if item.TotalReviews > 0 {
		delta.CompletedItems = -1
	}
	if item.Status == srs.StatusMastered {
		delta.MasteredItems = -1
	}
	if err := applyPlanCounters(ctx, tx, item.PlanID, delta, time.Now().Unix()); err != nil && err != store.ErrNotFound {
		return nil, err
	}
	if err := cancelActiveReminders(ctx, tx, item.ID, time.Now().Unix()); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit study item deletion: %w", err)
	}
	return item, nil
}
