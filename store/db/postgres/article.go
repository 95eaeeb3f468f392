package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/studyhub/store"
)

func (d *DB) CreateArticle(ctx context.Context, create *store.Article) (*store.Article, error) {
	fields := []string{"uid", "creator_id", "title", "slug"}
	args := []any{create.UID, create.CreatorID, create.Title, create.Slug}
	if create.CreatedTs != 0 {
		fields, args = append(fields, "created_ts"), append(args, create.CreatedTs)
	}

	stmt := `INSERT INTO article (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id, created_ts`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID, &create.CreatedTs); err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create article: %w", err)
	}
	return create, nil
}

func (d *DB) ListArticles(ctx context.Context, find *store.FindArticle) ([]*store.Article, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.ID; v != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(find.IDList) > 0 {
		var in string
		in, args = inList(args, find.IDList)
		where = append(where, "id IN "+in)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, creator_id, title, slug, created_ts FROM article
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY id ASC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	list := []*store.Article{}
	for rows.Next() {
		article := &store.Article{}
		if err := rows.Scan(&article.ID, &article.UID, &article.CreatorID, &article.Title, &article.Slug, &article.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		list = append(list, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}
	return list, nil
}
