package store

import (
	"context"
)

// Article is the minimal metadata of a published article that study plans
// reference. Content lives with the publishing platform.
type Article struct {
	ID        int32
	UID       string
	CreatorID int32
	Title     string
	Slug      string
	CreatedTs int64
}

type FindArticle struct {
	ID        *int32
	IDList    []int32
	UID       *string
	CreatorID *int32

	Limit *int
}

func (s *Store) CreateArticle(ctx context.Context, create *Article) (*Article, error) {
	return s.driver.CreateArticle(ctx, create)
}

func (s *Store) ListArticles(ctx context.Context, find *FindArticle) ([]*Article, error) {
	return s.driver.ListArticles(ctx, find)
}

// GetArticle returns nil when no article matches.
func (s *Store) GetArticle(ctx context.Context, find *FindArticle) (*Article, error) {
	list, err := s.driver.ListArticles(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
