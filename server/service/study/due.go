package study

import (
	"context"
	"fmt"

	"github.com/hrygo/studyhub/store"
)

// GetDueItems is read-only. Items reviewed a moment ago may still show up
// until the next call.
func (s *service) GetDueItems(ctx context.Context, userID int32, limit int, includeNew bool) ([]*store.StudyItem, int, error) {
	limit = normalizeLimit(limit)
	find := &store.FindDueStudyItem{
		CreatorID:  userID,
		Now:        s.now().Unix(),
		IncludeNew: includeNew,
		Limit:      &limit,
	}
	items, err := s.store.ListDueStudyItems(ctx, find)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list due items: %w", err)
	}
	find.Limit = nil
	total, err := s.store.CountDueStudyItems(ctx, find)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count due items: %w", err)
	}
	return items, total, nil
}
