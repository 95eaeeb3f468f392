package v1

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/plugin/markdown"
	"github.com/hrygo/studyhub/store"
)

const (
	// feedItemLimit caps the due feed.
	feedItemLimit = 50
	// noteExcerptLength bounds the note text shown in feed entries.
	noteExcerptLength = 200
)

type DueItemsResponse struct {
	Items []*StudyItem `json:"items"`
	Total int          `json:"total"`
}

// GetDueItems returns what the caller should study now.
// GET /api/v1/study/due
func (s *APIV1Service) GetDueItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil {
		return err
	}
	includeNew, err := boolQuery(c, "include_new")
	if err != nil {
		return err
	}
	items, total, err := s.StudyService.GetDueItems(c.Request().Context(), userID, limit, includeNew == nil || *includeNew)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, DueItemsResponse{Items: convertStudyItems(items), Total: total})
}

// GetDueFeed renders the due queue as an Atom feed.
// GET /api/v1/study/due.atom
func (s *APIV1Service) GetDueFeed(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	items, _, err := s.StudyService.GetDueItems(ctx, userID, feedItemLimit, true)
	if err != nil {
		return err
	}
	ids := make([]int32, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ArticleID)
	}
	articles, err := s.StudyService.GetArticles(ctx, ids)
	if err != nil {
		return err
	}

	atom, err := s.dueFeed(items, articles).ToAtom()
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "application/atom+xml; charset=utf-8", []byte(atom))
}

func (s *APIV1Service) dueFeed(items []*store.StudyItem, articles map[int32]*store.Article) *feeds.Feed {
	baseURL := strings.TrimSuffix(s.Profile.InstanceURL, "/")
	now := s.now().UTC()
	feed := &feeds.Feed{
		Title:       "Due for review",
		Link:        &feeds.Link{Href: baseURL + "/study/due"},
		Description: "Articles due for review",
		Id:          baseURL + "/api/v1/study/due.atom",
		Updated:     now,
		Created:     now,
	}
	for _, item := range items {
		title := fmt.Sprintf("Article %d", item.ArticleID)
		link := fmt.Sprintf("%s/study/items/%d", baseURL, item.ID)
		if article, ok := articles[item.ArticleID]; ok {
			title = article.Title
			if article.Slug != "" {
				link = fmt.Sprintf("%s/articles/%s", baseURL, article.Slug)
			}
		}
		due := now
		if next := item.NextReviewTime(); next != nil {
			due = next.UTC()
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Title:       title,
			Link:        &feeds.Link{Href: link},
			Id:          "study-item-" + item.UID,
			Description: dueDescription(item),
			Created:     unixTime(item.CreatedTs),
			Updated:     due,
		})
	}
	return feed
}

func dueDescription(item *store.StudyItem) string {
	summary := fmt.Sprintf("%s, interval %d days, %d reviews", item.Status, item.CurrentInterval, item.TotalReviews)
	if item.Notes == "" {
		return summary
	}
	if excerpt := markdown.Excerpt(item.Notes, noteExcerptLength); excerpt != "" {
		return summary + ". " + excerpt
	}
	return summary
}
