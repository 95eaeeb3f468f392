package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/plugin/markdown"
	"github.com/hrygo/studyhub/plugin/srs"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/server/service/study"
	"github.com/hrygo/studyhub/store"
)

type ListItemsResponse struct {
	Items []*StudyItem `json:"items"`
	Total int          `json:"total"`
}

type UpdateItemRequest struct {
	ImportanceLevel *int    `json:"importance_level"`
	DifficultyLevel *int    `json:"difficulty_level"`
	Notes           *string `json:"notes"`
}

type RecordSessionRequest struct {
	Rating        int    `json:"rating"`
	StudyTime     int    `json:"study_time"`
	Understanding int    `json:"understanding"`
	Retention     int    `json:"retention"`
	Application   int    `json:"application"`
	Confidence    int    `json:"confidence"`
	Device        string `json:"device"`
	Location      string `json:"location"`
	TimeOfDay     string `json:"time_of_day"`
}

type RecordSessionResponse struct {
	StudyLog            *StudyLog      `json:"study_log"`
	StudyItem           *StudyItem     `json:"study_item"`
	NextReviewTime      *time.Time     `json:"next_review_time"`
	NewInterval         int            `json:"new_interval"`
	ShouldMaster        bool           `json:"should_master"`
	AlgorithmConfidence float64        `json:"algorithm_confidence"`
	StatusUpdate        string         `json:"status_update"`
	Reminder            *StudyReminder `json:"reminder,omitempty"`
}

type ListItemLogsResponse struct {
	Logs  []*StudyLog `json:"logs"`
	Total int         `json:"total"`
}

type itemStatusChange func(ctx context.Context, userID, itemID int32) (*store.StudyItem, error)

type MessageResponse struct {
	Message string `json:"message"`
}

// ListItems returns one page of a plan's items, optionally narrowed by
// status and a filter expression.
// GET /api/v1/study/plans/:id/items
func (s *APIV1Service) ListItems(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	find := &study.ListItemsRequest{
		Filter: c.QueryParam("filter"),
		Limit:  limit,
		Offset: offset,
	}
	if raw := c.QueryParam("status"); raw != "" {
		status := srs.Status(raw)
		if !status.Valid() {
			return apperrors.InvalidInput("status", "unknown item status")
		}
		find.Status = &status
	}
	items, total, err := s.StudyService.ListItems(c.Request().Context(), userID, planID, find)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ListItemsResponse{Items: convertStudyItems(items), Total: total})
}

// GetItem returns the item with its notes rendered to HTML.
// GET /api/v1/study/items/:id
func (s *APIV1Service) GetItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := s.StudyService.GetItem(c.Request().Context(), userID, itemID)
	if err != nil {
		return err
	}
	response := convertStudyItem(item)
	if item.Notes != "" {
		html, err := markdown.RenderHTML(item.Notes)
		if err != nil {
			return apperrors.Internal("failed to render notes", err)
		}
		response.NotesHTML = html
	}
	return c.JSON(http.StatusOK, response)
}

// PATCH /api/v1/study/items/:id
func (s *APIV1Service) UpdateItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	request := &UpdateItemRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	item, err := s.StudyService.UpdateItem(c.Request().Context(), userID, itemID, &study.UpdateItemRequest{
		ImportanceLevel: request.ImportanceLevel,
		DifficultyLevel: request.DifficultyLevel,
		Notes:           request.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertStudyItem(item))
}

// DELETE /api/v1/study/items/:id
func (s *APIV1Service) RemoveItem(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := s.StudyService.RemoveItem(c.Request().Context(), userID, itemID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "item removed from plan"})
}

// RecordSession schedules the item from one study session.
// POST /api/v1/study/items/:id/study
func (s *APIV1Service) RecordSession(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	request := &RecordSessionRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	result, err := s.StudyService.RecordSession(c.Request().Context(), userID, itemID, &study.SessionInput{
		Rating:        request.Rating,
		StudyTime:     request.StudyTime,
		Understanding: request.Understanding,
		Retention:     request.Retention,
		Application:   request.Application,
		Confidence:    request.Confidence,
		Device:        request.Device,
		Location:      request.Location,
		TimeOfDay:     request.TimeOfDay,
	})
	if err != nil {
		return err
	}

	response := RecordSessionResponse{
		StudyLog:            convertStudyLog(result.Log),
		StudyItem:           convertStudyItem(result.Item),
		NewInterval:         result.Schedule.NewInterval,
		ShouldMaster:        result.Schedule.ShouldMaster,
		AlgorithmConfidence: result.Schedule.Confidence,
		StatusUpdate:        result.StatusUpdate,
	}
	if next := result.Schedule.NextReviewAt; next != nil {
		t := next.UTC()
		response.NextReviewTime = &t
	}
	if result.Reminder != nil {
		response.Reminder = convertStudyReminder(result.Reminder)
	}
	return c.JSON(http.StatusOK, response)
}

// POST /api/v1/study/items/:id/suspend
func (s *APIV1Service) SuspendItem(c echo.Context) error {
	return s.changeItemStatus(c, s.StudyService.SuspendItem)
}

// POST /api/v1/study/items/:id/resume
func (s *APIV1Service) ResumeItem(c echo.Context) error {
	return s.changeItemStatus(c, s.StudyService.ResumeItem)
}

// POST /api/v1/study/items/:id/reset
func (s *APIV1Service) ResetItem(c echo.Context) error {
	return s.changeItemStatus(c, s.StudyService.ResetItem)
}

func (s *APIV1Service) changeItemStatus(c echo.Context, change itemStatusChange) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	item, err := change(c.Request().Context(), userID, itemID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertStudyItem(item))
}

// GET /api/v1/study/items/:id/logs
func (s *APIV1Service) ListItemLogs(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	itemID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	logs, total, err := s.StudyService.ListItemLogs(c.Request().Context(), userID, itemID, limit, offset)
	if err != nil {
		return err
	}
	response := ListItemLogsResponse{Logs: make([]*StudyLog, 0, len(logs)), Total: total}
	for _, log := range logs {
		response.Logs = append(response.Logs, convertStudyLog(log))
	}
	return c.JSON(http.StatusOK, response)
}
