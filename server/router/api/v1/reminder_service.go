package v1

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
)

type ListRemindersResponse struct {
	Reminders []*StudyReminder `json:"reminders"`
}

type SnoozeReminderRequest struct {
	// Until is an absolute time. Minutes is used when Until is empty.
	Until   *time.Time `json:"until"`
	Minutes int        `json:"minutes"`
}

type reminderAction func(ctx context.Context, userID, id int32) (*store.StudyReminder, error)

// ListReminders returns the caller's reminders. status takes a comma
// separated list.
// GET /api/v1/study/reminders
func (s *APIV1Service) ListReminders(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	var statuses []store.ReminderStatus
	if raw := c.QueryParam("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			status := store.ReminderStatus(strings.TrimSpace(part))
			switch status {
			case store.ReminderPending, store.ReminderSent, store.ReminderCompleted, store.ReminderSkipped, store.ReminderCancelled:
				statuses = append(statuses, status)
			default:
				return apperrors.InvalidInput("status", "unknown reminder status")
			}
		}
	}
	reminders, err := s.ReminderService.ListForUser(c.Request().Context(), userID, statuses, limit, offset)
	if err != nil {
		return err
	}
	response := ListRemindersResponse{Reminders: make([]*StudyReminder, 0, len(reminders))}
	for _, r := range reminders {
		response.Reminders = append(response.Reminders, convertStudyReminder(r))
	}
	return c.JSON(http.StatusOK, response)
}

// POST /api/v1/study/reminders/:id/complete
func (s *APIV1Service) CompleteReminder(c echo.Context) error {
	return s.resolveReminder(c, s.ReminderService.Complete)
}

// POST /api/v1/study/reminders/:id/skip
func (s *APIV1Service) SkipReminder(c echo.Context) error {
	return s.resolveReminder(c, s.ReminderService.Skip)
}

// POST /api/v1/study/reminders/:id/cancel
func (s *APIV1Service) CancelReminder(c echo.Context) error {
	return s.resolveReminder(c, s.ReminderService.Cancel)
}

// SnoozeReminder moves a sent reminder back to pending until a later time.
// POST /api/v1/study/reminders/:id/snooze
func (s *APIV1Service) SnoozeReminder(c echo.Context) error {
	request := &SnoozeReminderRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	var until time.Time
	switch {
	case request.Until != nil:
		until = *request.Until
	case request.Minutes > 0:
		until = s.now().Add(time.Duration(request.Minutes) * time.Minute)
	default:
		return apperrors.InvalidInput("until", "until or minutes is required")
	}
	return s.resolveReminder(c, func(ctx context.Context, userID, id int32) (*store.StudyReminder, error) {
		return s.ReminderService.Snooze(ctx, userID, id, until)
	})
}

func (s *APIV1Service) resolveReminder(c echo.Context, action reminderAction) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	reminder, err := action(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, convertStudyReminder(reminder))
}
