package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/plugin/reminder"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/server/internal/observability"
	"github.com/hrygo/studyhub/store"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code    apperrors.ErrorCode `json:"code"`
	Message string              `json:"message"`
	Field   string              `json:"field,omitempty"`
}

// toStudyError maps any handler error onto the coded taxonomy.
func toStudyError(err error) *apperrors.StudyError {
	var studyErr *apperrors.StudyError
	if errors.As(err, &studyErr) {
		return studyErr
	}
	switch {
	case errors.Is(err, reminder.ErrNotFound):
		return apperrors.NotFound("reminder not found")
	case errors.Is(err, reminder.ErrInvalidTransition):
		return apperrors.PreconditionFailed(err.Error(), err)
	case errors.Is(err, reminder.ErrInvalidSnooze):
		return apperrors.InvalidInput("until", "snooze time must be in the future")
	case errors.Is(err, store.ErrConflict):
		return apperrors.Conflict("resource was modified concurrently", err)
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound("not found")
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		}
		switch httpErr.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			return apperrors.NotFound(msg)
		case http.StatusUnauthorized:
			return apperrors.Unauthorized(msg)
		case http.StatusTooManyRequests:
			return apperrors.RateLimitExceeded(msg)
		}
		if httpErr.Code < http.StatusInternalServerError {
			return apperrors.InvalidInput("", msg)
		}
	}
	return apperrors.Internal("internal error", err)
}

func (s *APIV1Service) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	studyErr := toStudyError(err)
	if studyErr.Code == apperrors.ErrCodeInternal {
		if reqCtx, ok := observability.FromContext(c.Request().Context()); ok {
			reqCtx.Error("request failed", err)
		} else {
			slog.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
	}
	if err := writeError(c, studyErr); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
	}
}

func writeError(c echo.Context, studyErr *apperrors.StudyError) error {
	message := studyErr.Message
	if message == "" {
		message = http.StatusText(studyErr.HTTPStatus())
	}
	return c.JSON(studyErr.HTTPStatus(), ErrorResponse{
		Code:    studyErr.Code,
		Message: message,
		Field:   studyErr.Field,
	})
}
