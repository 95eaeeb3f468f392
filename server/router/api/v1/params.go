package v1

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/server/auth"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

// currentUserID returns the authenticated user. Routes under /api/v1 always
// run behind auth.Middleware.
func currentUserID(c echo.Context) (int32, error) {
	userID, ok := auth.UserIDFromContext(c.Request().Context())
	if !ok {
		return 0, apperrors.Unauthorized("authentication required")
	}
	return userID, nil
}

func pathID(c echo.Context, name string) (int32, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput(name, "must be a positive integer")
	}
	return int32(id), nil
}

// pagination parses page and limit and returns limit and offset.
func pagination(c echo.Context) (int, int, error) {
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	if page < 1 {
		return 0, 0, apperrors.InvalidInput("page", "must be at least 1")
	}
	limit, err := intQuery(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit < 1 || limit > maxLimit {
		return 0, 0, apperrors.InvalidInput("limit", "must be between 1 and 100")
	}
	return limit, (page - 1) * limit, nil
}

func intQuery(c echo.Context, name string, fallback int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.InvalidInput(name, "must be an integer")
	}
	return v, nil
}

func boolQuery(c echo.Context, name string) (*bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.InvalidInput(name, "must be a boolean")
	}
	return &v, nil
}

// bind decodes the JSON body, reporting malformed input as INVALID_INPUT.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperrors.InvalidInput("body", "malformed request body")
	}
	return nil
}
