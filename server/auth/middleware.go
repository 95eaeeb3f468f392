package auth

import (
	"github.com/labstack/echo/v4"
)

// Middleware rejects requests without a valid bearer token using onError,
// and stores the user id in the request context otherwise.
func Middleware(authenticator *Authenticator, onError func(c echo.Context, err error) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, err := authenticator.Authenticate(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return onError(c, err)
			}
			req := c.Request()
			c.SetRequest(req.WithContext(SetUserID(req.Context(), userID)))
			return next(c)
		}
	}
}
