package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/server/auth"
	"github.com/hrygo/studyhub/server/internal/observability"
)

// RateLimit limits requests per authenticated user, or per client IP before
// authentication. Rejected requests go to onLimited.
func RateLimit(rl *RateLimiter, onLimited func(c echo.Context) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if userID, ok := auth.UserIDFromContext(c.Request().Context()); ok {
				key = fmt.Sprintf("user:%d", userID)
			}
			if !rl.Allow(key) {
				return onLimited(c)
			}
			return next(c)
		}
	}
}

// RequestLogger attaches an observability.RequestContext to every request,
// echoes the request id header, and logs and records each response.
func RequestLogger(logger *slog.Logger, metrics *observability.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			reqCtx := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), c.Path())
			c.Response().Header().Set(echo.HeaderXRequestID, reqCtx.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), reqCtx)))

			err := next(c)
			if err != nil {
				// Let echo write the response so the status below is final.
				c.Error(err)
			}

			if userID, ok := auth.UserIDFromContext(c.Request().Context()); ok {
				reqCtx.UserID = userID
			}
			status := c.Response().Status
			duration := reqCtx.Duration()
			metrics.Record(c.Path(), duration, status >= http.StatusInternalServerError)

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, duration.Milliseconds()),
			}
			switch {
			case status >= http.StatusInternalServerError:
				reqCtx.Warn("request failed", attrs...)
			case duration > time.Second:
				reqCtx.Warn("slow request", attrs...)
			default:
				reqCtx.Info("request", attrs...)
			}
			return nil
		}
	}
}
