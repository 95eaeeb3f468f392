package v1

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/internal/profile"
	"github.com/hrygo/studyhub/plugin/reminder"
	"github.com/hrygo/studyhub/server/auth"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/server/internal/observability"
	"github.com/hrygo/studyhub/server/middleware"
	"github.com/hrygo/studyhub/server/service/study"
)

// PlanRebuilder rebuilds a plan's analytics rows for the periods containing date.
type PlanRebuilder interface {
	RebuildPlan(ctx context.Context, planID int32, date time.Time) error
}

// APIV1Service serves the JSON study API under /api/v1.
type APIV1Service struct {
	Profile         *profile.Profile
	StudyService    study.Service
	ReminderService *reminder.Service
	Rebuilder       PlanRebuilder
	Metrics         *observability.Metrics

	authenticator *auth.Authenticator
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
	now           func() time.Time
	// rebuildTimeout bounds background analytics rebuilds.
	rebuildTimeout time.Duration
	rebuilds       sync.WaitGroup
}

func NewAPIV1Service(profile *profile.Profile, studyService study.Service, reminderService *reminder.Service, rebuilder PlanRebuilder) *APIV1Service {
	return &APIV1Service{
		Profile:         profile,
		StudyService:    studyService,
		ReminderService: reminderService,
		Rebuilder:       rebuilder,
		Metrics:         observability.NewMetrics(1000),
		authenticator:   auth.NewAuthenticator(profile.Secret),
		rateLimiter:     middleware.NewRateLimiter(middleware.DefaultRate, middleware.DefaultBurst),
		logger:          slog.Default(),
		now:             time.Now,
		rebuildTimeout:  2 * time.Minute,
	}
}

// Authenticator returns the token authenticator used by the API.
func (s *APIV1Service) Authenticator() *auth.Authenticator {
	return s.authenticator
}

// RateLimiter returns the per-user rate limiter.
func (s *APIV1Service) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Register mounts the API routes on e.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.HTTPErrorHandler = s.httpErrorHandler
	e.Use(middleware.RequestLogger(s.logger, s.Metrics))

	e.GET("/healthz", s.Healthz)

	api := e.Group("/api/v1")
	api.Use(auth.Middleware(s.authenticator, func(c echo.Context, err error) error {
		return writeError(c, apperrors.Unauthorized(err.Error()))
	}))
	api.Use(middleware.RateLimit(s.rateLimiter, func(c echo.Context) error {
		return writeError(c, apperrors.RateLimitExceeded("too many requests"))
	}))

	api.GET("/system/metrics", s.GetMetricsOverview)

	studyGroup := api.Group("/study")
	studyGroup.GET("/plans", s.ListPlans)
	studyGroup.POST("/plans", s.CreatePlan)
	studyGroup.GET("/plans/:id", s.GetPlan)
	studyGroup.PATCH("/plans/:id", s.UpdatePlan)
	studyGroup.POST("/plans/:id/articles", s.AddArticle)
	studyGroup.GET("/plans/:id/items", s.ListItems)
	studyGroup.GET("/plans/:id/analytics", s.GetAnalytics)
	studyGroup.GET("/plans/:id/analytics/export", s.ExportAnalytics)
	studyGroup.POST("/plans/:id/analytics/rebuild", s.RebuildAnalytics)

	studyGroup.GET("/items/:id", s.GetItem)
	studyGroup.PATCH("/items/:id", s.UpdateItem)
	studyGroup.DELETE("/items/:id", s.RemoveItem)
	studyGroup.POST("/items/:id/study", s.RecordSession)
	studyGroup.POST("/items/:id/suspend", s.SuspendItem)
	studyGroup.POST("/items/:id/resume", s.ResumeItem)
	studyGroup.POST("/items/:id/reset", s.ResetItem)
	studyGroup.GET("/items/:id/logs", s.ListItemLogs)

	studyGroup.GET("/due", s.GetDueItems)
	studyGroup.GET("/due.atom", s.GetDueFeed)

	studyGroup.GET("/reminders", s.ListReminders)
	studyGroup.POST("/reminders/:id/complete", s.CompleteReminder)
	studyGroup.POST("/reminders/:id/snooze", s.SnoozeReminder)
	studyGroup.POST("/reminders/:id/skip", s.SkipReminder)
	studyGroup.POST("/reminders/:id/cancel", s.CancelReminder)
}

// Healthz reports liveness.
// GET /healthz
func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}
