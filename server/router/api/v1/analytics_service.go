package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/plugin/analytics"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/server/service/study"
	"github.com/hrygo/studyhub/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AnalyticsResponse struct {
	Plan       *store.StudyPlan  `json:"plan"`
	Analytics  []*StudyAnalytics `json:"analytics"`
	TotalStats *study.TotalStats `json:"total_stats"`
}

type RebuildAnalyticsResponse struct {
	Message string `json:"message"`
	PlanID  int32  `json:"plan_id"`
	Date    string `json:"date"`
}

// GetAnalytics returns the plan's rollups of one period type.
// GET /api/v1/study/plans/:id/analytics
func (s *APIV1Service) GetAnalytics(c echo.Context) error {
	report, err := s.analyticsReport(c)
	if err != nil {
		return err
	}
	response := AnalyticsResponse{
		Plan:       report.Plan,
		Analytics:  make([]*StudyAnalytics, 0, len(report.Rows)),
		TotalStats: report.TotalStats,
	}
	for _, row := range report.Rows {
		response.Analytics = append(response.Analytics, convertStudyAnalytics(row))
	}
	return c.JSON(http.StatusOK, response)
}

// ExportAnalytics downloads the same rows as an xlsx workbook.
// GET /api/v1/study/plans/:id/analytics/export
func (s *APIV1Service) ExportAnalytics(c echo.Context) error {
	report, err := s.analyticsReport(c)
	if err != nil {
		return err
	}
	periodType := c.QueryParam("period")
	if periodType == "" {
		periodType = string(store.PeriodDaily)
	}
	filename := fmt.Sprintf("plan-%d-%s-analytics.xlsx", report.Plan.ID, periodType)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().Header().Set(echo.HeaderContentType, xlsxContentType)
	c.Response().WriteHeader(http.StatusOK)
	return analytics.WriteXLSX(c.Response(), report.Rows)
}

// RebuildAnalytics recomputes the plan's daily, weekly and monthly rows
// containing date (default today) in the background.
// POST /api/v1/study/plans/:id/analytics/rebuild
func (s *APIV1Service) RebuildAnalytics(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if s.Rebuilder == nil {
		return apperrors.PreconditionFailed("analytics are disabled", nil)
	}
	plan, err := s.StudyService.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}

	loc := s.Profile.Location()
	date := s.now().In(loc)
	if raw := c.QueryParam("date"); raw != "" {
		date, err = time.ParseInLocation(analytics.PeriodDateLayout, raw, loc)
		if err != nil {
			return apperrors.InvalidInput("date", "must be formatted YYYY-MM-DD")
		}
	}

	s.rebuilds.Add(1)
	go func() {
		defer s.rebuilds.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.rebuildTimeout)
		defer cancel()
		if err := s.Rebuilder.RebuildPlan(ctx, plan.ID, date); err != nil {
			s.logger.Warn("analytics rebuild failed", slog.Int("plan_id", int(plan.ID)), slog.Any("error", err))
			return
		}
		s.logger.Info("analytics rebuilt", slog.Int("plan_id", int(plan.ID)), slog.String("date", date.Format(analytics.PeriodDateLayout)))
	}()

	return c.JSON(http.StatusAccepted, RebuildAnalyticsResponse{
		Message: "analytics rebuild started",
		PlanID:  plan.ID,
		Date:    date.Format(analytics.PeriodDateLayout),
	})
}

// WaitForRebuilds blocks until background rebuilds have finished.
func (s *APIV1Service) WaitForRebuilds() {
	s.rebuilds.Wait()
}

func (s *APIV1Service) analyticsReport(c echo.Context) (*study.AnalyticsReport, error) {
	userID, err := currentUserID(c)
	if err != nil {
		return nil, err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return nil, err
	}
	days, err := intQuery(c, "days", 0)
	if err != nil {
		return nil, err
	}
	return s.StudyService.ListAnalytics(c.Request().Context(), userID, planID, &study.ListAnalyticsRequest{
		PeriodType: store.PeriodType(c.QueryParam("period")),
		Days:       days,
	})
}
