package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/studyhub/server/service/study"
	"github.com/hrygo/studyhub/store"
)

type CreatePlanRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	SpacingAlgorithm string `json:"spacing_algorithm"`
	DifficultyLevel  int    `json:"difficulty_level"`
	DailyGoal        int    `json:"daily_goal"`
	WeeklyGoal       int    `json:"weekly_goal"`
	MonthlyGoal      int    `json:"monthly_goal"`
	ReminderMethod   string `json:"reminder_method"`
	ReminderPattern  string `json:"reminder_pattern"`
}

type UpdatePlanRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	SpacingAlgorithm *string `json:"spacing_algorithm"`
	DifficultyLevel  *int    `json:"difficulty_level"`
	DailyGoal        *int    `json:"daily_goal"`
	WeeklyGoal       *int    `json:"weekly_goal"`
	MonthlyGoal      *int    `json:"monthly_goal"`
	IsActive         *bool   `json:"is_active"`
	ReminderMethod   *string `json:"reminder_method"`
	ReminderPattern  *string `json:"reminder_pattern"`
}

type ListPlansResponse struct {
	Plans []*store.StudyPlan `json:"plans"`
	Total int                `json:"total"`
}

type AddArticleRequest struct {
	ArticleID       int32  `json:"article_id"`
	ImportanceLevel int    `json:"importance_level"`
	DifficultyLevel int    `json:"difficulty_level"`
	Notes           string `json:"notes"`
}

type AddArticleResponse struct {
	StudyItem *StudyItem `json:"study_item"`
}

// ListPlans returns the caller's plans, newest first.
// GET /api/v1/study/plans
func (s *APIV1Service) ListPlans(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	limit, offset, err := pagination(c)
	if err != nil {
		return err
	}
	isActive, err := boolQuery(c, "is_active")
	if err != nil {
		return err
	}
	plans, total, err := s.StudyService.ListPlans(c.Request().Context(), userID, &study.ListPlansRequest{
		IsActive: isActive,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	if plans == nil {
		plans = []*store.StudyPlan{}
	}
	return c.JSON(http.StatusOK, ListPlansResponse{Plans: plans, Total: total})
}

// CreatePlan creates a plan owned by the caller.
// POST /api/v1/study/plans
func (s *APIV1Service) CreatePlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	request := &CreatePlanRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	plan, err := s.StudyService.CreatePlan(c.Request().Context(), userID, &study.CreatePlanRequest{
		Name:             request.Name,
		Description:      request.Description,
		SpacingAlgorithm: request.SpacingAlgorithm,
		DifficultyLevel:  request.DifficultyLevel,
		DailyGoal:        request.DailyGoal,
		WeeklyGoal:       request.WeeklyGoal,
		MonthlyGoal:      request.MonthlyGoal,
		ReminderMethod:   request.ReminderMethod,
		ReminderPattern:  request.ReminderPattern,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, plan)
}

// GET /api/v1/study/plans/:id
func (s *APIV1Service) GetPlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	plan, err := s.StudyService.GetPlan(c.Request().Context(), userID, planID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

// PATCH /api/v1/study/plans/:id
func (s *APIV1Service) UpdatePlan(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	request := &UpdatePlanRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	plan, err := s.StudyService.UpdatePlan(c.Request().Context(), userID, planID, &study.UpdatePlanRequest{
		Name:             request.Name,
		Description:      request.Description,
		SpacingAlgorithm: request.SpacingAlgorithm,
		DifficultyLevel:  request.DifficultyLevel,
		DailyGoal:        request.DailyGoal,
		WeeklyGoal:       request.WeeklyGoal,
		MonthlyGoal:      request.MonthlyGoal,
		IsActive:         request.IsActive,
		ReminderMethod:   request.ReminderMethod,
		ReminderPattern:  request.ReminderPattern,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

// AddArticle adds an article to the plan as a new study item.
// POST /api/v1/study/plans/:id/articles
func (s *APIV1Service) AddArticle(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	planID, err := pathID(c, "id")
	if err != nil {
		return err
	}
	request := &AddArticleRequest{}
	if err := bind(c, request); err != nil {
		return err
	}
	item, err := s.StudyService.AddArticle(c.Request().Context(), userID, planID, &study.AddArticleRequest{
		ArticleID:       request.ArticleID,
		ImportanceLevel: request.ImportanceLevel,
		DifficultyLevel: request.DifficultyLevel,
		Notes:           request.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, AddArticleResponse{StudyItem: convertStudyItem(item)})
}
