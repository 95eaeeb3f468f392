// Package study implements study plans and the item state machine: adding
// articles to plans, recording study sessions through the spaced-repetition
// scheduler, suspending, resuming and resetting items, and the due queue.
//
// All writes to an item go through one store commit guarded by the item's
// version, so a concurrent writer gets a conflict instead of overwriting.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/studyhub/plugin/filter"
	"github.com/hrygo/studyhub/plugin/reminder"
	"github.com/hrygo/studyhub/plugin/srs"
	apperrors "github.com/hrygo/studyhub/server/internal/errors"
	"github.com/hrygo/studyhub/store"
)

type service struct {
	store  Store
	now    func() time.Time
	loc    *time.Location
	logger *slog.Logger
}

// Option configures the service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithLocation sets the zone used for time-of-day labels and analytics dates.
func WithLocation(loc *time.Location) Option {
	return func(s *service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new study service.
func NewService(store Store, opts ...Option) Service {
	s := &service{
		store:  store,
		now:    time.Now,
		loc:    time.UTC,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreatePlan(ctx context.Context, userID int32, create *CreatePlanRequest) (*store.StudyPlan, error) {
	name := strings.TrimSpace(create.Name)
	if err := validatePlanName(name); err != nil {
		return nil, err
	}
	algorithm, err := srs.ParseAlgorithm(create.SpacingAlgorithm)
	if err != nil {
		return nil, apperrors.InvalidInput("spacing_algorithm", err.Error())
	}
	difficulty := create.DifficultyLevel
	if difficulty == 0 {
		difficulty = DefaultLevel
	}
	if err := validateLevel("difficulty_level", difficulty); err != nil {
		return nil, err
	}
	if err := validateGoals(&create.DailyGoal, &create.WeeklyGoal, &create.MonthlyGoal); err != nil {
		return nil, err
	}
	method := create.ReminderMethod
	if method == "" {
		method = reminder.MethodApp
	}
	if err := validateReminderSettings(&method, &create.ReminderPattern); err != nil {
		return nil, err
	}

	plan, err := s.store.CreateStudyPlan(ctx, &store.StudyPlan{
		UID:              shortuuid.New(),
		CreatorID:        userID,
		Name:             name,
		Description:      create.Description,
		SpacingAlgorithm: algorithm,
		DifficultyLevel:  difficulty,
		DailyGoal:        create.DailyGoal,
		WeeklyGoal:       create.WeeklyGoal,
		MonthlyGoal:      create.MonthlyGoal,
		IsActive:         true,
		ReminderMethod:   method,
		ReminderPattern:  create.ReminderPattern,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create study plan: %w", err)
	}
	return plan, nil
}

func (s *service) GetPlan(ctx context.Context, userID, planID int32) (*store.StudyPlan, error) {
	return s.loadPlan(ctx, userID, planID)
}

func (s *service) ListPlans(ctx context.Context, userID int32, find *ListPlansRequest) ([]*store.StudyPlan, int, error) {
	limit, offset := normalizeLimit(find.Limit), normalizeOffset(find.Offset)
	storeFind := &store.FindStudyPlan{
		CreatorID: &userID,
		IsActive:  find.IsActive,
		Limit:     &limit,
		Offset:    &offset,
	}
	plans, err := s.store.ListStudyPlans(ctx, storeFind)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list study plans: %w", err)
	}
	storeFind.Limit, storeFind.Offset = nil, nil
	total, err := s.store.CountStudyPlans(ctx, storeFind)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count study plans: %w", err)
	}
	return plans, total, nil
}

func (s *service) UpdatePlan(ctx context.Context, userID, planID int32, update *UpdatePlanRequest) (*store.StudyPlan, error) {
	if _, err := s.loadPlan(ctx, userID, planID); err != nil {
		return nil, err
	}

	storeUpdate := &store.UpdateStudyPlan{ID: planID}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validatePlanName(name); err != nil {
			return nil, err
		}
		storeUpdate.Name = &name
	}
	storeUpdate.Description = update.Description
	if update.SpacingAlgorithm != nil {
		algorithm, err := srs.ParseAlgorithm(*update.SpacingAlgorithm)
		if err != nil {
			return nil, apperrors.InvalidInput("spacing_algorithm", err.Error())
		}
		storeUpdate.SpacingAlgorithm = &algorithm
	}
	if update.DifficultyLevel != nil {
		if err := validateLevel("difficulty_level", *update.DifficultyLevel); err != nil {
			return nil, err
		}
		storeUpdate.DifficultyLevel = update.DifficultyLevel
	}
	if err := validateGoals(update.DailyGoal, update.WeeklyGoal, update.MonthlyGoal); err != nil {
		return nil, err
	}
	storeUpdate.DailyGoal = update.DailyGoal
	storeUpdate.WeeklyGoal = update.WeeklyGoal
	storeUpdate.MonthlyGoal = update.MonthlyGoal
	storeUpdate.IsActive = update.IsActive
	if err := validateReminderSettings(update.ReminderMethod, update.ReminderPattern); err != nil {
		return nil, err
	}
	storeUpdate.ReminderMethod = update.ReminderMethod
	storeUpdate.ReminderPattern = update.ReminderPattern

	now := s.now().Unix()
	storeUpdate.UpdatedTs = &now
	plan, err := s.store.UpdateStudyPlan(ctx, storeUpdate)
	if err != nil {
		return nil, s.mapStoreError(err, "study plan")
	}
	return plan, nil
}

func (s *service) AddArticle(ctx context.Context, userID, planID int32, add *AddArticleRequest) (*store.StudyItem, error) {
	plan, err := s.loadPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if add.ArticleID <= 0 {
		return nil, apperrors.InvalidInput("article_id", "must be a positive id")
	}
	importance, difficulty := add.ImportanceLevel, add.DifficultyLevel
	if importance == 0 {
		importance = DefaultLevel
	}
	if difficulty == 0 {
		difficulty = DefaultLevel
	}
	if err := validateLevel("importance_level", importance); err != nil {
		return nil, err
	}
	if err := validateLevel("difficulty_level", difficulty); err != nil {
		return nil, err
	}
	if len(add.Notes) > MaxNotesLength {
		return nil, apperrors.InvalidInput("notes", "too long")
	}

	article, err := s.store.GetArticle(ctx, &store.FindArticle{ID: &add.ArticleID})
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, apperrors.NotFound("article not found").WithContext("article_id", add.ArticleID)
	}

	item, err := s.store.CreateStudyItem(ctx, &store.StudyItem{
		UID:             shortuuid.New(),
		PlanID:          plan.ID,
		ArticleID:       article.ID,
		Status:          srs.StatusNew,
		EaseFactor:      srs.DefaultEaseFactor,
		ImportanceLevel: importance,
		DifficultyLevel: difficulty,
		Notes:           add.Notes,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.Conflict("article is already in the plan", err)
		}
		return nil, fmt.Errorf("failed to create study item: %w", err)
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error) {
	item, _, err := s.loadItem(ctx, userID, itemID)
	return item, err
}

func (s *service) ListItems(ctx context.Context, userID, planID int32, find *ListItemsRequest) ([]*store.StudyItem, int, error) {
	if _, err := s.loadPlan(ctx, userID, planID); err != nil {
		return nil, 0, err
	}
	storeFind := &store.FindStudyItem{PlanID: &planID}
	if find.Status != nil {
		if !find.Status.Valid() {
			return nil, 0, apperrors.InvalidInput("status", "unknown status")
		}
		storeFind.StatusList = []srs.Status{*find.Status}
	}
	limit, offset := normalizeLimit(find.Limit), normalizeOffset(find.Offset)

	if strings.TrimSpace(find.Filter) == "" {
		storeFind.Limit, storeFind.Offset = &limit, &offset
		items, err := s.store.ListStudyItems(ctx, storeFind)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to list study items: %w", err)
		}
		storeFind.Limit, storeFind.Offset = nil, nil
		total, err := s.store.CountStudyItems(ctx, storeFind)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to count study items: %w", err)
		}
		return items, total, nil
	}

	f, err := filter.Compile(find.Filter)
	if err != nil {
		return nil, 0, apperrors.InvalidInput("filter", err.Error())
	}
	items, err := s.store.ListStudyItems(ctx, storeFind)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list study items: %w", err)
	}
	matched, err := f.Apply(items)
	if err != nil {
		return nil, 0, apperrors.InvalidInput("filter", err.Error())
	}
	total := len(matched)
	if offset >= total {
		return []*store.StudyItem{}, total, nil
	}
	return matched[offset:min(offset+limit, total)], total, nil
}

func (s *service) UpdateItem(ctx context.Context, userID, itemID int32, update *UpdateItemRequest) (*store.StudyItem, error) {
	item, plan, err := s.loadItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if update.ImportanceLevel != nil {
		if err := validateLevel("importance_level", *update.ImportanceLevel); err != nil {
			return nil, err
		}
	}
	if update.DifficultyLevel != nil {
		if err := validateLevel("difficulty_level", *update.DifficultyLevel); err != nil {
			return nil, err
		}
	}
	if update.Notes != nil && len(*update.Notes) > MaxNotesLength {
		return nil, apperrors.InvalidInput("notes", "too long")
	}

	now := s.now().Unix()
	result, err := s.store.CommitStudyItem(ctx, &store.StudyItemCommit{
		PlanID: plan.ID,
		Update: &store.UpdateStudyItem{
			ID:              item.ID,
			ExpectedVersion: item.Version,
			ImportanceLevel: update.ImportanceLevel,
			DifficultyLevel: update.DifficultyLevel,
			Notes:           update.Notes,
			UpdatedTs:       &now,
		},
	})
	if err != nil {
		return nil, s.mapStoreError(err, "study item")
	}
	return result.Item, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID int32) error {
	if _, _, err := s.loadItem(ctx, userID, itemID); err != nil {
		return err
	}
	if _, err := s.store.DeleteStudyItem(ctx, &store.DeleteStudyItem{ID: itemID}); err != nil {
		return s.mapStoreError(err, "study item")
	}
	return nil
}

func (s *service) ListItemLogs(ctx context.Context, userID, itemID int32, limit, offset int) ([]*store.StudyLog, int, error) {
	if _, _, err := s.loadItem(ctx, userID, itemID); err != nil {
		return nil, 0, err
	}
	limit, offset = normalizeLimit(limit), normalizeOffset(offset)
	find := &store.FindStudyLog{ItemID: &itemID, Limit: &limit, Offset: &offset}
	logs, err := s.store.ListStudyLogs(ctx, find)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list study logs: %w", err)
	}
	find.Limit, find.Offset = nil, nil
	total, err := s.store.CountStudyLogs(ctx, find)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count study logs: %w", err)
	}
	return logs, total, nil
}

func (s *service) GetArticles(ctx context.Context, ids []int32) (map[int32]*store.Article, error) {
	articles := make(map[int32]*store.Article, len(ids))
	if len(ids) == 0 {
		return articles, nil
	}
	list, err := s.store.ListArticles(ctx, &store.FindArticle{IDList: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	for _, article := range list {
		articles[article.ID] = article
	}
	return articles, nil
}

// loadPlan returns the plan when it exists and belongs to userID.
func (s *service) loadPlan(ctx context.Context, userID, planID int32) (*store.StudyPlan, error) {
	plan, err := s.store.GetStudyPlan(ctx, &store.FindStudyPlan{ID: &planID})
	if err != nil {
		return nil, fmt.Errorf("failed to get study plan: %w", err)
	}
	if plan == nil || plan.CreatorID != userID {
		return nil, apperrors.NotFound("study plan not found").WithContext("plan_id", planID)
	}
	return plan, nil
}

// loadItem returns the item and its plan when the plan belongs to userID.
func (s *service) loadItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, *store.StudyPlan, error) {
	item, err := s.store.GetStudyItem(ctx, &store.FindStudyItem{ID: &itemID})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get study item: %w", err)
	}
	if item == nil {
		return nil, nil, apperrors.NotFound("study item not found").WithContext("item_id", itemID)
	}
	plan, err := s.loadPlan(ctx, userID, item.PlanID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return nil, nil, apperrors.NotFound("study item not found").WithContext("item_id", itemID)
		}
		return nil, nil, err
	}
	return item, plan, nil
}

func (s *service) mapStoreError(err error, what string) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return apperrors.Conflict(what+" was modified concurrently, reload and retry", err)
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound(what + " not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return apperrors.Conflict(what+" already exists", err)
	default:
		return fmt.Errorf("failed to write %s: %w", what, err)
	}
}

func validatePlanName(name string) error {
	if name == "" {
		return apperrors.InvalidInput("name", "must not be empty")
	}
	if len(name) > MaxPlanNameLength {
		return apperrors.InvalidInput("name", fmt.Sprintf("must be at most %d bytes", MaxPlanNameLength))
	}
	return nil
}

func validateLevel(field string, level int) error {
	if level < 1 || level > 5 {
		return apperrors.InvalidInput(field, "must be between 1 and 5")
	}
	return nil
}

func validateReminderSettings(method, pattern *string) error {
	if method != nil && !reminder.ValidMethod(*method) {
		return apperrors.InvalidInput("reminder_method", "must be one of "+strings.Join(reminder.Methods, ", "))
	}
	if pattern != nil && !reminder.ValidPattern(*pattern) {
		return apperrors.InvalidInput("reminder_pattern", "must be empty or one of "+strings.Join(reminder.Patterns, ", "))
	}
	return nil
}

func validateGoals(daily, weekly, monthly *int) error {
	goals := []struct {
		field string
		goal  *int
	}{{"daily_goal", daily}, {"weekly_goal", weekly}, {"monthly_goal", monthly}}
	for _, g := range goals {
		if g.goal != nil && *g.goal < 0 {
			return apperrors.InvalidInput(g.field, "must not be negative")
		}
	}
	return nil
}
