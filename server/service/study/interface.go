package study

import (
	"context"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
)

// Service defines the study plan and item operations. Every call is scoped to
// userID: plans owned by someone else are reported as not found.
type Service interface {
	// CreatePlan validates and creates a plan owned by userID.
	CreatePlan(ctx context.Context, userID int32, create *CreatePlanRequest) (*store.StudyPlan, error)
	GetPlan(ctx context.Context, userID, planID int32) (*store.StudyPlan, error)
	// ListPlans returns one page of plans, newest first, and the total count.
	ListPlans(ctx context.Context, userID int32, find *ListPlansRequest) ([]*store.StudyPlan, int, error)
	UpdatePlan(ctx context.Context, userID, planID int32, update *UpdatePlanRequest) (*store.StudyPlan, error)
	// AddArticle adds an article to a plan as a new study item.
	AddArticle(ctx context.Context, userID, planID int32, add *AddArticleRequest) (*store.StudyItem, error)

	GetItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error)
	// ListItems returns one page of a plan's items. Filter is a CEL expression
	// evaluated against each item.
	ListItems(ctx context.Context, userID, planID int32, find *ListItemsRequest) ([]*store.StudyItem, int, error)
	UpdateItem(ctx context.Context, userID, itemID int32, update *UpdateItemRequest) (*store.StudyItem, error)
	// RemoveItem deletes the item, fixes the plan counters and cancels its reminders.
	RemoveItem(ctx context.Context, userID, itemID int32) error
	ListItemLogs(ctx context.Context, userID, itemID int32, limit, offset int) ([]*store.StudyLog, int, error)

	// RecordSession schedules the item from one study session and persists the
	// result, the session log, the plan counters and the next reminder.
	RecordSession(ctx context.Context, userID, itemID int32, input *SessionInput) (*SessionResult, error)
	SuspendItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error)
	// ResumeItem restores the status the item had before it was suspended.
	ResumeItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error)
	// ResetItem moves a mastered item back to learning, due tomorrow.
	ResetItem(ctx context.Context, userID, itemID int32) (*store.StudyItem, error)

	// GetDueItems returns the items to study now and the total due count.
	GetDueItems(ctx context.Context, userID int32, limit int, includeNew bool) ([]*store.StudyItem, int, error)
	// GetArticles returns the articles with the given ids keyed by id.
	GetArticles(ctx context.Context, ids []int32) (map[int32]*store.Article, error)

	// ListAnalytics returns the plan's rows of one period type over the last days.
	ListAnalytics(ctx context.Context, userID, planID int32, find *ListAnalyticsRequest) (*AnalyticsReport, error)
}

// Store is the interface for store operations needed by the study service.
type Store interface {
	CreateStudyPlan(ctx context.Context, create *store.StudyPlan) (*store.StudyPlan, error)
	GetStudyPlan(ctx context.Context, find *store.FindStudyPlan) (*store.StudyPlan, error)
	ListStudyPlans(ctx context.Context, find *store.FindStudyPlan) ([]*store.StudyPlan, error)
	CountStudyPlans(ctx context.Context, find *store.FindStudyPlan) (int, error)
	UpdateStudyPlan(ctx context.Context, update *store.UpdateStudyPlan) (*store.StudyPlan, error)

	CreateStudyItem(ctx context.Context, create *store.StudyItem) (*store.StudyItem, error)
	GetStudyItem(ctx context.Context, find *store.FindStudyItem) (*store.StudyItem, error)
	ListStudyItems(ctx context.Context, find *store.FindStudyItem) ([]*store.StudyItem, error)
	CountStudyItems(ctx context.Context, find *store.FindStudyItem) (int, error)
	ListDueStudyItems(ctx context.Context, find *store.FindDueStudyItem) ([]*store.StudyItem, error)
	CountDueStudyItems(ctx context.Context, find *store.FindDueStudyItem) (int, error)
	DeleteStudyItem(ctx context.Context, delete *store.DeleteStudyItem) (*store.StudyItem, error)
	CommitStudyItem(ctx context.Context, commit *store.StudyItemCommit) (*store.StudyItemCommitResult, error)

	ListStudyLogs(ctx context.Context, find *store.FindStudyLog) ([]*store.StudyLog, error)
	CountStudyLogs(ctx context.Context, find *store.FindStudyLog) (int, error)

	GetArticle(ctx context.Context, find *store.FindArticle) (*store.Article, error)
	ListArticles(ctx context.Context, find *store.FindArticle) ([]*store.Article, error)

	ListStudyAnalytics(ctx context.Context, find *store.FindStudyAnalytics) ([]*store.StudyAnalytics, error)
}

// CreatePlanRequest represents the request to create a study plan.
type CreatePlanRequest struct {
	Name        string
	Description string
	// SpacingAlgorithm defaults to ebbinghaus when empty.
	SpacingAlgorithm string
	// DifficultyLevel defaults to 3 when zero.
	DifficultyLevel int
	DailyGoal       int
	WeeklyGoal      int
	MonthlyGoal     int
	// ReminderMethod defaults to app when empty.
	ReminderMethod string
	// ReminderPattern is daily, weekly or empty for one-shot reminders.
	ReminderPattern string
}

// UpdatePlanRequest represents the request to update a study plan.
type UpdatePlanRequest struct {
	Name             *string
	Description      *string
	SpacingAlgorithm *string
	DifficultyLevel  *int
	DailyGoal        *int
	WeeklyGoal       *int
	MonthlyGoal      *int
	IsActive         *bool
	ReminderMethod   *string
	ReminderPattern  *string
}

type ListPlansRequest struct {
	IsActive *bool
	Limit    int
	Offset   int
}

// AddArticleRequest represents the request to add an article to a plan.
type AddArticleRequest struct {
	ArticleID int32
	// ImportanceLevel and DifficultyLevel default to 3 when zero.
	ImportanceLevel int
	DifficultyLevel int
	Notes           string
}

type UpdateItemRequest struct {
	ImportanceLevel *int
	DifficultyLevel *int
	Notes           *string
}

type ListItemsRequest struct {
	Status *srs.Status
	Filter string
	Limit  int
	Offset int
}

// SessionInput is one submitted study session. Sub-scores are optional and
// left at 0 when not given.
type SessionInput struct {
	Rating        int
	StudyTime     int
	Understanding int
	Retention     int
	Application   int
	Confidence    int

	Device    string
	Location  string
	TimeOfDay string
}

// SessionResult is the outcome of RecordSession.
type SessionResult struct {
	Item     *store.StudyItem
	Log      *store.StudyLog
	Schedule *srs.Result
	// Reminder is the newly scheduled reminder, nil when none was created.
	Reminder *store.StudyReminder
	// StatusUpdate describes the status change, e.g. "learning -> review".
	StatusUpdate string
}

type ListAnalyticsRequest struct {
	PeriodType store.PeriodType
	// Days bounds how far back rows are returned, default 30.
	Days int
}

// AnalyticsReport is a plan's analytics rows and their totals.
type AnalyticsReport struct {
	Plan       *store.StudyPlan
	Rows       []*store.StudyAnalytics
	TotalStats *TotalStats
}

// TotalStats aggregates analytics rows. AverageRating is weighted by sessions.
type TotalStats struct {
	ItemsReviewed int     `json:"items_reviewed"`
	StudyTime     int     `json:"study_time"`
	SessionCount  int     `json:"session_count"`
	MasteredItems int     `json:"mastered_items"`
	FailedItems   int     `json:"failed_items"`
	AverageRating float64 `json:"average_rating"`
}
