package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// SystemSetting model related methods.
	UpsertSystemSetting(ctx context.Context, upsert *SystemSetting) (*SystemSetting, error)
	ListSystemSettings(ctx context.Context, find *FindSystemSetting) ([]*SystemSetting, error)

	// Article model related methods.
	CreateArticle(ctx context.Context, create *Article) (*Article, error)
	ListArticles(ctx context.Context, find *FindArticle) ([]*Article, error)

	// StudyPlan model related methods.
	CreateStudyPlan(ctx context.Context, create *StudyPlan) (*StudyPlan, error)
	ListStudyPlans(ctx context.Context, find *FindStudyPlan) ([]*StudyPlan, error)
	CountStudyPlans(ctx context.Context, find *FindStudyPlan) (int, error)
	UpdateStudyPlan(ctx context.Context, update *UpdateStudyPlan) (*StudyPlan, error)
	ReconcileStudyPlanCounters(ctx context.Context, planID int32) (*StudyPlan, error)

	// StudyItem model related methods.
	CreateStudyItem(ctx context.Context, create *StudyItem) (*StudyItem, error)
	ListStudyItems(ctx context.Context, find *FindStudyItem) ([]*StudyItem, error)
	CountStudyItems(ctx context.Context, find *FindStudyItem) (int, error)
	ListDueStudyItems(ctx context.Context, find *FindDueStudyItem) ([]*StudyItem, error)
	CountDueStudyItems(ctx context.Context, find *FindDueStudyItem) (int, error)
	DeleteStudyItem(ctx context.Context, delete *DeleteStudyItem) (*StudyItem, error)

	// CommitStudyItem applies one item transition atomically.
	CommitStudyItem(ctx context.Context, commit *StudyItemCommit) (*StudyItemCommitResult, error)

	// StudyLog model related methods.
	ListStudyLogs(ctx context.Context, find *FindStudyLog) ([]*StudyLog, error)
	CountStudyLogs(ctx context.Context, find *FindStudyLog) (int, error)

	// StudyReminder model related methods.
	CreateStudyReminder(ctx context.Context, create *StudyReminder) (*StudyReminder, error)
	ListStudyReminders(ctx context.Context, find *FindStudyReminder) ([]*StudyReminder, error)
	UpdateStudyReminder(ctx context.Context, update *UpdateStudyReminder) (*StudyReminder, error)

	// StudyAnalytics model related methods.
	UpsertStudyAnalytics(ctx context.Context, upsert *StudyAnalytics) (*StudyAnalytics, error)
	ListStudyAnalytics(ctx context.Context, find *FindStudyAnalytics) ([]*StudyAnalytics, error)
}
