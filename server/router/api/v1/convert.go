package v1

import (
	"time"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
)

type StudyItem struct {
	ID                 int32       `json:"id"`
	UID                string      `json:"uid"`
	PlanID             int32       `json:"plan_id"`
	ArticleID          int32       `json:"article_id"`
	Status             srs.Status  `json:"status"`
	SuspendedFrom      *srs.Status `json:"suspended_from,omitempty"`
	CurrentInterval    int         `json:"current_interval"`
	EaseFactor         float64     `json:"ease_factor"`
	ConsecutiveCorrect int         `json:"consecutive_correct"`
	ConsecutiveFailed  int         `json:"consecutive_failed"`
	NextReviewTime     *time.Time  `json:"next_review_time"`
	LastReviewedTime   *time.Time  `json:"last_reviewed_time"`
	FirstStudiedTime   *time.Time  `json:"first_studied_time"`
	MasteredTime       *time.Time  `json:"mastered_time"`
	TotalReviews       int         `json:"total_reviews"`
	AverageRating      float64     `json:"average_rating"`
	ImportanceLevel    int         `json:"importance_level"`
	DifficultyLevel    int         `json:"difficulty_level"`
	Notes              string      `json:"notes"`
	// NotesHTML is only filled for single item reads.
	NotesHTML   string    `json:"notes_html,omitempty"`
	Version     int64     `json:"version"`
	CreatedTime time.Time `json:"created_time"`
	UpdatedTime time.Time `json:"updated_time"`
}

type StudyLog struct {
	ID               int32      `json:"id"`
	ItemID           int32      `json:"item_id"`
	PlanID           int32      `json:"plan_id"`
	Rating           int        `json:"rating"`
	StudyTime        int        `json:"study_time"`
	Understanding    int        `json:"understanding"`
	Retention        int        `json:"retention"`
	Application      int        `json:"application"`
	Confidence       int        `json:"confidence"`
	PreviousInterval int        `json:"previous_interval"`
	NewInterval      int        `json:"new_interval"`
	PreviousEase     float64    `json:"previous_ease"`
	NewEase          float64    `json:"new_ease"`
	PreviousStatus   srs.Status `json:"previous_status"`
	NewStatus        srs.Status `json:"new_status"`
	Device           string     `json:"device,omitempty"`
	Location         string     `json:"location,omitempty"`
	TimeOfDay        string     `json:"time_of_day,omitempty"`
	CreatedTime      time.Time  `json:"created_time"`
}

type StudyReminder struct {
	ID                int32                `json:"id"`
	UID               string               `json:"uid"`
	ItemID            int32                `json:"item_id"`
	PlanID            int32                `json:"plan_id"`
	ReminderTime      time.Time            `json:"reminder_time"`
	Status            store.ReminderStatus `json:"status"`
	Priority          int                  `json:"priority"`
	Method            string               `json:"method"`
	IsRecurring       bool                 `json:"is_recurring"`
	RecurrencePattern string               `json:"recurrence_pattern,omitempty"`
	SnoozeUntil       *time.Time           `json:"snooze_until,omitempty"`
	AttemptCount      int                  `json:"attempt_count"`
	SentTime          *time.Time           `json:"sent_time,omitempty"`
	CompletedTime     *time.Time           `json:"completed_time,omitempty"`
}

type StudyAnalytics struct {
	PeriodType          store.PeriodType `json:"period_type"`
	PeriodDate          string           `json:"period_date"`
	ItemsReviewed       int              `json:"items_reviewed"`
	NewItems            int              `json:"new_items"`
	ReviewedItems       int              `json:"reviewed_items"`
	MasteredItems       int              `json:"mastered_items"`
	FailedItems         int              `json:"failed_items"`
	StudyTime           int              `json:"study_time"`
	SessionCount        int              `json:"session_count"`
	AverageRating       float64          `json:"average_rating"`
	CompletionRate      float64          `json:"completion_rate"`
	RetentionRate       float64          `json:"retention_rate"`
	EfficiencyScore     float64          `json:"efficiency_score"`
	ProgressVelocity    float64          `json:"progress_velocity"`
	ConsistencyScore    float64          `json:"consistency_score"`
	DailyGoalProgress   float64          `json:"daily_goal_progress"`
	WeeklyGoalProgress  float64          `json:"weekly_goal_progress"`
	MonthlyGoalProgress float64          `json:"monthly_goal_progress"`
}

func unixTime(ts int64) time.Time {
	return time.Unix(ts, 0).UTC()
}

func unixTimePtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := unixTime(*ts)
	return &t
}

func convertStudyItem(item *store.StudyItem) *StudyItem {
	return &StudyItem{
		ID:                 item.ID,
		UID:                item.UID,
		PlanID:             item.PlanID,
		ArticleID:          item.ArticleID,
		Status:             item.Status,
		SuspendedFrom:      item.SuspendedFrom,
		CurrentInterval:    item.CurrentInterval,
		EaseFactor:         item.EaseFactor,
		ConsecutiveCorrect: item.ConsecutiveCorrect,
		ConsecutiveFailed:  item.ConsecutiveFailed,
		NextReviewTime:     unixTimePtr(item.NextReviewTs),
		LastReviewedTime:   unixTimePtr(item.LastReviewedTs),
		FirstStudiedTime:   unixTimePtr(item.FirstStudiedTs),
		MasteredTime:       unixTimePtr(item.MasteredTs),
		TotalReviews:       item.TotalReviews,
		AverageRating:      item.AverageRating,
		ImportanceLevel:    item.ImportanceLevel,
		DifficultyLevel:    item.DifficultyLevel,
		Notes:              item.Notes,
		Version:            item.Version,
		CreatedTime:        unixTime(item.CreatedTs),
		UpdatedTime:        unixTime(item.UpdatedTs),
	}
}

func convertStudyItems(items []*store.StudyItem) []*StudyItem {
	list := make([]*StudyItem, 0, len(items))
	for _, item := range items {
		list = append(list, convertStudyItem(item))
	}
	return list
}

func convertStudyLog(log *store.StudyLog) *StudyLog {
	return &StudyLog{
		ID:               log.ID,
		ItemID:           log.ItemID,
		PlanID:           log.PlanID,
		Rating:           log.Rating,
		StudyTime:        log.StudyTime,
		Understanding:    log.Understanding,
		Retention:        log.Retention,
		Application:      log.Application,
		Confidence:       log.Confidence,
		PreviousInterval: log.PreviousInterval,
		NewInterval:      log.NewInterval,
		PreviousEase:     log.PreviousEase,
		NewEase:          log.NewEase,
		PreviousStatus:   log.PreviousStatus,
		NewStatus:        log.NewStatus,
		Device:           log.Device,
		Location:         log.Location,
		TimeOfDay:        log.TimeOfDay,
		CreatedTime:      unixTime(log.CreatedTs),
	}
}

func convertStudyReminder(r *store.StudyReminder) *StudyReminder {
	return &StudyReminder{
		ID:                r.ID,
		UID:               r.UID,
		ItemID:            r.ItemID,
		PlanID:            r.PlanID,
		ReminderTime:      unixTime(r.ReminderTs),
		Status:            r.Status,
		Priority:          r.Priority,
		Method:            r.Method,
		IsRecurring:       r.IsRecurring,
		RecurrencePattern: r.RecurrencePattern,
		SnoozeUntil:       unixTimePtr(r.SnoozeUntilTs),
		AttemptCount:      r.AttemptCount,
		SentTime:          unixTimePtr(r.SentTs),
		CompletedTime:     unixTimePtr(r.CompletedTs),
	}
}

func convertStudyAnalytics(row *store.StudyAnalytics) *StudyAnalytics {
	return &StudyAnalytics{
		PeriodType:          row.PeriodType,
		PeriodDate:          row.PeriodDate,
		ItemsReviewed:       row.ItemsReviewed,
		NewItems:            row.NewItems,
		ReviewedItems:       row.ReviewedItems,
		MasteredItems:       row.MasteredItems,
		FailedItems:         row.FailedItems,
		StudyTime:           row.StudyTime,
		SessionCount:        row.SessionCount,
		AverageRating:       row.AverageRating,
		CompletionRate:      row.CompletionRate,
		RetentionRate:       row.RetentionRate,
		EfficiencyScore:     row.EfficiencyScore,
		ProgressVelocity:    row.ProgressVelocity,
		ConsistencyScore:    row.ConsistencyScore,
		DailyGoalProgress:   row.DailyGoalProgress,
		WeeklyGoalProgress:  row.WeeklyGoalProgress,
		MonthlyGoalProgress: row.MonthlyGoalProgress,
	}
}
