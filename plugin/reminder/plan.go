package reminder

import (
	"slices"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/studyhub/store"
)

const (
	MethodApp   = "app"
	MethodEmail = "email"
	MethodPush  = "push"

	PatternDaily  = "daily"
	PatternWeekly = "weekly"
)

// Methods lists the delivery methods a plan may choose.
var Methods = []string{MethodApp, MethodEmail, MethodPush}

// Patterns lists the recurrence patterns. The empty pattern means one-shot.
var Patterns = []string{PatternDaily, PatternWeekly}

// ValidMethod reports whether method is a known delivery method.
func ValidMethod(method string) bool {
	return slices.Contains(Methods, method)
}

// ValidPattern reports whether pattern is empty or a known recurrence pattern.
func ValidPattern(pattern string) bool {
	return pattern == "" || slices.Contains(Patterns, pattern)
}

// OptionsFor returns the reminder options configured on a plan.
func OptionsFor(plan *store.StudyPlan) PlanOptions {
	return PlanOptions{Method: plan.ReminderMethod, RecurrencePattern: plan.ReminderPattern}
}

// PlanOptions tunes the reminder built by Plan.
type PlanOptions struct {
	Method            string
	RecurrencePattern string
}

// Plan builds the pending reminder for an item's next review. Priority
// follows the item's importance.
func Plan(item *store.StudyItem, plan *store.StudyPlan, nextReview time.Time, opts PlanOptions) *store.StudyReminder {
	method := opts.Method
	if method == "" {
		method = MethodApp
	}
	priority := item.ImportanceLevel
	if priority < 1 {
		priority = 1
	}
	if priority > 5 {
		priority = 5
	}
	return &store.StudyReminder{
		UID:               shortuuid.New(),
		ItemID:            item.ID,
		PlanID:            plan.ID,
		CreatorID:         plan.CreatorID,
		ReminderTs:        nextReview.Unix(),
		Status:            store.ReminderPending,
		Priority:          priority,
		Method:            method,
		IsRecurring:       opts.RecurrencePattern != "",
		RecurrencePattern: opts.RecurrencePattern,
	}
}

// nextOccurrence advances ts by the recurrence pattern until it is after now.
// ok is false for unknown patterns.
func nextOccurrence(ts time.Time, pattern string, now time.Time) (next time.Time, ok bool) {
	var days int
	switch pattern {
	case PatternDaily:
		days = 1
	case PatternWeekly:
		days = 7
	default:
		return time.Time{}, false
	}
	next = ts.AddDate(0, 0, days)
	for !next.After(now) {
		next = next.AddDate(0, 0, days)
	}
	return next, true
}
