package analytics

import (
	"math"

	"github.com/hrygo/studyhub/plugin/srs"
	"github.com/hrygo/studyhub/store"
)

// Compute rolls the window's logs up into an analytics row for plan.
// previousLogs are the logs of w.Previous() and only feed progress_velocity.
// Logs outside their window are ignored. The result does not depend on log order.
func Compute(plan *store.StudyPlan, w Window, logs, previousLogs []*store.StudyLog) *store.StudyAnalytics {
	row := &store.StudyAnalytics{
		PlanID:     plan.ID,
		PeriodType: w.PeriodType,
		PeriodDate: w.PeriodDate(),
	}

	days := w.Days()
	perDay := make([]int, days)
	reviewed := map[int32]bool{}
	newItems := map[int32]bool{}
	reviewedItems := map[int32]bool{}
	failedItems := map[int32]bool{}
	ratingSum := 0
	successes := 0

	inWindow := make([]*store.StudyLog, 0, len(logs))
	for _, log := range logs {
		day := w.dayIndex(log.CreatedTs)
		if day < 0 {
			continue
		}
		inWindow = append(inWindow, log)
		perDay[day]++

		reviewed[log.ItemID] = true
		if log.PreviousStatus == srs.StatusNew {
			newItems[log.ItemID] = true
		} else {
			reviewedItems[log.ItemID] = true
		}
		if log.Failed() {
			failedItems[log.ItemID] = true
		} else {
			successes++
		}
		if log.Mastered() {
			row.MasteredItems++
		}
		row.StudyTime += log.StudyTime
		ratingSum += log.Rating
	}

	sessions := len(inWindow)
	row.SessionCount = sessions
	row.ItemsReviewed = len(reviewed)
	row.NewItems = len(newItems)
	row.ReviewedItems = len(reviewedItems)
	row.FailedItems = len(failedItems)

	if sessions > 0 {
		cleanSessions := 0
		for _, log := range inWindow {
			if !failedItems[log.ItemID] {
				cleanSessions++
			}
		}
		row.AverageRating = round4(float64(ratingSum) / float64(sessions))
		row.CompletionRate = round4(float64(cleanSessions) / float64(sessions))
		row.RetentionRate = round4(float64(successes) / float64(sessions))
	}

	minutes := math.Max(1, float64(row.StudyTime)/60)
	row.EfficiencyScore = round4(float64(row.ItemsReviewed) / minutes)

	previous := w.Previous()
	previousMastered := 0
	for _, log := range previousLogs {
		if previous.dayIndex(log.CreatedTs) >= 0 && log.Mastered() {
			previousMastered++
		}
	}
	row.ProgressVelocity = float64(row.MasteredItems - previousMastered)

	threshold := plan.DailyGoal
	if threshold < 1 {
		threshold = 1
	}
	metDays := 0
	for _, n := range perDay {
		if n >= threshold {
			metDays++
		}
	}
	if days > 0 {
		row.ConsistencyScore = round4(float64(metDays) / float64(days))
	}

	items := float64(row.ItemsReviewed)
	row.DailyGoalProgress = goalProgress(items, float64(plan.DailyGoal)*float64(days))
	row.WeeklyGoalProgress = goalProgress(items, float64(plan.WeeklyGoal)*float64(days)/7)
	row.MonthlyGoalProgress = goalProgress(items, float64(plan.MonthlyGoal)*float64(days)/float64(daysInMonth(w.Start)))

	return row
}

// goalProgress is done/target clamped to [0, 1], 0 without a target.
func goalProgress(done, target float64) float64 {
	if target <= 0 {
		return 0
	}
	return round4(math.Min(1, math.Max(0, done/target)))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
