package analytics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/hrygo/studyhub/store"
)

// ExportSheet is the worksheet name of exported workbooks.
const ExportSheet = "Sheet1"

// ExportColumns are the header cells of an exported workbook, in column order.
var ExportColumns = []string{
	"period_type", "period_date",
	"items_reviewed", "new_items", "reviewed_items", "mastered_items", "failed_items",
	"study_time", "session_count", "average_rating",
	"completion_rate", "retention_rate", "efficiency_score", "progress_velocity", "consistency_score",
	"daily_goal_progress", "weekly_goal_progress", "monthly_goal_progress",
}

// WriteXLSX writes the rows as a single-sheet workbook with a bold header line.
func WriteXLSX(w io.Writer, rows []*store.StudyAnalytics) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(ExportColumns))
	for i, name := range ExportColumns {
		header[i] = name
	}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "failed to write header")
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "failed to create header style")
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(ExportColumns), 1)
	if err != nil {
		return errors.Wrap(err, "failed to resolve header range")
	}
	if err := f.SetCellStyle(ExportSheet, "A1", lastHeader, bold); err != nil {
		return errors.Wrap(err, "failed to style header")
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.Wrap(err, "failed to resolve row")
		}
		values := []any{
			string(row.PeriodType), row.PeriodDate,
			row.ItemsReviewed, row.NewItems, row.ReviewedItems, row.MasteredItems, row.FailedItems,
			row.StudyTime, row.SessionCount, row.AverageRating,
			row.CompletionRate, row.RetentionRate, row.EfficiencyScore, row.ProgressVelocity, row.ConsistencyScore,
			row.DailyGoalProgress, row.WeeklyGoalProgress, row.MonthlyGoalProgress,
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+2)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
