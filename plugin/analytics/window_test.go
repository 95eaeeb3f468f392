package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/studyhub/store"
)

func TestNewWindow(t *testing.T) {
	// Wednesday.
	date := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		periodType store.PeriodType
		wantStart  string
		wantEnd    string
		wantDays   int
	}{
		{"daily", store.PeriodDaily, "2025-03-12", "2025-03-13", 1},
		{"weekly starts monday", store.PeriodWeekly, "2025-03-10", "2025-03-17", 7},
		{"monthly", store.PeriodMonthly, "2025-03-01", "2025-04-01", 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := NewWindow(tt.periodType, date, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, w.Start.Format(PeriodDateLayout))
			assert.Equal(t, tt.wantEnd, w.End.Format(PeriodDateLayout))
			assert.Equal(t, tt.wantDays, w.Days())
			assert.Equal(t, tt.wantStart, w.PeriodDate())
		})
	}
}

func TestNewWindowSundayBelongsToPreviousWeek(t *testing.T) {
	sunday := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
	w, err := NewWindow(store.PeriodWeekly, sunday, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", w.PeriodDate())
}

func TestNewWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	// 20:00 UTC on the 12th is already the 13th at UTC+8.
	date := time.Date(2025, 3, 12, 20, 0, 0, 0, time.UTC)
	w, err := NewWindow(store.PeriodDaily, date, loc)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-13", w.PeriodDate())
	start, end := w.Bounds()
	assert.Equal(t, int64(24*3600), end-start)
}

func TestNewWindowInvalidType(t *testing.T) {
	_, err := NewWindow("yearly", time.Now(), time.UTC)
	assert.ErrorIs(t, err, ErrInvalidPeriodType)

	_, err = ParsePeriodType("hourly")
	assert.ErrorIs(t, err, ErrInvalidPeriodType)

	pt, err := ParsePeriodType("weekly")
	require.NoError(t, err)
	assert.Equal(t, store.PeriodWeekly, pt)
}

func TestWindowPrevious(t *testing.T) {
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	daily, _ := NewWindow(store.PeriodDaily, date, time.UTC)
	assert.Equal(t, "2025-02-28", daily.Previous().PeriodDate())

	weekly, _ := NewWindow(store.PeriodWeekly, date, time.UTC)
	assert.Equal(t, "2025-02-17", weekly.Previous().PeriodDate())

	monthly, _ := NewWindow(store.PeriodMonthly, date, time.UTC)
	prev := monthly.Previous()
	assert.Equal(t, "2025-02-01", prev.PeriodDate())
	assert.Equal(t, 28, prev.Days())
}

func TestWindowDayIndex(t *testing.T) {
	w, _ := NewWindow(store.PeriodWeekly, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 0, w.dayIndex(w.Start.Unix()))
	assert.Equal(t, 2, w.dayIndex(w.Start.Add(50*time.Hour).Unix()))
	assert.Equal(t, 6, w.dayIndex(w.End.Unix()-1))
	assert.Equal(t, -1, w.dayIndex(w.End.Unix()))
	assert.Equal(t, -1, w.dayIndex(w.Start.Unix()-1))
}
