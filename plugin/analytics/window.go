// Package analytics rolls study logs up into per-period plan statistics.
// Everything here is pure; loading and persisting live in the runner.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/studyhub/store"
)

// ErrInvalidPeriodType is returned for period types other than daily, weekly and monthly.
var ErrInvalidPeriodType = errors.New("analytics: invalid period type")

// PeriodDateLayout formats the period anchor stored on analytics rows.
const PeriodDateLayout = "2006-01-02"

// ParsePeriodType validates a period type name.
func ParsePeriodType(s string) (store.PeriodType, error) {
	switch pt := store.PeriodType(s); pt {
	case store.PeriodDaily, store.PeriodWeekly, store.PeriodMonthly:
		return pt, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPeriodType, s)
}

// Window is the half-open interval [Start, End) of one period.
type Window struct {
	PeriodType store.PeriodType
	Start      time.Time
	End        time.Time
}

// NewWindow returns the period of the given type containing date, evaluated
// in loc. Weeks start on Monday.
func NewWindow(periodType store.PeriodType, date time.Time, loc *time.Location) (Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	d := date.In(loc)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)

	w := Window{PeriodType: periodType}
	switch periodType {
	case store.PeriodDaily:
		w.Start = day
		w.End = day.AddDate(0, 0, 1)
	case store.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		w.Start = day.AddDate(0, 0, -offset)
		w.End = w.Start.AddDate(0, 0, 7)
	case store.PeriodMonthly:
		w.Start = time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, loc)
		w.End = w.Start.AddDate(0, 1, 0)
	default:
		return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriodType, periodType)
	}
	return w, nil
}

// Previous returns the window of the same type right before w.
func (w Window) Previous() Window {
	prev, _ := NewWindow(w.PeriodType, w.Start.AddDate(0, 0, -1), w.Start.Location())
	return prev
}

// Days returns the number of calendar days in the window.
func (w Window) Days() int {
	days := 0
	for d := w.Start; d.Before(w.End); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// PeriodDate is the anchor stored on the analytics row.
func (w Window) PeriodDate() string {
	return w.Start.Format(PeriodDateLayout)
}

// Bounds returns the window as unix seconds, start inclusive and end exclusive.
func (w Window) Bounds() (int64, int64) {
	return w.Start.Unix(), w.End.Unix()
}

// dayIndex returns the zero-based day of ts within the window, or -1.
func (w Window) dayIndex(ts int64) int {
	t := time.Unix(ts, 0).In(w.Start.Location())
	if t.Before(w.Start) || !t.Before(w.End) {
		return -1
	}
	i := 0
	for d := w.Start.AddDate(0, 0, 1); !t.Before(d); d = d.AddDate(0, 0, 1) {
		i++
	}
	return i
}

func daysInMonth(t time.Time) int {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return first.AddDate(0, 1, -1).Day()
}
