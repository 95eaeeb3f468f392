package store

import (
	"context"

	"github.com/hrygo/studyhub/plugin/srs"
)

// StudyLog is the append-only record of one study session.
type StudyLog struct {
	ID        int32
	ItemID    int32
	PlanID    int32
	CreatorID int32

	Rating    int
	StudyTime int
	// Self-assessment sub-scores, 0 when not given.
	Understanding int
	Retention     int
	Application   int
	Confidence    int

	PreviousInterval int
	NewInterval      int
	PreviousEase     float64
	NewEase          float64
	PreviousStatus   srs.Status
	NewStatus        srs.Status

	Device    string
	Location  string
	TimeOfDay string

	CreatedTs int64
}

// Failed reports whether the session was a failed recall.
func (l *StudyLog) Failed() bool {
	return l.Rating < srs.PassingRating
}

// Mastered reports whether the session crossed into mastered.
func (l *StudyLog) Mastered() bool {
	return l.NewStatus == srs.StatusMastered && l.PreviousStatus != srs.StatusMastered
}

type FindStudyLog struct {
	ID        *int32
	ItemID    *int32
	PlanID    *int32
	CreatorID *int32
	// CreatedTsAfter is inclusive, CreatedTsBefore exclusive.
	CreatedTsAfter  *int64
	CreatedTsBefore *int64

	Limit  *int
	Offset *int
}

// ListStudyLogs returns logs ordered by creation time, then id.
func (s *Store) ListStudyLogs(ctx context.Context, find *FindStudyLog) ([]*StudyLog, error) {
	return s.driver.ListStudyLogs(ctx, find)
}

func (s *Store) CountStudyLogs(ctx context.Context, find *FindStudyLog) (int, error) {
	return s.driver.CountStudyLogs(ctx, find)
}
