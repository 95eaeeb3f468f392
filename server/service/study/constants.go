package study

const (
	// DefaultPageSize is used when a list request sets no limit.
	DefaultPageSize = 20
	// MaxPageSize caps every list request.
	MaxPageSize = 100

	// DefaultLevel is the importance and difficulty of items and plans when unset.
	DefaultLevel = 3

	// MaxStudyTime is the longest accepted session, in seconds.
	MaxStudyTime = 86400

	MaxPlanNameLength = 256
	MaxNotesLength    = 64 * 1024

	// DefaultAnalyticsDays is the look-back of ListAnalytics.
	DefaultAnalyticsDays = 30
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
