package srs

import (
	"math"
	"time"
)

// PassingRating is the lowest rating that counts as a successful recall.
const PassingRating = 3

// ItemState is the scheduling-relevant part of a study item.
type ItemState struct {
	Status             Status
	CurrentInterval    int
	EaseFactor         float64
	ConsecutiveCorrect int
	ConsecutiveFailed  int
}

// NewItemState returns the state of a freshly added item.
func NewItemState() ItemState {
	return ItemState{
		Status:     StatusNew,
		EaseFactor: DefaultEaseFactor,
	}
}

// Result is the outcome of scheduling one study session.
type Result struct {
	Success            bool
	NewStatus          Status
	NewInterval        int
	NewEase            float64
	ConsecutiveCorrect int
	ConsecutiveFailed  int
	// NextReviewAt is nil once the item is mastered.
	NextReviewAt *time.Time
	// ShouldMaster is set only on the session that crosses into mastered.
	ShouldMaster bool
	Confidence   float64
}

// Scheduler computes the next review for items of one plan.
type Scheduler struct {
	params          Params
	difficultyLevel int
}

// NewScheduler creates a scheduler for the given algorithm and plan difficulty.
func NewScheduler(algorithm Algorithm, difficultyLevel int) (*Scheduler, error) {
	if !algorithm.Valid() {
		return nil, ErrInvalidAlgorithm
	}
	if difficultyLevel < 1 || difficultyLevel > 5 {
		return nil, ErrInvalidDifficulty
	}
	return &Scheduler{
		params:          ParamsFor(algorithm),
		difficultyLevel: difficultyLevel,
	}, nil
}

// Schedule applies one session with the given rating to state.
func (s *Scheduler) Schedule(state ItemState, rating int, now time.Time) (*Result, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	switch state.Status {
	case StatusSuspended:
		return nil, ErrItemSuspended
	case StatusMastered:
		return nil, ErrItemMastered
	}

	ease := state.EaseFactor
	if ease <= 0 {
		ease = DefaultEaseFactor
	}
	current := state.CurrentInterval
	if current < 0 {
		current = 0
	}

	result := &Result{NewStatus: state.Status}
	if rating < PassingRating {
		result.ConsecutiveFailed = state.ConsecutiveFailed + 1
		result.ConsecutiveCorrect = 0
		result.NewEase = math.Max(MinEaseFactor, ease-s.params.FailEaseDrop)
		result.NewInterval = max(1, int(math.Floor(float64(current)*s.params.FailIntervalFactor)))
		result.NewStatus = StatusLearning
	} else {
		result.Success = true
		result.ConsecutiveCorrect = state.ConsecutiveCorrect + 1
		result.ConsecutiveFailed = 0
		result.NewEase = ease

		// The first two successes of a streak never shrink the interval, so
		// the first success after a failure keeps the halved interval rather
		// than dropping to FirstInterval.
		switch result.ConsecutiveCorrect {
		case 1:
			result.NewInterval = max(s.params.FirstInterval, current)
		case 2:
			result.NewInterval = max(s.params.SecondInterval, current)
		default:
			result.NewEase = clamp(ease+easeDelta(rating), MinEaseFactor, MaxEaseFactor)
			result.NewInterval = s.grow(current, result.NewEase, rating)
		}
		result.NewStatus = s.promote(state.Status, result.NewInterval, result.ConsecutiveCorrect)
	}

	if result.NewInterval > s.params.MaxInterval {
		result.NewInterval = max(s.params.MaxInterval, current)
	}

	if result.NewStatus == StatusMastered {
		result.ShouldMaster = state.Status != StatusMastered
	} else {
		next := now.AddDate(0, 0, result.NewInterval)
		result.NextReviewAt = &next
	}
	result.Confidence = clamp(float64(result.ConsecutiveCorrect)/float64(s.params.MasteryStreak), 0, 1) * (result.NewEase / MaxEaseFactor)
	return result, nil
}

// grow returns the interval after the third and later consecutive successes.
func (s *Scheduler) grow(current int, ease float64, rating int) int {
	factor := ease
	if s.params.HardFactor > 0 && rating == PassingRating {
		factor = s.params.HardFactor
	}
	next := float64(current) * factor * s.params.IntervalModifier
	if s.params.EasyBonus > 0 && rating == 5 {
		next *= s.params.EasyBonus
	}
	return max(int(math.Round(next)), current+1)
}

// promote applies the success promotions in order, allowing more than one per session.
func (s *Scheduler) promote(status Status, interval, consecutiveCorrect int) Status {
	if status == StatusNew {
		status = StatusLearning
	}
	if status == StatusLearning && interval >= s.params.ReviewInterval {
		status = StatusReview
	}
	if status == StatusReview &&
		consecutiveCorrect >= s.params.MasteryStreak &&
		interval >= s.params.MasteryThreshold(s.difficultyLevel) {
		status = StatusMastered
	}
	return status
}

// easeDelta is the SM-2 ease adjustment for a passing rating.
func easeDelta(rating int) float64 {
	q := float64(5 - rating)
	return 0.1 - q*(0.08+q*0.02)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
