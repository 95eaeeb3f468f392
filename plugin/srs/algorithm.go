// Package srs implements the spaced repetition scheduling core.
//
// Scheduling is a pure function of the item state, the session rating and the
// current time: given the same input it always produces the same output and it
// never touches storage.
package srs

import (
	"slices"
	"strings"
)

// Algorithm names a spacing algorithm variant.
type Algorithm string

const (
	// AlgorithmEbbinghaus decays faster than SM-2: failures cut intervals harder
	// and successes grow them more slowly.
	AlgorithmEbbinghaus Algorithm = "ebbinghaus"
	// AlgorithmSM2 is the SM-2 baseline.
	AlgorithmSM2 Algorithm = "sm2"
	// AlgorithmAnki adds hard/easy interval modifiers on top of SM-2.
	AlgorithmAnki Algorithm = "anki"
)

// DefaultAlgorithm is used when a plan does not name one.
const DefaultAlgorithm = AlgorithmEbbinghaus

// Algorithms lists every supported variant.
var Algorithms = []Algorithm{AlgorithmEbbinghaus, AlgorithmSM2, AlgorithmAnki}

// ParseAlgorithm parses an algorithm name. Empty input yields the default.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultAlgorithm, nil
	}
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", ErrInvalidAlgorithm
}

// Valid reports whether a is exactly a supported variant name. Use
// ParseAlgorithm to normalize user input first.
func (a Algorithm) Valid() bool {
	return slices.Contains(Algorithms, a)
}

func (a Algorithm) String() string {
	return string(a)
}

// Ease factor bounds shared by every variant.
const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
	MaxEaseFactor     = 2.5
)

// Params holds the tunable constants of a variant.
type Params struct {
	// FailEaseDrop is subtracted from the ease factor on a failed session.
	FailEaseDrop float64
	// FailIntervalFactor scales the interval on a failed session.
	FailIntervalFactor float64
	// FirstInterval and SecondInterval are the intervals (days) after the
	// first and second consecutive successes.
	FirstInterval  int
	SecondInterval int
	// IntervalModifier scales interval growth from the third success on.
	IntervalModifier float64
	// HardFactor replaces the ease factor for rating 3 when non-zero.
	HardFactor float64
	// EasyBonus multiplies growth for rating 5 when non-zero.
	EasyBonus float64
	// MaxInterval caps every interval (days).
	MaxInterval int
	// MasteryStreak is the consecutive success count required for mastery.
	MasteryStreak int
	// MasteryInterval is the base interval (days) required for mastery.
	MasteryInterval int
	// ReviewInterval is the interval (days) that promotes learning to review.
	ReviewInterval int
}

// ParamsFor returns the constants of the given variant. Unknown variants get
// the SM-2 baseline.
func ParamsFor(a Algorithm) Params {
	p := Params{
		FailEaseDrop:       0.2,
		FailIntervalFactor: 0.5,
		FirstInterval:      1,
		SecondInterval:     6,
		IntervalModifier:   1.0,
		MaxInterval:        365,
		MasteryStreak:      5,
		MasteryInterval:    30,
		ReviewInterval:     7,
	}
	switch a {
	case AlgorithmEbbinghaus:
		p.FailEaseDrop = 0.25
		p.FailIntervalFactor = 0.3
		p.SecondInterval = 4
		p.IntervalModifier = 0.85
	case AlgorithmAnki:
		p.HardFactor = 1.2
		p.EasyBonus = 1.3
	}
	return p
}

// MasteryThreshold returns the interval (days) an item of the given difficulty
// must reach before it can be mastered. Difficulty above 3 raises the bar by
// ten days per level.
func (p Params) MasteryThreshold(difficultyLevel int) int {
	extra := difficultyLevel - 3
	if extra < 0 {
		extra = 0
	}
	return p.MasteryInterval + 10*extra
}
