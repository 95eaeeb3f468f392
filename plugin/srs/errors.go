package srs

import "errors"

var (
	// ErrInvalidRating is returned when a rating lies outside [1, 5].
	ErrInvalidRating = errors.New("srs: rating must be between 1 and 5")
	// ErrItemSuspended is returned when scheduling a suspended item.
	ErrItemSuspended = errors.New("srs: item is suspended")
	// ErrItemMastered is returned when scheduling a mastered item that was not reset.
	ErrItemMastered = errors.New("srs: item is already mastered")
	// ErrInvalidAlgorithm is returned for an unknown spacing algorithm.
	ErrInvalidAlgorithm = errors.New("srs: unknown spacing algorithm")
	// ErrInvalidDifficulty is returned for a difficulty level outside [1, 5].
	ErrInvalidDifficulty = errors.New("srs: difficulty level must be between 1 and 5")
	// ErrInvalidTransition is returned when a status change is not allowed.
	ErrInvalidTransition = errors.New("srs: invalid status transition")
)
