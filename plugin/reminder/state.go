// Package reminder schedules, delivers and resolves study reminders.
package reminder

import (
	"errors"

	"github.com/hrygo/studyhub/store"
)

var (
	// ErrInvalidTransition is returned when a reminder cannot move to the requested status.
	ErrInvalidTransition = errors.New("reminder: invalid status transition")
	// ErrNotFound is returned when the reminder does not exist or belongs to another user.
	ErrNotFound = errors.New("reminder: not found")
	// ErrInvalidSnooze is returned when the snooze time is not in the future.
	ErrInvalidSnooze = errors.New("reminder: snooze time must be in the future")
)

// transitions lists the legal moves. completed, skipped and cancelled are final.
var transitions = map[store.ReminderStatus][]store.ReminderStatus{
	store.ReminderPending: {store.ReminderSent, store.ReminderSkipped, store.ReminderCancelled},
	store.ReminderSent:    {store.ReminderCompleted, store.ReminderPending, store.ReminderCancelled},
}

// CanTransition reports whether a reminder in from may move to to.
func CanTransition(from, to store.ReminderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsFinal reports whether no transition leaves status.
func IsFinal(status store.ReminderStatus) bool {
	return len(transitions[status]) == 0
}
