package srs

// Status is the lifecycle state of a study item.
type Status string

const (
	StatusNew       Status = "new"
	StatusLearning  Status = "learning"
	StatusReview    Status = "review"
	StatusMastered  Status = "mastered"
	StatusSuspended Status = "suspended"
)

// Statuses lists every item status.
var Statuses = []Status{StatusNew, StatusLearning, StatusReview, StatusMastered, StatusSuspended}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Schedulable reports whether items in this status show up in the due queue.
func (s Status) Schedulable() bool {
	return s != StatusMastered && s != StatusSuspended
}

func (s Status) String() string {
	return string(s)
}

// Trigger is the cause of a status change.
type Trigger string

const (
	// TriggerReview is a recorded study session.
	TriggerReview Trigger = "review"
	// TriggerSuspend parks an item.
	TriggerSuspend Trigger = "suspend"
	// TriggerResume restores a suspended item to its prior status.
	TriggerResume Trigger = "resume"
	// TriggerReset sends a mastered item back to learning.
	TriggerReset Trigger = "reset"
)

type transition struct {
	from    Status
	trigger Trigger
}

// transitions is the full table of allowed status changes. A review may
// leave the status unchanged, which is listed explicitly.
var transitions = map[transition][]Status{
	{StatusNew, TriggerReview}:      {StatusLearning, StatusReview, StatusMastered},
	{StatusLearning, TriggerReview}: {StatusLearning, StatusReview, StatusMastered},
	{StatusReview, TriggerReview}:   {StatusReview, StatusLearning, StatusMastered},

	{StatusNew, TriggerSuspend}:      {StatusSuspended},
	{StatusLearning, TriggerSuspend}: {StatusSuspended},
	{StatusReview, TriggerSuspend}:   {StatusSuspended},

	{StatusSuspended, TriggerResume}: {StatusNew, StatusLearning, StatusReview},

	{StatusMastered, TriggerReset}: {StatusLearning},
}

// CanTransition reports whether the trigger may move an item from one status to another.
func CanTransition(from, to Status, trigger Trigger) bool {
	for _, s := range transitions[transition{from, trigger}] {
		if s == to {
			return true
		}
	}
	return false
}
