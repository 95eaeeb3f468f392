package srs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		trigger Trigger
		want    bool
	}{
		{StatusNew, StatusLearning, TriggerReview, true},
		{StatusLearning, StatusReview, TriggerReview, true},
		{StatusReview, StatusMastered, TriggerReview, true},
		{StatusReview, StatusLearning, TriggerReview, true},
		{StatusMastered, StatusLearning, TriggerReview, false},
		{StatusMastered, StatusLearning, TriggerReset, true},
		{StatusLearning, StatusLearning, TriggerReset, false},
		{StatusNew, StatusSuspended, TriggerSuspend, true},
		{StatusReview, StatusSuspended, TriggerSuspend, true},
		{StatusMastered, StatusSuspended, TriggerSuspend, false},
		{StatusSuspended, StatusSuspended, TriggerSuspend, false},
		{StatusSuspended, StatusReview, TriggerResume, true},
		{StatusSuspended, StatusMastered, TriggerResume, false},
		{StatusSuspended, StatusLearning, TriggerReview, false},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to, tt.trigger)
		assert.Equal(t, tt.want, got, "%s -(%s)-> %s", tt.from, tt.trigger, tt.to)
	}
}

func TestStatus(t *testing.T) {
	for _, s := range Statuses {
		assert.True(t, s.Valid())
	}
	assert.False(t, Status("archived").Valid())

	assert.True(t, StatusNew.Schedulable())
	assert.True(t, StatusReview.Schedulable())
	assert.False(t, StatusMastered.Schedulable())
	assert.False(t, StatusSuspended.Schedulable())
}
