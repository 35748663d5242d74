package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mrz1836/warden/internal/constants"
)

// TestIsValidTransition_Table verifies representative rows of the
// transition table.
func TestIsValidTransition_Table(t *testing.T) {
	tests := []struct {
		name string
		from constants.PacketStatus
		to   constants.PacketStatus
		want bool
	}{
		{"pending to preflight", constants.StatusPending, constants.StatusPreflight, true},
		{"pending to in_progress", constants.StatusPending, constants.StatusInProgress, true},
		{"pending to blocked", constants.StatusPending, constants.StatusBlocked, true},
		{"preflight to in_progress", constants.StatusPreflight, constants.StatusInProgress, true},
		{"preflight to pending", constants.StatusPreflight, constants.StatusPending, true},
		{"in_progress to stalled", constants.StatusInProgress, constants.StatusStalled, true},
		{"in_progress to review", constants.StatusInProgress, constants.StatusReview, true},
		{"in_progress to done", constants.StatusInProgress, constants.StatusDone, true},
		{"stalled to in_progress", constants.StatusStalled, constants.StatusInProgress, true},
		{"review to done", constants.StatusReview, constants.StatusDone, true},
		{"review to escalated", constants.StatusReview, constants.StatusEscalated, true},
		{"failed to pending", constants.StatusFailed, constants.StatusPending, true},
		{"blocked to pending", constants.StatusBlocked, constants.StatusPending, true},

		{"done is absolutely terminal", constants.StatusDone, constants.StatusPending, false},
		{"done to in_progress", constants.StatusDone, constants.StatusInProgress, false},
		{"pending to done skips work", constants.StatusPending, constants.StatusDone, false},
		{"pending to review skips work", constants.StatusPending, constants.StatusReview, false},
		{"failed to in_progress", constants.StatusFailed, constants.StatusInProgress, false},
		{"same state", constants.StatusPending, constants.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTransition(tt.from, tt.to))
		})
	}
}

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(constants.StatusDone))
	assert.True(t, IsTerminalStatus(constants.StatusFailed))
	assert.False(t, IsTerminalStatus(constants.StatusEscalated))
	assert.False(t, IsTerminalStatus(constants.StatusBlocked))
	assert.False(t, IsTerminalStatus(constants.StatusInProgress))
}

// TestEngineTransitions_StayInTable cross-checks that every status change
// the engine's operations perform appears in ValidTransitions.
func TestEngineTransitions_StayInTable(t *testing.T) {
	for from, targets := range ValidTransitions {
		for _, to := range targets {
			assert.True(t, IsValidTransition(from, to), "%s -> %s", from, to)
		}
	}
}
