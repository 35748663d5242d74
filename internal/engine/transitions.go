package engine

import (
	"github.com/mrz1836/warden/internal/constants"
)

// ValidTransitions defines all allowed status transitions in the packet
// lifecycle. Format: from_status -> []to_statuses.
//
// The state machine follows this flow:
//
//	Pending → Preflight (preflight_required), InProgress, Blocked
//	Preflight → InProgress, Pending, Failed
//	InProgress → Stalled, Review, Done, Failed
//	Stalled → InProgress, Failed, Pending
//	Review → Done, InProgress, Escalated, Failed
//	Escalated → Pending
//	Failed → Pending (supervisor reset)
//	Blocked → Pending
//
// Done is absolutely terminal. Failed admits only the supervisor reset,
// which is itself a committed transition, never a history rewrite.
//
//nolint:gochecknoglobals // Exported for testing and read-only lookup table
var ValidTransitions = map[constants.PacketStatus][]constants.PacketStatus{
	constants.StatusPending: {
		constants.StatusPreflight,
		constants.StatusInProgress,
		constants.StatusBlocked,
	},
	constants.StatusPreflight: {
		constants.StatusInProgress, // supervisor approve
		constants.StatusPending,    // supervisor return or timeout
		constants.StatusFailed,
	},
	constants.StatusInProgress: {
		constants.StatusStalled,
		constants.StatusReview,
		constants.StatusDone,
		constants.StatusFailed,
	},
	constants.StatusStalled: {
		constants.StatusInProgress, // heartbeat resume
		constants.StatusFailed,
		constants.StatusPending, // supervisor reset
	},
	constants.StatusReview: {
		constants.StatusDone,       // APPROVE
		constants.StatusInProgress, // REJECT
		constants.StatusEscalated,  // ESCALATE or max cycles
		constants.StatusFailed,
	},
	constants.StatusEscalated: {constants.StatusPending},
	constants.StatusFailed:    {constants.StatusPending},
	constants.StatusBlocked:   {constants.StatusPending},
}

// IsValidTransition checks if a transition from one status to another is
// allowed. Returns false for same-state transitions and for transitions
// out of done.
func IsValidTransition(from, to constants.PacketStatus) bool {
	if from == to {
		return false
	}
	for _, target := range ValidTransitions[from] {
		if target == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus returns true for statuses with no forward work
// transitions: done absolutely, failed short of a supervisor reset.
func IsTerminalStatus(status constants.PacketStatus) bool {
	return status == constants.StatusDone || status == constants.StatusFailed
}
