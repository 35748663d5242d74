package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
)

func TestPreflightAssessment_Complete(t *testing.T) {
	full := &PreflightAssessment{
		ContextConfirmation: "read",
		AmbiguityRegister:   "none",
		RiskFlags:           "low",
		ExecutionPlan:       "plan",
	}
	assert.True(t, full.Complete())

	partial := *full
	partial.RiskFlags = ""
	assert.False(t, partial.Complete())

	var nilAssessment *PreflightAssessment
	assert.False(t, nilAssessment.Complete())
}

func TestHeartbeatPayload_Complete(t *testing.T) {
	full := &HeartbeatPayload{Status: "ok", Decisions: "d", Obstacles: "o", CompletionEstimate: "1h"}
	assert.True(t, full.Complete())

	partial := *full
	partial.CompletionEstimate = ""
	assert.False(t, partial.Complete())
}

func TestResidualRiskAck_Valid(t *testing.T) {
	tests := []struct {
		name string
		ack  *ResidualRiskAck
		want bool
	}{
		{"nil", nil, false},
		{"none", &ResidualRiskAck{Ack: RiskAckNone}, true},
		{"none with entries", &ResidualRiskAck{
			Ack:      RiskAckNone,
			Declared: []ResidualRiskDeclaration{{Severity: constants.RiskSeverityLow, Description: "x"}},
		}, false},
		{"declared empty", &ResidualRiskAck{Ack: RiskAckDeclared}, false},
		{"declared valid", &ResidualRiskAck{
			Ack:      RiskAckDeclared,
			Declared: []ResidualRiskDeclaration{{Severity: constants.RiskSeverityHigh, Description: "tail risk"}},
		}, true},
		{"declared missing description", &ResidualRiskAck{
			Ack:      RiskAckDeclared,
			Declared: []ResidualRiskDeclaration{{Severity: constants.RiskSeverityHigh}},
		}, false},
		{"unknown ack", &ResidualRiskAck{Ack: "maybe"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ack.Valid())
		})
	}
}

func TestPacketRuntimeState_HashScopeExcludesVolatileFields(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	st := &PacketRuntimeState{
		Status:          constants.StatusInProgress,
		AssignedTo:      "alice",
		LastHeartbeatAt: &now,
		HeartbeatPayload: &HeartbeatPayload{
			Status: "ok", Decisions: "d", Obstacles: "o", CompletionEstimate: "1h",
		},
	}

	scoped := st.HashScope()
	assert.Nil(t, scoped.LastHeartbeatAt)
	assert.Nil(t, scoped.HeartbeatPayload)
	assert.Equal(t, constants.StatusInProgress, scoped.Status)

	// The original is untouched.
	assert.NotNil(t, st.LastHeartbeatAt)
}

func TestPacketRuntimeState_CloneIsDeep(t *testing.T) {
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)
	st := &PacketRuntimeState{
		Status:             constants.StatusReview,
		ContextAttestation: []string{"docs/a.md"},
		StartedAt:          &now,
		Preflight: &PreflightAssessment{
			ContextConfirmation: "read", AmbiguityRegister: "n", RiskFlags: "l", ExecutionPlan: "p",
		},
		Transitions: []Transition{{
			FromStatus: constants.StatusPending,
			ToStatus:   constants.StatusInProgress,
			Event:      constants.EventClaimed,
			Actor:      "alice",
			Timestamp:  now,
		}},
	}

	c := st.Clone()
	c.ContextAttestation[0] = "mutated"
	c.Preflight.RiskFlags = "mutated"
	c.Transitions[0].Actor = "mutated"
	*c.StartedAt = now.Add(time.Hour)

	assert.Equal(t, "docs/a.md", st.ContextAttestation[0])
	assert.Equal(t, "l", st.Preflight.RiskFlags)
	assert.Equal(t, "alice", st.Transitions[0].Actor)
	assert.Equal(t, now, *st.StartedAt)
}

func TestStateDocument_PacketFirstTouch(t *testing.T) {
	doc := NewStateDocument()
	st := doc.Packet("PKT-A")
	require.NotNil(t, st)
	assert.Equal(t, constants.StatusPending, st.Status)

	// Second touch returns the same record.
	st.AssignedTo = "alice"
	assert.Equal(t, "alice", doc.Packet("PKT-A").AssignedTo)
}

func TestTerminal(t *testing.T) {
	assert.True(t, (&PacketRuntimeState{Status: constants.StatusDone}).Terminal())
	assert.True(t, (&PacketRuntimeState{Status: constants.StatusFailed}).Terminal())
	assert.False(t, (&PacketRuntimeState{Status: constants.StatusEscalated}).Terminal())
	assert.False(t, (&PacketRuntimeState{Status: constants.StatusPending}).Terminal())
}
