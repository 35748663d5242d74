package domain

import (
	"time"

	"github.com/mrz1836/warden/internal/constants"
)

// PacketRuntimeState is the mutable runtime record of one packet, owned by
// the lifecycle engine. Created implicitly at first touch (status pending);
// never destroyed (terminal states persist).
//
// Example JSON representation:
//
//	{
//	    "status": "in_progress",
//	    "assigned_to": "alice",
//	    "notes": "implemented parser; tests green",
//	    "started_at": "2026-07-30T10:00:00Z",
//	    "review_cycles": 1,
//	    "residual_risk": "none"
//	}
type PacketRuntimeState struct {
	// Status is the packet's position in the lifecycle state machine.
	Status constants.PacketStatus `json:"status"`

	// AssignedTo is the executor identity; non-empty while owned.
	AssignedTo string `json:"assigned_to,omitempty"`

	// Reviewer is the identity that claimed the review, when in review.
	Reviewer string `json:"reviewer,omitempty"`

	// Notes is the accumulated evidence narrative.
	Notes string `json:"notes,omitempty"`

	// StartedAt is when the packet was first claimed.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the packet reached done or failed.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// LastHeartbeatAt is the time of the most recent heartbeat.
	// Volatile: excluded from the hashed canonical form (see HashScope).
	LastHeartbeatAt *time.Time `json:"last_heartbeat_at,omitempty"`

	// ContextAttestation lists manifest paths the executor attested to.
	ContextAttestation []string `json:"context_attestation,omitempty"`

	// Preflight is the submitted preflight assessment, if any.
	Preflight *PreflightAssessment `json:"preflight,omitempty"`

	// PreflightSubmittedAt is when the preflight assessment was submitted;
	// the preflight timeout is measured from here.
	PreflightSubmittedAt *time.Time `json:"preflight_submitted_at,omitempty"`

	// Review is the most recent review assessment, if any.
	Review *ReviewAssessment `json:"review,omitempty"`

	// ReviewCycles counts REJECT verdicts; exceeding the maximum escalates.
	ReviewCycles int `json:"review_cycles,omitempty"`

	// ResidualRisk is "none" or a structured declaration.
	ResidualRisk *ResidualRiskAck `json:"residual_risk,omitempty"`

	// HeartbeatPayload is the most recent heartbeat payload.
	// Volatile: excluded from the hashed canonical form (see HashScope).
	HeartbeatPayload *HeartbeatPayload `json:"heartbeat_payload,omitempty"`

	// TemplateLink records the template the executor bound at claim time.
	TemplateLink string `json:"template_link,omitempty"`

	// Transitions is the packet's status change history.
	Transitions []Transition `json:"transitions,omitempty"`
}

// Transition records one status change in the packet's history.
type Transition struct {
	// FromStatus is the status before the transition.
	FromStatus constants.PacketStatus `json:"from_status"`

	// ToStatus is the status after the transition.
	ToStatus constants.PacketStatus `json:"to_status"`

	// Event names the governance action that caused the change.
	Event constants.LifecycleEvent `json:"event"`

	// Actor is the identity that initiated the transition.
	Actor string `json:"actor"`

	// Timestamp is when the transition occurred (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Reason is an optional explanation.
	Reason string `json:"reason,omitempty"`
}

// HashScope returns a copy of the state with volatile heartbeat fields
// cleared. Heartbeat policy is transition_only: payload-only heartbeats emit
// no commit, so the runtime-binding invariant must hold across them. Only
// the fields returned here participate in pre/post state hashes.
func (s *PacketRuntimeState) HashScope() PacketRuntimeState {
	scoped := *s
	scoped.LastHeartbeatAt = nil
	scoped.HeartbeatPayload = nil
	return scoped
}

// Clone returns a deep copy of the state.
func (s *PacketRuntimeState) Clone() *PacketRuntimeState {
	c := *s
	c.ContextAttestation = append([]string(nil), s.ContextAttestation...)
	c.Transitions = append([]Transition(nil), s.Transitions...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	if s.LastHeartbeatAt != nil {
		t := *s.LastHeartbeatAt
		c.LastHeartbeatAt = &t
	}
	if s.PreflightSubmittedAt != nil {
		t := *s.PreflightSubmittedAt
		c.PreflightSubmittedAt = &t
	}
	if s.Preflight != nil {
		p := s.Preflight.Clone()
		c.Preflight = &p
	}
	if s.Review != nil {
		r := s.Review.Clone()
		c.Review = &r
	}
	if s.ResidualRisk != nil {
		r := *s.ResidualRisk
		c.ResidualRisk = &r
	}
	if s.HeartbeatPayload != nil {
		h := s.HeartbeatPayload.Clone()
		c.HeartbeatPayload = &h
	}
	return &c
}

// Terminal reports whether the status admits no forward transitions.
// A failed packet can still be reset by a supervisor, but reset is modeled
// as a new commit, not a forward work transition.
func (s *PacketRuntimeState) Terminal() bool {
	return s.Status == constants.StatusDone || s.Status == constants.StatusFailed
}

// StateDocument is the single canonical runtime document persisted as
// state.json: runtime state per packet plus the embedded lifecycle log.
type StateDocument struct {
	// SchemaVersion is the state document schema version.
	SchemaVersion int `json:"schema_version"`

	// Packets maps packet id to runtime state.
	Packets map[string]*PacketRuntimeState `json:"packets"`

	// Log is the append-only lifecycle log, embedded in the document and
	// rewritten atomically with the runtime state.
	Log []LifecycleLogEntry `json:"log"`

	// Metadata carries document-level bookkeeping (root init time, etc.).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewStateDocument returns an empty state document at the current schema.
func NewStateDocument() *StateDocument {
	return &StateDocument{
		SchemaVersion: constants.StateSchemaVersion,
		Packets:       make(map[string]*PacketRuntimeState),
		Log:           []LifecycleLogEntry{},
	}
}

// Packet returns the runtime state for id, creating a pending record on
// first touch.
func (d *StateDocument) Packet(id string) *PacketRuntimeState {
	if st, ok := d.Packets[id]; ok {
		return st
	}
	st := &PacketRuntimeState{Status: constants.StatusPending}
	d.Packets[id] = st
	return st
}
