package domain

import (
	"maps"

	"github.com/mrz1836/warden/internal/constants"
)

// PreflightAssessment is the structured payload an executor submits while a
// packet is in preflight. All four core fields must be non-empty.
type PreflightAssessment struct {
	// ContextConfirmation attests that required context was read and understood.
	ContextConfirmation string `json:"context_confirmation"`

	// AmbiguityRegister lists open ambiguities discovered before execution.
	AmbiguityRegister string `json:"ambiguity_register"`

	// RiskFlags lists risks the executor foresees.
	RiskFlags string `json:"risk_flags"`

	// ExecutionPlan outlines how the executor intends to proceed.
	ExecutionPlan string `json:"execution_plan"`

	// Extra carries forward-compatible fields not covered above.
	Extra map[string]any `json:"extra,omitempty"`
}

// Complete reports whether every required field is non-empty.
func (p *PreflightAssessment) Complete() bool {
	return p != nil &&
		p.ContextConfirmation != "" &&
		p.AmbiguityRegister != "" &&
		p.RiskFlags != "" &&
		p.ExecutionPlan != ""
}

// Clone returns a deep copy of the assessment.
func (p *PreflightAssessment) Clone() PreflightAssessment {
	c := *p
	c.Extra = maps.Clone(p.Extra)
	return c
}

// ReviewAssessment is the structured payload a reviewer submits with a
// verdict. All three core fields must be non-empty.
type ReviewAssessment struct {
	// ExitCriteriaAssessment evaluates the packet against its exit criteria.
	ExitCriteriaAssessment string `json:"exit_criteria_assessment"`

	// Findings records what the review surfaced.
	Findings string `json:"findings"`

	// RiskFlags lists risks the reviewer identified.
	RiskFlags string `json:"risk_flags"`

	// Verdict is the rendered decision, recorded with the assessment.
	Verdict constants.ReviewVerdict `json:"verdict,omitempty"`

	// Extra carries forward-compatible fields not covered above.
	Extra map[string]any `json:"extra,omitempty"`
}

// Complete reports whether every required field is non-empty.
func (r *ReviewAssessment) Complete() bool {
	return r != nil &&
		r.ExitCriteriaAssessment != "" &&
		r.Findings != "" &&
		r.RiskFlags != ""
}

// Clone returns a deep copy of the assessment.
func (r *ReviewAssessment) Clone() ReviewAssessment {
	c := *r
	c.Extra = maps.Clone(r.Extra)
	return c
}

// HeartbeatPayload is the structured liveness report an executor sends while
// a packet is in progress. All four core fields must be non-empty.
type HeartbeatPayload struct {
	// Status summarizes current progress.
	Status string `json:"status"`

	// Decisions records decisions taken since the last heartbeat.
	Decisions string `json:"decisions"`

	// Obstacles records anything slowing the work down.
	Obstacles string `json:"obstacles"`

	// CompletionEstimate estimates remaining effort.
	CompletionEstimate string `json:"completion_estimate"`

	// Extra carries forward-compatible fields not covered above.
	Extra map[string]any `json:"extra,omitempty"`
}

// Complete reports whether every required field is non-empty.
func (h *HeartbeatPayload) Complete() bool {
	return h != nil &&
		h.Status != "" &&
		h.Decisions != "" &&
		h.Obstacles != "" &&
		h.CompletionEstimate != ""
}

// Clone returns a deep copy of the payload.
func (h *HeartbeatPayload) Clone() HeartbeatPayload {
	c := *h
	c.Extra = maps.Clone(h.Extra)
	return c
}

// ResidualRiskAck acknowledges residual risk at completion time.
// Ack is either "none" or "declared"; a declared ack carries the
// structured entries appended to the risk register.
type ResidualRiskAck struct {
	// Ack is "none" or "declared".
	Ack string `json:"ack"`

	// Declared holds the structured declarations when Ack is "declared".
	Declared []ResidualRiskDeclaration `json:"declared,omitempty"`
}

// Residual risk acknowledgment values.
const (
	// RiskAckNone declares no residual risk.
	RiskAckNone = "none"

	// RiskAckDeclared declares structured residual risk.
	RiskAckDeclared = "declared"
)

// Valid reports whether the acknowledgment is well formed: "none" with no
// declarations, or "declared" with at least one complete declaration.
func (a *ResidualRiskAck) Valid() bool {
	if a == nil {
		return false
	}
	switch a.Ack {
	case RiskAckNone:
		return len(a.Declared) == 0
	case RiskAckDeclared:
		if len(a.Declared) == 0 {
			return false
		}
		for _, d := range a.Declared {
			if d.Severity == "" || d.Description == "" {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ResidualRiskDeclaration is one declared risk inside an acknowledgment.
type ResidualRiskDeclaration struct {
	// Severity classifies the risk.
	Severity constants.RiskSeverity `json:"severity"`

	// Description explains the risk.
	Description string `json:"description"`

	// Owner is the identity responsible for the risk.
	Owner string `json:"owner,omitempty"`
}
