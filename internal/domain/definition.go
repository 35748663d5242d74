// Package domain provides shared domain types for the WARDEN governance
// control plane. These types are used across all internal packages to ensure
// consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case per architecture requirements.
package domain

import (
	"github.com/mrz1836/warden/internal/constants"
)

// WorkArea is a named grouping of packets supporting level-2 closeout.
// Immutable after load.
type WorkArea struct {
	// ID is the unique area identifier.
	ID string `json:"id"`

	// Title is a short human-readable name.
	Title string `json:"title"`

	// Description explains the area's purpose.
	Description string `json:"description,omitempty"`
}

// ContextManifestEntry names a file an executor must attest to having read
// before claiming the packet.
type ContextManifestEntry struct {
	// File is the path the executor must attest to.
	File string `json:"file"`

	// Priority orders manifest entries for presentation.
	Priority int `json:"priority,omitempty"`

	// Required makes the attestation mandatory at claim time.
	Required bool `json:"required,omitempty"`
}

// PacketDefinition is the immutable definition of a governed unit of work.
// Definitions are never mutated after load; replacement requires
// out-of-band reinitialization.
type PacketDefinition struct {
	// ID is the unique packet identifier.
	ID string `json:"id"`

	// WbsRef is the display reference used for ordering within an area.
	WbsRef string `json:"wbs_ref"`

	// AreaID links the packet to its work area.
	AreaID string `json:"area_id"`

	// Title is a short human-readable name.
	Title string `json:"title"`

	// Scope describes what the packet covers.
	Scope string `json:"scope,omitempty"`

	// Preconditions list conditions that must hold before work starts.
	Preconditions []string `json:"preconditions,omitempty"`

	// RequiredActions list the work the executor must perform.
	RequiredActions []string `json:"required_actions,omitempty"`

	// RequiredOutputs list the artifacts the packet must produce.
	RequiredOutputs []string `json:"required_outputs,omitempty"`

	// ValidationChecks list the checks a reviewer applies.
	ValidationChecks []string `json:"validation_checks,omitempty"`

	// ExitCriteria list the conditions for completion.
	ExitCriteria []string `json:"exit_criteria,omitempty"`

	// HaltConditions list conditions that require stopping work.
	HaltConditions []string `json:"halt_conditions,omitempty"`

	// Dependencies are packet ids that must be done before this packet
	// can be claimed.
	Dependencies []string `json:"dependencies,omitempty"`

	// PreflightRequired routes a claim through the preflight gate.
	PreflightRequired bool `json:"preflight_required,omitempty"`

	// ReviewRequired routes completion through two-person review.
	ReviewRequired bool `json:"review_required,omitempty"`

	// HeartbeatRequired subjects the packet to stall detection.
	HeartbeatRequired bool `json:"heartbeat_required,omitempty"`

	// HeartbeatIntervalSeconds overrides the default heartbeat interval.
	HeartbeatIntervalSeconds int `json:"heartbeat_interval_seconds,omitempty"`

	// ContextManifest lists files the executor must attest to at claim time.
	ContextManifest []ContextManifestEntry `json:"context_manifest,omitempty"`

	// TemplateRef links the packet to an execution template.
	TemplateRef string `json:"template_ref,omitempty"`

	// OntologyRequired flags the packet for ontology-advisory checks
	// (handled by an external collaborator; recorded here for routing).
	OntologyRequired bool `json:"ontology_required,omitempty"`
}

// Definition is the full immutable work definition: areas plus packets.
type Definition struct {
	// SchemaVersion is the definition document schema version.
	SchemaVersion int `json:"schema_version"`

	// Areas are the work areas, keyed positions preserved from the document.
	Areas []WorkArea `json:"areas"`

	// Packets are the packet definitions.
	Packets []PacketDefinition `json:"packets"`
}

// PacketStatuses returns every status a packet can hold.
func PacketStatuses() []constants.PacketStatus {
	return []constants.PacketStatus{
		constants.StatusPending,
		constants.StatusPreflight,
		constants.StatusInProgress,
		constants.StatusStalled,
		constants.StatusReview,
		constants.StatusEscalated,
		constants.StatusDone,
		constants.StatusFailed,
		constants.StatusBlocked,
	}
}
