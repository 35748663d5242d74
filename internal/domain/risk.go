package domain

import (
	"time"

	"github.com/mrz1836/warden/internal/constants"
)

// ResidualRiskEntry is one row in the risk register.
type ResidualRiskEntry struct {
	// ID is a unique identifier for the entry.
	ID string `json:"id"`

	// PacketID is the packet that declared the risk.
	PacketID string `json:"packet_id"`

	// Severity classifies the risk.
	Severity constants.RiskSeverity `json:"severity"`

	// Status tracks the risk's disposition.
	Status constants.RiskStatus `json:"status"`

	// Description explains the risk.
	Description string `json:"description"`

	// Owner is the identity responsible for the risk.
	Owner string `json:"owner,omitempty"`

	// OpenedAt is when the risk was declared.
	OpenedAt time.Time `json:"opened_at"`

	// ResolvedAt is when the risk was mitigated or accepted.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// RiskRegister is the risk-register.json document.
type RiskRegister struct {
	// SchemaVersion is the register document schema version.
	SchemaVersion int `json:"schema_version"`

	// Entries are the residual risk entries, append-ordered.
	Entries []ResidualRiskEntry `json:"entries"`
}

// DclConfig is the dcl-config.json lock document. The loader refuses to
// start when it is missing or disagrees with the in-use runtime.
type DclConfig struct {
	Mode                    string `json:"mode"`
	HashAlgorithm           string `json:"hash_algorithm"`
	CanonicalizationVersion string `json:"canonicalization_version"`
	DclVersion              string `json:"dcl_version"`
	StateSchemaVersion      int    `json:"state_schema_version"`
}

// CurrentDclConfig returns the lock document matching this runtime.
func CurrentDclConfig() DclConfig {
	return DclConfig{
		Mode:                    constants.DclMode,
		HashAlgorithm:           constants.HashAlgorithm,
		CanonicalizationVersion: constants.CanonicalizationVersion,
		DclVersion:              constants.DclVersion,
		StateSchemaVersion:      constants.StateSchemaVersion,
	}
}
