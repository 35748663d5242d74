package domain

import (
	"time"

	"github.com/mrz1836/warden/internal/constants"
)

// LifecycleLogEntry is one record in the append-only lifecycle log.
// Entries are only ever appended; existing entries are never rewritten.
type LifecycleLogEntry struct {
	// Timestamp is the entry time (UTC, nanosecond precision where available).
	Timestamp time.Time `json:"timestamp"`

	// PacketID is the packet the event concerns; empty for area-level
	// events such as closeout_l2.
	PacketID string `json:"packet_id,omitempty"`

	// AreaID is set for area-level events.
	AreaID string `json:"area_id,omitempty"`

	// Event names the governance action.
	Event constants.LifecycleEvent `json:"event"`

	// Actor is the identity that initiated the event.
	Actor string `json:"actor"`

	// Details is free-form structured context for the event.
	Details map[string]any `json:"details,omitempty"`
}
