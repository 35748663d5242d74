// Package gate computes readiness and blocked propagation over the packet
// dependency DAG. It is pure computation: callers own locking and
// persistence. Cycles never reach this package; the definition loader
// rejects them.
package gate

import (
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/domain"
)

// Change records one blocked/unblocked status flip from Recompute.
type Change struct {
	// PacketID is the affected packet.
	PacketID string

	// From is the status before the flip.
	From constants.PacketStatus

	// To is the status after the flip.
	To constants.PacketStatus
}

// DepsDone reports whether every dependency of the packet is done.
func DepsDone(def *definition.Index, doc *domain.StateDocument, p *domain.PacketDefinition) bool {
	for _, dep := range p.Dependencies {
		st, ok := doc.Packets[dep]
		if !ok || st.Status != constants.StatusDone {
			return false
		}
	}
	return true
}

// Ready reports whether the packet can be claimed: status pending and every
// dependency done.
func Ready(def *definition.Index, doc *domain.StateDocument, p *domain.PacketDefinition) bool {
	st, ok := doc.Packets[p.ID]
	if ok && st.Status != constants.StatusPending {
		return false
	}
	return DepsDone(def, doc, p)
}

// ReadyList enumerates claimable packets strictly ordered by
// (area_id, wbs_ref) ascending. Ids are not used for ordering.
func ReadyList(def *definition.Index, doc *domain.StateDocument) []*domain.PacketDefinition {
	out := make([]*domain.PacketDefinition, 0, 8)
	for _, p := range def.Ordered() {
		if Ready(def, doc, p) {
			out = append(out, p)
		}
	}
	return out
}

// Recompute propagates blocked status across the DAG and returns the flips
// it applied to doc, in definition order.
//
// A pending packet becomes blocked when any dependency is failed or
// (transitively) blocked; a blocked packet returns to pending when no
// dependency is failed or blocked anymore. Claimed and terminal packets
// never flip here: the claim gate guarantees their dependencies were done,
// and done is immutable.
func Recompute(def *definition.Index, doc *domain.StateDocument) []Change {
	changes := make([]Change, 0, 4)
	// A flip can cascade down the DAG, so iterate to a fixpoint. The DAG is
	// acyclic, so the loop is bounded by its depth.
	for {
		flipped := false
		for _, p := range def.Ordered() {
			st := doc.Packet(p.ID)
			switch st.Status {
			case constants.StatusPending:
				if anyDepFailedOrBlocked(doc, p) {
					st.Status = constants.StatusBlocked
					changes = append(changes, Change{PacketID: p.ID, From: constants.StatusPending, To: constants.StatusBlocked})
					flipped = true
				}
			case constants.StatusBlocked:
				if !anyDepFailedOrBlocked(doc, p) {
					st.Status = constants.StatusPending
					changes = append(changes, Change{PacketID: p.ID, From: constants.StatusBlocked, To: constants.StatusPending})
					flipped = true
				}
			}
		}
		if !flipped {
			return changes
		}
	}
}

// anyDepFailedOrBlocked reports whether any dependency is failed or blocked.
func anyDepFailedOrBlocked(doc *domain.StateDocument, p *domain.PacketDefinition) bool {
	for _, dep := range p.Dependencies {
		st, ok := doc.Packets[dep]
		if !ok {
			continue
		}
		if st.Status == constants.StatusFailed || st.Status == constants.StatusBlocked {
			return true
		}
	}
	return false
}
