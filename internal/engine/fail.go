package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// failableStatuses are the statuses a packet can fail from.
//
//nolint:gochecknoglobals // Read-only lookup table
var failableStatuses = map[constants.PacketStatus]bool{
	constants.StatusInProgress: true,
	constants.StatusPreflight:  true,
	constants.StatusReview:     true,
	constants.StatusStalled:    true,
}

// resettableStatuses are the statuses a supervisor can reset to pending.
//
//nolint:gochecknoglobals // Read-only lookup table
var resettableStatuses = map[constants.PacketStatus]bool{
	constants.StatusFailed:    true,
	constants.StatusStalled:   true,
	constants.StatusEscalated: true,
	constants.StatusPreflight: true,
}

// Fail marks a packet failed. The assignee may fail their own packet;
// anyone else must act as supervisor. Dependents recompute as blocked.
func (e *Engine) Fail(ctx context.Context, packetID, actor, reason string, supervisor bool) (*domain.PacketRuntimeState, error) {
	event := constants.EventFailed
	return e.apply(ctx, packetID, event, actor, applyOpts{
		propagate: true,
		inputs:    map[string]any{"reason": reason, "supervisor": supervisor},
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Terminal() {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrAlreadyTerminal, packetID, st.Status)
		}
		if !failableStatuses[st.Status] {
			return nil, fmt.Errorf("%w: packet %s is %s, fail requires in_progress, preflight, review, or stalled",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if actor != st.AssignedTo && !supervisor {
			return nil, fmt.Errorf("%w: %s is not the assignee of %s and did not act as supervisor",
				wardenerrors.ErrIdentityConflict, actor, packetID)
		}
		if strings.TrimSpace(reason) == "" {
			return nil, fmt.Errorf("%w: fail reason", wardenerrors.ErrEmptyValue)
		}

		e.transition(st, constants.StatusFailed, event, actor, reason)
		return map[string]any{"reason": reason}, nil
	})
}

// Reset returns a failed, stalled, escalated, or preflight packet to
// pending. Lead-only: a supervisor identity is required. Reset appends a
// commit; it never rewrites history.
func (e *Engine) Reset(ctx context.Context, packetID, supervisor string) (*domain.PacketRuntimeState, error) {
	event := constants.EventReset
	return e.apply(ctx, packetID, event, supervisor, applyOpts{
		propagate: true,
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status == constants.StatusDone {
			return nil, fmt.Errorf("%w: packet %s is done; done is immutable",
				wardenerrors.ErrAlreadyTerminal, packetID)
		}
		if !resettableStatuses[st.Status] {
			return nil, fmt.Errorf("%w: packet %s is %s, reset requires failed, stalled, escalated, or preflight",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}

		from := st.Status
		e.transition(st, constants.StatusPending, event, supervisor, "supervisor reset")
		st.AssignedTo = ""
		st.Reviewer = ""
		st.CompletedAt = nil
		st.PreflightSubmittedAt = nil
		return map[string]any{"from": string(from)}, nil
	})
}
