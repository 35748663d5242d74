package engine

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// Heartbeat records an executor liveness report. Heartbeat policy is
// transition_only: a payload-only heartbeat on an in_progress packet
// updates the volatile fields and logs the event without emitting a
// commit; a heartbeat on a stalled packet resumes it and does commit.
func (e *Engine) Heartbeat(ctx context.Context, packetID, actor string, payload *domain.HeartbeatPayload) (*domain.PacketRuntimeState, error) {
	// Peek at the current status to pick the event and commit policy; the
	// authoritative check re-runs under the lock inside apply.
	doc, err := e.states.Load(ctx)
	if err != nil {
		return nil, err
	}
	resuming := false
	if st, ok := doc.Packets[packetID]; ok {
		resuming = st.Status == constants.StatusStalled
	}

	event := constants.EventHeartbeat
	opts := applyOpts{skipCommit: true, inputs: map[string]any{"payload": payload}}
	if resuming {
		event = constants.EventResumed
		opts.skipCommit = false
	}

	return e.apply(ctx, packetID, event, actor, opts, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusInProgress && st.Status != constants.StatusStalled {
			return nil, fmt.Errorf("%w: packet %s is %s, heartbeat requires in_progress or stalled",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if resuming != (st.Status == constants.StatusStalled) {
			// Status changed between the peek and the lock; have the caller retry.
			return nil, fmt.Errorf("%w: packet %s changed status mid-heartbeat",
				wardenerrors.ErrConcurrencyConflict, packetID)
		}
		if actor != st.AssignedTo {
			return nil, fmt.Errorf("%w: %s is not the assignee of %s",
				wardenerrors.ErrIdentityConflict, actor, packetID)
		}
		if !payload.Complete() {
			return nil, fmt.Errorf("%w: heartbeat payload requires status, decisions, obstacles, completion_estimate",
				wardenerrors.ErrInvalidPayload)
		}

		now := e.now()
		stored := payload.Clone()
		st.HeartbeatPayload = &stored
		st.LastHeartbeatAt = &now
		if st.Status == constants.StatusStalled {
			e.transition(st, constants.StatusInProgress, constants.EventResumed, actor, "heartbeat received")
		}
		return map[string]any{"resumed": resuming}, nil
	})
}
