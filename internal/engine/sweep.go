package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// SweepResult reports the observer transitions a sweep applied.
type SweepResult struct {
	// Stalled lists packets transitioned in_progress → stalled.
	Stalled []string `json:"stalled"`

	// PreflightReturned lists packets returned preflight → pending after
	// the preflight timeout.
	PreflightReturned []string `json:"preflight_returned"`
}

// CheckStalled runs the observer sweep: stall detection on in_progress
// packets that require heartbeats, and preflight timeout returns. Each
// applied transition emits a commit; the sweep is idempotent within one
// stall window.
func (e *Engine) CheckStalled(ctx context.Context) (*SweepResult, error) {
	doc, err := e.states.Load(ctx)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Stalled: []string{}, PreflightReturned: []string{}}
	now := e.now()

	for _, def := range e.def.Ordered() {
		st, ok := doc.Packets[def.ID]
		if !ok {
			continue
		}
		switch {
		case st.Status == constants.StatusInProgress && def.HeartbeatRequired && e.stallDeadlinePassed(def, st, now):
			if err := e.markStalled(ctx, def.ID); err != nil {
				if isSweepRace(err) {
					continue
				}
				return result, err
			}
			result.Stalled = append(result.Stalled, def.ID)

		case st.Status == constants.StatusPreflight && e.preflightExpired(st, now):
			if err := e.returnExpiredPreflight(ctx, def.ID); err != nil {
				if isSweepRace(err) {
					continue
				}
				return result, err
			}
			result.PreflightReturned = append(result.PreflightReturned, def.ID)
		}
	}
	return result, nil
}

// isSweepRace reports whether a sweep candidate transitioned under our feet;
// the sweep just skips it.
func isSweepRace(err error) bool {
	return errors.Is(err, wardenerrors.ErrWrongStatus) || errors.Is(err, wardenerrors.ErrAlreadyTerminal)
}

// stallWindow returns the packet's stall threshold:
// max(2×heartbeat_interval, configured floor).
func (e *Engine) stallWindow(def *domain.PacketDefinition) time.Duration {
	interval := e.timeouts.HeartbeatInterval
	if def.HeartbeatIntervalSeconds > 0 {
		interval = time.Duration(def.HeartbeatIntervalSeconds) * time.Second
	}
	window := 2 * interval
	if window < e.timeouts.StallThreshold {
		window = e.timeouts.StallThreshold
	}
	return window
}

// stallDeadlinePassed reports whether the packet's heartbeat window has
// elapsed. A packet that never heartbeat is measured from its start.
func (e *Engine) stallDeadlinePassed(def *domain.PacketDefinition, st *domain.PacketRuntimeState, now time.Time) bool {
	last := st.LastHeartbeatAt
	if last == nil {
		last = st.StartedAt
	}
	if last == nil {
		return false
	}
	return now.Sub(*last) > e.stallWindow(def)
}

// preflightExpired reports whether a submitted preflight assessment has
// waited past the timeout.
func (e *Engine) preflightExpired(st *domain.PacketRuntimeState, now time.Time) bool {
	if st.PreflightSubmittedAt == nil {
		return false
	}
	return now.Sub(*st.PreflightSubmittedAt) > e.timeouts.PreflightTimeout
}

// markStalled applies the observer in_progress → stalled transition.
func (e *Engine) markStalled(ctx context.Context, packetID string) error {
	event := constants.EventStalled
	_, err := e.apply(ctx, packetID, event, constants.ActorObserver, applyOpts{}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, def *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusInProgress {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if !e.stallDeadlinePassed(def, st, e.now()) {
			return nil, fmt.Errorf("%w: packet %s heartbeat window has not elapsed",
				wardenerrors.ErrWrongStatus, packetID)
		}
		e.transition(st, constants.StatusStalled, event, constants.ActorObserver, "heartbeat window elapsed")
		return nil, nil
	})
	return err
}

// returnExpiredPreflight applies the observer preflight → pending timeout.
func (e *Engine) returnExpiredPreflight(ctx context.Context, packetID string) error {
	event := constants.EventPreflightReturned
	_, err := e.apply(ctx, packetID, event, constants.ActorObserver, applyOpts{}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusPreflight {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if !e.preflightExpired(st, e.now()) {
			return nil, fmt.Errorf("%w: packet %s preflight has not timed out",
				wardenerrors.ErrWrongStatus, packetID)
		}
		e.transition(st, constants.StatusPending, event, constants.ActorObserver, "preflight timeout")
		st.AssignedTo = ""
		st.PreflightSubmittedAt = nil
		return map[string]any{"timeout": true}, nil
	})
	return err
}
