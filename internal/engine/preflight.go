package engine

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// SubmitPreflight stores the executor's preflight assessment. The packet
// stays in preflight; the supervisor moves it with ApprovePreflight or
// ReturnPreflight.
func (e *Engine) SubmitPreflight(ctx context.Context, packetID, actor string, assessment *domain.PreflightAssessment) (*domain.PacketRuntimeState, error) {
	return e.apply(ctx, packetID, constants.EventPreflightSubmit, actor, applyOpts{
		inputs: map[string]any{"assessment": assessment},
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusPreflight {
			return nil, fmt.Errorf("%w: packet %s is %s, preflight requires preflight status",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if actor != st.AssignedTo {
			return nil, fmt.Errorf("%w: %s is not the assignee of %s",
				wardenerrors.ErrIdentityConflict, actor, packetID)
		}
		if !assessment.Complete() {
			return nil, fmt.Errorf("%w: preflight assessment requires context_confirmation, ambiguity_register, risk_flags, execution_plan",
				wardenerrors.ErrInvalidPayload)
		}

		now := e.now()
		submitted := assessment.Clone()
		st.Preflight = &submitted
		st.PreflightSubmittedAt = &now
		return nil, nil
	})
}

// ApprovePreflight moves a preflight packet to in_progress. The supervisor
// must not be the assignee.
func (e *Engine) ApprovePreflight(ctx context.Context, packetID, supervisor string) (*domain.PacketRuntimeState, error) {
	event := constants.EventPreflightApproved
	return e.apply(ctx, packetID, event, supervisor, applyOpts{}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if err := checkPreflightGate(packetID, supervisor, st); err != nil {
			return nil, err
		}
		e.transition(st, constants.StatusInProgress, event, supervisor, "")
		return nil, nil
	})
}

// ReturnPreflight sends a preflight packet back to pending and clears the
// assignment. The supervisor must not be the assignee.
func (e *Engine) ReturnPreflight(ctx context.Context, packetID, supervisor string) (*domain.PacketRuntimeState, error) {
	event := constants.EventPreflightReturned
	return e.apply(ctx, packetID, event, supervisor, applyOpts{}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if err := checkPreflightGate(packetID, supervisor, st); err != nil {
			return nil, err
		}
		e.transition(st, constants.StatusPending, event, supervisor, "")
		st.AssignedTo = ""
		st.PreflightSubmittedAt = nil
		return nil, nil
	})
}

// checkPreflightGate shares the preflight approve/return preconditions.
func checkPreflightGate(packetID, supervisor string, st *domain.PacketRuntimeState) error {
	if st.Status != constants.StatusPreflight {
		return fmt.Errorf("%w: packet %s is %s, expected preflight",
			wardenerrors.ErrWrongStatus, packetID, st.Status)
	}
	if supervisor == st.AssignedTo {
		return fmt.Errorf("%w: %s cannot supervise their own preflight on %s",
			wardenerrors.ErrIdentityConflict, supervisor, packetID)
	}
	return nil
}
