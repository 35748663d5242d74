package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/logging"
)

// Done completes a packet with evidence. The packet moves to review when
// the definition requires it, otherwise to done, and in the latter case the
// dependency gate recomputes so downstream packets become ready.
func (e *Engine) Done(ctx context.Context, packetID, actor, evidence string, ack *domain.ResidualRiskAck) (*domain.PacketRuntimeState, error) {
	event := constants.EventCompleted
	st, err := e.apply(ctx, packetID, event, actor, applyOpts{
		propagate: true,
		inputs:    map[string]any{"evidence": evidence, "residual_risk": ack},
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, def *domain.PacketDefinition) (map[string]any, error) {
		if st.Terminal() {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrAlreadyTerminal, packetID, st.Status)
		}
		if st.Status != constants.StatusInProgress {
			return nil, fmt.Errorf("%w: packet %s is %s, done requires in_progress",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if actor != st.AssignedTo {
			return nil, fmt.Errorf("%w: %s is not the assignee of %s",
				wardenerrors.ErrIdentityConflict, actor, packetID)
		}
		if strings.TrimSpace(evidence) == "" {
			return nil, fmt.Errorf("%w: done requires an evidence narrative",
				wardenerrors.ErrEvidenceMissing)
		}
		if !ack.Valid() {
			return nil, fmt.Errorf("%w: ack must be %q or %q with declarations",
				wardenerrors.ErrInvalidResidualRisk, domain.RiskAckNone, domain.RiskAckDeclared)
		}

		appendNote(st, evidence)
		st.ResidualRisk = ack

		target := constants.StatusDone
		if def.ReviewRequired {
			target = constants.StatusReview
		}
		e.transition(st, target, event, actor, "")

		return map[string]any{"status": string(target), "evidence": evidence}, nil
	})
	if err != nil {
		return nil, err
	}

	if e.risks != nil && ack.Ack == domain.RiskAckDeclared {
		if _, err := e.risks.Append(ctx, packetID, ack.Declared, e.now()); err != nil {
			// The transition is already committed; log the register
			// failure rather than unwinding it.
			e.logger.Error().Err(err).Str("packet_id", packetID).Msg("failed to append risk register")
		}
	}
	e.logger.Debug().
		Str("packet_id", packetID).
		Str("evidence", logging.FilterSensitiveValue(evidence)).
		Msg("evidence recorded")
	return st, nil
}

// Note appends to the evidence narrative without changing status. It still
// emits a commit: the note is part of the committed state.
func (e *Engine) Note(ctx context.Context, packetID, actor, text string) (*domain.PacketRuntimeState, error) {
	return e.apply(ctx, packetID, constants.EventNoted, actor, applyOpts{
		inputs: map[string]any{"notes": text},
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Terminal() {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrAlreadyTerminal, packetID, st.Status)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: note text", wardenerrors.ErrEmptyValue)
		}
		appendNote(st, text)
		return map[string]any{"notes": text}, nil
	})
}

// appendNote appends text to the packet's evidence narrative.
func appendNote(st *domain.PacketRuntimeState, text string) {
	if st.Notes == "" {
		st.Notes = text
		return
	}
	st.Notes += "\n" + text
}
