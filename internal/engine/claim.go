package engine

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/gate"
)

// Claim assigns a pending packet to actor. The dependency gate must pass,
// and when the definition's context manifest has required entries the
// attestation must list each of their paths.
//
// The packet moves to preflight when the definition requires it, otherwise
// straight to in_progress.
func (e *Engine) Claim(ctx context.Context, packetID, actor string, attestation []string) (*domain.PacketRuntimeState, error) {
	event := constants.EventClaimed
	return e.apply(ctx, packetID, event, actor, applyOpts{
		inputs: map[string]any{"context_attestation": attestation},
	}, func(doc *domain.StateDocument, st *domain.PacketRuntimeState, def *domain.PacketDefinition) (map[string]any, error) {
		if st.Terminal() {
			return nil, fmt.Errorf("%w: packet %s is %s", wardenerrors.ErrAlreadyTerminal, packetID, st.Status)
		}
		if st.Status != constants.StatusPending {
			if st.AssignedTo != "" {
				return nil, fmt.Errorf("%w: packet %s is %s, assigned to %s",
					wardenerrors.ErrAlreadyClaimed, packetID, st.Status, st.AssignedTo)
			}
			return nil, fmt.Errorf("%w: packet %s is %s, claim requires pending",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if !gate.DepsDone(e.def, doc, def) {
			return nil, fmt.Errorf("%w: packet %s has dependencies not done",
				wardenerrors.ErrDependencyUnmet, packetID)
		}
		if err := checkAttestation(def, attestation); err != nil {
			return nil, err
		}

		target := constants.StatusInProgress
		if def.PreflightRequired {
			target = constants.StatusPreflight
		}

		now := e.now()
		st.AssignedTo = actor
		st.StartedAt = &now
		st.ContextAttestation = append([]string(nil), attestation...)
		if def.TemplateRef != "" {
			st.TemplateLink = def.TemplateRef
		}
		e.transition(st, target, event, actor, "")

		return map[string]any{"status": string(target)}, nil
	})
}

// checkAttestation verifies every required manifest path appears in the
// attestation by string equality.
func checkAttestation(def *domain.PacketDefinition, attestation []string) error {
	attested := make(map[string]bool, len(attestation))
	for _, path := range attestation {
		attested[path] = true
	}
	for _, entry := range def.ContextManifest {
		if entry.Required && !attested[entry.File] {
			return fmt.Errorf("%w: packet %s requires attestation of %q",
				wardenerrors.ErrContextAttestationMissing, def.ID, entry.File)
		}
	}
	return nil
}
