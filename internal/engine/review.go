package engine

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// ReviewClaim assigns a reviewer to a packet in review. The reviewer must
// differ from the executor: two-person integrity.
func (e *Engine) ReviewClaim(ctx context.Context, packetID, reviewer string) (*domain.PacketRuntimeState, error) {
	return e.apply(ctx, packetID, constants.EventReviewClaimed, reviewer, applyOpts{}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusReview {
			return nil, fmt.Errorf("%w: packet %s is %s, review-claim requires review",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if reviewer == st.AssignedTo {
			return nil, fmt.Errorf("%w: %s cannot review their own work on %s",
				wardenerrors.ErrIdentityConflict, reviewer, packetID)
		}
		st.Reviewer = reviewer
		return nil, nil
	})
}

// ReviewSubmit records the reviewer's verdict and assessment.
//
//	APPROVE → done (dependency gate recomputes)
//	REJECT  → in_progress, cycle count incremented; exceeding the maximum
//	          escalates instead
//	ESCALATE → escalated
func (e *Engine) ReviewSubmit(ctx context.Context, packetID, reviewer string, verdict constants.ReviewVerdict, assessment *domain.ReviewAssessment) (*domain.PacketRuntimeState, error) {
	event := constants.EventReviewSubmitted
	return e.apply(ctx, packetID, event, reviewer, applyOpts{
		propagate: true,
		inputs:    map[string]any{"verdict": string(verdict), "assessment": assessment},
	}, func(_ *domain.StateDocument, st *domain.PacketRuntimeState, _ *domain.PacketDefinition) (map[string]any, error) {
		if st.Status != constants.StatusReview {
			return nil, fmt.Errorf("%w: packet %s is %s, review-submit requires review",
				wardenerrors.ErrWrongStatus, packetID, st.Status)
		}
		if reviewer == st.AssignedTo {
			return nil, fmt.Errorf("%w: %s cannot review their own work on %s",
				wardenerrors.ErrIdentityConflict, reviewer, packetID)
		}
		if st.Reviewer != "" && reviewer != st.Reviewer {
			return nil, fmt.Errorf("%w: review of %s is claimed by %s",
				wardenerrors.ErrIdentityConflict, packetID, st.Reviewer)
		}
		if !assessment.Complete() {
			return nil, fmt.Errorf("%w: review assessment requires exit_criteria_assessment, findings, risk_flags",
				wardenerrors.ErrInvalidPayload)
		}

		stored := assessment.Clone()
		stored.Verdict = verdict
		st.Review = &stored

		switch verdict {
		case constants.VerdictApprove:
			e.transition(st, constants.StatusDone, event, reviewer, "review approved")
		case constants.VerdictReject:
			st.ReviewCycles++
			if st.ReviewCycles >= constants.MaxReviewCycles {
				e.transition(st, constants.StatusEscalated, event, reviewer, "review cycles exhausted")
			} else {
				e.transition(st, constants.StatusInProgress, event, reviewer, "review rejected")
				st.Reviewer = ""
			}
		case constants.VerdictEscalate:
			e.transition(st, constants.StatusEscalated, event, reviewer, "review escalated")
		default:
			return nil, fmt.Errorf("%w: %q", wardenerrors.ErrInvalidVerdict, verdict)
		}

		return map[string]any{"verdict": string(verdict), "cycles": st.ReviewCycles}, nil
	})
}
