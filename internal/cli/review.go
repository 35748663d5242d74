package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddReviewCommands registers review-claim and review-submit.
func AddReviewCommands(parent *cobra.Command, flags *GlobalFlags) {
	claim := &cobra.Command{
		Use:   "review-claim <packet_id> <reviewer>",
		Short: "Claim a packet's review",
		Long:  "Assigns a reviewer. The reviewer must not be the executor.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.ReviewClaim(ctx, args[0], args[1])
			return emitResult(cmd, flags, st, "review claimed for "+args[0], err)
		},
	}
	parent.AddCommand(claim)

	var assessmentArg string
	submit := &cobra.Command{
		Use:   "review-submit <packet_id> <reviewer> <verdict>",
		Short: "Submit a review verdict",
		Long: "Renders APPROVE, REJECT, or ESCALATE with a structured assessment\n" +
			"carrying exit_criteria_assessment, findings, and risk_flags.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			verdict, err := parseVerdict(args[2])
			if err != nil {
				return err
			}
			var assessment domain.ReviewAssessment
			if err := decodeJSONArg(assessmentArg, &assessment); err != nil {
				return err
			}

			st, err := g.engine.ReviewSubmit(ctx, args[0], args[1], verdict, &assessment)
			return emitResult(cmd, flags, st, "review submitted for "+args[0], err)
		},
	}
	submit.Flags().StringVar(&assessmentArg, "assessment", "", "assessment JSON (inline, or @file)")
	_ = submit.MarkFlagRequired("assessment")
	parent.AddCommand(submit)
}

// parseVerdict validates the verdict argument.
func parseVerdict(arg string) (constants.ReviewVerdict, error) {
	switch constants.ReviewVerdict(strings.ToUpper(arg)) {
	case constants.VerdictApprove:
		return constants.VerdictApprove, nil
	case constants.VerdictReject:
		return constants.VerdictReject, nil
	case constants.VerdictEscalate:
		return constants.VerdictEscalate, nil
	default:
		return "", fmt.Errorf("%w: %q (want APPROVE, REJECT, or ESCALATE)",
			wardenerrors.ErrInvalidVerdict, arg)
	}
}
