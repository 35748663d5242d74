package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddDoneCommand registers the done command.
func AddDoneCommand(parent *cobra.Command, flags *GlobalFlags) {
	var riskAck string
	var riskArg string

	cmd := &cobra.Command{
		Use:   "done <packet_id> <actor> <evidence>",
		Short: "Complete a packet with evidence",
		Long: "Completes an in_progress packet. Evidence is mandatory. Residual risk is\n" +
			"acknowledged as none, or declared with structured entries via --risk-declared.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			ack := &domain.ResidualRiskAck{Ack: riskAck}
			if riskArg != "" {
				if ack.Ack != domain.RiskAckDeclared {
					return fmt.Errorf("%w: --risk-declared requires --risk declared", wardenerrors.ErrUsage)
				}
				if err := decodeJSONArg(riskArg, &ack.Declared); err != nil {
					return err
				}
			}

			st, err := g.engine.Done(ctx, args[0], args[1], args[2], ack)
			return emitResult(cmd, flags, st, "completed "+args[0], err)
		},
	}
	cmd.Flags().StringVar(&riskAck, "risk", domain.RiskAckNone, "residual risk acknowledgment (none|declared)")
	cmd.Flags().StringVar(&riskArg, "risk-declared", "", "declared risk entries JSON (inline, or @file)")
	parent.AddCommand(cmd)
}

// AddNoteCommand registers the note command.
func AddNoteCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "note <packet_id> <actor> <text>",
		Short: "Append to a packet's evidence narrative",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.Note(ctx, args[0], args[1], args[2])
			return emitResult(cmd, flags, st, "noted "+args[0], err)
		},
	}
	parent.AddCommand(cmd)
}
