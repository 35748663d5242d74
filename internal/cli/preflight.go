package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddPreflightCommands registers preflight, preflight-approve, and
// preflight-return.
func AddPreflightCommands(parent *cobra.Command, flags *GlobalFlags) {
	var assessmentArg string

	submit := &cobra.Command{
		Use:   "preflight <packet_id> <actor>",
		Short: "Submit a preflight assessment",
		Long: "Stores the executor's preflight assessment. The assessment must carry\n" +
			"context_confirmation, ambiguity_register, risk_flags, and execution_plan.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			var assessment domain.PreflightAssessment
			if err := decodeJSONArg(assessmentArg, &assessment); err != nil {
				return err
			}

			st, err := g.engine.SubmitPreflight(ctx, args[0], args[1], &assessment)
			return emitResult(cmd, flags, st, "preflight submitted for "+args[0], err)
		},
	}
	submit.Flags().StringVar(&assessmentArg, "assessment", "", "assessment JSON (inline, or @file)")
	_ = submit.MarkFlagRequired("assessment")
	parent.AddCommand(submit)

	approve := &cobra.Command{
		Use:   "preflight-approve <packet_id> <supervisor>",
		Short: "Approve a preflight assessment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.ApprovePreflight(ctx, args[0], args[1])
			return emitResult(cmd, flags, st, "preflight approved for "+args[0], err)
		},
	}
	parent.AddCommand(approve)

	ret := &cobra.Command{
		Use:   "preflight-return <packet_id> <supervisor>",
		Short: "Return a preflight packet to pending",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.ReturnPreflight(ctx, args[0], args[1])
			return emitResult(cmd, flags, st, "preflight returned for "+args[0], err)
		},
	}
	parent.AddCommand(ret)
}

// decodeJSONArg parses an inline JSON argument or, with a leading @, the
// named file's contents.
func decodeJSONArg(arg string, target any) error {
	if strings.TrimSpace(arg) == "" {
		return fmt.Errorf("%w: empty JSON argument", wardenerrors.ErrUsage)
	}
	data := []byte(arg)
	if strings.HasPrefix(arg, "@") {
		var err error
		data, err = os.ReadFile(arg[1:]) //#nosec G304 -- operator-supplied path
		if err != nil {
			return fmt.Errorf("%w: %v", wardenerrors.ErrUsage, err)
		}
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", wardenerrors.ErrUsage, err)
	}
	return nil
}
