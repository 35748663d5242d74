package cli

import (
	"github.com/spf13/cobra"
)

// AddFailCommand registers the fail command.
func AddFailCommand(parent *cobra.Command, flags *GlobalFlags) {
	var supervisor bool

	cmd := &cobra.Command{
		Use:   "fail <packet_id> <actor> <reason>",
		Short: "Mark a packet failed",
		Long: "Fails a packet in in_progress, preflight, review, or stalled. The assignee\n" +
			"may fail their own packet; anyone else must pass --supervisor. Dependents\n" +
			"recompute as blocked.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.Fail(ctx, args[0], args[1], args[2], supervisor)
			return emitResult(cmd, flags, st, "failed "+args[0], err)
		},
	}
	cmd.Flags().BoolVar(&supervisor, "supervisor", false, "act as supervisor")
	parent.AddCommand(cmd)
}

// AddResetCommand registers the reset command.
func AddResetCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "reset <packet_id> <supervisor>",
		Short: "Reset a failed, stalled, escalated, or preflight packet to pending",
		Long: "Lead-only. Reset appends a commit to the packet's chain; it never\n" +
			"rewrites history. Done packets are immutable and cannot be reset.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			st, err := g.engine.Reset(ctx, args[0], args[1])
			return emitResult(cmd, flags, st, "reset "+args[0], err)
		},
	}
	parent.AddCommand(cmd)
}
