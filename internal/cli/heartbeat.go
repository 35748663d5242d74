package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/domain"
)

// AddHeartbeatCommand registers the heartbeat command.
func AddHeartbeatCommand(parent *cobra.Command, flags *GlobalFlags) {
	var payloadArg string

	cmd := &cobra.Command{
		Use:   "heartbeat <packet_id> <actor>",
		Short: "Record an executor liveness report",
		Long: "Updates the packet's heartbeat. A heartbeat on a stalled packet resumes\n" +
			"it (and commits); on an in_progress packet it records the payload only.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			var payload domain.HeartbeatPayload
			if err := decodeJSONArg(payloadArg, &payload); err != nil {
				return err
			}

			st, err := g.engine.Heartbeat(ctx, args[0], args[1], &payload)
			return emitResult(cmd, flags, st, "heartbeat recorded for "+args[0], err)
		},
	}
	cmd.Flags().StringVar(&payloadArg, "payload", "", "payload JSON (inline, or @file)")
	_ = cmd.MarkFlagRequired("payload")
	parent.AddCommand(cmd)
}

// AddCheckStalledCommand registers the check-stalled command.
func AddCheckStalledCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "check-stalled",
		Short: "Run the observer sweep for stalled work and expired preflights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			result, err := g.engine.CheckStalled(ctx)
			if err != nil {
				return emitResult(cmd, flags, nil, "", err)
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, result)
			}
			cmd.Printf("stalled: %d  preflight returned: %d\n",
				len(result.Stalled), len(result.PreflightReturned))
			for _, id := range result.Stalled {
				cmd.Println("  stalled: " + id)
			}
			for _, id := range result.PreflightReturned {
				cmd.Println("  preflight returned: " + id)
			}
			return nil
		},
	}
	parent.AddCommand(cmd)
}
