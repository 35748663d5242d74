package cli

import (
	"github.com/spf13/cobra"
)

// AddClaimCommand registers the claim command.
func AddClaimCommand(parent *cobra.Command, flags *GlobalFlags) {
	var attestation []string

	cmd := &cobra.Command{
		Use:   "claim <packet_id> <actor>",
		Short: "Claim a ready packet",
		Long: "Assigns a pending packet to the actor. Dependencies must be done, and\n" +
			"required context manifest entries must be attested with --context-attestation.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			st, err := g.engine.Claim(ctx, args[0], args[1], attestation)
			return emitResult(cmd, flags, st, "claimed "+args[0], err)
		},
	}
	cmd.Flags().StringSliceVar(&attestation, "context-attestation", nil,
		"comma-separated manifest paths the actor attests to having read")
	parent.AddCommand(cmd)
}
