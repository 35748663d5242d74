package cli

import (
	"github.com/spf13/cobra"
)

// AddReadyCommand registers the ready command.
func AddReadyCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List packets ready to claim",
		Long:  "Enumerates claimable packets ordered by (area_id, wbs_ref).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			packets, err := g.engine.Ready(ctx)
			if err != nil {
				return err
			}

			if flags.Output == OutputJSON {
				return printJSON(cmd, packets)
			}
			if len(packets) == 0 {
				cmd.Println("no packets ready")
				return nil
			}
			for _, p := range packets {
				cmd.Printf("%-12s %-8s %s\n", p.ID, p.WbsRef, p.Title)
			}
			return nil
		},
	}
	parent.AddCommand(cmd)
}
