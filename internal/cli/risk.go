package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/risk"
)

// AddRiskCommand registers the risk command group.
func AddRiskCommand(parent *cobra.Command, flags *GlobalFlags) {
	riskCmd := &cobra.Command{
		Use:   "risk",
		Short: "Inspect the residual risk register",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List residual risk entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			reg, err := risk.NewStore(g.cfg.Root).Load(ctx)
			if err != nil {
				return err
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, reg)
			}
			if len(reg.Entries) == 0 {
				cmd.Println("no residual risks recorded")
				return nil
			}
			for _, entry := range reg.Entries {
				cmd.Printf("%-10s %-12s %-10s %-12s %s\n",
					entry.Severity, entry.PacketID, entry.Status, entry.Owner, entry.Description)
			}
			return nil
		},
	}
	riskCmd.AddCommand(list)
	parent.AddCommand(riskCmd)
}
