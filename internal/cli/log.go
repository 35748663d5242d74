package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddLogCommand registers the log command.
func AddLogCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "log [N]",
		Short: "Show the last N lifecycle log entries",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			limit := 20
			if len(args) == 1 {
				limit, err = strconv.Atoi(args[0])
				if err != nil || limit <= 0 {
					return wardenerrors.Wrapf(wardenerrors.ErrUsage, "invalid entry count %q", args[0])
				}
			}

			doc, err := g.engine.Snapshot(ctx)
			if err != nil {
				return err
			}
			entries := doc.Log
			if len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}

			if flags.Output == OutputJSON {
				return printJSON(cmd, entries)
			}
			for _, entry := range entries {
				target := entry.PacketID
				if target == "" {
					target = entry.AreaID
				}
				cmd.Printf("%s  %-22s %-12s %s\n",
					entry.Timestamp.Format("2006-01-02T15:04:05Z"), entry.Event, target, entry.Actor)
			}
			return nil
		},
	}
	parent.AddCommand(cmd)
}
