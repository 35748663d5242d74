package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddVerifyCommand registers the verify command.
func AddVerifyCommand(parent *cobra.Command, flags *GlobalFlags) {
	var all bool

	cmd := &cobra.Command{
		Use:   "verify [packet_id]",
		Short: "Verify commit chains against live state",
		Long: "Recomputes commit hashes, checks hash links and state continuity, and\n" +
			"binds HEAD to the live runtime state. With --all, verifies every packet\n" +
			"plus the latest project checkpoint.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			if all || len(args) == 0 {
				report, err := g.verifier.VerifyAll(ctx)
				if err != nil {
					return err
				}
				if flags.Output == OutputJSON {
					if err := printJSON(cmd, report); err != nil {
						return err
					}
				} else {
					cmd.Printf("packets: %d  commits: %d  checkpoints: %d  ok: %v\n",
						report.PacketCount, report.CommitCount, report.CheckpointCount, report.OK)
					for _, f := range report.Failures {
						cmd.Printf("  FAIL %-12s seq %d  %s: %s\n", f.PacketID, f.Seq, f.Kind, f.Message)
					}
				}
				if !report.OK {
					return fmt.Errorf("%w: %d failure(s)", wardenerrors.ErrIntegrityFailure, len(report.Failures))
				}
				return nil
			}

			report, err := g.verifier.VerifyPacket(ctx, args[0])
			if err != nil {
				return err
			}
			if flags.Output == OutputJSON {
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			} else {
				cmd.Printf("packet %s  commits: %d  ok: %v\n", report.PacketID, report.CommitCount, report.OK)
				for _, f := range report.Failures {
					cmd.Printf("  FAIL seq %d  %s: %s\n", f.Seq, f.Kind, f.Message)
				}
			}
			if !report.OK {
				return fmt.Errorf("%w: %d failure(s)", wardenerrors.ErrIntegrityFailure, len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "verify every packet and the latest checkpoint")
	parent.AddCommand(cmd)
}

// AddHistoryCommand registers the history command.
func AddHistoryCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "history <packet_id>",
		Short: "Show a packet's commit chain with recomputed hashes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			entries, err := g.verifier.History(args[0])
			if err != nil {
				return err
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, entries)
			}
			for _, e := range entries {
				marker := "ok"
				if !e.OK {
					marker = "DIVERGED"
				}
				cmd.Printf("%06d  %-20s %-10s %s  %s\n",
					e.Commit.Seq, e.Commit.ActionEnvelope.Event, e.Commit.ActionEnvelope.Actor,
					e.Commit.CommitHash[:12], marker)
			}
			return nil
		},
	}
	parent.AddCommand(cmd)
}

// AddExportProofCommand registers the export-proof command.
func AddExportProofCommand(parent *cobra.Command, flags *GlobalFlags) {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export-proof <packet_id>",
		Short: "Export a sealed proof archive for a packet",
		Long: "Writes a zip archive containing the definition excerpt, the full commit\n" +
			"chain, the constitution snapshot, and the current runtime state, sealed\n" +
			"by a manifest bundle hash.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			def, err := g.def.Packet(args[0])
			if err != nil {
				return err
			}
			manifest, err := g.verifier.ExportProof(ctx, g.cfg.Root, def, outPath, time.Now())
			if err != nil {
				return err
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, manifest)
			}
			cmd.Printf("proof for %s written to %s (bundle %s)\n",
				args[0], outPath, manifest.BundleHash[:12])
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output archive path")
	_ = cmd.MarkFlagRequired("out")
	parent.AddCommand(cmd)
}
