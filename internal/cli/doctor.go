package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/doctor"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddDoctorCommand registers the doctor command.
func AddDoctorCommand(parent *cobra.Command, flags *GlobalFlags) {
	var fast, full bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run the integrity runtime",
		Long: "Recovers journals, checks the DCL config lock, repairs half-applied\n" +
			"transitions, and verifies commit chains. --fast checks HEAD equality and\n" +
			"runtime bindings; --full recomputes every chain.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			// The doctor opens the plane without the startup gate: it IS
			// the gate.
			g, err := openGovernance(ctx, flags, false)
			if err != nil {
				return err
			}

			mode := doctor.ModeFast
			if full {
				mode = doctor.ModeFull
			}

			report, err := g.doctor.Run(ctx, mode)
			if err != nil {
				return err
			}

			if flags.Output == OutputJSON {
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			} else {
				cmd.Printf("mode: %s  ok: %v  packets: %d  commits: %d  checkpoints: %d\n",
					report.Mode, report.OK, report.PacketCount, report.CommitCount, report.CheckpointCount)
				for id, action := range report.Recovered {
					cmd.Printf("  recovered %s: %s\n", id, action)
				}
				for _, id := range report.Replayed {
					cmd.Printf("  replayed %s\n", id)
				}
				for _, f := range report.Failures {
					cmd.Printf("  FAIL %-12s %s: %s\n", f.PacketID, f.Kind, f.Message)
				}
			}

			if !report.OK {
				return fmt.Errorf("%w: doctor found %d failure(s)",
					wardenerrors.ErrIntegrityFailure, len(report.Failures))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fast, "fast", true, "journal recovery, HEAD equality, runtime bindings")
	cmd.Flags().BoolVar(&full, "full", false, "fast checks plus complete chain recomputation")
	cmd.MarkFlagsMutuallyExclusive("fast", "full")
	parent.AddCommand(cmd)
}
