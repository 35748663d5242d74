package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// AddCloseoutCommand registers the closeout-l2 command.
func AddCloseoutCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "closeout-l2 <area_id> <supervisor> <assessment-path> [notes]",
		Short: "Close out a completed work area",
		Long: "Requires every packet in the area to be done. Records the closeout in the\n" +
			"lifecycle log and snapshots every packet's HEAD into a project checkpoint.\n" +
			"The assessment document is YAML or JSON.",
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}

			assessment, err := loadAssessmentDocument(args[2])
			if err != nil {
				return err
			}
			notes := ""
			if len(args) == 4 {
				notes = args[3]
			}

			cp, err := g.engine.CloseoutL2(ctx, args[0], args[1], assessment, notes)
			if err != nil {
				return emitResult(cmd, flags, nil, "", err)
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, cp)
			}
			cmd.Printf("area %s closed out; checkpoint %s over %d packets\n",
				args[0], cp.CheckpointID, len(cp.HeadTable))
			return nil
		},
	}
	parent.AddCommand(cmd)
}

// loadAssessmentDocument reads a YAML (or JSON, a YAML subset) assessment.
func loadAssessmentDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wardenerrors.ErrUsage, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: assessment parse error: %v", wardenerrors.ErrUsage, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: assessment document is empty", wardenerrors.ErrUsage)
	}
	return doc, nil
}

// AddCheckpointCommand registers the checkpoint command.
func AddCheckpointCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "checkpoint <actor>",
		Short: "Snapshot every packet's HEAD into a project checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g, err := openGovernance(ctx, flags, true)
			if err != nil {
				return err
			}
			cp, err := g.engine.Checkpoint(ctx, args[0])
			if err != nil {
				return emitResult(cmd, flags, nil, "", err)
			}
			if flags.Output == OutputJSON {
				return printJSON(cmd, cp)
			}
			cmd.Printf("checkpoint %s over %d packets\n", cp.CheckpointID, len(cp.HeadTable))
			return nil
		},
	}
	parent.AddCommand(cmd)
}
