package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/warden/internal/config"
	"github.com/mrz1836/warden/internal/engine"
)

// AddInitCommand registers the init command.
func AddInitCommand(parent *cobra.Command, flags *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "init <definition-path>",
		Short: "Initialize an empty governance root",
		Long: "Validates the definition document, requires a constitution, writes an\n" +
			"empty state document, and locks the DCL configuration.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if flags.Root != "" {
				cfg.Root = flags.Root
			}

			idx, err := engine.InitRoot(ctx, cfg.Root, args[0], time.Now())
			if err != nil {
				return emitResult(cmd, flags, nil, "", err)
			}
			logger := Logger()
			logger.Info().
				Str("root", cfg.Root).
				Int("packets", idx.Len()).
				Msg("governance root initialized")
			return emitResult(cmd, flags, nil,
				fmt.Sprintf("initialized governance root with %d packets", idx.Len()), nil)
		},
	}
	parent.AddCommand(cmd)
}
