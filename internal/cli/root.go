package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/warden/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// This is set during PersistentPreRunE and should be accessed via Logger.
// Access is protected by globalLoggerMu for thread safety.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// Logger returns the initialized logger for use by subcommands.
//
// IMPORTANT: This function MUST only be called after the root command's
// PersistentPreRunE has executed. Calling it before initialization will
// return a zero-value logger that discards all log output.
func Logger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// newRootCmd creates and returns the root command for the warden CLI.
// This function-based approach avoids package-level globals, making the
// code more testable.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "warden",
		Short:   "WARDEN - governance control plane for multi-agent delivery",
		Long:    "WARDEN coordinates governed work packets through a committed lifecycle:\nclaims, preflight, review, evidence-bearing completion, and a tamper-evident\naudit trail verified by the deterministic commitment layer.",
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			globalLoggerMu.Lock()
			globalLogger = InitLogger(flags.Verbose, flags.Quiet)
			logger := globalLogger
			globalLoggerMu.Unlock()

			if flags.Verbose {
				logger.Debug().Msg("verbose mode enabled")
			}
			return nil
		},
		// SilenceUsage prevents printing usage on error
		// (we handle our own error messages)
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddInitCommand(cmd, flags)
	AddReadyCommand(cmd, flags)
	AddStatusCommand(cmd, flags)
	AddClaimCommand(cmd, flags)
	AddPreflightCommands(cmd, flags)
	AddHeartbeatCommand(cmd, flags)
	AddCheckStalledCommand(cmd, flags)
	AddDoneCommand(cmd, flags)
	AddReviewCommands(cmd, flags)
	AddFailCommand(cmd, flags)
	AddResetCommand(cmd, flags)
	AddNoteCommand(cmd, flags)
	AddCloseoutCommand(cmd, flags)
	AddVerifyCommand(cmd, flags)
	AddHistoryCommand(cmd, flags)
	AddExportProofCommand(cmd, flags)
	AddCheckpointCommand(cmd, flags)
	AddDoctorCommand(cmd, flags)
	AddLogCommand(cmd, flags)
	AddRiskCommand(cmd, flags)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}
