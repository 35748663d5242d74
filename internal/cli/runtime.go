package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mrz1836/warden/internal/config"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/doctor"
	"github.com/mrz1836/warden/internal/engine"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/metrics"
	"github.com/mrz1836/warden/internal/risk"
	"github.com/mrz1836/warden/internal/state"
	"github.com/mrz1836/warden/internal/verify"
)

// governance bundles the opened control plane for one command invocation.
type governance struct {
	cfg      *config.Config
	def      *definition.Index
	states   *state.FileStore
	commits  *dcl.Store
	metrics  *metrics.Metrics
	verifier *verify.Verifier
	doctor   *doctor.Doctor
	engine   *engine.Engine
}

// openGovernance loads config, the definition, and all stores, constructs
// the engine, and runs the startup doctor gate for mutating commands.
//
// Strict mode (config or WARDEN_STRICT) aborts on any doctor failure.
// Fail-open mode serves reads but flips the engine read-only so every
// mutation is refused until the integrity failure is resolved.
func openGovernance(ctx context.Context, flags *GlobalFlags, mutating bool) (*governance, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if flags.Root != "" {
		cfg.Root = flags.Root
	}

	def, err := definition.Load(filepath.Join(cfg.Root, constants.DefinitionFileName))
	if err != nil {
		return nil, err
	}

	logger := Logger()
	states := state.NewFileStore(cfg.Root)
	commits := dcl.NewStore(cfg.Root)
	m := metrics.New()
	verifier := verify.New(commits, states, m)
	doc := doctor.New(commits, states, verifier, m, logger)

	eng, err := engine.New(engine.Options{
		Root:       cfg.Root,
		Definition: def,
		States:     states,
		Commits:    commits,
		Logger:     logger,
		Metrics:    m,
		Risks:      risk.NewStore(cfg.Root),
		Timeouts: engine.Timeouts{
			PreflightTimeout:  cfg.PreflightTimeout,
			StallThreshold:    cfg.StallThreshold,
			HeartbeatInterval: cfg.HeartbeatInterval,
		},
	})
	if err != nil {
		return nil, err
	}

	g := &governance{
		cfg:      cfg,
		def:      def,
		states:   states,
		commits:  commits,
		metrics:  m,
		verifier: verifier,
		doctor:   doc,
		engine:   eng,
	}

	if mutating {
		if err := g.startupGate(ctx); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// startupGate runs the fast doctor before any mutation.
func (g *governance) startupGate(ctx context.Context) error {
	report, err := g.doctor.Run(ctx, doctor.ModeFast)
	if err != nil {
		return err
	}
	if report.OK {
		return nil
	}
	if g.cfg.Strict {
		return fmt.Errorf("%w: startup doctor found %d failure(s); aborting (strict mode)",
			wardenerrors.ErrIntegrityFailure, len(report.Failures))
	}
	// Fail-open: serve but refuse mutation.
	g.engine.SetReadOnly(true)
	logger := Logger()
	logger.Error().
		Int("failures", len(report.Failures)).
		Msg("startup doctor failed; refusing mutations until resolved")
	return nil
}
