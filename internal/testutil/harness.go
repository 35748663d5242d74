// Package testutil provides shared helpers for tests that need a fully
// wired governance root: constitution, definition, state document, commit
// store, and an engine over them.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/clock"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/domain"
	"github.com/mrz1836/warden/internal/engine"
	"github.com/mrz1836/warden/internal/metrics"
	"github.com/mrz1836/warden/internal/risk"
	"github.com/mrz1836/warden/internal/state"
)

// Epoch is the mock clock's starting time.
var Epoch = time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // Shared test fixture

// Harness is a fully wired governance root for tests.
type Harness struct {
	Root    string
	Engine  *engine.Engine
	Clock   *clock.Mock
	States  *state.FileStore
	Commits *dcl.Store
	Metrics *metrics.Metrics
	Def     *definition.Index
}

// NewHarness builds a governance root in a temp dir with the given packets
// in one "core" area.
func NewHarness(t *testing.T, packets []domain.PacketDefinition) *Harness {
	t.Helper()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, constants.ConstitutionFileName),
		[]byte("governance rules v1\n"), 0o600))

	idx, err := definition.Build(&domain.Definition{
		SchemaVersion: 1,
		Areas:         []domain.WorkArea{{ID: "core", Title: "Core"}},
		Packets:       packets,
	})
	require.NoError(t, err)

	states := state.NewFileStore(root)
	require.NoError(t, states.Save(context.Background(), domain.NewStateDocument()))

	commits := dcl.NewStore(root)
	require.NoError(t, commits.WriteConfigLock())

	mock := clock.NewMock(Epoch)
	m := metrics.New()
	eng, err := engine.New(engine.Options{
		Root:       root,
		Definition: idx,
		States:     states,
		Commits:    commits,
		Clock:      mock,
		Logger:     zerolog.Nop(),
		Metrics:    m,
		Risks:      risk.NewStore(root),
	})
	require.NoError(t, err)

	return &Harness{
		Root:    root,
		Engine:  eng,
		Clock:   mock,
		States:  states,
		Commits: commits,
		Metrics: m,
		Def:     idx,
	}
}

// SimplePackets returns packet A plus B depending on A, no gates.
func SimplePackets() []domain.PacketDefinition {
	return []domain.PacketDefinition{
		{ID: "A", WbsRef: "1.1", AreaID: "core", Title: "Packet A"},
		{ID: "B", WbsRef: "1.2", AreaID: "core", Title: "Packet B", Dependencies: []string{"A"}},
	}
}

// NoneAck returns the "no residual risk" acknowledgment.
func NoneAck() *domain.ResidualRiskAck {
	return &domain.ResidualRiskAck{Ack: domain.RiskAckNone}
}
