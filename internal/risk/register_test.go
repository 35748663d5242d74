package risk

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
)

func TestLoad_MissingFileIsEmptyRegister(t *testing.T) {
	s := NewStore(t.TempDir())

	reg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, reg.Entries)
}

func TestAppend_OpensEntries(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)

	added, err := s.Append(ctx, "PKT-A", []domain.ResidualRiskDeclaration{
		{Severity: constants.RiskSeverityHigh, Description: "race on shutdown", Owner: "alice"},
		{Severity: constants.RiskSeverityLow, Description: "log noise"},
	}, now)
	require.NoError(t, err)
	require.Len(t, added, 2)

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reg.Entries, 2)
	assert.Equal(t, constants.RiskStatusOpen, reg.Entries[0].Status)
	assert.Equal(t, "PKT-A", reg.Entries[0].PacketID)
	assert.NotEmpty(t, reg.Entries[0].ID)
	assert.True(t, reg.Entries[0].OpenedAt.Equal(now))
}

func TestAppend_AccumulatesAcrossCalls(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()
	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC)

	_, err := s.Append(ctx, "PKT-A", []domain.ResidualRiskDeclaration{
		{Severity: constants.RiskSeverityMedium, Description: "first"},
	}, now)
	require.NoError(t, err)
	_, err = s.Append(ctx, "PKT-B", []domain.ResidualRiskDeclaration{
		{Severity: constants.RiskSeverityCritical, Description: "second"},
	}, now.Add(time.Hour))
	require.NoError(t, err)

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reg.Entries, 2)
	assert.Equal(t, "first", reg.Entries[0].Description)
	assert.Equal(t, "second", reg.Entries[1].Description)
}

func TestAppend_EmptyDeclarationsIsNoOp(t *testing.T) {
	s := NewStore(t.TempDir())

	added, err := s.Append(context.Background(), "PKT-A", nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, added)
}
