package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
)

func TestRecordAndSnapshot(t *testing.T) {
	m := New()

	m.RecordTransition(constants.EventClaimed)
	m.RecordTransition(constants.EventClaimed)
	m.RecordTransition(constants.EventCompleted)
	m.RecordCommit()
	m.RecordVerifyFailure()

	snap := m.Snapshot()
	require.NotEmpty(t, snap)
	assert.Equal(t, float64(2), snap["warden_transitions_total{event=claimed}"])
	assert.Equal(t, float64(1), snap["warden_transitions_total{event=completed}"])
	assert.Equal(t, float64(1), snap["warden_commits_total"])
	assert.Equal(t, float64(1), snap["warden_verify_failures_total"])
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordTransition(constants.EventClaimed)
	m.RecordCommit()
	m.RecordVerifyFailure()
	assert.Empty(t, m.Snapshot())
}

func TestIndependentRegistries(t *testing.T) {
	a := New()
	b := New()
	a.RecordCommit()

	assert.Equal(t, float64(1), a.Snapshot()["warden_commits_total"])
	assert.Equal(t, float64(0), b.Snapshot()["warden_commits_total"])
}
