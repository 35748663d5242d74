package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/domain"
)

// buildIndex creates the X ← Y ← Z chain plus an independent packet W.
func buildIndex(t *testing.T) *definition.Index {
	t.Helper()
	idx, err := definition.Build(&domain.Definition{
		SchemaVersion: 1,
		Areas:         []domain.WorkArea{{ID: "core", Title: "Core"}},
		Packets: []domain.PacketDefinition{
			{ID: "X", WbsRef: "1.1", AreaID: "core", Title: "X"},
			{ID: "Y", WbsRef: "1.2", AreaID: "core", Title: "Y", Dependencies: []string{"X"}},
			{ID: "Z", WbsRef: "1.3", AreaID: "core", Title: "Z", Dependencies: []string{"Y"}},
			{ID: "W", WbsRef: "1.4", AreaID: "core", Title: "W"},
		},
	})
	require.NoError(t, err)
	return idx
}

func TestReadyList_OrderingAndGating(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()

	ids := packetIDs(ReadyList(idx, doc))
	// Y and Z wait on dependencies; order is (area_id, wbs_ref).
	assert.Equal(t, []string{"X", "W"}, ids)
}

func TestReadyList_DependencyUnlocks(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()

	doc.Packet("X").Status = constants.StatusDone
	ids := packetIDs(ReadyList(idx, doc))
	assert.Equal(t, []string{"Y", "W"}, ids)

	doc.Packet("Y").Status = constants.StatusDone
	ids = packetIDs(ReadyList(idx, doc))
	assert.Equal(t, []string{"Z", "W"}, ids)
}

func TestReady_ClaimedPacketNotReady(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()
	doc.Packet("X").Status = constants.StatusInProgress

	p, err := idx.Packet("X")
	require.NoError(t, err)
	assert.False(t, Ready(idx, doc, p))
}

func TestRecompute_FailurePropagatesTransitively(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()
	doc.Packet("X").Status = constants.StatusFailed

	changes := Recompute(idx, doc)

	require.Len(t, changes, 2)
	assert.Equal(t, constants.StatusBlocked, doc.Packet("Y").Status)
	assert.Equal(t, constants.StatusBlocked, doc.Packet("Z").Status)
	assert.Equal(t, constants.StatusPending, doc.Packet("W").Status)
}

func TestRecompute_UnblocksWhenDependencyRecovers(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()
	doc.Packet("X").Status = constants.StatusFailed
	Recompute(idx, doc)
	require.Equal(t, constants.StatusBlocked, doc.Packet("Z").Status)

	// Supervisor reset put X back to pending.
	doc.Packet("X").Status = constants.StatusPending
	changes := Recompute(idx, doc)

	require.Len(t, changes, 2)
	assert.Equal(t, constants.StatusPending, doc.Packet("Y").Status)
	assert.Equal(t, constants.StatusPending, doc.Packet("Z").Status)
}

func TestRecompute_NoChangesIsStable(t *testing.T) {
	idx := buildIndex(t)
	doc := domain.NewStateDocument()

	assert.Empty(t, Recompute(idx, doc))
}

// packetIDs projects definitions to their ids.
func packetIDs(packets []*domain.PacketDefinition) []string {
	ids := make([]string, 0, len(packets))
	for _, p := range packets {
		ids = append(ids, p.ID)
	}
	return ids
}
