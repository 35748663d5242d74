package dcl

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

// buildCommit constructs and seals a commit extending the packet's chain.
func buildCommit(t *testing.T, s *Store, packetID string, event constants.LifecycleEvent) *domain.DclCommit {
	t.Helper()

	c, err := s.NextCommit(packetID)
	require.NoError(t, err)

	now := time.Date(2026, 7, 30, 10, 0, 0, 0, time.UTC).Add(time.Duration(c.Seq) * time.Minute)
	c.CommitID = "commit-" + packetID + "-" + string(rune('0'+c.Seq))
	c.ActionHash = canonical.HashBytes([]byte("action"))
	c.PreStateHash = canonical.HashBytes([]byte{byte(c.Seq - 1)})
	c.PostStateHash = canonical.HashBytes([]byte{byte(c.Seq)})
	c.ConstitutionHash = canonical.HashBytes([]byte("constitution"))
	c.Diff = []domain.DiffOp{}
	c.CreatedAt = now
	c.ActionEnvelope = domain.ActionEnvelope{Event: event, Actor: "alice", Timestamp: now}
	require.NoError(t, Seal(c))
	return c
}

func TestAppend_BuildsChain(t *testing.T) {
	s := NewStore(t.TempDir())

	c1 := buildCommit(t, s, "PKT-A", constants.EventClaimed)
	require.NoError(t, s.Append(c1))
	c2 := buildCommit(t, s, "PKT-A", constants.EventCompleted)
	require.NoError(t, s.Append(c2))

	assert.Equal(t, 1, c1.Seq)
	assert.Equal(t, constants.GenesisHash, c1.PrevCommitHash)
	assert.Equal(t, 2, c2.Seq)
	assert.Equal(t, c1.CommitHash, c2.PrevCommitHash)

	head, err := s.Head("PKT-A")
	require.NoError(t, err)
	require.NotNil(t, head)
	assert.Equal(t, 2, head.Seq)
	assert.Equal(t, c2.CommitHash, head.CommitHash)
	assert.Equal(t, c2.PostStateHash, head.PostStateHash)

	commits, err := s.Commits("PKT-A")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, c1.CommitHash, commits[0].CommitHash)

	// The journal must be gone after a clean append.
	j, err := s.Journal("PKT-A")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestAppend_RejectsSeqGap(t *testing.T) {
	s := NewStore(t.TempDir())

	c := buildCommit(t, s, "PKT-A", constants.EventClaimed)
	c.Seq = 3
	require.NoError(t, Seal(c))

	err := s.Append(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrSeqDiscontinuity)
}

func TestAppend_RejectsPrevHashMismatch(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-A", constants.EventClaimed)))

	c := buildCommit(t, s, "PKT-A", constants.EventCompleted)
	c.PrevCommitHash = canonical.HashBytes([]byte("wrong"))
	require.NoError(t, Seal(c))

	err := s.Append(c)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrPrevHashMismatch)
}

func TestHead_AbsentIsGenesis(t *testing.T) {
	s := NewStore(t.TempDir())
	head, err := s.Head("PKT-A")
	require.NoError(t, err)
	assert.Nil(t, head)
}

func TestRecover_PrepareWithoutCommit_RollsBack(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-A", constants.EventClaimed)))

	// Simulate a crash right after the journal write: prepare phase, no
	// commit file at target_seq.
	require.NoError(t, s.writeJournal("PKT-A", &domain.Journal{
		Phase:       domain.JournalPhasePrepare,
		TargetSeq:   2,
		PayloadHash: canonical.HashBytes([]byte("never written")),
	}))

	action, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryRolledBack, action)

	head, err := s.Head("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, 1, head.Seq)

	j, err := s.Journal("PKT-A")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestRecover_PrepareWithValidCommit_CompletesAdvance(t *testing.T) {
	s := NewStore(t.TempDir())
	c1 := buildCommit(t, s, "PKT-A", constants.EventClaimed)
	require.NoError(t, s.Append(c1))

	// Simulate a crash after the commit file landed but before HEAD moved:
	// write commit 2 and a prepare journal by hand, leaving HEAD at 1.
	c2 := buildCommit(t, s, "PKT-A", constants.EventCompleted)
	data, err := json.MarshalIndent(c2, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.commitPath("PKT-A", 2), data, 0o600))
	require.NoError(t, s.writeJournal("PKT-A", &domain.Journal{
		Phase:       domain.JournalPhasePrepare,
		TargetSeq:   2,
		PayloadHash: c2.CommitHash,
	}))

	action, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryCompleted, action)

	head, err := s.Head("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, 2, head.Seq)
	assert.Equal(t, c2.CommitHash, head.CommitHash)

	// Chain length is N+1, never an inconsistent intermediate.
	commits, err := s.Commits("PKT-A")
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}

func TestRecover_DonePhase_Clears(t *testing.T) {
	s := NewStore(t.TempDir())
	c1 := buildCommit(t, s, "PKT-A", constants.EventClaimed)
	require.NoError(t, s.Append(c1))

	require.NoError(t, s.writeJournal("PKT-A", &domain.Journal{
		Phase:       domain.JournalPhaseDone,
		TargetSeq:   1,
		PayloadHash: c1.CommitHash,
	}))

	action, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryCleared, action)

	j, err := s.Journal("PKT-A")
	require.NoError(t, err)
	assert.Nil(t, j)
}

func TestRecover_NoJournal_NoAction(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-A", constants.EventClaimed)))

	action, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryNone, action)
}

func TestRecover_Idempotent(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.writeJournal("PKT-A", &domain.Journal{
		Phase:     domain.JournalPhasePrepare,
		TargetSeq: 1,
	}))

	first, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryRolledBack, first)

	second, err := s.Recover("PKT-A")
	require.NoError(t, err)
	assert.Equal(t, RecoveryNone, second)
}

func TestLockPacket_Exclusive(t *testing.T) {
	s := NewStore(t.TempDir())
	ctx := context.Background()

	lock, err := s.LockPacket(ctx, "PKT-A")
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())

	// Reacquire after release.
	lock, err = s.LockPacket(ctx, "PKT-A")
	require.NoError(t, err)
	require.NoError(t, lock.Unlock())
}

func TestConfigLock_RoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	// Missing lock refuses startup.
	err := s.CheckConfigLock()
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrConfigLockMissing)

	require.NoError(t, s.WriteConfigLock())
	require.NoError(t, s.CheckConfigLock())
}

func TestConfigLock_Mismatch(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.WriteConfigLock())

	bad := domain.CurrentDclConfig()
	bad.HashAlgorithm = "sha1"
	data, err := json.Marshal(bad)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.configPath(), data, 0o600))

	err = s.CheckConfigLock()
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrConfigLockMismatch)
}

func TestWriteCheckpoint_SnapshotsHeads(t *testing.T) {
	s := NewStore(t.TempDir())
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-A", constants.EventClaimed)))
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-B", constants.EventClaimed)))
	require.NoError(t, s.Append(buildCommit(t, s, "PKT-B", constants.EventCompleted)))

	cp, err := s.WriteCheckpoint(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, cp.HeadTable, 2)
	assert.Equal(t, 1, cp.HeadTable["PKT-A"].Seq)
	assert.Equal(t, 2, cp.HeadTable["PKT-B"].Seq)
	assert.NotEmpty(t, cp.CheckpointHash)

	latest, err := s.LatestCheckpoint()
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, cp.CheckpointID, latest.CheckpointID)
}
