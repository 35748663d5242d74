package dcl

import (
	"context"
	"fmt"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/fsafe"
)

// RecoveryAction describes what Recover did for one packet.
type RecoveryAction string

// Recovery actions.
const (
	// RecoveryNone means no journal was present; nothing to do.
	RecoveryNone RecoveryAction = "none"

	// RecoveryRolledBack means a prepare-phase journal with no valid commit
	// was discarded; HEAD unchanged.
	RecoveryRolledBack RecoveryAction = "rolled_back"

	// RecoveryCompleted means a prepare-phase journal with a valid commit
	// was completed by advancing HEAD.
	RecoveryCompleted RecoveryAction = "completed"

	// RecoveryCleared means a done-phase journal was unlinked; HEAD was
	// already correct.
	RecoveryCleared RecoveryAction = "cleared"
)

// Recover applies journal recovery for one packet. Idempotent; called at
// load and by the doctor. The caller should hold the packet lock when other
// writers may be live.
//
//   - journal phase=prepare, no valid commit at target_seq: roll back
//     (delete partial artifacts, leave HEAD unchanged).
//   - journal phase=prepare, valid commit present, HEAD not advanced:
//     complete the advance, clear the journal.
//   - journal phase=done: unlink; HEAD is already correct.
func (s *Store) Recover(packetID string) (RecoveryAction, error) {
	j, err := s.Journal(packetID)
	if err != nil {
		return RecoveryNone, err
	}
	if j == nil {
		return RecoveryNone, nil
	}

	if j.Phase == domain.JournalPhaseDone {
		if err := fsafe.RemoveFile(s.journalPath(packetID)); err != nil {
			return RecoveryNone, err
		}
		return RecoveryCleared, nil
	}

	if j.Phase != domain.JournalPhasePrepare {
		return RecoveryNone, fmt.Errorf("%w: packet %s has unknown journal phase %q",
			wardenerrors.ErrJournalCorrupted, packetID, j.Phase)
	}

	commit, err := s.Commit(packetID, j.TargetSeq)
	if err == nil && commitMatchesJournal(commit, j) {
		head, headErr := s.Head(packetID)
		if headErr != nil {
			return RecoveryNone, headErr
		}
		if head == nil || head.Seq < j.TargetSeq {
			// Commit landed, HEAD did not: finish the advance.
			if err := s.writeHead(packetID, &domain.Head{
				Seq:           commit.Seq,
				CommitHash:    commit.CommitHash,
				PostStateHash: commit.PostStateHash,
			}); err != nil {
				return RecoveryNone, err
			}
		}
		if err := fsafe.RemoveFile(s.journalPath(packetID)); err != nil {
			return RecoveryNone, err
		}
		return RecoveryCompleted, nil
	}

	// No valid commit at target_seq: roll the attempt back.
	if err := fsafe.RemoveFile(s.commitPath(packetID, j.TargetSeq)); err != nil {
		return RecoveryNone, err
	}
	if err := fsafe.RemoveFile(s.journalPath(packetID)); err != nil {
		return RecoveryNone, err
	}
	return RecoveryRolledBack, nil
}

// commitMatchesJournal verifies the commit file at the journal's target is
// intact: its stored hash matches the journal payload hash and recomputes
// from the canonical form.
func commitMatchesJournal(c *domain.DclCommit, j *domain.Journal) bool {
	if c.CommitHash == "" || c.CommitHash != j.PayloadHash {
		return false
	}
	recomputed, err := canonical.Hash(c.HashScope())
	if err != nil {
		return false
	}
	return recomputed == c.CommitHash
}

// RecoverAll runs journal recovery for every packet with a chain, taking
// each packet's lock in sorted id order.
func (s *Store) RecoverAll(ctx context.Context) (map[string]RecoveryAction, error) {
	ids, err := s.PacketIDs()
	if err != nil {
		return nil, err
	}
	actions := make(map[string]RecoveryAction, len(ids))
	for _, id := range ids {
		lock, err := s.LockPacket(ctx, id)
		if err != nil {
			return actions, err
		}
		action, err := s.Recover(id)
		unlockErr := lock.Unlock()
		if err != nil {
			return actions, err
		}
		if unlockErr != nil {
			return actions, unlockErr
		}
		if action != RecoveryNone {
			actions[id] = action
		}
	}
	return actions, nil
}
