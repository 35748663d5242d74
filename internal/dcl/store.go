// Package dcl implements the deterministic commitment layer: per-packet
// hash-linked commit chains, HEAD pointers, the journaled write protocol,
// and crash recovery.
//
// Layout under the governance root:
//
//	dcl/
//	  dcl-config.json
//	  packets/<packet_id>/
//	    HEAD
//	    journal.json            # transient
//	    commits/000001.json ... NNNNNN.json
//	  project-checkpoints/<checkpoint_id>.json
package dcl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/fsafe"
)

// lockFileName is the per-packet advisory lock file inside the packet's
// DCL directory.
const lockFileName = "lock"

// journalRetryDelay is how long a lock-free reader waits before retrying
// when it observes a transiently present journal.
const journalRetryDelay = 100 * time.Millisecond

// Store persists per-packet commit chains under <root>/dcl.
type Store struct {
	root        string
	lockTimeout time.Duration
}

// NewStore creates a commit store rooted at the governance root directory.
func NewStore(root string) *Store {
	return &Store{root: root, lockTimeout: constants.DefaultLockTimeout}
}

// Dir returns the dcl directory.
func (s *Store) Dir() string {
	return filepath.Join(s.root, constants.DclDirName)
}

// PacketDir returns the DCL directory of one packet.
func (s *Store) PacketDir(packetID string) string {
	return filepath.Join(s.Dir(), constants.PacketsDirName, packetID)
}

// commitsDir returns the commits directory of one packet.
func (s *Store) commitsDir(packetID string) string {
	return filepath.Join(s.PacketDir(packetID), constants.CommitsDirName)
}

// commitPath returns the file path of one commit.
func (s *Store) commitPath(packetID string, seq int) string {
	name := fmt.Sprintf("%0*d.json", constants.CommitSeqWidth, seq)
	return filepath.Join(s.commitsDir(packetID), name)
}

// headPath returns the HEAD file path of one packet.
func (s *Store) headPath(packetID string) string {
	return filepath.Join(s.PacketDir(packetID), constants.HeadFileName)
}

// journalPath returns the journal file path of one packet.
func (s *Store) journalPath(packetID string) string {
	return filepath.Join(s.PacketDir(packetID), constants.JournalFileName)
}

// LockPacket acquires the per-packet advisory lock. All mutation of a
// packet's chain and runtime state happens under this lock.
func (s *Store) LockPacket(ctx context.Context, packetID string) (*fsafe.Lock, error) {
	return fsafe.Acquire(ctx, filepath.Join(s.PacketDir(packetID), lockFileName), s.lockTimeout)
}

// Head returns the packet's HEAD pointer, or nil when the packet has no
// chain yet (GENESIS position).
func (s *Store) Head(packetID string) (*domain.Head, error) {
	data, err := os.ReadFile(s.headPath(packetID)) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wardenerrors.Wrapf(err, "failed to read HEAD for %s", packetID)
	}
	var head domain.Head
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: HEAD for %s: %v", wardenerrors.ErrHeadDrift, packetID, err)
	}
	return &head, nil
}

// Journal returns the packet's journal, or nil when none is present.
func (s *Store) Journal(packetID string) (*domain.Journal, error) {
	data, err := os.ReadFile(s.journalPath(packetID)) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, wardenerrors.Wrapf(err, "failed to read journal for %s", packetID)
	}
	var j domain.Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", wardenerrors.ErrJournalCorrupted, packetID, err)
	}
	return &j, nil
}

// Append executes the journaled write protocol for a fully populated commit.
// The caller MUST hold the packet lock.
//
//  1. Read HEAD (GENESIS if absent) and check the commit extends it.
//  2. Write journal {phase: prepare, target_seq, payload_hash}.
//  3. Write commits/<seq>.json atomically.
//  4. Update HEAD atomically.
//  5. Set journal phase to done, then unlink it.
func (s *Store) Append(commit *domain.DclCommit) error {
	head, err := s.Head(commit.PacketID)
	if err != nil {
		return err
	}

	nextSeq := 1
	prevHash := constants.GenesisHash
	if head != nil {
		nextSeq = head.Seq + 1
		prevHash = head.CommitHash
	}
	if commit.Seq != nextSeq {
		return fmt.Errorf("%w: packet %s expects seq %d, commit has %d",
			wardenerrors.ErrSeqDiscontinuity, commit.PacketID, nextSeq, commit.Seq)
	}
	if commit.PrevCommitHash != prevHash {
		return fmt.Errorf("%w: packet %s seq %d", wardenerrors.ErrPrevHashMismatch,
			commit.PacketID, commit.Seq)
	}

	if err := os.MkdirAll(s.commitsDir(commit.PacketID), constants.DirPerm); err != nil {
		return wardenerrors.Wrap(err, "failed to create commits directory")
	}

	if err := s.writeJournal(commit.PacketID, &domain.Journal{
		Phase:       domain.JournalPhasePrepare,
		TargetSeq:   commit.Seq,
		PayloadHash: commit.CommitHash,
	}); err != nil {
		return err
	}

	data, err := json.MarshalIndent(commit, "", "  ")
	if err != nil {
		return wardenerrors.Wrap(err, "failed to marshal commit")
	}
	if err := fsafe.WriteFileRetry(s.commitPath(commit.PacketID, commit.Seq), data); err != nil {
		return err
	}

	if err := s.writeHead(commit.PacketID, &domain.Head{
		Seq:           commit.Seq,
		CommitHash:    commit.CommitHash,
		PostStateHash: commit.PostStateHash,
	}); err != nil {
		return err
	}

	if err := s.writeJournal(commit.PacketID, &domain.Journal{
		Phase:       domain.JournalPhaseDone,
		TargetSeq:   commit.Seq,
		PayloadHash: commit.CommitHash,
	}); err != nil {
		return err
	}
	return fsafe.RemoveFile(s.journalPath(commit.PacketID))
}

// writeJournal persists the journal atomically.
func (s *Store) writeJournal(packetID string, j *domain.Journal) error {
	if err := os.MkdirAll(s.PacketDir(packetID), constants.DirPerm); err != nil {
		return wardenerrors.Wrap(err, "failed to create packet directory")
	}
	data, err := json.Marshal(j)
	if err != nil {
		return wardenerrors.Wrap(err, "failed to marshal journal")
	}
	return fsafe.WriteFileRetry(s.journalPath(packetID), data)
}

// writeHead persists HEAD atomically.
func (s *Store) writeHead(packetID string, head *domain.Head) error {
	data, err := json.Marshal(head)
	if err != nil {
		return wardenerrors.Wrap(err, "failed to marshal HEAD")
	}
	return fsafe.WriteFileRetry(s.headPath(packetID), data)
}

// Commit reads one commit by sequence number.
func (s *Store) Commit(packetID string, seq int) (*domain.DclCommit, error) {
	data, err := os.ReadFile(s.commitPath(packetID, seq)) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("commit %d for packet %s: %w", seq, packetID, wardenerrors.ErrNotFound)
		}
		return nil, wardenerrors.Wrapf(err, "failed to read commit %d for %s", seq, packetID)
	}
	var c domain.DclCommit
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: packet %s seq %d: %v", wardenerrors.ErrCommitCorrupted, packetID, seq, err)
	}
	return &c, nil
}

// Commits reads the packet's full chain ordered by sequence number.
// Reads are lock-free but must tolerate a transiently present journal:
// when one is observed the read retries once after a short delay.
func (s *Store) Commits(packetID string) ([]*domain.DclCommit, error) {
	for attempt := 0; ; attempt++ {
		j, err := s.Journal(packetID)
		if err != nil {
			return nil, err
		}
		if j == nil || attempt > 0 {
			break
		}
		// Write in progress; give the writer one window to finish.
		time.Sleep(journalRetryDelay)
	}

	entries, err := os.ReadDir(s.commitsDir(packetID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.DclCommit{}, nil
		}
		return nil, wardenerrors.Wrapf(err, "failed to list commits for %s", packetID)
	}

	seqs := make([]int, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var seq int
		if _, err := fmt.Sscanf(entry.Name(), "%d.json", &seq); err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)

	commits := make([]*domain.DclCommit, 0, len(seqs))
	for _, seq := range seqs {
		c, err := s.Commit(packetID, seq)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

// PacketIDs lists every packet that has a DCL directory, sorted.
func (s *Store) PacketIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.Dir(), constants.PacketsDirName))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, wardenerrors.Wrap(err, "failed to list packet directories")
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			ids = append(ids, entry.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// NextCommit builds the skeleton of the next commit for a packet: sequence
// number and previous-hash link filled from HEAD. The caller completes the
// hashes and envelope before Append.
func (s *Store) NextCommit(packetID string) (*domain.DclCommit, error) {
	head, err := s.Head(packetID)
	if err != nil {
		return nil, err
	}
	c := &domain.DclCommit{
		PacketID:       packetID,
		Seq:            1,
		PrevCommitHash: constants.GenesisHash,
	}
	if head != nil {
		c.Seq = head.Seq + 1
		c.PrevCommitHash = head.CommitHash
	}
	return c, nil
}

// Seal computes and stores the commit's hash over its canonical form with
// the commit_hash field empty.
func Seal(c *domain.DclCommit) error {
	hash, err := canonical.Hash(c.HashScope())
	if err != nil {
		return err
	}
	c.CommitHash = hash
	return nil
}
