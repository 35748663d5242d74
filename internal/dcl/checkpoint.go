package dcl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/warden/internal/canonical"
	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/fsafe"
)

// checkpointsDir returns the project-checkpoints directory.
func (s *Store) checkpointsDir() string {
	return filepath.Join(s.Dir(), constants.CheckpointsDirName)
}

// WriteCheckpoint snapshots every packet's HEAD into a new immutable
// project checkpoint and persists it. The caller should hold the global
// state lock so the snapshot is consistent.
func (s *Store) WriteCheckpoint(now time.Time) (*domain.ProjectCheckpoint, error) {
	ids, err := s.PacketIDs()
	if err != nil {
		return nil, err
	}

	table := make(map[string]domain.CheckpointHead, len(ids))
	for _, id := range ids {
		head, err := s.Head(id)
		if err != nil {
			return nil, err
		}
		if head == nil {
			continue
		}
		table[id] = domain.CheckpointHead{
			Seq:           head.Seq,
			CommitHash:    head.CommitHash,
			PostStateHash: head.PostStateHash,
		}
	}

	hash, err := canonical.Hash(table)
	if err != nil {
		return nil, err
	}

	cp := &domain.ProjectCheckpoint{
		CheckpointID:   uuid.NewString(),
		CreatedAt:      now.UTC().Truncate(time.Microsecond),
		HeadTable:      table,
		CheckpointHash: hash,
	}

	if err := os.MkdirAll(s.checkpointsDir(), constants.DirPerm); err != nil {
		return nil, wardenerrors.Wrap(err, "failed to create checkpoints directory")
	}
	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return nil, wardenerrors.Wrap(err, "failed to marshal checkpoint")
	}
	path := filepath.Join(s.checkpointsDir(), cp.CheckpointID+".json")
	if err := fsafe.WriteFileRetry(path, data); err != nil {
		return nil, err
	}
	return cp, nil
}

// Checkpoints returns every checkpoint ordered by creation time.
func (s *Store) Checkpoints() ([]*domain.ProjectCheckpoint, error) {
	entries, err := os.ReadDir(s.checkpointsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*domain.ProjectCheckpoint{}, nil
		}
		return nil, wardenerrors.Wrap(err, "failed to list checkpoints")
	}

	out := make([]*domain.ProjectCheckpoint, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.checkpointsDir(), entry.Name())) //#nosec G304 -- path is constructed internally
		if err != nil {
			return nil, wardenerrors.Wrapf(err, "failed to read checkpoint %s", entry.Name())
		}
		var cp domain.ProjectCheckpoint
		if err := json.Unmarshal(data, &cp); err != nil {
			return nil, fmt.Errorf("%w: checkpoint %s: %v", wardenerrors.ErrCheckpointMismatch, entry.Name(), err)
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// LatestCheckpoint returns the most recent checkpoint, or nil if none exist.
func (s *Store) LatestCheckpoint() (*domain.ProjectCheckpoint, error) {
	cps, err := s.Checkpoints()
	if err != nil {
		return nil, err
	}
	if len(cps) == 0 {
		return nil, nil
	}
	return cps[len(cps)-1], nil
}
