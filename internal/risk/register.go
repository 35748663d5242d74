// Package risk persists the residual risk register: structured risk
// declarations accepted at packet completion.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/fsafe"
)

// Store persists risk-register.json under the governance root.
type Store struct {
	root string
}

// NewStore creates a risk register store rooted at root.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the register file path.
func (s *Store) Path() string {
	return filepath.Join(s.root, constants.RiskRegisterFileName)
}

// lockPath returns the register lock file path.
func (s *Store) lockPath() string {
	return s.Path() + ".lock"
}

// Load reads the register. A missing file is an empty register: the
// document is optional until the first declaration.
func (s *Store) Load(_ context.Context) (*domain.RiskRegister, error) {
	data, err := os.ReadFile(s.Path()) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return &domain.RiskRegister{
				SchemaVersion: constants.StateSchemaVersion,
				Entries:       []domain.ResidualRiskEntry{},
			}, nil
		}
		return nil, wardenerrors.Wrap(err, "failed to read risk register")
	}
	var reg domain.RiskRegister
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("%w: risk register: %v", wardenerrors.ErrSchemaInvalid, err)
	}
	if reg.Entries == nil {
		reg.Entries = []domain.ResidualRiskEntry{}
	}
	return &reg, nil
}

// Append records declared risks for a packet. Entries open with generated
// ids; existing entries are never rewritten.
func (s *Store) Append(ctx context.Context, packetID string, declared []domain.ResidualRiskDeclaration, now time.Time) ([]domain.ResidualRiskEntry, error) {
	if len(declared) == 0 {
		return nil, nil
	}

	lock, err := fsafe.Acquire(ctx, s.lockPath(), constants.DefaultLockTimeout)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Unlock() }()

	reg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	added := make([]domain.ResidualRiskEntry, 0, len(declared))
	for _, d := range declared {
		entry := domain.ResidualRiskEntry{
			ID:          uuid.NewString(),
			PacketID:    packetID,
			Severity:    d.Severity,
			Status:      constants.RiskStatusOpen,
			Description: d.Description,
			Owner:       d.Owner,
			OpenedAt:    now.UTC().Truncate(time.Microsecond),
		}
		reg.Entries = append(reg.Entries, entry)
		added = append(added, entry)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return nil, wardenerrors.Wrap(err, "failed to marshal risk register")
	}
	if err := fsafe.WriteFileRetry(s.Path(), data); err != nil {
		return nil, err
	}
	return added, nil
}
