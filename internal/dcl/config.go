package dcl

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/fsafe"
)

// configPath returns the dcl-config.json path.
func (s *Store) configPath() string {
	return filepath.Join(s.Dir(), constants.DclConfigFileName)
}

// WriteConfigLock writes the lock document matching this runtime.
// Called once by init.
func (s *Store) WriteConfigLock() error {
	if err := os.MkdirAll(s.Dir(), constants.DirPerm); err != nil {
		return wardenerrors.Wrap(err, "failed to create dcl directory")
	}
	data, err := json.MarshalIndent(domain.CurrentDclConfig(), "", "  ")
	if err != nil {
		return wardenerrors.Wrap(err, "failed to marshal dcl config")
	}
	return fsafe.WriteFileRetry(s.configPath(), data)
}

// CheckConfigLock reads the lock document and refuses to proceed when it is
// missing or disagrees with the in-use runtime. Changing any locked value is
// a governed operation (definition replacement), never a silent file edit.
func (s *Store) CheckConfigLock() error {
	data, err := os.ReadFile(s.configPath()) //#nosec G304 -- path is constructed internally
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", wardenerrors.ErrConfigLockMissing, s.configPath())
		}
		return wardenerrors.Wrap(err, "failed to read dcl config")
	}
	var got domain.DclConfig
	if err := json.Unmarshal(data, &got); err != nil {
		return fmt.Errorf("%w: parse error: %v", wardenerrors.ErrConfigLockMismatch, err)
	}
	want := domain.CurrentDclConfig()
	if got != want {
		return fmt.Errorf("%w: on disk %+v, runtime %+v", wardenerrors.ErrConfigLockMismatch, got, want)
	}
	return nil
}
