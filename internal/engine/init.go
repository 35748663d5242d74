package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/dcl"
	"github.com/mrz1836/warden/internal/definition"
	"github.com/mrz1836/warden/internal/domain"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/state"
)

// InitRoot initializes an empty governance root: validates the definition,
// requires a constitution document, writes an empty state document and the
// dcl-config lock. Refuses to run on a root that already has state.
func InitRoot(ctx context.Context, root, definitionPath string, now time.Time) (*definition.Index, error) {
	idx, err := definition.Load(definitionPath)
	if err != nil {
		return nil, err
	}

	if _, err := ConstitutionHash(root); err != nil {
		return nil, err
	}

	states := state.NewFileStore(root)
	if _, err := os.Stat(states.Path()); err == nil {
		return nil, fmt.Errorf("%s: %w", root, wardenerrors.ErrRootAlreadyInitialized)
	}

	if definitionPath != filepath.Join(root, constants.DefinitionFileName) {
		// The definition was supplied from elsewhere; install it at the
		// authoritative location.
		data, err := os.ReadFile(definitionPath) //#nosec G304 -- operator-supplied path
		if err != nil {
			return nil, wardenerrors.Wrap(err, "failed to read definition")
		}
		if err := os.MkdirAll(root, constants.DirPerm); err != nil {
			return nil, wardenerrors.Wrap(err, "failed to create root")
		}
		if err := os.WriteFile(filepath.Join(root, constants.DefinitionFileName), data, constants.FilePerm); err != nil {
			return nil, wardenerrors.Wrap(err, "failed to install definition")
		}
	}

	commits := dcl.NewStore(root)
	if err := commits.WriteConfigLock(); err != nil {
		return nil, err
	}

	doc := domain.NewStateDocument()
	doc.Metadata = map[string]any{
		"initialized_at": now.UTC().Truncate(time.Microsecond),
	}
	if err := states.Save(ctx, doc); err != nil {
		return nil, err
	}
	return idx, nil
}
