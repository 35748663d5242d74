package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/warden/internal/constants"
	"github.com/mrz1836/warden/internal/dcl"
	wardenerrors "github.com/mrz1836/warden/internal/errors"
	"github.com/mrz1836/warden/internal/state"
)

// writeInitFixtures lays down a constitution and definition in root.
func writeInitFixtures(t *testing.T, root string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(
		filepath.Join(root, constants.ConstitutionFileName),
		[]byte("rules\n"), 0o600))
	defPath := filepath.Join(root, "incoming-definition.json")
	require.NoError(t, os.WriteFile(defPath, []byte(`{
		"schema_version": 1,
		"areas": [{"id": "core", "title": "Core"}],
		"packets": [{"id": "A", "wbs_ref": "1.1", "area_id": "core", "title": "A"}]
	}`), 0o600))
	return defPath
}

func TestInitRoot(t *testing.T) {
	root := t.TempDir()
	defPath := writeInitFixtures(t, root)
	ctx := context.Background()

	idx, err := InitRoot(ctx, root, defPath, time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	// The definition was installed at the authoritative location.
	assert.FileExists(t, filepath.Join(root, constants.DefinitionFileName))

	// Empty state document and config lock exist.
	doc, err := state.NewFileStore(root).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Packets)
	require.NoError(t, dcl.NewStore(root).CheckConfigLock())
}

func TestInitRoot_RefusesReinit(t *testing.T) {
	root := t.TempDir()
	defPath := writeInitFixtures(t, root)
	ctx := context.Background()

	_, err := InitRoot(ctx, root, defPath, time.Now())
	require.NoError(t, err)

	_, err = InitRoot(ctx, root, defPath, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrRootAlreadyInitialized)
}

func TestInitRoot_RequiresConstitution(t *testing.T) {
	root := t.TempDir()
	defPath := writeInitFixtures(t, root)
	require.NoError(t, os.Remove(filepath.Join(root, constants.ConstitutionFileName)))

	_, err := InitRoot(context.Background(), root, defPath, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrNotFound)
}
