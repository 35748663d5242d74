package fsafe

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wardenerrors "github.com/mrz1836/warden/internal/errors"
)

func TestWriteFile_CreatesAndOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "target.json")

	require.NoError(t, WriteFile(path, []byte("one")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))

	require.NoError(t, WriteFile(path, []byte("two")))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// No temp sibling survives a clean write.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_MissingDirectoryFails(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "missing", "target.json"), []byte("x"))
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrIoFatal)
}

func TestRemoveFile_MissingIsNoError(t *testing.T) {
	assert.NoError(t, RemoveFile(filepath.Join(t.TempDir(), "absent")))
}

func TestAcquire_ExclusiveAndTimeout(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "obj.lock")
	ctx := context.Background()

	held, err := Acquire(ctx, lockPath, time.Second)
	require.NoError(t, err)

	// A second acquisition in the same process contends on the same file
	// and must time out quickly.
	start := time.Now()
	_, err = Acquire(ctx, lockPath, 200*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, wardenerrors.ErrLockTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.NoError(t, held.Unlock())

	// Released locks can be retaken.
	held, err = Acquire(ctx, lockPath, time.Second)
	require.NoError(t, err)
	require.NoError(t, held.Unlock())
}

func TestAcquire_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "obj.lock")

	held, err := Acquire(context.Background(), lockPath, time.Second)
	require.NoError(t, err)
	defer func() { _ = held.Unlock() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Acquire(ctx, lockPath, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlock_NilSafe(t *testing.T) {
	var lock *Lock
	assert.NoError(t, lock.Unlock())
}
