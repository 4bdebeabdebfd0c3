package lockfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	acquirer := New(path)

	handle, err := acquirer.Acquire()
	require.NoError(t, err)

	// Lock body records the holder's identity.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var info lockInfo
	require.NoError(t, json.Unmarshal(data, &info))
	assert.Equal(t, os.Getpid(), info.PID)
	assert.False(t, info.AcquiredAt.IsZero())

	require.NoError(t, handle.Release())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestAcquireContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	acquirer := New(path)

	handle, err := acquirer.Acquire()
	require.NoError(t, err)
	defer handle.Release() // nolint:errcheck // best-effort cleanup

	second, err := acquirer.Acquire()
	require.ErrorIs(t, err, ErrHeld)
	assert.Nil(t, second)
}

func TestReleaseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")

	handle, err := New(path).Acquire()
	require.NoError(t, err)

	require.NoError(t, handle.Release())
	require.NoError(t, handle.Release())
	assert.NoError(t, (*Handle)(nil).Release())
}

func TestStaleLockReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	stale := New(path)
	stale.Clock = func() time.Time { return now.Add(-time.Hour) }
	_, err := stale.Acquire()
	require.NoError(t, err)

	acquirer := New(path)
	acquirer.Clock = func() time.Time { return now }

	handle, err := acquirer.Acquire()
	require.NoError(t, err)
	require.NoError(t, handle.Release())
}

func TestFreshLockNotReclaimed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	holder := New(path)
	holder.Clock = func() time.Time { return now.Add(-time.Minute) }
	handle, err := holder.Acquire()
	require.NoError(t, err)
	defer handle.Release() // nolint:errcheck // best-effort cleanup

	acquirer := New(path)
	acquirer.Clock = func() time.Time { return now }

	_, err = acquirer.Acquire()
	assert.ErrorIs(t, err, ErrHeld)
}

func TestUnparsableLockFallsBackToMtime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.lock")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	handle, err := New(path).Acquire()
	require.NoError(t, err)
	require.NoError(t, handle.Release())
}
