package am

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/modx/errors"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), DefaultFilePermissions))
}

func TestConfigWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeConfig(t, path, "[modify]\nbatch_size = 10\n")

	w, err := NewFileWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	var seen []int
	w.OnReload(func(cfg *Config) error {
		seen = append(seen, cfg.Modify.BatchSize)
		return errors.New("first callback fails")
	})
	w.OnReload(func(cfg *Config) error {
		seen = append(seen, cfg.Modify.BatchSize*2)
		return nil
	})

	require.NoError(t, w.reload())
	assert.Equal(t, []int{10, 20}, seen, "later callbacks run after a failing one")

	writeConfig(t, path, "[modify]\nbatch_size = -1\n")
	assert.Error(t, w.reload(), "invalid config is not delivered")
	assert.Len(t, seen, 2)
}

func TestConfigWatcher_DetectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeConfig(t, path, "[storage]\nburst = 1\n")

	w, err := NewFileWatcher(path)
	require.NoError(t, err)
	defer w.Stop()
	w.SetDebouncePeriod(10 * time.Millisecond)

	var burst atomic.Int64
	w.OnReload(func(cfg *Config) error {
		burst.Store(int64(cfg.Storage.Burst))
		return nil
	})
	w.Start()

	writeConfig(t, path, "[storage]\nburst = 8\n")
	assert.Eventually(t, func() bool { return burst.Load() == 8 }, 5*time.Second, 20*time.Millisecond)
}

func TestConfigWatcher_OwnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	writeConfig(t, path, "")

	w, err := NewFileWatcher(path)
	require.NoError(t, err)
	defer w.Stop()

	w.MarkOwnWrite()
	assert.True(t, w.checkOwnWrite())
	assert.False(t, w.checkOwnWrite(), "flag clears after one check")

	SetGlobalWatcher(w)
	defer SetGlobalWatcher(nil)
	assert.Same(t, w, GetGlobalWatcher())
}

func TestIsBackupFile(t *testing.T) {
	assert.True(t, isBackupFile("/x/am.toml.back1"))
	assert.True(t, isBackupFile("config.toml.back3"))
	assert.False(t, isBackupFile("/x/am.toml"))
	assert.False(t, isBackupFile("am.toml.back4"))
}
