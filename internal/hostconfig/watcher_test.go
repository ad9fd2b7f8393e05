package hostconfig

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitForReload blocks until the watcher's callback delivers a result or the
// debounce window has long passed.
func waitForReload(t *testing.T, ch <-chan error) error {
	t.Helper()

	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired")
		return nil
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "version: 1\nbinding_name: llamacpp\n")

	reloaded := make(chan error, 4)
	watcher, err := NewWatcher(path, func(cfg *Config, err error) {
		if err == nil {
			assert.Equal(t, "exllama", cfg.BindingName)
		}
		reloaded <- err
	})
	require.NoError(t, err)
	assert.Equal(t, "llamacpp", watcher.Snapshot().BindingName)

	// Give the fsnotify goroutine time to register the watch.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("version: 1\nbinding_name: exllama\n"), 0o644))

	require.NoError(t, waitForReload(t, reloaded))
	assert.Equal(t, "exllama", watcher.Snapshot().BindingName)
	assert.GreaterOrEqual(t, watcher.ReloadCount(), uint32(1))
}

func TestWatcher_InvalidRewriteSurfacesError(t *testing.T) {
	path := writeConfig(t, "version: 1\nbinding_name: llamacpp\n")

	reloaded := make(chan error, 4)
	watcher, err := NewWatcher(path, func(cfg *Config, err error) {
		reloaded <- err
	})
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	// binding_name is required, so the rewrite fails validation.
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0o644))

	err = waitForReload(t, reloaded)
	assert.ErrorContains(t, err, "validation failed")

	// The last good snapshot survives a failed reload.
	assert.Equal(t, "llamacpp", watcher.Snapshot().BindingName)
}

func TestNewWatcher_MissingFile(t *testing.T) {
	_, err := NewWatcher("/nonexistent/config.yaml", func(*Config, error) {})
	assert.Error(t, err)
}
