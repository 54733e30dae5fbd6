package gconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeConfigFile(t *testing.T, path string, ttl string) {
	t.Helper()
	body := "cache:\n  ttl: " + ttl + "\n  max_size: 100\n  popularity_threshold: 2\nshard:\n  num_shards: 32\n  levels: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestWatcherNotifiesOnTunableChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gograph.yaml")
	writeConfigFile(t, path, "10s")

	initial, err := Load(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, initial, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *Config, 1)
	w.OnChange(func(c *Config) { changed <- c })

	writeConfigFile(t, path, "60s")

	select {
	case c := <-changed:
		require.Equal(t, 60*time.Second, c.Cache.TTL)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for config reload callback")
	}
}
