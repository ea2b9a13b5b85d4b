package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/securekv/internal/telemetry/logger"
)

func TestDaemon_SweepsUntilCanceled(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "set", "--ttl", "1ms", "short", "1")
	mustRun(t, dir, "set", "long", "2")

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := run(t, ctx, dir, "daemon", "--interval", "20ms", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)

	assert.Equal(t, "KEY\nlong\n", mustRun(t, dir, "keys"))
}

func TestDaemon_RequiresInterval(t *testing.T) {
	_, err := run(t, context.Background(), t.TempDir(), "daemon")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestDaemon_WatchRequiresConfig(t *testing.T) {
	_, err := run(t, context.Background(), t.TempDir(), "daemon", "--interval", "1s", "--watch")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(err))
}

func TestDaemon_BadMetricsAddr(t *testing.T) {
	_, err := run(t, context.Background(), t.TempDir(), "daemon", "--interval", "1s", "--metrics-addr", "256.0.0.1:bad")
	assert.Error(t, err)
}

func TestDaemon_WatchReloadsLogLevel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "securekv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o600))
	t.Cleanup(func() { _ = logger.SetLevel("info") })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, dir, "--config", path, "daemon", "--interval", "1h", "--watch")
		done <- err
	}()

	require.Eventually(t, func() bool { return logger.GetLevel() == "info" }, time.Second, 10*time.Millisecond)
	// The watcher may not be installed yet; keep rewriting until it sees a change.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600)
		return logger.GetLevel() == "error"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}
