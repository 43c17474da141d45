package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func bareLayout(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "refs", "heads", "team"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "objects"), 0o755))
	return dir
}

func newWatcher(t *testing.T, dir string) (*Watcher, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	w, err := New(dir, 20*time.Millisecond, func() { calls.Add(1) }, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, &calls
}

func TestWatchPaths(t *testing.T) {
	t.Parallel()

	dir := bareLayout(t)
	assert.ElementsMatch(t, []string{
		dir,
		filepath.Join(dir, "refs", "heads"),
		filepath.Join(dir, "refs", "heads", "team"),
	}, watchPaths(dir))
}

func TestWatcherReportsRefWrites(t *testing.T) {
	t.Parallel()

	dir := bareLayout(t)
	_, calls := newWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "refs", "heads", "team", "topic"), []byte("x\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 5*time.Second, 10*time.Millisecond)

	before := calls.Load()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "packed-refs"), []byte("# pack-refs\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() > before }, 5*time.Second, 10*time.Millisecond)
}

func TestWatcherIgnoresObjects(t *testing.T) {
	t.Parallel()

	dir := bareLayout(t)
	_, calls := newWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config"), []byte("[core]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refs", "heads", "main.lock"), []byte("x\n"), 0o644))
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestWatcherReset(t *testing.T) {
	t.Parallel()

	first := bareLayout(t)
	w, calls := newWatcher(t, first)

	second := bareLayout(t)
	require.NoError(t, w.Reset(second))
	assert.Equal(t, second, w.Path())

	require.NoError(t, os.WriteFile(filepath.Join(second, "refs", "heads", "main"), []byte("x\n"), 0o644))
	require.Eventually(t, func() bool { return calls.Load() > 0 }, 5*time.Second, 10*time.Millisecond)
}
