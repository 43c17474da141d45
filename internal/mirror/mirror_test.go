package mirror

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/contribgit/internal/mirror/mirrortest"
)

func newMirror(t *testing.T, remote Remote, interval time.Duration) *Mirror {
	t.Helper()
	m, err := New(Options{
		Name:          "taxonomy",
		Path:          filepath.Join(t.TempDir(), "taxonomy"),
		URL:           "https://example.com/taxonomy.git",
		DefaultBranch: "main",
		Interval:      interval,
		Remote:        remote,
	})
	require.NoError(t, err)
	t.Cleanup(m.Stop)
	return m
}

func headOf(t *testing.T, m *Mirror, branch string) plumbing.Hash {
	t.Helper()
	store, release, err := m.Acquire()
	require.NoError(t, err)
	defer release()
	id, err := store.ResolveRef(branch)
	require.NoError(t, err)
	return id
}

func TestEnsureSyncedClonesOnce(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)

	_, _, err := m.Acquire()
	require.ErrorIs(t, err, ErrAbsent)
	assert.Equal(t, StateAbsent, m.State())

	want, err := remote.Origin.ResolveRef("main")
	require.NoError(t, err)

	res := m.EnsureSynced(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionCloned, res.Action)
	assert.Equal(t, StateFresh, res.State)
	assert.Equal(t, want, res.Head)

	res = m.EnsureSynced(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, 1, remote.Clones())
	assert.Equal(t, want, headOf(t, m, "main"))
}

func TestEnsureSyncedConcurrentCallersShareClone(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.EnsureSynced(context.Background())
		}()
	}
	wg.Wait()

	for _, res := range results {
		require.NoError(t, res.Err)
		assert.Equal(t, StateFresh, res.State)
	}
	assert.Equal(t, 1, remote.Clones())
}

func TestEnsureSyncedOpensExistingClone(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	first := newMirror(t, remote, 0)
	require.NoError(t, first.EnsureSynced(context.Background()).Err)

	other := &mirrortest.Remote{Origin: remote.Origin}
	second, err := New(Options{Path: first.Path(), DefaultBranch: "main", Remote: other})
	require.NoError(t, err)
	res := second.EnsureSynced(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionOpened, res.Action)
	assert.Zero(t, other.Clones())
	assert.Equal(t, "taxonomy", second.Name())
}

func TestEnsureSyncedRejectsForeignDirectory(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)
	require.NoError(t, os.MkdirAll(m.Path(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Path(), "notes.txt"), []byte("x"), 0o644))

	res := m.EnsureSynced(context.Background())
	var syncErr *SyncError
	require.ErrorAs(t, res.Err, &syncErr)
	assert.Equal(t, "open", syncErr.Op)
	assert.Equal(t, StateAbsent, res.State)
	assert.Zero(t, remote.Clones())
}

func TestEnsureSyncedCloneFailure(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	remote.FailClone(errors.New("connection refused"))
	m := newMirror(t, remote, 0)

	res := m.EnsureSynced(context.Background())
	require.Error(t, res.Err)
	assert.ErrorContains(t, res.Err, "connection refused")
	assert.Equal(t, StateAbsent, m.State())

	entries, err := os.ReadDir(filepath.Dir(m.Path()))
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary clone left behind")

	remote.FailClone(nil)
	res = m.EnsureSynced(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionCloned, res.Action)
}

func TestCheckForUpdatesUpToDate(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)
	require.NoError(t, m.EnsureSynced(context.Background()).Err)

	// A local merge moves main but not the synced head.
	store, release, err := m.Acquire()
	require.NoError(t, err)
	mirrortest.Commit(t, store, "main", map[string]string{"local.txt": "merged"})
	release()

	res := m.CheckForUpdates(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionNone, res.Action)
	assert.Equal(t, StateFresh, res.State)
	assert.Equal(t, 1, remote.Clones())
}

func TestCheckForUpdatesReclonesAndCarriesBranches(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)
	require.NoError(t, m.EnsureSynced(context.Background()).Err)

	var swapped []string
	m.OnSwap(func(path string) { swapped = append(swapped, path) })

	store, release, err := m.Acquire()
	require.NoError(t, err)
	root, err := store.ResolveRef("main")
	require.NoError(t, err)
	require.NoError(t, store.CreateRef("knowledge-contribution-1", root))
	draft := mirrortest.Commit(t, store, "knowledge-contribution-1", map[string]string{"knowledge/a/qna.yaml": "q"})
	release()

	upstream := mirrortest.Commit(t, remote.Origin, "main", map[string]string{"README.md": "new"})

	res := m.CheckForUpdates(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionRecloned, res.Action)
	assert.Equal(t, StateFresh, res.State)
	assert.Equal(t, upstream, res.Head)
	assert.Equal(t, []string{"knowledge-contribution-1"}, res.Carried)
	assert.Equal(t, []string{m.Path()}, swapped)

	assert.Equal(t, upstream, headOf(t, m, "main"))
	assert.Equal(t, draft, headOf(t, m, "knowledge-contribution-1"))

	store, release, err = m.Acquire()
	require.NoError(t, err)
	data, err := store.ReadFile(draft, "knowledge/a/qna.yaml")
	release()
	require.NoError(t, err)
	assert.Equal(t, "q", string(data))

	entries, err := os.ReadDir(filepath.Dir(m.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "taxonomy", entries[0].Name())
}

func TestCheckForUpdatesFailuresAreResults(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)
	require.NoError(t, m.EnsureSynced(context.Background()).Err)
	before := headOf(t, m, "main")

	remote.FailHead(errors.New("dns failure"))
	res := m.CheckForUpdates(context.Background())
	var syncErr *SyncError
	require.ErrorAs(t, res.Err, &syncErr)
	assert.Equal(t, "check", syncErr.Op)
	assert.Equal(t, StateFresh, res.State)

	mirrortest.Commit(t, remote.Origin, "main", map[string]string{"a": "b"})
	remote.FailHead(nil)
	remote.FailClone(errors.New("disk full"))
	res = m.CheckForUpdates(context.Background())
	require.ErrorAs(t, res.Err, &syncErr)
	assert.Equal(t, "clone", syncErr.Op)
	assert.Equal(t, StateStale, res.State)
	assert.Equal(t, before, headOf(t, m, "main"), "failed re-clone must keep the old clone")

	remote.FailClone(nil)
	res = m.CheckForUpdates(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionRecloned, res.Action)
}

func TestCheckForUpdatesWhenAbsentClones(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 0)
	res := m.CheckForUpdates(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, ActionCloned, res.Action)
}

func TestBackgroundLoopSurvivesPanicsAndReclones(t *testing.T) {
	t.Parallel()

	remote := mirrortest.NewRemote(t)
	m := newMirror(t, remote, 10*time.Millisecond)
	require.NoError(t, m.EnsureSynced(context.Background()).Err)

	upstream := mirrortest.Commit(t, remote.Origin, "main", map[string]string{"a": "b"})
	remote.PanicOnNextHead()

	var swaps atomic.Int32
	m.OnSwap(func(string) { swaps.Add(1) })

	m.Start(context.Background())
	require.Eventually(t, func() bool {
		return swaps.Load() > 0
	}, 5*time.Second, 10*time.Millisecond)
	m.Stop()

	assert.Equal(t, upstream, headOf(t, m, "main"))
}
