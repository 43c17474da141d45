// Package mirror keeps a local bare clone of a remote repository in sync.
//
// A Mirror is Absent until the first EnsureSynced clones it. A periodic check
// compares the remote default-branch head with the head recorded at clone
// time; when they differ the mirror is Stale and is re-cloned into a sibling
// directory that replaces the old one while the swap lock is held.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/thiagokokada/contribgit/internal/git"
)

const DefaultInterval = 5 * time.Minute

// ErrAbsent is returned by Acquire before the first successful clone.
var ErrAbsent = errors.New("repository is not cloned")

type State int

const (
	StateAbsent State = iota
	StateFresh
	StateStale
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateStale:
		return "stale"
	default:
		return "absent"
	}
}

type Action string

const (
	ActionNone     Action = "none"
	ActionOpened   Action = "opened"
	ActionCloned   Action = "cloned"
	ActionRecloned Action = "recloned"
)

// Result is the outcome of a sync call. Failures are carried in Err instead
// of being returned, so a caller on a timer can log and retry.
type Result struct {
	State  State
	Action Action
	// Head is the origin default-branch commit the mirror was last synced to.
	Head plumbing.Hash
	// Carried lists the contribution branches moved into a fresh clone.
	Carried []string
	// Err is nil or a *SyncError.
	Err error
}

// SyncError wraps a clone, network or swap failure.
type SyncError struct {
	Repo string
	Op   string
	Err  error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %s: %v", e.Repo, e.Op, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

type Options struct {
	Name          string
	Path          string
	URL           string
	DefaultBranch string
	// Interval between background checks; DefaultInterval when zero.
	Interval time.Duration
	// Remote defaults to GoGitRemote{}.
	Remote Remote
	Logger *zap.Logger
}

type Mirror struct {
	name     string
	path     string
	url      string
	branch   string
	interval time.Duration
	remote   Remote
	log      *zap.Logger

	// mu is the swap lock. Every repository operation holds it for reading
	// through Acquire; installing a new clone holds it for writing.
	mu    sync.RWMutex
	store *git.Store
	state State

	group singleflight.Group

	hooksMu sync.Mutex
	hooks   []func(path string)

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) (*Mirror, error) {
	if opts.Path == "" {
		return nil, errors.New("mirror: path is required")
	}
	if opts.DefaultBranch == "" {
		return nil, errors.New("mirror: default branch is required")
	}
	abs, err := filepath.Abs(opts.Path)
	if err != nil {
		return nil, err
	}
	name := opts.Name
	if name == "" {
		name = filepath.Base(abs)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	remote := opts.Remote
	if remote == nil {
		remote = GoGitRemote{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{
		name:     name,
		path:     abs,
		url:      opts.URL,
		branch:   opts.DefaultBranch,
		interval: interval,
		remote:   remote,
		log:      log.Named("mirror").With(zap.String("repo", name)),
	}, nil
}

func (m *Mirror) Name() string          { return m.name }
func (m *Mirror) Path() string          { return m.path }
func (m *Mirror) DefaultBranch() string { return m.branch }

func (m *Mirror) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Acquire returns the current store with the swap lock held for reading.
// The caller must call release exactly once and must not call Acquire again
// before releasing.
func (m *Mirror) Acquire() (*git.Store, func(), error) {
	m.mu.RLock()
	if m.store == nil {
		m.mu.RUnlock()
		return nil, nil, ErrAbsent
	}
	return m.store, m.mu.RUnlock, nil
}

// OnSwap registers fn to run after a new clone has been installed.
func (m *Mirror) OnSwap(fn func(path string)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.hooks = append(m.hooks, fn)
}

func (m *Mirror) runHooks() {
	m.hooksMu.Lock()
	hooks := append([]func(string){}, m.hooks...)
	m.hooksMu.Unlock()
	for _, fn := range hooks {
		fn(m.path)
	}
}

func trackingRef(branch string) string {
	return "refs/remotes/origin/" + branch
}

// syncedHead is the origin head recorded at clone time. Local merges move the
// default branch but never this ref.
func (m *Mirror) syncedHead(store *git.Store) plumbing.Hash {
	if id, err := store.ResolveRef(trackingRef(m.branch)); err == nil {
		return id
	}
	id, _ := store.ResolveRef(m.branch)
	return id
}

func (m *Mirror) fail(state State, op string, err error) Result {
	return Result{State: state, Action: ActionNone, Err: &SyncError{Repo: m.name, Op: op, Err: err}}
}

// EnsureSynced makes the mirror present: it opens an existing clone at the
// configured path or clones one. It is a no-op once present, and concurrent
// callers share one clone.
func (m *Mirror) EnsureSynced(ctx context.Context) Result {
	m.mu.RLock()
	if m.store != nil {
		res := Result{State: m.state, Action: ActionNone, Head: m.syncedHead(m.store)}
		m.mu.RUnlock()
		return res
	}
	m.mu.RUnlock()
	v, _, _ := m.group.Do("ensure", func() (any, error) {
		return m.ensure(ctx), nil
	})
	return v.(Result)
}

func (m *Mirror) ensure(ctx context.Context) Result {
	m.mu.Lock()
	if m.store != nil {
		res := Result{State: m.state, Action: ActionNone, Head: m.syncedHead(m.store)}
		m.mu.Unlock()
		return res
	}
	store, err := git.Open(m.path)
	if err == nil {
		m.store = store
		m.state = StateFresh
		res := Result{State: StateFresh, Action: ActionOpened, Head: m.syncedHead(store)}
		m.mu.Unlock()
		m.log.Info("opened existing clone", zap.String("path", m.path))
		return res
	}
	m.mu.Unlock()
	if !errors.Is(err, git.ErrNotFound) {
		return m.fail(StateAbsent, "open", err)
	}
	if err := clearTarget(m.path); err != nil {
		return m.fail(StateAbsent, "open", err)
	}

	m.log.Info("cloning", zap.String("url", m.url), zap.String("branch", m.branch))
	tmp, head, err := m.cloneTemp(ctx)
	if err != nil {
		return m.fail(StateAbsent, "clone", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.Rename(tmp, m.path); err != nil {
		_ = os.RemoveAll(tmp)
		return m.fail(StateAbsent, "clone", err)
	}
	store, err = git.Open(m.path)
	if err != nil {
		return m.fail(StateAbsent, "clone", err)
	}
	m.store = store
	m.state = StateFresh
	m.log.Info("cloned", zap.Stringer("head", head))
	return Result{State: StateFresh, Action: ActionCloned, Head: head}
}

// clearTarget removes an empty directory left at path; anything else that is
// not a repository is an error.
func clearTarget(path string) error {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s exists and is not a repository", path)
	}
	return os.Remove(path)
}

// cloneTemp clones into a fresh sibling of the mirror path and records the
// synced head. No lock is held.
func (m *Mirror) cloneTemp(ctx context.Context) (string, plumbing.Hash, error) {
	parent := filepath.Dir(m.path)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", plumbing.ZeroHash, err
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(m.path)+".clone-*")
	if err != nil {
		return "", plumbing.ZeroHash, err
	}
	head, err := m.cloneInto(ctx, tmp)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", plumbing.ZeroHash, err
	}
	return tmp, head, nil
}

func (m *Mirror) cloneInto(ctx context.Context, dir string) (plumbing.Hash, error) {
	if err := m.remote.Clone(ctx, m.url, m.branch, dir); err != nil {
		return plumbing.ZeroHash, err
	}
	store, err := git.Open(dir)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	head, err := store.ResolveRef(m.branch)
	if errors.Is(err, git.ErrNotFound) {
		head, err = store.ResolveRef(trackingRef(m.branch))
		if err == nil {
			err = store.UpdateRef(m.branch, head)
		}
	}
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := store.UpdateRef(trackingRef(m.branch), head); err != nil {
		return plumbing.ZeroHash, err
	}
	return head, nil
}

// CheckForUpdates compares the remote head with the synced head and re-clones
// when they differ. Only one check runs at a time; concurrent callers share
// its result.
func (m *Mirror) CheckForUpdates(ctx context.Context) Result {
	v, _, _ := m.group.Do("check", func() (any, error) {
		return m.check(ctx), nil
	})
	return v.(Result)
}

func (m *Mirror) check(ctx context.Context) Result {
	m.mu.RLock()
	present := m.store != nil
	var local plumbing.Hash
	if present {
		local = m.syncedHead(m.store)
	}
	m.mu.RUnlock()
	if !present {
		return m.EnsureSynced(ctx)
	}

	remote, err := m.remote.Head(ctx, m.url, m.branch)
	if err != nil {
		return m.fail(m.State(), "check", err)
	}
	if remote == local {
		m.mu.Lock()
		m.state = StateFresh
		m.mu.Unlock()
		return Result{State: StateFresh, Action: ActionNone, Head: local}
	}

	m.mu.Lock()
	m.state = StateStale
	m.mu.Unlock()
	m.log.Info("mirror is stale", zap.Stringer("local", local), zap.Stringer("remote", remote))

	tmp, head, err := m.cloneTemp(ctx)
	if err != nil {
		return m.fail(StateStale, "clone", err)
	}
	carried, err := m.swap(tmp)
	if err != nil {
		return m.fail(StateStale, "swap", err)
	}
	m.log.Info("re-cloned", zap.Stringer("head", head), zap.Strings("carried", carried))
	m.runHooks()
	return Result{State: StateFresh, Action: ActionRecloned, Head: head, Carried: carried}
}

// swap installs the clone at tmp in place of the current one. Contribution
// branches of the old clone are copied over first so local drafts survive.
func (m *Mirror) swap(tmp string) ([]string, error) {
	next, err := git.Open(tmp)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}

	m.mu.Lock()
	carried, old, err := m.installLocked(next, tmp)
	m.mu.Unlock()
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, err
	}
	if err := os.RemoveAll(old); err != nil {
		m.log.Warn("remove previous clone", zap.String("path", old), zap.Error(err))
	}
	return carried, nil
}

func (m *Mirror) installLocked(next *git.Store, tmp string) ([]string, string, error) {
	carried, err := carryBranches(m.store, next, m.branch)
	if err != nil {
		return nil, "", fmt.Errorf("carry branches: %w", err)
	}
	old := fmt.Sprintf("%s.old-%d", m.path, time.Now().UnixNano())
	if err := os.Rename(m.path, old); err != nil {
		return nil, "", err
	}
	if err := os.Rename(tmp, m.path); err != nil {
		if rerr := os.Rename(old, m.path); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return nil, "", err
	}
	store, err := git.Open(m.path)
	if err != nil {
		err = errors.Join(err, os.Rename(m.path, tmp), os.Rename(old, m.path))
		return nil, "", err
	}
	m.store = store
	m.state = StateFresh
	return carried, old, nil
}

func carryBranches(from, to *git.Store, defaultBranch string) ([]string, error) {
	branches, err := from.Branches()
	if err != nil {
		return nil, err
	}
	var carried []string
	for _, b := range branches {
		if b.Name == defaultBranch {
			continue
		}
		exists, err := to.HasBranch(b.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		if _, err := from.CopyObjects(to, b.Head); err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name, err)
		}
		if err := to.UpdateRef(b.Name, b.Head); err != nil {
			return nil, err
		}
		carried = append(carried, b.Name)
	}
	return carried, nil
}

// Start runs CheckForUpdates every interval until ctx is done or Stop is called.
func (m *Mirror) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.pollForever(ctx, m.done)
}

// Stop ends the background loop and waits for an in-flight check.
func (m *Mirror) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (m *Mirror) pollForever(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.pollOnce(ctx)
		case <-ctx.Done():
			m.log.Debug("exiting poller", zap.Error(ctx.Err()))
			return
		}
	}
}

func (m *Mirror) pollOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("sync check panicked", zap.Any("panic", r))
		}
	}()
	res := m.CheckForUpdates(ctx)
	if res.Err != nil {
		m.log.Warn("sync check failed", zap.Error(res.Err), zap.Stringer("state", res.State))
		return
	}
	m.log.Debug("sync check", zap.Stringer("state", res.State), zap.String("action", string(res.Action)))
}
