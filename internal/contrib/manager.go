// Package contrib manages contribution branches over a mirrored repository.
//
// Every contribution lives on its own branch. Commits are built directly in
// the object store; there is no checked-out directory, so concurrent
// workflows on one repository only contend on the ref lock.
package contrib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/mirror"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

const DefaultCacheSize = 1024

// ErrNoJournal is returned by History when the manager has no journal.
var ErrNoJournal = errors.New("ref journal is not configured")

// Journal records ref transitions.
type Journal interface {
	Record(e reflog.Entry) error
	History(repo, ref string, limit int) ([]reflog.Entry, error)
}

type Options struct {
	Mirror *mirror.Mirror
	// Journal is optional.
	Journal Journal
	// CacheSize bounds the parsed commit metadata cache; DefaultCacheSize when zero.
	CacheSize int
	// Committer signs merge commits when the caller gives no author.
	Committer git.Author
	Logger    *zap.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
}

type Manager struct {
	name          string
	defaultBranch string
	mirror        *mirror.Mirror
	journal       Journal
	committer     git.Author
	log           *zap.Logger
	now           func() time.Time

	// refsMu serializes every ref mutation on the repository.
	refsMu sync.Mutex

	meta *lru.Cache[plumbing.Hash, commitMeta]

	listMu     sync.Mutex
	listing    []Contribution
	listingOK  bool
	listingGen uint64
}

func New(opts Options) (*Manager, error) {
	if opts.Mirror == nil {
		return nil, errors.New("contrib: mirror is required")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	meta, err := lru.New[plumbing.Hash, commitMeta](size)
	if err != nil {
		return nil, fmt.Errorf("contrib: metadata cache: %w", err)
	}
	committer := opts.Committer
	if committer.Name == "" || committer.Email == "" {
		committer = git.Author{Name: "contribgit", Email: "contribgit@localhost"}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	m := &Manager{
		name:          opts.Mirror.Name(),
		defaultBranch: opts.Mirror.DefaultBranch(),
		mirror:        opts.Mirror,
		journal:       opts.Journal,
		committer:     committer,
		log:           log.Named("contrib").With(zap.String("repo", opts.Mirror.Name())),
		now:           now,
		meta:          meta,
	}
	opts.Mirror.OnSwap(func(string) { m.InvalidateListing() })
	return m, nil
}

func (m *Manager) Name() string          { return m.name }
func (m *Manager) DefaultBranch() string { return m.defaultBranch }
func (m *Manager) Mirror() *mirror.Mirror {
	return m.mirror
}

// EnsureSynced clones the repository on first use. See mirror.Mirror.EnsureSynced.
func (m *Manager) EnsureSynced(ctx context.Context) mirror.Result {
	res := m.mirror.EnsureSynced(ctx)
	if res.Action != mirror.ActionNone {
		m.InvalidateListing()
	}
	return res
}

// withStore runs fn with the mirror's swap lock held for reading.
func (m *Manager) withStore(fn func(*git.Store) error) error {
	store, release, err := m.mirror.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return fn(store)
}

// resolve turns a branch name, full ref or commit id into a commit id. The
// empty revision is the empty tree.
func resolve(store *git.Store, rev string) (plumbing.Hash, error) {
	if rev == "" {
		return plumbing.ZeroHash, nil
	}
	if plumbing.IsHash(rev) {
		id := plumbing.NewHash(rev)
		if _, err := store.ReadCommit(id); err != nil {
			return plumbing.ZeroHash, err
		}
		return id, nil
	}
	return store.ResolveRef(rev)
}

func (m *Manager) record(ref string, op reflog.Op, old, new plumbing.Hash, actor string) {
	if m.journal == nil {
		return
	}
	e := reflog.Entry{Repo: m.name, Ref: ref, Op: op, Actor: actor, At: m.now()}
	if !old.IsZero() {
		e.Old = old.String()
	}
	if !new.IsZero() {
		e.New = new.String()
	}
	if err := m.journal.Record(e); err != nil {
		m.log.Warn("journal ref update", zap.String("ref", ref), zap.Error(err))
	}
}

// History returns the journaled transitions of branch, newest first.
func (m *Manager) History(branch string, limit int) ([]reflog.Entry, error) {
	if m.journal == nil {
		return nil, ErrNoJournal
	}
	return m.journal.History(m.name, branch, limit)
}
