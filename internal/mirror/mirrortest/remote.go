// Package mirrortest provides an in-memory remote for exercising mirrors
// without a network.
package mirrortest

import (
	"context"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/contribgit/internal/git"
)

var Maintainer = git.Signature{Name: "Maintainer", Email: "maintainer@example.com", When: time.Unix(1700000000, 0)}

// Remote serves clones of Origin. Failures can be injected between calls.
type Remote struct {
	Origin *git.Store

	mu        sync.Mutex
	clones    int
	cloneErr  error
	headErr   error
	panicHead bool
}

// NewRemote returns a remote whose origin holds a single empty commit on main.
func NewRemote(t testing.TB) *Remote {
	t.Helper()
	origin := git.NewMemory()
	if _, err := origin.Seed("main", Maintainer, "Initial commit"); err != nil {
		t.Fatalf("seed origin: %v", err)
	}
	return &Remote{Origin: origin}
}

func (r *Remote) Clone(_ context.Context, _, branch, dir string) error {
	r.mu.Lock()
	r.clones++
	err := r.cloneErr
	r.mu.Unlock()
	if err != nil {
		return err
	}
	head, err := r.Origin.ResolveRef(branch)
	if err != nil {
		return err
	}
	dst, err := git.InitBare(dir, branch)
	if err != nil {
		return err
	}
	if _, err := r.Origin.CopyObjects(dst, head); err != nil {
		return err
	}
	return dst.UpdateRef(branch, head)
}

func (r *Remote) Head(_ context.Context, _, branch string) (plumbing.Hash, error) {
	r.mu.Lock()
	if r.panicHead {
		r.panicHead = false
		r.mu.Unlock()
		panic("transport exploded")
	}
	err := r.headErr
	r.mu.Unlock()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return r.Origin.ResolveRef(branch)
}

func (r *Remote) Clones() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clones
}

func (r *Remote) FailClone(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cloneErr = err
}

func (r *Remote) FailHead(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.headErr = err
}

// PanicOnNextHead makes the next Head call panic.
func (r *Remote) PanicOnNextHead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panicHead = true
}

// Commit writes files on top of branch in s and moves the branch.
func Commit(t testing.TB, s *git.Store, branch string, files map[string]string) plumbing.Hash {
	t.Helper()
	parent, err := s.ResolveRef(branch)
	if err != nil {
		t.Fatalf("resolve %s: %v", branch, err)
	}
	c, err := s.ReadCommit(parent)
	if err != nil {
		t.Fatalf("read commit: %v", err)
	}
	changes := make([]git.Change, 0, len(files))
	for _, path := range slices.Sorted(maps.Keys(files)) {
		changes = append(changes, git.Put(path, []byte(files[path])))
	}
	tree, err := s.ApplyChanges(c.TreeHash, changes)
	if err != nil {
		t.Fatalf("apply changes: %v", err)
	}
	id, err := s.WriteCommit(tree, []plumbing.Hash{parent}, Maintainer, "update")
	if err != nil {
		t.Fatalf("write commit: %v", err)
	}
	if err := s.UpdateRef(branch, id); err != nil {
		t.Fatalf("update ref: %v", err)
	}
	return id
}
