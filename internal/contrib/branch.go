package contrib

import (
	"errors"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

// File is one file written by StageAndCommit.
type File struct {
	Path    string
	Content []byte
}

// Worktree is a branch as seen at Head, plus removals queued for the next
// commit. It is a plain value: nothing on disk is checked out.
type Worktree struct {
	Branch string
	Head   plumbing.Hash

	owner   *Manager
	pending []git.Change
}

// Pending returns the queued removals.
func (w *Worktree) Pending() []git.Change {
	return slices.Clone(w.pending)
}

// CreateBranch starts a branch at the current head of the default branch.
func (m *Manager) CreateBranch(name string) (plumbing.Hash, error) {
	if err := git.ValidateBranchName(name); err != nil {
		return plumbing.ZeroHash, err
	}
	var head plumbing.Hash
	err := m.withStore(func(store *git.Store) error {
		m.refsMu.Lock()
		defer m.refsMu.Unlock()
		var err error
		head, err = store.ResolveRef(m.defaultBranch)
		if err != nil {
			return err
		}
		return store.CreateRef(name, head)
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	m.InvalidateListing()
	m.record(name, reflog.OpCreate, plumbing.ZeroHash, head, "")
	m.log.Info("branch created", zap.String("branch", name), zap.Stringer("head", head))
	return head, nil
}

// DeleteBranch removes an abandoned contribution. The default branch cannot
// be deleted.
func (m *Manager) DeleteBranch(name string) error {
	if name == m.defaultBranch {
		return &git.InvalidBranchError{Branch: name, Reason: "default branch is protected"}
	}
	var old plumbing.Hash
	err := m.withStore(func(store *git.Store) error {
		m.refsMu.Lock()
		defer m.refsMu.Unlock()
		var err error
		old, err = store.ResolveRef(name)
		if err != nil {
			return err
		}
		return store.RemoveRef(name)
	})
	if err != nil {
		return err
	}
	m.InvalidateListing()
	m.record(name, reflog.OpDelete, old, plumbing.ZeroHash, "")
	m.log.Info("branch deleted", zap.String("branch", name))
	return nil
}

// Checkout returns a worktree value for an existing branch.
func (m *Manager) Checkout(name string) (*Worktree, error) {
	var head plumbing.Hash
	err := m.withStore(func(store *git.Store) error {
		var err error
		head, err = store.ResolveRef(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Worktree{Branch: name, Head: head, owner: m}, nil
}

// RemoveFile queues the removal of path for the next StageAndCommit on wt.
// A file that moved must be removed and re-added in the same call.
func (m *Manager) RemoveFile(wt *Worktree, path string) error {
	if err := m.checkWorktree(wt); err != nil {
		return err
	}
	if err := git.ValidatePath(path); err != nil {
		return err
	}
	wt.pending = append(wt.pending, git.Remove(path))
	return nil
}

func (m *Manager) checkWorktree(wt *Worktree) error {
	if wt == nil || wt.owner != m {
		return errors.New("worktree does not belong to this repository")
	}
	return nil
}

// StageAndCommit writes files and the queued removals of wt as one commit on
// wt.Branch, signed off by author. With amend the branch's own head commit is
// replaced, keeping its parents, so a contribution shows a single commit; a
// branch that has no commit of its own gets a plain commit instead.
//
// The branch ref is the last write and only moves if it still points at
// wt.Head; otherwise a StaleHeadError is returned and nothing is visible.
func (m *Manager) StageAndCommit(wt *Worktree, files []File, author git.Author, message string, amend bool) (plumbing.Hash, error) {
	if err := m.checkWorktree(wt); err != nil {
		return plumbing.ZeroHash, err
	}
	if author.Name == "" || author.Email == "" {
		return plumbing.ZeroHash, errors.New("author name and email are required")
	}
	changes := slices.Clone(wt.pending)
	for _, f := range files {
		changes = append(changes, git.Put(f.Path, f.Content))
	}

	var commitID plumbing.Hash
	var amended bool
	err := m.withStore(func(store *git.Store) error {
		m.refsMu.Lock()
		defer m.refsMu.Unlock()

		head, err := store.ReadCommit(wt.Head)
		if err != nil {
			return err
		}
		parents := []plumbing.Hash{head.Hash}
		if amend {
			own, err := m.hasOwnCommit(store, head.Hash)
			if err != nil {
				return err
			}
			if own {
				parents = head.ParentHashes
				amended = true
			}
		}
		// An amended commit keeps the edits of the commit it replaces.
		tree, err := store.ApplyChanges(head.TreeHash, changes)
		if err != nil {
			return err
		}
		sig := author.Signature(m.now())
		commitID, err = store.WriteCommit(tree, parents, sig, git.FormatMessage(message, author))
		if err != nil {
			return err
		}
		return store.CompareAndSwapRef(wt.Branch, wt.Head, commitID)
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	old := wt.Head
	wt.Head = commitID
	wt.pending = nil
	m.InvalidateListing()
	op := reflog.OpCommit
	if amended {
		op = reflog.OpAmend
	}
	m.record(wt.Branch, op, old, commitID, author.String())
	m.log.Info("branch updated",
		zap.String("branch", wt.Branch),
		zap.String("op", string(op)),
		zap.Stringer("head", commitID),
		zap.Int("changes", len(changes)),
	)
	return commitID, nil
}

// hasOwnCommit reports whether head is a commit made on the branch, as
// opposed to a commit shared with the default branch.
func (m *Manager) hasOwnCommit(store *git.Store, head plumbing.Hash) (bool, error) {
	def, err := store.ResolveRef(m.defaultBranch)
	if err != nil {
		return false, err
	}
	shared, err := store.IsAncestor(head, def)
	if err != nil {
		return false, err
	}
	return !shared, nil
}

// ReadFile returns the content of path at rev.
func (m *Manager) ReadFile(rev, path string) ([]byte, error) {
	var data []byte
	err := m.withStore(func(store *git.Store) error {
		id, err := resolve(store, rev)
		if err != nil {
			return err
		}
		data, err = store.ReadFile(id, path)
		return err
	})
	return data, err
}
