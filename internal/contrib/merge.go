package contrib

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

type MergeOutcome string

const (
	MergeUpToDate    MergeOutcome = "up-to-date"
	MergeFastForward MergeOutcome = "fast-forward"
	MergeCommitted   MergeOutcome = "merged"
)

type MergeResult struct {
	Outcome MergeOutcome
	// Head is the default branch head after the merge.
	Head plumbing.Hash
}

type MergeOptions struct {
	// Author signs the merge commit; the manager's committer when empty.
	Author git.Author
	// Message defaults to "Merge branch '<name>'".
	Message string
}

// Merge integrates branch into the default branch. A branch already
// contained in the default branch is a no-op. When the default branch is an
// ancestor of the branch it is fast-forwarded; otherwise a three-way merge
// from the merge base either produces a two-parent commit or fails with a
// MergeConflictError listing every conflicting path.
func (m *Manager) Merge(branch string, opts MergeOptions) (MergeResult, error) {
	if branch == m.defaultBranch {
		return MergeResult{}, &git.InvalidBranchError{Branch: branch, Reason: "cannot merge the default branch into itself"}
	}
	author := opts.Author
	if author.Name == "" || author.Email == "" {
		author = m.committer
	}
	var (
		res MergeResult
		old plumbing.Hash
	)
	err := m.withStore(func(store *git.Store) error {
		m.refsMu.Lock()
		defer m.refsMu.Unlock()

		head, err := store.ResolveRef(branch)
		if errors.Is(err, git.ErrNotFound) {
			return &git.InvalidBranchError{Branch: branch, Reason: "unknown branch"}
		}
		if err != nil {
			return err
		}
		def, err := store.ResolveRef(m.defaultBranch)
		if err != nil {
			return err
		}
		old = def

		contained, err := store.IsAncestor(head, def)
		if err != nil {
			return err
		}
		if contained {
			res = MergeResult{Outcome: MergeUpToDate, Head: def}
			return nil
		}
		ff, err := store.IsAncestor(def, head)
		if err != nil {
			return err
		}
		if ff {
			if err := store.CompareAndSwapRef(m.defaultBranch, def, head); err != nil {
				return err
			}
			res = MergeResult{Outcome: MergeFastForward, Head: head}
			return nil
		}

		id, err := m.threeWay(store, branch, def, head, author, opts.Message)
		if err != nil {
			return err
		}
		if err := store.CompareAndSwapRef(m.defaultBranch, def, id); err != nil {
			return err
		}
		res = MergeResult{Outcome: MergeCommitted, Head: id}
		return nil
	})
	if err != nil {
		return MergeResult{}, err
	}
	if res.Outcome != MergeUpToDate {
		m.InvalidateListing()
		m.record(m.defaultBranch, reflog.OpMerge, old, res.Head, author.String())
	}
	m.log.Info("merge",
		zap.String("branch", branch),
		zap.String("outcome", string(res.Outcome)),
		zap.Stringer("head", res.Head),
	)
	return res, nil
}

func (m *Manager) threeWay(store *git.Store, branch string, def, head plumbing.Hash, author git.Author, message string) (plumbing.Hash, error) {
	base, err := store.MergeBase(def, head)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	baseTree := plumbing.ZeroHash
	if !base.IsZero() {
		c, err := store.ReadCommit(base)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		baseTree = c.TreeHash
	}
	ours, err := store.ReadCommit(def)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	theirs, err := store.ReadCommit(head)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	tree, conflicts, err := store.MergeTrees(baseTree, ours.TreeHash, theirs.TreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if len(conflicts) > 0 {
		return plumbing.ZeroHash, &git.MergeConflictError{Branch: branch, Paths: conflicts}
	}
	if message == "" {
		message = fmt.Sprintf("Merge branch '%s'", branch)
	}
	sig := author.Signature(m.now())
	return store.WriteCommit(tree, []plumbing.Hash{def, head}, sig, git.FormatMessage(message, author))
}
