package contrib

import (
	"errors"

	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

// Publish replays what branch changed since its branch point onto a branch
// of the same name in dst, recreated from dst's default head. The commit
// keeps the original message and is authored by the signed-off author.
func (m *Manager) Publish(branch string, dst *Manager) (plumbing.Hash, error) {
	if dst == nil || dst == m || dst.mirror == m.mirror {
		return plumbing.ZeroHash, errors.New("publish target must be another repository")
	}
	if branch == m.defaultBranch {
		return plumbing.ZeroHash, &git.InvalidBranchError{Branch: branch, Reason: "default branch cannot be published"}
	}

	var (
		id, old plumbing.Hash
		author  git.Author
		message string
		batch   []git.Change
	)
	err := m.withStore(func(src *git.Store) error {
		head, changes, err := m.branchChanges(src, branch)
		if err != nil {
			return err
		}
		c, err := src.ReadCommit(head)
		if err != nil {
			return err
		}
		msg := git.ParseMessage(c.Message)
		var ok bool
		if msg.Signoff != nil {
			author, ok = git.ParseAuthor(*msg.Signoff)
		}
		if !ok {
			return &git.InvalidBranchError{Branch: branch, Reason: "head commit is not signed off"}
		}
		message = c.Message

		batch = make([]git.Change, 0, len(changes))
		for _, ch := range changes {
			if ch.Status == git.StatusDeleted {
				batch = append(batch, git.Remove(ch.Path))
				continue
			}
			data, err := src.ReadBlob(ch.To)
			if err != nil {
				return err
			}
			batch = append(batch, git.Change{Path: ch.Path, Content: data, Mode: ch.Mode})
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}

	// The source lock is released first; holding both would let two crossing
	// publishes deadlock against pending swaps.
	err = dst.withStore(func(store *git.Store) error {
		dst.refsMu.Lock()
		defer dst.refsMu.Unlock()
		def, err := store.ResolveRef(dst.defaultBranch)
		if err != nil {
			return err
		}
		base, err := store.ReadCommit(def)
		if err != nil {
			return err
		}
		tree, err := store.ApplyChanges(base.TreeHash, batch)
		if err != nil {
			return err
		}
		id, err = store.WriteCommit(tree, []plumbing.Hash{def}, author.Signature(m.now()), message)
		if err != nil {
			return err
		}
		if prev, err := store.ResolveRef(branch); err == nil {
			old = prev
		}
		return store.UpdateRef(branch, id)
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	dst.InvalidateListing()
	dst.record(branch, reflog.OpPublish, old, id, author.String())
	m.log.Info("branch published",
		zap.String("branch", branch),
		zap.String("target", dst.name),
		zap.Stringer("head", id),
	)
	return id, nil
}
