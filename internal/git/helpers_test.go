package git

import (
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/require"
)

var testAuthor = Signature{Name: "Maintainer", Email: "maintainer@example.com", When: time.Unix(1700000000, 0).UTC()}

func seededStore(t *testing.T) (*Store, plumbing.Hash) {
	t.Helper()
	s := NewMemory()
	root, err := s.Seed("main", testAuthor, "Initial commit")
	require.NoError(t, err)
	return s, root
}

// commitOn applies changes on top of parent and returns the new commit id.
// The ref is not moved.
func commitOn(t *testing.T, s *Store, parent plumbing.Hash, changes ...Change) plumbing.Hash {
	t.Helper()
	base, err := s.commitTree(parent)
	require.NoError(t, err)
	tree, err := s.ApplyChanges(base, changes)
	require.NoError(t, err)
	var parents []plumbing.Hash
	if !parent.IsZero() {
		parents = []plumbing.Hash{parent}
	}
	id, err := s.WriteCommit(tree, parents, testAuthor, "change")
	require.NoError(t, err)
	return id
}

func treeOf(t *testing.T, s *Store, commit plumbing.Hash) plumbing.Hash {
	t.Helper()
	c, err := s.ReadCommit(commit)
	require.NoError(t, err)
	return c.TreeHash
}
