package contrib

import (
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thiagokokada/contribgit/internal/git"
	"github.com/thiagokokada/contribgit/internal/reflog"
)

func TestMergeFastForwardThenNoop(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.CreateBranch("knowledge-contribution-1")
	require.NoError(t, err)
	head := commitFiles(t, m, "knowledge-contribution-1", map[string]string{"knowledge/x/qna.yaml": "q"}, "Add X", true)

	res, err := m.Merge("knowledge-contribution-1", MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Outcome: MergeFastForward, Head: head}, res)
	assert.Equal(t, head, resolveRef(t, m, "main"))

	// Merging an equal-head branch again is a no-op.
	res, err = m.Merge("knowledge-contribution-1", MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Outcome: MergeUpToDate, Head: head}, res)

	history, err := m.History("main", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, reflog.OpMerge, history[0].Op)
	assert.Equal(t, head.String(), history[0].New)
}

func TestMergeContainedBranchIsNoop(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.CreateBranch("stale")
	require.NoError(t, err)
	next := commitFiles(t, m, "main", map[string]string{"a": "1"}, "Main moves on", false)

	res, err := m.Merge("stale", MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, MergeResult{Outcome: MergeUpToDate, Head: next}, res)
}

func TestMergeThreeWay(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.CreateBranch("skill-contribution-1")
	require.NoError(t, err)
	branchHead := commitFiles(t, m, "skill-contribution-1", map[string]string{"compositional_skills/s/qna.yaml": "s"}, "Add S", true)
	mainHead := commitFiles(t, m, "main", map[string]string{"README.md": "docs"}, "Docs", false)

	maintainer := git.Author{Name: "Maintainer", Email: "maintainer@example.com"}
	res, err := m.Merge("skill-contribution-1", MergeOptions{Author: maintainer})
	require.NoError(t, err)
	assert.Equal(t, MergeCommitted, res.Outcome)
	assert.Equal(t, res.Head, resolveRef(t, m, "main"))

	c := readCommit(t, m, res.Head)
	assert.Equal(t, []plumbing.Hash{mainHead, branchHead}, c.ParentHashes)
	assert.Equal(t, "Merge branch 'skill-contribution-1'\n\nSigned-off-by: Maintainer <maintainer@example.com>", c.Message)

	files, err := m.Files("main")
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "compositional_skills/s/qna.yaml"}, files)

	res, err = m.Merge("skill-contribution-1", MergeOptions{})
	require.NoError(t, err)
	assert.Equal(t, MergeUpToDate, res.Outcome)
}

func TestMergeConflictListsEveryPath(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	commitFiles(t, m, "main", map[string]string{"a.yaml": "0", "b.yaml": "0", "c.yaml": "0"}, "Seed", false)
	_, err := m.CreateBranch("knowledge-contribution-1")
	require.NoError(t, err)
	branchHead := commitFiles(t, m, "knowledge-contribution-1", map[string]string{"a.yaml": "branch", "b.yaml": "branch", "c.yaml": "same"}, "Edit", true)
	mainHead := commitFiles(t, m, "main", map[string]string{"a.yaml": "main", "b.yaml": "main", "c.yaml": "same"}, "Edit main", false)

	_, err = m.Merge("knowledge-contribution-1", MergeOptions{})
	var conflict *git.MergeConflictError
	require.ErrorAs(t, err, &conflict)
	require.ErrorIs(t, err, git.ErrMergeConflict)
	assert.Equal(t, []string{"a.yaml", "b.yaml"}, conflict.Paths)

	assert.Equal(t, mainHead, resolveRef(t, m, "main"))
	assert.Equal(t, branchHead, resolveRef(t, m, "knowledge-contribution-1"))
}

func TestMergeRejectsDefaultAndUnknownBranches(t *testing.T) {
	t.Parallel()

	m := newManager(t)
	_, err := m.Merge("main", MergeOptions{})
	require.ErrorIs(t, err, git.ErrInvalidBranch)
	_, err = m.Merge("nope", MergeOptions{})
	require.ErrorIs(t, err, git.ErrInvalidBranch)
}
