package git

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreviewRendersUnifiedDiffWithSections(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	a := commitOn(t, s, root, Put("a.txt", []byte("hello\n")), Put("old.txt", []byte("bye\n")))
	b := commitOn(t, s, a, Put("a.txt", []byte("hello\nworld\n")), Remove("old.txt"), Put("new.txt", []byte("hi\n")))

	changes, err := s.DiffCommits(a, b)
	require.NoError(t, err)
	text, sections, err := s.Preview(changes)
	require.NoError(t, err)

	require.Len(t, sections, 3)
	lines := strings.Split(text, "\n")
	for _, sec := range sections {
		require.LessOrEqual(t, sec.Line, len(lines))
		assert.Equal(t, "diff --git a/"+sec.Path+" b/"+sec.Path, lines[sec.Line-1])
	}
	assert.Equal(t, 1, sections[0].Line)
	assert.Equal(t, "a.txt", sections[0].Path)

	assert.Contains(t, text, "--- a/a.txt\n+++ b/a.txt\n")
	assert.Contains(t, text, "+world\n")
	assert.Contains(t, text, "--- /dev/null\n+++ b/new.txt\n")
	assert.Contains(t, text, "--- a/old.txt\n+++ /dev/null\n")
	assert.Contains(t, text, "-bye\n")
}

func TestPreviewBinary(t *testing.T) {
	t.Parallel()

	s, root := seededStore(t)
	a := commitOn(t, s, root, Put("img.png", []byte{0x89, 'P', 'N', 'G', 0, 1}))
	changes, err := s.DiffCommits(root, a)
	require.NoError(t, err)

	text, sections, err := s.Preview(changes)
	require.NoError(t, err)
	assert.Equal(t, "diff --git a/img.png b/img.png\n(binary files differ)\n", text)
	assert.Equal(t, []FileSection{{Path: "img.png", Line: 1}}, sections)
}

func TestPreviewEmpty(t *testing.T) {
	t.Parallel()

	s := NewMemory()
	text, sections, err := s.Preview(nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Empty(t, sections)
}
