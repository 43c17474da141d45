package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePath(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"a", "knowledge/x/qna.yaml", "a.b/c..d"} {
		assert.NoError(t, ValidatePath(ok), ok)
	}
	for _, bad := range []string{"", "/a", "a/", "a//b", "./a", "a/../b", ".git", "x/.git/y", "a\x00b"} {
		assert.ErrorIs(t, ValidatePath(bad), ErrInvalidPath, bad)
	}
}

func TestValidateBranchName(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"main", "knowledge-contribution-1712345678901", "feature/x", "v1.2"} {
		assert.NoError(t, ValidateBranchName(ok), ok)
	}
	for _, bad := range []string{"", "HEAD", "-x", "a..b", "a b", "a:b", "x.lock", "a/", "/a", "a//b", "a/.b", "a@{1}", "a~1", "tab\there"} {
		assert.ErrorIs(t, ValidateBranchName(bad), ErrInvalidBranch, bad)
	}
}
