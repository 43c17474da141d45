package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	author := Author{Name: "Ada Lovelace", Email: "ada@example.com"}
	for _, title := range []string{
		"Add knowledge about engines",
		"Multi\nline\ntitle",
		"Trailing blank lines\n\n\n",
	} {
		msg := ParseMessage(FormatMessage(title, author))
		require.NotNil(t, msg.Signoff)
		assert.Equal(t, "Ada Lovelace <ada@example.com>", *msg.Signoff)
		assert.Equal(t, trimTrailingNewlines(title), msg.Title)
	}
}

func trimTrailingNewlines(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func TestParseMessageWithoutMarker(t *testing.T) {
	t.Parallel()

	msg := ParseMessage("Initial commit\n")
	assert.Nil(t, msg.Signoff)
	assert.Equal(t, "Initial commit", msg.Title)

	msg = ParseMessage("")
	assert.Nil(t, msg.Signoff)
	assert.Equal(t, "", msg.Title)
}

func TestParseMessageUsesFirstMarker(t *testing.T) {
	t.Parallel()

	msg := ParseMessage("Title\n\nSigned-off-by: A <a@x>\nSigned-off-by: B <b@x>\n")
	require.NotNil(t, msg.Signoff)
	assert.Equal(t, "A <a@x>", *msg.Signoff)
	assert.Equal(t, "Title", msg.Title)
}

func TestParseAuthor(t *testing.T) {
	t.Parallel()

	a, ok := ParseAuthor("Ada Lovelace <ada@example.com>")
	require.True(t, ok)
	assert.Equal(t, Author{Name: "Ada Lovelace", Email: "ada@example.com"}, a)

	for _, bad := range []string{"", "Ada", "<ada@example.com>", "Ada <>", "Ada ada@example.com>"} {
		_, ok := ParseAuthor(bad)
		assert.False(t, ok, bad)
	}
}
