package git

import "strings"

// SignoffMarker separates a contribution title from its DCO trailer.
const SignoffMarker = "Signed-off-by: "

// FormatMessage appends the sign-off trailer for author to message.
func FormatMessage(message string, author Author) string {
	return message + "\n\n" + SignoffMarker + author.String()
}

// Message is the parsed form of a contribution commit message.
type Message struct {
	Title string
	// Signoff is nil when the message carries no trailer.
	Signoff *string
}

// ParseMessage is the inverse of FormatMessage. It never fails: a message
// without the marker becomes a title with no sign-off.
func ParseMessage(raw string) Message {
	idx := strings.Index(raw, SignoffMarker)
	if idx < 0 {
		return Message{Title: strings.TrimRight(raw, "\r\n")}
	}
	rest := raw[idx+len(SignoffMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	signoff := strings.TrimSpace(rest)
	return Message{Title: strings.TrimRight(raw[:idx], "\r\n"), Signoff: &signoff}
}

// ParseAuthor splits "Name <email>" into an Author.
func ParseAuthor(s string) (Author, bool) {
	open := strings.LastIndexByte(s, '<')
	if open < 0 || !strings.HasSuffix(s, ">") {
		return Author{}, false
	}
	name := strings.TrimSpace(s[:open])
	email := strings.TrimSpace(s[open+1 : len(s)-1])
	if name == "" || email == "" {
		return Author{}, false
	}
	return Author{Name: name, Email: email}, true
}
