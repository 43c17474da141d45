package git

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/pmezard/go-difflib/difflib"
)

// FileSection records the line at which a file's patch starts in a rendered preview.
type FileSection struct {
	Path string
	Line int
}

const previewContext = 3

// Preview renders a unified text diff for every change in changes. Binary
// blobs are summarized rather than diffed.
func (s *Store) Preview(changes []FileChange) (string, []FileSection, error) {
	var b strings.Builder
	lineNo := 0
	var sections []FileSection
	for _, ch := range changes {
		header := fmt.Sprintf("diff --git a/%s b/%s\n", ch.Path, ch.Path)
		sections = append(sections, FileSection{Path: ch.Path, Line: lineNo + 1})
		b.WriteString(header)
		lineNo++

		from, err := s.blobOrEmpty(ch.From)
		if err != nil {
			return "", nil, err
		}
		to, err := s.blobOrEmpty(ch.To)
		if err != nil {
			return "", nil, err
		}
		if isBinary(from) || isBinary(to) {
			b.WriteString("(binary files differ)\n")
			lineNo++
			continue
		}
		fromFile, toFile := "a/"+ch.Path, "b/"+ch.Path
		switch ch.Status {
		case StatusAdded:
			fromFile = "/dev/null"
		case StatusDeleted:
			toFile = "/dev/null"
		}
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        previewLines(from),
			B:        previewLines(to),
			FromFile: fromFile,
			ToFile:   toFile,
			Context:  previewContext,
		})
		if err != nil {
			return "", nil, err
		}
		if text == "" {
			b.WriteString("(no textual changes)\n")
			lineNo++
			continue
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		b.WriteString(text)
		lineNo += strings.Count(text, "\n")
	}
	return b.String(), sections, nil
}

func (s *Store) blobOrEmpty(id plumbing.Hash) ([]byte, error) {
	if id.IsZero() {
		return nil, nil
	}
	return s.ReadBlob(id)
}

func previewLines(data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	return difflib.SplitLines(string(data))
}

// isBinary uses git's heuristic: a NUL byte within the first 8000 bytes.
func isBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}
