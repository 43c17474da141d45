package cmd

import (
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/xlab/treeprint"

	"github.com/thiagokokada/contribgit/internal/git"
)

var (
	addedColor    = color.New(color.FgGreen)
	modifiedColor = color.New(color.FgYellow)
	deletedColor  = color.New(color.FgRed)
	dimColor      = color.New(color.Faint)
)

func statusLetter(s git.ChangeStatus) string {
	switch s {
	case git.StatusAdded:
		return addedColor.Sprint("A")
	case git.StatusDeleted:
		return deletedColor.Sprint("D")
	default:
		return modifiedColor.Sprint("M")
	}
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if color.NoColor {
		t.SetStyle(table.StyleDefault)
	}
	t.AppendHeader(table.Row(header))
	return t
}

// writePatch prints a rendered preview, highlighted when colors are on.
func writePatch(w io.Writer, patch string) error {
	if color.NoColor {
		_, err := io.WriteString(w, patch)
		return err
	}
	return quick.Highlight(w, patch, "diff", "terminal256", "monokai")
}

// pathTree arranges slash separated paths into a tree rooted at name.
func pathTree(name string, paths []string) treeprint.Tree {
	root := treeprint.NewWithRoot(name)
	branches := map[string]treeprint.Tree{"": root}
	for _, p := range paths {
		parts := strings.Split(p, "/")
		for i := range parts[:len(parts)-1] {
			dir := strings.Join(parts[:i+1], "/")
			if _, ok := branches[dir]; ok {
				continue
			}
			parent := branches[strings.Join(parts[:i], "/")]
			branches[dir] = parent.AddBranch(parts[i])
		}
		branches[strings.Join(parts[:len(parts)-1], "/")].AddNode(parts[len(parts)-1])
	}
	return root
}

func shortHash(h string) string {
	if len(h) > 10 {
		return h[:10]
	}
	return h
}
