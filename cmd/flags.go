package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/thiagokokada/contribgit/internal/git"
)

// authorValue is a pflag.Value accepting "Name <email>".
type authorValue struct {
	author *git.Author
}

var _ pflag.Value = authorValue{}

func newAuthorValue(a *git.Author) authorValue {
	return authorValue{author: a}
}

func (v authorValue) String() string {
	if v.author == nil || v.author.Name == "" {
		return ""
	}
	return v.author.String()
}

func (v authorValue) Set(s string) error {
	a, ok := git.ParseAuthor(s)
	if !ok {
		return fmt.Errorf("expected \"Name <email>\", got %q", s)
	}
	*v.author = a
	return nil
}

func (authorValue) Type() string { return "author" }

// authorFlag registers --author on fs.
func authorFlag(fs *pflag.FlagSet, a *git.Author, usage string) {
	fs.Var(newAuthorValue(a), "author", usage)
}

// authorFromEnv falls back to the identity git itself would use.
func authorFromEnv(a git.Author) git.Author {
	if a.Name != "" {
		return a
	}
	name, email := os.Getenv("GIT_AUTHOR_NAME"), os.Getenv("GIT_AUTHOR_EMAIL")
	if name != "" && email != "" {
		return git.Author{Name: name, Email: email}
	}
	return a
}

func requireAuthor(a git.Author) (git.Author, error) {
	a = authorFromEnv(a)
	if a.Name == "" || a.Email == "" {
		return a, fmt.Errorf("an author is required: pass --author \"Name <email>\" or set GIT_AUTHOR_NAME and GIT_AUTHOR_EMAIL")
	}
	return a, nil
}
