package git

import (
	"fmt"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Author identifies the contributor signing off a commit.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a Author) String() string {
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Signature stamps a with when.
func (a Author) Signature(when time.Time) Signature {
	return Signature{Name: a.Name, Email: a.Email, When: when}
}

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

type Commit struct {
	Hash         plumbing.Hash
	ParentHashes []plumbing.Hash
	Author       Signature
	Committer    Signature
	Message      string
	TreeHash     plumbing.Hash
}

type ObjectKind uint8

const (
	KindBlob ObjectKind = iota
	KindTree
)

func (k ObjectKind) String() string {
	if k == KindTree {
		return "tree"
	}
	return "blob"
}

// TreeEntry is one named child of a tree. Mode is derived from Kind when
// left empty.
type TreeEntry struct {
	Name string
	Kind ObjectKind
	ID   plumbing.Hash
	Mode filemode.FileMode
}

func (e TreeEntry) mode() filemode.FileMode {
	if e.Kind == KindTree {
		return filemode.Dir
	}
	if e.Mode == filemode.Empty || e.Mode == filemode.Dir {
		return filemode.Regular
	}
	return e.Mode
}

type Branch struct {
	Name string
	Head plumbing.Hash
}
