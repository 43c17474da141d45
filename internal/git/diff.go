package git

import (
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusModified ChangeStatus = "modified"
	StatusDeleted  ChangeStatus = "deleted"
)

// FileChange is one entry of a tree diff. From and To are the blob ids on
// each side; the missing side is the zero hash.
type FileChange struct {
	Path   string        `json:"path"`
	Status ChangeStatus  `json:"status"`
	From   plumbing.Hash `json:"-"`
	To     plumbing.Hash `json:"-"`
	// Mode is the file mode on the To side.
	Mode filemode.FileMode `json:"-"`
}

// diffItem is a unit of pending work. When side is set the item is
// one-sided: left holds the tree whose blobs are all reported with that status.
type diffItem struct {
	prefix string
	left   plumbing.Hash
	right  plumbing.Hash
	side   ChangeStatus
}

// DiffCommits diffs the trees of two commits. A zero commit id stands for
// the empty tree.
func (s *Store) DiffCommits(a, b plumbing.Hash) ([]FileChange, error) {
	left, err := s.commitTree(a)
	if err != nil {
		return nil, err
	}
	right, err := s.commitTree(b)
	if err != nil {
		return nil, err
	}
	return s.DiffTrees(left, right)
}

func (s *Store) commitTree(id plumbing.Hash) (plumbing.Hash, error) {
	if id.IsZero() {
		return plumbing.ZeroHash, nil
	}
	c, err := s.commitObject(id)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	return c.TreeHash, nil
}

// DiffTrees walks both trees in lock step using an explicit work stack.
// Entries with equal ids are skipped without descending; the result is
// sorted by path. Any read error aborts the walk and nothing is returned.
func (s *Store) DiffTrees(left, right plumbing.Hash) ([]FileChange, error) {
	var changes []FileChange
	stack := []diffItem{{left: left, right: right}}
	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if item.side != "" {
			found, err := s.expand(item)
			if err != nil {
				return nil, err
			}
			changes = append(changes, found.changes...)
			stack = append(stack, found.pending...)
			continue
		}
		if item.left == item.right {
			continue
		}
		l, err := s.TreeEntries(item.left)
		if err != nil {
			return nil, err
		}
		r, err := s.TreeEntries(item.right)
		if err != nil {
			return nil, err
		}
		rightByName := make(map[string]TreeEntry, len(r))
		for _, e := range r {
			rightByName[e.Name] = e
		}
		for _, le := range l {
			path := joinPath(item.prefix, le.Name)
			re, shared := rightByName[le.Name]
			if !shared {
				changes, stack = oneSided(changes, stack, path, le, StatusDeleted)
				continue
			}
			delete(rightByName, le.Name)
			if le.ID == re.ID && le.Kind == re.Kind {
				continue
			}
			switch {
			case le.Kind == KindTree && re.Kind == KindTree:
				stack = append(stack, diffItem{prefix: path, left: le.ID, right: re.ID})
			case le.Kind == KindBlob && re.Kind == KindBlob:
				changes = append(changes, FileChange{Path: path, Status: StatusModified, From: le.ID, To: re.ID, Mode: re.mode()})
			default:
				changes, stack = oneSided(changes, stack, path, le, StatusDeleted)
				changes, stack = oneSided(changes, stack, path, re, StatusAdded)
			}
		}
		for _, re := range rightByName {
			changes, stack = oneSided(changes, stack, joinPath(item.prefix, re.Name), re, StatusAdded)
		}
	}
	slices.SortFunc(changes, func(a, b FileChange) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		// A kind change yields two entries for one path; deletions sort first.
		return strings.Compare(string(b.Status), string(a.Status))
	})
	return changes, nil
}

func oneSided(changes []FileChange, stack []diffItem, path string, e TreeEntry, status ChangeStatus) ([]FileChange, []diffItem) {
	if e.Kind == KindTree {
		return changes, append(stack, diffItem{prefix: path, left: e.ID, side: status})
	}
	ch := FileChange{Path: path, Status: status}
	if status == StatusAdded {
		ch.To = e.ID
		ch.Mode = e.mode()
	} else {
		ch.From = e.ID
	}
	return append(changes, ch), stack
}

type expansion struct {
	changes []FileChange
	pending []diffItem
}

func (s *Store) expand(item diffItem) (expansion, error) {
	entries, err := s.TreeEntries(item.left)
	if err != nil {
		return expansion{}, err
	}
	var out expansion
	for _, e := range entries {
		out.changes, out.pending = oneSided(out.changes, out.pending, joinPath(item.prefix, e.Name), e, item.side)
	}
	return out, nil
}
