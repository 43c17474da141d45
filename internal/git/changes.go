package git

import (
	"maps"
	"slices"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

// Change is one file level edit applied by ApplyChanges.
type Change struct {
	Path    string
	Content []byte
	// Blob, when set, names an already stored blob and Content is ignored.
	Blob   plumbing.Hash
	Mode   filemode.FileMode
	Remove bool
}

func Put(path string, content []byte) Change {
	return Change{Path: path, Content: content}
}

func Remove(path string) Change {
	return Change{Path: path, Remove: true}
}

type changeNode struct {
	leaf     *Change
	children map[string]*changeNode
}

func newChangeNode() *changeNode {
	return &changeNode{children: map[string]*changeNode{}}
}

// buildChangeTree folds a batch into a trie keyed by path segment. For a
// repeated path the last change wins, so "remove a, put a" keeps the file.
func buildChangeTree(changes []Change) (*changeNode, error) {
	root := newChangeNode()
	for i := range changes {
		ch := changes[i]
		segments, err := splitPath(ch.Path)
		if err != nil {
			return nil, err
		}
		node := root
		for _, seg := range segments {
			next, ok := node.children[seg]
			if !ok {
				next = newChangeNode()
				node.children[seg] = next
			}
			node = next
		}
		node.leaf = &ch
	}
	if err := checkChangeTree(root, ""); err != nil {
		return nil, err
	}
	return root, nil
}

func checkChangeTree(node *changeNode, prefix string) error {
	for name, child := range node.children {
		path := joinPath(prefix, name)
		if child.leaf != nil && !child.leaf.Remove && hasPut(child) {
			return &InvalidPathError{Path: path, Reason: "written as both file and directory"}
		}
		if err := checkChangeTree(child, path); err != nil {
			return err
		}
	}
	return nil
}

func hasPut(node *changeNode) bool {
	for _, child := range node.children {
		if child.leaf != nil && !child.leaf.Remove {
			return true
		}
		if hasPut(child) {
			return true
		}
	}
	return false
}

// ApplyChanges writes the blobs of a change batch and rebuilds the tree of
// base along the touched paths only. Subtrees outside the batch keep their ids.
// Removing a path that does not exist is a no-op.
func (s *Store) ApplyChanges(base plumbing.Hash, changes []Change) (plumbing.Hash, error) {
	root, err := buildChangeTree(changes)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	id, _, err := s.applyNode(base, root)
	return id, err
}

func (s *Store) applyNode(treeID plumbing.Hash, node *changeNode) (plumbing.Hash, int, error) {
	current, err := s.TreeEntries(treeID)
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}
	entries := make(map[string]TreeEntry, len(current))
	for _, e := range current {
		entries[e.Name] = e
	}
	for _, name := range slices.Sorted(maps.Keys(node.children)) {
		child := node.children[name]
		existing, exists := entries[name]
		if leaf := child.leaf; leaf != nil {
			if leaf.Remove {
				delete(entries, name)
				exists = false
			} else {
				blobID := leaf.Blob
				if blobID.IsZero() {
					blobID, err = s.WriteBlob(leaf.Content)
					if err != nil {
						return plumbing.ZeroHash, 0, err
					}
				}
				mode := leaf.Mode
				if mode == filemode.Empty {
					mode = filemode.Regular
				}
				// Removals queued beneath a file put are subsumed by the put.
				entries[name] = TreeEntry{Name: name, Kind: KindBlob, ID: blobID, Mode: mode}
				continue
			}
		}
		if len(child.children) == 0 {
			continue
		}
		subBase := plumbing.ZeroHash
		if exists && existing.Kind == KindTree {
			subBase = existing.ID
		}
		subID, n, err := s.applyNode(subBase, child)
		if err != nil {
			return plumbing.ZeroHash, 0, err
		}
		if n == 0 {
			// Removals beneath a file leave the file alone.
			if exists && existing.Kind != KindTree {
				continue
			}
			delete(entries, name)
			continue
		}
		entries[name] = TreeEntry{Name: name, Kind: KindTree, ID: subID}
	}
	id, err := s.WriteTree(slices.Collect(maps.Values(entries)))
	if err != nil {
		return plumbing.ZeroHash, 0, err
	}
	return id, len(entries), nil
}
