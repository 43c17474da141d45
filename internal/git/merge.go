package git

import (
	"maps"
	"slices"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
)

type sideChange struct {
	to   plumbing.Hash // zero when the path is deleted
	mode filemode.FileMode
}

func finalStates(changes []FileChange) map[string]sideChange {
	out := make(map[string]sideChange, len(changes))
	for _, ch := range changes {
		if ch.Status == StatusDeleted {
			if _, ok := out[ch.Path]; !ok {
				out[ch.Path] = sideChange{}
			}
			continue
		}
		out[ch.Path] = sideChange{to: ch.To, mode: ch.Mode}
	}
	return out
}

// MergeTrees replays base→theirs onto ours. A path changed on both sides to
// different results, or a file on one side colliding with a directory on the
// other, is a conflict; conflicts are returned sorted and no tree is written.
// Identical changes on both sides merge cleanly.
func (s *Store) MergeTrees(base, ours, theirs plumbing.Hash) (plumbing.Hash, []string, error) {
	oursChanges, err := s.DiffTrees(base, ours)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	theirsChanges, err := s.DiffTrees(base, theirs)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	oursFinal := finalStates(oursChanges)
	theirsFinal := finalStates(theirsChanges)

	conflicts := map[string]struct{}{}
	oursDirs := dirPrefixes(oursFinal)
	theirsDirs := dirPrefixes(theirsFinal)
	var apply []Change
	for _, path := range slices.Sorted(maps.Keys(theirsFinal)) {
		t := theirsFinal[path]
		if o, both := oursFinal[path]; both {
			if o != t {
				conflicts[path] = struct{}{}
			}
			continue
		}
		if !t.to.IsZero() {
			if _, ok := oursDirs[path]; ok {
				conflicts[path] = struct{}{}
				continue
			}
			if p, ok := changedAncestor(path, oursFinal); ok {
				conflicts[path] = struct{}{}
				conflicts[p] = struct{}{}
				continue
			}
		}
		if t.to.IsZero() {
			apply = append(apply, Remove(path))
		} else {
			apply = append(apply, Change{Path: path, Blob: t.to, Mode: t.mode})
		}
	}
	for path, o := range oursFinal {
		if o.to.IsZero() {
			continue
		}
		if _, ok := theirsDirs[path]; ok {
			if _, both := theirsFinal[path]; !both {
				conflicts[path] = struct{}{}
			}
		}
	}
	if len(conflicts) > 0 {
		return plumbing.ZeroHash, slices.Sorted(maps.Keys(conflicts)), nil
	}
	merged, err := s.ApplyChanges(ours, apply)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	return merged, nil, nil
}

// dirPrefixes collects every directory that holds a written path.
func dirPrefixes(states map[string]sideChange) map[string]struct{} {
	dirs := map[string]struct{}{}
	for path, st := range states {
		if st.to.IsZero() {
			continue
		}
		for i := strings.IndexByte(path, '/'); i >= 0; {
			dirs[path[:i]] = struct{}{}
			next := strings.IndexByte(path[i+1:], '/')
			if next < 0 {
				break
			}
			i += next + 1
		}
	}
	return dirs
}

// changedAncestor reports an ancestor of path that the other side wrote as a file.
func changedAncestor(path string, states map[string]sideChange) (string, bool) {
	for i := len(path) - 1; i > 0; i-- {
		if path[i] != '/' {
			continue
		}
		if st, ok := states[path[:i]]; ok && !st.to.IsZero() {
			return path[:i], true
		}
	}
	return "", false
}
