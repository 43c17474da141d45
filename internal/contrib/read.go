package contrib

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/thiagokokada/contribgit/internal/git"
)

// Diff lists the files that differ between two revisions. An empty revision
// stands for the empty tree.
func (m *Manager) Diff(from, to string) ([]git.FileChange, error) {
	var changes []git.FileChange
	err := m.withStore(func(store *git.Store) error {
		a, err := resolve(store, from)
		if err != nil {
			return err
		}
		b, err := resolve(store, to)
		if err != nil {
			return err
		}
		changes, err = store.DiffCommits(a, b)
		return err
	})
	return changes, err
}

// Changes lists what branch changed relative to its branch point on the
// default branch.
func (m *Manager) Changes(branch string) ([]git.FileChange, error) {
	var changes []git.FileChange
	err := m.withStore(func(store *git.Store) error {
		var err error
		_, changes, err = m.branchChanges(store, branch)
		return err
	})
	return changes, err
}

func (m *Manager) branchChanges(store *git.Store, branch string) (plumbing.Hash, []git.FileChange, error) {
	head, err := store.ResolveRef(branch)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	def, err := store.ResolveRef(m.defaultBranch)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	base, err := store.MergeBase(def, head)
	if err != nil {
		return plumbing.ZeroHash, nil, err
	}
	changes, err := store.DiffCommits(base, head)
	return head, changes, err
}

// Preview renders the textual patch between two revisions.
func (m *Manager) Preview(from, to string) (string, []git.FileSection, error) {
	var (
		text     string
		sections []git.FileSection
	)
	err := m.withStore(func(store *git.Store) error {
		a, err := resolve(store, from)
		if err != nil {
			return err
		}
		b, err := resolve(store, to)
		if err != nil {
			return err
		}
		changes, err := store.DiffCommits(a, b)
		if err != nil {
			return err
		}
		text, sections, err = store.Preview(changes)
		return err
	})
	return text, sections, err
}

// Files lists every file path at rev.
func (m *Manager) Files(rev string) ([]string, error) {
	var paths []string
	err := m.withStore(func(store *git.Store) error {
		id, err := resolve(store, rev)
		if err != nil {
			return err
		}
		all, err := store.DiffCommits(plumbing.ZeroHash, id)
		if err != nil {
			return err
		}
		paths = make([]string, 0, len(all))
		for _, ch := range all {
			paths = append(paths, ch.Path)
		}
		return nil
	})
	return paths, err
}

// FileInfo names the commit that last touched a file.
type FileInfo struct {
	Path   string        `json:"path"`
	Commit plumbing.Hash `json:"commit"`
	When   time.Time     `json:"when"`
}

// FileInfo lists the files under dir at rev with the commit that last
// changed each one. The empty dir is the repository root.
func (m *Manager) FileInfo(rev, dir string) ([]FileInfo, error) {
	dir = strings.Trim(dir, "/")
	if dir != "" {
		if err := git.ValidatePath(dir); err != nil {
			return nil, err
		}
	}
	var infos []FileInfo
	err := m.withStore(func(store *git.Store) error {
		id, err := resolve(store, rev)
		if err != nil {
			return err
		}
		if id.IsZero() {
			return &git.NotFoundError{Kind: "ref", Name: rev}
		}
		all, err := store.DiffCommits(plumbing.ZeroHash, id)
		if err != nil {
			return err
		}
		for _, ch := range all {
			if dir != "" && !strings.HasPrefix(ch.Path, dir+"/") {
				continue
			}
			c, err := store.LastCommit(id, ch.Path)
			if err != nil {
				return err
			}
			infos = append(infos, FileInfo{Path: ch.Path, Commit: c.Hash, When: c.Committer.When})
		}
		return nil
	})
	return infos, err
}

// ListDirectories returns the names of the directories directly under path
// on the default branch. The empty path is the repository root.
func (m *Manager) ListDirectories(path string) ([]string, error) {
	var dirs []string
	err := m.withStore(func(store *git.Store) error {
		head, err := store.ResolveRef(m.defaultBranch)
		if err != nil {
			return err
		}
		entries, err := store.ReadTree(head, path)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.Kind == git.KindTree {
				dirs = append(dirs, e.Name)
			}
		}
		return nil
	})
	slices.Sort(dirs)
	return dirs, err
}

// Archive writes a zstd compressed tarball of rev with every path under prefix.
func (m *Manager) Archive(w io.Writer, rev, prefix string) error {
	return m.withStore(func(store *git.Store) error {
		id, err := resolve(store, rev)
		if err != nil {
			return err
		}
		if id.IsZero() {
			return &git.NotFoundError{Kind: "ref", Name: rev}
		}
		return store.Archive(w, id, prefix)
	})
}
