package git

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Store reads and writes commits, trees, blobs and refs of one repository.
// It holds no checked-out state; every read is addressed by commit or ref.
// Store does no locking of its own; callers serialize ref mutations.
type Store struct {
	repo *gitlib.Repository
	path string
}

// Open opens the repository at path. Both bare and non-bare layouts work;
// parent directories are not searched.
func Open(path string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpen(abs)
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, notFound("repository", abs)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &Store{repo: repo, path: abs}, nil
}

// InitBare creates an empty bare repository whose HEAD points at defaultBranch.
// The branch itself does not exist until Seed or a ref update creates it.
func InitBare(path, defaultBranch string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainInitWithOptions(abs, &gitlib.PlainInitOptions{
		InitOptions: gitlib.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(defaultBranch)},
		Bare:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}
	return &Store{repo: repo, path: abs}, nil
}

// NewMemory returns a store backed by in-memory storage.
func NewMemory() *Store {
	repo, err := gitlib.Init(memory.NewStorage(), nil)
	if err != nil {
		// Init only fails on an already initialized storer.
		panic(err)
	}
	return &Store{repo: repo}
}

func (s *Store) Path() string {
	return s.path
}

// Seed writes an empty-tree root commit on branch and points HEAD at it.
func (s *Store) Seed(branch string, author Signature, message string) (plumbing.Hash, error) {
	treeID, err := s.WriteTree(nil)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	commitID, err := s.WriteCommit(treeID, nil, author, message)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if err := s.UpdateRef(branch, commitID); err != nil {
		return plumbing.ZeroHash, err
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := s.repo.Storer.SetReference(head); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("set HEAD: %w", err)
	}
	return commitID, nil
}

func refName(name string) plumbing.ReferenceName {
	if name == plumbing.HEAD.String() || strings.HasPrefix(name, "refs/") {
		return plumbing.ReferenceName(name)
	}
	return plumbing.NewBranchReferenceName(name)
}

// ResolveRef returns the commit a branch (or full ref name) points to.
func (s *Store) ResolveRef(name string) (plumbing.Hash, error) {
	ref, err := storer.ResolveReference(s.repo.Storer, refName(name))
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, notFound("ref", name)
		}
		return plumbing.ZeroHash, fmt.Errorf("resolve ref %s: %w", name, err)
	}
	return ref.Hash(), nil
}

func (s *Store) HasBranch(name string) (bool, error) {
	_, err := s.repo.Storer.Reference(refName(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("read ref %s: %w", name, err)
}

// Branches lists local branches sorted by name.
func (s *Store) Branches() ([]Branch, error) {
	refs, err := s.repo.Storer.IterReferences()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer refs.Close()
	var branches []Branch
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference || !ref.Name().IsBranch() {
			return nil
		}
		branches = append(branches, Branch{Name: ref.Name().Short(), Head: ref.Hash()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	slices.SortFunc(branches, func(a, b Branch) int { return strings.Compare(a.Name, b.Name) })
	return branches, nil
}

func (s *Store) UpdateRef(name string, id plumbing.Hash) error {
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(refName(name), id)); err != nil {
		return fmt.Errorf("update ref %s: %w", name, err)
	}
	return nil
}

// CreateRef points a new branch at id and fails if the branch already exists.
func (s *Store) CreateRef(name string, id plumbing.Hash) error {
	exists, err := s.HasBranch(name)
	if err != nil {
		return err
	}
	if exists {
		return &BranchExistsError{Branch: name}
	}
	return s.UpdateRef(name, id)
}

// CompareAndSwapRef moves name from old to id, failing with StaleHeadError
// when the ref no longer points at old.
func (s *Store) CompareAndSwapRef(name string, old, id plumbing.Hash) error {
	ref := plumbing.NewHashReference(refName(name), id)
	prev := plumbing.NewHashReference(refName(name), old)
	err := s.repo.Storer.CheckAndSetReference(ref, prev)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrReferenceHasChanged) {
		actual, rerr := s.ResolveRef(name)
		if rerr != nil {
			return rerr
		}
		return &StaleHeadError{Branch: name, Expected: old, Actual: actual}
	}
	return fmt.Errorf("update ref %s: %w", name, err)
}

func (s *Store) RemoveRef(name string) error {
	exists, err := s.HasBranch(name)
	if err != nil {
		return err
	}
	if !exists {
		return notFound("ref", name)
	}
	if err := s.repo.Storer.RemoveReference(refName(name)); err != nil {
		return fmt.Errorf("remove ref %s: %w", name, err)
	}
	return nil
}

func (s *Store) encodedObject(t plumbing.ObjectType, id plumbing.Hash) (plumbing.EncodedObject, error) {
	obj, err := s.repo.Storer.EncodedObject(t, id)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, notFound(t.String(), id.String())
		}
		return nil, fmt.Errorf("read %s %s: %w", t, id, err)
	}
	return obj, nil
}

func (s *Store) commitObject(id plumbing.Hash) (*object.Commit, error) {
	obj, err := s.encodedObject(plumbing.CommitObject, id)
	if err != nil {
		return nil, err
	}
	c, err := object.DecodeCommit(s.repo.Storer, obj)
	if err != nil {
		return nil, &CorruptObjectError{ID: id, Err: err}
	}
	return c, nil
}

func (s *Store) ReadCommit(id plumbing.Hash) (*Commit, error) {
	c, err := s.commitObject(id)
	if err != nil {
		return nil, err
	}
	return newCommit(c), nil
}

func newCommit(c *object.Commit) *Commit {
	return &Commit{
		Hash:         c.Hash,
		ParentHashes: slices.Clone(c.ParentHashes),
		Author:       Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer:    Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Message:      c.Message,
		TreeHash:     c.TreeHash,
	}
}

// TreeEntries reads the entries of a tree object. The zero hash is the empty tree.
func (s *Store) TreeEntries(id plumbing.Hash) ([]TreeEntry, error) {
	if id.IsZero() {
		return nil, nil
	}
	obj, err := s.encodedObject(plumbing.TreeObject, id)
	if err != nil {
		return nil, err
	}
	tree, err := object.DecodeTree(s.repo.Storer, obj)
	if err != nil {
		return nil, &CorruptObjectError{ID: id, Err: err}
	}
	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		if e.Name == "" || strings.Contains(e.Name, "/") {
			return nil, &CorruptObjectError{ID: id, Err: fmt.Errorf("bad entry name %q", e.Name)}
		}
		kind := KindBlob
		if e.Mode == filemode.Dir {
			kind = KindTree
		}
		entries = append(entries, TreeEntry{Name: e.Name, Kind: kind, ID: e.Hash, Mode: e.Mode})
	}
	return entries, nil
}

// ReadTree lists the directory at path inside the tree of commitID.
func (s *Store) ReadTree(commitID plumbing.Hash, path string) ([]TreeEntry, error) {
	c, err := s.commitObject(commitID)
	if err != nil {
		return nil, err
	}
	treeID := c.TreeHash
	if path != "" {
		entry, err := s.lookup(treeID, path)
		if err != nil {
			return nil, err
		}
		if entry.Kind != KindTree {
			return nil, notFound("tree", path)
		}
		treeID = entry.ID
	}
	return s.TreeEntries(treeID)
}

// ReadFile returns the content of the blob at path in commitID.
func (s *Store) ReadFile(commitID plumbing.Hash, path string) ([]byte, error) {
	c, err := s.commitObject(commitID)
	if err != nil {
		return nil, err
	}
	entry, err := s.lookup(c.TreeHash, path)
	if err != nil {
		return nil, err
	}
	if entry.Kind != KindBlob {
		return nil, notFound("blob", path)
	}
	return s.ReadBlob(entry.ID)
}

// LastCommit returns the commit on the first-parent history of head that
// last changed path. The path must exist at head.
func (s *Store) LastCommit(head plumbing.Hash, path string) (*Commit, error) {
	c, err := s.commitObject(head)
	if err != nil {
		return nil, err
	}
	entry, err := s.lookup(c.TreeHash, path)
	if err != nil {
		return nil, err
	}
	for len(c.ParentHashes) > 0 {
		parent, err := s.commitObject(c.ParentHashes[0])
		if err != nil {
			return nil, err
		}
		prev, err := s.lookup(parent.TreeHash, path)
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if prev.ID != entry.ID || prev.Kind != entry.Kind {
			break
		}
		c = parent
	}
	return newCommit(c), nil
}

func (s *Store) lookup(treeID plumbing.Hash, path string) (TreeEntry, error) {
	segments, err := splitPath(path)
	if err != nil {
		return TreeEntry{}, err
	}
	current := TreeEntry{Kind: KindTree, ID: treeID}
	for _, name := range segments {
		if current.Kind != KindTree {
			return TreeEntry{}, notFound("path", path)
		}
		entries, err := s.TreeEntries(current.ID)
		if err != nil {
			return TreeEntry{}, err
		}
		idx := slices.IndexFunc(entries, func(e TreeEntry) bool { return e.Name == name })
		if idx < 0 {
			return TreeEntry{}, notFound("path", path)
		}
		current = entries[idx]
	}
	return current, nil
}

func (s *Store) ReadBlob(id plumbing.Hash) ([]byte, error) {
	obj, err := s.encodedObject(plumbing.BlobObject, id)
	if err != nil {
		return nil, err
	}
	r, err := obj.Reader()
	if err != nil {
		return nil, &CorruptObjectError{ID: id, Err: err}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &CorruptObjectError{ID: id, Err: err}
	}
	return data, nil
}

func (s *Store) WriteBlob(data []byte) (plumbing.Hash, error) {
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))
	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", err)
	}
	id, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return id, nil
}

// WriteTree stores a tree. Entry names must be unique; order is normalized
// to git's canonical sort.
func (s *Store) WriteTree(entries []TreeEntry) (plumbing.Hash, error) {
	seen := make(map[string]struct{}, len(entries))
	tree := &object.Tree{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		if e.Name == "" || e.Name == "." || e.Name == ".." || strings.Contains(e.Name, "/") {
			return plumbing.ZeroHash, &InvalidPathError{Path: e.Name, Reason: "bad tree entry name"}
		}
		if _, dup := seen[e.Name]; dup {
			return plumbing.ZeroHash, &InvalidPathError{Path: e.Name, Reason: "duplicate tree entry"}
		}
		seen[e.Name] = struct{}{}
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: e.Name, Mode: e.mode(), Hash: e.ID})
	}
	sortTreeEntries(tree.Entries)
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.TreeObject)
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
	}
	id, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store tree: %w", err)
	}
	return id, nil
}

// sortTreeEntries orders entries the way git does: directories compare as
// if their name had a trailing slash.
func sortTreeEntries(entries []object.TreeEntry) {
	key := func(e object.TreeEntry) string {
		if e.Mode == filemode.Dir {
			return e.Name + "/"
		}
		return e.Name
	}
	slices.SortFunc(entries, func(a, b object.TreeEntry) int { return strings.Compare(key(a), key(b)) })
}

// WriteCommit stores a commit whose author and committer are both author.
func (s *Store) WriteCommit(treeID plumbing.Hash, parents []plumbing.Hash, author Signature, message string) (plumbing.Hash, error) {
	if err := s.repo.Storer.HasEncodedObject(treeID); err != nil {
		return plumbing.ZeroHash, notFound("tree", treeID.String())
	}
	sig := object.Signature{Name: author.Name, Email: author.Email, When: author.When}
	if sig.When.IsZero() {
		sig.When = time.Now()
	}
	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeID,
		ParentHashes: slices.Clone(parents),
	}
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.CommitObject)
	if err := commit.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode commit: %w", err)
	}
	id, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store commit: %w", err)
	}
	return id, nil
}

// IsAncestor reports whether a is reachable from b (a commit is its own ancestor).
func (s *Store) IsAncestor(a, b plumbing.Hash) (bool, error) {
	if a == b {
		return true, nil
	}
	ca, err := s.commitObject(a)
	if err != nil {
		return false, err
	}
	cb, err := s.commitObject(b)
	if err != nil {
		return false, err
	}
	ok, err := ca.IsAncestor(cb)
	if err != nil {
		return false, fmt.Errorf("walk history: %w", err)
	}
	return ok, nil
}

// MergeBase returns the nearest common ancestor of a and b, or the zero hash
// for unrelated histories.
func (s *Store) MergeBase(a, b plumbing.Hash) (plumbing.Hash, error) {
	ca, err := s.commitObject(a)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	cb, err := s.commitObject(b)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("merge base: %w", err)
	}
	if len(bases) == 0 {
		return plumbing.ZeroHash, nil
	}
	return bases[0].Hash, nil
}
