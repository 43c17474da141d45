package git

import (
	"fmt"
	"io"

	"github.com/go-git/go-git/v5/plumbing"
)

// CopyObjects transfers every object reachable from commit id into dst.
// The walk stops at commits dst already holds, so repeated copies only move
// what is new. Object ids are preserved.
func (s *Store) CopyObjects(dst *Store, id plumbing.Hash) (int, error) {
	copied := 0
	commits := []plumbing.Hash{id}
	seen := map[plumbing.Hash]struct{}{}
	for len(commits) > 0 {
		cur := commits[len(commits)-1]
		commits = commits[:len(commits)-1]
		if _, ok := seen[cur]; ok {
			continue
		}
		seen[cur] = struct{}{}
		if dst.has(cur) {
			continue
		}
		c, err := s.commitObject(cur)
		if err != nil {
			return copied, err
		}
		n, err := s.copyTree(dst, c.TreeHash)
		if err != nil {
			return copied, err
		}
		copied += n
		if err := s.copyRaw(dst, plumbing.CommitObject, cur); err != nil {
			return copied, err
		}
		copied++
		commits = append(commits, c.ParentHashes...)
	}
	return copied, nil
}

func (s *Store) copyTree(dst *Store, treeID plumbing.Hash) (int, error) {
	copied := 0
	trees := []plumbing.Hash{treeID}
	for len(trees) > 0 {
		cur := trees[len(trees)-1]
		trees = trees[:len(trees)-1]
		if dst.has(cur) {
			continue
		}
		entries, err := s.TreeEntries(cur)
		if err != nil {
			return copied, err
		}
		for _, e := range entries {
			if e.Kind == KindTree {
				trees = append(trees, e.ID)
				continue
			}
			if dst.has(e.ID) {
				continue
			}
			if err := s.copyRaw(dst, plumbing.BlobObject, e.ID); err != nil {
				return copied, err
			}
			copied++
		}
		if err := s.copyRaw(dst, plumbing.TreeObject, cur); err != nil {
			return copied, err
		}
		copied++
	}
	return copied, nil
}

func (s *Store) has(id plumbing.Hash) bool {
	return s.repo.Storer.HasEncodedObject(id) == nil
}

func (s *Store) copyRaw(dst *Store, t plumbing.ObjectType, id plumbing.Hash) error {
	src, err := s.encodedObject(t, id)
	if err != nil {
		return err
	}
	r, err := src.Reader()
	if err != nil {
		return &CorruptObjectError{ID: id, Err: err}
	}
	defer r.Close()
	obj := dst.repo.Storer.NewEncodedObject()
	obj.SetType(src.Type())
	obj.SetSize(src.Size())
	w, err := obj.Writer()
	if err != nil {
		return fmt.Errorf("copy %s: %w", id, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copy %s: %w", id, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("copy %s: %w", id, err)
	}
	got, err := dst.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return fmt.Errorf("store %s: %w", id, err)
	}
	if got != id {
		return &CorruptObjectError{ID: id, Err: fmt.Errorf("content hashes to %s", got)}
	}
	return nil
}
