package git

import (
	"archive/tar"
	"fmt"
	"io"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/klauspost/compress/zstd"
)

// Archive writes the tree of commitID as a zstd compressed tar stream rooted
// at prefix. Every entry carries the commit's committer time so archives of
// the same commit are byte-identical.
func (s *Store) Archive(w io.Writer, commitID plumbing.Hash, prefix string) error {
	c, err := s.commitObject(commitID)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return fmt.Errorf("create encoder: %w", err)
	}
	tw := tar.NewWriter(enc)
	if err := s.archiveTree(tw, c.TreeHash, prefix, c.Committer.When); err != nil {
		tw.Close()
		enc.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("close archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

func (s *Store) archiveTree(tw *tar.Writer, treeID plumbing.Hash, prefix string, when time.Time) error {
	type pending struct {
		path string
		id   plumbing.Hash
	}
	stack := []pending{{path: prefix, id: treeID}}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		entries, err := s.TreeEntries(cur.id)
		if err != nil {
			return err
		}
		if cur.path != "" {
			hdr := &tar.Header{Typeflag: tar.TypeDir, Name: cur.path + "/", Mode: 0o755, ModTime: when}
			if err := tw.WriteHeader(hdr); err != nil {
				return fmt.Errorf("write %s: %w", cur.path, err)
			}
		}
		// Push in reverse so entries come out in tree order.
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			if e.Kind == KindTree {
				stack = append(stack, pending{path: joinPath(cur.path, e.Name), id: e.ID})
			}
		}
		for _, e := range entries {
			if e.Kind == KindTree {
				continue
			}
			if err := s.archiveBlob(tw, joinPath(cur.path, e.Name), e, when); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Store) archiveBlob(tw *tar.Writer, path string, e TreeEntry, when time.Time) error {
	data, err := s.ReadBlob(e.ID)
	if err != nil {
		return err
	}
	hdr := &tar.Header{Typeflag: tar.TypeReg, Name: path, Mode: 0o644, Size: int64(len(data)), ModTime: when}
	switch e.Mode {
	case filemode.Executable:
		hdr.Mode = 0o755
	case filemode.Symlink:
		hdr = &tar.Header{Typeflag: tar.TypeSymlink, Name: path, Linkname: string(data), Mode: 0o777, ModTime: when}
	case filemode.Submodule:
		return nil
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if hdr.Typeflag != tar.TypeReg {
		return nil
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
