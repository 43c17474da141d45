package git

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
)

// Sentinel values matched by the typed errors below through errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrBranchExists  = errors.New("branch already exists")
	ErrInvalidBranch = errors.New("invalid branch")
	ErrCorruptObject = errors.New("corrupt object")
	ErrMergeConflict = errors.New("merge conflict")
	ErrStaleHead     = errors.New("stale branch head")
	ErrInvalidPath   = errors.New("invalid path")
)

// NotFoundError reports a missing ref, commit, object or path.
type NotFoundError struct {
	Kind string // ref, commit, tree, blob, path
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type BranchExistsError struct {
	Branch string
}

func (e *BranchExistsError) Error() string {
	return fmt.Sprintf("branch %q already exists", e.Branch)
}

func (e *BranchExistsError) Is(target error) bool { return target == ErrBranchExists }

// InvalidBranchError is returned when an operation targets the protected
// default branch or a branch that does not exist.
type InvalidBranchError struct {
	Branch string
	Reason string
}

func (e *InvalidBranchError) Error() string {
	return fmt.Sprintf("invalid branch %q: %s", e.Branch, e.Reason)
}

func (e *InvalidBranchError) Is(target error) bool { return target == ErrInvalidBranch }

// CorruptObjectError means the object database holds something that cannot
// be decoded. Callers should treat it as fatal for the repository.
type CorruptObjectError struct {
	ID  plumbing.Hash
	Err error
}

func (e *CorruptObjectError) Error() string {
	return fmt.Sprintf("corrupt object %s: %v", e.ID, e.Err)
}

func (e *CorruptObjectError) Is(target error) bool { return target == ErrCorruptObject }

func (e *CorruptObjectError) Unwrap() error { return e.Err }

// MergeConflictError carries every path changed divergently on both sides.
type MergeConflictError struct {
	Branch string
	Paths  []string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("merge %q: %d conflicting path(s): %s", e.Branch, len(e.Paths), strings.Join(e.Paths, ", "))
}

func (e *MergeConflictError) Is(target error) bool { return target == ErrMergeConflict }

// StaleHeadError is returned when a branch moved after a worktree was checked out.
type StaleHeadError struct {
	Branch   string
	Expected plumbing.Hash
	Actual   plumbing.Hash
}

func (e *StaleHeadError) Error() string {
	return fmt.Sprintf("branch %q moved from %s to %s", e.Branch, e.Expected, e.Actual)
}

func (e *StaleHeadError) Is(target error) bool { return target == ErrStaleHead }

type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

func (e *InvalidPathError) Is(target error) bool { return target == ErrInvalidPath }

func notFound(kind, name string) error {
	return &NotFoundError{Kind: kind, Name: name}
}
