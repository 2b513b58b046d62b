package instance

import (
	"errors"
	"fmt"
)

var (
	// ErrParent matches every *ParentError.
	ErrParent = errors.New("invalid parent")
	// ErrParentLocked is returned when an external caller destroys a protected node.
	ErrParentLocked = errors.New("instance is parent-locked")
	// ErrAlreadyDisposed is returned for operations on destroyed instances.
	ErrAlreadyDisposed = errors.New("instance already destroyed")
	// ErrNotFound is returned for unknown or non-constructible kinds.
	ErrNotFound = errors.New("not found")
	// ErrKindExists is returned when a kind name is registered twice.
	ErrKindExists = errors.New("kind already registered")
	// ErrSingletonExists is returned when a second live singleton is constructed.
	ErrSingletonExists = errors.New("singleton already exists")
	// ErrContextClosed is returned by a Context after Close.
	ErrContextClosed = errors.New("instance context closed")
)

// ParentError reports a structurally invalid SetParent call: parenting a node
// to itself, to one of its descendants, or across contexts.
type ParentError struct {
	Child  string
	Parent string
	Reason string
}

func (e *ParentError) Error() string {
	return fmt.Sprintf("set parent of %s to %s: %s", e.Child, e.Parent, e.Reason)
}

func (e *ParentError) Is(target error) bool {
	return target == ErrParent
}
