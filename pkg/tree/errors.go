package tree

import (
	"errors"
	"fmt"
)

// Addressing errors
var (
	// ErrNotFound indicates that a location or element does not exist in the tree.
	ErrNotFound = errors.New("not found")

	// ErrOutOfRange indicates that a splice would reach past the parent's children.
	ErrOutOfRange = errors.New("out of range")
)

// Construction and data source errors
var (
	// ErrInvalidConfiguration indicates a tree was built with options it cannot honor.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrProviderFailure indicates that a children provider failed to resolve children.
	ErrProviderFailure = errors.New("children provider failed")
)

// TreeError carries the failing operation and, when known, the location
// it addressed.
type TreeError struct {
	Op       string
	Location Location
	Err      error
}

func (e *TreeError) Error() string {
	if e.Location == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Location, e.Err)
}

func (e *TreeError) Unwrap() error {
	return e.Err
}

func newError(op string, location Location, err error) error {
	return &TreeError{Op: op, Location: location.Clone(), Err: err}
}
