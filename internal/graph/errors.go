package graph

import (
	"errors"
	"fmt"

	"github.com/MyCarrier-DevOps/go-gitgraph/internal/toposort"
)

// Error kinds shared by every backend. Test with errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrMissingObject        = errors.New("missing object")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrRateLimited          = errors.New("rate limited")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrCyclicDependency     = toposort.ErrCyclicDependency
)

// OpError records the operation and identifier that failed along with the
// error kind and the underlying cause.
type OpError struct {
	Op   string // e.g. "list commits"
	ID   string // e.g. a SHA, branch name or owner/repo
	Kind error  // one of the Err* kinds, or nil
	Err  error  // underlying cause, may be nil
}

// NewOpError creates an OpError.
func NewOpError(op, id string, kind, err error) *OpError {
	return &OpError{Op: op, ID: id, Kind: kind, Err: err}
}

func (e *OpError) Error() string {
	msg := e.Op
	if e.ID != "" {
		msg += " " + e.ID
	}
	switch {
	case e.Kind != nil && e.Err != nil:
		return fmt.Sprintf("%s: %v: %v", msg, e.Kind, e.Err)
	case e.Kind != nil:
		return fmt.Sprintf("%s: %v", msg, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
