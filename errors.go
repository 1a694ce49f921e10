package operation

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrCancelled is returned when a run terminates through cooperative
// cancellation rather than a thrown failure.
var ErrCancelled = errors.New("operation: cancelled")

// OperationFailure wraps a panic recovered from an operation's body, with
// the stack captured at recovery. The panic is recovered outside the
// modifier pipeline, so WithRetry does not retry it. Errors a body returns
// are not wrapped in OperationFailure; they reach the state and awaiters as
// returned.
type OperationFailure struct {
	Path       Path
	Cause      error
	Context    string
	StackTrace []byte
}

func (e *OperationFailure) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("operation failure at %v during %s: %v", e.Path, e.Context, e.Cause)
	}
	return fmt.Sprintf("operation failure at %v: %v", e.Path, e.Cause)
}

func (e *OperationFailure) Unwrap() error {
	return e.Cause
}

func newOperationFailure(path Path, cause error, context string) *OperationFailure {
	return &OperationFailure{
		Path:       path,
		Cause:      cause,
		Context:    context,
		StackTrace: debug.Stack(),
	}
}

// IsCancelled reports whether err represents cooperative cancellation,
// either directly or via Go's context.Canceled.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// DuplicatePathError is reported (never panicked) when the Client observes
// two operations registering under the same Path with incompatible state
// types.
type DuplicatePathError struct {
	Path        Path
	ExistingTy  string
	RequestedTy string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("operation: duplicate path %v: existing store has state type %s, requested %s", e.Path, e.ExistingTy, e.RequestedTy)
}

// IssueReporter receives non-fatal issues the library encounters, such as
// DuplicatePathError. The default reporter is a no-op; tests and
// applications may install their own via Client options.
type IssueReporter func(error)

func defaultIssueReporter(error) {}
