// Package kerrors defines the error kinds surfaced by the keep
// repartitioning engine: invariant violations, I/O failures and planner
// infeasibility are all fatal to the current repartition, but a caller
// needs to tell them apart (infeasibility is retryable with a larger
// memory bound; the others are not).
package kerrors

import (
	"github.com/pkg/errors"
)

// Kind distinguishes the dispositions of keep/block/partition/repartition
// failures.
type Kind int

const (
	// Invariant marks a violated structural invariant: shapes that don't
	// divide the array, a write block that overflowed its capacity,
	// observed seeks diverging from the plan's prediction.
	Invariant Kind = iota
	// IO marks a failure at the OS level: open, seek, read, write, remove.
	IO
	// Infeasible marks a planner that could not find a read shape
	// satisfying the caller's memory bound.
	Infeasible
)

func (k Kind) String() string {
	switch k {
	case Invariant:
		return "invariant violation"
	case IO:
		return "I/O failure"
	case Infeasible:
		return "no shape satisfies memory constraint"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind so callers can branch on
// disposition without string matching.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind wrapping a formatted message.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: errors.Errorf(format, args...)}
}

// Wrap returns an *Error of the given kind wrapping err with additional
// context, or nil if err is nil.
func Wrap(kind Kind, err error, context string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: errors.Wrap(err, context)}
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
