package isodata

import (
	"errors"
	"fmt"
)

// Kind classifies a classifier failure.
type Kind int

const (
	// KindPrecondition: an operation was called out of order.
	KindPrecondition Kind = iota + 1
	// KindIO: the source raster could not be read or the output not written.
	KindIO
	// KindNotImplemented: the requested variant exists only as a stub.
	KindNotImplemented
	// KindNumeric: the cluster set degenerated (every centre eliminated).
	KindNumeric
	// KindCanceled: the caller's context ended during a pass.
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindIO:
		return "io"
	case KindNotImplemented:
		return "not implemented"
	case KindNumeric:
		return "numeric"
	case KindCanceled:
		return "canceled"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrNotInitialised = errors.New("cluster centres have not been initialised")
	ErrNotImplemented = errors.New("not implemented")
	ErrNoCentres      = errors.New("every cluster centre was eliminated")
)

// Error is the single error type surfaced by the classifier.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("isodata %s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("isodata %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
