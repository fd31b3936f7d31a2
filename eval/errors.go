package eval

import (
	"fmt"

	"github.com/chazu/qpe/fir"
)

// ErrorKind classifies classical evaluation failures.
type ErrorKind uint8

const (
	DivisionByZero ErrorKind = iota
	IndexOutOfRange
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case DivisionByZero:
		return "DivisionByZero"
	case IndexOutOfRange:
		return "IndexOutOfRange"
	default:
		return "Unsupported"
	}
}

// Error is a failure of the evaluated program, located at Span.
type Error struct {
	Kind ErrorKind
	Span fir.Span
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Span)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Span, e.Msg)
}

func newError(kind ErrorKind, span fir.Span, format string, args ...any) *Error {
	return &Error{Kind: kind, Span: span, Msg: fmt.Sprintf(format, args...)}
}
