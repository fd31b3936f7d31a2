package partialeval

import (
	"fmt"

	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/fir"
	"github.com/cockroachdb/errors"
)

// ErrorKind classifies a failure caused by the program being lowered.
type ErrorKind uint8

const (
	// OutputResultLiteral reports a literal Zero or One reaching recorded
	// output. Recorded results name a measurement register, which a literal
	// does not have.
	OutputResultLiteral ErrorKind = iota
	// Unsupported reports a construct the pass cannot lower for the target.
	Unsupported
	// Evaluation reports a failure of static evaluation, such as division
	// by zero.
	Evaluation
)

func (k ErrorKind) String() string {
	switch k {
	case OutputResultLiteral:
		return "OutputResultLiteral"
	case Unsupported:
		return "Unsupported"
	case Evaluation:
		return "Evaluation"
	default:
		return fmt.Sprintf("ErrorKind(%d)", uint8(k))
	}
}

// Error is a user-facing failure of partial evaluation, located at Span.
type Error struct {
	Kind  ErrorKind
	Span  fir.Span
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Span)
	}
	return fmt.Sprintf("%s(%s): %s", e.Kind, e.Span, e.Msg)
}

// Unwrap returns the evaluator error behind an Evaluation error.
func (e *Error) Unwrap() error {
	return e.cause
}

func unsupported(span fir.Span, format string, args ...any) *Error {
	return &Error{Kind: Unsupported, Span: span, Msg: fmt.Sprintf(format, args...)}
}

// evaluationError converts a classical evaluator failure. Anything other
// than an *eval.Error is passed through unchanged.
func evaluationError(err error) error {
	var ee *eval.Error
	if !errors.As(err, &ee) {
		return err
	}
	kind := Evaluation
	if ee.Kind == eval.Unsupported {
		kind = Unsupported
	}
	msg := ee.Kind.String()
	if ee.Msg != "" {
		msg += ": " + ee.Msg
	}
	return &Error{Kind: kind, Span: ee.Span, Msg: msg, cause: err}
}
