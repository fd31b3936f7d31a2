package partialeval

import (
	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/rir"
)

// EvalControlFlow is the result of evaluating an expression or statement:
// either the value it produced, or the value of a return executed inside
// it. A return must propagate past the rest of the enclosing statements up
// to the call boundary.
type EvalControlFlow struct {
	value    eval.Value
	isReturn bool
}

// Continue is a normal result.
func Continue(v eval.Value) EvalControlFlow {
	return EvalControlFlow{value: v}
}

// Return is the result of an executed return.
func Return(v eval.Value) EvalControlFlow {
	return EvalControlFlow{value: v, isReturn: true}
}

// Value returns the payload of either variant.
func (f EvalControlFlow) Value() eval.Value {
	return f.value
}

// IsReturn reports whether a return was executed.
func (f EvalControlFlow) IsReturn() bool {
	return f.isReturn
}

func (f EvalControlFlow) String() string {
	if f.isReturn {
		return "Return(" + f.value.String() + ")"
	}
	return "Continue(" + f.value.String() + ")"
}

// BranchControlFlow is the result of lowering one arm of a branch: control
// continues in a block, or the arm resolved to a return value.
type BranchControlFlow struct {
	block    rir.BlockId
	value    eval.Value
	isReturn bool
}

// BranchBlock continues in block id.
func BranchBlock(id rir.BlockId) BranchControlFlow {
	return BranchControlFlow{block: id}
}

// BranchReturn resolves to a return of v.
func BranchReturn(v eval.Value) BranchControlFlow {
	return BranchControlFlow{value: v, isReturn: true}
}

// Block returns the block of a BranchBlock result.
func (f BranchControlFlow) Block() (rir.BlockId, bool) {
	return f.block, !f.isReturn
}

// ReturnValue returns the value of a BranchReturn result.
func (f BranchControlFlow) ReturnValue() (eval.Value, bool) {
	return f.value, f.isReturn
}
