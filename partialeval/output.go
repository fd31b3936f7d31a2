package partialeval

import (
	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
)

// Names of the output recording callables.
const (
	tupleRecordName   = "__quantum__rt__tuple_record_output"
	arrayRecordName   = "__quantum__rt__array_record_output"
	resultRecordName  = "__quantum__rt__result_record_output"
	boolRecordName    = "__quantum__rt__bool_record_output"
	integerRecordName = "__quantum__rt__integer_record_output"
	doubleRecordName  = "__quantum__rt__double_record_output"
)

// Locator maps the position of a value inside recorded output to a source
// span. The path lists tuple or array indices from the outermost value.
type Locator func(path []int) fir.Span

// SpanLocator locates every position at span.
func SpanLocator(span fir.Span) Locator {
	return func([]int) fir.Span { return span }
}

// ExprLocator follows a path through the tuple and array expressions that
// built a value, looking through blocks to their trailing expression. When
// the path leaves the expression structure, the innermost expression
// reached is used.
func ExprLocator(pkg *fir.Package, expr fir.ExprId) Locator {
	return func(path []int) fir.Span {
		e := trailingExpr(pkg, pkg.GetExpr(expr))
		for _, i := range path {
			if (e.Kind != fir.ExprTuple && e.Kind != fir.ExprArray) || i >= len(e.Items) {
				break
			}
			e = trailingExpr(pkg, pkg.GetExpr(e.Items[i]))
		}
		return e.Span
	}
}

// BlockLocator locates output produced by a block's trailing expression,
// falling back to fallback when the block has none.
func BlockLocator(pkg *fir.Package, block fir.BlockId, fallback fir.Span) Locator {
	b := pkg.GetBlock(block)
	if n := len(b.Stmts); n > 0 {
		if s := pkg.GetStmt(b.Stmts[n-1]); s.Kind == fir.StmtExpr {
			return ExprLocator(pkg, s.Expr)
		}
	}
	return SpanLocator(fallback)
}

func trailingExpr(pkg *fir.Package, e *fir.Expr) *fir.Expr {
	for e.Kind == fir.ExprBlock {
		b := pkg.GetBlock(e.Block)
		n := len(b.Stmts)
		if n == 0 {
			return e
		}
		s := pkg.GetStmt(b.Stmts[n-1])
		if s.Kind != fir.StmtExpr {
			return e
		}
		e = pkg.GetExpr(s.Expr)
	}
	return e
}

// RecordOutput emits the record instructions for value, of type ty, into
// the current block. Containers emit a length-prefixed marker before their
// items, depth first and left to right.
//
// The whole value is checked before anything is emitted: a literal result
// anywhere in it fails with OutputResultLiteral, located by locate.
func RecordOutput(ctx *EvaluationContext, b *rir.Builder, ty fir.Ty, value eval.Value, locate Locator) error {
	if locate == nil {
		locate = SpanLocator(fir.Span{})
	}
	if err := checkOutput(ty, value, nil, locate); err != nil {
		return err
	}
	recordOutput(b, ctx.CurrentBlockId(), ty, value)
	return nil
}

func checkOutput(ty fir.Ty, v eval.Value, path []int, locate Locator) error {
	switch ty.Kind {
	case fir.TyTuple:
		for i, item := range v.UnwrapTuple() {
			if err := checkOutput(ty.Items[i], item, append(path, i), locate); err != nil {
				return err
			}
		}
		return nil
	case fir.TyArray:
		for i, item := range v.UnwrapArray() {
			if err := checkOutput(*ty.Elem, item, append(path, i), locate); err != nil {
				return err
			}
		}
		return nil
	case fir.TyPrim:
		switch ty.Prim {
		case fir.PrimResult:
			if v.UnwrapResult().IsLiteral() {
				return &Error{Kind: OutputResultLiteral, Span: locate(path)}
			}
			return nil
		case fir.PrimBool, fir.PrimInt, fir.PrimDouble:
			return nil
		}
	}
	return unsupported(locate(path), "output of type %s cannot be recorded", ty)
}

func recordOutput(b *rir.Builder, block rir.BlockId, ty fir.Ty, v eval.Value) {
	switch ty.Kind {
	case fir.TyTuple:
		items := v.UnwrapTuple()
		emitRecord(b, block, tupleRecordName, rir.IntegerLit(int64(len(items))))
		for i, item := range items {
			recordOutput(b, block, ty.Items[i], item)
		}
	case fir.TyArray:
		items := v.UnwrapArray()
		emitRecord(b, block, arrayRecordName, rir.IntegerLit(int64(len(items))))
		for _, item := range items {
			recordOutput(b, block, *ty.Elem, item)
		}
	case fir.TyPrim:
		switch ty.Prim {
		case fir.PrimResult:
			emitRecord(b, block, resultRecordName, rir.ResultLit(v.UnwrapResult().ID()))
		case fir.PrimBool:
			emitRecord(b, block, boolRecordName, mustOperand(v))
		case fir.PrimInt:
			emitRecord(b, block, integerRecordName, mustOperand(v))
		case fir.PrimDouble:
			emitRecord(b, block, doubleRecordName, mustOperand(v))
		}
	}
}

func emitRecord(b *rir.Builder, block rir.BlockId, name string, arg rir.Operand) {
	id := b.Callable(name, rir.OutputRecording, []rir.Ty{arg.Ty, rir.Pointer}, nil)
	b.Append(block, rir.Call(id, []rir.Operand{arg, rir.PointerLit()}, nil))
}

func mustOperand(v eval.Value) rir.Operand {
	op, ok := operandOf(v)
	if !ok {
		panic(errors.AssertionFailedf("value %s has no operand form", v.Kind()))
	}
	return op
}

// operandOf converts a scalar value to an operand. Result literals have no
// operand form.
func operandOf(v eval.Value) (rir.Operand, bool) {
	switch v.Kind() {
	case eval.KindBool:
		return rir.BoolLit(v.UnwrapBool()), true
	case eval.KindInt:
		return rir.IntegerLit(v.UnwrapInt()), true
	case eval.KindDouble:
		return rir.DoubleLit(v.UnwrapDouble()), true
	case eval.KindQubit:
		return rir.QubitLit(v.UnwrapQubit()), true
	case eval.KindResult:
		r := v.UnwrapResult()
		if r.IsLiteral() {
			return rir.Operand{}, false
		}
		return rir.ResultLit(r.ID()), true
	case eval.KindVar:
		return rir.VarOperand(rirVariable(v.UnwrapVar())), true
	}
	return rir.Operand{}, false
}

func rirVariable(v eval.Var) rir.Variable {
	return rir.Variable{Id: rir.VariableId(v.ID), Ty: rirTy(v.Ty)}
}

func rirTy(p fir.Prim) rir.Ty {
	switch p {
	case fir.PrimBool:
		return rir.Boolean
	case fir.PrimInt:
		return rir.Integer
	case fir.PrimDouble:
		return rir.Double
	case fir.PrimQubit:
		return rir.Qubit
	case fir.PrimResult:
		return rir.Result
	}
	panic(errors.AssertionFailedf("no RIR type for %s", p))
}
