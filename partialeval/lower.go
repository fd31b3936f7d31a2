package partialeval

import (
	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
)

// readResultName is the readout callable that turns a result into a Bool.
const readResultName = "__quantum__qis__read_result__body"

// evalExpr evaluates an expression. Expressions the analysis classifies as
// classical run in the classical evaluator; the rest are walked here and
// emit instructions for their dynamic parts.
func (ev *evaluator) evalExpr(id fir.ExprId) (EvalControlFlow, error) {
	f := ev.frame()
	if !f.props.Expr(id).IsQuantum {
		scope := ev.ctx.CurrentScope()
		v, err := ev.interp.EvalExpr(scope.Env, scope.PackageId, id)
		return ev.classicalFlow(v, err)
	}

	e := f.pkg.GetExpr(id)
	switch e.Kind {
	case fir.ExprLit:
		v, err := eval.FromLit(e.Lit)
		if err != nil {
			return EvalControlFlow{}, unsupported(e.Span, "%v", err)
		}
		return Continue(v), nil

	case fir.ExprVar:
		return Continue(ev.lookup(e.Var)), nil

	case fir.ExprGlobal:
		return Continue(eval.Global(e.Item, e.Functor)), nil

	case fir.ExprTuple, fir.ExprArray:
		vals, flow, err := ev.evalExprs(e.Items)
		if err != nil || flow.IsReturn() {
			return flow, err
		}
		if e.Kind == fir.ExprTuple {
			return Continue(eval.Tuple(vals...)), nil
		}
		return Continue(eval.Array(vals...)), nil

	case fir.ExprIndex:
		arr, err := ev.evalExpr(e.Lhs)
		if err != nil || arr.IsReturn() {
			return arr, err
		}
		idx, err := ev.evalExpr(e.Rhs)
		if err != nil || idx.IsReturn() {
			return idx, err
		}
		if isDynamic(idx.Value()) {
			return EvalControlFlow{}, unsupported(e.Span, "array index depends on a measurement")
		}
		v, err := eval.Index(arr.Value(), idx.Value(), e.Span)
		if err != nil {
			return EvalControlFlow{}, evaluationError(err)
		}
		return Continue(v), nil

	case fir.ExprCall:
		return ev.evalCallExpr(e)

	case fir.ExprBinOp:
		return ev.evalBinOp(e)

	case fir.ExprUnOp:
		operand, err := ev.evalExpr(e.Lhs)
		if err != nil || operand.IsReturn() {
			return operand, err
		}
		v, err := ev.unOp(e, operand.Value())
		if err != nil {
			return EvalControlFlow{}, err
		}
		return Continue(v), nil

	case fir.ExprIf:
		return ev.evalIf(e)

	case fir.ExprBlock:
		return ev.evalBlock(e.Block)

	case fir.ExprReturn:
		flow, err := ev.evalExpr(e.Lhs)
		if err != nil || flow.IsReturn() {
			return flow, err
		}
		scope := ev.ctx.CurrentScope()
		if scope.IsCurrentlyEvaluatingBranch() {
			return EvalControlFlow{}, unsupported(e.Span, "return from within a dynamic branch")
		}
		scope.Env.Truncate(1)
		if len(ev.frames) == 1 {
			ev.entryReturn, ev.hasEntryReturn = e.Lhs, true
		}
		return Return(flow.Value()), nil

	case fir.ExprAssign:
		flow, err := ev.evalExpr(e.Rhs)
		if err != nil || flow.IsReturn() {
			return flow, err
		}
		if err := ev.assign(e.Lhs, flow.Value(), e.Span); err != nil {
			return EvalControlFlow{}, err
		}
		return Continue(eval.Unit()), nil

	case fir.ExprWhile:
		for {
			cond, err := ev.evalExpr(e.Cond)
			if err != nil || cond.IsReturn() {
				return cond, err
			}
			if isDynamic(cond.Value()) {
				return EvalControlFlow{}, unsupported(e.Span, "loop condition depends on a measurement")
			}
			if !cond.Value().UnwrapBool() {
				return Continue(eval.Unit()), nil
			}
			body, err := ev.evalBlock(e.Block)
			if err != nil || body.IsReturn() {
				return body, err
			}
		}
	}
	panic(errors.AssertionFailedf("expression kind %s not handled", e.Kind))
}

// evalExprs evaluates ids in order. When one of them returns, the returned
// flow is the second result.
func (ev *evaluator) evalExprs(ids []fir.ExprId) ([]eval.Value, EvalControlFlow, error) {
	vals := make([]eval.Value, len(ids))
	for i, id := range ids {
		flow, err := ev.evalExpr(id)
		if err != nil || flow.IsReturn() {
			return nil, flow, err
		}
		vals[i] = flow.Value()
	}
	return vals, Continue(eval.Unit()), nil
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (ev *evaluator) evalCallExpr(e *fir.Expr) (EvalControlFlow, error) {
	callee, err := ev.evalExpr(e.Lhs)
	if err != nil || callee.IsReturn() {
		return callee, err
	}
	arg, err := ev.evalExpr(e.Rhs)
	if err != nil || arg.IsReturn() {
		return arg, err
	}
	c := callee.Value()
	if c.Kind() != eval.KindGlobal {
		return EvalControlFlow{}, unsupported(e.Span, "call through a %s value", c.Kind())
	}
	ref, functor := c.UnwrapGlobal()
	decl := ev.store.GetCallable(ref)
	var v eval.Value
	switch {
	case decl.Intrinsic:
		v, err = ev.intrinsic(decl, functor, arg.Value(), e.Span)
	case !functor.IsBody():
		return EvalControlFlow{}, unsupported(e.Span, "%s specialization of %s", functor, decl.Name)
	default:
		v, err = ev.evalCall(ref, functor, decl, arg.Value())
	}
	if err != nil {
		return EvalControlFlow{}, err
	}
	return Continue(v), nil
}

// intrinsic lowers a call to a body-less callable. Qubits get static ids;
// operations returning a Result are measurements into a fresh result;
// other operations become calls to target gates.
func (ev *evaluator) intrinsic(decl *fir.CallableDecl, functor fir.FunctorApp, arg eval.Value, span fir.Span) (eval.Value, error) {
	switch decl.Name {
	case fir.QubitAllocateName:
		return eval.Qubit(ev.b.AllocateQubit()), nil
	case fir.QubitReleaseName:
		ev.b.ReleaseQubit(arg.UnwrapQubit())
		return eval.Unit(), nil
	case fir.IntAsDoubleName:
		if isDynamic(arg) {
			dest, val := ev.newVar(fir.PrimDouble)
			ev.emit(rir.Unary(rir.InstrConvert, mustOperand(arg), dest))
			return val, nil
		}
	}
	if decl.Kind == fir.CallableFunction {
		v, err := eval.Intrinsic(decl.Name, arg, span)
		if err != nil {
			return eval.Value{}, evaluationError(err)
		}
		return v, nil
	}
	if !functor.IsBody() {
		return eval.Value{}, unsupported(span, "%s specialization of intrinsic %s", functor, decl.Name)
	}

	var operands []rir.Operand
	if err := flattenOperands(arg, &operands); err != nil {
		return eval.Value{}, unsupported(span, "argument to %s: %v", decl.Name, err)
	}
	tys := make([]rir.Ty, len(operands))
	for i, op := range operands {
		tys[i] = op.Ty
	}

	if decl.Output.IsPrim(fir.PrimResult) {
		r := ev.b.AllocateResult()
		id := ev.b.Callable(decl.Name, rir.Measurement, append(tys, rir.Result), nil)
		ev.emit(rir.Call(id, append(operands, rir.ResultLit(r)), nil))
		return eval.ResultValue(eval.ResultID(r)), nil
	}
	if decl.Output.IsUnit() {
		id := ev.b.Callable(decl.Name, rir.Regular, tys, nil)
		ev.emit(rir.Call(id, operands, nil))
		return eval.Unit(), nil
	}
	if decl.Output.Kind != fir.TyPrim || !isScalar(decl.Output.Prim) {
		return eval.Value{}, unsupported(span, "intrinsic %s returns %s", decl.Name, decl.Output)
	}
	dest, val := ev.newVar(decl.Output.Prim)
	id := ev.b.Callable(decl.Name, rir.Regular, tys, rir.TyPtr(dest.Ty))
	ev.emit(rir.Call(id, operands, &dest))
	return val, nil
}

func isScalar(p fir.Prim) bool {
	return p == fir.PrimBool || p == fir.PrimInt || p == fir.PrimDouble
}

func flattenOperands(v eval.Value, acc *[]rir.Operand) error {
	if v.Kind() == eval.KindTuple {
		for _, item := range v.UnwrapTuple() {
			if err := flattenOperands(item, acc); err != nil {
				return err
			}
		}
		return nil
	}
	op, ok := operandOf(v)
	if !ok {
		return errors.Newf("%s value cannot be passed to the target", v.Kind())
	}
	*acc = append(*acc, op)
	return nil
}

// readResult returns a Bool operand for a result: a readout of a runtime
// result, or the constant a literal stands for.
func (ev *evaluator) readResult(v eval.Value) rir.Operand {
	r := v.UnwrapResult()
	if r.IsLiteral() {
		return rir.BoolLit(r.One())
	}
	id := ev.b.Callable(readResultName, rir.Readout, []rir.Ty{rir.Result}, rir.TyPtr(rir.Boolean))
	dest := ev.b.NewVariable(rir.Boolean)
	ev.emit(rir.Call(id, []rir.Operand{rir.ResultLit(r.ID())}, &dest))
	return rir.VarOperand(dest)
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

var intOps = map[fir.BinOp]rir.InstrKind{
	fir.BinOpAdd: rir.InstrAdd,
	fir.BinOpSub: rir.InstrSub,
	fir.BinOpMul: rir.InstrMul,
	fir.BinOpDiv: rir.InstrSdiv,
	fir.BinOpMod: rir.InstrSrem,
}

var doubleOps = map[fir.BinOp]rir.InstrKind{
	fir.BinOpAdd: rir.InstrFadd,
	fir.BinOpSub: rir.InstrFsub,
	fir.BinOpMul: rir.InstrFmul,
	fir.BinOpDiv: rir.InstrFdiv,
}

var conditions = map[fir.BinOp]rir.ConditionCode{
	fir.BinOpEq:  rir.CondEq,
	fir.BinOpNeq: rir.CondNe,
	fir.BinOpLt:  rir.CondSlt,
	fir.BinOpLte: rir.CondSle,
	fir.BinOpGt:  rir.CondSgt,
	fir.BinOpGte: rir.CondSge,
}

func (ev *evaluator) evalBinOp(e *fir.Expr) (EvalControlFlow, error) {
	lhs, err := ev.evalExpr(e.Lhs)
	if err != nil || lhs.IsReturn() {
		return lhs, err
	}
	lv := lhs.Value()

	if e.BinOp == fir.BinOpAndL || e.BinOp == fir.BinOpOrL {
		if isDynamic(lv) {
			return ev.dynamicLogical(e, lv)
		}
		if lv.UnwrapBool() == (e.BinOp == fir.BinOpOrL) {
			return Continue(lv), nil
		}
		return ev.evalExpr(e.Rhs)
	}

	rhs, err := ev.evalExpr(e.Rhs)
	if err != nil || rhs.IsReturn() {
		return rhs, err
	}
	rv := rhs.Value()
	if !isDynamic(lv) && !isDynamic(rv) {
		v, err := eval.BinOp(e.BinOp, lv, rv, e.Span)
		if err != nil {
			return EvalControlFlow{}, evaluationError(err)
		}
		return Continue(v), nil
	}
	v, err := ev.dynamicBinOp(e, lv, rv)
	if err != nil {
		return EvalControlFlow{}, err
	}
	return Continue(v), nil
}

func (ev *evaluator) dynamicBinOp(e *fir.Expr, lv, rv eval.Value) (eval.Value, error) {
	ty := ev.frame().pkg.GetExpr(e.Lhs).Ty
	cond, isCmp := conditions[e.BinOp]
	switch {
	case ty.IsPrim(fir.PrimResult) && (e.BinOp == fir.BinOpEq || e.BinOp == fir.BinOpNeq):
		l, r := ev.readResult(lv), ev.readResult(rv)
		dest, val := ev.newVar(fir.PrimBool)
		ev.emit(rir.Icmp(cond, l, r, dest))
		return val, nil

	case ty.IsPrim(fir.PrimBool) && (e.BinOp == fir.BinOpEq || e.BinOp == fir.BinOpNeq),
		ty.IsPrim(fir.PrimInt) && isCmp:
		dest, val := ev.newVar(fir.PrimBool)
		ev.emit(rir.Icmp(cond, mustOperand(lv), mustOperand(rv), dest))
		return val, nil

	case ty.IsPrim(fir.PrimDouble) && isCmp:
		dest, val := ev.newVar(fir.PrimBool)
		ev.emit(rir.Fcmp(cond, mustOperand(lv), mustOperand(rv), dest))
		return val, nil

	case ty.IsPrim(fir.PrimInt):
		kind, ok := intOps[e.BinOp]
		if !ok {
			break
		}
		if (kind == rir.InstrSdiv || kind == rir.InstrSrem) && !isDynamic(rv) && rv.UnwrapInt() == 0 {
			return eval.Value{}, evaluationError(&eval.Error{Kind: eval.DivisionByZero, Span: e.Span})
		}
		dest, val := ev.newVar(fir.PrimInt)
		ev.emit(rir.Binary(kind, mustOperand(lv), mustOperand(rv), dest))
		return val, nil

	case ty.IsPrim(fir.PrimDouble):
		kind, ok := doubleOps[e.BinOp]
		if !ok {
			break
		}
		dest, val := ev.newVar(fir.PrimDouble)
		ev.emit(rir.Binary(kind, mustOperand(lv), mustOperand(rv), dest))
		return val, nil
	}
	return eval.Value{}, unsupported(e.Span, "operator %s on a dynamic %s", e.BinOp, ty)
}

// dynamicLogical lowers and/or with a dynamic left operand. A right operand
// without quantum effects is evaluated eagerly into LogicalAnd or
// LogicalOr; otherwise it is evaluated only on the branch that needs it.
func (ev *evaluator) dynamicLogical(e *fir.Expr, lv eval.Value) (EvalControlFlow, error) {
	f := ev.frame()
	rhsExpr := f.pkg.GetExpr(e.Rhs)
	if !f.props.Expr(e.Rhs).IsQuantum || rhsExpr.Kind == fir.ExprVar || rhsExpr.Kind == fir.ExprLit {
		rhs, err := ev.evalExpr(e.Rhs)
		if err != nil || rhs.IsReturn() {
			return rhs, err
		}
		kind := rir.InstrLogicalAnd
		if e.BinOp == fir.BinOpOrL {
			kind = rir.InstrLogicalOr
		}
		dest, val := ev.newVar(fir.PrimBool)
		ev.emit(rir.Binary(kind, mustOperand(lv), mustOperand(rhs.Value()), dest))
		return Continue(val), nil
	}

	rhs := func() (EvalControlFlow, error) { return ev.evalExpr(e.Rhs) }
	short := func() (EvalControlFlow, error) { return Continue(eval.Bool(e.BinOp == fir.BinOpOrL)), nil }
	then, els := rhs, short
	if e.BinOp == fir.BinOpOrL {
		then, els = short, rhs
	}
	v, err := ev.lowerBranch(mustOperand(lv), fir.TyBool, e.Span, then, els)
	if err != nil {
		return EvalControlFlow{}, err
	}
	return Continue(v), nil
}

func (ev *evaluator) unOp(e *fir.Expr, v eval.Value) (eval.Value, error) {
	if !isDynamic(v) {
		r, err := eval.UnOp(e.UnOp, v, e.Span)
		if err != nil {
			return eval.Value{}, evaluationError(err)
		}
		return r, nil
	}
	x := v.UnwrapVar()
	switch {
	case e.UnOp == fir.UnOpNotL:
		dest, val := ev.newVar(fir.PrimBool)
		ev.emit(rir.Unary(rir.InstrLogicalNot, mustOperand(v), dest))
		return val, nil
	case x.Ty == fir.PrimInt:
		dest, val := ev.newVar(fir.PrimInt)
		ev.emit(rir.Binary(rir.InstrSub, rir.IntegerLit(0), mustOperand(v), dest))
		return val, nil
	case x.Ty == fir.PrimDouble:
		dest, val := ev.newVar(fir.PrimDouble)
		ev.emit(rir.Binary(rir.InstrFmul, mustOperand(v), rir.DoubleLit(-1), dest))
		return val, nil
	}
	return eval.Value{}, unsupported(e.Span, "operator %s on a dynamic %s", e.UnOp, x.Ty)
}

// ---------------------------------------------------------------------------
// Branches
// ---------------------------------------------------------------------------

type armFunc func() (EvalControlFlow, error)

func (ev *evaluator) evalIf(e *fir.Expr) (EvalControlFlow, error) {
	cond, err := ev.evalExpr(e.Cond)
	if err != nil || cond.IsReturn() {
		return cond, err
	}
	cv := cond.Value()
	if !isDynamic(cv) {
		if cv.UnwrapBool() {
			return ev.evalExpr(e.Then)
		}
		if e.HasElse {
			return ev.evalExpr(e.Else)
		}
		return Continue(eval.Unit()), nil
	}

	then := func() (EvalControlFlow, error) { return ev.evalExpr(e.Then) }
	var els armFunc
	if e.HasElse {
		els = func() (EvalControlFlow, error) { return ev.evalExpr(e.Else) }
	}
	v, err := ev.lowerBranch(mustOperand(cv), e.Ty, e.Span, then, els)
	if err != nil {
		return EvalControlFlow{}, err
	}
	return Continue(v), nil
}

// lowerBranch emits a Branch on cond to fresh blocks for each arm, which
// both jump to a continuation block once lowered. A non-unit result flows
// through a variable each arm stores into. Evaluation continues in the
// continuation block.
func (ev *evaluator) lowerBranch(cond rir.Operand, ty fir.Ty, span fir.Span, then, els armFunc) (eval.Value, error) {
	if ev.cfg.Capabilities == rir.Base {
		return eval.Value{}, unsupported(span, "branching on a measurement requires adaptive capabilities")
	}
	var result *rir.Variable
	val := eval.Unit()
	if !ty.IsUnit() {
		if ty.Kind != fir.TyPrim || !isScalar(ty.Prim) {
			return eval.Value{}, unsupported(span, "branch on a measurement producing %s", ty)
		}
		dest, v := ev.newVar(ty.Prim)
		result, val = &dest, v
	}

	current := ev.ctx.CurrentBlockNode()
	thenBlk, elseBlk, cont := ev.b.NewBlock(), ev.b.NewBlock(), ev.b.NewBlock()
	ev.emit(rir.Branch(cond, thenBlk, elseBlk))
	ev.log.Debugf("branch from block %d: then %d, else %d, continue %d", current.Id, thenBlk, elseBlk, cont)

	for _, arm := range []struct {
		blk rir.BlockId
		fn  armFunc
	}{{thenBlk, then}, {elseBlk, els}} {
		flow, err := ev.lowerArm(arm.blk, cont, arm.fn, result)
		if err != nil {
			return eval.Value{}, err
		}
		if _, ok := flow.ReturnValue(); ok {
			return eval.Value{}, unsupported(span, "return from within a dynamic branch")
		}
	}

	ev.ctx.ReplaceBlockNode(BlockNode{Id: cont, Successor: current.Successor})
	return val, nil
}

func (ev *evaluator) lowerArm(blk, cont rir.BlockId, fn armFunc, result *rir.Variable) (BranchControlFlow, error) {
	ev.ctx.PushBlockNode(BlockNode{Id: blk, Successor: &cont})
	v := eval.Unit()
	if fn != nil {
		flow, err := fn()
		if err != nil {
			return BranchControlFlow{}, err
		}
		if flow.IsReturn() {
			ev.ctx.PopBlockNode()
			return BranchReturn(flow.Value()), nil
		}
		v = flow.Value()
	}
	if result != nil {
		ev.emit(rir.Store(mustOperand(v), *result))
	}
	node := ev.ctx.PopBlockNode()
	ev.b.Append(node.Id, rir.Jump(*node.Successor))
	return BranchBlock(node.Id), nil
}
