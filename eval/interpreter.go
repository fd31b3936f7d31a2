package eval

import (
	"github.com/chazu/qpe/fir"
	"github.com/cockroachdb/errors"
)

// ---------------------------------------------------------------------------
// Interpreter: tree-walking evaluation of the classical subset
// ---------------------------------------------------------------------------

// Interpreter evaluates classical expressions of the packages in a store.
// It holds no per-evaluation state; all bindings live in the Env passed to
// each call.
type Interpreter struct {
	store *fir.PackageStore
}

// NewInterpreter creates an interpreter over store.
func NewInterpreter(store *fir.PackageStore) *Interpreter {
	return &Interpreter{store: store}
}

// EvalExpr evaluates an expression of package pkg in env.
//
// When the expression executes a return, env is truncated to its global
// frame and the returned value is the result. Callers detect this case by
// checking env.Len() == 1.
func (in *Interpreter) EvalExpr(env *Env, pkg fir.PackageId, id fir.ExprId) (Value, error) {
	v, returned, err := in.expr(env, in.store.Get(pkg), id)
	if err != nil {
		return Value{}, err
	}
	if returned {
		env.Truncate(1)
	}
	return v, nil
}

// EvalStmt evaluates a statement of package pkg in env. Local statements
// bind their pattern in the top frame and produce Unit, as do semicolon
// statements; trailing expression statements produce their value.
func (in *Interpreter) EvalStmt(env *Env, pkg fir.PackageId, id fir.StmtId) (Value, error) {
	v, returned, err := in.stmt(env, in.store.Get(pkg), id)
	if err != nil {
		return Value{}, err
	}
	if returned {
		env.Truncate(1)
	}
	return v, nil
}

// BindPattern binds value to pattern pat of package pkg in env's top frame.
func (in *Interpreter) BindPattern(env *Env, pkg fir.PackageId, pat fir.PatId, value Value) {
	bindPat(env, in.store.Get(pkg), pat, value)
}

func bindPat(env *Env, pkg *fir.Package, id fir.PatId, value Value) {
	pat := pkg.GetPat(id)
	switch pat.Kind {
	case fir.PatBind:
		env.BindVariableInTopFrame(pat.Var, Variable{Name: pat.Name, Value: value, Span: pat.Span})
	case fir.PatDiscard:
	case fir.PatTuple:
		items := value.UnwrapTuple()
		if len(items) != len(pat.Items) {
			panic(errors.AssertionFailedf("pattern %d has %d items, value has %d", id, len(pat.Items), len(items)))
		}
		for i, p := range pat.Items {
			bindPat(env, pkg, p, items[i])
		}
	}
}

func (in *Interpreter) stmt(env *Env, pkg *fir.Package, id fir.StmtId) (Value, bool, error) {
	s := pkg.GetStmt(id)
	v, returned, err := in.expr(env, pkg, s.Expr)
	if err != nil || returned {
		return v, returned, err
	}
	switch s.Kind {
	case fir.StmtLocal:
		bindPat(env, pkg, s.Pat, v)
		return Unit(), false, nil
	case fir.StmtSemi:
		return Unit(), false, nil
	default:
		return v, false, nil
	}
}

func (in *Interpreter) block(env *Env, pkg *fir.Package, id fir.BlockId) (Value, bool, error) {
	b := pkg.GetBlock(id)
	env.PushScope(ScopeId(id))
	result := Unit()
	for _, sid := range b.Stmts {
		v, returned, err := in.stmt(env, pkg, sid)
		if err != nil || returned {
			// The frame is left in place; a return truncates the whole env.
			return v, returned, err
		}
		result = v
	}
	env.PopScope()
	return result, false, nil
}

// exprs evaluates ids in order. When one of them returns, the returned
// value is the second result.
func (in *Interpreter) exprs(env *Env, pkg *fir.Package, ids []fir.ExprId) ([]Value, Value, bool, error) {
	vals := make([]Value, len(ids))
	for i, id := range ids {
		v, returned, err := in.expr(env, pkg, id)
		if err != nil || returned {
			return nil, v, returned, err
		}
		vals[i] = v
	}
	return vals, Value{}, false, nil
}

// expr evaluates an expression. The bool result reports that a return was
// executed, in which case the Value is the returned value.
func (in *Interpreter) expr(env *Env, pkg *fir.Package, id fir.ExprId) (Value, bool, error) {
	e := pkg.GetExpr(id)
	switch e.Kind {
	case fir.ExprLit:
		v, err := FromLit(e.Lit)
		if err != nil {
			return Value{}, false, newError(Unsupported, e.Span, "%v", err)
		}
		return v, false, nil

	case fir.ExprVar:
		v, ok := env.Get(e.Var)
		if !ok {
			panic(errors.AssertionFailedf("local %d is not bound in the classical environment", e.Var))
		}
		return v.Value, false, nil

	case fir.ExprGlobal:
		return Global(e.Item, e.Functor), false, nil

	case fir.ExprTuple:
		vals, ret, returned, err := in.exprs(env, pkg, e.Items)
		if err != nil || returned {
			return ret, returned, err
		}
		return Tuple(vals...), false, nil

	case fir.ExprArray:
		vals, ret, returned, err := in.exprs(env, pkg, e.Items)
		if err != nil || returned {
			return ret, returned, err
		}
		return Array(vals...), false, nil

	case fir.ExprIndex:
		arr, returned, err := in.expr(env, pkg, e.Lhs)
		if err != nil || returned {
			return arr, returned, err
		}
		idx, returned, err := in.expr(env, pkg, e.Rhs)
		if err != nil || returned {
			return idx, returned, err
		}
		v, err := Index(arr, idx, e.Span)
		return v, false, err

	case fir.ExprCall:
		callee, returned, err := in.expr(env, pkg, e.Lhs)
		if err != nil || returned {
			return callee, returned, err
		}
		arg, returned, err := in.expr(env, pkg, e.Rhs)
		if err != nil || returned {
			return arg, returned, err
		}
		v, err := in.call(callee, arg, e.Span)
		return v, false, err

	case fir.ExprBinOp:
		lhs, returned, err := in.expr(env, pkg, e.Lhs)
		if err != nil || returned {
			return lhs, returned, err
		}
		if e.BinOp == fir.BinOpAndL && !lhs.UnwrapBool() {
			return Bool(false), false, nil
		}
		if e.BinOp == fir.BinOpOrL && lhs.UnwrapBool() {
			return Bool(true), false, nil
		}
		rhs, returned, err := in.expr(env, pkg, e.Rhs)
		if err != nil || returned {
			return rhs, returned, err
		}
		v, err := BinOp(e.BinOp, lhs, rhs, e.Span)
		return v, false, err

	case fir.ExprUnOp:
		operand, returned, err := in.expr(env, pkg, e.Lhs)
		if err != nil || returned {
			return operand, returned, err
		}
		v, err := UnOp(e.UnOp, operand, e.Span)
		return v, false, err

	case fir.ExprIf:
		cond, returned, err := in.expr(env, pkg, e.Cond)
		if err != nil || returned {
			return cond, returned, err
		}
		if cond.UnwrapBool() {
			return in.expr(env, pkg, e.Then)
		}
		if e.HasElse {
			return in.expr(env, pkg, e.Else)
		}
		return Unit(), false, nil

	case fir.ExprBlock:
		return in.block(env, pkg, e.Block)

	case fir.ExprReturn:
		v, _, err := in.expr(env, pkg, e.Lhs)
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	case fir.ExprAssign:
		v, returned, err := in.expr(env, pkg, e.Rhs)
		if err != nil || returned {
			return v, returned, err
		}
		assign(env, pkg, e.Lhs, v)
		return Unit(), false, nil

	case fir.ExprWhile:
		for {
			cond, returned, err := in.expr(env, pkg, e.Cond)
			if err != nil || returned {
				return cond, returned, err
			}
			if !cond.UnwrapBool() {
				return Unit(), false, nil
			}
			v, returned, err := in.block(env, pkg, e.Block)
			if err != nil || returned {
				return v, returned, err
			}
		}
	}
	return Value{}, false, newError(Unsupported, e.Span, "expression kind %s", e.Kind)
}

func assign(env *Env, pkg *fir.Package, target fir.ExprId, v Value) {
	e := pkg.GetExpr(target)
	switch e.Kind {
	case fir.ExprVar:
		if !env.Update(e.Var, v) {
			panic(errors.AssertionFailedf("assignment to unbound local %d", e.Var))
		}
	case fir.ExprTuple:
		items := v.UnwrapTuple()
		for i, t := range e.Items {
			assign(env, pkg, t, items[i])
		}
	default:
		panic(errors.AssertionFailedf("invalid assignment target %s", e.Kind))
	}
}

// Index returns arr[idx].
func Index(arr, idx Value, span fir.Span) (Value, error) {
	items := arr.UnwrapArray()
	i := idx.UnwrapInt()
	if i < 0 || i >= int64(len(items)) {
		return Value{}, newError(IndexOutOfRange, span, "index %d, length %d", i, len(items))
	}
	return items[i], nil
}

func (in *Interpreter) call(callee, arg Value, span fir.Span) (Value, error) {
	if callee.Kind() != KindGlobal {
		return Value{}, newError(Unsupported, span, "call through %s", callee.Kind())
	}
	ref, functor := callee.UnwrapGlobal()
	decl := in.store.GetCallable(ref)
	if decl.Intrinsic {
		return Intrinsic(decl.Name, arg, span)
	}
	if !functor.IsBody() {
		return Value{}, newError(Unsupported, span, "%s specialization of %s", functor, decl.Name)
	}
	pkg := in.store.Get(ref.Package)
	callEnv := NewEnv()
	callEnv.PushScope(ScopeId(decl.Body))
	bindPat(callEnv, pkg, decl.Input, arg)
	v, _, err := in.block(callEnv, pkg, decl.Body)
	return v, err
}

// Intrinsic evaluates a classical intrinsic callable.
func Intrinsic(name string, arg Value, span fir.Span) (Value, error) {
	switch name {
	case fir.LengthName:
		return Int(int64(len(arg.UnwrapArray()))), nil
	case fir.IntAsDoubleName:
		return Double(float64(arg.UnwrapInt())), nil
	}
	return Value{}, newError(Unsupported, span, "intrinsic %s has no classical implementation", name)
}
