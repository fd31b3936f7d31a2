package partialeval

import (
	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rca"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("qpe.partialeval")

// PartiallyEvaluate lowers the entry callable to a program for a target
// with configuration cfg. The entry callable must take no arguments; its
// return value is recorded as the program's output.
//
// Failures caused by the program are returned as errors wrapping an
// *Error. Defects of the pass itself panic with an assertion failure.
func PartiallyEvaluate(store *fir.PackageStore, entry fir.ItemRef, cfg rir.Config) (*rir.Program, error) {
	runLog := commonlog.NewKeyValueLogger(log, "run", uuid.New().String())
	decl := store.GetCallable(entry)
	runLog.Infof("lowering %s for a %s target", decl.Name, cfg.Capabilities)

	ev := &evaluator{
		store:   store,
		interp:  eval.NewInterpreter(store),
		rca:     rca.NewAnalyzer(store),
		b:       rir.NewBuilder(cfg),
		cfg:     cfg,
		log:     runLog,
		backing: make(map[rir.VariableId]bool),
	}
	prog, err := ev.run(entry, decl)
	if err != nil {
		runLog.Errorf("lowering %s failed: %s", decl.Name, err)
		return nil, errors.Wrap(err, "partial evaluation failed")
	}
	runLog.Infof("lowered %s: %d blocks, %d qubits, %d results",
		decl.Name, len(prog.Blocks), prog.NumQubits, prog.NumResults)
	return prog, nil
}

// frame is the per-call state the driver keeps next to each Scope.
type frame struct {
	pkg   *fir.Package
	props *rca.CallableProperties
}

type evaluator struct {
	store  *fir.PackageStore
	interp *eval.Interpreter
	rca    *rca.Analyzer
	ctx    *EvaluationContext
	b      *rir.Builder
	cfg    rir.Config
	log    commonlog.Logger

	frames []*frame
	// backing holds the variables that store dynamic mutable locals. They
	// change under Store, so values read from them are copied before they
	// are bound to an immutable local.
	backing map[rir.VariableId]bool
	// entryReturn is the operand of the last return executed directly in
	// the entry callable.
	entryReturn    fir.ExprId
	hasEntryReturn bool
}

func (ev *evaluator) run(entry fir.ItemRef, decl *fir.CallableDecl) (*rir.Program, error) {
	pkg := ev.store.Get(entry.Package)
	if decl.Intrinsic {
		return nil, unsupported(decl.Span, "entry callable %s has no body", decl.Name)
	}
	if !pkg.GetPat(decl.Input).Ty.IsUnit() {
		return nil, unsupported(decl.Span, "entry callable %s takes arguments", decl.Name)
	}

	ev.ctx = NewEvaluationContext(entry.Package, ev.b.EntryBlock())
	ev.frames = []*frame{{pkg: pkg, props: ev.rca.AnalyzeCallable(entry, nil)}}

	flow, err := ev.evalBlock(decl.Body)
	if err != nil {
		return nil, err
	}
	locate := BlockLocator(pkg, decl.Body, decl.Span)
	if flow.IsReturn() {
		locate = SpanLocator(decl.Span)
		if ev.hasEntryReturn {
			locate = ExprLocator(pkg, ev.entryReturn)
		}
	}
	if err := RecordOutput(ev.ctx, ev.b, decl.Output, flow.Value(), locate); err != nil {
		return nil, err
	}
	ev.emit(rir.Return())
	ev.ctx.PopBlockNode()
	ev.ctx.PopScope()

	prog := ev.b.Finish()
	if err := prog.Validate(); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "lowered program for %s is malformed", decl.Name))
	}
	return prog, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (ev *evaluator) frame() *frame {
	return ev.frames[len(ev.frames)-1]
}

func (ev *evaluator) emit(in rir.Instruction) {
	ev.b.Append(ev.ctx.CurrentBlockId(), in)
}

func (ev *evaluator) newVar(ty fir.Prim) (rir.Variable, eval.Value) {
	v := ev.b.NewVariable(rirTy(ty))
	return v, eval.VarValue(eval.Var{ID: uint32(v.Id), Ty: ty})
}

func isDynamic(v eval.Value) bool {
	return ValueKindOf(v).IsDynamic()
}

// lookup reads a local of the current scope: a hybrid variable if there
// is one, otherwise the environment binding.
func (ev *evaluator) lookup(id fir.LocalVarId) eval.Value {
	scope := ev.ctx.CurrentScope()
	if scope.HasLocalVar(id) {
		return scope.GetLocalVarValue(id)
	}
	v, ok := scope.Env.Get(id)
	if !ok {
		panic(errors.AssertionFailedf("local %d is not bound in scope %s", id, scope))
	}
	return v.Value
}

// ---------------------------------------------------------------------------
// Blocks and statements
// ---------------------------------------------------------------------------

func (ev *evaluator) evalBlock(id fir.BlockId) (EvalControlFlow, error) {
	scope := ev.ctx.CurrentScope()
	blk := ev.frame().pkg.GetBlock(id)
	scope.Env.PushScope(eval.ScopeId(id))
	result := Continue(eval.Unit())
	for _, sid := range blk.Stmts {
		flow, err := ev.evalStmt(sid)
		if err != nil {
			return EvalControlFlow{}, err
		}
		if flow.IsReturn() {
			return flow, nil
		}
		result = flow
	}
	if !scope.HasClassicalEvaluatorReturned() {
		scope.Env.PopScope()
	}
	return result, nil
}

func (ev *evaluator) evalStmt(id fir.StmtId) (EvalControlFlow, error) {
	f := ev.frame()
	s := f.pkg.GetStmt(id)
	if s.Kind != fir.StmtLocal && !f.props.Stmt(id).IsQuantum {
		scope := ev.ctx.CurrentScope()
		v, err := ev.interp.EvalStmt(scope.Env, scope.PackageId, id)
		return ev.classicalFlow(v, err)
	}

	flow, err := ev.evalExpr(s.Expr)
	if err != nil || flow.IsReturn() {
		return flow, err
	}
	switch s.Kind {
	case fir.StmtLocal:
		if err := ev.bindPat(s.Pat, flow.Value(), s.Mutable); err != nil {
			return EvalControlFlow{}, err
		}
		return Continue(eval.Unit()), nil
	case fir.StmtSemi:
		return Continue(eval.Unit()), nil
	}
	return flow, nil
}

// classicalFlow converts the outcome of a classical evaluator call.
func (ev *evaluator) classicalFlow(v eval.Value, err error) (EvalControlFlow, error) {
	if err != nil {
		return EvalControlFlow{}, evaluationError(err)
	}
	if ev.ctx.CurrentScope().HasClassicalEvaluatorReturned() {
		return Return(v), nil
	}
	return Continue(v), nil
}

// ---------------------------------------------------------------------------
// Bindings
// ---------------------------------------------------------------------------

// bindPat binds a local statement's pattern. Immutable locals with dynamic
// values become hybrid variables. Mutable locals the analysis marks
// dynamic are backed by RIR variables from their declaration, so that they
// stay hybrid variables for their whole lifetime.
func (ev *evaluator) bindPat(id fir.PatId, v eval.Value, mutable bool) error {
	f := ev.frame()
	pat := f.pkg.GetPat(id)
	switch pat.Kind {
	case fir.PatDiscard:
		return nil
	case fir.PatTuple:
		items := v.UnwrapTuple()
		for i, item := range pat.Items {
			if err := ev.bindPat(item, items[i], mutable); err != nil {
				return err
			}
		}
		return nil
	}

	scope := ev.ctx.CurrentScope()
	if mutable && f.props.Locals[pat.Var].IsDynamic() {
		backed, err := ev.back(pat.Ty, v, pat.Span)
		if err != nil {
			return err
		}
		scope.InsertLocalVarValue(pat.Var, backed)
		return nil
	}
	if isDynamic(v) {
		if mutable {
			panic(errors.AssertionFailedf("mutable local %d holds a dynamic value but was analyzed as static", pat.Var))
		}
		scope.InsertLocalVarValue(pat.Var, ev.snapshot(v))
		return nil
	}
	scope.forgetLocalVar(pat.Var)
	scope.Env.BindVariableInTopFrame(pat.Var, eval.Variable{Name: pat.Name, Value: v, Span: pat.Span})
	return nil
}

// back stores v into fresh variables, one per scalar leaf, and returns the
// value made of those variables. Results name a measurement register and
// are kept as they are.
func (ev *evaluator) back(ty fir.Ty, v eval.Value, span fir.Span) (eval.Value, error) {
	switch ty.Kind {
	case fir.TyPrim:
		switch ty.Prim {
		case fir.PrimBool, fir.PrimInt, fir.PrimDouble:
			dest, val := ev.newVar(ty.Prim)
			ev.backing[dest.Id] = true
			ev.emit(rir.Store(mustOperand(v), dest))
			return val, nil
		case fir.PrimResult:
			return v, nil
		}
	case fir.TyTuple:
		items := v.UnwrapTuple()
		backed := make([]eval.Value, len(items))
		for i, item := range items {
			b, err := ev.back(ty.Items[i], item, span)
			if err != nil {
				return eval.Value{}, err
			}
			backed[i] = b
		}
		return eval.Tuple(backed...), nil
	case fir.TyArray:
		items := v.UnwrapArray()
		backed := make([]eval.Value, len(items))
		for i, item := range items {
			b, err := ev.back(*ty.Elem, item, span)
			if err != nil {
				return eval.Value{}, err
			}
			backed[i] = b
		}
		return eval.Array(backed...), nil
	}
	return eval.Value{}, unsupported(span, "mutable local of type %s cannot hold a dynamic value", ty)
}

// snapshot copies every backing variable in v into a fresh variable.
func (ev *evaluator) snapshot(v eval.Value) eval.Value {
	switch v.Kind() {
	case eval.KindVar:
		x := v.UnwrapVar()
		if !ev.backing[rir.VariableId(x.ID)] {
			return v
		}
		dest, val := ev.newVar(x.Ty)
		ev.emit(rir.Store(rir.VarOperand(rirVariable(x)), dest))
		return val
	case eval.KindTuple:
		items := v.UnwrapTuple()
		copied := make([]eval.Value, len(items))
		for i, item := range items {
			copied[i] = ev.snapshot(item)
		}
		return eval.Tuple(copied...)
	case eval.KindArray:
		items := v.UnwrapArray()
		copied := make([]eval.Value, len(items))
		for i, item := range items {
			copied[i] = ev.snapshot(item)
		}
		return eval.Array(copied...)
	}
	return v
}

func (ev *evaluator) assign(target fir.ExprId, v eval.Value, span fir.Span) error {
	t := ev.frame().pkg.GetExpr(target)
	switch t.Kind {
	case fir.ExprVar:
		scope := ev.ctx.CurrentScope()
		if scope.HasLocalVar(t.Var) {
			updated, err := ev.storeInto(scope.GetLocalVarValue(t.Var), v, span)
			if err != nil {
				return err
			}
			scope.InsertLocalVarValue(t.Var, updated)
			return nil
		}
		if isDynamic(v) {
			panic(errors.AssertionFailedf("dynamic value assigned to static local %d", t.Var))
		}
		if !scope.Env.Update(t.Var, v) {
			panic(errors.AssertionFailedf("assignment to unbound local %d", t.Var))
		}
		return nil
	case fir.ExprTuple:
		items := v.UnwrapTuple()
		for i, item := range t.Items {
			if err := ev.assign(item, items[i], span); err != nil {
				return err
			}
		}
		return nil
	}
	panic(errors.AssertionFailedf("invalid assignment target %s", t.Kind))
}

// storeInto writes v into the backing variables of a mutable local and
// returns the local's new value. Result leaves are rebound rather than
// stored, which cannot be expressed inside a dynamic branch.
func (ev *evaluator) storeInto(target, v eval.Value, span fir.Span) (eval.Value, error) {
	switch target.Kind() {
	case eval.KindVar:
		ev.emit(rir.Store(mustOperand(v), rirVariable(target.UnwrapVar())))
		return target, nil
	case eval.KindResult:
		if ev.ctx.CurrentScope().IsCurrentlyEvaluatingBranch() {
			return eval.Value{}, unsupported(span, "result assigned inside a dynamic branch")
		}
		return v, nil
	case eval.KindTuple:
		targets, items := target.UnwrapTuple(), v.UnwrapTuple()
		updated := make([]eval.Value, len(targets))
		for i, t := range targets {
			u, err := ev.storeInto(t, items[i], span)
			if err != nil {
				return eval.Value{}, err
			}
			updated[i] = u
		}
		return eval.Tuple(updated...), nil
	case eval.KindArray:
		targets, items := target.UnwrapArray(), v.UnwrapArray()
		if len(targets) != len(items) {
			return eval.Value{}, unsupported(span, "assignment changes array length from %d to %d", len(targets), len(items))
		}
		updated := make([]eval.Value, len(targets))
		for i, t := range targets {
			u, err := ev.storeInto(t, items[i], span)
			if err != nil {
				return eval.Value{}, err
			}
			updated[i] = u
		}
		return eval.Array(updated...), nil
	}
	panic(errors.AssertionFailedf("local backed by %s cannot be stored into", target.Kind()))
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

// callArgs matches a value against a callable's input pattern, one Arg per
// pattern leaf from left to right.
func callArgs(pkg *fir.Package, id fir.PatId, v eval.Value, args []Arg) []Arg {
	pat := pkg.GetPat(id)
	switch pat.Kind {
	case fir.PatBind:
		return append(args, VarArg(pat.Var, eval.Variable{Name: pat.Name, Value: v, Span: pat.Span}))
	case fir.PatDiscard:
		return append(args, DiscardArg(v))
	}
	items := v.UnwrapTuple()
	for i, item := range pat.Items {
		args = callArgs(pkg, item, items[i], args)
	}
	return args
}

// evalCall evaluates the body of a non-intrinsic callable in a new scope.
func (ev *evaluator) evalCall(ref fir.ItemRef, functor fir.FunctorApp, decl *fir.CallableDecl, arg eval.Value) (eval.Value, error) {
	pkg := ev.store.Get(ref.Package)
	scope := NewScope(ref.Package, &ScopeCallable{Item: ref.Item, Functor: functor}, callArgs(pkg, decl.Input, arg, nil))
	props := ev.rca.AnalyzeCallable(ref, scope.ArgsValueKind)

	ev.ctx.PushScope(scope)
	ev.frames = append(ev.frames, &frame{pkg: pkg, props: props})
	ev.log.Debugf("enter %s with %v", decl.Name, scope.ArgsValueKind)

	flow, err := ev.evalBlock(decl.Body)

	ev.frames = ev.frames[:len(ev.frames)-1]
	ev.ctx.PopScope()
	ev.log.Debugf("leave %s", decl.Name)
	if err != nil {
		return eval.Value{}, err
	}
	return flow.Value(), nil
}
