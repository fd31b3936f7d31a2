package rca

import (
	"fmt"

	"github.com/chazu/qpe/fir"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("qpe.rca")

// maxIterations bounds the fixed-point loop over local kinds. The lattice
// is finite, so this only trips on an analysis defect.
const maxIterations = 64

// CallableProperties holds the analysis of one callable specialization.
type CallableProperties struct {
	Exprs  map[fir.ExprId]ComputeKind
	Stmts  map[fir.StmtId]ComputeKind
	Locals map[fir.LocalVarId]ComputeKind
	// Output is the kind of calling the specialization: every feature its
	// body uses, and the kind of the value it returns.
	Output ComputeKind
}

// Expr returns the kind of an expression of the specialization. Expressions
// the analysis never reached are Classical.
func (p *CallableProperties) Expr(id fir.ExprId) ComputeKind {
	return p.Exprs[id]
}

// Stmt returns the kind of a statement of the specialization.
func (p *CallableProperties) Stmt(id fir.StmtId) ComputeKind {
	return p.Stmts[id]
}

type specKey struct {
	ref  fir.ItemRef
	args string
}

// Analyzer computes and memoizes callable properties per specialization: a
// callable together with the value kinds of its arguments.
type Analyzer struct {
	store      *fir.PackageStore
	cache      map[specKey]*CallableProperties
	inProgress map[specKey]bool
}

// NewAnalyzer creates an analyzer over store.
func NewAnalyzer(store *fir.PackageStore) *Analyzer {
	return &Analyzer{
		store:      store,
		cache:      make(map[specKey]*CallableProperties),
		inProgress: make(map[specKey]bool),
	}
}

// AnalyzeCallable analyzes the body of a non-intrinsic callable given the
// value kinds of its arguments, one per leaf of its input pattern in
// left-to-right order. A missing kind is taken to be Static.
//
// A callable reached again while its own analysis is running is assumed to
// return a Dynamic value.
func (a *Analyzer) AnalyzeCallable(ref fir.ItemRef, argKinds []ValueKind) *CallableProperties {
	key := specKey{ref: ref, args: fmt.Sprint(argKinds)}
	if props, ok := a.cache[key]; ok {
		return props
	}
	decl := a.store.GetCallable(ref)
	if a.inProgress[key] {
		return &CallableProperties{Output: Quantum(0, ValueKindFor(decl.Output, Dynamic))}
	}
	a.inProgress[key] = true
	defer delete(a.inProgress, key)

	pkg := a.store.Get(ref.Package)
	locals := make(map[fir.LocalVarId]ComputeKind)
	leaves := patLeaves(pkg, decl.Input, nil)
	for i, leaf := range leaves {
		pat := pkg.GetPat(leaf)
		if pat.Kind != fir.PatBind {
			continue
		}
		if i < len(argKinds) && argKinds[i].IsDynamic() {
			locals[pat.Var] = Quantum(0, ValueKindFor(pat.Ty, Dynamic).Join(argKinds[i]))
		} else {
			locals[pat.Var] = Classical
		}
	}

	var props *CallableProperties
	for iter := 0; ; iter++ {
		s := &state{
			a:      a,
			pkg:    pkg,
			exprs:  make(map[fir.ExprId]ComputeKind),
			stmts:  make(map[fir.StmtId]ComputeKind),
			locals: copyLocals(locals),
		}
		body := s.block(decl.Body)
		output := body
		if s.returned {
			output = body.Join(s.ret)
		}
		props = &CallableProperties{Exprs: s.exprs, Stmts: s.stmts, Locals: s.locals, Output: output}
		if sameLocals(locals, s.locals) || iter == maxIterations {
			break
		}
		locals = s.locals
	}
	log.Debugf("analyzed %s (%s) with args %v: %s", decl.Name, ref, argKinds, props.Output.Features)
	a.cache[key] = props
	return props
}

func patLeaves(pkg *fir.Package, id fir.PatId, acc []fir.PatId) []fir.PatId {
	pat := pkg.GetPat(id)
	if pat.Kind != fir.PatTuple {
		return append(acc, id)
	}
	for _, item := range pat.Items {
		acc = patLeaves(pkg, item, acc)
	}
	return acc
}

func copyLocals(m map[fir.LocalVarId]ComputeKind) map[fir.LocalVarId]ComputeKind {
	c := make(map[fir.LocalVarId]ComputeKind, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func sameLocals(a, b map[fir.LocalVarId]ComputeKind) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// Per-pass state
// ---------------------------------------------------------------------------

type state struct {
	a      *Analyzer
	pkg    *fir.Package
	exprs  map[fir.ExprId]ComputeKind
	stmts  map[fir.StmtId]ComputeKind
	locals map[fir.LocalVarId]ComputeKind

	// dynamicScopes holds the features of the dynamic conditions of the
	// enclosing branches and loops.
	dynamicScopes []RuntimeFeatureFlags
	returned      bool
	ret           ComputeKind
}

func (s *state) block(id fir.BlockId) ComputeKind {
	b := s.pkg.GetBlock(id)
	kind := Classical
	value := Element(Static)
	for _, sid := range b.Stmts {
		sk := s.stmt(sid)
		kind = kind.Join(sk)
		if s.pkg.GetStmt(sid).Kind == fir.StmtExpr {
			value = sk.Value
		}
	}
	if kind.IsQuantum {
		kind.Value = value
	}
	return kind
}

func (s *state) stmt(id fir.StmtId) ComputeKind {
	st := s.pkg.GetStmt(id)
	kind := s.expr(st.Expr)
	if st.Kind == fir.StmtLocal {
		s.bindPat(st.Pat, st.Expr, kind)
	}
	if st.Kind != fir.StmtExpr && kind.IsQuantum {
		kind.Value = Element(Static)
	}
	s.stmts[id] = kind
	return kind
}

// bindPat joins the kind of the value expression into the locals bound by
// pat. A tuple pattern over a tuple expression is matched item by item;
// otherwise every bound local receives the kind of the whole value.
func (s *state) bindPat(id fir.PatId, value fir.ExprId, kind ComputeKind) {
	pat := s.pkg.GetPat(id)
	switch pat.Kind {
	case fir.PatBind:
		s.joinLocal(pat.Var, pat.Ty, kind)
	case fir.PatTuple:
		e := s.pkg.GetExpr(value)
		if e.Kind == fir.ExprTuple && len(e.Items) == len(pat.Items) {
			for i, item := range pat.Items {
				s.bindPat(item, e.Items[i], s.exprs[e.Items[i]])
			}
			return
		}
		for _, leaf := range patLeaves(s.pkg, id, nil) {
			if p := s.pkg.GetPat(leaf); p.Kind == fir.PatBind {
				s.joinLocal(p.Var, p.Ty, kind)
			}
		}
	}
}

func (s *state) joinLocal(v fir.LocalVarId, ty fir.Ty, kind ComputeKind) {
	if kind.IsQuantum {
		rk := Static
		if kind.Value.IsDynamic() {
			rk = Dynamic
		}
		kind.Value = ValueKindFor(ty, rk)
	}
	s.locals[v] = s.locals[v].Join(kind)
}

func (s *state) inDynamicScope() bool {
	return len(s.dynamicScopes) > 0
}

func (s *state) enterScope(cond ComputeKind) bool {
	if !cond.IsDynamic() {
		return false
	}
	s.dynamicScopes = append(s.dynamicScopes, cond.Features)
	return true
}

func (s *state) exitScope() {
	s.dynamicScopes = s.dynamicScopes[:len(s.dynamicScopes)-1]
}

// scopeDynamic marks a value produced inside a dynamic scope as dynamic: it
// depends on every enclosing condition.
func (s *state) scopeDynamic(kind ComputeKind, ty fir.Ty) ComputeKind {
	for _, f := range s.dynamicScopes {
		kind.Features |= f
	}
	return dynamicValue(kind, ty)
}

func (s *state) record(id fir.ExprId, kind ComputeKind) ComputeKind {
	s.exprs[id] = kind
	return kind
}

// dynamicValue marks kind as producing a dynamic value of type ty, adding
// the features such a value needs.
func dynamicValue(kind ComputeKind, ty fir.Ty) ComputeKind {
	return Quantum(kind.Features|FeaturesFor(ty), ValueKindFor(ty, Dynamic))
}

func (s *state) exprList(ids []fir.ExprId) (ComputeKind, bool) {
	kind := Classical
	dynamic := false
	for _, id := range ids {
		k := s.expr(id)
		kind = kind.Join(k)
		dynamic = dynamic || k.IsDynamic()
	}
	return kind, dynamic
}

func (s *state) expr(id fir.ExprId) ComputeKind {
	e := s.pkg.GetExpr(id)
	switch e.Kind {
	case fir.ExprLit, fir.ExprGlobal:
		return s.record(id, Classical)

	case fir.ExprVar:
		return s.record(id, s.locals[e.Var])

	case fir.ExprTuple:
		kind, dynamic := s.exprList(e.Items)
		if kind.IsQuantum {
			kind.Value = Element(Static)
			if dynamic {
				kind.Value = Element(Dynamic)
			}
		}
		return s.record(id, kind)

	case fir.ExprArray:
		kind, dynamic := s.exprList(e.Items)
		if kind.IsQuantum {
			kind.Value = Array(Static, Static)
			if dynamic {
				kind.Value = Array(Dynamic, Static)
			}
		}
		return s.record(id, kind)

	case fir.ExprIndex:
		arr := s.expr(e.Lhs)
		idx := s.expr(e.Rhs)
		kind := arr.Join(idx)
		if !kind.IsQuantum {
			return s.record(id, Classical)
		}
		if idx.IsDynamic() {
			kind = dynamicValue(kind, e.Ty)
			kind.Features |= UseOfDynamicIndex
		} else {
			rk := Static
			if arr.IsQuantum && arr.Value.Content == Dynamic {
				rk = Dynamic
			}
			kind.Value = ValueKindFor(e.Ty, rk)
		}
		return s.record(id, kind)

	case fir.ExprCall:
		return s.record(id, s.call(e))

	case fir.ExprBinOp, fir.ExprUnOp:
		kind := s.expr(e.Lhs)
		if e.Kind == fir.ExprBinOp {
			kind = kind.Join(s.expr(e.Rhs))
		}
		if !kind.IsQuantum {
			return s.record(id, Classical)
		}
		if kind.Value.IsDynamic() {
			return s.record(id, dynamicValue(kind, e.Ty))
		}
		kind.Value = ValueKindFor(e.Ty, Static)
		return s.record(id, kind)

	case fir.ExprIf:
		cond := s.expr(e.Cond)
		dynamic := s.enterScope(cond)
		kind := cond.Join(s.expr(e.Then))
		if e.HasElse {
			kind = kind.Join(s.expr(e.Else))
		}
		if dynamic {
			s.exitScope()
			if !e.Ty.IsUnit() {
				kind = dynamicValue(kind, e.Ty)
			} else {
				kind.Value = Element(Static)
			}
		}
		return s.record(id, kind)

	case fir.ExprBlock:
		return s.record(id, s.block(e.Block))

	case fir.ExprReturn:
		kind := s.expr(e.Lhs)
		if s.inDynamicScope() {
			kind = Quantum(kind.Features|ReturnWithinDynamicScope, kind.Value)
		}
		s.ret = s.ret.Join(kind)
		s.returned = true
		return s.record(id, kind)

	case fir.ExprAssign:
		kind := s.expr(e.Rhs)
		if s.inDynamicScope() {
			kind = s.scopeDynamic(kind, s.pkg.GetExpr(e.Lhs).Ty)
		}
		s.assign(e.Lhs, e.Rhs, kind)
		// Writing a quantum local is itself quantum, even from a classical value.
		if target := s.expr(e.Lhs); target.IsQuantum && !kind.IsQuantum {
			kind = Quantum(0, Element(Static))
		}
		if kind.IsQuantum {
			kind.Value = Element(Static)
		}
		return s.record(id, kind)

	case fir.ExprWhile:
		cond := s.expr(e.Cond)
		dynamic := s.enterScope(cond)
		kind := cond.Join(s.block(e.Block))
		if dynamic {
			s.exitScope()
			kind.Features |= LoopWithDynamicCondition
		}
		if kind.IsQuantum {
			kind.Value = Element(Static)
		}
		return s.record(id, kind)
	}
	return s.record(id, Classical)
}

// assign joins kind into the locals named by target. A tuple target over a
// tuple expression is matched item by item.
func (s *state) assign(target, value fir.ExprId, kind ComputeKind) {
	t := s.pkg.GetExpr(target)
	switch t.Kind {
	case fir.ExprVar:
		s.joinLocal(t.Var, t.Ty, kind)
	case fir.ExprTuple:
		v := s.pkg.GetExpr(value)
		if v.Kind == fir.ExprTuple && len(v.Items) == len(t.Items) {
			for i, item := range t.Items {
				k := s.exprs[v.Items[i]]
				if s.inDynamicScope() {
					k = s.scopeDynamic(k, s.pkg.GetExpr(item).Ty)
				}
				s.assign(item, v.Items[i], k)
			}
			return
		}
		for _, item := range t.Items {
			s.assign(item, value, kind)
		}
	}
}

func (s *state) call(e *fir.Expr) ComputeKind {
	s.expr(e.Lhs)
	args := s.expr(e.Rhs)
	callee := s.pkg.GetExpr(e.Lhs)
	if callee.Kind != fir.ExprGlobal {
		if args.IsDynamic() {
			return dynamicValue(args, e.Ty)
		}
		return args
	}

	decl := s.a.store.GetCallable(callee.Item)
	if decl.Intrinsic {
		return s.intrinsicCall(decl, args, e.Ty)
	}

	argKinds := s.argKinds(decl, callee.Item.Package, e.Rhs, args)
	props := s.a.AnalyzeCallable(callee.Item, argKinds)
	if !args.IsQuantum && !props.Output.IsQuantum {
		return Classical
	}
	kind := Quantum(args.Features|props.Output.Features, props.Output.Value)
	if !props.Output.IsQuantum {
		kind.Value = ValueKindFor(e.Ty, Static)
	}
	if kind.Value.IsDynamic() {
		kind.Features |= FeaturesFor(e.Ty)
	}
	return kind
}

func (s *state) intrinsicCall(decl *fir.CallableDecl, args ComputeKind, out fir.Ty) ComputeKind {
	switch {
	case decl.Name == fir.LengthName:
		// Array sizes are always static, so Length is too.
		if !args.IsQuantum {
			return Classical
		}
		return Quantum(args.Features, Element(Static))
	case decl.Kind == fir.CallableOperation && out.IsPrim(fir.PrimResult):
		return Quantum(args.Features, Element(Dynamic))
	case decl.Kind == fir.CallableOperation:
		return Quantum(args.Features, ValueKindFor(out, Static))
	case args.IsDynamic():
		return dynamicValue(args, out)
	default:
		return args
	}
}

// argKinds maps the argument expression onto the leaves of the callee's
// input pattern.
func (s *state) argKinds(decl *fir.CallableDecl, pkgID fir.PackageId, arg fir.ExprId, whole ComputeKind) []ValueKind {
	calleePkg := s.a.store.Get(pkgID)
	var kinds []ValueKind
	var walk func(pat fir.PatId, arg fir.ExprId, kind ComputeKind, exact bool)
	walk = func(pat fir.PatId, arg fir.ExprId, kind ComputeKind, exact bool) {
		p := calleePkg.GetPat(pat)
		if p.Kind == fir.PatTuple {
			var e *fir.Expr
			if exact {
				e = s.pkg.GetExpr(arg)
			}
			for i, item := range p.Items {
				if e != nil && e.Kind == fir.ExprTuple && len(e.Items) == len(p.Items) {
					walk(item, e.Items[i], s.exprs[e.Items[i]], true)
				} else {
					walk(item, arg, kind, false)
				}
			}
			return
		}
		vk := Element(Static)
		if kind.IsQuantum {
			vk = kind.Value
			if !exact && vk.IsDynamic() {
				vk = ValueKindFor(p.Ty, Dynamic)
			}
		}
		kinds = append(kinds, vk)
	}
	walk(decl.Input, arg, whole, true)
	return kinds
}
