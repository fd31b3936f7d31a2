package fir

import (
	"github.com/cockroachdb/errors"
)

// ---------------------------------------------------------------------------
// Builder: construct packages without a front end
// ---------------------------------------------------------------------------

// Builder appends nodes to a package. Every node receives a synthetic,
// strictly increasing span; SetSpan overrides it when a test needs a
// specific location.
type Builder struct {
	id      PackageId
	pkg     *Package
	varTys  map[LocalVarId]Ty
	nextVar LocalVarId
	cursor  uint32
}

// Param is a named callable parameter.
type Param struct {
	Name string
	Ty   Ty
}

// NewBuilder creates a builder for the package with the given id.
func NewBuilder(id PackageId) *Builder {
	return &Builder{
		id:     id,
		pkg:    &Package{},
		varTys: make(map[LocalVarId]Ty),
	}
}

// PackageID returns the id of the package under construction.
func (b *Builder) PackageID() PackageId {
	return b.id
}

// Package returns the package under construction.
func (b *Builder) Package() *Package {
	return b.pkg
}

// Store wraps the package in a store whose entry point is the given item.
func (b *Builder) Store(entry LocalItemId) *PackageStore {
	s := NewPackageStore()
	s.Insert(b.id, b.pkg)
	s.Entry = ItemRef{Package: b.id, Item: entry}
	return s
}

func (b *Builder) nextSpan() Span {
	lo := b.cursor
	b.cursor += 4
	return Span{Lo: lo, Hi: lo + 4}
}

// SetSpan overrides the span of an expression.
func (b *Builder) SetSpan(id ExprId, s Span) {
	b.pkg.GetExpr(id).Span = s
}

// VarTy returns the declared type of a local.
func (b *Builder) VarTy(id LocalVarId) Ty {
	ty, ok := b.varTys[id]
	if !ok {
		panic(errors.AssertionFailedf("local %d was never declared", id))
	}
	return ty
}

func (b *Builder) addExpr(e Expr) ExprId {
	e.Id = ExprId(len(b.pkg.Exprs))
	e.Span = b.nextSpan()
	b.pkg.Exprs = append(b.pkg.Exprs, e)
	return e.Id
}

func (b *Builder) exprTy(id ExprId) Ty {
	return b.pkg.GetExpr(id).Ty
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// Bool adds a Bool literal.
func (b *Builder) Bool(v bool) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyBool, Lit: Lit{Kind: LitBool, Bool: v}})
}

// Int adds an Int literal.
func (b *Builder) Int(v int64) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyInt, Lit: Lit{Kind: LitInt, Int: v}})
}

// BigInt adds a BigInt literal from its decimal digits.
func (b *Builder) BigInt(digits string) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyBigInt, Lit: Lit{Kind: LitBigInt, BigInt: digits}})
}

// Double adds a Double literal.
func (b *Builder) Double(v float64) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyDouble, Lit: Lit{Kind: LitDouble, Double: v}})
}

// Zero adds the Result literal Zero.
func (b *Builder) Zero() ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyResult, Lit: Lit{Kind: LitResult}})
}

// One adds the Result literal One.
func (b *Builder) One() ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyResult, Lit: Lit{Kind: LitResult, One: true}})
}

// PauliLit adds a Pauli literal.
func (b *Builder) PauliLit(p Pauli) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyPauli, Lit: Lit{Kind: LitPauli, Pauli: p}})
}

// StringLit adds a String literal.
func (b *Builder) StringLit(v string) ExprId {
	return b.addExpr(Expr{Kind: ExprLit, Ty: TyString, Lit: Lit{Kind: LitString, String: v}})
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Var references a declared local.
func (b *Builder) Var(id LocalVarId) ExprId {
	return b.addExpr(Expr{Kind: ExprVar, Ty: b.VarTy(id), Var: id})
}

// Global references a callable item.
func (b *Builder) Global(item LocalItemId) ExprId {
	return b.GlobalFunctor(item, FunctorApp{})
}

// GlobalFunctor references a functor specialization of a callable item.
func (b *Builder) GlobalFunctor(item LocalItemId, functor FunctorApp) ExprId {
	decl := &b.pkg.GetItem(item).Callable
	ty := ArrowTy(b.pkg.GetPat(decl.Input).Ty, decl.Output)
	return b.addExpr(Expr{
		Kind:    ExprGlobal,
		Ty:      ty,
		Item:    ItemRef{Package: b.id, Item: item},
		Functor: functor,
	})
}

// Tuple adds a tuple expression. With no items it is the unit value.
func (b *Builder) Tuple(items ...ExprId) ExprId {
	tys := make([]Ty, len(items))
	for i, item := range items {
		tys[i] = b.exprTy(item)
	}
	return b.addExpr(Expr{Kind: ExprTuple, Ty: TupleTy(tys...), Items: items})
}

// Unit adds the unit value.
func (b *Builder) Unit() ExprId {
	return b.Tuple()
}

// Array adds a non-empty array expression.
func (b *Builder) Array(items ...ExprId) ExprId {
	if len(items) == 0 {
		panic(errors.AssertionFailedf("Array needs at least one item; use EmptyArray"))
	}
	return b.addExpr(Expr{Kind: ExprArray, Ty: ArrayTy(b.exprTy(items[0])), Items: items})
}

// EmptyArray adds an empty array of the given element type.
func (b *Builder) EmptyArray(elem Ty) ExprId {
	return b.addExpr(Expr{Kind: ExprArray, Ty: ArrayTy(elem)})
}

// Index adds an array element access.
func (b *Builder) Index(array ExprId, index ExprId) ExprId {
	ty := b.exprTy(array)
	if ty.Kind != TyArray {
		panic(errors.AssertionFailedf("Index on non-array type %s", ty))
	}
	return b.addExpr(Expr{Kind: ExprIndex, Ty: *ty.Elem, Lhs: array, Rhs: index})
}

// Call calls a callable item. Multiple arguments are passed as a tuple.
func (b *Builder) Call(item LocalItemId, args ...ExprId) ExprId {
	return b.CallExpr(b.Global(item), args...)
}

// CallExpr calls an arbitrary callee expression.
func (b *Builder) CallExpr(callee ExprId, args ...ExprId) ExprId {
	var arg ExprId
	if len(args) == 1 {
		arg = args[0]
	} else {
		arg = b.Tuple(args...)
	}
	calleeTy := b.exprTy(callee)
	if calleeTy.Kind != TyArrow {
		panic(errors.AssertionFailedf("call of non-callable type %s", calleeTy))
	}
	return b.addExpr(Expr{Kind: ExprCall, Ty: *calleeTy.Elem, Lhs: callee, Rhs: arg})
}

// BinOpExpr adds a binary operation.
func (b *Builder) BinOpExpr(op BinOp, lhs, rhs ExprId) ExprId {
	ty := b.exprTy(lhs)
	if op.IsComparison() || op == BinOpAndL || op == BinOpOrL {
		ty = TyBool
	}
	return b.addExpr(Expr{Kind: ExprBinOp, Ty: ty, BinOp: op, Lhs: lhs, Rhs: rhs})
}

// Eq adds lhs == rhs.
func (b *Builder) Eq(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpEq, lhs, rhs) }

// Neq adds lhs != rhs.
func (b *Builder) Neq(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpNeq, lhs, rhs) }

// Lt adds lhs < rhs.
func (b *Builder) Lt(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpLt, lhs, rhs) }

// Add adds lhs + rhs.
func (b *Builder) Add(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpAdd, lhs, rhs) }

// Sub adds lhs - rhs.
func (b *Builder) Sub(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpSub, lhs, rhs) }

// Mul adds lhs * rhs.
func (b *Builder) Mul(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpMul, lhs, rhs) }

// And adds lhs and rhs.
func (b *Builder) And(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpAndL, lhs, rhs) }

// Or adds lhs or rhs.
func (b *Builder) Or(lhs, rhs ExprId) ExprId { return b.BinOpExpr(BinOpOrL, lhs, rhs) }

// Not adds logical negation.
func (b *Builder) Not(operand ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprUnOp, Ty: TyBool, UnOp: UnOpNotL, Lhs: operand})
}

// Neg adds arithmetic negation.
func (b *Builder) Neg(operand ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprUnOp, Ty: b.exprTy(operand), UnOp: UnOpNeg, Lhs: operand})
}

// If adds a conditional with both arms. Its type is the type of the arms.
func (b *Builder) If(cond, then, els ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprIf, Ty: b.exprTy(then), Cond: cond, Then: then, Else: els, HasElse: true})
}

// IfThen adds a conditional without an else arm. Its type is Unit.
func (b *Builder) IfThen(cond, then ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprIf, Ty: TyUnit, Cond: cond, Then: then})
}

// BlockExpr wraps a block as an expression.
func (b *Builder) BlockExpr(block BlockId) ExprId {
	return b.addExpr(Expr{Kind: ExprBlock, Ty: b.pkg.GetBlock(block).Ty, Block: block})
}

// Return adds an early return of value.
func (b *Builder) Return(value ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprReturn, Ty: b.exprTy(value), Lhs: value})
}

// Assign adds an assignment to a mutable local or a tuple of them.
func (b *Builder) Assign(target, value ExprId) ExprId {
	return b.addExpr(Expr{Kind: ExprAssign, Ty: TyUnit, Lhs: target, Rhs: value})
}

// While adds a loop.
func (b *Builder) While(cond ExprId, body BlockId) ExprId {
	return b.addExpr(Expr{Kind: ExprWhile, Ty: TyUnit, Cond: cond, Block: body})
}

// ---------------------------------------------------------------------------
// Patterns, statements and blocks
// ---------------------------------------------------------------------------

func (b *Builder) addPat(p Pat) PatId {
	p.Id = PatId(len(b.pkg.Pats))
	p.Span = b.nextSpan()
	b.pkg.Pats = append(b.pkg.Pats, p)
	return p.Id
}

func (b *Builder) bindPat(name string, ty Ty) (PatId, LocalVarId) {
	if name == "_" {
		return b.addPat(Pat{Kind: PatDiscard, Ty: ty}), 0
	}
	id := b.nextVar
	b.nextVar++
	b.varTys[id] = ty
	return b.addPat(Pat{Kind: PatBind, Ty: ty, Var: id, Name: name}), id
}

func (b *Builder) addStmt(s Stmt) StmtId {
	s.Id = StmtId(len(b.pkg.Stmts))
	s.Span = b.nextSpan()
	b.pkg.Stmts = append(b.pkg.Stmts, s)
	return s.Id
}

// Let binds an immutable local.
func (b *Builder) Let(name string, value ExprId) (LocalVarId, StmtId) {
	pat, id := b.bindPat(name, b.exprTy(value))
	return id, b.addStmt(Stmt{Kind: StmtLocal, Pat: pat, Expr: value})
}

// Mutable binds a mutable local.
func (b *Builder) Mutable(name string, value ExprId) (LocalVarId, StmtId) {
	pat, id := b.bindPat(name, b.exprTy(value))
	return id, b.addStmt(Stmt{Kind: StmtLocal, Pat: pat, Expr: value, Mutable: true})
}

// LetTuple destructures a tuple value into immutable locals. A name of "_"
// discards the corresponding item.
func (b *Builder) LetTuple(names []string, value ExprId) ([]LocalVarId, StmtId) {
	ty := b.exprTy(value)
	if ty.Kind != TyTuple || len(ty.Items) != len(names) {
		panic(errors.AssertionFailedf("cannot destructure %s into %d names", ty, len(names)))
	}
	ids := make([]LocalVarId, len(names))
	items := make([]PatId, len(names))
	for i, name := range names {
		items[i], ids[i] = b.bindPat(name, ty.Items[i])
	}
	pat := b.addPat(Pat{Kind: PatTuple, Ty: ty, Items: items})
	return ids, b.addStmt(Stmt{Kind: StmtLocal, Pat: pat, Expr: value})
}

// Semi adds an expression statement whose value is discarded.
func (b *Builder) Semi(e ExprId) StmtId {
	return b.addStmt(Stmt{Kind: StmtSemi, Expr: e})
}

// ExprStmt adds a trailing expression statement.
func (b *Builder) ExprStmt(e ExprId) StmtId {
	return b.addStmt(Stmt{Kind: StmtExpr, Expr: e})
}

// Block adds a block. Its type is the type of a trailing expression
// statement, or Unit.
func (b *Builder) Block(stmts ...StmtId) BlockId {
	ty := TyUnit
	if n := len(stmts); n > 0 {
		if last := b.pkg.GetStmt(stmts[n-1]); last.Kind == StmtExpr {
			ty = b.exprTy(last.Expr)
		}
	}
	id := BlockId(len(b.pkg.Blocks))
	b.pkg.Blocks = append(b.pkg.Blocks, Block{Id: id, Span: b.nextSpan(), Ty: ty, Stmts: stmts})
	return id
}

// ---------------------------------------------------------------------------
// Callables
// ---------------------------------------------------------------------------

func (b *Builder) inputPat(params []Param) (PatId, []LocalVarId) {
	if len(params) == 1 {
		pat, id := b.bindPat(params[0].Name, params[0].Ty)
		return pat, []LocalVarId{id}
	}
	ids := make([]LocalVarId, len(params))
	items := make([]PatId, len(params))
	tys := make([]Ty, len(params))
	for i, p := range params {
		items[i], ids[i] = b.bindPat(p.Name, p.Ty)
		tys[i] = p.Ty
	}
	return b.addPat(Pat{Kind: PatTuple, Ty: TupleTy(tys...), Items: items}), ids
}

// DeclareCallable declares a callable with a body to be set later with
// SetBody. It returns the item id and the local ids of the parameters.
func (b *Builder) DeclareCallable(name string, kind CallableKind, params []Param, output Ty) (LocalItemId, []LocalVarId) {
	input, ids := b.inputPat(params)
	id := LocalItemId(len(b.pkg.Items))
	b.pkg.Items = append(b.pkg.Items, Item{
		Id:   id,
		Span: b.nextSpan(),
		Callable: CallableDecl{
			Name:   name,
			Kind:   kind,
			Input:  input,
			Output: output,
			Span:   b.nextSpan(),
		},
	})
	return id, ids
}

// SetBody sets the body of a declared callable.
func (b *Builder) SetBody(item LocalItemId, body BlockId) {
	b.pkg.GetItem(item).Callable.Body = body
}

// Intrinsic declares a body-less callable implemented by the target.
func (b *Builder) Intrinsic(name string, kind CallableKind, params []Param, output Ty) LocalItemId {
	id, _ := b.DeclareCallable(name, kind, params, output)
	b.pkg.GetItem(id).Callable.Intrinsic = true
	return id
}
