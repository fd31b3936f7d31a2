// Package fir defines the flat, fully type-checked program representation
// consumed by the analysis and partial evaluation passes.
//
// A Package stores its nodes in arenas indexed by id. Nodes refer to one
// another by id rather than by pointer, which keeps a package trivially
// serializable (see MarshalStore) and lets passes attach side tables keyed
// by id.
package fir

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// PackageId identifies a package in a PackageStore.
type PackageId uint32

// LocalItemId identifies an item within its package.
type LocalItemId uint32

// LocalVarId identifies a local variable within its package.
type LocalVarId uint32

// ExprId identifies an expression within its package.
type ExprId uint32

// StmtId identifies a statement within its package.
type StmtId uint32

// BlockId identifies a block within its package.
type BlockId uint32

// PatId identifies a pattern within its package.
type PatId uint32

// ItemRef is a package-qualified item reference.
type ItemRef struct {
	Package PackageId
	Item    LocalItemId
}

func (r ItemRef) String() string {
	return fmt.Sprintf("Item %d (Package %d)", r.Item, r.Package)
}

// Span is a half-open byte range in the source the package was compiled from.
type Span struct {
	Lo uint32
	Hi uint32
}

func (s Span) String() string {
	return fmt.Sprintf("Span { lo: %d, hi: %d }", s.Lo, s.Hi)
}

// FunctorApp describes which specialization of a callable is invoked.
type FunctorApp struct {
	Adjoint    bool
	Controlled uint8
}

// IsBody reports whether no functor is applied.
func (f FunctorApp) IsBody() bool {
	return !f.Adjoint && f.Controlled == 0
}

func (f FunctorApp) String() string {
	return fmt.Sprintf("FunctorApp { adjoint: %t, controlled: %d }", f.Adjoint, f.Controlled)
}

// ---------------------------------------------------------------------------
// Literals
// ---------------------------------------------------------------------------

// LitKind identifies the variant of a literal.
type LitKind uint8

const (
	LitBool LitKind = iota
	LitInt
	LitBigInt
	LitDouble
	LitResult
	LitPauli
	LitString
)

// Pauli is a single-qubit Pauli basis.
type Pauli uint8

const (
	PauliI Pauli = iota
	PauliX
	PauliZ
	PauliY
)

func (p Pauli) String() string {
	switch p {
	case PauliI:
		return "PauliI"
	case PauliX:
		return "PauliX"
	case PauliZ:
		return "PauliZ"
	case PauliY:
		return "PauliY"
	default:
		return fmt.Sprintf("Pauli(%d)", uint8(p))
	}
}

// Lit is a literal value appearing in source.
type Lit struct {
	Kind   LitKind
	Bool   bool
	Int    int64
	BigInt string // decimal digits
	Double float64
	One    bool // LitResult: One when true, Zero otherwise
	Pauli  Pauli
	String string
}

// ---------------------------------------------------------------------------
// Operators
// ---------------------------------------------------------------------------

// BinOp is a binary operator.
type BinOp uint8

const (
	BinOpAdd BinOp = iota
	BinOpSub
	BinOpMul
	BinOpDiv
	BinOpMod
	BinOpEq
	BinOpNeq
	BinOpLt
	BinOpLte
	BinOpGt
	BinOpGte
	BinOpAndL
	BinOpOrL
)

var binOpNames = [...]string{
	BinOpAdd:  "+",
	BinOpSub:  "-",
	BinOpMul:  "*",
	BinOpDiv:  "/",
	BinOpMod:  "%",
	BinOpEq:   "==",
	BinOpNeq:  "!=",
	BinOpLt:   "<",
	BinOpLte:  "<=",
	BinOpGt:   ">",
	BinOpGte:  ">=",
	BinOpAndL: "and",
	BinOpOrL:  "or",
}

func (op BinOp) String() string {
	if int(op) < len(binOpNames) {
		return binOpNames[op]
	}
	return fmt.Sprintf("BinOp(%d)", uint8(op))
}

// IsComparison reports whether op produces a Bool from two operands of the
// same type.
func (op BinOp) IsComparison() bool {
	switch op {
	case BinOpEq, BinOpNeq, BinOpLt, BinOpLte, BinOpGt, BinOpGte:
		return true
	}
	return false
}

// UnOp is a unary operator.
type UnOp uint8

const (
	UnOpNotL UnOp = iota
	UnOpNeg
)

func (op UnOp) String() string {
	switch op {
	case UnOpNotL:
		return "not"
	case UnOpNeg:
		return "-"
	default:
		return fmt.Sprintf("UnOp(%d)", uint8(op))
	}
}

// ---------------------------------------------------------------------------
// Nodes
// ---------------------------------------------------------------------------

// ExprKind identifies the variant of an expression.
type ExprKind uint8

const (
	ExprLit ExprKind = iota
	ExprVar
	ExprGlobal
	ExprTuple
	ExprArray
	ExprIndex
	ExprCall
	ExprBinOp
	ExprUnOp
	ExprIf
	ExprBlock
	ExprReturn
	ExprAssign
	ExprWhile
)

var exprKindNames = [...]string{
	ExprLit:    "Lit",
	ExprVar:    "Var",
	ExprGlobal: "Global",
	ExprTuple:  "Tuple",
	ExprArray:  "Array",
	ExprIndex:  "Index",
	ExprCall:   "Call",
	ExprBinOp:  "BinOp",
	ExprUnOp:   "UnOp",
	ExprIf:     "If",
	ExprBlock:  "Block",
	ExprReturn: "Return",
	ExprAssign: "Assign",
	ExprWhile:  "While",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}
	return fmt.Sprintf("ExprKind(%d)", uint8(k))
}

// Expr is an expression node. Which fields are meaningful depends on Kind:
//
//	Lit      Lit
//	Var      Var
//	Global   Item, Functor
//	Tuple    Items
//	Array    Items
//	Index    Lhs (container), Rhs (index)
//	Call     Lhs (callee), Rhs (argument)
//	BinOp    BinOp, Lhs, Rhs
//	UnOp     UnOp, Lhs
//	If       Cond, Then, Else (when HasElse)
//	Block    Block
//	Return   Lhs
//	Assign   Lhs (target), Rhs (value)
//	While    Cond, Block
type Expr struct {
	Id   ExprId
	Span Span
	Ty   Ty
	Kind ExprKind

	Lit     Lit        `cbor:",omitempty"`
	Var     LocalVarId `cbor:",omitempty"`
	Item    ItemRef    `cbor:",omitempty"`
	Functor FunctorApp `cbor:",omitempty"`
	Items   []ExprId   `cbor:",omitempty"`
	BinOp   BinOp      `cbor:",omitempty"`
	UnOp    UnOp       `cbor:",omitempty"`
	Lhs     ExprId     `cbor:",omitempty"`
	Rhs     ExprId     `cbor:",omitempty"`
	Cond    ExprId     `cbor:",omitempty"`
	Then    ExprId     `cbor:",omitempty"`
	Else    ExprId     `cbor:",omitempty"`
	HasElse bool       `cbor:",omitempty"`
	Block   BlockId    `cbor:",omitempty"`
}

// StmtKind identifies the variant of a statement.
type StmtKind uint8

const (
	// StmtExpr is a trailing expression whose value is the block's value.
	StmtExpr StmtKind = iota
	// StmtSemi is an expression evaluated for its effects.
	StmtSemi
	// StmtLocal binds Pat to the value of Expr.
	StmtLocal
)

// Stmt is a statement node.
type Stmt struct {
	Id      StmtId
	Span    Span
	Kind    StmtKind
	Expr    ExprId
	Pat     PatId `cbor:",omitempty"`
	Mutable bool  `cbor:",omitempty"`
}

// PatKind identifies the variant of a pattern.
type PatKind uint8

const (
	PatBind PatKind = iota
	PatDiscard
	PatTuple
)

// Pat is a binding pattern.
type Pat struct {
	Id    PatId
	Span  Span
	Ty    Ty
	Kind  PatKind
	Var   LocalVarId `cbor:",omitempty"`
	Name  string     `cbor:",omitempty"`
	Items []PatId    `cbor:",omitempty"`
}

// Block is a sequence of statements with its own variable scope.
type Block struct {
	Id    BlockId
	Span  Span
	Ty    Ty
	Stmts []StmtId
}

// CallableKind distinguishes functions (purely classical) from operations.
type CallableKind uint8

const (
	CallableFunction CallableKind = iota
	CallableOperation
)

func (k CallableKind) String() string {
	if k == CallableOperation {
		return "operation"
	}
	return "function"
}

// CallableDecl declares a callable. Intrinsic callables have no body.
type CallableDecl struct {
	Name      string
	Kind      CallableKind
	Input     PatId
	Output    Ty
	Body      BlockId `cbor:",omitempty"`
	Intrinsic bool    `cbor:",omitempty"`
	Span      Span
}

// Item is a package-level declaration. Callables are the only items.
type Item struct {
	Id       LocalItemId
	Span     Span
	Callable CallableDecl
}

// Package holds the node arenas of one compilation unit.
type Package struct {
	Items  []Item
	Blocks []Block
	Stmts  []Stmt
	Exprs  []Expr
	Pats   []Pat
}

// GetExpr returns the expression with the given id.
func (p *Package) GetExpr(id ExprId) *Expr {
	if int(id) >= len(p.Exprs) {
		panic(errors.AssertionFailedf("expr %d not found (package has %d)", id, len(p.Exprs)))
	}
	return &p.Exprs[id]
}

// GetStmt returns the statement with the given id.
func (p *Package) GetStmt(id StmtId) *Stmt {
	if int(id) >= len(p.Stmts) {
		panic(errors.AssertionFailedf("stmt %d not found (package has %d)", id, len(p.Stmts)))
	}
	return &p.Stmts[id]
}

// GetBlock returns the block with the given id.
func (p *Package) GetBlock(id BlockId) *Block {
	if int(id) >= len(p.Blocks) {
		panic(errors.AssertionFailedf("block %d not found (package has %d)", id, len(p.Blocks)))
	}
	return &p.Blocks[id]
}

// GetPat returns the pattern with the given id.
func (p *Package) GetPat(id PatId) *Pat {
	if int(id) >= len(p.Pats) {
		panic(errors.AssertionFailedf("pat %d not found (package has %d)", id, len(p.Pats)))
	}
	return &p.Pats[id]
}

// GetItem returns the item with the given id.
func (p *Package) GetItem(id LocalItemId) *Item {
	if int(id) >= len(p.Items) {
		panic(errors.AssertionFailedf("item %d not found (package has %d)", id, len(p.Items)))
	}
	return &p.Items[id]
}

// FindCallable looks up a callable item by name.
func (p *Package) FindCallable(name string) (LocalItemId, bool) {
	for i := range p.Items {
		if p.Items[i].Callable.Name == name {
			return p.Items[i].Id, true
		}
	}
	return 0, false
}

// PackageStore holds every package of a program and names its entry point.
type PackageStore struct {
	Packages map[PackageId]*Package
	Entry    ItemRef
}

// NewPackageStore creates an empty store.
func NewPackageStore() *PackageStore {
	return &PackageStore{Packages: make(map[PackageId]*Package)}
}

// Insert adds a package under the given id.
func (s *PackageStore) Insert(id PackageId, pkg *Package) {
	s.Packages[id] = pkg
}

// Get returns the package with the given id.
func (s *PackageStore) Get(id PackageId) *Package {
	pkg, ok := s.Packages[id]
	if !ok {
		panic(errors.AssertionFailedf("package %d not found in store", id))
	}
	return pkg
}

// GetCallable resolves an item reference to its callable declaration.
func (s *PackageStore) GetCallable(ref ItemRef) *CallableDecl {
	return &s.Get(ref.Package).GetItem(ref.Item).Callable
}
