// Package eval implements the classical evaluator: the Value model shared by
// every pass, a scoped variable environment, and a tree-walking interpreter
// for the classical subset of the language.
package eval

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/chazu/qpe/fir"
	"github.com/cockroachdb/errors"
)

// Kind identifies the variant of a Value.
type Kind uint8

const (
	KindBool Kind = iota
	KindInt
	KindBigInt
	KindDouble
	KindPauli
	KindRange
	KindString
	KindQubit
	KindResult
	KindArray
	KindTuple
	KindClosure
	KindGlobal
	KindVar
)

var kindNames = [...]string{
	KindBool:    "Bool",
	KindInt:     "Int",
	KindBigInt:  "BigInt",
	KindDouble:  "Double",
	KindPauli:   "Pauli",
	KindRange:   "Range",
	KindString:  "String",
	KindQubit:   "Qubit",
	KindResult:  "Result",
	KindArray:   "Array",
	KindTuple:   "Tuple",
	KindClosure: "Closure",
	KindGlobal:  "Global",
	KindVar:     "Var",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Result is a measurement result: either a literal outcome known at compile
// time, or the id of a result register written at run time.
type Result struct {
	literal bool
	one     bool
	id      uint32
}

// ResultLiteral returns the literal One (one == true) or Zero.
func ResultLiteral(one bool) Result {
	return Result{literal: true, one: one}
}

// ResultID returns a runtime result with the given register id.
func ResultID(id uint32) Result {
	return Result{id: id}
}

// IsLiteral reports whether the result is a compile-time literal.
func (r Result) IsLiteral() bool { return r.literal }

// One reports whether a literal result is One.
func (r Result) One() bool { return r.one }

// ID returns the register id of a runtime result.
func (r Result) ID() uint32 { return r.id }

func (r Result) String() string {
	switch {
	case !r.literal:
		return fmt.Sprintf("Result(%d)", r.id)
	case r.one:
		return "One"
	default:
		return "Zero"
	}
}

// Range is an integer range with an explicit step.
type Range struct {
	Start int64
	Step  int64
	End   int64
}

// Var is a value computed at run time into an output variable: it carries
// the output variable's id and the primitive type it holds.
type Var struct {
	ID uint32
	Ty fir.Prim
}

// Value is the immutable result of evaluating an expression.
type Value struct {
	kind    Kind
	b       bool
	i       int64
	bi      *big.Int
	d       float64
	pauli   fir.Pauli
	rng     Range
	s       string
	qubit   uint32
	result  Result
	items   []Value
	item    fir.ItemRef
	functor fir.FunctorApp
	v       Var
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Scalar and composite constructors.

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }
func Double(d float64) Value { return Value{kind: KindDouble, d: d} }
func PauliValue(p fir.Pauli) Value { return Value{kind: KindPauli, pauli: p} }
func RangeValue(r Range) Value { return Value{kind: KindRange, rng: r} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Qubit(id uint32) Value { return Value{kind: KindQubit, qubit: id} }
func ResultValue(r Result) Value { return Value{kind: KindResult, result: r} }
func VarValue(v Var) Value { return Value{kind: KindVar, v: v} }
func Array(items ...Value) Value { return Value{kind: KindArray, items: items} }
func Tuple(items ...Value) Value { return Value{kind: KindTuple, items: items} }
func Unit() Value { return Value{kind: KindTuple} }

// BigInt copies n into a new value.
func BigInt(n *big.Int) Value {
	return Value{kind: KindBigInt, bi: new(big.Int).Set(n)}
}

// Global references a callable item under a functor application.
func Global(item fir.ItemRef, functor fir.FunctorApp) Value {
	return Value{kind: KindGlobal, item: item, functor: functor}
}

// Closure references a callable item with some arguments already fixed.
func Closure(item fir.ItemRef, fixed []Value, functor fir.FunctorApp) Value {
	return Value{kind: KindClosure, item: item, items: fixed, functor: functor}
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

func (v Value) expect(k Kind) {
	if v.kind != k {
		panic(errors.AssertionFailedf("value is %s, not %s", v.kind, k))
	}
}

// The Unwrap accessors panic when v is not of the expected kind.

func (v Value) UnwrapBool() bool {
	v.expect(KindBool)
	return v.b
}

func (v Value) UnwrapInt() int64 {
	v.expect(KindInt)
	return v.i
}

func (v Value) UnwrapDouble() float64 {
	v.expect(KindDouble)
	return v.d
}

func (v Value) UnwrapPauli() fir.Pauli {
	v.expect(KindPauli)
	return v.pauli
}

func (v Value) UnwrapRange() Range {
	v.expect(KindRange)
	return v.rng
}

func (v Value) UnwrapString() string {
	v.expect(KindString)
	return v.s
}

func (v Value) UnwrapQubit() uint32 {
	v.expect(KindQubit)
	return v.qubit
}

func (v Value) UnwrapResult() Result {
	v.expect(KindResult)
	return v.result
}

func (v Value) UnwrapVar() Var {
	v.expect(KindVar)
	return v.v
}

func (v Value) UnwrapBigInt() *big.Int {
	v.expect(KindBigInt)
	return new(big.Int).Set(v.bi)
}

// UnwrapArray returns the elements of an array value. The slice must not
// be modified.
func (v Value) UnwrapArray() []Value {
	v.expect(KindArray)
	return v.items
}

// UnwrapTuple returns the items of a tuple value. The slice must not be
// modified.
func (v Value) UnwrapTuple() []Value {
	v.expect(KindTuple)
	return v.items
}

// UnwrapGlobal returns the item and functor of a global or closure value.
func (v Value) UnwrapGlobal() (fir.ItemRef, fir.FunctorApp) {
	if v.kind != KindGlobal && v.kind != KindClosure {
		panic(errors.AssertionFailedf("value is %s, not a callable", v.kind))
	}
	return v.item, v.functor
}

// UnwrapClosure returns the fixed arguments of a closure value.
func (v Value) UnwrapClosure() []Value {
	v.expect(KindClosure)
	return v.items
}

// IsUnit reports whether v is the empty tuple.
func (v Value) IsUnit() bool {
	return v.kind == KindTuple && len(v.items) == 0
}

// Equal reports structural equality. Values of different kinds are never
// equal.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindBigInt:
		return a.bi.Cmp(b.bi) == 0
	case KindDouble:
		return a.d == b.d
	case KindPauli:
		return a.pauli == b.pauli
	case KindRange:
		return a.rng == b.rng
	case KindString:
		return a.s == b.s
	case KindQubit:
		return a.qubit == b.qubit
	case KindResult:
		return a.result == b.result
	case KindVar:
		return a.v == b.v
	case KindGlobal:
		return a.item == b.item && a.functor == b.functor
	default:
		if a.kind == KindClosure && (a.item != b.item || a.functor != b.functor) {
			return false
		}
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindBigInt:
		return v.bi.String() + "L"
	case KindDouble:
		return fmt.Sprintf("%g", v.d)
	case KindPauli:
		return v.pauli.String()
	case KindRange:
		return fmt.Sprintf("%d..%d..%d", v.rng.Start, v.rng.Step, v.rng.End)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindQubit:
		return fmt.Sprintf("Qubit%d", v.qubit)
	case KindResult:
		return v.result.String()
	case KindVar:
		return fmt.Sprintf("Var(%d, %s)", v.v.ID, v.v.Ty)
	case KindGlobal:
		return v.item.String()
	case KindClosure:
		return fmt.Sprintf("<closure %s>", v.item)
	case KindArray:
		return "[" + joinValues(v.items) + "]"
	default:
		if len(v.items) == 1 {
			return "(" + v.items[0].String() + ",)"
		}
		return "(" + joinValues(v.items) + ")"
	}
}

func joinValues(items []Value) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.String()
	}
	return strings.Join(parts, ", ")
}

// FromLit converts a literal to its value.
func FromLit(lit fir.Lit) (Value, error) {
	switch lit.Kind {
	case fir.LitBool:
		return Bool(lit.Bool), nil
	case fir.LitInt:
		return Int(lit.Int), nil
	case fir.LitBigInt:
		n, ok := new(big.Int).SetString(lit.BigInt, 10)
		if !ok {
			return Value{}, errors.Newf("invalid BigInt literal %q", lit.BigInt)
		}
		return Value{kind: KindBigInt, bi: n}, nil
	case fir.LitDouble:
		return Double(lit.Double), nil
	case fir.LitResult:
		return ResultValue(ResultLiteral(lit.One)), nil
	case fir.LitPauli:
		return PauliValue(lit.Pauli), nil
	case fir.LitString:
		return String(lit.String), nil
	default:
		return Value{}, errors.Newf("unknown literal kind %d", lit.Kind)
	}
}
