package fir

import (
	"fmt"
	"strings"
)

// Prim is a primitive type.
type Prim uint8

const (
	PrimBool Prim = iota
	PrimInt
	PrimBigInt
	PrimDouble
	PrimResult
	PrimQubit
	PrimPauli
	PrimRange
	PrimString
)

var primNames = [...]string{
	PrimBool:   "Bool",
	PrimInt:    "Int",
	PrimBigInt: "BigInt",
	PrimDouble: "Double",
	PrimResult: "Result",
	PrimQubit:  "Qubit",
	PrimPauli:  "Pauli",
	PrimRange:  "Range",
	PrimString: "String",
}

func (p Prim) String() string {
	if int(p) < len(primNames) {
		return primNames[p]
	}
	return fmt.Sprintf("Prim(%d)", uint8(p))
}

// TyKind identifies the shape of a type.
type TyKind uint8

const (
	TyPrim TyKind = iota
	TyTuple
	TyArray
	TyArrow
)

// Ty is a resolved type. Tuple types list their items in Items; array and
// arrow types use Elem (the element type, or the arrow's output) and Items
// (the arrow's input).
type Ty struct {
	Kind  TyKind
	Prim  Prim `cbor:",omitempty"`
	Items []Ty `cbor:",omitempty"`
	Elem  *Ty  `cbor:",omitempty"`
}

// Common types.
var (
	TyBool   = Ty{Kind: TyPrim, Prim: PrimBool}
	TyInt    = Ty{Kind: TyPrim, Prim: PrimInt}
	TyBigInt = Ty{Kind: TyPrim, Prim: PrimBigInt}
	TyDouble = Ty{Kind: TyPrim, Prim: PrimDouble}
	TyResult = Ty{Kind: TyPrim, Prim: PrimResult}
	TyQubit  = Ty{Kind: TyPrim, Prim: PrimQubit}
	TyPauli  = Ty{Kind: TyPrim, Prim: PrimPauli}
	TyRange  = Ty{Kind: TyPrim, Prim: PrimRange}
	TyString = Ty{Kind: TyPrim, Prim: PrimString}
	TyUnit   = Ty{Kind: TyTuple}
)

// TupleTy builds a tuple type.
func TupleTy(items ...Ty) Ty {
	return Ty{Kind: TyTuple, Items: items}
}

// ArrayTy builds an array type.
func ArrayTy(elem Ty) Ty {
	return Ty{Kind: TyArray, Elem: &elem}
}

// ArrowTy builds a callable type.
func ArrowTy(input Ty, output Ty) Ty {
	return Ty{Kind: TyArrow, Items: []Ty{input}, Elem: &output}
}

// IsUnit reports whether t is the empty tuple.
func (t Ty) IsUnit() bool {
	return t.Kind == TyTuple && len(t.Items) == 0
}

// IsPrim reports whether t is the given primitive.
func (t Ty) IsPrim(p Prim) bool {
	return t.Kind == TyPrim && t.Prim == p
}

// Equal reports structural equality.
func (t Ty) Equal(o Ty) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TyPrim:
		return t.Prim == o.Prim
	case TyArray:
		return t.Elem.Equal(*o.Elem)
	default:
		if len(t.Items) != len(o.Items) {
			return false
		}
		for i := range t.Items {
			if !t.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		if t.Kind == TyArrow {
			return t.Elem.Equal(*o.Elem)
		}
		return true
	}
}

func (t Ty) String() string {
	switch t.Kind {
	case TyPrim:
		return t.Prim.String()
	case TyArray:
		return t.Elem.String() + "[]"
	case TyArrow:
		return fmt.Sprintf("(%s -> %s)", t.Items[0], t.Elem)
	default:
		if len(t.Items) == 0 {
			return "Unit"
		}
		parts := make([]string, len(t.Items))
		for i, item := range t.Items {
			parts[i] = item.String()
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	}
}
