// Package rca implements runtime-capability analysis: it decides, for every
// expression of a callable specialization, whether evaluating it needs a
// quantum target (Quantum) or not (Classical), whether its value is known
// at compile time (Static) or only at run time (Dynamic), and which runtime
// features a target must support to execute it.
package rca

import (
	"fmt"
	"strings"

	"github.com/chazu/qpe/fir"
)

// RuntimeKind says whether a value is known at compile time.
type RuntimeKind uint8

const (
	Static RuntimeKind = iota
	Dynamic
)

func (k RuntimeKind) String() string {
	if k == Dynamic {
		return "Dynamic"
	}
	return "Static"
}

func joinKind(a, b RuntimeKind) RuntimeKind {
	if a == Dynamic || b == Dynamic {
		return Dynamic
	}
	return Static
}

// ValueKind classifies the runtime-ness of a value. Element values carry a
// single kind in Content; array values also classify their size.
type ValueKind struct {
	IsArray bool
	Content RuntimeKind
	Size    RuntimeKind
}

// Element returns the kind of a scalar or tuple value.
func Element(k RuntimeKind) ValueKind {
	return ValueKind{Content: k}
}

// Array returns the kind of an array value.
func Array(content, size RuntimeKind) ValueKind {
	return ValueKind{IsArray: true, Content: content, Size: size}
}

// ValueKindFor returns the kind of a value of type ty whose contents have
// kind k. Array sizes are always Static.
func ValueKindFor(ty fir.Ty, k RuntimeKind) ValueKind {
	if ty.Kind == fir.TyArray {
		return Array(k, Static)
	}
	return Element(k)
}

// IsDynamic reports whether any part of the value is Dynamic.
func (v ValueKind) IsDynamic() bool {
	return v.Content == Dynamic || v.Size == Dynamic
}

// Join returns the least kind at least as dynamic as both.
func (v ValueKind) Join(o ValueKind) ValueKind {
	return ValueKind{
		IsArray: v.IsArray || o.IsArray,
		Content: joinKind(v.Content, o.Content),
		Size:    joinKind(v.Size, o.Size),
	}
}

func (v ValueKind) String() string {
	if v.IsArray {
		return fmt.Sprintf("Array(Content: %s, Size: %s)", v.Content, v.Size)
	}
	return fmt.Sprintf("Element(%s)", v.Content)
}

// ---------------------------------------------------------------------------
// Runtime features
// ---------------------------------------------------------------------------

// RuntimeFeatureFlags is the set of runtime capabilities a computation needs.
type RuntimeFeatureFlags uint64

const (
	UseOfDynamicBool RuntimeFeatureFlags = 1 << iota
	UseOfDynamicInt
	UseOfDynamicPauli
	UseOfDynamicRange
	UseOfDynamicDouble
	UseOfDynamicQubit
	UseOfDynamicBigInt
	UseOfDynamicString
	UseOfDynamicIndex
	LoopWithDynamicCondition
	ReturnWithinDynamicScope
)

var flagNames = []struct {
	flag RuntimeFeatureFlags
	name string
}{
	{UseOfDynamicBool, "UseOfDynamicBool"},
	{UseOfDynamicInt, "UseOfDynamicInt"},
	{UseOfDynamicPauli, "UseOfDynamicPauli"},
	{UseOfDynamicRange, "UseOfDynamicRange"},
	{UseOfDynamicDouble, "UseOfDynamicDouble"},
	{UseOfDynamicQubit, "UseOfDynamicQubit"},
	{UseOfDynamicBigInt, "UseOfDynamicBigInt"},
	{UseOfDynamicString, "UseOfDynamicString"},
	{UseOfDynamicIndex, "UseOfDynamicIndex"},
	{LoopWithDynamicCondition, "LoopWithDynamicCondition"},
	{ReturnWithinDynamicScope, "ReturnWithinDynamicScope"},
}

// Contains reports whether every flag in o is set in f.
func (f RuntimeFeatureFlags) Contains(o RuntimeFeatureFlags) bool {
	return f&o == o
}

func (f RuntimeFeatureFlags) String() string {
	if f == 0 {
		return "RuntimeFeatureFlags(0x0)"
	}
	var names []string
	for _, fn := range flagNames {
		if f&fn.flag != 0 {
			names = append(names, fn.name)
		}
	}
	return "RuntimeFeatureFlags(" + strings.Join(names, " | ") + ")"
}

// FeaturesFor returns the flags implied by producing a dynamic value of
// type ty. Results carry no flag: a measurement result is dynamic by nature.
func FeaturesFor(ty fir.Ty) RuntimeFeatureFlags {
	switch ty.Kind {
	case fir.TyPrim:
		switch ty.Prim {
		case fir.PrimBool:
			return UseOfDynamicBool
		case fir.PrimInt:
			return UseOfDynamicInt
		case fir.PrimBigInt:
			return UseOfDynamicBigInt
		case fir.PrimDouble:
			return UseOfDynamicDouble
		case fir.PrimPauli:
			return UseOfDynamicPauli
		case fir.PrimRange:
			return UseOfDynamicRange
		case fir.PrimString:
			return UseOfDynamicString
		case fir.PrimQubit:
			return UseOfDynamicQubit
		}
	case fir.TyTuple:
		var f RuntimeFeatureFlags
		for _, item := range ty.Items {
			f |= FeaturesFor(item)
		}
		return f
	case fir.TyArray:
		return FeaturesFor(*ty.Elem)
	}
	return 0
}

// ---------------------------------------------------------------------------
// Compute kinds
// ---------------------------------------------------------------------------

// ComputeKind is the analysis result for one expression, statement or
// local: Classical, or Quantum with the features it needs and the kind of
// the value it produces.
type ComputeKind struct {
	IsQuantum bool
	Features  RuntimeFeatureFlags
	Value     ValueKind
}

// Classical is the kind of computations that need no quantum target.
var Classical = ComputeKind{}

// Quantum returns a quantum compute kind.
func Quantum(features RuntimeFeatureFlags, value ValueKind) ComputeKind {
	return ComputeKind{IsQuantum: true, Features: features, Value: value}
}

// IsDynamic reports whether the computation produces a runtime value.
func (c ComputeKind) IsDynamic() bool {
	return c.IsQuantum && c.Value.IsDynamic()
}

// Join combines two kinds. Quantum wins over Classical, features are
// unioned and the more dynamic value kind is kept.
func (c ComputeKind) Join(o ComputeKind) ComputeKind {
	if !c.IsQuantum && !o.IsQuantum {
		return Classical
	}
	return Quantum(c.Features|o.Features, c.Value.Join(o.Value))
}

func (c ComputeKind) String() string {
	if !c.IsQuantum {
		return "Classical"
	}
	return fmt.Sprintf("Quantum: QuantumProperties:\n    runtime_features: %s\n    value_kind: %s", c.Features, c.Value)
}
