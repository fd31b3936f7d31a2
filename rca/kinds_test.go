package rca

import (
	"testing"

	"github.com/chazu/qpe/fir"
)

func TestRuntimeFeatureFlagsString(t *testing.T) {
	tests := []struct {
		flags RuntimeFeatureFlags
		want  string
	}{
		{0, "RuntimeFeatureFlags(0x0)"},
		{UseOfDynamicBool, "RuntimeFeatureFlags(UseOfDynamicBool)"},
		{UseOfDynamicDouble | UseOfDynamicBool | UseOfDynamicInt,
			"RuntimeFeatureFlags(UseOfDynamicBool | UseOfDynamicInt | UseOfDynamicDouble)"},
	}
	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueKindString(t *testing.T) {
	if got := Element(Dynamic).String(); got != "Element(Dynamic)" {
		t.Errorf("Element(Dynamic) = %q", got)
	}
	if got := Array(Dynamic, Static).String(); got != "Array(Content: Dynamic, Size: Static)" {
		t.Errorf("Array(Dynamic, Static) = %q", got)
	}
}

func TestComputeKindJoin(t *testing.T) {
	if got := Classical.Join(Classical); got != Classical {
		t.Errorf("Classical.Join(Classical) = %s", got)
	}
	a := Quantum(UseOfDynamicBool, Element(Static))
	b := Quantum(UseOfDynamicInt, Element(Dynamic))
	got := a.Join(b)
	if got.Features != UseOfDynamicBool|UseOfDynamicInt || !got.Value.IsDynamic() {
		t.Errorf("Join = %s, want both features and a dynamic value", got)
	}
	if got := Classical.Join(a); got != a {
		t.Errorf("Classical.Join(a) = %s, want a", got)
	}
	if got := Array(Static, Static).Join(Element(Dynamic)); got != Array(Dynamic, Static) {
		t.Errorf("array join = %s", got)
	}
}

func TestFeaturesFor(t *testing.T) {
	tests := []struct {
		ty   fir.Ty
		want RuntimeFeatureFlags
	}{
		{fir.TyResult, 0},
		{fir.TyBool, UseOfDynamicBool},
		{fir.TupleTy(fir.TyInt, fir.TyResult), UseOfDynamicInt},
		{fir.ArrayTy(fir.TyDouble), UseOfDynamicDouble},
		{fir.TyUnit, 0},
	}
	for _, tt := range tests {
		if got := FeaturesFor(tt.ty); got != tt.want {
			t.Errorf("FeaturesFor(%s) = %s, want %s", tt.ty, got, tt.want)
		}
	}
}

func TestComputeKindString(t *testing.T) {
	want := "Quantum: QuantumProperties:\n" +
		"    runtime_features: RuntimeFeatureFlags(0x0)\n" +
		"    value_kind: Element(Dynamic)"
	if got := Quantum(0, Element(Dynamic)).String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
