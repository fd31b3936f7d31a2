package samples

import (
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/partialeval"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
	"github.com/davecgh/go-spew/spew"
	"github.com/kylelemons/godebug/diff"
)

func lower(t *testing.T, s Sample, caps rir.Capabilities) (*rir.Program, error) {
	t.Helper()
	store := s.Build()
	return partialeval.PartiallyEvaluate(store, store.Entry, rir.Config{Capabilities: caps})
}

func blocks(p *rir.Program) string {
	var lines []string
	for i, b := range p.Blocks {
		lines = append(lines, fmt.Sprintf("Block %d:", i))
		for _, in := range b.Instructions {
			lines = append(lines, "  "+in.String())
		}
	}
	return strings.Join(lines, "\n")
}

func TestNames(t *testing.T) {
	want := []string{"bell", "dynamic-branch", "nested-tuples", "repeat"}
	got := Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if _, ok := Get("teleport"); ok {
		t.Error("Get(teleport) found a sample")
	}
}

func TestSamplesLowerForAdaptiveTargets(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, _ := Get(name)
			p, err := lower(t, s, rir.Adaptive)
			if err != nil {
				t.Fatalf("lowering %s: %v", name, err)
			}
			if err := p.Validate(); err != nil {
				t.Errorf("Validate: %v\n%s", err, spew.Sdump(p.Blocks))
			}
		})
	}
}

func TestBellProgram(t *testing.T) {
	s, _ := Get("bell")
	p, err := lower(t, s, rir.Base)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Block 0:",
		"  Call id(1), args( Qubit(0), )",
		"  Call id(2), args( Qubit(0), Qubit(1), )",
		"  Call id(3), args( Qubit(0), Result(0), )",
		"  Call id(3), args( Qubit(1), Result(1), )",
		"  Call id(4), args( Integer(2), Pointer, )",
		"  Call id(5), args( Result(0), Pointer, )",
		"  Call id(5), args( Result(1), Pointer, )",
		"  Return",
	}, "\n")
	if got := blocks(p); got != want {
		t.Errorf("blocks differ (-got +want):\n%s", diff.Diff(got, want))
	}
	if p.NumQubits != 2 || p.NumResults != 2 {
		t.Errorf("counts = %d, %d, want 2, 2", p.NumQubits, p.NumResults)
	}
}

func TestDynamicBranchProgram(t *testing.T) {
	s, _ := Get("dynamic-branch")
	p, err := lower(t, s, rir.Adaptive)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Block 0:",
		"  Call id(1), args( Qubit(0), )",
		"  Call id(2), args( Qubit(0), Result(0), )",
		"  Variable(0, Integer) = Store Integer(0)",
		"  Variable(1, Boolean) = Call id(3), args( Result(0), )",
		"  Variable(2, Boolean) = Icmp Eq, Variable(1, Boolean), Bool(true)",
		"  Branch Variable(2, Boolean), 1, 2",
		"Block 1:",
		"  Call id(4), args( Qubit(0), )",
		"  Variable(3, Integer) = Add Variable(0, Integer), Integer(1)",
		"  Variable(0, Integer) = Store Variable(3, Integer)",
		"  Jump(3)",
		"Block 2:",
		"  Jump(3)",
		"Block 3:",
		"  Call id(5), args( Qubit(0), Result(1), )",
		"  Call id(6), args( Integer(2), Pointer, )",
		"  Call id(7), args( Result(1), Pointer, )",
		"  Call id(8), args( Variable(0, Integer), Pointer, )",
		"  Return",
	}, "\n")
	if got := blocks(p); got != want {
		t.Errorf("blocks differ (-got +want):\n%s", diff.Diff(got, want))
	}

	_, err = lower(t, s, rir.Base)
	var pe *partialeval.Error
	if !errors.As(err, &pe) || pe.Kind != partialeval.Unsupported {
		t.Errorf("Base lowering error = %v, want Unsupported", err)
	}
}

func TestRepeatProgram(t *testing.T) {
	s, _ := Get("repeat")
	p, err := lower(t, s, rir.Base)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"Block 0:",
		"  Call id(1), args( Double(0), Qubit(0), )",
		"  Call id(1), args( Double(0.5), Qubit(0), )",
		"  Call id(1), args( Double(1), Qubit(0), )",
		"  Call id(1), args( Double(1.5), Qubit(0), )",
		"  Call id(2), args( Qubit(0), Result(0), )",
		"  Call id(3), args( Result(0), Pointer, )",
		"  Return",
	}, "\n")
	if got := blocks(p); got != want {
		t.Errorf("blocks differ (-got +want):\n%s", diff.Diff(got, want))
	}
	if got := p.Callables[1].Name; got != fir.RxName {
		t.Errorf("callable 1 = %s, want %s", got, fir.RxName)
	}
}

func TestSamplesSurviveWireFormat(t *testing.T) {
	for _, name := range Names() {
		s, _ := Get(name)
		store := s.Build()
		data, err := fir.MarshalStore(store)
		if err != nil {
			t.Fatalf("%s: MarshalStore: %v", name, err)
		}
		decoded, err := fir.UnmarshalStore(data)
		if err != nil {
			t.Fatalf("%s: UnmarshalStore: %v", name, err)
		}
		want, _ := fir.Fingerprint(store)
		got, _ := fir.Fingerprint(decoded)
		if got != want {
			t.Errorf("%s: fingerprint changed across the wire", name)
		}
	}
}
