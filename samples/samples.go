// Package samples provides small programs built directly as FIR, for
// trying the lowering pass without a front end.
package samples

import (
	"sort"

	"github.com/chazu/qpe/fir"
)

// Sample is a named program. Build returns a fresh store each call; its
// entry callable is named Main.
type Sample struct {
	Name        string
	Description string
	Build       func() *fir.PackageStore
}

var registry = map[string]Sample{}

func register(s Sample) {
	registry[s.Name] = s
}

func init() {
	register(Sample{"bell", "Entangle two qubits and measure both.", Bell})
	register(Sample{"nested-tuples", "Record a measurement and comparisons of it in nested tuples.", NestedTuples})
	register(Sample{"dynamic-branch", "Correct a qubit based on a measurement (needs adaptive capabilities).", DynamicBranch})
	register(Sample{"repeat", "Apply a rotation in a statically bounded loop, through a helper operation.", Repeat})
}

// Names returns the sample names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get looks up a sample by name.
func Get(name string) (Sample, bool) {
	s, ok := registry[name]
	return s, ok
}

const pkgID fir.PackageId = 1

// Bell prepares a Bell pair and returns both measurements.
//
//	operation Main() : (Result, Result) {
//	    let q0 = allocate(); let q1 = allocate();
//	    H(q0); CX(q0, q1);
//	    (MResetZ(q0), MResetZ(q1))
//	}
func Bell() *fir.PackageStore {
	b := fir.NewBuilder(pkgID)
	in := b.DeclareIntrinsics()
	main, _ := b.DeclareCallable("Main", fir.CallableOperation, nil, fir.TupleTy(fir.TyResult, fir.TyResult))
	q0, s0 := b.Let("q0", b.Call(in.QubitAllocate))
	q1, s1 := b.Let("q1", b.Call(in.QubitAllocate))
	b.SetBody(main, b.Block(
		s0, s1,
		b.Semi(b.Call(in.H, b.Var(q0))),
		b.Semi(b.Call(in.CX, b.Var(q0), b.Var(q1))),
		b.ExprStmt(b.Tuple(b.Call(in.MResetZ, b.Var(q0)), b.Call(in.MResetZ, b.Var(q1)))),
	))
	return b.Store(main)
}

// NestedTuples records a result next to comparisons derived from it.
//
//	operation Main() : (Result, (Bool, Result), (Bool,)) {
//	    let q = allocate();
//	    let r = MResetZ(q);
//	    (r, (r == Zero, r), (r == One,))
//	}
func NestedTuples() *fir.PackageStore {
	b := fir.NewBuilder(pkgID)
	in := b.DeclareIntrinsics()
	out := fir.TupleTy(fir.TyResult, fir.TupleTy(fir.TyBool, fir.TyResult), fir.TupleTy(fir.TyBool))
	main, _ := b.DeclareCallable("Main", fir.CallableOperation, nil, out)
	q, s0 := b.Let("q", b.Call(in.QubitAllocate))
	r, s1 := b.Let("r", b.Call(in.MResetZ, b.Var(q)))
	b.SetBody(main, b.Block(s0, s1, b.ExprStmt(b.Tuple(
		b.Var(r),
		b.Tuple(b.Eq(b.Var(r), b.Zero()), b.Var(r)),
		b.Tuple(b.Eq(b.Var(r), b.One())),
	))))
	return b.Store(main)
}

// DynamicBranch resets a qubit by measuring it and flipping it on One,
// counting the flips in a mutable local.
//
//	operation Main() : (Result, Int) {
//	    let q = allocate();
//	    H(q);
//	    let r = M(q);
//	    mutable flips = 0;
//	    if r == One { X(q); set flips = flips + 1; }
//	    (MResetZ(q), flips)
//	}
func DynamicBranch() *fir.PackageStore {
	b := fir.NewBuilder(pkgID)
	in := b.DeclareIntrinsics()
	main, _ := b.DeclareCallable("Main", fir.CallableOperation, nil, fir.TupleTy(fir.TyResult, fir.TyInt))
	q, s0 := b.Let("q", b.Call(in.QubitAllocate))
	s1 := b.Semi(b.Call(in.H, b.Var(q)))
	r, s2 := b.Let("r", b.Call(in.M, b.Var(q)))
	flips, s3 := b.Mutable("flips", b.Int(0))
	correct := b.Block(
		b.Semi(b.Call(in.X, b.Var(q))),
		b.Semi(b.Assign(b.Var(flips), b.Add(b.Var(flips), b.Int(1)))),
	)
	s4 := b.Semi(b.IfThen(b.Eq(b.Var(r), b.One()), b.BlockExpr(correct)))
	b.SetBody(main, b.Block(s0, s1, s2, s3, s4,
		b.ExprStmt(b.Tuple(b.Call(in.MResetZ, b.Var(q)), b.Var(flips)))))
	return b.Store(main)
}

// Repeat rotates a qubit a fixed number of times through a helper and
// releases it after measuring.
//
//	operation Rotate(theta : Double, q : Qubit) : Unit { Rx(theta, q); }
//	operation Main() : Result {
//	    let q = allocate();
//	    mutable i = 0;
//	    while i < 4 { Rotate(IntAsDouble(i) * 0.5, q); set i = i + 1; }
//	    let r = MResetZ(q);
//	    release(q);
//	    r
//	}
func Repeat() *fir.PackageStore {
	b := fir.NewBuilder(pkgID)
	in := b.DeclareIntrinsics()
	rotate, params := b.DeclareCallable("Rotate", fir.CallableOperation,
		[]fir.Param{{Name: "theta", Ty: fir.TyDouble}, {Name: "q", Ty: fir.TyQubit}}, fir.TyUnit)
	b.SetBody(rotate, b.Block(b.Semi(b.Call(in.Rx, b.Var(params[0]), b.Var(params[1])))))

	main, _ := b.DeclareCallable("Main", fir.CallableOperation, nil, fir.TyResult)
	q, s0 := b.Let("q", b.Call(in.QubitAllocate))
	i, s1 := b.Mutable("i", b.Int(0))
	theta := b.Mul(b.Call(in.IntAsDouble, b.Var(i)), b.Double(0.5))
	body := b.Block(
		b.Semi(b.Call(rotate, theta, b.Var(q))),
		b.Semi(b.Assign(b.Var(i), b.Add(b.Var(i), b.Int(1)))),
	)
	s2 := b.Semi(b.While(b.Lt(b.Var(i), b.Int(4)), body))
	r, s3 := b.Let("r", b.Call(in.MResetZ, b.Var(q)))
	s4 := b.Semi(b.Call(in.QubitRelease, b.Var(q)))
	b.SetBody(main, b.Block(s0, s1, s2, s3, s4, b.ExprStmt(b.Var(r))))
	return b.Store(main)
}
