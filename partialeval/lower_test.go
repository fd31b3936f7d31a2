package partialeval

import (
	"testing"

	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rir"
)

// measuredIsOne adds `let q = allocate(); let r = MResetZ(q);` and returns
// the expression `r == One`.
func measuredIsOne(p *program) (fir.LocalVarId, fir.LocalVarId, fir.ExprId, []fir.StmtId) {
	q, s0 := p.qubit("q")
	r, s1 := p.measure("r", q)
	return q, r, p.b.Eq(p.b.Var(r), p.b.One()), []fir.StmtId{s0, s1}
}

func TestDynamicBranch(t *testing.T) {
	p := newProgram(fir.TyResult)
	b := p.b
	q, r, cond, stmts := measuredIsOne(p)
	flip := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(b.Call(p.in.X, b.Var(q))))))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, b.Semi(flip), b.ExprStmt(b.Var(r)))...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Boolean) = Call id(2), args( Result(0), )",
			"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
			"Branch Variable(1, Boolean), 1, 2",
		),
		block(1,
			"Call id(3), args( Qubit(0), )",
			"Jump(3)",
		),
		block(2, "Jump(3)"),
		block(3,
			"Call id(4), args( Result(0), Pointer, )",
			"Return",
		),
	)
	if got := prog.Callables[3].Name; got != fir.XName {
		t.Errorf("callable 3 = %s, want %s", got, fir.XName)
	}
	if err := prog.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDynamicBranchRequiresAdaptive(t *testing.T) {
	p := newProgram(fir.TyResult)
	b := p.b
	q, r, cond, stmts := measuredIsOne(p)
	flip := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(b.Call(p.in.X, b.Var(q))))))
	_, err := p.lower(t, rir.Base, append(stmts, b.Semi(flip), b.ExprStmt(b.Var(r)))...)
	pe := expectError(t, err, Unsupported)
	if pe.Span != p.b.Package().GetExpr(flip).Span {
		t.Errorf("error span = %s, want the branch at %s", pe.Span, p.b.Package().GetExpr(flip).Span)
	}
}

func TestDynamicBranchValue(t *testing.T) {
	p := newProgram(fir.TyInt)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	x, s := b.Let("x", b.If(cond, b.Int(1), b.Int(0)))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, s, b.ExprStmt(b.Var(x)))...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Boolean) = Call id(2), args( Result(0), )",
			"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
			"Branch Variable(1, Boolean), 1, 2",
		),
		block(1, "Variable(2, Integer) = Store Integer(1)", "Jump(3)"),
		block(2, "Variable(2, Integer) = Store Integer(0)", "Jump(3)"),
		block(3,
			"Call id(3), args( Variable(2, Integer), Pointer, )",
			"Return",
		),
	)
}

func TestMutableLocalAssignedInBranch(t *testing.T) {
	p := newProgram(fir.TyInt)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	count, decl := b.Mutable("count", b.Int(0))
	incr := b.Assign(b.Var(count), b.Add(b.Var(count), b.Int(1)))
	branch := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(incr))))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, decl, b.Semi(branch), b.ExprStmt(b.Var(count)))...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Integer) = Store Integer(0)",
			"Variable(1, Boolean) = Call id(2), args( Result(0), )",
			"Variable(2, Boolean) = Icmp Eq, Variable(1, Boolean), Bool(true)",
			"Branch Variable(2, Boolean), 1, 2",
		),
		block(1,
			"Variable(3, Integer) = Add Variable(0, Integer), Integer(1)",
			"Variable(0, Integer) = Store Variable(3, Integer)",
			"Jump(3)",
		),
		block(2, "Jump(3)"),
		block(3,
			"Call id(3), args( Variable(0, Integer), Pointer, )",
			"Return",
		),
	)
}

func TestImmutableCopyOfMutableLocal(t *testing.T) {
	p := newProgram(fir.TupleTy(fir.TyInt, fir.TyInt))
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	count, decl := b.Mutable("count", b.Int(0))
	branch := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(b.Assign(b.Var(count), b.Int(5))))))
	before, snap := b.Let("before", b.Var(count))
	later := b.Assign(b.Var(count), b.Int(7))
	ret := b.ExprStmt(b.Tuple(b.Var(before), b.Var(count)))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, decl, b.Semi(branch), snap, b.Semi(later), ret)...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Integer) = Store Integer(0)",
			"Variable(1, Boolean) = Call id(2), args( Result(0), )",
			"Variable(2, Boolean) = Icmp Eq, Variable(1, Boolean), Bool(true)",
			"Branch Variable(2, Boolean), 1, 2",
		),
		block(1, "Variable(0, Integer) = Store Integer(5)", "Jump(3)"),
		block(2, "Jump(3)"),
		block(3,
			"Variable(3, Integer) = Store Variable(0, Integer)",
			"Variable(0, Integer) = Store Integer(7)",
			"Call id(3), args( Integer(2), Pointer, )",
			"Call id(4), args( Variable(3, Integer), Pointer, )",
			"Call id(4), args( Variable(0, Integer), Pointer, )",
			"Return",
		),
	)
}

func TestMutableResultLocals(t *testing.T) {
	want := []string{
		"Call id(1), args( Qubit(0), Result(0), )",
		"Call id(2), args( Result(0), Pointer, )",
		"Return",
	}

	t.Run("assigned after a literal", func(t *testing.T) {
		p := newProgram(fir.TyResult)
		b := p.b
		q, s0 := p.qubit("q")
		r, s1 := b.Mutable("r", b.Zero())
		set := b.Semi(b.Assign(b.Var(r), b.Call(p.in.MResetZ, b.Var(q))))
		prog := p.mustLower(t, rir.Base, s0, s1, set, b.ExprStmt(b.Var(r)))
		expectBlocks(t, prog, block(0, want...))
	})

	t.Run("initialized from a measurement", func(t *testing.T) {
		p := newProgram(fir.TyResult)
		b := p.b
		q, s0 := p.qubit("q")
		r, s1 := b.Mutable("r", b.Call(p.in.MResetZ, b.Var(q)))
		prog := p.mustLower(t, rir.Base, s0, s1, b.ExprStmt(b.Var(r)))
		expectBlocks(t, prog, block(0, want...))
	})
}

func TestMutableResultAssignedInBranchIsUnsupported(t *testing.T) {
	p := newProgram(fir.TyResult)
	b := p.b
	q, _, cond, stmts := measuredIsOne(p)
	last, decl := b.Mutable("last", b.Zero())
	remeasure := b.Assign(b.Var(last), b.Call(p.in.MResetZ, b.Var(q)))
	branch := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(remeasure))))
	_, err := p.lower(t, rir.Adaptive, append(stmts, decl, b.Semi(branch), b.ExprStmt(b.Var(last)))...)
	pe := expectError(t, err, Unsupported)
	if want := b.Package().GetExpr(remeasure).Span; pe.Span != want {
		t.Errorf("error span = %s, want the assignment at %s", pe.Span, want)
	}
}

func TestStaticLoopIsUnrolled(t *testing.T) {
	p := newProgram(fir.TyUnit)
	b := p.b
	q, s0 := p.qubit("q")
	i, s1 := b.Mutable("i", b.Int(0))
	body := b.Block(
		b.Semi(b.Call(p.in.H, b.Var(q))),
		b.Semi(b.Assign(b.Var(i), b.Add(b.Var(i), b.Int(1)))),
	)
	loop := b.While(b.Lt(b.Var(i), b.Int(3)), body)
	prog := p.mustLower(t, rir.Base, s0, s1, b.Semi(loop))

	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), )",
		"Call id(1), args( Qubit(0), )",
		"Call id(1), args( Qubit(0), )",
		"Call id(2), args( Integer(0), Pointer, )",
		"Return",
	))
}

func TestLoopRebindsLocalStatically(t *testing.T) {
	p := newProgram(fir.TyBool)
	b := p.b
	_, _, isOne, stmts := measuredIsOne(p)
	i, declI := b.Mutable("i", b.Int(0))
	last, declLast := b.Mutable("last", b.Bool(false))
	v, bindV := b.Let("v", b.If(b.Eq(b.Var(i), b.Int(0)), isOne, b.Bool(true)))
	body := b.Block(
		bindV,
		b.Semi(b.Assign(b.Var(last), b.Var(v))),
		b.Semi(b.Assign(b.Var(i), b.Add(b.Var(i), b.Int(1)))),
	)
	loop := b.Semi(b.While(b.Lt(b.Var(i), b.Int(2)), body))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, declI, declLast, loop, b.ExprStmt(b.Var(last)))...)

	// v is dynamic in the first iteration and static in the second.
	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), Result(0), )",
		"Variable(0, Boolean) = Store Bool(false)",
		"Variable(1, Boolean) = Call id(2), args( Result(0), )",
		"Variable(2, Boolean) = Icmp Eq, Variable(1, Boolean), Bool(true)",
		"Variable(0, Boolean) = Store Variable(2, Boolean)",
		"Variable(0, Boolean) = Store Bool(true)",
		"Call id(3), args( Variable(0, Boolean), Pointer, )",
		"Return",
	))
}

func TestLoopOnMeasurementIsUnsupported(t *testing.T) {
	p := newProgram(fir.TyUnit)
	b := p.b
	q, _, cond, stmts := measuredIsOne(p)
	loop := b.While(cond, b.Block(b.Semi(b.Call(p.in.X, b.Var(q)))))
	_, err := p.lower(t, rir.Adaptive, append(stmts, b.Semi(loop))...)
	expectError(t, err, Unsupported)
}

func TestCallsEvaluateInTheirOwnScope(t *testing.T) {
	p := newProgram(fir.TupleTy(fir.TyResult, fir.TyBool))
	b := p.b
	measureX, params := b.DeclareCallable("MeasureX", fir.CallableOperation,
		[]fir.Param{{Name: "q", Ty: fir.TyQubit}}, fir.TyResult)
	b.SetBody(measureX, b.Block(
		b.Semi(b.Call(p.in.H, b.Var(params[0]))),
		b.ExprStmt(b.Call(p.in.MResetZ, b.Var(params[0]))),
	))
	isOne, rParams := b.DeclareCallable("IsOne", fir.CallableFunction,
		[]fir.Param{{Name: "r", Ty: fir.TyResult}}, fir.TyBool)
	b.SetBody(isOne, b.Block(b.ExprStmt(b.Eq(b.Var(rParams[0]), b.One()))))

	q0, s0 := p.qubit("q0")
	q1, s1 := p.qubit("q1")
	r0, s2 := b.Let("r0", b.Call(measureX, b.Var(q0)))
	r1, s3 := b.Let("r1", b.Call(measureX, b.Var(q1)))
	ret := b.ExprStmt(b.Tuple(b.Var(r0), b.Call(isOne, b.Var(r1))))
	prog := p.mustLower(t, rir.Base, s0, s1, s2, s3, ret)

	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), )",
		"Call id(2), args( Qubit(0), Result(0), )",
		"Call id(1), args( Qubit(1), )",
		"Call id(2), args( Qubit(1), Result(1), )",
		"Variable(0, Boolean) = Call id(3), args( Result(1), )",
		"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
		"Call id(4), args( Integer(2), Pointer, )",
		"Call id(5), args( Result(0), Pointer, )",
		"Call id(6), args( Variable(1, Boolean), Pointer, )",
		"Return",
	))
	if prog.NumQubits != 2 || prog.NumResults != 2 {
		t.Errorf("counts = %d qubits, %d results, want 2, 2", prog.NumQubits, prog.NumResults)
	}
}

func TestReleasedQubitsAreReused(t *testing.T) {
	p := newProgram(fir.TupleTy(fir.TyResult, fir.TyResult))
	b := p.b
	q0, s0 := p.qubit("q0")
	r0, s1 := p.measure("r0", q0)
	s2 := b.Semi(b.Call(p.in.QubitRelease, b.Var(q0)))
	q1, s3 := p.qubit("q1")
	r1, s4 := p.measure("r1", q1)
	prog := p.mustLower(t, rir.Base, s0, s1, s2, s3, s4, b.ExprStmt(b.Tuple(b.Var(r0), b.Var(r1))))

	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), Result(0), )",
		"Call id(1), args( Qubit(0), Result(1), )",
		"Call id(2), args( Integer(2), Pointer, )",
		"Call id(3), args( Result(0), Pointer, )",
		"Call id(3), args( Result(1), Pointer, )",
		"Return",
	))
	if prog.NumQubits != 1 {
		t.Errorf("NumQubits = %d, want 1", prog.NumQubits)
	}
}

func TestReturnFromEntry(t *testing.T) {
	p := newProgram(fir.TyResult)
	b := p.b
	q, s0 := p.qubit("q")
	r, s1 := p.measure("r", q)
	early := b.Semi(b.Return(b.Var(r)))
	unreachable := b.Semi(b.Call(p.in.X, b.Var(q)))
	prog := p.mustLower(t, rir.Base, s0, s1, early, unreachable, b.ExprStmt(b.Var(r)))

	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), Result(0), )",
		"Call id(2), args( Result(0), Pointer, )",
		"Return",
	))
}

func TestReturnInsideDynamicBranchIsUnsupported(t *testing.T) {
	p := newProgram(fir.TyBool)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	branch := b.IfThen(cond, b.BlockExpr(b.Block(b.Semi(b.Return(b.Bool(true))))))
	_, err := p.lower(t, rir.Adaptive, append(stmts, b.Semi(branch), b.ExprStmt(b.Bool(false)))...)
	expectError(t, err, Unsupported)
}

func TestDynamicLogicalOperators(t *testing.T) {
	p := newProgram(fir.TyBool)
	b := p.b
	q0, s0 := p.qubit("q0")
	q1, s1 := p.qubit("q1")
	r0, s2 := p.measure("r0", q0)
	r1, s3 := p.measure("r1", q1)
	a, s4 := b.Let("a", b.Eq(b.Var(r0), b.One()))
	c, s5 := b.Let("c", b.Eq(b.Var(r1), b.One()))
	ret := b.ExprStmt(b.Not(b.And(b.Var(a), b.Var(c))))
	prog := p.mustLower(t, rir.Base, s0, s1, s2, s3, s4, s5, ret)

	expectBlocks(t, prog, block(0,
		"Call id(1), args( Qubit(0), Result(0), )",
		"Call id(1), args( Qubit(1), Result(1), )",
		"Variable(0, Boolean) = Call id(2), args( Result(0), )",
		"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
		"Variable(2, Boolean) = Call id(2), args( Result(1), )",
		"Variable(3, Boolean) = Icmp Eq, Variable(2, Boolean), Bool(true)",
		"Variable(4, Boolean) = LogicalAnd Variable(1, Boolean), Variable(3, Boolean)",
		"Variable(5, Boolean) = LogicalNot Variable(4, Boolean)",
		"Call id(3), args( Variable(5, Boolean), Pointer, )",
		"Return",
	))
}

func TestDynamicAndWithQuantumOperandBranches(t *testing.T) {
	p := newProgram(fir.TyBool)
	b := p.b
	q, _, cond, stmts := measuredIsOne(p)
	second := b.Eq(b.Call(p.in.MResetZ, b.Var(q)), b.One())
	prog := p.mustLower(t, rir.Adaptive, append(stmts, b.ExprStmt(b.And(cond, second)))...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Boolean) = Call id(2), args( Result(0), )",
			"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
			"Branch Variable(1, Boolean), 1, 2",
		),
		block(1,
			"Call id(1), args( Qubit(0), Result(1), )",
			"Variable(3, Boolean) = Call id(2), args( Result(1), )",
			"Variable(4, Boolean) = Icmp Eq, Variable(3, Boolean), Bool(true)",
			"Variable(2, Boolean) = Store Variable(4, Boolean)",
			"Jump(3)",
		),
		block(2, "Variable(2, Boolean) = Store Bool(false)", "Jump(3)"),
		block(3,
			"Call id(3), args( Variable(2, Boolean), Pointer, )",
			"Return",
		),
	)
}

func TestDynamicArithmetic(t *testing.T) {
	p := newProgram(fir.TyDouble)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	n, s := b.Let("n", b.If(cond, b.Int(3), b.Int(4)))
	d := b.Call(p.in.IntAsDouble, b.Neg(b.Mul(b.Var(n), b.Int(2))))
	prog := p.mustLower(t, rir.Adaptive, append(stmts, s, b.ExprStmt(b.Neg(d)))...)

	expectBlocks(t, prog,
		block(0,
			"Call id(1), args( Qubit(0), Result(0), )",
			"Variable(0, Boolean) = Call id(2), args( Result(0), )",
			"Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(true)",
			"Branch Variable(1, Boolean), 1, 2",
		),
		block(1, "Variable(2, Integer) = Store Integer(3)", "Jump(3)"),
		block(2, "Variable(2, Integer) = Store Integer(4)", "Jump(3)"),
		block(3,
			"Variable(3, Integer) = Mul Variable(2, Integer), Integer(2)",
			"Variable(4, Integer) = Sub Integer(0), Variable(3, Integer)",
			"Variable(5, Double) = Convert Variable(4, Integer)",
			"Variable(6, Double) = Fmul Variable(5, Double), Double(-1)",
			"Call id(3), args( Variable(6, Double), Pointer, )",
			"Return",
		),
	)
}

func TestDivisionOfDynamicValueByZero(t *testing.T) {
	p := newProgram(fir.TyInt)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	n, s := b.Let("n", b.If(cond, b.Int(3), b.Int(4)))
	div := b.BinOpExpr(fir.BinOpDiv, b.Var(n), b.Int(0))
	_, err := p.lower(t, rir.Adaptive, append(stmts, s, b.ExprStmt(div))...)
	pe := expectError(t, err, Evaluation)
	if pe.Msg != "DivisionByZero" {
		t.Errorf("Msg = %q, want DivisionByZero", pe.Msg)
	}
}

func TestDynamicIndexIsUnsupported(t *testing.T) {
	p := newProgram(fir.TyInt)
	b := p.b
	_, _, cond, stmts := measuredIsOne(p)
	n, s := b.Let("n", b.If(cond, b.Int(0), b.Int(1)))
	idx := b.Index(b.Array(b.Int(10), b.Int(20)), b.Var(n))
	_, err := p.lower(t, rir.Adaptive, append(stmts, s, b.ExprStmt(idx))...)
	expectError(t, err, Unsupported)
}

func TestStaticEvaluationErrors(t *testing.T) {
	p := newProgram(fir.TyInt)
	b := p.b
	idx := b.Index(b.Array(b.Int(10)), b.Int(3))
	_, err := p.lower(t, rir.Base, b.ExprStmt(idx))
	pe := expectError(t, err, Evaluation)
	if pe.Span != b.Package().GetExpr(idx).Span {
		t.Errorf("span = %s, want the index expression", pe.Span)
	}
}

func TestEntryWithArgumentsIsUnsupported(t *testing.T) {
	b := fir.NewBuilder(2)
	main, _ := b.DeclareCallable("Main", fir.CallableOperation, []fir.Param{{Name: "n", Ty: fir.TyInt}}, fir.TyInt)
	b.SetBody(main, b.Block(b.ExprStmt(b.Int(1))))
	store := b.Store(main)
	_, err := PartiallyEvaluate(store, store.Entry, rir.Config{})
	expectError(t, err, Unsupported)
}
