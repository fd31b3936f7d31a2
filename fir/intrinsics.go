package fir

// Names of the intrinsic callables the passes know how to lower.
const (
	QubitAllocateName = "__quantum__rt__qubit_allocate"
	QubitReleaseName  = "__quantum__rt__qubit_release"
	MResetZName       = "__quantum__qis__mresetz__body"
	MName             = "__quantum__qis__m__body"
	HName             = "__quantum__qis__h__body"
	XName             = "__quantum__qis__x__body"
	CXName            = "__quantum__qis__cx__body"
	RxName            = "__quantum__qis__rx__body"
	LengthName        = "Length"
	IntAsDoubleName   = "IntAsDouble"
)

// Intrinsics holds the item ids of the standard intrinsics declared in a
// package by DeclareIntrinsics.
type Intrinsics struct {
	QubitAllocate LocalItemId
	QubitRelease  LocalItemId
	MResetZ       LocalItemId
	M             LocalItemId
	H             LocalItemId
	X             LocalItemId
	CX            LocalItemId
	Rx            LocalItemId
	Length        LocalItemId
	IntAsDouble   LocalItemId
}

// DeclareIntrinsics declares the standard intrinsic callables.
//
// Length is declared over Result arrays; its element type is not checked
// by any pass.
func (b *Builder) DeclareIntrinsics() Intrinsics {
	q := []Param{{Name: "q", Ty: TyQubit}}
	return Intrinsics{
		QubitAllocate: b.Intrinsic(QubitAllocateName, CallableOperation, nil, TyQubit),
		QubitRelease:  b.Intrinsic(QubitReleaseName, CallableOperation, q, TyUnit),
		MResetZ:       b.Intrinsic(MResetZName, CallableOperation, q, TyResult),
		M:             b.Intrinsic(MName, CallableOperation, q, TyResult),
		H:             b.Intrinsic(HName, CallableOperation, q, TyUnit),
		X:             b.Intrinsic(XName, CallableOperation, q, TyUnit),
		CX: b.Intrinsic(CXName, CallableOperation,
			[]Param{{Name: "control", Ty: TyQubit}, {Name: "target", Ty: TyQubit}}, TyUnit),
		Rx: b.Intrinsic(RxName, CallableOperation,
			[]Param{{Name: "theta", Ty: TyDouble}, {Name: "q", Ty: TyQubit}}, TyUnit),
		Length: b.Intrinsic(LengthName, CallableFunction,
			[]Param{{Name: "a", Ty: ArrayTy(TyResult)}}, TyInt),
		IntAsDouble: b.Intrinsic(IntAsDoubleName, CallableFunction,
			[]Param{{Name: "a", Ty: TyInt}}, TyDouble),
	}
}
