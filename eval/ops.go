package eval

import (
	"math/big"

	"github.com/chazu/qpe/fir"
)

// BinOp folds a binary operator over two static operands. AndL and OrL are
// evaluated strictly here; the interpreter short-circuits them itself.
func BinOp(op fir.BinOp, lhs, rhs Value, span fir.Span) (Value, error) {
	switch op {
	case fir.BinOpEq, fir.BinOpNeq:
		if !staticEq(lhs) || !staticEq(rhs) {
			return Value{}, newError(Unsupported, span, "equality over runtime values")
		}
		eq := Equal(lhs, rhs)
		if op == fir.BinOpNeq {
			eq = !eq
		}
		return Bool(eq), nil
	case fir.BinOpAndL:
		return Bool(lhs.UnwrapBool() && rhs.UnwrapBool()), nil
	case fir.BinOpOrL:
		return Bool(lhs.UnwrapBool() || rhs.UnwrapBool()), nil
	}

	switch lhs.Kind() {
	case KindInt:
		return intOp(op, lhs.UnwrapInt(), rhs.UnwrapInt(), span)
	case KindDouble:
		return doubleOp(op, lhs.UnwrapDouble(), rhs.UnwrapDouble(), span)
	case KindBigInt:
		return bigIntOp(op, lhs.bi, rhs.bi, span)
	case KindString:
		if op == fir.BinOpAdd {
			return String(lhs.UnwrapString() + rhs.UnwrapString()), nil
		}
	case KindArray:
		if op == fir.BinOpAdd {
			items := make([]Value, 0, len(lhs.items)+len(rhs.items))
			items = append(items, lhs.items...)
			items = append(items, rhs.items...)
			return Array(items...), nil
		}
	}
	return Value{}, newError(Unsupported, span, "operator %s on %s", op, lhs.Kind())
}

// staticEq reports whether v can be compared at compile time: it holds no
// runtime result or output variable at any depth.
func staticEq(v Value) bool {
	switch v.kind {
	case KindResult:
		return v.result.IsLiteral()
	case KindVar:
		return false
	case KindArray, KindTuple, KindClosure:
		for _, item := range v.items {
			if !staticEq(item) {
				return false
			}
		}
	}
	return true
}

func intOp(op fir.BinOp, a, b int64, span fir.Span) (Value, error) {
	switch op {
	case fir.BinOpAdd:
		return Int(a + b), nil
	case fir.BinOpSub:
		return Int(a - b), nil
	case fir.BinOpMul:
		return Int(a * b), nil
	case fir.BinOpDiv:
		if b == 0 {
			return Value{}, newError(DivisionByZero, span, "")
		}
		return Int(a / b), nil
	case fir.BinOpMod:
		if b == 0 {
			return Value{}, newError(DivisionByZero, span, "")
		}
		return Int(a % b), nil
	case fir.BinOpLt:
		return Bool(a < b), nil
	case fir.BinOpLte:
		return Bool(a <= b), nil
	case fir.BinOpGt:
		return Bool(a > b), nil
	case fir.BinOpGte:
		return Bool(a >= b), nil
	}
	return Value{}, newError(Unsupported, span, "operator %s on Int", op)
}

func doubleOp(op fir.BinOp, a, b float64, span fir.Span) (Value, error) {
	switch op {
	case fir.BinOpAdd:
		return Double(a + b), nil
	case fir.BinOpSub:
		return Double(a - b), nil
	case fir.BinOpMul:
		return Double(a * b), nil
	case fir.BinOpDiv:
		return Double(a / b), nil
	case fir.BinOpLt:
		return Bool(a < b), nil
	case fir.BinOpLte:
		return Bool(a <= b), nil
	case fir.BinOpGt:
		return Bool(a > b), nil
	case fir.BinOpGte:
		return Bool(a >= b), nil
	}
	return Value{}, newError(Unsupported, span, "operator %s on Double", op)
}

func bigIntOp(op fir.BinOp, a, b *big.Int, span fir.Span) (Value, error) {
	r := new(big.Int)
	switch op {
	case fir.BinOpAdd:
		r.Add(a, b)
	case fir.BinOpSub:
		r.Sub(a, b)
	case fir.BinOpMul:
		r.Mul(a, b)
	case fir.BinOpDiv, fir.BinOpMod:
		if b.Sign() == 0 {
			return Value{}, newError(DivisionByZero, span, "")
		}
		// Quo and Rem truncate toward zero, matching Int.
		if op == fir.BinOpDiv {
			r.Quo(a, b)
		} else {
			r.Rem(a, b)
		}
	case fir.BinOpLt:
		return Bool(a.Cmp(b) < 0), nil
	case fir.BinOpLte:
		return Bool(a.Cmp(b) <= 0), nil
	case fir.BinOpGt:
		return Bool(a.Cmp(b) > 0), nil
	case fir.BinOpGte:
		return Bool(a.Cmp(b) >= 0), nil
	default:
		return Value{}, newError(Unsupported, span, "operator %s on BigInt", op)
	}
	return Value{kind: KindBigInt, bi: r}, nil
}

// UnOp folds a unary operator over a static operand.
func UnOp(op fir.UnOp, v Value, span fir.Span) (Value, error) {
	switch op {
	case fir.UnOpNotL:
		if v.Kind() == KindBool {
			return Bool(!v.UnwrapBool()), nil
		}
	case fir.UnOpNeg:
		switch v.Kind() {
		case KindInt:
			return Int(-v.UnwrapInt()), nil
		case KindDouble:
			return Double(-v.UnwrapDouble()), nil
		case KindBigInt:
			return Value{kind: KindBigInt, bi: new(big.Int).Neg(v.bi)}, nil
		}
	}
	return Value{}, newError(Unsupported, span, "operator %s on %s", op, v.Kind())
}
