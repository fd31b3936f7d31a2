package partialeval

import (
	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/rca"
)

// ValueKindOf classifies a value as known at compile time or only at run
// time. Tuples are dynamic when any item is; arrays classify their content
// the same way and always have a static size. Runtime results and output
// variables are dynamic; every other value is static.
func ValueKindOf(v eval.Value) rca.ValueKind {
	switch v.Kind() {
	case eval.KindArray:
		return rca.Array(contentKind(v.UnwrapArray()), rca.Static)
	case eval.KindTuple:
		return rca.Element(contentKind(v.UnwrapTuple()))
	case eval.KindResult:
		if v.UnwrapResult().IsLiteral() {
			return rca.Element(rca.Static)
		}
		return rca.Element(rca.Dynamic)
	case eval.KindVar:
		return rca.Element(rca.Dynamic)
	default:
		return rca.Element(rca.Static)
	}
}

func contentKind(items []eval.Value) rca.RuntimeKind {
	for _, item := range items {
		if ValueKindOf(item).IsDynamic() {
			return rca.Dynamic
		}
	}
	return rca.Static
}
