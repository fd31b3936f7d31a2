package partialeval

import (
	"fmt"

	"github.com/chazu/qpe/eval"
	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rca"
	"github.com/cockroachdb/errors"
)

// callScopeId labels the frame every scope pushes onto its environment on
// creation. The evaluator unwinds the environment to its global frame on a
// return, which is how HasClassicalEvaluatorReturned detects one.
const callScopeId eval.ScopeId = 1

// ScopeCallable identifies the callable specialization a scope evaluates.
type ScopeCallable struct {
	Item    fir.LocalItemId
	Functor fir.FunctorApp
}

// Scope is the call frame of one callable invocation. Local variables with
// static values live in Env; those with dynamic values live in the
// scope's hybrid variables.
type Scope struct {
	PackageId fir.PackageId
	// Callable is nil for the entry scope.
	Callable *ScopeCallable
	// ArgsValueKind classifies each argument as it was at call time.
	ArgsValueKind []rca.ValueKind
	Env           *eval.Env

	activeBlockCount int
	hybridVars       map[fir.LocalVarId]eval.Value
}

// NewScope creates the scope for a call. Var arguments with dynamic values
// become hybrid variables and the rest are bound in the environment;
// Discard arguments are only classified.
func NewScope(pkg fir.PackageId, callable *ScopeCallable, args []Arg) *Scope {
	env := eval.NewEnv()
	env.PushScope(callScopeId)

	kinds := make([]rca.ValueKind, len(args))
	for i, arg := range args {
		kinds[i] = ValueKindOf(arg.Value())
	}

	hybrid := make(map[fir.LocalVarId]eval.Value)
	for i, arg := range args {
		if !arg.IsVar() {
			continue
		}
		if kinds[i].IsDynamic() {
			hybrid[arg.LocalVar] = arg.Variable.Value
		} else {
			env.BindVariableInTopFrame(arg.LocalVar, arg.Variable)
		}
	}

	return &Scope{
		PackageId:        pkg,
		Callable:         callable,
		ArgsValueKind:    kinds,
		Env:              env,
		activeBlockCount: 1,
		hybridVars:       hybrid,
	}
}

// GetLocalVarValue returns the value of a hybrid variable. Looking up an id
// that was never inserted is an internal error.
func (s *Scope) GetLocalVarValue(id fir.LocalVarId) eval.Value {
	v, ok := s.hybridVars[id]
	if !ok {
		panic(errors.AssertionFailedf("scope %s: hybrid variable %d does not exist", s, id))
	}
	return v
}

// HasLocalVar reports whether id is a hybrid variable of the scope.
func (s *Scope) HasLocalVar(id fir.LocalVarId) bool {
	_, ok := s.hybridVars[id]
	return ok
}

// InsertLocalVarValue inserts or overwrites a hybrid variable.
func (s *Scope) InsertLocalVarValue(id fir.LocalVarId, v eval.Value) {
	s.hybridVars[id] = v
}

// forgetLocalVar drops a hybrid binding that a new static binding of the
// same id replaces, as when a loop body rebinds its locals.
func (s *Scope) forgetLocalVar(id fir.LocalVarId) {
	delete(s.hybridVars, id)
}

// IsCurrentlyEvaluatingBranch reports whether a branch block was opened
// since the scope was created.
func (s *Scope) IsCurrentlyEvaluatingBranch() bool {
	return s.activeBlockCount > 1
}

// HasClassicalEvaluatorReturned reports whether a return was executed in
// the scope. The environment then holds only its global frame.
func (s *Scope) HasClassicalEvaluatorReturned() bool {
	return s.Env.Len() == 1
}

// ActiveBlockCount returns the number of blocks open in the scope,
// counting the one it was created in.
func (s *Scope) ActiveBlockCount() int {
	return s.activeBlockCount
}

func (s *Scope) String() string {
	if s.Callable == nil {
		return fmt.Sprintf("<entry %d>", s.PackageId)
	}
	return fmt.Sprintf("Item %d (Package %d) %s", s.Callable.Item, s.PackageId, s.Callable.Functor)
}

// ---------------------------------------------------------------------------
// Arguments
// ---------------------------------------------------------------------------

// Arg is one call argument after evaluation. A Var argument is bound to a
// parameter local; a Discard argument is not bound to any name.
type Arg struct {
	// LocalVar and Variable are set for Var arguments.
	LocalVar fir.LocalVarId
	Variable eval.Variable

	discard bool
	value   eval.Value
}

// DiscardArg returns an argument that binds no local.
func DiscardArg(v eval.Value) Arg {
	return Arg{discard: true, value: v}
}

// VarArg returns an argument bound to local id.
func VarArg(id fir.LocalVarId, v eval.Variable) Arg {
	return Arg{LocalVar: id, Variable: v}
}

// IsVar reports whether the argument binds a local.
func (a Arg) IsVar() bool {
	return !a.discard
}

// Value returns the argument's value.
func (a Arg) Value() eval.Value {
	if a.discard {
		return a.value
	}
	return a.Variable.Value
}
