package eval

import (
	"github.com/chazu/qpe/fir"
	"github.com/cockroachdb/errors"
)

// Variable is a local binding held by an Env.
type Variable struct {
	Name  string
	Value Value
	Span  fir.Span
}

// ScopeId labels a frame pushed onto an Env.
type ScopeId uint32

type frame struct {
	id   ScopeId
	vars map[fir.LocalVarId]*Variable
}

// Env is a stack of variable frames. A new Env holds one global frame, so
// its Len is 1 before any scope is pushed.
type Env struct {
	frames []frame
}

// NewEnv creates an environment holding only the global frame.
func NewEnv() *Env {
	return &Env{frames: []frame{newFrame(0)}}
}

func newFrame(id ScopeId) frame {
	return frame{id: id, vars: make(map[fir.LocalVarId]*Variable)}
}

// Len returns the number of frames, including the global frame.
func (e *Env) Len() int {
	return len(e.frames)
}

// PushScope pushes an empty frame.
func (e *Env) PushScope(id ScopeId) {
	e.frames = append(e.frames, newFrame(id))
}

// PopScope removes the innermost frame. Popping the global frame is an
// internal error.
func (e *Env) PopScope() {
	if len(e.frames) <= 1 {
		panic(errors.AssertionFailedf("env: pop of the global frame"))
	}
	e.frames = e.frames[:len(e.frames)-1]
}

// Truncate drops frames until at most n remain. n must be at least 1.
func (e *Env) Truncate(n int) {
	if n < 1 {
		panic(errors.AssertionFailedf("env: truncate to %d frames", n))
	}
	if n < len(e.frames) {
		e.frames = e.frames[:n]
	}
}

// BindVariableInTopFrame binds id in the innermost frame, shadowing any
// outer binding.
func (e *Env) BindVariableInTopFrame(id fir.LocalVarId, v Variable) {
	top := e.frames[len(e.frames)-1]
	top.vars[id] = &v
}

// Get looks id up from the innermost frame outward.
func (e *Env) Get(id fir.LocalVarId) (*Variable, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if v, ok := e.frames[i].vars[id]; ok {
			return v, true
		}
	}
	return nil, false
}

// Update replaces the value of an existing binding. It reports whether the
// binding was found.
func (e *Env) Update(id fir.LocalVarId, val Value) bool {
	v, ok := e.Get(id)
	if !ok {
		return false
	}
	v.Value = val
	return true
}
