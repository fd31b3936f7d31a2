// Package partialeval lowers a typed program to RIR. It executes every
// operation whose inputs are known at compile time and emits instructions
// only for those that depend on measurement outcomes.
//
// The EvaluationContext holds the two stacks the pass threads through its
// walk: the blocks instructions are appended to and the call scopes of the
// callables being evaluated.
package partialeval

import (
	"github.com/chazu/qpe/fir"
	"github.com/chazu/qpe/rir"
	"github.com/cockroachdb/errors"
)

// BlockNode is a block being emitted into. Successor, when set, is the
// block control jumps to once this block is sealed.
type BlockNode struct {
	Id        rir.BlockId
	Successor *rir.BlockId
}

// EvaluationContext owns the block stack and the scope stack of one
// lowering run. Both stacks are non-empty from construction until the
// final pops; popping an empty stack is an internal error and panics.
type EvaluationContext struct {
	blocks []BlockNode
	scopes []*Scope
}

// NewEvaluationContext seeds the context with the entry block and a scope
// for the entry package that has no callable identity.
func NewEvaluationContext(pkg fir.PackageId, initial rir.BlockId) *EvaluationContext {
	return &EvaluationContext{
		blocks: []BlockNode{{Id: initial}},
		scopes: []*Scope{NewScope(pkg, nil, nil)},
	}
}

// CurrentBlockId returns the block instructions are appended to.
func (c *EvaluationContext) CurrentBlockId() rir.BlockId {
	return c.CurrentBlockNode().Id
}

// CurrentBlockNode returns the innermost block node.
func (c *EvaluationContext) CurrentBlockNode() BlockNode {
	if len(c.blocks) == 0 {
		panic(errors.AssertionFailedf("evaluation context: no active blocks"))
	}
	return c.blocks[len(c.blocks)-1]
}

// CurrentScope returns the scope of the callable being evaluated.
func (c *EvaluationContext) CurrentScope() *Scope {
	if len(c.scopes) == 0 {
		panic(errors.AssertionFailedf("evaluation context: no current scope"))
	}
	return c.scopes[len(c.scopes)-1]
}

// PushBlockNode makes b the active block and counts it against the current
// scope.
func (c *EvaluationContext) PushBlockNode(b BlockNode) {
	c.blocks = append(c.blocks, b)
	c.CurrentScope().activeBlockCount++
}

// PopBlockNode removes the active block. The current scope's open-block
// counter is decremented before the block is removed.
func (c *EvaluationContext) PopBlockNode() BlockNode {
	if len(c.blocks) == 0 {
		panic(errors.AssertionFailedf("evaluation context: pop of empty block stack"))
	}
	s := c.CurrentScope()
	if s.activeBlockCount == 0 {
		panic(errors.AssertionFailedf("evaluation context: scope %s has no open blocks", s))
	}
	s.activeBlockCount--
	b := c.blocks[len(c.blocks)-1]
	c.blocks = c.blocks[:len(c.blocks)-1]
	return b
}

// ReplaceBlockNode swaps the active block for b and returns the old one.
// The open-block counter is unchanged.
func (c *EvaluationContext) ReplaceBlockNode(b BlockNode) BlockNode {
	if len(c.blocks) == 0 {
		panic(errors.AssertionFailedf("evaluation context: replace on empty block stack"))
	}
	old := c.blocks[len(c.blocks)-1]
	c.blocks[len(c.blocks)-1] = b
	return old
}

// PushScope makes s the current scope.
func (c *EvaluationContext) PushScope(s *Scope) {
	c.scopes = append(c.scopes, s)
}

// PopScope removes the current scope.
func (c *EvaluationContext) PopScope() *Scope {
	if len(c.scopes) == 0 {
		panic(errors.AssertionFailedf("evaluation context: pop of empty scope stack"))
	}
	s := c.scopes[len(c.scopes)-1]
	c.scopes = c.scopes[:len(c.scopes)-1]
	return s
}

// BlockDepth returns the number of active blocks.
func (c *EvaluationContext) BlockDepth() int {
	return len(c.blocks)
}

// ScopeDepth returns the number of active scopes.
func (c *EvaluationContext) ScopeDepth() int {
	return len(c.scopes)
}
