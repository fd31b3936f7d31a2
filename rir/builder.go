package rir

import (
	"github.com/cockroachdb/errors"
)

// EntryName is the name of the entry callable of every built program.
const EntryName = "main"

// Builder assembles a Program. The entry callable is always callable 0 and
// its body starts at block 0. Other callables are declared on first use, so
// ids follow the order in which a program first needs them.
type Builder struct {
	prog       Program
	byName     map[string]CallableId
	nextVar    VariableId
	freeQubits []uint32
}

// NewBuilder returns a builder holding only the entry callable and its
// empty entry block.
func NewBuilder(cfg Config) *Builder {
	entry := BlockId(0)
	b := &Builder{
		prog: Program{
			Config: cfg,
			Callables: []Callable{{
				Name:     EntryName,
				CallType: Regular,
				Body:     &entry,
			}},
			Blocks: []Block{{}},
		},
		byName: map[string]CallableId{EntryName: 0},
	}
	return b
}

// EntryBlock returns the first block of the entry callable.
func (b *Builder) EntryBlock() BlockId {
	return 0
}

// NewBlock adds an empty block.
func (b *Builder) NewBlock() BlockId {
	b.prog.Blocks = append(b.prog.Blocks, Block{})
	return BlockId(len(b.prog.Blocks) - 1)
}

// Block returns a block for inspection or in-place editing.
func (b *Builder) Block(id BlockId) *Block {
	if int(id) >= len(b.prog.Blocks) {
		panic(errors.AssertionFailedf("rir: block %d does not exist", id))
	}
	return &b.prog.Blocks[id]
}

// Append adds an instruction to the end of a block.
func (b *Builder) Append(id BlockId, in Instruction) {
	blk := b.Block(id)
	if blk.IsTerminated() {
		panic(errors.AssertionFailedf("rir: append %s to terminated block %d", in.Kind, id))
	}
	blk.Instructions = append(blk.Instructions, in)
}

// NewVariable allocates a fresh variable.
func (b *Builder) NewVariable(ty Ty) Variable {
	v := Variable{Id: b.nextVar, Ty: ty}
	b.nextVar++
	return v
}

// Callable returns the id of the named callable, declaring it on first use.
// A later request for the same name must agree on the signature.
func (b *Builder) Callable(name string, callType CallableType, input []Ty, output *Ty) CallableId {
	if id, ok := b.byName[name]; ok {
		c := b.prog.Callables[id]
		if c.CallType != callType || len(c.InputType) != len(input) {
			panic(errors.AssertionFailedf("rir: callable %q redeclared with a different signature", name))
		}
		return id
	}
	id := CallableId(len(b.prog.Callables))
	b.prog.Callables = append(b.prog.Callables, Callable{
		Name:       name,
		CallType:   callType,
		InputType:  input,
		OutputType: output,
	})
	b.byName[name] = id
	return id
}

// GetCallable returns a declared callable.
func (b *Builder) GetCallable(id CallableId) Callable {
	return b.prog.Callables[id]
}

// AllocateQubit returns a static qubit id, reusing released ids most
// recent first.
func (b *Builder) AllocateQubit() uint32 {
	if n := len(b.freeQubits); n > 0 {
		id := b.freeQubits[n-1]
		b.freeQubits = b.freeQubits[:n-1]
		return id
	}
	id := b.prog.NumQubits
	b.prog.NumQubits++
	return id
}

// ReleaseQubit makes a qubit id available for reuse.
func (b *Builder) ReleaseQubit(id uint32) {
	b.freeQubits = append(b.freeQubits, id)
}

// AllocateResult returns a fresh result id.
func (b *Builder) AllocateResult() uint32 {
	id := b.prog.NumResults
	b.prog.NumResults++
	return id
}

// Config returns the target configuration.
func (b *Builder) Config() Config {
	return b.prog.Config
}

// Finish returns the built program. The builder must not be used after.
func (b *Builder) Finish() *Program {
	p := b.prog
	b.prog = Program{}
	return &p
}

// TyPtr returns a pointer to ty, for callable output types.
func TyPtr(ty Ty) *Ty {
	return &ty
}
