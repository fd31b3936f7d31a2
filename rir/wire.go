package rir

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("rir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes a program to canonical CBOR.
func Marshal(p *Program) ([]byte, error) {
	data, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "rir: marshal program")
	}
	return data, nil
}

// Unmarshal deserializes a program and checks that it is well formed.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "rir: unmarshal program")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every reference in the program resolves and that
// every block is terminated.
func (p *Program) Validate() error {
	if int(p.Entry) >= len(p.Callables) {
		return errors.Newf("rir: entry callable %d missing", p.Entry)
	}
	if p.Callables[p.Entry].Body == nil {
		return errors.Newf("rir: entry callable %d has no body", p.Entry)
	}
	for i, c := range p.Callables {
		if c.Body != nil && int(*c.Body) >= len(p.Blocks) {
			return errors.Newf("rir: callable %d body block %d missing", i, *c.Body)
		}
	}
	for i := range p.Blocks {
		blk := &p.Blocks[i]
		if !blk.IsTerminated() {
			return errors.Newf("rir: block %d is not terminated", i)
		}
		for _, in := range blk.Instructions {
			switch in.Kind {
			case InstrCall:
				if int(in.Callable) >= len(p.Callables) {
					return errors.Newf("rir: block %d calls missing callable %d", i, in.Callable)
				}
			case InstrBranch:
				if int(in.Else) >= len(p.Blocks) {
					return errors.Newf("rir: block %d branches to missing block %d", i, in.Else)
				}
				fallthrough
			case InstrJump:
				if int(in.Target) >= len(p.Blocks) {
					return errors.Newf("rir: block %d jumps to missing block %d", i, in.Target)
				}
			}
		}
	}
	return nil
}
