// Package rir defines the output of partial evaluation: a program of
// callables and basic blocks holding low-level instructions over typed
// variables and literals.
//
// The String methods produce the diagnostic rendering used throughout the
// tests, for example:
//
//	Variable(1, Boolean) = Icmp Eq, Variable(0, Boolean), Bool(false)
//	Call id(3), args( Integer(2), Pointer, )
package rir

import (
	"fmt"
	"strings"
)

// BlockId identifies a block of a program.
type BlockId uint32

// CallableId identifies a callable of a program.
type CallableId uint32

// VariableId identifies a variable of a program.
type VariableId uint32

// Ty is the type of an operand.
type Ty uint8

const (
	Boolean Ty = iota
	Integer
	Double
	Qubit
	Result
	Pointer
)

func (t Ty) String() string {
	switch t {
	case Boolean:
		return "Boolean"
	case Integer:
		return "Integer"
	case Double:
		return "Double"
	case Qubit:
		return "Qubit"
	case Result:
		return "Result"
	case Pointer:
		return "Pointer"
	default:
		return fmt.Sprintf("Ty(%d)", uint8(t))
	}
}

// Variable is a typed SSA-style variable.
type Variable struct {
	Id VariableId
	Ty Ty
}

func (v Variable) String() string {
	return fmt.Sprintf("Variable(%d, %s)", v.Id, v.Ty)
}

// ---------------------------------------------------------------------------
// Operands
// ---------------------------------------------------------------------------

// OperandKind distinguishes literal operands from variables.
type OperandKind uint8

const (
	OperandLiteral OperandKind = iota
	OperandVariable
)

// Operand is a literal or a variable. Literal operands use Ty to select
// which of the value fields is meaningful; qubit and result literals store
// their id in Int.
type Operand struct {
	Kind     OperandKind
	Ty       Ty
	Bool     bool     `cbor:",omitempty"`
	Int      int64    `cbor:",omitempty"`
	Double   float64  `cbor:",omitempty"`
	Variable Variable `cbor:",omitempty"`
}

func BoolLit(b bool) Operand { return Operand{Kind: OperandLiteral, Ty: Boolean, Bool: b} }
func IntegerLit(i int64) Operand { return Operand{Kind: OperandLiteral, Ty: Integer, Int: i} }
func DoubleLit(d float64) Operand { return Operand{Kind: OperandLiteral, Ty: Double, Double: d} }
func QubitLit(id uint32) Operand { return Operand{Kind: OperandLiteral, Ty: Qubit, Int: int64(id)} }
func ResultLit(id uint32) Operand { return Operand{Kind: OperandLiteral, Ty: Result, Int: int64(id)} }
func PointerLit() Operand { return Operand{Kind: OperandLiteral, Ty: Pointer} }
func VarOperand(v Variable) Operand { return Operand{Kind: OperandVariable, Ty: v.Ty, Variable: v} }

// IsVariable reports whether o refers to a variable.
func (o Operand) IsVariable() bool {
	return o.Kind == OperandVariable
}

func (o Operand) String() string {
	if o.Kind == OperandVariable {
		return o.Variable.String()
	}
	switch o.Ty {
	case Boolean:
		return fmt.Sprintf("Bool(%t)", o.Bool)
	case Integer:
		return fmt.Sprintf("Integer(%d)", o.Int)
	case Double:
		return fmt.Sprintf("Double(%v)", o.Double)
	case Qubit:
		return fmt.Sprintf("Qubit(%d)", o.Int)
	case Result:
		return fmt.Sprintf("Result(%d)", o.Int)
	default:
		return "Pointer"
	}
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// InstrKind identifies an instruction.
type InstrKind uint8

const (
	InstrCall InstrKind = iota
	InstrJump
	InstrBranch
	InstrReturn
	InstrStore
	InstrAdd
	InstrSub
	InstrMul
	InstrSdiv
	InstrSrem
	InstrFadd
	InstrFsub
	InstrFmul
	InstrFdiv
	InstrIcmp
	InstrFcmp
	InstrLogicalNot
	InstrLogicalAnd
	InstrLogicalOr
	InstrConvert
)

var instrNames = [...]string{
	InstrCall:       "Call",
	InstrJump:       "Jump",
	InstrBranch:     "Branch",
	InstrReturn:     "Return",
	InstrStore:      "Store",
	InstrAdd:        "Add",
	InstrSub:        "Sub",
	InstrMul:        "Mul",
	InstrSdiv:       "Sdiv",
	InstrSrem:       "Srem",
	InstrFadd:       "Fadd",
	InstrFsub:       "Fsub",
	InstrFmul:       "Fmul",
	InstrFdiv:       "Fdiv",
	InstrIcmp:       "Icmp",
	InstrFcmp:       "Fcmp",
	InstrLogicalNot: "LogicalNot",
	InstrLogicalAnd: "LogicalAnd",
	InstrLogicalOr:  "LogicalOr",
	InstrConvert:    "Convert",
}

func (k InstrKind) String() string {
	if int(k) < len(instrNames) {
		return instrNames[k]
	}
	return fmt.Sprintf("InstrKind(%d)", uint8(k))
}

// ConditionCode is the predicate of an Icmp or Fcmp instruction.
type ConditionCode uint8

const (
	CondEq ConditionCode = iota
	CondNe
	CondSlt
	CondSle
	CondSgt
	CondSge
)

func (c ConditionCode) String() string {
	switch c {
	case CondEq:
		return "Eq"
	case CondNe:
		return "Ne"
	case CondSlt:
		return "Slt"
	case CondSle:
		return "Sle"
	case CondSgt:
		return "Sgt"
	default:
		return "Sge"
	}
}

// fcmpName renders a condition as an ordered floating-point predicate.
func (c ConditionCode) fcmpName() string {
	switch c {
	case CondEq:
		return "Oeq"
	case CondNe:
		return "One"
	case CondSlt:
		return "Olt"
	case CondSle:
		return "Ole"
	case CondSgt:
		return "Ogt"
	default:
		return "Oge"
	}
}

// Instruction is one instruction of a block. Field use by kind:
//
//	Call        Callable, Args, Dest (when the callable has an output)
//	Jump        Target
//	Branch      Lhs (condition), Target, Else
//	Store       Lhs (value), Dest
//	unary ops   Lhs, Dest
//	binary ops  Lhs, Rhs, Dest; Cond for Icmp and Fcmp
type Instruction struct {
	Kind     InstrKind
	Callable CallableId    `cbor:",omitempty"`
	Args     []Operand     `cbor:",omitempty"`
	Dest     *Variable     `cbor:",omitempty"`
	Lhs      Operand       `cbor:",omitempty"`
	Rhs      Operand       `cbor:",omitempty"`
	Cond     ConditionCode `cbor:",omitempty"`
	Target   BlockId       `cbor:",omitempty"`
	Else     BlockId       `cbor:",omitempty"`
}

// Call calls a callable. dest is nil for callables without output.
func Call(callable CallableId, args []Operand, dest *Variable) Instruction {
	return Instruction{Kind: InstrCall, Callable: callable, Args: args, Dest: dest}
}

// Jump transfers control to target.
func Jump(target BlockId) Instruction {
	return Instruction{Kind: InstrJump, Target: target}
}

// Branch transfers control to then or els depending on cond.
func Branch(cond Operand, then, els BlockId) Instruction {
	return Instruction{Kind: InstrBranch, Lhs: cond, Target: then, Else: els}
}

// Return ends the entry callable.
func Return() Instruction {
	return Instruction{Kind: InstrReturn}
}

// Store writes value into dest.
func Store(value Operand, dest Variable) Instruction {
	return Instruction{Kind: InstrStore, Lhs: value, Dest: &dest}
}

// Binary builds an arithmetic or logical binary instruction.
func Binary(kind InstrKind, lhs, rhs Operand, dest Variable) Instruction {
	return Instruction{Kind: kind, Lhs: lhs, Rhs: rhs, Dest: &dest}
}

// Icmp compares two integers or booleans.
func Icmp(cond ConditionCode, lhs, rhs Operand, dest Variable) Instruction {
	return Instruction{Kind: InstrIcmp, Cond: cond, Lhs: lhs, Rhs: rhs, Dest: &dest}
}

// Fcmp compares two doubles.
func Fcmp(cond ConditionCode, lhs, rhs Operand, dest Variable) Instruction {
	return Instruction{Kind: InstrFcmp, Cond: cond, Lhs: lhs, Rhs: rhs, Dest: &dest}
}

// Unary builds LogicalNot or Convert.
func Unary(kind InstrKind, operand Operand, dest Variable) Instruction {
	return Instruction{Kind: kind, Lhs: operand, Dest: &dest}
}

func (in Instruction) String() string {
	var sb strings.Builder
	if in.Dest != nil {
		fmt.Fprintf(&sb, "%s = ", in.Dest)
	}
	switch in.Kind {
	case InstrCall:
		fmt.Fprintf(&sb, "Call id(%d), args( ", in.Callable)
		for _, arg := range in.Args {
			fmt.Fprintf(&sb, "%s, ", arg)
		}
		sb.WriteString(")")
	case InstrJump:
		fmt.Fprintf(&sb, "Jump(%d)", in.Target)
	case InstrBranch:
		fmt.Fprintf(&sb, "Branch %s, %d, %d", in.Lhs, in.Target, in.Else)
	case InstrReturn:
		sb.WriteString("Return")
	case InstrStore, InstrLogicalNot, InstrConvert:
		fmt.Fprintf(&sb, "%s %s", in.Kind, in.Lhs)
	case InstrIcmp:
		fmt.Fprintf(&sb, "Icmp %s, %s, %s", in.Cond, in.Lhs, in.Rhs)
	case InstrFcmp:
		fmt.Fprintf(&sb, "Fcmp %s, %s, %s", in.Cond.fcmpName(), in.Lhs, in.Rhs)
	default:
		fmt.Fprintf(&sb, "%s %s, %s", in.Kind, in.Lhs, in.Rhs)
	}
	return sb.String()
}

// IsTerminator reports whether the instruction ends a block.
func (in Instruction) IsTerminator() bool {
	switch in.Kind {
	case InstrJump, InstrBranch, InstrReturn:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Blocks, callables and programs
// ---------------------------------------------------------------------------

// Block is a straight-line instruction sequence ending in a terminator.
type Block struct {
	Instructions []Instruction
}

// IsTerminated reports whether the last instruction is a terminator.
func (b *Block) IsTerminated() bool {
	n := len(b.Instructions)
	return n > 0 && b.Instructions[n-1].IsTerminator()
}

// CallableType says how a target treats calls to a callable.
type CallableType uint8

const (
	Regular CallableType = iota
	Measurement
	Readout
	OutputRecording
)

func (t CallableType) String() string {
	switch t {
	case Measurement:
		return "Measurement"
	case Readout:
		return "Readout"
	case OutputRecording:
		return "OutputRecording"
	default:
		return "Regular"
	}
}

// Callable is a callable of the program. Only the entry callable has a
// body; the others are declarations implemented by the target.
type Callable struct {
	Name       string
	CallType   CallableType
	InputType  []Ty     `cbor:",omitempty"`
	OutputType *Ty      `cbor:",omitempty"`
	Body       *BlockId `cbor:",omitempty"`
}

// Capabilities names the runtime features a target supports.
type Capabilities uint8

const (
	// Base targets run straight-line programs only.
	Base Capabilities = iota
	// Adaptive targets support branching on measurement results and
	// integer computation at run time.
	Adaptive
)

func (c Capabilities) String() string {
	if c == Adaptive {
		return "Adaptive"
	}
	return "Base"
}

// Config holds target configuration recorded in the program.
type Config struct {
	Capabilities Capabilities
}

// Program is the result of partial evaluation.
type Program struct {
	Entry      CallableId
	Callables  []Callable
	Blocks     []Block
	Config     Config
	NumQubits  uint32
	NumResults uint32
}

func (p *Program) String() string {
	var sb strings.Builder
	sb.WriteString("Program:\n")
	fmt.Fprintf(&sb, "    entry: %d\n", p.Entry)
	sb.WriteString("    callables:\n")
	for i, c := range p.Callables {
		fmt.Fprintf(&sb, "        Callable %d: Callable:\n", i)
		fmt.Fprintf(&sb, "            name: %s\n", c.Name)
		fmt.Fprintf(&sb, "            call_type: %s\n", c.CallType)
		if len(c.InputType) == 0 {
			sb.WriteString("            input_type: <VOID>\n")
		} else {
			sb.WriteString("            input_type:\n")
			for j, ty := range c.InputType {
				fmt.Fprintf(&sb, "                [%d]: %s\n", j, ty)
			}
		}
		if c.OutputType == nil {
			sb.WriteString("            output_type: <VOID>\n")
		} else {
			fmt.Fprintf(&sb, "            output_type: %s\n", *c.OutputType)
		}
		if c.Body == nil {
			sb.WriteString("            body: <NONE>\n")
		} else {
			fmt.Fprintf(&sb, "            body: %d\n", *c.Body)
		}
	}
	sb.WriteString("    blocks:\n")
	for i, b := range p.Blocks {
		fmt.Fprintf(&sb, "        Block %d: Block:\n", i)
		for _, in := range b.Instructions {
			fmt.Fprintf(&sb, "            %s\n", in)
		}
	}
	sb.WriteString("    config: Config:\n")
	fmt.Fprintf(&sb, "        capabilities: %s\n", p.Config.Capabilities)
	fmt.Fprintf(&sb, "    num_qubits: %d\n", p.NumQubits)
	fmt.Fprintf(&sb, "    num_results: %d", p.NumResults)
	return sb.String()
}
