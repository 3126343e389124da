package bytecode

import (
	"errors"
	"fmt"
)

// MaxProgramCapacity is the largest program a JMP target can address.
const MaxProgramCapacity = 1<<(8*JumpOperandLen) - 1

// DefaultProgramCapacity is used when NewProgram is given a non-positive size.
const DefaultProgramCapacity = 256

// ErrProgramFull is returned by the builders when an instruction does not fit.
var ErrProgramFull = errors.New("program full")

// Program is a fixed-capacity bytecode buffer plus the program counter the
// Engine advances. The backing array is allocated once; builders append into
// it and Erase only resets the length.
type Program struct {
	code   []byte // len(code) is the capacity
	length int    // Bytes of code written
	line   int    // Program counter
	exited bool   // EXIT has executed
}

// NewProgram creates an empty program that can hold capacity bytes.
// Capacities above MaxProgramCapacity are clamped.
func NewProgram(capacity int) *Program {
	if capacity <= 0 {
		capacity = DefaultProgramCapacity
	}
	if capacity > MaxProgramCapacity {
		capacity = MaxProgramCapacity
	}
	return &Program{code: make([]byte, capacity)}
}

// Erase clears the code and the program counter. Capacity is unchanged.
func (p *Program) Erase() {
	clear(p.code[:p.length])
	p.length = 0
	p.line = 0
	p.exited = false
}

// Load replaces the program contents with raw bytecode and rewinds it.
// The code is copied; it is not validated.
func (p *Program) Load(code []byte) error {
	if len(code) > len(p.code) {
		return fmt.Errorf("%w: %d bytes of code, capacity %d", ErrProgramFull, len(code), len(p.code))
	}
	p.Erase()
	p.length = copy(p.code, code)
	return nil
}

// Line returns the current program counter.
func (p *Program) Line() int {
	return p.line
}

// Finished reports whether the counter ran past the code or EXIT executed.
func (p *Program) Finished() bool {
	return p.exited || p.line >= p.length
}

// Opcode returns the byte at offset as an Opcode. ok is false when offset is
// outside the written code.
func (p *Program) Opcode(offset int) (op Opcode, ok bool) {
	if offset < 0 || offset >= p.length {
		return 0, false
	}
	return Opcode(p.code[offset]), true
}

// Len returns the number of code bytes written.
func (p *Program) Len() int {
	return p.length
}

// Cap returns the fixed capacity in bytes.
func (p *Program) Cap() int {
	return len(p.code)
}

// Free returns the number of bytes still available to the builders.
func (p *Program) Free() int {
	return len(p.code) - p.length
}

// Bytes returns a copy of the written code.
func (p *Program) Bytes() []byte {
	out := make([]byte, p.length)
	copy(out, p.code[:p.length])
	return out
}

// rewind resets the counter so the same code can run again.
func (p *Program) rewind() {
	p.line = 0
	p.exited = false
}

// grow claims n bytes at the end of the code for op.
func (p *Program) grow(op Opcode, n int) ([]byte, error) {
	if p.length+n > len(p.code) {
		return nil, fmt.Errorf("%w: %s needs %d bytes, %d free", ErrProgramFull, op, n, p.Free())
	}
	b := p.code[p.length : p.length+n]
	p.length += n
	return b, nil
}

func appendLiteral[T Scalar](p *Program, op Opcode, v T) error {
	b, err := p.grow(op, 1+sizeOf[T]())
	if err != nil {
		return err
	}
	b[0] = byte(op)
	encode(b[1:], v)
	return nil
}

// PushBool appends PUSH_BOOL.
func (p *Program) PushBool(v bool) error { return appendLiteral(p, OpPushBool, v) }

// PushU8 appends PUSH_U8.
func (p *Program) PushU8(v uint8) error { return appendLiteral(p, OpPushU8, v) }

// PushU16 appends PUSH_U16.
func (p *Program) PushU16(v uint16) error { return appendLiteral(p, OpPushU16, v) }

// PushU32 appends PUSH_U32.
func (p *Program) PushU32(v uint32) error { return appendLiteral(p, OpPushU32, v) }

// PushU64 appends PUSH_U64.
func (p *Program) PushU64(v uint64) error { return appendLiteral(p, OpPushU64, v) }

// PushS8 appends PUSH_S8.
func (p *Program) PushS8(v int8) error { return appendLiteral(p, OpPushS8, v) }

// PushS16 appends PUSH_S16.
func (p *Program) PushS16(v int16) error { return appendLiteral(p, OpPushS16, v) }

// PushS32 appends PUSH_S32.
func (p *Program) PushS32(v int32) error { return appendLiteral(p, OpPushS32, v) }

// PushS64 appends PUSH_S64.
func (p *Program) PushS64(v int64) error { return appendLiteral(p, OpPushS64, v) }

// PushF32 appends PUSH_F32.
func (p *Program) PushF32(v float32) error { return appendLiteral(p, OpPushF32, v) }

// PushF64 appends PUSH_F64.
func (p *Program) PushF64(v float64) error { return appendLiteral(p, OpPushF64, v) }

// Push appends a single-byte instruction (NOP, BW_AND_Xn, LOGIC_*, EXIT).
func (p *Program) Push(op Opcode) error {
	info, ok := LookupOpcode(op)
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidOpcode, byte(op))
	}
	if info.Typed {
		return fmt.Errorf("%s requires a type operand", op)
	}
	if info.OperandLen > 0 {
		return fmt.Errorf("%s takes %d operand bytes, use its dedicated builder", op, info.OperandLen)
	}
	b, err := p.grow(op, 1)
	if err != nil {
		return err
	}
	b[0] = byte(op)
	return nil
}

// PushTyped appends a generic opcode followed by its Type byte
// (ADD, SUB, MUL, CMP_EQ). Whether the operator supports t is checked at
// execution time.
func (p *Program) PushTyped(op Opcode, t Type) error {
	info, ok := LookupOpcode(op)
	if !ok {
		return fmt.Errorf("%w: 0x%02X", ErrInvalidOpcode, byte(op))
	}
	if !info.Typed || info.OperandLen != 1 {
		return fmt.Errorf("%s does not take a lone type operand", op)
	}
	if !t.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	b, err := p.grow(op, 2)
	if err != nil {
		return err
	}
	b[0] = byte(op)
	b[1] = byte(t)
	return nil
}

// PushJump appends JMP with an absolute target offset.
func (p *Program) PushJump(target uint16) error {
	b, err := p.grow(OpJump, 1+JumpOperandLen)
	if err != nil {
		return err
	}
	b[0] = byte(OpJump)
	byteOrder.PutUint16(b[1:], target)
	return nil
}

// PushMemLoad appends MEM_LOAD for a value of type t at addr.
func (p *Program) PushMemLoad(t Type, addr uint16) error {
	return p.pushMemory(OpMemLoad, t, addr)
}

// PushMemStore appends MEM_STORE for a value of type t at addr.
func (p *Program) PushMemStore(t Type, addr uint16) error {
	return p.pushMemory(OpMemStore, t, addr)
}

func (p *Program) pushMemory(op Opcode, t Type, addr uint16) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	b, err := p.grow(op, 4)
	if err != nil {
		return err
	}
	b[0] = byte(op)
	b[1] = byte(t)
	byteOrder.PutUint16(b[2:], addr)
	return nil
}
