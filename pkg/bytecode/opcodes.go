package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Literal pushes (0x00-0x0F) - the literal's raw bytes follow the opcode
	// ========================================================================

	OpNop      Opcode = 0x00 // No operation
	OpPushBool Opcode = 0x01 // Push 1-byte boolean: PUSH_BOOL <u8>
	OpPushU8   Opcode = 0x02 // PUSH_U8 <u8>
	OpPushU16  Opcode = 0x03 // PUSH_U16 <u16>
	OpPushU32  Opcode = 0x04 // PUSH_U32 <u32>
	OpPushU64  Opcode = 0x05 // PUSH_U64 <u64>
	OpPushS8   Opcode = 0x06 // PUSH_S8 <i8>
	OpPushS16  Opcode = 0x07 // PUSH_S16 <i16>
	OpPushS32  Opcode = 0x08 // PUSH_S32 <i32>
	OpPushS64  Opcode = 0x09 // PUSH_S64 <i64>
	OpPushF32  Opcode = 0x0A // PUSH_F32 <ieee754 single>
	OpPushF64  Opcode = 0x0B // PUSH_F64 <ieee754 double>

	// ========================================================================
	// Arithmetic (0x20-0x2F) - followed by a Type byte
	// ========================================================================

	OpAdd Opcode = 0x20 // Pop two, push sum
	OpSub Opcode = 0x21 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x22 // Pop two, push product

	// ========================================================================
	// Bitwise (0x30-0x3F) - width is part of the opcode
	// ========================================================================

	OpBwAndX8  Opcode = 0x30
	OpBwAndX16 Opcode = 0x31
	OpBwAndX32 Opcode = 0x32
	OpBwAndX64 Opcode = 0x33

	// ========================================================================
	// Logic (0x40-0x4F) - 1-byte booleans
	// ========================================================================

	OpLogicAnd Opcode = 0x40
	OpLogicOr  Opcode = 0x41

	// ========================================================================
	// Comparison (0x50-0x5F) - followed by a Type byte
	// ========================================================================

	OpCmpEq Opcode = 0x50 // Pop two, push BOOL

	// ========================================================================
	// Memory (0x60-0x6F) - followed by a Type byte and a u16 address
	// ========================================================================

	OpMemLoad  Opcode = 0x60 // Push the value stored at address
	OpMemStore Opcode = 0x61 // Pop a value and store it at address

	// ========================================================================
	// Control flow (0xF0-0xFF)
	// ========================================================================

	OpJump Opcode = 0xF0 // Unconditional jump: JMP <target:u16>, absolute
	OpExit Opcode = 0xFF // Halt the program
)

// JumpOperandLen is the size of a JMP target. It bounds the Program capacity.
const JumpOperandLen = 2

// OpcodeInfo provides metadata about each opcode for decoding and display.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // Operands popped (values, not bytes)
	StackPush  int    // Results pushed
	OperandLen int    // Number of operand bytes following the opcode
	Typed      bool   // First operand byte is a Type
	Literal    Type   // Type pushed by a literal-push opcode, 0 otherwise
	Width      int    // Operand width fixed by the opcode itself, 0 when typed
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpNop: {Name: "NOP"},

	// Literal pushes
	OpPushBool: {Name: "PUSH_BOOL", StackPush: 1, OperandLen: 1, Literal: TypeBool, Width: 1},
	OpPushU8:   {Name: "PUSH_U8", StackPush: 1, OperandLen: 1, Literal: TypeU8, Width: 1},
	OpPushU16:  {Name: "PUSH_U16", StackPush: 1, OperandLen: 2, Literal: TypeU16, Width: 2},
	OpPushU32:  {Name: "PUSH_U32", StackPush: 1, OperandLen: 4, Literal: TypeU32, Width: 4},
	OpPushU64:  {Name: "PUSH_U64", StackPush: 1, OperandLen: 8, Literal: TypeU64, Width: 8},
	OpPushS8:   {Name: "PUSH_S8", StackPush: 1, OperandLen: 1, Literal: TypeS8, Width: 1},
	OpPushS16:  {Name: "PUSH_S16", StackPush: 1, OperandLen: 2, Literal: TypeS16, Width: 2},
	OpPushS32:  {Name: "PUSH_S32", StackPush: 1, OperandLen: 4, Literal: TypeS32, Width: 4},
	OpPushS64:  {Name: "PUSH_S64", StackPush: 1, OperandLen: 8, Literal: TypeS64, Width: 8},
	OpPushF32:  {Name: "PUSH_F32", StackPush: 1, OperandLen: 4, Literal: TypeF32, Width: 4},
	OpPushF64:  {Name: "PUSH_F64", StackPush: 1, OperandLen: 8, Literal: TypeF64, Width: 8},

	// Arithmetic
	OpAdd: {Name: "ADD", StackPop: 2, StackPush: 1, OperandLen: 1, Typed: true},
	OpSub: {Name: "SUB", StackPop: 2, StackPush: 1, OperandLen: 1, Typed: true},
	OpMul: {Name: "MUL", StackPop: 2, StackPush: 1, OperandLen: 1, Typed: true},

	// Bitwise
	OpBwAndX8:  {Name: "BW_AND_X8", StackPop: 2, StackPush: 1, Width: 1},
	OpBwAndX16: {Name: "BW_AND_X16", StackPop: 2, StackPush: 1, Width: 2},
	OpBwAndX32: {Name: "BW_AND_X32", StackPop: 2, StackPush: 1, Width: 4},
	OpBwAndX64: {Name: "BW_AND_X64", StackPop: 2, StackPush: 1, Width: 8},

	// Logic
	OpLogicAnd: {Name: "LOGIC_AND", StackPop: 2, StackPush: 1, Width: 1},
	OpLogicOr:  {Name: "LOGIC_OR", StackPop: 2, StackPush: 1, Width: 1},

	// Comparison
	OpCmpEq: {Name: "CMP_EQ", StackPop: 2, StackPush: 1, OperandLen: 1, Typed: true},

	// Memory
	OpMemLoad:  {Name: "MEM_LOAD", StackPush: 1, OperandLen: 3, Typed: true},
	OpMemStore: {Name: "MEM_STORE", StackPop: 1, OperandLen: 3, Typed: true},

	// Control flow
	OpJump: {Name: "JMP", OperandLen: JumpOperandLen},
	OpExit: {Name: "EXIT"},
}

// pushOpcodes maps a Type to its literal-push opcode.
var pushOpcodes = map[Type]Opcode{
	TypeBool: OpPushBool,
	TypeU8:   OpPushU8,
	TypeU16:  OpPushU16,
	TypeU32:  OpPushU32,
	TypeU64:  OpPushU64,
	TypeS8:   OpPushS8,
	TypeS16:  OpPushS16,
	TypeS32:  OpPushS32,
	TypeS64:  OpPushS64,
	TypeF32:  OpPushF32,
	TypeF64:  OpPushF64,
}

// LookupOpcode returns the metadata for op and whether op is defined.
func LookupOpcode(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	return info, ok
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// PushOpcode returns the literal-push opcode for t.
func PushOpcode(t Type) (Opcode, bool) {
	op, ok := pushOpcodes[t]
	return op, ok
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsTyped returns true if the opcode is followed by a Type byte.
func (op Opcode) IsTyped() bool {
	return GetOpcodeInfo(op).Typed
}

// IsLiteral returns true if this opcode pushes a literal from the bytecode.
func (op Opcode) IsLiteral() bool {
	return op >= OpPushBool && op <= OpPushF64
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op == OpJump
}

// IsBitwise returns true for the width-specific bitwise opcodes.
func (op Opcode) IsBitwise() bool {
	return op >= OpBwAndX8 && op <= OpBwAndX64
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
