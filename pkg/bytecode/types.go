package bytecode

import "fmt"

// Type tags the primitive an operand is made of. Generic opcodes (ADD, SUB,
// MUL, CMP_EQ, MEM_LOAD, MEM_STORE) carry one Type byte after the opcode.
type Type byte

const (
	TypeBool Type = 0x01
	TypeU8   Type = 0x02
	TypeU16  Type = 0x03
	TypeU32  Type = 0x04
	TypeU64  Type = 0x05
	TypeS8   Type = 0x06
	TypeS16  Type = 0x07
	TypeS32  Type = 0x08
	TypeS64  Type = 0x09
	TypeF32  Type = 0x0A
	TypeF64  Type = 0x0B
)

// TypeInfo describes the in-memory representation of a Type.
type TypeInfo struct {
	Name   string
	Width  int  // Bytes on the stack and in bytecode
	Signed bool // Two's-complement integer
	Float  bool // IEEE-754
}

var typeInfoTable = map[Type]TypeInfo{
	TypeBool: {"BOOL", 1, false, false},
	TypeU8:   {"U8", 1, false, false},
	TypeU16:  {"U16", 2, false, false},
	TypeU32:  {"U32", 4, false, false},
	TypeU64:  {"U64", 8, false, false},
	TypeS8:   {"S8", 1, true, false},
	TypeS16:  {"S16", 2, true, false},
	TypeS32:  {"S32", 4, true, false},
	TypeS64:  {"S64", 8, true, false},
	TypeF32:  {"F32", 4, true, true},
	TypeF64:  {"F64", 8, true, true},
}

// GetTypeInfo returns the metadata for t and whether t is a known Type.
func GetTypeInfo(t Type) (TypeInfo, bool) {
	info, ok := typeInfoTable[t]
	return info, ok
}

// Valid reports whether t is one of the eleven primitive types.
func (t Type) Valid() bool {
	_, ok := typeInfoTable[t]
	return ok
}

// Width returns the operand size in bytes, or 0 for an unknown Type.
func (t Type) Width() int {
	return typeInfoTable[t].Width
}

// IsNumeric reports whether arithmetic is defined for t.
func (t Type) IsNumeric() bool {
	return t.Valid() && t != TypeBool
}

func (t Type) String() string {
	if info, ok := typeInfoTable[t]; ok {
		return info.Name
	}
	return fmt.Sprintf("TYPE(0x%02X)", byte(t))
}

// AllTypes returns every Type in id order.
func AllTypes() []Type {
	return []Type{
		TypeBool, TypeU8, TypeU16, TypeU32, TypeU64,
		TypeS8, TypeS16, TypeS32, TypeS64, TypeF32, TypeF64,
	}
}
