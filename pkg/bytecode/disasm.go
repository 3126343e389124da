package bytecode

import (
	"fmt"
	"strings"
)

// OpcodeAt returns the name of the opcode byte at offset, or "" when offset
// is outside the written code.
func (p *Program) OpcodeAt(offset int) string {
	op, ok := p.Opcode(offset)
	if !ok {
		return ""
	}
	return op.String()
}

// Disassemble returns a human-readable listing of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; plcvm bytecode v%d\n", ImageVersion))
	sb.WriteString(fmt.Sprintf("; %d/%d bytes\n", p.length, len(p.code)))

	offset := 0
	for offset < p.length {
		line, n := p.DisassembleAt(offset)
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, line))
		offset += n
	}

	return sb.String()
}

// DisassembleAt formats the instruction at offset and returns it with the
// number of bytes it occupies. Unknown opcodes consume a single byte.
func (p *Program) DisassembleAt(offset int) (string, int) {
	op, ok := p.Opcode(offset)
	if !ok {
		return "<end of code>", 0
	}

	info := GetOpcodeInfo(op)
	if !op.Valid() {
		return info.Name, 1
	}

	n := 1 + info.OperandLen
	if offset+n > p.length {
		return fmt.Sprintf("<truncated %s>", info.Name), p.length - offset
	}
	operands := p.code[offset+1 : offset+n]

	switch {
	case info.Literal != 0:
		return fmt.Sprintf("%s %s", info.Name, formatLiteral(info.Literal, operands)), n

	case op == OpMemLoad || op == OpMemStore:
		return fmt.Sprintf("%s %s @0x%04X", info.Name, Type(operands[0]), byteOrder.Uint16(operands[1:])), n

	case info.Typed:
		return fmt.Sprintf("%s %s", info.Name, Type(operands[0])), n

	case op == OpJump:
		return fmt.Sprintf("%s 0x%04X", info.Name, byteOrder.Uint16(operands)), n
	}

	return info.Name, n
}

func formatLiteral(t Type, b []byte) string {
	switch t {
	case TypeBool:
		return fmt.Sprint(b[0] != 0)
	case TypeU8:
		return fmt.Sprint(decode[uint8](b))
	case TypeU16:
		return fmt.Sprint(decode[uint16](b))
	case TypeU32:
		return fmt.Sprint(decode[uint32](b))
	case TypeU64:
		return fmt.Sprint(decode[uint64](b))
	case TypeS8:
		return fmt.Sprint(decode[int8](b))
	case TypeS16:
		return fmt.Sprint(decode[int16](b))
	case TypeS32:
		return fmt.Sprint(decode[int32](b))
	case TypeS64:
		return fmt.Sprint(decode[int64](b))
	case TypeF32:
		return fmt.Sprint(decode[float32](b))
	case TypeF64:
		return fmt.Sprint(decode[float64](b))
	}
	return fmt.Sprintf("% X", b)
}
