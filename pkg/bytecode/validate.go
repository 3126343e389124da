package bytecode

import "fmt"

// ValidationError reports the first malformed instruction found by Validate.
type ValidationError struct {
	Offset int
	Status Status
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid bytecode at offset %d: %s", e.Offset, e.Status)
	}
	return fmt.Sprintf("invalid bytecode at offset %d: %s: %s", e.Offset, e.Status, e.Detail)
}

// Unwrap returns the sentinel error for the status.
func (e *ValidationError) Unwrap() error {
	return e.Status.Err()
}

// Validate walks the instructions from offset 0 and reports the first one
// that would fault for structural reasons: an unknown opcode, a Type byte
// that is not a primitive type, an instruction cut off by the end of the
// code, or a JMP target outside the code. Stack depth, memory addressing and
// type support of an operator are runtime properties and are not checked.
func (p *Program) Validate() error {
	offset := 0
	for offset < p.length {
		op := Opcode(p.code[offset])
		info, ok := LookupOpcode(op)
		if !ok {
			return &ValidationError{Offset: offset, Status: StatusInvalidOpcode, Detail: op.String()}
		}

		n := 1 + info.OperandLen
		if offset+n > p.length {
			return &ValidationError{Offset: offset, Status: StatusTruncatedInstruction, Detail: info.Name}
		}
		operands := p.code[offset+1 : offset+n]

		if info.Typed {
			if t := Type(operands[0]); !t.Valid() {
				return &ValidationError{Offset: offset, Status: StatusInvalidType, Detail: fmt.Sprintf("%s %s", info.Name, t)}
			}
		}
		if op == OpJump {
			if target := int(byteOrder.Uint16(operands)); target >= p.length {
				return &ValidationError{Offset: offset, Status: StatusJumpOutOfRange, Detail: fmt.Sprintf("target 0x%04X", target)}
			}
		}

		offset += n
	}
	return nil
}
