package bytecode

// kernel executes the type-parameterized instructions for one Type. Every
// Type maps to a single generic instantiation, so the operator bodies are
// written once for all eleven types.
type kernel interface {
	arith(s *Stack, op Opcode) Status
	equal(s *Stack) Status
	load(s *Stack, m *Memory, addr int) Status
	store(s *Stack, m *Memory, addr int) Status
}

var kernels = map[Type]kernel{
	TypeBool: scalarKernel[bool]{},
	TypeU8:   numberKernel[uint8]{},
	TypeU16:  numberKernel[uint16]{},
	TypeU32:  numberKernel[uint32]{},
	TypeU64:  numberKernel[uint64]{},
	TypeS8:   numberKernel[int8]{},
	TypeS16:  numberKernel[int16]{},
	TypeS32:  numberKernel[int32]{},
	TypeS64:  numberKernel[int64]{},
	TypeF32:  numberKernel[float32]{},
	TypeF64:  numberKernel[float64]{},
}

// scalarKernel implements the operators valid for every Type.
type scalarKernel[T Scalar] struct{}

func (scalarKernel[T]) arith(*Stack, Opcode) Status {
	return StatusInvalidType
}

func (scalarKernel[T]) equal(s *Stack) Status {
	n := sizeOf[T]()
	if !s.has(2 * n) {
		return StatusStackUnderflow
	}
	b, _ := popValue[T](s)
	a, _ := popValue[T](s)
	return pushValue(s, a == b)
}

func (scalarKernel[T]) load(s *Stack, m *Memory, addr int) Status {
	slot, ok := m.slot(addr, sizeOf[T]())
	if !ok {
		return StatusMemoryOutOfRange
	}
	return pushValue(s, decode[T](slot))
}

func (scalarKernel[T]) store(s *Stack, m *Memory, addr int) Status {
	slot, ok := m.slot(addr, sizeOf[T]())
	if !ok {
		return StatusMemoryOutOfRange
	}
	v, st := popValue[T](s)
	if st != StatusSuccess {
		return st
	}
	encode(slot, v)
	return StatusSuccess
}

// numberKernel adds arithmetic to scalarKernel.
type numberKernel[T Number] struct {
	scalarKernel[T]
}

func (numberKernel[T]) arith(s *Stack, op Opcode) Status {
	var f func(a, b T) T
	switch op {
	case OpAdd:
		f = add[T]
	case OpSub:
		f = sub[T]
	case OpMul:
		f = mul[T]
	default:
		return StatusInvalidOpcode
	}
	return binaryOp(s, f)
}

// Integer results wrap modulo 2^width for signed and unsigned types alike.
func add[T Number](a, b T) T { return a + b }
func sub[T Number](a, b T) T { return a - b }
func mul[T Number](a, b T) T { return a * b }

func and[T Unsigned](a, b T) T { return a & b }

// binaryOp pops the right operand (top of stack) then the left one, and pushes
// f(left, right). The operands are checked before anything is popped.
func binaryOp[T Scalar](s *Stack, f func(a, b T) T) Status {
	if !s.has(2 * sizeOf[T]()) {
		return StatusStackUnderflow
	}
	b, _ := popValue[T](s)
	a, _ := popValue[T](s)
	return pushValue(s, f(a, b))
}

// bitwiseAnd dispatches BW_AND_Xn on the width carried by the opcode.
func bitwiseAnd(s *Stack, width int) Status {
	switch width {
	case 1:
		return binaryOp(s, and[uint8])
	case 2:
		return binaryOp(s, and[uint16])
	case 4:
		return binaryOp(s, and[uint32])
	case 8:
		return binaryOp(s, and[uint64])
	}
	return StatusInvalidOpcode
}

func logicAnd(a, b bool) bool { return a && b }
func logicOr(a, b bool) bool  { return a || b }
