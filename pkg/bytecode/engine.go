package bytecode

// Default sizes used when no option overrides them.
const (
	DefaultStackSize  = 64
	DefaultMemorySize = 64
)

// Stepper is the execution-step contract. *Engine is the bare
// implementation; wrappers such as the tracing engine add hooks around it.
type Stepper interface {
	// Step executes exactly one instruction of p.
	Step(p *Program) Status
	// Clear resets stack, memory and status and rewinds p for a new run.
	Clear(p *Program)
	// CleanRun clears, then steps p until it exits, faults or ends.
	CleanRun(p *Program) Status
}

// EngineOption configures an Engine.
type EngineOption func(*engineConfig)

type engineConfig struct {
	stackSize  int
	memorySize int
	memory     []byte
}

// WithStackSize sets the operand stack capacity in bytes.
func WithStackSize(n int) EngineOption {
	return func(c *engineConfig) { c.stackSize = n }
}

// WithMemorySize sets the size of the engine-owned memory region.
func WithMemorySize(n int) EngineOption {
	return func(c *engineConfig) { c.memorySize = n }
}

// WithMemory makes the engine use buf as its memory region instead of
// allocating one. The engine owns buf from then on; Clear zeroes it.
func WithMemory(buf []byte) EngineOption {
	return func(c *engineConfig) { c.memory = buf }
}

// Engine executes bytecode one instruction at a time. The stack and memory
// are allocated once in NewEngine and Step never allocates.
type Engine struct {
	stack  *Stack
	memory *Memory
	status Status
	fault  Fault
}

// NewEngine creates an engine with the given options applied.
func NewEngine(opts ...EngineOption) *Engine {
	cfg := &engineConfig{
		stackSize:  DefaultStackSize,
		memorySize: DefaultMemorySize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	e := &Engine{stack: NewStack(cfg.stackSize)}
	if cfg.memory != nil {
		e.memory = wrapMemory(cfg.memory)
	} else {
		e.memory = NewMemory(cfg.memorySize)
	}
	return e
}

// Clear resets the stack, memory and status, and rewinds p so that its code
// runs again from offset 0. The program's code is left untouched.
func (e *Engine) Clear(p *Program) {
	e.stack.Reset()
	e.memory.Reset()
	e.status = StatusSuccess
	e.fault = Fault{}
	if p != nil {
		p.rewind()
	}
}

// CleanRun clears the engine and runs p to completion.
func (e *Engine) CleanRun(p *Program) Status {
	return Run(e, p)
}

// Run clears s and steps p until EXIT, a fault, or the end of the code.
// It returns Exited, the fault, or Success when the code ran off the end.
func Run(s Stepper, p *Program) Status {
	s.Clear(p)
	for !p.Finished() {
		if st := s.Step(p); st != StatusSuccess {
			return st
		}
	}
	return StatusSuccess
}

// Status returns the status of the last step.
func (e *Engine) Status() Status {
	return e.status
}

// Err returns the last fault, or nil if the run has not faulted.
func (e *Engine) Err() error {
	if !e.status.IsFault() {
		return nil
	}
	f := e.fault
	return &f
}

// StackLen returns the number of occupied stack bytes.
func (e *Engine) StackLen() int {
	return e.stack.Len()
}

// StackBytes returns a copy of the occupied stack, bottom first.
func (e *Engine) StackBytes() []byte {
	return e.stack.Bytes()
}

// Memory returns a copy of the memory region.
func (e *Engine) Memory() []byte {
	return e.memory.Bytes()
}

// Read returns the top of e's stack reinterpreted as T without popping it.
// No type is stored with stack bytes; the caller must ask for the type that
// was pushed last. ok is false when fewer than sizeof(T) bytes are present.
func Read[T Scalar](e *Engine) (v T, ok bool) {
	return peekValue[T](e.stack)
}

// Step decodes and executes the instruction at p.Line(). On success the
// counter moves past the whole instruction (or to the jump target). On a
// fault the counter stays on the faulting instruction, and every later Step
// returns the same status until Clear.
func (e *Engine) Step(p *Program) Status {
	if e.status.IsTerminal() {
		return e.status
	}
	if p.Finished() {
		p.exited = true
		e.status = StatusExited
		return e.status
	}

	pc := p.line
	op := Opcode(p.code[pc])
	info, ok := LookupOpcode(op)
	if !ok {
		return e.fail(StatusInvalidOpcode, pc, op)
	}
	next := pc + 1 + info.OperandLen
	if next > p.length {
		return e.fail(StatusTruncatedInstruction, pc, op)
	}
	operands := p.code[pc+1 : next]

	switch op {
	// ============ Literal pushes ============
	case OpPushBool:
		b, ok := e.stack.reserve(1)
		if !ok {
			return e.fail(StatusStackOverflow, pc, op)
		}
		b[0] = 0
		if operands[0] != 0 {
			b[0] = 1
		}

	case OpPushU8, OpPushU16, OpPushU32, OpPushU64,
		OpPushS8, OpPushS16, OpPushS32, OpPushS64,
		OpPushF32, OpPushF64:
		b, ok := e.stack.reserve(info.Width)
		if !ok {
			return e.fail(StatusStackOverflow, pc, op)
		}
		copy(b, operands)

	// ============ Typed operators ============
	case OpAdd, OpSub, OpMul, OpCmpEq, OpMemLoad, OpMemStore:
		k, ok := kernels[Type(operands[0])]
		if !ok {
			return e.fail(StatusInvalidType, pc, op)
		}
		var st Status
		switch op {
		case OpCmpEq:
			st = k.equal(e.stack)
		case OpMemLoad:
			st = k.load(e.stack, e.memory, int(byteOrder.Uint16(operands[1:])))
		case OpMemStore:
			st = k.store(e.stack, e.memory, int(byteOrder.Uint16(operands[1:])))
		default:
			st = k.arith(e.stack, op)
		}
		if st != StatusSuccess {
			return e.fail(st, pc, op)
		}

	// ============ Bitwise ============
	case OpBwAndX8, OpBwAndX16, OpBwAndX32, OpBwAndX64:
		if st := bitwiseAnd(e.stack, info.Width); st != StatusSuccess {
			return e.fail(st, pc, op)
		}

	// ============ Logic ============
	case OpLogicAnd:
		if st := binaryOp(e.stack, logicAnd); st != StatusSuccess {
			return e.fail(st, pc, op)
		}

	case OpLogicOr:
		if st := binaryOp(e.stack, logicOr); st != StatusSuccess {
			return e.fail(st, pc, op)
		}

	// ============ Control flow ============
	case OpNop:

	case OpJump:
		target := int(byteOrder.Uint16(operands))
		if target >= p.length {
			return e.fail(StatusJumpOutOfRange, pc, op)
		}
		p.line = target
		e.status = StatusSuccess
		return e.status

	case OpExit:
		p.exited = true
		e.status = StatusExited
		return e.status

	default:
		// Defined in the opcode table but not executable.
		return e.fail(StatusInvalidOpcode, pc, op)
	}

	p.line = next
	e.status = StatusSuccess
	return e.status
}

func (e *Engine) fail(st Status, pc int, op Opcode) Status {
	e.status = st
	e.fault = Fault{Status: st, Line: pc, Op: op}
	return st
}
