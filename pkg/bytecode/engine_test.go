package bytecode

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

const (
	testProgramCapacity = 64
	testStackSize       = 32
	testMemorySize      = 16
)

// testCase is one program run checked against an expected status and the
// value left on top of the stack.
type testCase[T Scalar] struct {
	name       string
	build      func(p *Program) error
	wantStatus Status
	want       T
}

func newFixture() (*Program, *Engine) {
	return NewProgram(testProgramCapacity),
		NewEngine(WithStackSize(testStackSize), WithMemorySize(testMemorySize))
}

func runCase[T Scalar](t *testing.T, tc testCase[T]) {
	t.Helper()
	t.Run(tc.name, func(t *testing.T) {
		p, e := newFixture()
		if err := tc.build(p); err != nil {
			t.Fatalf("build: %v", err)
		}

		got := e.CleanRun(p)
		if got != tc.wantStatus {
			t.Fatalf("status = %s, want %s (err: %v)", got, tc.wantStatus, e.Err())
		}
		if tc.wantStatus.IsFault() {
			return
		}

		v, ok := Read[T](e)
		if !ok {
			t.Fatalf("stack holds %d bytes, too few for the result", e.StackLen())
		}
		if v != tc.want {
			t.Errorf("top of stack = %v, want %v", v, tc.want)
		}
	})
}

// push appends the literal push matching T.
func push[T Scalar](p *Program, v T) error {
	switch x := any(v).(type) {
	case bool:
		return p.PushBool(x)
	case uint8:
		return p.PushU8(x)
	case uint16:
		return p.PushU16(x)
	case uint32:
		return p.PushU32(x)
	case uint64:
		return p.PushU64(x)
	case int8:
		return p.PushS8(x)
	case int16:
		return p.PushS16(x)
	case int32:
		return p.PushS32(x)
	case int64:
		return p.PushS64(x)
	case float32:
		return p.PushF32(x)
	case float64:
		return p.PushF64(x)
	}
	return fmt.Errorf("no literal push for %T", v)
}

// formula builds (a op b) * c followed by EXIT.
func formula[T Number](typ Type, op Opcode, a, b, c, want T) testCase[T] {
	return testCase[T]{
		name: fmt.Sprintf("%s_%s", op, typ),
		build: func(p *Program) error {
			return errors.Join(
				push(p, a),
				push(p, b),
				p.PushTyped(op, typ),
				push(p, c),
				p.PushTyped(OpMul, typ),
				p.Push(OpExit),
			)
		},
		wantStatus: StatusExited,
		want:       want,
	}
}

func binaryCase[T Scalar, R Scalar](name string, a, b T, op Opcode, want R) testCase[R] {
	return testCase[R]{
		name: name,
		build: func(p *Program) error {
			return errors.Join(push(p, a), push(p, b), p.Push(op), p.Push(OpExit))
		},
		wantStatus: StatusExited,
		want:       want,
	}
}

func cmpCase[T Scalar](name string, typ Type, a, b T, want bool) testCase[bool] {
	return testCase[bool]{
		name: name,
		build: func(p *Program) error {
			return errors.Join(push(p, a), push(p, b), p.PushTyped(OpCmpEq, typ), p.Push(OpExit))
		},
		wantStatus: StatusExited,
		want:       want,
	}
}

func TestUnsignedArithmetic(t *testing.T) {
	runCase(t, formula[uint8](TypeU8, OpAdd, 1, 2, 3, 9))
	runCase(t, formula[uint16](TypeU16, OpAdd, 1, 2, 3, 9))
	runCase(t, formula[uint32](TypeU32, OpAdd, 1, 2, 3, 9))
	runCase(t, formula[uint64](TypeU64, OpAdd, 1, 2, 3, 9))
}

func TestSignedArithmetic(t *testing.T) {
	runCase(t, formula[int8](TypeS8, OpSub, 1, 2, 3, -3))
	runCase(t, formula[int16](TypeS16, OpSub, 1, 2, 3, -3))
	runCase(t, formula[int32](TypeS32, OpSub, 1, 2, 3, -3))
	runCase(t, formula[int64](TypeS64, OpSub, 1, 2, 3, -3))
}

func TestFloatArithmetic(t *testing.T) {
	a32, b32 := float32(0.1), float32(0.2)
	runCase(t, formula(TypeF32, OpAdd, a32, b32, -1, (a32+b32)*-1))

	a64, b64 := 0.1, 0.2
	runCase(t, formula(TypeF64, OpAdd, a64, b64, -1, (a64+b64)*-1))
}

func TestArithmeticWraps(t *testing.T) {
	runCase(t, testCase[uint8]{
		name: "U8 overflow",
		build: func(p *Program) error {
			return errors.Join(p.PushU8(255), p.PushU8(1), p.PushTyped(OpAdd, TypeU8))
		},
		wantStatus: StatusSuccess,
		want:       0,
	})
	runCase(t, testCase[uint16]{
		name: "U16 underflow",
		build: func(p *Program) error {
			return errors.Join(p.PushU16(0), p.PushU16(1), p.PushTyped(OpSub, TypeU16))
		},
		wantStatus: StatusSuccess,
		want:       0xFFFF,
	})
	runCase(t, testCase[int8]{
		name: "S8 overflow",
		build: func(p *Program) error {
			return errors.Join(p.PushS8(127), p.PushS8(1), p.PushTyped(OpAdd, TypeS8))
		},
		wantStatus: StatusSuccess,
		want:       -128,
	})
	runCase(t, testCase[int32]{
		name: "S32 multiply overflow",
		build: func(p *Program) error {
			return errors.Join(p.PushS32(1<<30), p.PushS32(4), p.PushTyped(OpMul, TypeS32))
		},
		wantStatus: StatusSuccess,
		want:       0,
	})
}

func TestSubtractionOperandOrder(t *testing.T) {
	runCase(t, testCase[int64]{
		name: "left minus right",
		build: func(p *Program) error {
			return errors.Join(p.PushS64(10), p.PushS64(3), p.PushTyped(OpSub, TypeS64))
		},
		wantStatus: StatusSuccess,
		want:       7,
	})
}

func TestBitwiseAnd(t *testing.T) {
	runCase(t, binaryCase[uint8, uint8]("X8", 0xF0, 0x3C, OpBwAndX8, 0x30))
	runCase(t, binaryCase[uint16, uint16]("X16", 0x00FF, 0xF00F, OpBwAndX16, 0x000F))
	runCase(t, binaryCase[uint32, uint32]("X32", 0x0F0F0F0F, 0xFFFF0000, OpBwAndX32, 0x0F0F0000))
	runCase(t, binaryCase[uint64, uint64]("X64", 0xFFFFFFFF00000000, 0x123456789ABCDEF0, OpBwAndX64, 0x1234567800000000))
}

func TestBitwiseAndIgnoresSignedness(t *testing.T) {
	runCase(t, binaryCase[int8, int8]("S8 operands", -1, 0x0F, OpBwAndX8, 0x0F))
}

func TestLogic(t *testing.T) {
	for _, a := range []bool{false, true} {
		for _, b := range []bool{false, true} {
			runCase(t, binaryCase(fmt.Sprintf("AND_%v_%v", a, b), a, b, OpLogicAnd, a && b))
			runCase(t, binaryCase(fmt.Sprintf("OR_%v_%v", a, b), a, b, OpLogicOr, a || b))
		}
	}
}

func TestCompareEqual(t *testing.T) {
	runCase(t, cmpCase[float32]("F32 equal", TypeF32, 0.3, 0.3, true))
	runCase(t, cmpCase[float32]("F32 different", TypeF32, 0.29, 0.31, false))
	runCase(t, cmpCase("BOOL equal", TypeBool, true, true, true))
	runCase(t, cmpCase("BOOL different", TypeBool, true, false, false))
	runCase(t, cmpCase[uint64]("U64 equal", TypeU64, 1<<40, 1<<40, true))
	runCase(t, cmpCase[int16]("S16 different", TypeS16, -1, 1, false))
}

func TestJumpSkipsDeadCode(t *testing.T) {
	runCase(t, testCase[uint8]{
		name: "JMP over ADD and MUL",
		build: func(p *Program) error {
			return errors.Join(
				p.PushU8(1),                // 0
				p.PushJump(13),             // 2
				p.PushU8(1),                // 5
				p.PushTyped(OpAdd, TypeU8), // 7
				p.PushU8(3),                // 9
				p.PushTyped(OpMul, TypeU8), // 11
				p.Push(OpExit),             // 13
			)
		},
		wantStatus: StatusExited,
		want:       1,
	})
}

func TestRunOffEndIsSuccess(t *testing.T) {
	runCase(t, testCase[uint32]{
		name: "no EXIT",
		build: func(p *Program) error {
			return p.PushU32(7)
		},
		wantStatus: StatusSuccess,
		want:       7,
	})
}

func TestMemoryStoreLoad(t *testing.T) {
	p, e := newFixture()
	err := errors.Join(
		p.PushU16(0xBEEF),
		p.PushMemStore(TypeU16, 4),
		p.PushMemLoad(TypeU16, 4),
		p.PushMemLoad(TypeU16, 4),
		p.PushTyped(OpCmpEq, TypeU16),
		p.Push(OpExit),
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if st := e.CleanRun(p); st != StatusExited {
		t.Fatalf("status = %s, want %s", st, StatusExited)
	}
	if v, _ := Read[bool](e); !v {
		t.Error("loaded values should compare equal")
	}
	if e.StackLen() != 1 {
		t.Errorf("stack length = %d, want 1", e.StackLen())
	}
	if mem := e.Memory(); !bytes.Equal(mem[4:6], []byte{0xBE, 0xEF}) {
		t.Errorf("memory[4:6] = % X, want BE EF", mem[4:6])
	}
}

func TestWithMemoryUsesCallerBuffer(t *testing.T) {
	buf := make([]byte, 8)
	e := NewEngine(WithMemory(buf))
	p := NewProgram(16)
	if err := errors.Join(p.PushU8(0x2A), p.PushMemStore(TypeU8, 7)); err != nil {
		t.Fatalf("build: %v", err)
	}

	if st := e.CleanRun(p); st != StatusSuccess {
		t.Fatalf("status = %s, want %s", st, StatusSuccess)
	}
	if buf[7] != 0x2A {
		t.Errorf("buf[7] = 0x%02X, want 0x2A", buf[7])
	}

	e.Clear(p)
	if buf[7] != 0 {
		t.Errorf("Clear should zero caller memory, buf[7] = 0x%02X", buf[7])
	}
}

func TestFaults(t *testing.T) {
	tests := []struct {
		name         string
		stackSize    int
		build        func(p *Program) error
		want         Status
		wantLine     int
		wantOp       Opcode
		wantStackLen int
	}{
		{
			name:      "stack overflow",
			stackSize: 2,
			build: func(p *Program) error {
				return errors.Join(p.PushU8(1), p.PushU16(2))
			},
			want: StatusStackOverflow, wantLine: 2, wantOp: OpPushU16, wantStackLen: 1,
		},
		{
			name:      "stack overflow on load",
			stackSize: 1,
			build: func(p *Program) error {
				return errors.Join(p.PushU8(1), p.PushMemLoad(TypeU8, 0))
			},
			want: StatusStackOverflow, wantLine: 2, wantOp: OpMemLoad, wantStackLen: 1,
		},
		{
			name: "stack underflow",
			build: func(p *Program) error {
				return errors.Join(p.PushU8(1), p.PushTyped(OpAdd, TypeU8))
			},
			want: StatusStackUnderflow, wantLine: 2, wantOp: OpAdd, wantStackLen: 1,
		},
		{
			name: "underflow on wider type",
			build: func(p *Program) error {
				return errors.Join(p.PushU32(1), p.PushU16(1), p.PushTyped(OpCmpEq, TypeU32))
			},
			want: StatusStackUnderflow, wantLine: 8, wantOp: OpCmpEq, wantStackLen: 6,
		},
		{
			name: "logic underflow",
			build: func(p *Program) error {
				return errors.Join(p.PushBool(true), p.Push(OpLogicOr))
			},
			want: StatusStackUnderflow, wantLine: 2, wantOp: OpLogicOr, wantStackLen: 1,
		},
		{
			name: "invalid opcode",
			build: func(p *Program) error {
				return p.Load([]byte{0x02, 0x01, 0x7E})
			},
			want: StatusInvalidOpcode, wantLine: 2, wantOp: Opcode(0x7E), wantStackLen: 1,
		},
		{
			name: "unknown type byte",
			build: func(p *Program) error {
				return p.Load([]byte{0x02, 0x01, 0x02, 0x02, 0x20, 0x0C})
			},
			want: StatusInvalidType, wantLine: 4, wantOp: OpAdd, wantStackLen: 2,
		},
		{
			name: "arithmetic on BOOL",
			build: func(p *Program) error {
				return errors.Join(p.PushBool(true), p.PushBool(true), p.PushTyped(OpAdd, TypeBool))
			},
			want: StatusInvalidType, wantLine: 4, wantOp: OpAdd, wantStackLen: 2,
		},
		{
			name: "jump out of range",
			build: func(p *Program) error {
				return errors.Join(p.PushJump(100), p.Push(OpExit))
			},
			want: StatusJumpOutOfRange, wantLine: 0, wantOp: OpJump,
		},
		{
			name: "jump to length",
			build: func(p *Program) error {
				return errors.Join(p.Push(OpNop), p.PushJump(4))
			},
			want: StatusJumpOutOfRange, wantLine: 1, wantOp: OpJump,
		},
		{
			name: "store past memory end",
			build: func(p *Program) error {
				return errors.Join(p.PushU32(1), p.PushMemStore(TypeU32, testMemorySize-2))
			},
			want: StatusMemoryOutOfRange, wantLine: 5, wantOp: OpMemStore, wantStackLen: 4,
		},
		{
			name: "load past memory end",
			build: func(p *Program) error {
				return p.PushMemLoad(TypeU8, testMemorySize)
			},
			want: StatusMemoryOutOfRange, wantLine: 0, wantOp: OpMemLoad,
		},
		{
			name: "truncated literal",
			build: func(p *Program) error {
				return p.Load([]byte{0x03, 0x00})
			},
			want: StatusTruncatedInstruction, wantLine: 0, wantOp: OpPushU16,
		},
		{
			name: "truncated type operand",
			build: func(p *Program) error {
				return p.Load([]byte{0x02, 0x01, 0x02, 0x01, 0x20})
			},
			want: StatusTruncatedInstruction, wantLine: 4, wantOp: OpAdd, wantStackLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stackSize := tt.stackSize
			if stackSize == 0 {
				stackSize = testStackSize
			}
			p := NewProgram(testProgramCapacity)
			e := NewEngine(WithStackSize(stackSize), WithMemorySize(testMemorySize))
			if err := tt.build(p); err != nil {
				t.Fatalf("build: %v", err)
			}

			got := e.CleanRun(p)
			if got != tt.want {
				t.Fatalf("status = %s, want %s", got, tt.want)
			}
			if p.Line() != tt.wantLine {
				t.Errorf("line = %d, want %d", p.Line(), tt.wantLine)
			}
			if e.StackLen() != tt.wantStackLen {
				t.Errorf("stack length = %d, want %d", e.StackLen(), tt.wantStackLen)
			}

			f, ok := IsFault(e.Err())
			if !ok {
				t.Fatalf("Err() = %v, want *Fault", e.Err())
			}
			if f.Line != tt.wantLine || f.Op != tt.wantOp {
				t.Errorf("fault = %+v, want line %d op %s", f, tt.wantLine, tt.wantOp)
			}
			if !errors.Is(e.Err(), tt.want.Err()) {
				t.Errorf("errors.Is(%v, %v) = false", e.Err(), tt.want.Err())
			}

			// Faults stick until Clear.
			if again := e.Step(p); again != tt.want {
				t.Errorf("second step = %s, want %s", again, tt.want)
			}
			if p.Line() != tt.wantLine {
				t.Errorf("line moved to %d after sticky step", p.Line())
			}
		})
	}
}

func TestStepAdvancesByInstructionLength(t *testing.T) {
	p, e := newFixture()
	if err := errors.Join(p.PushU16(1), p.PushF64(2), p.PushMemLoad(TypeU8, 0)); err != nil {
		t.Fatalf("build: %v", err)
	}
	e.Clear(p)

	wantLines := []int{3, 12, 16}
	for i, want := range wantLines {
		if st := e.Step(p); st != StatusSuccess {
			t.Fatalf("step %d: status = %s", i, st)
		}
		if p.Line() != want {
			t.Errorf("step %d: line = %d, want %d", i, p.Line(), want)
		}
	}
	if !p.Finished() {
		t.Error("program should be finished")
	}
	if st := e.Step(p); st != StatusExited {
		t.Errorf("step past end = %s, want %s", st, StatusExited)
	}
}

func TestStepAfterExit(t *testing.T) {
	p, e := newFixture()
	if err := errors.Join(p.Push(OpExit), p.PushU8(1)); err != nil {
		t.Fatalf("build: %v", err)
	}
	e.Clear(p)

	if st := e.Step(p); st != StatusExited {
		t.Fatalf("status = %s, want %s", st, StatusExited)
	}
	if p.Line() != 0 {
		t.Errorf("EXIT moved the counter to %d", p.Line())
	}
	if !p.Finished() {
		t.Error("program should be finished after EXIT")
	}
	if st := e.Step(p); st != StatusExited {
		t.Errorf("step after EXIT = %s, want %s", st, StatusExited)
	}
	if e.StackLen() != 0 {
		t.Errorf("instructions after EXIT ran, stack length %d", e.StackLen())
	}
	if e.Err() != nil {
		t.Errorf("Err() = %v, want nil after EXIT", e.Err())
	}
}

func TestEmptyProgram(t *testing.T) {
	p, e := newFixture()
	if st := e.CleanRun(p); st != StatusSuccess {
		t.Errorf("CleanRun = %s, want %s", st, StatusSuccess)
	}
	if st := e.Step(p); st != StatusExited {
		t.Errorf("Step = %s, want %s", st, StatusExited)
	}
}

func TestClear(t *testing.T) {
	p, e := newFixture()
	err := errors.Join(
		p.PushU8(9),
		p.PushMemStore(TypeU8, 0),
		p.PushU8(1),
		p.PushTyped(OpAdd, TypeU8),
	)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if st := e.CleanRun(p); st != StatusStackUnderflow {
		t.Fatalf("status = %s, want %s", st, StatusStackUnderflow)
	}

	e.Clear(p)
	if e.Status() != StatusSuccess {
		t.Errorf("status after Clear = %s", e.Status())
	}
	if e.Err() != nil {
		t.Errorf("Err() after Clear = %v", e.Err())
	}
	if p.Line() != 0 || p.Finished() {
		t.Errorf("program not rewound: line %d finished %v", p.Line(), p.Finished())
	}
	if e.StackLen() != 0 {
		t.Errorf("stack length after Clear = %d", e.StackLen())
	}
	if !bytes.Equal(e.Memory(), make([]byte, testMemorySize)) {
		t.Errorf("memory after Clear = % X", e.Memory())
	}
	if p.Len() != 10 {
		t.Errorf("Clear changed the code length to %d", p.Len())
	}
}

func TestEraseRebuildIsDeterministic(t *testing.T) {
	build := func(p *Program) error {
		return errors.Join(
			p.PushS32(-7),
			p.PushMemStore(TypeS32, 8),
			p.PushF64(1.25),
			p.PushF64(4),
			p.PushTyped(OpMul, TypeF64),
			p.PushMemLoad(TypeS32, 8),
			p.Push(OpExit),
		)
	}
	other := func(p *Program) error {
		return errors.Join(p.PushU64(99), p.PushMemStore(TypeU64, 0), p.PushBool(true))
	}

	p, e := newFixture()
	run := func(b func(p *Program) error) []byte {
		t.Helper()
		p.Erase()
		if err := b(p); err != nil {
			t.Fatalf("build: %v", err)
		}
		e.CleanRun(p)
		data, err := MarshalSnapshot(e.Snapshot(p))
		if err != nil {
			t.Fatalf("MarshalSnapshot: %v", err)
		}
		return data
	}

	first := run(build)
	run(other)
	second := run(build)

	if !bytes.Equal(first, second) {
		t.Errorf("snapshots differ:\n%X\n%X", first, second)
	}

	fresh, fe := newFixture()
	if err := build(fresh); err != nil {
		t.Fatalf("build: %v", err)
	}
	fe.CleanRun(fresh)
	third, _ := MarshalSnapshot(fe.Snapshot(fresh))
	if !bytes.Equal(first, third) {
		t.Error("reused fixture differs from a fresh one")
	}
}

func TestReadDoesNotPop(t *testing.T) {
	p, e := newFixture()
	if err := p.PushU16(0x1234); err != nil {
		t.Fatalf("build: %v", err)
	}
	e.CleanRun(p)

	for i := 0; i < 2; i++ {
		v, ok := Read[uint16](e)
		if !ok || v != 0x1234 {
			t.Errorf("Read = %#x, %v", v, ok)
		}
	}
	if v, _ := Read[uint8](e); v != 0x34 {
		t.Errorf("Read[uint8] = %#x, want 0x34", v)
	}
	if _, ok := Read[uint32](e); ok {
		t.Error("Read[uint32] on a 2 byte stack should fail")
	}
}

func TestPushBoolNormalizes(t *testing.T) {
	p, e := newFixture()
	if err := p.Load([]byte{byte(OpPushBool), 0x7F}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e.CleanRun(p)
	if got := e.StackBytes(); !bytes.Equal(got, []byte{1}) {
		t.Errorf("stack = % X, want 01", got)
	}
}
