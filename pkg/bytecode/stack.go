package bytecode

// Stack is a bounded LIFO byte buffer. Values carry no type tag; the width
// popped is decided by the instruction doing the popping.
type Stack struct {
	data []byte
	sp   int // Next free byte
}

// NewStack allocates a stack holding up to size bytes.
func NewStack(size int) *Stack {
	return &Stack{data: make([]byte, size)}
}

// Len returns the number of occupied bytes.
func (s *Stack) Len() int {
	return s.sp
}

// Cap returns the capacity in bytes.
func (s *Stack) Cap() int {
	return len(s.data)
}

// Reset empties the stack and zeroes its storage.
func (s *Stack) Reset() {
	clear(s.data)
	s.sp = 0
}

// Bytes returns a copy of the occupied bytes, bottom first.
func (s *Stack) Bytes() []byte {
	out := make([]byte, s.sp)
	copy(out, s.data[:s.sp])
	return out
}

// reserve claims n bytes on top of the stack for writing.
func (s *Stack) reserve(n int) ([]byte, bool) {
	if s.sp+n > len(s.data) {
		return nil, false
	}
	b := s.data[s.sp : s.sp+n]
	s.sp += n
	return b, true
}

// take releases the top n bytes and returns them. The returned slice stays
// valid until the next reserve.
func (s *Stack) take(n int) ([]byte, bool) {
	if n > s.sp {
		return nil, false
	}
	s.sp -= n
	return s.data[s.sp : s.sp+n], true
}

// top returns the top n bytes without releasing them.
func (s *Stack) top(n int) ([]byte, bool) {
	if n > s.sp {
		return nil, false
	}
	return s.data[s.sp-n : s.sp], true
}

// has reports whether at least n bytes are occupied.
func (s *Stack) has(n int) bool {
	return n <= s.sp
}

func pushValue[T Scalar](s *Stack, v T) Status {
	b, ok := s.reserve(sizeOf[T]())
	if !ok {
		return StatusStackOverflow
	}
	encode(b, v)
	return StatusSuccess
}

func popValue[T Scalar](s *Stack) (T, Status) {
	b, ok := s.take(sizeOf[T]())
	if !ok {
		var zero T
		return zero, StatusStackUnderflow
	}
	return decode[T](b), StatusSuccess
}

func peekValue[T Scalar](s *Stack) (T, bool) {
	b, ok := s.top(sizeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return decode[T](b), true
}
