package bytecode

// Memory is a fixed-size addressable byte array that persists across steps
// within one run.
type Memory struct {
	data []byte
}

// NewMemory allocates size bytes of zeroed memory.
func NewMemory(size int) *Memory {
	return &Memory{data: make([]byte, size)}
}

// wrapMemory uses buf as backing storage without copying it.
func wrapMemory(buf []byte) *Memory {
	return &Memory{data: buf}
}

// Len returns the size of the memory in bytes.
func (m *Memory) Len() int {
	return len(m.data)
}

// Reset zeroes every byte.
func (m *Memory) Reset() {
	clear(m.data)
}

// Bytes returns a copy of the whole memory.
func (m *Memory) Bytes() []byte {
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// slot returns the n bytes at addr, or false when they do not fit.
func (m *Memory) slot(addr, n int) ([]byte, bool) {
	if addr < 0 || addr+n > len(m.data) {
		return nil, false
	}
	return m.data[addr : addr+n], true
}
