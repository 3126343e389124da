// Package bytecode implements a small typed stack machine for PLC-style
// control programs.
//
// A Program is a fixed-capacity byte buffer filled through typed builder
// methods (PushU8, PushTyped, PushJump, ...). An Engine executes it one
// instruction per Step, against a byte-addressed operand stack and a
// fixed-size memory region. Neither the stack nor the memory carries type
// tags: every generic opcode (ADD, SUB, MUL, CMP_EQ, MEM_LOAD, MEM_STORE) is
// followed by a Type byte that decides how many bytes are popped and how
// they are interpreted.
//
// # Encoding
//
// Every instruction is one opcode byte followed by zero or more operand
// bytes:
//
//	PUSH_<T> <value>          literal, width of T
//	ADD|SUB|MUL|CMP_EQ <type>
//	MEM_LOAD|MEM_STORE <type> <addr:2>
//	BW_AND_X8..X64, LOGIC_AND, LOGIC_OR, NOP, EXIT
//	JMP <target:2>            absolute offset
//
// Multi-byte literals, addresses and jump targets are big-endian, and so are
// values on the stack and in memory.
//
// # Execution
//
// Step returns a Status. Success and Exited are normal outcomes; every other
// Status is a fault that leaves the program counter on the faulting
// instruction and the stack as it was before the instruction. A terminal
// status sticks until Clear. Integer arithmetic wraps; float arithmetic
// follows IEEE-754.
//
// The Stepper interface lets callers swap the bare Engine for wrappers that
// trace each step (see package trace) without changing the run loop.
package bytecode
