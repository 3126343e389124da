package bytecode

import (
	"errors"
	"fmt"
)

// Status is the outcome of one execution step.
type Status uint8

const (
	StatusSuccess Status = iota
	StatusExited
	StatusStackOverflow
	StatusStackUnderflow
	StatusInvalidOpcode
	StatusInvalidType
	StatusJumpOutOfRange
	StatusMemoryOutOfRange
	StatusTruncatedInstruction
)

var statusNames = [...]string{
	StatusSuccess:              "SUCCESS",
	StatusExited:               "PROGRAM_EXITED",
	StatusStackOverflow:        "STACK_OVERFLOW",
	StatusStackUnderflow:       "STACK_UNDERFLOW",
	StatusInvalidOpcode:        "INVALID_OPCODE",
	StatusInvalidType:          "INVALID_TYPE",
	StatusJumpOutOfRange:       "JUMP_OUT_OF_RANGE",
	StatusMemoryOutOfRange:     "MEMORY_OUT_OF_RANGE",
	StatusTruncatedInstruction: "TRUNCATED_INSTRUCTION",
}

// Sentinel errors, one per fault kind.
var (
	ErrStackOverflow        = errors.New("stack overflow")
	ErrStackUnderflow       = errors.New("stack underflow")
	ErrInvalidOpcode        = errors.New("invalid opcode")
	ErrInvalidType          = errors.New("invalid type")
	ErrJumpOutOfRange       = errors.New("jump out of range")
	ErrMemoryOutOfRange     = errors.New("memory out of range")
	ErrTruncatedInstruction = errors.New("truncated instruction")
)

var statusErrors = map[Status]error{
	StatusStackOverflow:        ErrStackOverflow,
	StatusStackUnderflow:       ErrStackUnderflow,
	StatusInvalidOpcode:        ErrInvalidOpcode,
	StatusInvalidType:          ErrInvalidType,
	StatusJumpOutOfRange:       ErrJumpOutOfRange,
	StatusMemoryOutOfRange:     ErrMemoryOutOfRange,
	StatusTruncatedInstruction: ErrTruncatedInstruction,
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("STATUS(%d)", uint8(s))
}

// IsFault reports whether s aborts the current run with an error.
func (s Status) IsFault() bool {
	return s != StatusSuccess && s != StatusExited
}

// IsTerminal reports whether no further steps may run without a Clear.
func (s Status) IsTerminal() bool {
	return s != StatusSuccess
}

// Err returns the sentinel error for a fault, or nil for Success and Exited.
func (s Status) Err() error {
	if !s.IsFault() {
		return nil
	}
	if err, ok := statusErrors[s]; ok {
		return err
	}
	return fmt.Errorf("unknown status %d", uint8(s))
}

// Fault describes a fault with the program counter and opcode it occurred at.
type Fault struct {
	Status Status
	Line   int    // Program counter of the faulting instruction
	Op     Opcode // Opcode byte found at Line
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s at program pointer %d (%s)", f.Status, f.Line, f.Op)
}

// Unwrap returns the sentinel error so errors.Is works against Err* values.
func (f *Fault) Unwrap() error {
	return f.Status.Err()
}

// IsFault checks if an error is a *Fault and returns it.
func IsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
