package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Snapshot is a point-in-time copy of an engine's observable state.
type Snapshot struct {
	Status Status `cbor:"1,keyasint"`
	Line   int    `cbor:"2,keyasint"`
	Stack  []byte `cbor:"3,keyasint"`
	Memory []byte `cbor:"4,keyasint"`
}

var snapshotEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	snapshotEncMode = em
}

// Snapshot copies the engine's status, stack and memory together with the
// program counter of p.
func (e *Engine) Snapshot(p *Program) Snapshot {
	s := Snapshot{
		Status: e.status,
		Stack:  e.stack.Bytes(),
		Memory: e.memory.Bytes(),
	}
	if p != nil {
		s.Line = p.line
	}
	return s
}

// MarshalSnapshot serializes s to canonical CBOR. Equal snapshots always
// encode to equal bytes.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	return snapshotEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a Snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("bytecode: unmarshal snapshot: %w", err)
	}
	return s, nil
}
