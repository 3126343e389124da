package trace

import (
	"sync/atomic"
	"time"

	"github.com/chazu/plcvm/pkg/bytecode"
)

// Profile accumulates execution statistics across runs. It is safe for
// concurrent use, so several traced engines may share one Profile.
type Profile struct {
	steps   atomic.Uint64
	faults  atomic.Uint64
	exits   atomic.Uint64
	elapsed atomic.Int64 // Nanoseconds spent inside Step
	opcodes [256]atomic.Uint64

	// HotThreshold, when non-zero, fires OnHot the first time an opcode's
	// execution count reaches it.
	HotThreshold uint64
	OnHot        func(op bytecode.Opcode, count uint64)
}

// NewProfile creates an empty profile.
func NewProfile() *Profile {
	return &Profile{}
}

// Record adds one executed step.
func (p *Profile) Record(op bytecode.Opcode, st bytecode.Status, elapsed time.Duration) {
	p.steps.Add(1)
	p.elapsed.Add(int64(elapsed))
	switch {
	case st.IsFault():
		p.faults.Add(1)
	case st == bytecode.StatusExited:
		p.exits.Add(1)
	}

	count := p.opcodes[op].Add(1)
	if p.HotThreshold != 0 && count == p.HotThreshold && p.OnHot != nil {
		p.OnHot(op, count)
	}
}

// Count returns how many times op was executed.
func (p *Profile) Count(op bytecode.Opcode) uint64 {
	return p.opcodes[op].Load()
}

// ProfileStats holds aggregate profiling statistics.
type ProfileStats struct {
	Steps   uint64        // Steps recorded
	Faults  uint64        // Steps that faulted
	Exits   uint64        // Steps that executed EXIT
	Elapsed time.Duration // Total time inside Step
}

// Stats returns aggregate profiling statistics.
func (p *Profile) Stats() ProfileStats {
	return ProfileStats{
		Steps:   p.steps.Load(),
		Faults:  p.faults.Load(),
		Exits:   p.exits.Load(),
		Elapsed: time.Duration(p.elapsed.Load()),
	}
}

// OpcodeCount pairs an opcode with its execution count.
type OpcodeCount struct {
	Op    bytecode.Opcode
	Count uint64
}

// Top returns the n most frequently executed opcodes, most frequent first.
// Opcodes never executed are omitted.
func (p *Profile) Top(n int) []OpcodeCount {
	var all []OpcodeCount
	for i := range p.opcodes {
		if c := p.opcodes[i].Load(); c > 0 {
			all = append(all, OpcodeCount{bytecode.Opcode(i), c})
		}
	}

	// Selection sort for top N
	for i := 0; i < n && i < len(all); i++ {
		maxIdx := i
		for j := i + 1; j < len(all); j++ {
			if all[j].Count > all[maxIdx].Count {
				maxIdx = j
			}
		}
		all[i], all[maxIdx] = all[maxIdx], all[i]
	}

	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Reset clears all profiling data.
func (p *Profile) Reset() {
	p.steps.Store(0)
	p.faults.Store(0)
	p.exits.Store(0)
	p.elapsed.Store(0)
	for i := range p.opcodes {
		p.opcodes[i].Store(0)
	}
}
