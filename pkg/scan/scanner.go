// Package scan runs bytecode programs the way a PLC does: in fixed scan
// cycles, each limited to a step budget and started by a periodic tick.
package scan

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/plcvm/pkg/bytecode"
)

var log = commonlog.GetLogger("plcvm.scan")

// Defaults used when no option overrides them.
const (
	DefaultStepsPerCycle = 64
	DefaultPeriod        = 10 * time.Millisecond
)

// CycleResult reports one scan cycle.
type CycleResult struct {
	Steps  int             // Steps executed this cycle
	Status bytecode.Status // Status of the last step
	Done   bool            // The run exited, faulted or ran off the end
}

// FaultError is returned by Run when the program faults.
type FaultError struct {
	Scanner string
	Fault   *bytecode.Fault
	// Snapshot is the canonical CBOR encoding of the engine state at the
	// fault, or nil when the stepper cannot produce one.
	Snapshot []byte
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("scanner %s: %v", e.Scanner, e.Fault)
}

func (e *FaultError) Unwrap() error {
	return e.Fault
}

// snapshotter is implemented by steppers that can report their state.
type snapshotter interface {
	Snapshot(p *bytecode.Program) bytecode.Snapshot
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithName labels the scanner in logs and errors.
func WithName(name string) Option {
	return func(s *Scanner) { s.name = name }
}

// WithStepsPerCycle sets the step budget of one cycle.
func WithStepsPerCycle(n int) Option {
	return func(s *Scanner) { s.stepsPerCycle = n }
}

// WithPeriod sets the time between cycle starts. A zero period runs
// cycles back to back.
func WithPeriod(d time.Duration) Option {
	return func(s *Scanner) { s.period = d }
}

// Scanner drives one Stepper over one Program. A Scanner is not safe for
// concurrent use; run several Scanners with RunAll instead.
type Scanner struct {
	name          string
	stepper       bytecode.Stepper
	program       *bytecode.Program
	stepsPerCycle int
	period        time.Duration

	last   bytecode.Status
	cycles atomic.Uint64
}

// New creates a scanner for p.
func New(stepper bytecode.Stepper, p *bytecode.Program, opts ...Option) *Scanner {
	s := &Scanner{
		name:          "main",
		stepper:       stepper,
		program:       p,
		stepsPerCycle: DefaultStepsPerCycle,
		period:        DefaultPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.stepsPerCycle <= 0 {
		s.stepsPerCycle = DefaultStepsPerCycle
	}
	return s
}

// Name returns the scanner label.
func (s *Scanner) Name() string {
	return s.name
}

// Cycles returns the number of cycles run since the last Reset.
func (s *Scanner) Cycles() uint64 {
	return s.cycles.Load()
}

// Reset clears the stepper and rewinds the program.
func (s *Scanner) Reset() {
	s.stepper.Clear(s.program)
	s.last = bytecode.StatusSuccess
	s.cycles.Store(0)
}

// Cycle runs at most the step budget. Once a cycle reports Done, later
// cycles execute nothing and repeat the final status until Reset.
func (s *Scanner) Cycle() CycleResult {
	if s.last.IsTerminal() {
		return CycleResult{Status: s.last, Done: true}
	}

	var res CycleResult
	for res.Steps < s.stepsPerCycle && !s.program.Finished() {
		res.Status = s.stepper.Step(s.program)
		res.Steps++
		if res.Status != bytecode.StatusSuccess {
			break
		}
	}
	res.Done = res.Status != bytecode.StatusSuccess || s.program.Finished()
	if res.Done && res.Status == bytecode.StatusSuccess {
		// Ran off the end of the code.
		s.last = bytecode.StatusExited
	} else {
		s.last = res.Status
	}

	n := s.cycles.Add(1)
	log.Debugf("scanner %s: cycle %d ran %d steps, %s", s.name, n, res.Steps, res.Status)
	return res
}

// Run resets the scanner and runs cycles until the program finishes or ctx
// is cancelled. It returns nil when the program exits or runs off the end,
// a *FaultError on a fault, and ctx.Err() on cancellation.
func (s *Scanner) Run(ctx context.Context) error {
	s.Reset()
	log.Info("scan started", "scanner", s.name, "steps-per-cycle", s.stepsPerCycle, "period", s.period.String())

	var tick <-chan time.Time
	if s.period > 0 {
		ticker := time.NewTicker(s.period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.Cycle()
		if res.Done {
			return s.finish(res)
		}

		if tick == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
		}
	}
}

func (s *Scanner) finish(res CycleResult) error {
	if !res.Status.IsFault() {
		log.Info("scan finished", "scanner", s.name, "cycles", s.Cycles(), "status", res.Status.String())
		return nil
	}

	line := s.program.Line()
	op, _ := s.program.Opcode(line)
	ferr := &FaultError{
		Scanner: s.name,
		Fault:   &bytecode.Fault{Status: res.Status, Line: line, Op: op},
	}
	if sn, ok := s.stepper.(snapshotter); ok {
		data, err := bytecode.MarshalSnapshot(sn.Snapshot(s.program))
		if err != nil {
			log.Warningf("scanner %s: snapshot: %s", s.name, err)
		} else {
			ferr.Snapshot = data
		}
	}

	log.Error("scan faulted", "scanner", s.name, "cycles", s.Cycles(), "fault", ferr.Fault.Error())
	return ferr
}
