// Package trace wraps a bytecode engine with per-step hooks, structured
// logging and profiling. It implements bytecode.Stepper, so run loops accept
// a traced engine wherever they accept a bare one.
package trace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/plcvm/pkg/bytecode"
)

var log = commonlog.GetLogger("plcvm.trace")

// StepEvent describes one executed step.
type StepEvent struct {
	RunID   uuid.UUID
	Line    int             // Program counter before the step
	Op      bytecode.Opcode // Opcode byte at Line
	Status  bytecode.Status
	Elapsed time.Duration
	Stack   []byte // Copy of the stack after the step, bottom first
}

// Hooks are optional callbacks around every step.
type Hooks struct {
	BeforeStep func(runID uuid.UUID, line int, op bytecode.Opcode)
	AfterStep  func(ev StepEvent)
}

// Option configures an Engine.
type Option func(*Engine)

// WithHooks installs step callbacks.
func WithHooks(h Hooks) Option {
	return func(t *Engine) { t.hooks = h }
}

// WithProfile records every step into p.
func WithProfile(p *Profile) Option {
	return func(t *Engine) { t.profile = p }
}

// WithLogger replaces the package logger.
func WithLogger(l commonlog.Logger) Option {
	return func(t *Engine) { t.log = l }
}

// Engine is a tracing bytecode.Stepper.
type Engine struct {
	engine  *bytecode.Engine
	hooks   Hooks
	profile *Profile
	log     commonlog.Logger
	runID   uuid.UUID
}

var _ bytecode.Stepper = (*Engine)(nil)

// New wraps e. Each Clear starts a new run with a fresh run ID.
func New(e *bytecode.Engine, opts ...Option) *Engine {
	t := &Engine{
		engine: e,
		log:    log,
		runID:  uuid.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Engine returns the wrapped engine.
func (t *Engine) Engine() *bytecode.Engine {
	return t.engine
}

// RunID identifies the current run.
func (t *Engine) RunID() uuid.UUID {
	return t.runID
}

// Profile returns the profile steps are recorded into, or nil.
func (t *Engine) Profile() *Profile {
	return t.profile
}

// Snapshot returns the wrapped engine's snapshot.
func (t *Engine) Snapshot(p *bytecode.Program) bytecode.Snapshot {
	return t.engine.Snapshot(p)
}

// Clear resets the wrapped engine and rewinds p under a new run ID.
func (t *Engine) Clear(p *bytecode.Program) {
	t.engine.Clear(p)
	t.runID = uuid.New()
	t.log.Debug("run cleared", "run", t.runID.String())
}

// CleanRun clears and runs p to completion, tracing every step.
func (t *Engine) CleanRun(p *bytecode.Program) bytecode.Status {
	st := bytecode.Run(t, p)
	t.log.Info("run finished", "run", t.runID.String(), "status", st.String(), "line", p.Line())
	return st
}

// Step executes one instruction and reports it. Steps that only repeat a
// terminal status are passed through untraced.
func (t *Engine) Step(p *bytecode.Program) bytecode.Status {
	if t.engine.Status().IsTerminal() {
		return t.engine.Step(p)
	}

	line := p.Line()
	op, ok := p.Opcode(line)
	if !ok {
		return t.engine.Step(p)
	}

	if t.hooks.BeforeStep != nil {
		t.hooks.BeforeStep(t.runID, line, op)
	}

	start := time.Now()
	st := t.engine.Step(p)
	elapsed := time.Since(start)

	if t.profile != nil {
		t.profile.Record(op, st, elapsed)
	}

	ev := StepEvent{
		RunID:   t.runID,
		Line:    line,
		Op:      op,
		Status:  st,
		Elapsed: elapsed,
		Stack:   t.engine.StackBytes(),
	}

	if t.log.AllowLevel(commonlog.Debug) {
		t.log.Debug("step",
			"run", t.runID.String(),
			"line", line,
			"op", op.String(),
			"status", st.String(),
			"elapsed", elapsed.String(),
			"stack", fmt.Sprintf("% X", ev.Stack))
	}
	if st.IsFault() {
		t.log.Errorf("fault at program pointer %d: %s (%s)", line, op, st)
	}

	if t.hooks.AfterStep != nil {
		t.hooks.AfterStep(ev)
	}
	return st
}
