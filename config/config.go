// Package config handles plcvm.toml runtime configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/plcvm/pkg/bytecode"
	"github.com/chazu/plcvm/pkg/scan"
	"github.com/chazu/plcvm/pkg/trace"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "plcvm.toml"

// Config represents a plcvm.toml configuration.
type Config struct {
	Engine  Engine  `toml:"engine"`
	Program Program `toml:"program"`
	Scan    Scan    `toml:"scan"`
	Trace   Trace   `toml:"trace"`

	// Dir is the directory containing the plcvm.toml file (set at load time).
	Dir string `toml:"-"`
}

// Engine sizes the operand stack and the memory region, in bytes.
type Engine struct {
	StackSize  int `toml:"stack-size"`
	MemorySize int `toml:"memory-size"`
}

// Program configures the bytecode buffer.
type Program struct {
	Capacity int `toml:"capacity"`
}

// Scan configures scan-cycle execution.
type Scan struct {
	StepsPerCycle int      `toml:"steps-per-cycle"`
	Period        Duration `toml:"period"`
}

// Trace configures step tracing and logging.
type Trace struct {
	Enabled   bool   `toml:"enabled"`
	Profile   bool   `toml:"profile"`
	Verbosity int    `toml:"verbosity"`
	LogFile   string `toml:"log-file"`
}

// Duration is a time.Duration written as a string such as "10ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Engine: Engine{
			StackSize:  bytecode.DefaultStackSize,
			MemorySize: bytecode.DefaultMemorySize,
		},
		Program: Program{Capacity: bytecode.DefaultProgramCapacity},
		Scan: Scan{
			StepsPerCycle: scan.DefaultStepsPerCycle,
			Period:        Duration{scan.DefaultPeriod},
		},
	}
}

// Parse decodes TOML on top of the defaults and validates the result.
// Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load parses a plcvm.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if c.Trace.LogFile != "" && !filepath.IsAbs(c.Trace.LogFile) {
		c.Trace.LogFile = filepath.Join(c.Dir, c.Trace.LogFile)
	}

	return c, nil
}

// FindAndLoad walks up from startDir to find a plcvm.toml file, then loads
// it. When no file is found the defaults are returned.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks every value and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine.StackSize <= 0 {
		errs = append(errs, fmt.Errorf("engine.stack-size must be positive, got %d", c.Engine.StackSize))
	}
	if c.Engine.MemorySize <= 0 {
		errs = append(errs, fmt.Errorf("engine.memory-size must be positive, got %d", c.Engine.MemorySize))
	}
	if c.Engine.MemorySize > bytecode.MaxProgramCapacity+1 {
		errs = append(errs, fmt.Errorf("engine.memory-size %d is beyond the 16-bit address space", c.Engine.MemorySize))
	}
	if c.Program.Capacity <= 0 || c.Program.Capacity > bytecode.MaxProgramCapacity {
		errs = append(errs, fmt.Errorf("program.capacity must be in 1..%d, got %d", bytecode.MaxProgramCapacity, c.Program.Capacity))
	}
	if c.Scan.StepsPerCycle <= 0 {
		errs = append(errs, fmt.Errorf("scan.steps-per-cycle must be positive, got %d", c.Scan.StepsPerCycle))
	}
	if c.Scan.Period.Duration < 0 {
		errs = append(errs, fmt.Errorf("scan.period must not be negative, got %s", c.Scan.Period))
	}
	return errors.Join(errs...)
}

// NewProgram creates an empty program with the configured capacity.
func (c *Config) NewProgram() *bytecode.Program {
	return bytecode.NewProgram(c.Program.Capacity)
}

// NewEngine creates a bare engine with the configured sizes.
func (c *Config) NewEngine() *bytecode.Engine {
	return bytecode.NewEngine(
		bytecode.WithStackSize(c.Engine.StackSize),
		bytecode.WithMemorySize(c.Engine.MemorySize),
	)
}

// NewStepper returns a tracing engine when trace.enabled is set and a bare
// engine otherwise.
func (c *Config) NewStepper() bytecode.Stepper {
	e := c.NewEngine()
	if !c.Trace.Enabled {
		return e
	}
	var opts []trace.Option
	if c.Trace.Profile {
		opts = append(opts, trace.WithProfile(trace.NewProfile()))
	}
	return trace.New(e, opts...)
}

// NewScanner creates a scanner with the configured budget and period.
func (c *Config) NewScanner(name string, s bytecode.Stepper, p *bytecode.Program) *scan.Scanner {
	return scan.New(s, p,
		scan.WithName(name),
		scan.WithStepsPerCycle(c.Scan.StepsPerCycle),
		scan.WithPeriod(c.Scan.Period.Duration),
	)
}

// ConfigureLogging sets up the commonlog backend from the trace section.
// Logs go to stderr unless trace.log-file is set.
func (c *Config) ConfigureLogging() {
	var path *string
	if c.Trace.LogFile != "" {
		path = &c.Trace.LogFile
	}
	commonlog.Configure(c.Trace.Verbosity, path)
}
