// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package kernel

import "time"

// SchedulingVariant selects between the two kernel variants spec §4.4
// describes. In both, the tick handler (and any Pend request) only moves
// tasks onto the ready list and never switches tasks itself. Cooperative
// switches only when the running task yields, sleeps or blocks; Preemptive
// also switches to a just-readied higher-priority task when the running
// task wakes another task through a kernel call or calls Task.CheckPreempt.
type SchedulingVariant uint8

const (
	// SchedulingCooperative never switches tasks from within the tick
	// handler; a reschedule is deferred to the next yield point.
	SchedulingCooperative SchedulingVariant = iota
	// SchedulingPreemptive switches to a just-woken task that outranks the
	// current one at the current task's next preemption point (a kernel
	// call that wakes a task, or Task.CheckPreempt), not from the tick
	// handler or a pend request.
	SchedulingPreemptive
)

func (v SchedulingVariant) String() string {
	if v == SchedulingPreemptive {
		return "preemptive"
	}
	return "cooperative"
}

// ExitPolicy controls what happens when a task's entry function returns
// (spec §6 "task-on-exit-policy").
type ExitPolicy uint8

const (
	// ExitAutoTerminate runs the task's terminal path when its entry
	// function returns: owned mutexes are released, joiners are woken,
	// state becomes Stopped.
	ExitAutoTerminate ExitPolicy = iota
	// ExitLoopForever parks a returning task in an idle spin instead of
	// terminating it, matching targets whose original firmware never
	// expects task functions to return.
	ExitLoopForever
)

// Config is the configuration record of spec §6 / §9. It replaces the
// source's preprocessor-computed, per-target constants with one validated
// Go struct; NewSystem rejects an invalid Config instead of silently
// accepting configuration that would only misbehave once a timer fires or
// a task starves (the "static_assert on clock/prescaler math" design
// note's Go-native equivalent).
type Config struct {
	// TickRate is the frequency, in Hz, of the periodic tick interrupt.
	TickRate int
	// DefaultStackSize is informational on a hosted build (goroutines grow
	// their own stacks) but is validated and surfaced via Task.StackSize
	// for parity with a real port. SizeOf does not include it.
	DefaultStackSize int
	// IdleStackSize is the stack budget reserved for the built-in idle
	// task.
	IdleStackSize int
	// MainPriority is the priority assigned to the implicit task that
	// calls NewSystem.
	MainPriority int
	// Variant selects cooperative or preemptive scheduling.
	Variant SchedulingVariant
	// DefaultMutexType and DefaultMutexProtocol seed Mutex construction
	// when callers use NewMutex's zero-value shorthand.
	DefaultMutexType     MutexType
	DefaultMutexProtocol MutexProtocol
	// SemaphoreMax bounds every semaphore's configurable max unless
	// overridden per-instance.
	SemaphoreMax uint32
	// ExitPolicy controls behavior on task entry-function return.
	ExitPolicy ExitPolicy
	// Hooks holds the optional, weak-symbol-style callbacks spec §9
	// describes (tick hook, assert/fault hook).
	Hooks Hooks
}

// Hooks models the source's weak-symbol overridable callbacks as a plain
// configuration record of optional functions, installed once at
// NewSystem and never reassigned afterward.
type Hooks struct {
	// OnTick is called from tick-handler context (see tick.go) after the
	// tick counter advances and expired delays have been woken. It must
	// not block.
	OnTick func(now uint64)
	// OnFault is called from the abort path (abort.go) before the default
	// behavior (panic) runs. Returning leaves the default behavior intact;
	// a hook that wants to suppress the panic must itself not return
	// (e.g. it halts the core on real hardware).
	OnFault func(f *Fault)
}

func defaultConfig() Config {
	return Config{
		TickRate:             1000,
		DefaultStackSize:     2048,
		IdleStackSize:        256,
		MainPriority:         int(PriorityNormal),
		Variant:              SchedulingCooperative,
		DefaultMutexType:     MutexNormal,
		DefaultMutexProtocol: MutexProtocolNone,
		SemaphoreMax:         1<<32 - 1,
		ExitPolicy:           ExitAutoTerminate,
	}
}

func (c Config) validate() error {
	if c.TickRate <= 0 {
		return WrapError("config.validate", "TickRate", ErrInvalid)
	}
	if c.DefaultStackSize <= 0 || c.IdleStackSize <= 0 {
		return WrapError("config.validate", "StackSize", ErrInvalid)
	}
	if c.SemaphoreMax == 0 {
		return WrapError("config.validate", "SemaphoreMax", ErrInvalid)
	}
	return nil
}

// tickPeriod returns the wall-clock period between tick interrupts implied
// by TickRate, used only by the host tick-ISR simulation (tick.go); a real
// port derives this from a hardware prescaler instead.
func (c Config) tickPeriod() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Option configures a System at construction time, mirroring the teacher's
// functional-option pattern (LoopOption/resolveLoopOptions) one-for-one.
type Option interface {
	apply(*Config) error
}

type optionFunc func(*Config) error

func (f optionFunc) apply(c *Config) error { return f(c) }

// WithTickRate sets the tick ISR frequency in Hz.
func WithTickRate(hz int) Option {
	return optionFunc(func(c *Config) error {
		c.TickRate = hz
		return nil
	})
}

// WithDefaultStackSize sets the default per-task stack reservation reported
// by Task.StackSize. A hosted build does not enforce it.
func WithDefaultStackSize(bytes int) Option {
	return optionFunc(func(c *Config) error {
		c.DefaultStackSize = bytes
		return nil
	})
}

// WithIdleStackSize sets the idle task's stack reservation.
func WithIdleStackSize(bytes int) Option {
	return optionFunc(func(c *Config) error {
		c.IdleStackSize = bytes
		return nil
	})
}

// WithMainPriority sets the priority of the implicit task that calls
// NewSystem.
func WithMainPriority(p int) Option {
	return optionFunc(func(c *Config) error {
		c.MainPriority = p
		return nil
	})
}

// WithSchedulingVariant selects cooperative or preemptive scheduling.
func WithSchedulingVariant(v SchedulingVariant) Option {
	return optionFunc(func(c *Config) error {
		c.Variant = v
		return nil
	})
}

// WithDefaultMutexFlags sets the type/protocol flags NewMutex's shorthand
// constructor applies when the caller doesn't pass explicit flags.
func WithDefaultMutexFlags(t MutexType, p MutexProtocol) Option {
	return optionFunc(func(c *Config) error {
		c.DefaultMutexType = t
		c.DefaultMutexProtocol = p
		return nil
	})
}

// WithSemaphoreMax sets the platform-wide semaphore count ceiling.
func WithSemaphoreMax(max uint32) Option {
	return optionFunc(func(c *Config) error {
		c.SemaphoreMax = max
		return nil
	})
}

// WithExitPolicy controls behavior when a task entry function returns.
func WithExitPolicy(p ExitPolicy) Option {
	return optionFunc(func(c *Config) error {
		c.ExitPolicy = p
		return nil
	})
}

// WithHooks installs the tick/fault callback hooks.
func WithHooks(h Hooks) Option {
	return optionFunc(func(c *Config) error {
		c.Hooks = h
		return nil
	})
}

// resolveConfig applies Options over the package default, validating the
// result the way the source's static_assert would at compile time.
func resolveConfig(opts []Option) (Config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(&cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
