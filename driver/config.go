package driver

import (
	"fmt"
	"log"
	"time"

	metrics "github.com/rcrowley/go-metrics"
)

// Config holds the workload parameters. The zero value of every field except
// the worker counts and Iterations has a usable default.
type Config struct {
	// Readers and Writers are the sizes of the two worker groups.
	Readers int
	Writers int

	// Iterations is how many critical sections each worker performs.
	Iterations int

	// MinDelay and MaxDelay are inclusive bounds, in DelayUnit steps, on the
	// random sleep before every iteration. Both zero means 1..5.
	MinDelay int
	MaxDelay int

	// DelayUnit is the length of one delay step. Defaults to one second.
	DelayUnit time.Duration

	// ReadHold is how long a reader stays inside its critical section so that
	// overlapping readers become visible. Defaults to one second; negative
	// disables the dwell.
	ReadHold time.Duration

	// Mutate computes the value a writer stores. Defaults to NextLetter.
	Mutate func(v byte) byte

	// Inspect, if set, is called by every reader inside its critical section
	// with the value it read.
	Inspect func(id WorkerID, v byte)

	// Seed feeds the per-worker random sources. 0 uses the current time.
	Seed int64

	// Logger receives lifecycle lines. If nil, log.Default() is used.
	Logger *log.Logger

	// Tracer receives one event per critical-section entry and exit.
	// If nil, events go to a LogTracer on Logger.
	Tracer Tracer

	// Registry collects wait timers and entry counters. If nil, a private
	// registry is created.
	Registry metrics.Registry
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.MinDelay == 0 && out.MaxDelay == 0 {
		out.MinDelay, out.MaxDelay = 1, 5
	}
	if out.DelayUnit <= 0 {
		out.DelayUnit = time.Second
	}
	if out.ReadHold == 0 {
		out.ReadHold = time.Second
	}
	if out.ReadHold < 0 {
		out.ReadHold = 0
	}
	if out.Mutate == nil {
		out.Mutate = NextLetter
	}
	if out.Seed == 0 {
		out.Seed = time.Now().UnixNano()
	}
	if out.Logger == nil {
		out.Logger = log.Default()
	}
	if out.Tracer == nil {
		out.Tracer = NewLogTracer(out.Logger)
	}
	if out.Registry == nil {
		out.Registry = metrics.NewRegistry()
	}
	return out
}

// Validate rejects configurations the driver cannot run. It is called by Run
// before any worker is spawned.
func (c Config) Validate() error {
	switch {
	case c.Readers < 0:
		return fmt.Errorf("%w: readers = %d", ErrInvalidConfig, c.Readers)
	case c.Writers < 0:
		return fmt.Errorf("%w: writers = %d", ErrInvalidConfig, c.Writers)
	case c.Readers+c.Writers == 0:
		return fmt.Errorf("%w: no workers", ErrInvalidConfig)
	case c.Iterations < 1:
		return fmt.Errorf("%w: iterations = %d", ErrInvalidConfig, c.Iterations)
	case c.MinDelay < 0:
		return fmt.Errorf("%w: min delay = %d", ErrInvalidConfig, c.MinDelay)
	case c.MaxDelay < c.MinDelay:
		return fmt.Errorf("%w: max delay %d < min delay %d", ErrInvalidConfig, c.MaxDelay, c.MinDelay)
	}
	return nil
}
