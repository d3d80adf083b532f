package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/marcodamonte/concurrency/readers-writers/driver"
	"github.com/marcodamonte/concurrency/readers-writers/rwlock"
)

// Process exit codes. Every fatal step has its own code.
const (
	exitOK          = 0
	exitReaderSpawn = 1
	exitWriterSpawn = 2
	exitReaderJoin  = 3
	exitWriterJoin  = 4
	exitConfig      = 8
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("readers-writers", flag.ContinueOnError)
	fs.SetOutput(stdout)

	var (
		readers    = fs.Int("readers", 5, "number of reader workers")
		writers    = fs.Int("writers", 5, "number of writer workers")
		iterations = fs.Int("iterations", 10, "critical sections per worker")
		minDelay   = fs.Int("min-delay", 1, "minimum pause before each iteration, in units")
		maxDelay   = fs.Int("max-delay", 5, "maximum pause before each iteration, in units")
		unit       = fs.Duration("unit", time.Second, "length of one delay unit")
		hold       = fs.Duration("hold", time.Second, "time a reader stays in its critical section (negative disables)")
		seed       = fs.Int64("seed", 0, "random seed (0 = time based)")
		verbose    = fs.Bool("v", false, "trace critical-section exits as well as entries")
		quiet      = fs.Bool("quiet", false, "do not print the trace")
		showStats  = fs.Bool("metrics", false, "print lock metrics after the run")
		stall      = fs.Duration("stall", 0, "report parked workers when no critical section is entered for this long (0 disables)")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	logger := log.New(stdout, "", log.LstdFlags|log.Lmicroseconds)

	var tracer driver.Tracer = &driver.LogTracer{Logger: logger, Verbose: *verbose}
	if *quiet {
		tracer = driver.Tracers{}
	}
	registry := metrics.NewRegistry()

	state := rwlock.New('X')
	if *stall > 0 {
		stop := watchStalls(state, registry, *stall, logger)
		defer stop()
	}

	report, err := driver.Run(state, driver.Config{
		Readers:    *readers,
		Writers:    *writers,
		Iterations: *iterations,
		MinDelay:   *minDelay,
		MaxDelay:   *maxDelay,
		DelayUnit:  *unit,
		ReadHold:   *hold,
		Seed:       *seed,
		Logger:     logger,
		Tracer:     tracer,
		Registry:   registry,
	})
	if err != nil {
		logger.Printf("[main] %v", err)
		return exitCode(err)
	}

	logger.Printf("[main] done: reads=%d writes=%d peak_readers=%d mean_write_wait=%s max_write_wait=%s",
		report.Reads, report.Writes, report.PeakReaders,
		report.MeanWriteWait.Round(time.Microsecond), report.MaxWriteWait.Round(time.Microsecond))
	if *showStats {
		fmt.Fprintln(stdout)
		metrics.WriteOnce(registry, stdout)
	}
	return exitOK
}

// exitCode maps a driver error to its process exit code.
func exitCode(err error) int {
	var pe *driver.PhaseError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, driver.ErrInvalidConfig):
		return exitConfig
	case errors.As(err, &pe):
		switch {
		case pe.Op == driver.OpSpawn && pe.Group == driver.Readers:
			return exitReaderSpawn
		case pe.Op == driver.OpSpawn:
			return exitWriterSpawn
		case pe.Group == driver.Readers:
			return exitReaderJoin
		default:
			return exitWriterJoin
		}
	}
	// Run only returns the errors above.
	panic(fmt.Sprintf("unexpected driver error: %v", err))
}
