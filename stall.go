package main

import (
	"log"
	"runtime"
	"strings"
	"time"

	metrics "github.com/rcrowley/go-metrics"

	"github.com/marcodamonte/concurrency/readers-writers/driver"
	"github.com/marcodamonte/concurrency/readers-writers/rwlock"
)

// watchStalls logs the lock counters and every parked goroutine whenever a
// whole interval passes without a critical section being entered. It only
// reports; the run is never interrupted. stop waits for the watcher to exit.
func watchStalls(st *rwlock.State, reg metrics.Registry, every time.Duration, logger *log.Logger) (stop func()) {
	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		last := entries(reg)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			n := entries(reg)
			if n == last {
				logger.Printf("[stall] no critical section entered for %s (%s)", every, st.Snapshot())
				dumpParked(logger)
			}
			last = n
		}
	}()

	return func() {
		close(done)
		<-exited
	}
}

func entries(reg metrics.Registry) int64 {
	var n int64
	for _, name := range []string{driver.MetricReadEntries, driver.MetricWriteEntries} {
		if c, ok := reg.Get(name).(metrics.Counter); ok {
			n += c.Count()
		}
	}
	return n
}

// parkedStates are the goroutine header labels of a goroutine blocked on the
// guard or on one of the condition variables.
var parkedStates = []string{"[sync.Cond.Wait", "[sync.Mutex.Lock", "[semacquire"}

// dumpParked logs each parked goroutine with its top stack frames.
func dumpParked(logger *log.Logger) {
	buf := make([]byte, 256*1024)
	n := runtime.Stack(buf, true)
	raw := strings.TrimSpace(string(buf[:n]))

	for _, block := range strings.Split(raw, "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if !parked(lines[0]) {
			continue
		}

		// Line 0: "goroutine N [state]:", then function/file line pairs.
		logger.Printf("[stall]   %s", lines[0])
		limit := min(len(lines)-1, 6)
		for i := 1; i <= limit; i++ {
			logger.Printf("[stall]     %s", strings.TrimSpace(lines[i]))
		}
		if len(lines)-1 > limit {
			logger.Printf("[stall]     ... (+%d lines)", len(lines)-1-limit)
		}
	}
}

func parked(header string) bool {
	for _, s := range parkedStates {
		if strings.Contains(header, s) {
			return true
		}
	}
	return false
}
