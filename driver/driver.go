// Package driver runs a fixed population of reader and writer workers
// against one rwlock.State and traces every critical section.
//
// Lifecycle:
//
//	st := rwlock.New('X')
//	report, err := driver.Run(st, cfg) // spawn readers, spawn writers,
//	                                   // join readers, join writers
package driver

import (
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/marcodamonte/concurrency/readers-writers/rwlock"
)

// groupLimit caps how many workers of a group may be alive at once. A group
// larger than its limit fails to spawn.
var groupLimit = func(_ Group, n int) int { return n }

type driver struct {
	cfg    Config
	state  *rwlock.State
	probes *probes
	joined []Group
}

// Run spawns cfg.Readers reader workers, then cfg.Writers writer workers, all
// sharing st. It joins every reader before joining any writer and returns
// only once every spawned worker has exited.
//
// A failure to spawn stops further spawning; workers already started are
// still joined before the *PhaseError is returned. A worker that panics makes
// its group's join fail; the other group is still joined.
func Run(st *rwlock.State, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}

	d := &driver{cfg: cfg, state: st, probes: newProbes(cfg.Registry)}
	log := d.cfg.Logger

	log.Printf("[driver] starting %d readers and %d writers, %d iterations each (delay %d..%d x %s, seed %d)",
		cfg.Readers, cfg.Writers, cfg.Iterations, cfg.MinDelay, cfg.MaxDelay, cfg.DelayUnit, cfg.Seed)

	var readers, writers errgroup.Group

	// ── Spawn ────────────────────────────────────────────────────────────────
	if err := d.spawn(&readers, Read, cfg.Readers); err != nil {
		_ = readers.Wait()
		return d.report(), err
	}
	log.Printf("[driver] done spawning reader workers")

	if err := d.spawn(&writers, Write, cfg.Writers); err != nil {
		_ = readers.Wait()
		_ = writers.Wait()
		return d.report(), err
	}
	log.Printf("[driver] done spawning writer workers")

	// ── Join: readers first, then writers ────────────────────────────────────
	var joinErr error
	if err := readers.Wait(); err != nil {
		joinErr = &PhaseError{Group: Readers, Op: OpJoin, Err: err}
		log.Printf("[driver] joining reader workers failed: %v", err)
	} else {
		log.Printf("[driver] done joining reader workers")
	}
	d.joined = append(d.joined, Readers)

	if err := writers.Wait(); err != nil {
		if joinErr == nil {
			joinErr = &PhaseError{Group: Writers, Op: OpJoin, Err: err}
		}
		log.Printf("[driver] joining writer workers failed: %v", err)
	} else {
		log.Printf("[driver] done joining writer workers")
	}
	d.joined = append(d.joined, Writers)

	return d.report(), joinErr
}

func (d *driver) report() Report { return d.probes.report(d.joined) }

// spawn starts n workers of one kind in g.
func (d *driver) spawn(g *errgroup.Group, kind Kind, n int) error {
	limit := groupLimit(kind.group(), n)
	g.SetLimit(limit)
	for i := 1; i <= n; i++ {
		w := d.newWorker(kind, i)
		if !g.TryGo(w.run) {
			return &PhaseError{
				Group: kind.group(),
				Op:    OpSpawn,
				Err:   fmt.Errorf("worker %d of %d: group limit %d reached", i, n, limit),
			}
		}
	}
	return nil
}

// ── Workers ──────────────────────────────────────────────────────────────────

type worker struct {
	d   *driver
	id  WorkerID
	rng *rand.Rand
	op  func(w *worker) // critical section, bound at spawn time
}

func (d *driver) newWorker(kind Kind, n int) *worker {
	op := (*worker).read
	if kind == Write {
		op = (*worker).write
	}
	seed := d.cfg.Seed + int64(kind)*1_000_003 + int64(n)
	return &worker{
		d:   d,
		id:  WorkerID{Kind: kind, N: n},
		rng: rand.New(rand.NewSource(seed)),
		op:  op,
	}
}

// run is the goroutine body of one worker. The worker owns its OS thread for
// its whole life.
func (w *worker) run() (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	w.id.TID = threadID()

	log := w.d.cfg.Logger
	log.Printf("[%s] started", w.id)

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Worker: w.id, Value: r}
			log.Printf("[%s] aborted: %v", w.id, r)
		}
	}()

	repeat(w.d.cfg.Iterations, w.delay, func() { w.op(w) })

	log.Printf("[%s] finished", w.id)
	return nil
}

// repeat runs op n times, sleeping delay() before each run.
func repeat(n int, delay func() time.Duration, op func()) {
	for i := 0; i < n; i++ {
		time.Sleep(delay())
		op()
	}
}

// delay draws a uniform random pause in [MinDelay, MaxDelay] units.
func (w *worker) delay() time.Duration {
	cfg := w.d.cfg
	steps := cfg.MinDelay + w.rng.Intn(cfg.MaxDelay-cfg.MinDelay+1)
	return time.Duration(steps) * cfg.DelayUnit
}

func (w *worker) read() {
	d := w.d
	start := time.Now()
	d.state.Read(func(v byte, readers int) {
		d.probes.enterRead(time.Since(start))
		defer d.probes.exitRead()

		w.trace(Enter, Read, v, readers)
		if d.cfg.Inspect != nil {
			d.cfg.Inspect(w.id, v)
		}
		if d.cfg.ReadHold > 0 {
			time.Sleep(d.cfg.ReadHold)
		}
		w.trace(Exit, Read, v, d.state.Snapshot().Occupancy)
	})
}

func (w *worker) write() {
	d := w.d
	start := time.Now()
	d.state.Write(func(v byte) byte {
		d.probes.enterWrite(time.Since(start))
		defer d.probes.exitWrite()

		w.trace(Enter, Write, v, rwlock.Writer)
		next := d.cfg.Mutate(v)
		w.trace(Exit, Write, next, rwlock.Writer)
		return next
	})
}

func (w *worker) trace(phase Phase, kind Kind, v byte, occupancy int) {
	w.d.cfg.Tracer.Trace(Event{
		Seq:       w.d.probes.seq.Inc(),
		At:        time.Now(),
		Worker:    w.id,
		Kind:      kind,
		Phase:     phase,
		Value:     v,
		Occupancy: occupancy,
	})
}

// NextLetter advances v through 'A'..'Z', wrapping around. Any value outside
// that range restarts at 'A'.
func NextLetter(v byte) byte {
	if v < 'A' || v >= 'Z' {
		return 'A'
	}
	return v + 1
}
