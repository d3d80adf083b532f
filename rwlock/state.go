// Package rwlock implements a reader-preference readers/writer lock built
// from one mutex and two condition variables.
//
// A reader only blocks while a writer occupies the resource. A writer needs
// the resource idle and is woken only when no reader is waiting, so a steady
// stream of readers can starve writers.
//
// Usage:
//
//	st := rwlock.New('X')
//
//	n := st.AcquireRead() // n = readers inside, including this one
//	v := st.Value()
//	st.ReleaseRead()
//
//	st.AcquireWrite()
//	st.SetValue(v + 1)
//	st.ReleaseWrite()
package rwlock

import (
	"errors"
	"fmt"
	"sync"
)

// Writer is the occupancy value while a writer holds the resource.
const Writer = -1

// State is the single synchronization point shared by every reader and
// writer. It must not be copied after first use.
type State struct {
	guard sync.Mutex // protects occupancy and waitingReaders

	// readReady wakes readers parked behind an active writer.
	readReady *sync.Cond
	// writeReady wakes writers parked until the resource is idle.
	writeReady *sync.Cond

	// occupancy > 0: readers inside; 0: idle; Writer: one writer inside.
	occupancy      int
	waitingReaders uint

	// value is the protected resource. Written only by the writer holding
	// the resource, read only by readers holding it.
	value byte
}

// New returns an idle State whose shared value starts at initial.
func New(initial byte) *State {
	s := &State{value: initial}
	s.readReady = sync.NewCond(&s.guard)
	s.writeReady = sync.NewCond(&s.guard)
	return s
}

// Snapshot is a consistent copy of the lock counters.
type Snapshot struct {
	Occupancy      int
	WaitingReaders uint
}

// Readers reports how many readers were inside when the snapshot was taken.
func (s Snapshot) Readers() int {
	if s.Occupancy > 0 {
		return s.Occupancy
	}
	return 0
}

// WriterActive reports whether a writer was inside when the snapshot was taken.
func (s Snapshot) WriterActive() bool { return s.Occupancy == Writer }

func (s Snapshot) String() string {
	return fmt.Sprintf("occupancy=%d waiting_readers=%d", s.Occupancy, s.WaitingReaders)
}

// Snapshot takes the guard and copies the counters.
func (s *State) Snapshot() Snapshot {
	s.guard.Lock()
	defer s.guard.Unlock()
	return Snapshot{Occupancy: s.occupancy, WaitingReaders: s.waitingReaders}
}

// Check verifies the lock invariants. The counters are read under the guard,
// so the result is never a torn view.
func (s *State) Check() error {
	snap := s.Snapshot()
	if snap.Occupancy < Writer {
		return fmt.Errorf("%w: %s", ErrInvariant, snap)
	}
	return nil
}

// Value returns the shared value. Call it only between AcquireRead and
// ReleaseRead, or between AcquireWrite and ReleaseWrite.
func (s *State) Value() byte { return s.value }

// SetValue replaces the shared value. Call it only between AcquireWrite and
// ReleaseWrite.
func (s *State) SetValue(b byte) { s.value = b }

// ErrInvariant is returned by Check when the counters hold an impossible value.
var ErrInvariant = errors.New("rwlock invariant violated")
