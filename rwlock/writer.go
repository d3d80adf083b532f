package rwlock

// AcquireWrite blocks until the resource is idle, then takes it exclusively.
func (s *State) AcquireWrite() {
	s.guard.Lock()
	for s.occupancy != 0 {
		s.writeReady.Wait()
	}
	s.occupancy = Writer
	s.guard.Unlock()
}

// ReleaseWrite leaves the write critical section, wakes every parked reader
// and, if no reader was waiting, one parked writer.
//
// Hazard: readersPending is sampled under the guard but acted on after the
// guard is dropped. A reader may start waiting, or a woken reader may already
// have left the wait loop, between the Unlock and the Signal below, so the
// decision to wake a writer can be made on a stale count. Occupancy cannot be
// corrupted because every acquire re-checks its predicate under the guard,
// but a writer wakeup can be missed or delayed until the next release.
func (s *State) ReleaseWrite() {
	s.guard.Lock()
	s.occupancy = 0
	readersPending := s.waitingReaders != 0
	s.guard.Unlock()

	s.readReady.Broadcast()
	if !readersPending {
		s.writeReady.Signal()
	}
}

// Write runs fn inside a write critical section and stores its result as the
// new value. The section is left even if fn panics.
func (s *State) Write(fn func(v byte) byte) {
	s.AcquireWrite()
	defer s.ReleaseWrite()
	s.value = fn(s.value)
}
