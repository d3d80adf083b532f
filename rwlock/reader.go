package rwlock

// AcquireRead blocks while a writer occupies the resource, then admits the
// caller as a reader. Other readers and waiting writers never delay it.
//
// It returns the number of readers inside right after admission, the caller
// included.
func (s *State) AcquireRead() int {
	s.guard.Lock()
	for s.occupancy < 0 {
		s.waitingReaders++
		s.readReady.Wait() // releases guard while parked
		s.waitingReaders--
	}
	s.occupancy++
	n := s.occupancy
	s.guard.Unlock()
	return n
}

// ReleaseRead leaves the read critical section. The last reader out wakes one
// writer, but only when no reader is waiting; readers are never signalled
// here because none can be parked while readers hold the resource.
func (s *State) ReleaseRead() {
	s.guard.Lock()
	s.occupancy--
	if s.occupancy == 0 && s.waitingReaders == 0 {
		s.writeReady.Signal()
	}
	s.guard.Unlock()
}

// Read runs fn inside a read critical section with the current value and the
// reader count observed at admission. The section is left even if fn panics.
func (s *State) Read(fn func(v byte, readers int)) {
	n := s.AcquireRead()
	defer s.ReleaseRead()
	fn(s.value, n)
}
