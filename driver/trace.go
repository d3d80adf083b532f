package driver

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Kind is the operation a worker performs.
type Kind int

const (
	Read Kind = iota
	Write
)

func (k Kind) String() string {
	if k == Write {
		return "WRITE"
	}
	return "READ"
}

func (k Kind) group() Group {
	if k == Write {
		return Writers
	}
	return Readers
}

// WorkerID identifies one worker for its whole life.
type WorkerID struct {
	Kind Kind
	N    int // 1-based index within its group
	TID  int // OS thread the worker is pinned to
}

func (w WorkerID) String() string {
	name := "reader"
	if w.Kind == Write {
		name = "writer"
	}
	return fmt.Sprintf("%s %d tid=%d", name, w.N, w.TID)
}

// Phase tells whether an event marks entering or leaving a critical section.
type Phase int

const (
	Enter Phase = iota
	Exit
)

func (p Phase) String() string {
	if p == Exit {
		return "exit"
	}
	return "enter"
}

// Event is one line of the critical-section trace. Seq is assigned while the
// worker is inside the critical section, so sorting by Seq gives the real
// order of entries and exits.
type Event struct {
	Seq       uint64
	At        time.Time
	Worker    WorkerID
	Kind      Kind
	Phase     Phase
	Value     byte
	Occupancy int
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] #%d %s %s X=%c occupancy=%d",
		e.Worker, e.Seq, e.Phase, e.Kind, e.Value, e.Occupancy)
}

// Tracer receives critical-section events. Implementations must be safe for
// concurrent use.
type Tracer interface {
	Trace(Event)
}

// LogTracer prints entry events to a logger. Exit events are printed only
// when Verbose is set.
type LogTracer struct {
	Logger  *log.Logger
	Verbose bool
}

// NewLogTracer returns a LogTracer that prints entries only.
func NewLogTracer(l *log.Logger) *LogTracer { return &LogTracer{Logger: l} }

func (t *LogTracer) Trace(e Event) {
	if e.Phase == Exit && !t.Verbose {
		return
	}
	t.Logger.Print(e)
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Trace(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Tracers fans every event out to each tracer in order.
type Tracers []Tracer

func (ts Tracers) Trace(e Event) {
	for _, t := range ts {
		t.Trace(e)
	}
}
