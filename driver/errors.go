package driver

import (
	"errors"
	"fmt"
)

// Group names one of the two worker populations.
type Group string

const (
	Readers Group = "readers"
	Writers Group = "writers"
)

// Op is the lifecycle step of a worker group that failed.
type Op string

const (
	OpSpawn Op = "spawn"
	OpJoin  Op = "join"
)

// PhaseError reports which group failed at which step. It unwraps to ErrSpawn
// or ErrJoin and to the underlying cause.
type PhaseError struct {
	Group Group
	Op    Op
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Group, e.Err)
}

func (e *PhaseError) Unwrap() []error {
	sentinel := ErrSpawn
	if e.Op == OpJoin {
		sentinel = ErrJoin
	}
	return []error{sentinel, e.Err}
}

// PanicError is returned by a worker whose critical section panicked.
type PanicError struct {
	Worker WorkerID
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Worker, e.Value)
}

func (e *PanicError) Unwrap() error { return ErrWorkerPanic }

// Sentinel errors returned by the driver.
var (
	ErrInvalidConfig = errors.New("invalid driver config")
	ErrSpawn         = errors.New("worker spawn failed")
	ErrJoin          = errors.New("worker join failed")
	ErrWorkerPanic   = errors.New("worker panicked")
)
