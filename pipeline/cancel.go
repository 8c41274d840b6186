package pipeline

import (
	"sync"
	"sync/atomic"
)

// Phase is the run state of the cancellation coordinator.
type Phase int32

const (
	// PhaseRunning is normal operation.
	PhaseRunning Phase = iota
	// PhaseCancelRequested is set by the first interrupt; no new
	// batches are dispatched past this point.
	PhaseCancelRequested
	// PhaseDraining lets in-flight tasks finish; nothing new is pulled.
	PhaseDraining
	// PhaseStopped means the pool has exited; only the final
	// checkpoint and cache flush remain.
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseRunning:
		return "running"
	case PhaseCancelRequested:
		return "cancel-requested"
	case PhaseDraining:
		return "draining"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Coordinator is the process-wide cooperative cancellation token.
// Cancellation is monotonic: once requested it cannot be rescinded
// within the run, and the phase only ever advances.
type Coordinator struct {
	phase     atomic.Int32
	requested atomic.Bool
	done      chan struct{}
	once      sync.Once
}

// NewCoordinator returns a coordinator in PhaseRunning.
func NewCoordinator() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Request records an external interrupt. Safe to call from a signal
// handler goroutine; repeated calls are no-ops.
func (c *Coordinator) Request() {
	c.requested.Store(true)
	c.advance(PhaseCancelRequested)
	c.once.Do(func() { close(c.done) })
}

// Cancelled reports whether cancellation has been requested. The phase
// is no proxy for this: an uninterrupted run also ends in PhaseStopped.
func (c *Coordinator) Cancelled() bool {
	return c.requested.Load()
}

// Done returns a channel closed when cancellation is requested.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Phase returns the current phase.
func (c *Coordinator) Phase() Phase {
	return Phase(c.phase.Load())
}

// MarkDraining and MarkStopped advance the phase machine; both are
// monotonic and never move backwards.
func (c *Coordinator) MarkDraining() { c.advance(PhaseDraining) }
func (c *Coordinator) MarkStopped()  { c.advance(PhaseStopped) }

func (c *Coordinator) advance(target Phase) {
	for {
		cur := c.phase.Load()
		if cur >= int32(target) {
			return
		}
		if c.phase.CompareAndSwap(cur, int32(target)) {
			return
		}
	}
}
