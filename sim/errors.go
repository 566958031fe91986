package sim

import "fmt"

// ConvergencePoint names the rendezvous a work-group failed to complete.
type ConvergencePoint int

const (
	// PointBarrier is a work-group barrier.
	PointBarrier ConvergencePoint = iota
	// PointEventWait is a group-wide wait on asynchronous copy events.
	PointEventWait
)

func (p ConvergencePoint) String() string {
	if p == PointBarrier {
		return "barrier"
	}
	return "event wait"
}

// DivergenceError reports that a strict subset of a work-group reached a
// convergence point while the rest did not. The condition is unrecoverable
// for the group: Run stops immediately and leaves every work-item in the
// state it had when the divergence was detected.
type DivergenceError struct {
	Point    ConvergencePoint
	GroupID  Dim3
	Arrived  int // items that reached the convergence point this round
	Finished int // items finished so far, including this round
	Total    int
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("group %s: %s divergence: %d of %d work-items arrived (%d finished)",
		e.GroupID, e.Point, e.Arrived, e.Total, e.Finished)
}

// InvalidEventError reports a wait registered for an event handle absent from
// the pending registry. This is a contract violation by the instruction
// layer (a wait without a matching copy registration), fatal to the group's
// run, and is never treated as a no-op.
type InvalidEventError struct {
	Event   EventHandle
	GroupID Dim3
}

func (e *InvalidEventError) Error() string {
	return fmt.Sprintf("group %s: wait on unregistered event %d", e.GroupID, e.Event)
}
