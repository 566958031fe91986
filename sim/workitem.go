package sim

// ItemState is the execution state a work-item reports to its coordinator.
// READY is the only state in which the coordinator will schedule the item;
// the three others are the suspension points of the convergence protocol.
type ItemState int

const (
	// StateReady means the item can execute instructions.
	StateReady ItemState = iota
	// StateAtBarrier means the item stopped at a work-group barrier.
	StateAtBarrier
	// StateWaitingEvents means the item stopped at a group-wide wait for
	// asynchronous copy events.
	StateWaitingEvents
	// StateFinished means the item completed the kernel. Terminal.
	StateFinished
)

func (s ItemState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAtBarrier:
		return "at-barrier"
	case StateWaitingEvents:
		return "waiting-events"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// WorkItem is one logical thread of execution inside a work-group. The
// coordinator owns the scheduling; an implementation owns its private memory
// and instruction cursor.
//
// Step executes exactly one instruction and returns the resulting state; the
// coordinator calls it in a loop until the item leaves StateReady. The trace
// flag requests per-instruction debug output and carries no semantic weight.
// ClearSyncPoint releases an item parked at a barrier or event wait back to
// StateReady; it must not advance the instruction cursor.
type WorkItem interface {
	State() ItemState
	Step(trace bool) (ItemState, error)
	ClearSyncPoint()
	GlobalID() Dim3
	DumpPrivateMemory() string
}
