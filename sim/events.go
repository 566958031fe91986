// Implements the pending-event registry for group-wide asynchronous copies.
// Every work-item of a converged group issues logically the same copy
// instruction, so registration deduplicates by structural equality and the
// whole group ends up sharing one event handle per transfer.

package sim

import "sort"

// EventHandle identifies a pending group copy event. Handles are minted per
// work-group, start at 1 and increase monotonically; 0 is never issued and is
// free for instruction encodings to mean "no event".
type EventHandle uint64

// CopyKind is the direction of an asynchronous group copy.
type CopyKind int

const (
	// CopyGlobalToLocal reads from global memory and writes to the group's
	// local memory.
	CopyGlobalToLocal CopyKind = iota
	// CopyLocalToGlobal reads from the group's local memory and writes to
	// global memory.
	CopyLocalToGlobal
)

func (k CopyKind) String() string {
	if k == CopyGlobalToLocal {
		return "global-to-local"
	}
	return "local-to-global"
}

// AsyncCopy describes one flat contiguous group transfer. Two descriptors
// issued by different work-items denote the same transfer iff they are
// structurally equal, which is why the struct is comparable with ==.
// Instruction is the identity of the originating kernel instruction.
type AsyncCopy struct {
	Instruction uint64
	Kind        CopyKind
	Dest        uint64
	Src         uint64
	Size        uint64
}

// eventRegistry maps event handles to the copies registered under them. A
// handle is present iff at least one descriptor was registered and the handle
// has not yet been drained by a completed group-wide wait.
type eventRegistry struct {
	pending map[EventHandle][]AsyncCopy
	next    EventHandle
}

func newEventRegistry() *eventRegistry {
	return &eventRegistry{
		pending: make(map[EventHandle][]AsyncCopy),
		next:    1,
	}
}

// register returns the handle tracking the copy. If a structurally equal
// descriptor is already pending under any handle, that handle is returned and
// nothing is recorded; otherwise a fresh handle is minted and the descriptor
// appended under it.
func (r *eventRegistry) register(c AsyncCopy) EventHandle {
	for _, h := range r.handles() {
		for _, pending := range r.pending[h] {
			if pending == c {
				return h
			}
		}
	}

	h := r.next
	r.next++
	r.pending[h] = append(r.pending[h], c)
	return h
}

// contains reports whether h is pending.
func (r *eventRegistry) contains(h EventHandle) bool {
	_, ok := r.pending[h]
	return ok
}

// drain removes h from the registry and returns its copies in registration
// order.
func (r *eventRegistry) drain(h EventHandle) []AsyncCopy {
	copies := r.pending[h]
	delete(r.pending, h)
	return copies
}

// handles returns the pending handles in ascending order. Event processing
// order during a converged wait is observable, so iteration must not fall
// back to map order.
func (r *eventRegistry) handles() []EventHandle {
	hs := make([]EventHandle, 0, len(r.pending))
	for h := range r.pending {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}
