// Implements the work-group coordinator: construction of the work-item grid,
// the round-based scheduling and convergence loop, and the execution of
// group-wide asynchronous copies once the whole group has rendezvoused.

package sim

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gridsim/gridsim/sim/trace"
)

// WorkGroup coordinates one group of a dispatch. It owns the group's local
// memory (cloned from the kernel template at construction) and the flattened
// array of work-items; it borrows global memory, which is shared with every
// other group. Identity fields are immutable after construction.
type WorkGroup struct {
	workDim    int
	groupID    Dim3
	globalSize Dim3
	groupSize  Dim3

	globalMem Memory
	localMem  Memory

	// workItems is the flattened grid, index = x + sx*(y + sy*z). The slice
	// order is the sole scheduling order and is identical in every round.
	workItems []WorkItem

	events     *eventRegistry
	waitEvents map[EventHandle]struct{}

	numFinished int
	sink        trace.Sink

	// Metrics accumulates diagnostic counters across the group's run.
	Metrics GroupMetrics
}

// NewWorkGroup builds the coordinator for one group: clones the kernel's
// local-memory template into a group-private region and materializes one
// work-item per grid cell in flattened order. Caller contract: every
// component of globalSize and groupSize is >= 1 and workDim is 1..3.
// sink may be nil to disable tracing.
func NewWorkGroup(kernel *Kernel, globalMem Memory, workDim int, groupID Dim3,
	globalSize, groupSize Dim3, sink trace.Sink) *WorkGroup {

	wg := newGroupShell(globalMem, workDim, groupID, globalSize, groupSize, sink)
	wg.localMem = kernel.localTemplate.Clone()

	wg.workItems = make([]WorkItem, groupSize.Size())
	for z := 0; z < groupSize[2]; z++ {
		for y := 0; y < groupSize[1]; y++ {
			for x := 0; x < groupSize[0]; x++ {
				localID := Dim3{x, y, z}
				globalID := Dim3{
					groupID[0]*groupSize[0] + x,
					groupID[1]*groupSize[1] + y,
					groupID[2]*groupSize[2] + z,
				}
				wg.workItems[groupSize.Flatten(x, y, z)] = newInterp(kernel, wg, globalID, localID)
			}
		}
	}

	return wg
}

// newGroupShell builds a WorkGroup without local memory or work-items.
// NewWorkGroup completes it from a kernel; tests complete it with mocks.
func newGroupShell(globalMem Memory, workDim int, groupID Dim3,
	globalSize, groupSize Dim3, sink trace.Sink) *WorkGroup {

	return &WorkGroup{
		workDim:    workDim,
		groupID:    groupID,
		globalSize: globalSize,
		groupSize:  groupSize,
		globalMem:  globalMem,
		events:     newEventRegistry(),
		waitEvents: make(map[EventHandle]struct{}),
		sink:       sink,
	}
}

// GroupID returns the group's coordinate in the dispatch grid.
func (wg *WorkGroup) GroupID() Dim3 { return wg.groupID }

// GroupSize returns the work-item extent of the group.
func (wg *WorkGroup) GroupSize() Dim3 { return wg.groupSize }

// GlobalSize returns the work-item extent of the whole dispatch.
func (wg *WorkGroup) GlobalSize() Dim3 { return wg.globalSize }

// WorkDim returns the work dimensionality (1..3).
func (wg *WorkGroup) WorkDim() int { return wg.workDim }

// LocalMemory returns the group's local-memory region.
func (wg *WorkGroup) LocalMemory() Memory { return wg.localMem }

// Run drives the group to completion: each round runs every READY work-item
// to its next synchronization point in flattened order, then resolves the
// round's convergence point. The only normal exit is every item reporting
// FINISHED. Divergence at a barrier or event wait returns *DivergenceError
// with the group left in its pre-divergence state; a wait on an unregistered
// event surfaces as *InvalidEventError out of the offending item's Step.
//
// traceExec requests per-instruction output from the work-items; segment and
// convergence records always go to the injected sink regardless.
func (wg *WorkGroup) Run(traceExec bool) error {
	total := len(wg.workItems)

	for wg.numFinished < total {
		numBarriers := 0
		numWaits := 0

		// Run work-items in flattened order. A scheduled item is never
		// preempted mid-segment: it executes until it leaves READY.
		for _, wi := range wg.workItems {
			if wi.State() != StateReady {
				continue
			}

			state := wi.State()
			for state == StateReady {
				var err error
				state, err = wi.Step(traceExec)
				if err != nil {
					return fmt.Errorf("group %s work-item %s: %w", wg.groupID, wi.GlobalID(), err)
				}
			}

			wg.record(trace.Event{
				Group:   wg.groupID,
				Item:    wi.GlobalID(),
				HasItem: true,
				Kind:    trace.KindSegment,
				Detail:  state.String(),
			})

			switch state {
			case StateAtBarrier:
				numBarriers++
			case StateWaitingEvents:
				numWaits++
			case StateFinished:
				wg.numFinished++
			}
		}
		wg.Metrics.Rounds++

		// Barrier resolution. Full convergence releases the group; a strict
		// subset at the barrier is unrecoverable divergence.
		if numBarriers == total {
			wg.releaseAll()
			wg.Metrics.BarriersResolved++
			wg.record(trace.Event{
				Group:  wg.groupID,
				Kind:   trace.KindBarrierResolved,
				Detail: fmt.Sprintf("all %d work-items reached barrier", total),
			})
		} else if numBarriers > 0 {
			err := &DivergenceError{
				Point:    PointBarrier,
				GroupID:  wg.groupID,
				Arrived:  numBarriers,
				Finished: wg.numFinished,
				Total:    total,
			}
			wg.record(trace.Event{Group: wg.groupID, Kind: trace.KindDivergence, Detail: err.Error()})
			return err
		}

		// Event-wait resolution, symmetric to the barrier.
		if numWaits == total {
			if err := wg.resolveEventWaits(); err != nil {
				return err
			}
			wg.releaseAll()
			wg.Metrics.EventWaitsResolved++
			wg.record(trace.Event{
				Group:  wg.groupID,
				Kind:   trace.KindEventsResolved,
				Detail: fmt.Sprintf("all %d work-items reached event wait", total),
			})
		} else if numWaits > 0 {
			err := &DivergenceError{
				Point:    PointEventWait,
				GroupID:  wg.groupID,
				Arrived:  numWaits,
				Finished: wg.numFinished,
				Total:    total,
			}
			wg.record(trace.Event{Group: wg.groupID, Kind: trace.KindDivergence, Detail: err.Error()})
			return err
		}
	}

	wg.record(trace.Event{
		Group:  wg.groupID,
		Kind:   trace.KindGroupFinished,
		Detail: fmt.Sprintf("all %d work-items completed kernel", total),
	})
	return nil
}

// resolveEventWaits executes every copy pending under the awaited handles, in
// ascending handle order and registration order within a handle, then drains
// the handles and clears the awaited set. Transfers stage through a buffer
// sized exactly to the copy; global memory is never aliased.
func (wg *WorkGroup) resolveEventWaits() error {
	for _, h := range sortedHandles(wg.waitEvents) {
		for _, c := range wg.events.drain(h) {
			var srcMem, destMem Memory
			if c.Kind == CopyGlobalToLocal {
				srcMem, destMem = wg.globalMem, wg.localMem
			} else {
				srcMem, destMem = wg.localMem, wg.globalMem
			}

			buf := make([]byte, c.Size)
			if err := srcMem.Load(buf, c.Src); err != nil {
				return fmt.Errorf("group %s event %d: %s copy: %w", wg.groupID, h, c.Kind, err)
			}
			if err := destMem.Store(buf, c.Dest); err != nil {
				return fmt.Errorf("group %s event %d: %s copy: %w", wg.groupID, h, c.Kind, err)
			}

			wg.Metrics.CopiesExecuted++
			wg.Metrics.BytesCopied += c.Size
		}
	}
	wg.waitEvents = make(map[EventHandle]struct{})
	return nil
}

// releaseAll returns every work-item parked at a sync point to READY.
func (wg *WorkGroup) releaseAll() {
	for _, wi := range wg.workItems {
		wi.ClearSyncPoint()
	}
}

// RegisterAsyncCopy registers a group copy on behalf of one work-item and
// returns the event handle tracking it. Structurally equal descriptors from
// sibling work-items deduplicate onto the same handle, so a group-wide
// transfer described by every item is executed exactly once.
func (wg *WorkGroup) RegisterAsyncCopy(c AsyncCopy) EventHandle {
	return wg.events.register(c)
}

// WaitEvent marks an event handle as collectively awaited. The handle must
// have been returned by a prior RegisterAsyncCopy whose copies are still
// pending; otherwise the call fails with *InvalidEventError.
func (wg *WorkGroup) WaitEvent(h EventHandle) error {
	if !wg.events.contains(h) {
		return &InvalidEventError{Event: h, GroupID: wg.groupID}
	}
	wg.waitEvents[h] = struct{}{}
	return nil
}

// DumpLocalMemory renders the group's local memory, or nothing when zero
// bytes are allocated.
func (wg *WorkGroup) DumpLocalMemory() string {
	if wg.localMem.TotalAllocated() == 0 {
		return ""
	}
	return "Local memory:\n" + wg.localMem.Dump()
}

// DumpPrivateMemories renders every work-item's private memory in flattened
// order.
func (wg *WorkGroup) DumpPrivateMemories() string {
	var sb strings.Builder
	for _, wi := range wg.workItems {
		sb.WriteString(fmt.Sprintf("Work-item %s:\n", wi.GlobalID()))
		sb.WriteString(wi.DumpPrivateMemory())
	}
	return sb.String()
}

func (wg *WorkGroup) record(e trace.Event) {
	if wg.sink != nil {
		wg.sink.Record(e)
	}
}

// sortedHandles returns the awaited handles in ascending order; processing
// order during a converged wait is part of the observable semantics.
func sortedHandles(set map[EventHandle]struct{}) []EventHandle {
	hs := make([]EventHandle, 0, len(set))
	for h := range set {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}
