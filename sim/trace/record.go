// Package trace provides an injectable side channel for work-group execution
// events. This package has no dependency on sim — it stores pure data types,
// so the convergence algorithm never touches a particular output channel.
package trace

import "fmt"

// Kind classifies a trace event.
type Kind string

const (
	// KindSegment is one work-item run segment: the item executed from READY
	// to the state named in Detail.
	KindSegment Kind = "segment"
	// KindBarrierResolved is a fully converged work-group barrier.
	KindBarrierResolved Kind = "barrier-resolved"
	// KindEventsResolved is a fully converged group-wide event wait,
	// including the copies executed while draining it.
	KindEventsResolved Kind = "events-resolved"
	// KindDivergence is an abandoned convergence point.
	KindDivergence Kind = "divergence"
	// KindGroupFinished means every work-item of the group completed the
	// kernel.
	KindGroupFinished Kind = "group-finished"
)

// Event is one record emitted by a work-group coordinator. Item is only
// meaningful when HasItem is true (KindSegment); group-wide events carry the
// group coordinate alone.
type Event struct {
	Group   [3]int
	Item    [3]int
	HasItem bool
	Kind    Kind
	Detail  string
}

func (e Event) String() string {
	if e.HasItem {
		return fmt.Sprintf("group (%d,%d,%d) item (%d,%d,%d): %s: %s",
			e.Group[0], e.Group[1], e.Group[2], e.Item[0], e.Item[1], e.Item[2], e.Kind, e.Detail)
	}
	return fmt.Sprintf("group (%d,%d,%d): %s: %s",
		e.Group[0], e.Group[1], e.Group[2], e.Kind, e.Detail)
}
