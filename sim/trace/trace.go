package trace

import "github.com/sirupsen/logrus"

// Sink receives trace events. Implementations must not assume any call
// ordering beyond the coordinator's own determinism, and must not mutate
// coordinator state: tracing is a pure side channel.
type Sink interface {
	Record(Event)
}

// Collector is a Sink that appends every event, in order, for later
// inspection. Used by tests and analysis tooling.
type Collector struct {
	Events []Event
}

// NewCollector creates a Collector ready for recording.
func NewCollector() *Collector {
	return &Collector{Events: make([]Event, 0)}
}

// Record appends the event.
func (c *Collector) Record(e Event) {
	c.Events = append(c.Events, e)
}

// ByKind returns the recorded events of one kind, in recording order.
func (c *Collector) ByKind(kind Kind) []Event {
	var out []Event
	for _, e := range c.Events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// LogSink is a Sink that emits one logrus info line per event.
type LogSink struct{}

// Record logs the event.
func (LogSink) Record(e Event) {
	logrus.Infof("[trace] %s", e)
}
