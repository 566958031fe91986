package sim

import "github.com/sirupsen/logrus"

// GroupMetrics accumulates per-group execution counters. Purely diagnostic;
// nothing in the convergence protocol reads them back.
type GroupMetrics struct {
	Rounds             int    // scheduling rounds executed
	BarriersResolved   int    // fully converged barriers
	EventWaitsResolved int    // fully converged group-wide waits
	CopiesExecuted     int    // asynchronous copies performed
	BytesCopied        uint64 // total bytes moved by group copies
}

// DispatchMetrics aggregates GroupMetrics across every group of a dispatch.
type DispatchMetrics struct {
	GroupMetrics
	GroupsCompleted int
}

// Merge folds one completed group's counters into the dispatch totals.
func (m *DispatchMetrics) Merge(g GroupMetrics) {
	m.Rounds += g.Rounds
	m.BarriersResolved += g.BarriersResolved
	m.EventWaitsResolved += g.EventWaitsResolved
	m.CopiesExecuted += g.CopiesExecuted
	m.BytesCopied += g.BytesCopied
	m.GroupsCompleted++
}

// Log writes the dispatch summary.
func (m *DispatchMetrics) Log() {
	logrus.Infof("dispatch complete: groups=%d rounds=%d barriers=%d eventWaits=%d copies=%d bytesCopied=%d",
		m.GroupsCompleted, m.Rounds, m.BarriersResolved, m.EventWaitsResolved,
		m.CopiesExecuted, m.BytesCopied)
}
