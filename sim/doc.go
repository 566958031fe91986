// Package sim provides a deterministic software model of work-group execution
// for SIMT-style compute kernels.
//
// # Reading Guide
//
// Start with these three files to understand the execution model:
//   - workitem.go: the WorkItem contract and its four execution states
//   - workgroup.go: the round-based convergence loop (barriers, event waits)
//   - dispatch.go: the NDRange loop that runs every group against shared
//     global memory
//
// # Architecture
//
// A kernel is dispatched as a grid of work-groups; each group holds a fixed
// 3-D array of work-items that execute in lockstep and rendezvous at barriers
// and group-wide asynchronous copies. There is no real parallelism: the
// coordinator runs one work-item at a time, in flattened grid order, and
// emulates hardware convergence through explicit per-round bookkeeping. The
// model is sequential and reproducible by construction.
//
// The extension points are small interfaces:
//   - WorkItem: an execution unit that runs to its next synchronization point
//     and reports the state it stopped on
//   - Memory: byte-addressable storage with bulk load/store and cloning
//   - trace.Sink: an injectable side channel for convergence events
//
// interp.go carries a reference WorkItem implementation, a register machine
// over a small YAML-loadable instruction set, so the coordinator can be
// driven end to end without an external interpreter.
package sim
