// NDRange dispatch: constructs and runs one work-group per grid cell, in
// row-major group order, against the shared global memory.

package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gridsim/gridsim/sim/trace"
)

// Dispatch owns one kernel launch: the kernel, the shared global memory and
// the grid geometry. Groups run strictly one after another; determinism falls
// out of the fixed group order and each group's fixed scheduling order.
type Dispatch struct {
	Kernel     *Kernel
	GlobalMem  Memory
	WorkDim    int
	GlobalSize Dim3
	GroupSize  Dim3
	Sink       trace.Sink

	Metrics DispatchMetrics
}

// NewDispatch validates the launch geometry. Every size component must be
// >= 1 and the group size must divide the global size componentwise.
func NewDispatch(kernel *Kernel, globalMem Memory, workDim int,
	globalSize, groupSize Dim3, sink trace.Sink) (*Dispatch, error) {

	if workDim < 1 || workDim > 3 {
		return nil, fmt.Errorf("work dimension must be 1..3, got %d", workDim)
	}
	for i := 0; i < 3; i++ {
		if globalSize[i] < 1 || groupSize[i] < 1 {
			return nil, fmt.Errorf("size components must be >= 1, got global %s group %s",
				globalSize, groupSize)
		}
		if globalSize[i]%groupSize[i] != 0 {
			return nil, fmt.Errorf("group size %s does not divide global size %s",
				groupSize, globalSize)
		}
	}

	return &Dispatch{
		Kernel:     kernel,
		GlobalMem:  globalMem,
		WorkDim:    workDim,
		GlobalSize: globalSize,
		GroupSize:  groupSize,
		Sink:       sink,
	}, nil
}

// NumGroups returns the group grid extent.
func (d *Dispatch) NumGroups() Dim3 {
	return Dim3{
		d.GlobalSize[0] / d.GroupSize[0],
		d.GlobalSize[1] / d.GroupSize[1],
		d.GlobalSize[2] / d.GroupSize[2],
	}
}

// Run executes every group of the launch. The dispatch stops at the first
// group error (divergence, invalid event reference, memory failure); groups
// that already completed stay completed, since only global memory outlives a
// group.
func (d *Dispatch) Run(traceExec bool) error {
	ng := d.NumGroups()
	logrus.Infof("dispatching kernel %q: global %s, group %s, %d group(s)",
		d.Kernel.Name, d.GlobalSize, d.GroupSize, ng.Size())

	for z := 0; z < ng[2]; z++ {
		for y := 0; y < ng[1]; y++ {
			for x := 0; x < ng[0]; x++ {
				wg := NewWorkGroup(d.Kernel, d.GlobalMem, d.WorkDim,
					Dim3{x, y, z}, d.GlobalSize, d.GroupSize, d.Sink)
				if err := wg.Run(traceExec); err != nil {
					return err
				}
				d.Metrics.Merge(wg.Metrics)
			}
		}
	}
	return nil
}
