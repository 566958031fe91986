package sim

import "fmt"

// Dim3 is a 3-component extent or coordinate. Unused dimensions hold 1 for
// extents and 0 for coordinates, so the arithmetic below needs no special
// cases for work dimensions below 3.
type Dim3 [3]int

// Size returns the number of cells covered by the extent.
func (d Dim3) Size() int {
	return d[0] * d[1] * d[2]
}

// Flatten maps a coordinate inside the extent d to its row-major index:
// x + d.x*(y + d.y*z). This is the scheduling order of a work-group and must
// stay stable for the group's entire lifetime.
func (d Dim3) Flatten(x, y, z int) int {
	return x + d[0]*(y+d[1]*z)
}

func (d Dim3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", d[0], d[1], d[2])
}
