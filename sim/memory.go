// Implements the byte-addressable memory model shared by the three address
// spaces of a dispatch: global (borrowed by every group), local (one region
// per group, cloned from the kernel template) and private (one region per
// work-item).

package sim

import (
	"fmt"
	"strings"
)

// Memory is the storage contract consumed by the work-group coordinator.
// Addresses are byte offsets from the start of the region; accesses beyond
// the allocated extent fail with *MemAccessError.
type Memory interface {
	// Load fills buf with len(buf) bytes starting at addr.
	Load(buf []byte, addr uint64) error
	// Store writes len(buf) bytes starting at addr.
	Store(buf []byte, addr uint64) error
	// Clone returns an independent deep copy of the region. Used to stamp
	// per-group local memory out of the kernel's template.
	Clone() Memory
	// TotalAllocated reports the number of bytes currently allocated.
	TotalAllocated() uint64
	// Dump renders the allocated contents for diagnostics.
	Dump() string
}

// MemAccessError reports a load or store that falls outside the allocated
// extent of a region.
type MemAccessError struct {
	Op    string // "load" or "store"
	Addr  uint64
	Size  uint64
	Limit uint64 // allocated bytes at the time of the access
}

func (e *MemAccessError) Error() string {
	return fmt.Sprintf("%s of %d bytes at 0x%x exceeds allocated extent (%d bytes)",
		e.Op, e.Size, e.Addr, e.Limit)
}

// maxRegionBytes caps the capacity of any single region. Program files carry
// region sizes as plain integers, so the bound keeps a parseable program from
// driving make past representable slice lengths.
const maxRegionBytes = 1 << 30

// ByteMemory is a flat region with bump allocation. It backs all three
// address spaces of the reference implementation.
type ByteMemory struct {
	data      []byte // fixed capacity, fixed at construction
	allocated uint64 // bytes handed out by Alloc, <= len(data)
}

// NewByteMemory creates a region with the given capacity and nothing
// allocated yet.
func NewByteMemory(capacity uint64) *ByteMemory {
	return &ByteMemory{data: make([]byte, capacity)}
}

// Alloc reserves size bytes and returns the base address of the reservation.
// Allocations are never freed individually; the region is released as a whole
// when its owner goes away.
func (m *ByteMemory) Alloc(size uint64) (uint64, error) {
	if size > uint64(len(m.data))-m.allocated {
		return 0, fmt.Errorf("alloc of %d bytes exceeds capacity (%d of %d bytes in use)",
			size, m.allocated, len(m.data))
	}
	base := m.allocated
	m.allocated += size
	return base, nil
}

// Load fills buf from the allocated extent starting at addr.
func (m *ByteMemory) Load(buf []byte, addr uint64) error {
	// Subtraction form: addr+len would wrap for addresses near the top of
	// the uint64 range, and kernel registers can produce any address.
	if addr > m.allocated || uint64(len(buf)) > m.allocated-addr {
		return &MemAccessError{Op: "load", Addr: addr, Size: uint64(len(buf)), Limit: m.allocated}
	}
	copy(buf, m.data[addr:addr+uint64(len(buf))])
	return nil
}

// Store writes buf into the allocated extent starting at addr.
func (m *ByteMemory) Store(buf []byte, addr uint64) error {
	if addr > m.allocated || uint64(len(buf)) > m.allocated-addr {
		return &MemAccessError{Op: "store", Addr: addr, Size: uint64(len(buf)), Limit: m.allocated}
	}
	copy(m.data[addr:], buf)
	return nil
}

// Clone returns an independent copy with the same capacity, allocation state
// and contents.
func (m *ByteMemory) Clone() Memory {
	dup := &ByteMemory{
		data:      make([]byte, len(m.data)),
		allocated: m.allocated,
	}
	copy(dup.data, m.data)
	return dup
}

// TotalAllocated reports the bytes handed out by Alloc so far.
func (m *ByteMemory) TotalAllocated() uint64 {
	return m.allocated
}

// Dump renders the allocated contents as hex, 16 bytes per line.
func (m *ByteMemory) Dump() string {
	var sb strings.Builder
	for base := uint64(0); base < m.allocated; base += 16 {
		sb.WriteString(fmt.Sprintf("0x%08x:", base))
		for off := base; off < base+16 && off < m.allocated; off++ {
			sb.WriteString(fmt.Sprintf(" %02x", m.data[off]))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
