package sim

import (
	"errors"
	"testing"
)

func TestByteMemory_AllocLoadStoreRoundTrip(t *testing.T) {
	// GIVEN a region with 64 bytes allocated
	mem := NewByteMemory(64)
	base, err := mem.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if base != 0 {
		t.Errorf("first allocation base: got %d, want 0", base)
	}

	// WHEN bytes are stored and loaded back
	want := []byte{1, 2, 3, 4}
	if err := mem.Store(want, 8); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got := make([]byte, 4)
	if err := mem.Load(got, 8); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// THEN the bytes round-trip verbatim
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestByteMemory_AccessBeyondAllocation_Fails(t *testing.T) {
	// GIVEN a region with only 8 of 32 bytes allocated
	mem := NewByteMemory(32)
	if _, err := mem.Alloc(8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	// WHEN a load crosses the allocated extent
	err := mem.Load(make([]byte, 4), 6)

	// THEN it fails with a MemAccessError naming the access
	var mae *MemAccessError
	if !errors.As(err, &mae) {
		t.Fatalf("Load: got %v, want *MemAccessError", err)
	}
	if mae.Op != "load" || mae.Addr != 6 || mae.Size != 4 || mae.Limit != 8 {
		t.Errorf("MemAccessError fields: got %+v", mae)
	}

	// AND stores are checked the same way
	if err := mem.Store(make([]byte, 1), 8); !errors.As(err, &mae) {
		t.Errorf("Store: got %v, want *MemAccessError", err)
	}
}

func TestByteMemory_HugeAddress_FailsWithoutWrapping(t *testing.T) {
	// GIVEN a region with 8 bytes allocated
	mem := NewByteMemory(8)
	if _, err := mem.Alloc(8); err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	// WHEN an access uses an address near the top of the uint64 range, where
	// addr+len wraps around zero
	var mae *MemAccessError
	err := mem.Load(make([]byte, 8), ^uint64(0))

	// THEN it fails with a MemAccessError instead of panicking
	if !errors.As(err, &mae) {
		t.Fatalf("Load at max address: got %v, want *MemAccessError", err)
	}
	if mae.Addr != ^uint64(0) {
		t.Errorf("Addr: got 0x%x, want max uint64", mae.Addr)
	}

	// AND stores are checked the same way
	if err := mem.Store(make([]byte, 8), ^uint64(0)); !errors.As(err, &mae) {
		t.Errorf("Store at max address: got %v, want *MemAccessError", err)
	}

	// AND an allocation large enough to wrap the cursor fails too
	if _, err := mem.Alloc(^uint64(0)); err == nil {
		t.Errorf("Alloc of max size: got nil error")
	}
}

func TestByteMemory_AllocBeyondCapacity_Fails(t *testing.T) {
	mem := NewByteMemory(16)
	if _, err := mem.Alloc(12); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, err := mem.Alloc(8); err == nil {
		t.Errorf("Alloc past capacity: got nil error")
	}
	if got := mem.TotalAllocated(); got != 12 {
		t.Errorf("TotalAllocated after failed alloc: got %d, want 12", got)
	}
}

func TestByteMemory_CloneIsIndependent(t *testing.T) {
	// GIVEN an allocated region with known contents
	mem := NewByteMemory(16)
	if _, err := mem.Alloc(16); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if err := mem.Store([]byte{0xaa}, 0); err != nil {
		t.Fatalf("Store: %v", err)
	}

	// WHEN it is cloned and the clone mutated
	dup := mem.Clone()
	if got := dup.TotalAllocated(); got != 16 {
		t.Fatalf("clone TotalAllocated: got %d, want 16", got)
	}
	if err := dup.Store([]byte{0xbb}, 0); err != nil {
		t.Fatalf("Store on clone: %v", err)
	}

	// THEN the original is untouched
	got := make([]byte, 1)
	if err := mem.Load(got, 0); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0] != 0xaa {
		t.Errorf("original byte: got 0x%02x, want 0xaa", got[0])
	}
}

func TestByteMemory_DumpEmptyWhenNothingAllocated(t *testing.T) {
	mem := NewByteMemory(64)
	if got := mem.Dump(); got != "" {
		t.Errorf("Dump of unallocated region: got %q, want empty", got)
	}

	if _, err := mem.Alloc(4); err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if got := mem.Dump(); got == "" {
		t.Errorf("Dump of allocated region: got empty, want content")
	}
}
