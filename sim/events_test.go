package sim

import "testing"

func TestRegister_IdenticalDescriptors_SameHandle(t *testing.T) {
	// GIVEN an empty registry
	r := newEventRegistry()
	c := AsyncCopy{Instruction: 3, Kind: CopyGlobalToLocal, Dest: 16, Src: 64, Size: 32}

	// WHEN two structurally identical descriptors are registered
	h1 := r.register(c)
	h2 := r.register(c)

	// THEN both return the same handle, and handles start at 1
	if h1 != 1 {
		t.Errorf("first handle: got %d, want 1", h1)
	}
	if h2 != h1 {
		t.Errorf("duplicate registration: got %d, want %d", h2, h1)
	}
	if len(r.pending[h1]) != 1 {
		t.Errorf("pending copies under %d: got %d, want 1", h1, len(r.pending[h1]))
	}
}

func TestRegister_AnyFieldDiffers_DistinctHandle(t *testing.T) {
	base := AsyncCopy{Instruction: 3, Kind: CopyGlobalToLocal, Dest: 16, Src: 64, Size: 32}

	variants := map[string]AsyncCopy{
		"instruction": {Instruction: 4, Kind: CopyGlobalToLocal, Dest: 16, Src: 64, Size: 32},
		"kind":        {Instruction: 3, Kind: CopyLocalToGlobal, Dest: 16, Src: 64, Size: 32},
		"dest":        {Instruction: 3, Kind: CopyGlobalToLocal, Dest: 24, Src: 64, Size: 32},
		"src":         {Instruction: 3, Kind: CopyGlobalToLocal, Dest: 16, Src: 72, Size: 32},
		"size":        {Instruction: 3, Kind: CopyGlobalToLocal, Dest: 16, Src: 64, Size: 16},
	}

	for name, variant := range variants {
		t.Run(name, func(t *testing.T) {
			// GIVEN a registry holding the base descriptor
			r := newEventRegistry()
			h1 := r.register(base)

			// WHEN a descriptor differing in one field is registered
			h2 := r.register(variant)

			// THEN it gets its own handle
			if h2 == h1 {
				t.Errorf("variant %q deduplicated onto handle %d", name, h1)
			}
		})
	}
}

func TestDrain_RemovesHandle(t *testing.T) {
	// GIVEN a registry with one pending copy
	r := newEventRegistry()
	c := AsyncCopy{Instruction: 1, Kind: CopyLocalToGlobal, Size: 8}
	h := r.register(c)

	// WHEN the handle is drained
	copies := r.drain(h)

	// THEN the copies come back in registration order and the handle is gone
	if len(copies) != 1 || copies[0] != c {
		t.Errorf("drain: got %v, want [%v]", copies, c)
	}
	if r.contains(h) {
		t.Errorf("handle %d still pending after drain", h)
	}

	// AND re-registering the same descriptor mints a fresh handle
	if h2 := r.register(c); h2 == h {
		t.Errorf("re-registration reused drained handle %d", h)
	}
}

func TestHandles_AscendingOrder(t *testing.T) {
	// GIVEN several distinct pending copies
	r := newEventRegistry()
	for i := uint64(0); i < 5; i++ {
		r.register(AsyncCopy{Instruction: i, Kind: CopyGlobalToLocal, Size: 8})
	}

	// THEN handles iterate in ascending numeric order
	hs := r.handles()
	if len(hs) != 5 {
		t.Fatalf("handles: got %d, want 5", len(hs))
	}
	for i := 1; i < len(hs); i++ {
		if hs[i] <= hs[i-1] {
			t.Errorf("handles out of order at %d: %v", i, hs)
		}
	}
}
