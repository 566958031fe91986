// Reference work-item implementation: a register machine over a small kernel
// instruction set. Registers live in the item's private memory as 64-bit
// little-endian words, so DumpPrivateMemory shows real machine state.

package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"
)

const (
	numRegs   = 16
	wordBytes = 8
)

// Instr is one kernel instruction. Dst, A and B index registers r0..r15; Imm
// is a literal operand. Field use per opcode:
//
//	set      r[Dst] = Imm
//	lid      r[Dst] = local ID component Imm (0..2)
//	gid      r[Dst] = global ID component Imm (0..2)
//	add      r[Dst] = r[A] + r[B]
//	mul      r[Dst] = r[A] * r[B]
//	ldg      r[Dst] = global word at address r[A]
//	stg      global word at address r[A] = r[B]
//	ldl      r[Dst] = local word at address r[A]
//	stl      local word at address r[A] = r[B]
//	barrier  park at the work-group barrier
//	acopyg2l register global->local group copy: dest r[Dst], src r[A], bytes r[B]
//	acopyl2g register local->global group copy: dest r[Dst], src r[A], bytes r[B]
//	wait     park until the last registered copy event resolves
//	ret      finish the kernel
type Instr struct {
	Op  string `yaml:"op"`
	Dst int    `yaml:"dst,omitempty"`
	A   int    `yaml:"a,omitempty"`
	B   int    `yaml:"b,omitempty"`
	Imm int64  `yaml:"imm,omitempty"`
}

func (in Instr) validate() error {
	reg := func(field string, r int) error {
		if r < 0 || r >= numRegs {
			return fmt.Errorf("%s: %s register r%d out of range", in.Op, field, r)
		}
		return nil
	}

	// Only the fields an op reads are checked; stray values in unused fields
	// are ignored.
	switch in.Op {
	case "set":
		return reg("dst", in.Dst)
	case "lid", "gid":
		if err := reg("dst", in.Dst); err != nil {
			return err
		}
		if in.Imm < 0 || in.Imm > 2 {
			return fmt.Errorf("%s: component %d out of range 0..2", in.Op, in.Imm)
		}
		return nil
	case "add", "mul", "acopyg2l", "acopyl2g":
		if err := reg("dst", in.Dst); err != nil {
			return err
		}
		if err := reg("a", in.A); err != nil {
			return err
		}
		return reg("b", in.B)
	case "ldg", "ldl":
		if err := reg("dst", in.Dst); err != nil {
			return err
		}
		return reg("a", in.A)
	case "stg", "stl":
		if err := reg("a", in.A); err != nil {
			return err
		}
		return reg("b", in.B)
	case "barrier", "wait", "ret":
		return nil
	default:
		return fmt.Errorf("unknown op %q", in.Op)
	}
}

// interp executes one work-item's view of a kernel. It owns its private
// memory exclusively; local memory is reached through the owning group and
// global memory through the shared reference handed down at construction.
type interp struct {
	kernel   *Kernel
	group    *WorkGroup
	globalID Dim3
	localID  Dim3

	priv      *ByteMemory
	pc        int
	state     ItemState
	lastEvent EventHandle
}

func newInterp(kernel *Kernel, group *WorkGroup, globalID, localID Dim3) *interp {
	priv := NewByteMemory(numRegs * wordBytes)
	// Allocation of a fresh region cannot fail.
	if _, err := priv.Alloc(numRegs * wordBytes); err != nil {
		panic(err)
	}
	return &interp{
		kernel:   kernel,
		group:    group,
		globalID: globalID,
		localID:  localID,
		priv:     priv,
		state:    StateReady,
	}
}

// State returns the execution state last reported to the coordinator.
func (it *interp) State() ItemState {
	return it.state
}

// GlobalID returns the item's coordinate in the dispatch grid.
func (it *interp) GlobalID() Dim3 {
	return it.globalID
}

// ClearSyncPoint releases the item from a barrier or event wait. The
// instruction cursor already points past the sync instruction.
func (it *interp) ClearSyncPoint() {
	if it.state == StateAtBarrier || it.state == StateWaitingEvents {
		it.state = StateReady
	}
}

// DumpPrivateMemory renders the register file.
func (it *interp) DumpPrivateMemory() string {
	return it.priv.Dump()
}

// Step executes one instruction and returns the resulting state.
func (it *interp) Step(trace bool) (ItemState, error) {
	if it.state != StateReady {
		return it.state, nil
	}
	if it.pc >= len(it.kernel.Program) {
		// Falling off the end finishes the kernel, same as ret.
		it.state = StateFinished
		return it.state, nil
	}

	in := it.kernel.Program[it.pc]
	if trace {
		logrus.Debugf("item %s pc=%d %s", it.globalID, it.pc, in.Op)
	}

	if err := it.exec(in); err != nil {
		return it.state, fmt.Errorf("pc=%d %s: %w", it.pc, in.Op, err)
	}
	it.pc++
	return it.state, nil
}

func (it *interp) exec(in Instr) error {
	switch in.Op {
	case "set":
		return it.setReg(in.Dst, in.Imm)
	case "lid":
		return it.setReg(in.Dst, int64(it.localID[in.Imm]))
	case "gid":
		return it.setReg(in.Dst, int64(it.globalID[in.Imm]))
	case "add":
		a, b, err := it.regPair(in.A, in.B)
		if err != nil {
			return err
		}
		return it.setReg(in.Dst, a+b)
	case "mul":
		a, b, err := it.regPair(in.A, in.B)
		if err != nil {
			return err
		}
		return it.setReg(in.Dst, a*b)
	case "ldg":
		return it.loadInto(it.group.globalMem, in)
	case "ldl":
		return it.loadInto(it.group.localMem, in)
	case "stg":
		return it.storeFrom(it.group.globalMem, in)
	case "stl":
		return it.storeFrom(it.group.localMem, in)
	case "barrier":
		it.state = StateAtBarrier
	case "acopyg2l":
		return it.registerCopy(CopyGlobalToLocal, in)
	case "acopyl2g":
		return it.registerCopy(CopyLocalToGlobal, in)
	case "wait":
		if err := it.group.WaitEvent(it.lastEvent); err != nil {
			return err
		}
		it.state = StateWaitingEvents
	case "ret":
		it.state = StateFinished
	default:
		return fmt.Errorf("unknown op %q", in.Op)
	}
	return nil
}

func (it *interp) loadInto(mem Memory, in Instr) error {
	addr, err := it.reg(in.A)
	if err != nil {
		return err
	}
	v, err := loadWord(mem, uint64(addr))
	if err != nil {
		return err
	}
	return it.setReg(in.Dst, v)
}

func (it *interp) storeFrom(mem Memory, in Instr) error {
	addr, v, err := it.regPair(in.A, in.B)
	if err != nil {
		return err
	}
	return storeWord(mem, uint64(addr), v)
}

func (it *interp) registerCopy(kind CopyKind, in Instr) error {
	dest, err := it.reg(in.Dst)
	if err != nil {
		return err
	}
	src, size, err := it.regPair(in.A, in.B)
	if err != nil {
		return err
	}
	it.lastEvent = it.group.RegisterAsyncCopy(AsyncCopy{
		Instruction: uint64(it.pc),
		Kind:        kind,
		Dest:        uint64(dest),
		Src:         uint64(src),
		Size:        uint64(size),
	})
	return nil
}

func (it *interp) reg(i int) (int64, error) {
	var buf [wordBytes]byte
	if err := it.priv.Load(buf[:], uint64(i)*wordBytes); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (it *interp) regPair(a, b int) (int64, int64, error) {
	va, err := it.reg(a)
	if err != nil {
		return 0, 0, err
	}
	vb, err := it.reg(b)
	if err != nil {
		return 0, 0, err
	}
	return va, vb, nil
}

func (it *interp) setReg(i int, v int64) error {
	var buf [wordBytes]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return it.priv.Store(buf[:], uint64(i)*wordBytes)
}

func loadWord(m Memory, addr uint64) (int64, error) {
	var buf [wordBytes]byte
	if err := m.Load(buf[:], addr); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func storeWord(m Memory, addr uint64, v int64) error {
	var buf [wordBytes]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	return m.Store(buf[:], addr)
}
