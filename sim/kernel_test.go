package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

const validProgramYAML = `
kernel:
  name: copy_once
  local_mem_bytes: 16
  instructions:
    - {op: set, dst: 0, imm: 0}
    - {op: set, dst: 1, imm: 16}
    - {op: acopyg2l, dst: 0, a: 0, b: 1}
    - {op: wait}
    - {op: ret}
grid:
  work_dim: 1
  global_size: [4, 1, 1]
  group_size: [2, 1, 1]
global_memory:
  bytes: 32
  init_words: [1, 2, 3, 4]
`

func writeProgram(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}
	return path
}

func TestLoadProgram_Valid(t *testing.T) {
	cfg, err := LoadProgram(writeProgram(t, validProgramYAML))
	assert.NoError(t, err)
	assert.Equal(t, "copy_once", cfg.Kernel.Name)
	assert.Equal(t, uint64(16), cfg.Kernel.LocalMemBytes)
	assert.Len(t, cfg.Kernel.Instructions, 5)
	assert.Equal(t, 1, cfg.Grid.WorkDim)
	assert.Equal(t, [3]int{4, 1, 1}, cfg.Grid.GlobalSize)
	assert.Equal(t, []int64{1, 2, 3, 4}, cfg.GlobalMemory.InitWords)
}

func TestLoadProgram_MissingFile(t *testing.T) {
	_, err := LoadProgram(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadProgram_InvalidYAML(t *testing.T) {
	_, err := LoadProgram(writeProgram(t, "kernel: ["))
	assert.ErrorContains(t, err, "parsing program")
}

func TestProgramConfig_ValidateErrors(t *testing.T) {
	mutate := func(fn func(*ProgramConfig)) *ProgramConfig {
		cfg, err := LoadProgram(writeProgram(t, validProgramYAML))
		assert.NoError(t, err)
		fn(cfg)
		return cfg
	}

	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Kernel.Name = "" }).Validate(),
		"kernel.name")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Kernel.Instructions = nil }).Validate(),
		"instructions")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Grid.WorkDim = 4 }).Validate(),
		"work_dim")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Grid.GroupSize = [3]int{3, 1, 1} }).Validate(),
		"does not divide")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Grid.GroupSize = [3]int{0, 1, 1} }).Validate(),
		"group_size")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.GlobalMemory.Bytes = 8 }).Validate(),
		"init_words")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.GlobalMemory.Bytes = 1 << 63 }).Validate(),
		"global_memory.bytes")
	assert.ErrorContains(t,
		mutate(func(c *ProgramConfig) { c.Kernel.LocalMemBytes = 1 << 63 }).Validate(),
		"local_mem_bytes")
}

func TestNewKernel_RejectsOversizedLocalMemory(t *testing.T) {
	_, err := NewKernel("huge", []Instr{{Op: "ret"}}, 1<<63)
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestProgramConfig_BuildKernelRejectsBadInstruction(t *testing.T) {
	cfg, err := LoadProgram(writeProgram(t, validProgramYAML))
	assert.NoError(t, err)
	cfg.Kernel.Instructions[0].Op = "bogus"

	_, err = cfg.BuildKernel()
	assert.ErrorContains(t, err, "unknown op")
}

func TestProgramConfig_BuildGlobalMemory(t *testing.T) {
	cfg, err := LoadProgram(writeProgram(t, validProgramYAML))
	assert.NoError(t, err)

	mem, err := cfg.BuildGlobalMemory()
	assert.NoError(t, err)
	assert.Equal(t, uint64(32), mem.TotalAllocated())

	got, err := loadWord(mem, 8)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got)
}

func TestNewKernel_ClonedTemplateIsIndependent(t *testing.T) {
	kernel, err := NewKernel("k", []Instr{{Op: "ret"}}, 16)
	assert.NoError(t, err)

	clone := kernel.LocalTemplate().Clone()
	assert.NoError(t, clone.Store([]byte{0xff}, 0))

	got := make([]byte, 1)
	assert.NoError(t, kernel.LocalTemplate().Load(got, 0))
	assert.Equal(t, byte(0), got[0])
}
