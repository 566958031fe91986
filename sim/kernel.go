// Kernel descriptor and the YAML program format consumed by the CLI. A
// program bundles the kernel (instruction list + local-memory template size),
// the dispatch geometry and the initial global-memory image.

package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Kernel supplies what a work-group needs at construction: the instruction
// entry point and a local-memory template cloned per group.
type Kernel struct {
	Name    string
	Program []Instr

	localTemplate *ByteMemory
}

// NewKernel builds a kernel with localMemBytes of template local memory
// (allocated up front, zero-filled) and validates the program.
func NewKernel(name string, program []Instr, localMemBytes uint64) (*Kernel, error) {
	if localMemBytes > maxRegionBytes {
		return nil, fmt.Errorf("kernel %q: local memory %d bytes exceeds limit %d",
			name, localMemBytes, maxRegionBytes)
	}
	for i, in := range program {
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("kernel %q instruction %d: %w", name, i, err)
		}
	}

	tmpl := NewByteMemory(localMemBytes)
	if localMemBytes > 0 {
		if _, err := tmpl.Alloc(localMemBytes); err != nil {
			return nil, fmt.Errorf("kernel %q: local template: %w", name, err)
		}
	}

	return &Kernel{Name: name, Program: program, localTemplate: tmpl}, nil
}

// LocalTemplate exposes the template region; groups clone it, never share it.
func (k *Kernel) LocalTemplate() Memory {
	return k.localTemplate
}

// ProgramConfig is the YAML representation of a runnable kernel program.
type ProgramConfig struct {
	Kernel struct {
		Name          string  `yaml:"name"`
		LocalMemBytes uint64  `yaml:"local_mem_bytes"`
		Instructions  []Instr `yaml:"instructions"`
	} `yaml:"kernel"`
	Grid struct {
		WorkDim    int    `yaml:"work_dim"`
		GlobalSize [3]int `yaml:"global_size"`
		GroupSize  [3]int `yaml:"group_size"`
	} `yaml:"grid"`
	GlobalMemory struct {
		Bytes uint64 `yaml:"bytes"`
		// InitWords are stored as consecutive 64-bit little-endian words from
		// address 0.
		InitWords []int64 `yaml:"init_words"`
	} `yaml:"global_memory"`
}

// LoadProgram reads and parses a YAML kernel program file.
func LoadProgram(path string) (*ProgramConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading program: %w", err)
	}
	var cfg ProgramConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing program: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the program for structural errors before anything is built.
func (c *ProgramConfig) Validate() error {
	if c.Kernel.Name == "" {
		return fmt.Errorf("kernel.name must be set")
	}
	if len(c.Kernel.Instructions) == 0 {
		return fmt.Errorf("kernel.instructions must not be empty")
	}
	if c.Grid.WorkDim < 1 || c.Grid.WorkDim > 3 {
		return fmt.Errorf("grid.work_dim must be 1..3, got %d", c.Grid.WorkDim)
	}
	for i := 0; i < 3; i++ {
		if c.Grid.GlobalSize[i] < 1 {
			return fmt.Errorf("grid.global_size[%d] must be >= 1, got %d", i, c.Grid.GlobalSize[i])
		}
		if c.Grid.GroupSize[i] < 1 {
			return fmt.Errorf("grid.group_size[%d] must be >= 1, got %d", i, c.Grid.GroupSize[i])
		}
		if c.Grid.GlobalSize[i]%c.Grid.GroupSize[i] != 0 {
			return fmt.Errorf("grid.group_size[%d]=%d does not divide global_size[%d]=%d",
				i, c.Grid.GroupSize[i], i, c.Grid.GlobalSize[i])
		}
	}
	if c.Kernel.LocalMemBytes > maxRegionBytes {
		return fmt.Errorf("kernel.local_mem_bytes %d exceeds limit %d",
			c.Kernel.LocalMemBytes, maxRegionBytes)
	}
	if c.GlobalMemory.Bytes > maxRegionBytes {
		return fmt.Errorf("global_memory.bytes %d exceeds limit %d",
			c.GlobalMemory.Bytes, maxRegionBytes)
	}
	if need := uint64(len(c.GlobalMemory.InitWords)) * wordBytes; need > c.GlobalMemory.Bytes {
		return fmt.Errorf("global_memory.init_words needs %d bytes, only %d declared",
			need, c.GlobalMemory.Bytes)
	}
	return nil
}

// BuildKernel constructs the kernel described by the config.
func (c *ProgramConfig) BuildKernel() (*Kernel, error) {
	return NewKernel(c.Kernel.Name, c.Kernel.Instructions, c.Kernel.LocalMemBytes)
}

// BuildGlobalMemory allocates the global region and stores the initial words.
func (c *ProgramConfig) BuildGlobalMemory() (*ByteMemory, error) {
	mem := NewByteMemory(c.GlobalMemory.Bytes)
	if c.GlobalMemory.Bytes > 0 {
		if _, err := mem.Alloc(c.GlobalMemory.Bytes); err != nil {
			return nil, fmt.Errorf("global memory: %w", err)
		}
	}
	for i, w := range c.GlobalMemory.InitWords {
		if err := storeWord(mem, uint64(i)*wordBytes, w); err != nil {
			return nil, fmt.Errorf("global memory init word %d: %w", i, err)
		}
	}
	return mem, nil
}
