package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/gridsim/gridsim/sim"
	"github.com/gridsim/gridsim/sim/trace"
)

var (
	// CLI flags for the run command
	programPath string // Path to the kernel program YAML file
	logLevel    string // Log verbosity level
	traceExec   bool   // Emit per-segment and per-convergence trace lines
	dumpGlobal  bool   // Dump global memory after the dispatch completes
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "gridsim",
	Short: "Deterministic work-group simulator for SIMT kernel programs",
}

// runCmd executes one kernel dispatch described by a program file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a kernel program",
	Run: func(cmd *cobra.Command, args []string) {
		// Set up logging
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		if programPath == "" {
			logrus.Fatalf("Kernel program file not provided. Exiting.")
		}

		if err := runProgram(programPath, traceExec, dumpGlobal, os.Stdout); err != nil {
			logrus.Fatalf("Dispatch failed: %v", err)
		}
	},
}

// runProgram loads a program file, builds the dispatch and runs it to
// completion. Split out of the cobra handler so tests can drive it directly.
func runProgram(path string, traceExec, dumpGlobal bool, out io.Writer) error {
	cfg, err := sim.LoadProgram(path)
	if err != nil {
		return err
	}

	kernel, err := cfg.BuildKernel()
	if err != nil {
		return err
	}
	globalMem, err := cfg.BuildGlobalMemory()
	if err != nil {
		return err
	}

	var sink trace.Sink
	if traceExec {
		sink = trace.LogSink{}
	}

	d, err := sim.NewDispatch(kernel, globalMem, cfg.Grid.WorkDim,
		sim.Dim3(cfg.Grid.GlobalSize), sim.Dim3(cfg.Grid.GroupSize), sink)
	if err != nil {
		return err
	}

	if err := d.Run(traceExec); err != nil {
		return err
	}
	d.Metrics.Log()

	if dumpGlobal {
		fmt.Fprintf(out, "Global memory:\n%s", globalMem.Dump())
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	runCmd.Flags().StringVar(&programPath, "program", "", "Path to the kernel program YAML file")
	runCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&traceExec, "trace", false, "Emit one line per work-item run segment and per convergence event")
	runCmd.Flags().BoolVar(&dumpGlobal, "dump-global", false, "Dump global memory after the dispatch")

	rootCmd.AddCommand(runCmd)
}
