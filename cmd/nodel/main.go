// Command nodel assembles and runs a nodel program, mirroring the
// wzprof command's shape: a single positional source file, optional
// profiling flags, and an optional pprof HTTP endpoint for inspecting
// a long-running program while it executes.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/andrewsmike/nodel"
)

type program struct {
	filePath   string
	pprofAddr  string
	cpuProfile string
	maxSteps   int
	quiet      bool
}

func (prog *program) run() error {
	src, err := os.ReadFile(prog.filePath)
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}

	result := nodel.Parse(string(src), nil)
	if result.Err != nil {
		result.FormatError(os.Stderr)
		return fmt.Errorf("assembling %s: %w", prog.filePath, result.Err)
	}

	rt := nodel.NewRuntime(result.Graph)
	if !prog.quiet {
		result.Graph.SetSink(os.Stdout)
	}

	var profiler *nodel.OpcodeProfiler
	if prog.cpuProfile != "" || prog.pprofAddr != "" {
		profiler = nodel.NewOpcodeProfiler(time.Now)
		rt.Profiler = profiler
	}

	if prog.pprofAddr != "" {
		// The index handler starts and stops the profile itself, once
		// per request to /debug/nodel/ticks, so don't also start one
		// here — ticks before the first request simply aren't counted.
		go func() {
			if err := http.ListenAndServe(prog.pprofAddr, nodel.DebugIndexHandler(profiler)); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server: %v\n", err)
			}
		}()
	} else if prog.cpuProfile != "" {
		profiler.StartProfile()
	}

	rt.Spawn(result.Head)

	if prog.maxSteps > 0 {
		rt.Step(prog.maxSteps)
	} else {
		for rt.Running() {
			rt.Step(1 << 30)
		}
	}

	if prog.cpuProfile != "" && prog.pprofAddr == "" {
		if err := nodel.WriteProfile(prog.cpuProfile, profiler.StopProfile()); err != nil {
			return fmt.Errorf("writing cpu profile: %w", err)
		}
	}

	return nil
}

func main() {
	var prog program

	pflag.StringVar(&prog.pprofAddr, "pprof-addr", "", "Address where to expose a pprof HTTP endpoint.")
	pflag.StringVar(&prog.cpuProfile, "cpuprofile", "", "Write an opcode execution profile to the specified file before exiting; ignored when --pprof-addr is set.")
	pflag.IntVar(&prog.maxSteps, "steps", 0, "Maximum number of opcode ticks to run, 0 for unbounded.")
	pflag.BoolVar(&prog.quiet, "quiet", false, "Discard output of the print opcode instead of writing it to stdout.")
	pflag.Parse()

	args := pflag.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: nodel [flags] </path/to/program.ndl>")
		os.Exit(2)
	}
	prog.filePath = args[0]

	if err := prog.run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
