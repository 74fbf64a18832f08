package nodel

// Process is a scheduler record: a process id and the frame node that
// drives its execution. All process frames are graph roots for as long
// as the process is runnable.
type Process struct {
	Pid   int
	Frame Ref
}

// Runtime holds the graph shared by every process and the ordered
// collection of currently runnable processes. Scheduling is
// single-threaded and cooperative: exactly one opcode runs per tick,
// and there is no preemption or suspension inside an opcode (§5).
type Runtime struct {
	Graph *Graph

	// Profiler, if set, is fed one opcode observation per tick. Attach
	// it with NewOpcodeProfiler and p.StartProfile() before calling
	// Step to collect a pprof-exportable execution profile.
	Profiler *OpcodeProfiler

	queue   []Process
	nextPid int
}

// NewRuntime returns a runtime sharing g. Processes started on it mark
// their frames as roots on g, so keep using the same Graph for both the
// assembler output and the runtime that executes it.
func NewRuntime(g *Graph) *Runtime {
	return &Runtime{Graph: g, nextPid: 1}
}

// Kill discards the runtime's process table. It does not touch the
// graph — callers that also own the graph are responsible for it.
func (rt *Runtime) Kill() {
	rt.queue = nil
}

// Spawn allocates a fresh frame node pointing at entry and starts a
// process running it, returning the new pid. This is the usual way to
// start a program assembled with Parse: pass its AsmResult.Head.
func (rt *Runtime) Spawn(entry Ref) int {
	frame := rt.Graph.Alloc()
	rt.Graph.Unmark(frame) // ProcInit marks it; Alloc's implicit root is redundant here.
	rt.Graph.Set(frame, symInstPntr, RefVal(entry))
	return rt.ProcInit(frame)
}

// ProcInit marks frame as a root, assigns it a pid, and appends it to
// the runnable queue. Returns the assigned pid.
func (rt *Runtime) ProcInit(frame Ref) int {
	rt.Graph.Mark(frame)
	pid := rt.nextPid
	rt.nextPid++
	rt.queue = append(rt.queue, Process{Pid: pid, Frame: frame})
	return pid
}

// Processes returns a snapshot of the currently runnable processes, in
// scheduling order.
func (rt *Runtime) Processes() []Process {
	out := make([]Process, len(rt.queue))
	copy(out, rt.queue)
	return out
}

// Running reports whether any process remains runnable.
func (rt *Runtime) Running() bool {
	return len(rt.queue) > 0
}

// Step performs up to n total ticks, distributed round-robin across the
// runnable processes in stable pid order: each tick pops the process at
// the head of the queue, dispatches one opcode for it, and — unless it
// exited — re-enqueues it at the tail with its updated frame. A process
// started by fork joins the tail and so is first eligible on the
// following sweep, matching §5. Returns the number of ticks actually
// performed (fewer than n once every process has exited).
func (rt *Runtime) Step(n int) int {
	ticks := 0

	for ticks < n && len(rt.queue) > 0 {
		proc := rt.queue[0]
		rt.queue = rt.queue[1:]
		ticks++

		result, op, ok := rt.tick(proc.Frame)
		if !ok {
			rt.Graph.Unmark(proc.Frame)
			continue
		}
		if rt.Profiler != nil {
			rt.Profiler.Observe(op)
		}

		switch result.Kind {
		case StepExit:
			rt.Graph.Unmark(proc.Frame)

		case StepAdvance, StepSwitch:
			rt.rehome(&proc, result.Next)
			rt.queue = append(rt.queue, proc)

		case StepFork:
			rt.rehome(&proc, result.Next)
			rt.queue = append(rt.queue, proc)
			rt.ProcInit(result.Spawn)
		}
	}

	return ticks
}

// rehome updates proc's frame, moving root-marking from the old frame
// to the new one only when the opcode actually switched frames (most
// opcodes return the same frame ref, just mutated in place).
func (rt *Runtime) rehome(proc *Process, next Ref) {
	if next != proc.Frame {
		rt.Graph.Unmark(proc.Frame)
		rt.Graph.Mark(next)
	}
	proc.Frame = next
}

// tick loads frame's current instruction and dispatches it. ok is
// false if the frame's instpntr is missing/null or names an
// unrecognized opcode — both are silent process termination, same as
// an opcode returning StepExit. The returned Sym is the opcode that
// was dispatched, for profiling.
func (rt *Runtime) tick(frame Ref) (Step, Sym, bool) {
	pc, ok := rt.Graph.Get(frame, symInstPntr).Ref()
	if !ok || pc == NullRef {
		return Step{}, NullSym, false
	}

	opSym, ok := rt.Graph.Get(pc, symOpcode).Sym()
	if !ok {
		return Step{}, NullSym, false
	}

	handler, ok := Opcodes[opSym]
	if !ok {
		return Step{}, NullSym, false
	}

	return handler(rt.Graph, frame, pc), opSym, true
}
