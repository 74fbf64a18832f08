package nodel

import (
	"fmt"
	"math"
)

// StepKind discriminates what the scheduler should do with a Step
// result. This is the richer result shape the source's bare next-frame
// reference leaves as an open question (§9): push and fork need to
// tell the scheduler more than "here is the next frame", so every
// opcode returns one of these instead of a raw Ref.
type StepKind uint8

const (
	// StepAdvance: continue the same process; Next is its new current
	// frame (normally unchanged, just with instpntr moved forward).
	StepAdvance StepKind = iota
	// StepSwitch: a call (push) — the process's current frame becomes
	// Next, a different node than the frame that was running.
	StepSwitch
	// StepFork: like StepAdvance, but also asks the scheduler to start
	// a new process whose frame is Spawn.
	StepFork
	// StepExit: the process terminates, fatally or cleanly. Matches
	// the source returning NDL_NULL_REF.
	StepExit
)

// Step is what an opcode function returns.
type Step struct {
	Kind  StepKind
	Next  Ref // meaningful for StepAdvance, StepSwitch, StepFork
	Spawn Ref // meaningful for StepFork only
}

func advance(g *Graph, frame, pc Ref) Step {
	next, ok := g.Get(pc, symNext).Ref()
	if !ok || next == NullRef {
		return Step{Kind: StepExit}
	}
	if err := g.Set(frame, symInstPntr, RefVal(next)); err != nil {
		return Step{Kind: StepExit}
	}
	return Step{Kind: StepAdvance, Next: frame}
}

func fatal() Step { return Step{Kind: StepExit} }

// loadSym reads a symbol-typed value at key on node.
func loadSym(g *Graph, node Ref, key Sym) (Sym, bool) {
	return g.Get(node, key).Sym()
}

// loadRef reads a non-null ref-typed value at key on node.
func loadRef(g *Graph, node Ref, key Sym) (Ref, bool) {
	r, ok := g.Get(node, key).Ref()
	if !ok || r == NullRef {
		return NullRef, false
	}
	return r, true
}

// loadNotNone reads any present, non-None value at key on node.
func loadNotNone(g *Graph, node Ref, key Sym) (Value, bool) {
	v := g.Get(node, key)
	if v.IsNone() {
		return None, false
	}
	return v, true
}

// operand resolves the instruction's i-th positional argument: pc's
// syma/symb/symc/... value names a key on frame (or a referenced
// node), per the operand convention in §4.F.
func operand(g *Graph, pc Ref, i int) (Sym, bool) {
	return loadSym(g, pc, symArg(i))
}

// OpFunc is the signature every opcode handler implements.
type OpFunc func(g *Graph, frame, pc Ref) Step

// Opcodes is the dispatch table from opcode symbol to handler,
// populated once at init time the way a dense symbol-keyed table would
// be built from a generator in the source.
var Opcodes = map[Sym]OpFunc{
	NewSym("new"):     opNew,
	NewSym("copy"):    opCopy,
	NewSym("load"):    opLoad,
	NewSym("save"):    opSave,
	NewSym("drop"):    opDrop,
	NewSym("count"):   opCount,
	NewSym("iload"):   opIload,
	NewSym("add"):     intBinOp(func(a, b int64) int64 { return a + b }),
	NewSym("sub"):     intBinOp(func(a, b int64) int64 { return a - b }),
	NewSym("neg"):     intUnOp(func(a int64) int64 { return -a }),
	NewSym("mul"):     intBinOp(func(a, b int64) int64 { return a * b }),
	NewSym("div"):     intBinOpFatalOnZero(func(a, b int64) int64 { return a / b }),
	NewSym("mod"):     intBinOpFatalOnZero(func(a, b int64) int64 { return a % b }),
	NewSym("and"):     intBinOp(func(a, b int64) int64 { return a & b }),
	NewSym("or"):      intBinOp(func(a, b int64) int64 { return a | b }),
	NewSym("xor"):     intBinOp(func(a, b int64) int64 { return a ^ b }),
	NewSym("not"):     intUnOp(func(a int64) int64 { return ^a }),
	NewSym("lshift"):  intBinOp(func(a, b int64) int64 { return a << uint64(b) }),
	NewSym("rshift"):  intBinOp(func(a, b int64) int64 { return a >> uint64(b) }),
	NewSym("ulshift"): intBinOp(func(a, b int64) int64 { return int64(uint64(a) << uint64(b)) }),
	NewSym("urshift"): intBinOp(func(a, b int64) int64 { return int64(uint64(a) >> uint64(b)) }),
	NewSym("fadd"):    floatBinOp(func(a, b float64) float64 { return a + b }),
	NewSym("fsub"):    floatBinOp(func(a, b float64) float64 { return a - b }),
	NewSym("fneg"):    floatUnOp(func(a float64) float64 { return -a }),
	NewSym("fmul"):    floatBinOp(func(a, b float64) float64 { return a * b }),
	NewSym("fdiv"):    floatBinOp(func(a, b float64) float64 { return a / b }),
	NewSym("fmod"):    floatBinOp(math.Mod),
	NewSym("fsqrt"):   floatUnOp(math.Sqrt),
	NewSym("ftoi"):    opFtoi,
	NewSym("itof"):    opItof,
	NewSym("itos"):    opItos,
	NewSym("stoi"):    opStoi,
	NewSym("branch"):  opBranch,
	NewSym("push"):    opPush,
	NewSym("print"):   opPrint,
	NewSym("exit"):    opExit,
	NewSym("fork"):    opFork,
}

// opNew: create a new node linked as frame[a].
func opNew(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	if g.Salloc(frame, a) == NullRef {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opCopy: frame[b] <- frame[a]; fails if a is None.
func opCopy(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	val, ok := loadNotNone(g, frame, a)
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, val) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opLoad: read REF from frame[a], load (that node)[b] into frame[c].
func opLoad(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	c, ok := operand(g, pc, 2)
	if !ok {
		return fatal()
	}

	sec, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}
	val, ok := loadNotNone(g, sec, b)
	if !ok {
		return fatal()
	}
	if g.Set(frame, c, val) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opSave: read value frame[a], read REF from frame[c], store into
// (that node)[b].
func opSave(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	c, ok := operand(g, pc, 2)
	if !ok {
		return fatal()
	}

	val, ok := loadNotNone(g, frame, a)
	if !ok {
		return fatal()
	}
	sec, ok := loadRef(g, frame, c)
	if !ok {
		return fatal()
	}
	if g.Set(sec, b, val) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opDrop: delete key b on node referenced by frame[a].
func opDrop(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}

	sec, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}
	if g.Del(sec, b) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opCount: frame[b] <- INT(size of node frame[a]).
func opCount(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}

	sec, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, Int(int64(g.Size(sec)))) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opIload: frame[c] <- SYM(key at index frame[b] on node frame[a]).
func opIload(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	c, ok := operand(g, pc, 2)
	if !ok {
		return fatal()
	}

	sec, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}
	idx, ok := g.Get(frame, b).Int()
	if !ok {
		return fatal()
	}
	if idx < 0 || idx >= int64(g.Size(sec)) {
		return fatal()
	}
	key := g.Index(sec, int(idx))

	if g.Set(frame, c, SymVal(key)) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

func intUnOp(f func(int64) int64) OpFunc {
	return func(g *Graph, frame, pc Ref) Step {
		a, ok := operand(g, pc, 0)
		if !ok {
			return fatal()
		}
		b, ok := operand(g, pc, 1)
		if !ok {
			return fatal()
		}
		av, ok := g.Get(frame, a).Int()
		if !ok {
			return fatal()
		}
		if g.Set(frame, b, Int(f(av))) != nil {
			return fatal()
		}
		return advance(g, frame, pc)
	}
}

func intBinOp(f func(a, b int64) int64) OpFunc {
	return func(g *Graph, frame, pc Ref) Step {
		a, ok := operand(g, pc, 0)
		if !ok {
			return fatal()
		}
		b, ok := operand(g, pc, 1)
		if !ok {
			return fatal()
		}
		c, ok := operand(g, pc, 2)
		if !ok {
			return fatal()
		}
		av, ok := g.Get(frame, a).Int()
		if !ok {
			return fatal()
		}
		bv, ok := g.Get(frame, b).Int()
		if !ok {
			return fatal()
		}
		if g.Set(frame, c, Int(f(av, bv))) != nil {
			return fatal()
		}
		return advance(g, frame, pc)
	}
}

// intBinOpFatalOnZero wraps an integer binop that would panic (Go's
// division by zero traps, unlike C's UB) so div/mod by zero terminates
// the process like any other fatal opcode condition instead of
// crashing the whole runtime.
func intBinOpFatalOnZero(f func(a, b int64) int64) OpFunc {
	inner := intBinOp(f)
	return func(g *Graph, frame, pc Ref) (result Step) {
		defer func() {
			if recover() != nil {
				result = fatal()
			}
		}()
		return inner(g, frame, pc)
	}
}

func floatUnOp(f func(float64) float64) OpFunc {
	return func(g *Graph, frame, pc Ref) Step {
		a, ok := operand(g, pc, 0)
		if !ok {
			return fatal()
		}
		b, ok := operand(g, pc, 1)
		if !ok {
			return fatal()
		}
		av, ok := g.Get(frame, a).Float()
		if !ok {
			return fatal()
		}
		if g.Set(frame, b, Float(f(av))) != nil {
			return fatal()
		}
		return advance(g, frame, pc)
	}
}

func floatBinOp(f func(a, b float64) float64) OpFunc {
	return func(g *Graph, frame, pc Ref) Step {
		a, ok := operand(g, pc, 0)
		if !ok {
			return fatal()
		}
		b, ok := operand(g, pc, 1)
		if !ok {
			return fatal()
		}
		c, ok := operand(g, pc, 2)
		if !ok {
			return fatal()
		}
		av, ok := g.Get(frame, a).Float()
		if !ok {
			return fatal()
		}
		bv, ok := g.Get(frame, b).Float()
		if !ok {
			return fatal()
		}
		if g.Set(frame, c, Float(f(av, bv))) != nil {
			return fatal()
		}
		return advance(g, frame, pc)
	}
}

func opFtoi(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	av, ok := g.Get(frame, a).Float()
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, Int(int64(av))) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

func opItof(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	av, ok := g.Get(frame, a).Int()
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, Float(float64(av))) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opItos: bit-reinterpret, not a numeric conversion — preserves the
// exact 64-bit pattern between INT and SYM.
func opItos(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	av, ok := g.Get(frame, a).Int()
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, SymVal(symFromPack(uint64(av)))) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

func opStoi(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}
	av, ok := g.Get(frame, a).Sym()
	if !ok {
		return fatal()
	}
	if g.Set(frame, b, Int(int64(av.pack()))) != nil {
		return fatal()
	}
	return advance(g, frame, pc)
}

// opBranch: compare frame[a] and frame[b] (same kind required; NONE
// compares equal; REF/SYM/INT by numeric encoding; FLOAT by IEEE
// order), then jump via pc.lt/eq/gt.
func opBranch(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	b, ok := operand(g, pc, 1)
	if !ok {
		return fatal()
	}

	av := g.Get(frame, a)
	bv := g.Get(frame, b)
	if bv.Kind() != av.Kind() {
		return fatal()
	}

	var cmp int
	switch av.Kind() {
	case KindInt, KindSym, KindRef:
		an, bn := av.numEncoding(), bv.numEncoding()
		switch {
		case an < bn:
			cmp = -1
		case an == bn:
			cmp = 0
		default:
			cmp = 1
		}
	case KindFloat:
		af, _ := av.Float()
		bf, _ := bv.Float()
		switch {
		case af < bf:
			cmp = -1
		case af == bf:
			cmp = 0
		default:
			cmp = 1
		}
	case KindNone:
		cmp = 0
	default:
		return fatal()
	}

	var branchKey Sym
	switch {
	case cmp < 0:
		branchKey = symLt
	case cmp == 0:
		branchKey = symEq
	default:
		branchKey = symGt
	}

	target, ok := loadRef(g, pc, branchKey)
	if !ok {
		return fatal()
	}
	if g.Set(frame, symInstPntr, RefVal(target)) != nil {
		return fatal()
	}
	return Step{Kind: StepAdvance, Next: frame}
}

// opPush: frame.instpntr <- pc.next (resume point for this frame once
// something sets it running again), then switch execution to
// frame[a], a primitive call.
func opPush(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}

	next, ok := loadRef(g, pc, symNext)
	if !ok {
		return fatal()
	}
	if g.Set(frame, symInstPntr, RefVal(next)) != nil {
		return fatal()
	}

	invoke, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}
	return Step{Kind: StepSwitch, Next: invoke}
}

// opExit: scheduler primitive ending the current process cleanly.
func opExit(g *Graph, frame, pc Ref) Step {
	return Step{Kind: StepExit}
}

// opFork: scheduler primitive. frame[a] names the frame of a new
// process to start; the current process advances normally.
func opFork(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	invoke, ok := loadRef(g, frame, a)
	if !ok {
		return fatal()
	}

	adv := advance(g, frame, pc)
	if adv.Kind != StepAdvance {
		return adv
	}
	return Step{Kind: StepFork, Next: adv.Next, Spawn: invoke}
}

// opPrint: format frame[a] for the debug sink, as "[pc@frame]: text.".
func opPrint(g *Graph, frame, pc Ref) Step {
	a, ok := operand(g, pc, 0)
	if !ok {
		return fatal()
	}
	val, ok := loadNotNone(g, frame, a)
	if !ok {
		return fatal()
	}

	fmt.Fprintf(g.sink(), "[%d@%d]: %s.\n", pc, frame, val.String())

	return advance(g, frame, pc)
}
