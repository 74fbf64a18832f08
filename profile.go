package nodel

import (
	"os"
	"sync"
	"time"

	"github.com/google/pprof/profile"
)

// OpcodeProfiler accumulates a count of ticks spent executing each
// opcode across a runtime's lifetime. It attaches to a Runtime the same
// way a CPUProfiler attaches to a wazero module: the caller observes
// every tick and the profiler turns the tallies into a pprof Profile
// on demand, so a nodel program can be profiled with the standard
// go tool pprof viewers without the runtime needing to know anything
// about the profile format.
type OpcodeProfiler struct {
	mutex  sync.Mutex
	counts map[Sym]int64
	epoch  time.Time
	now    func() time.Time
}

// NewOpcodeProfiler returns a profiler ready to StartProfile. now is
// used to timestamp the profile window; time.Now is a valid choice.
func NewOpcodeProfiler(now func() time.Time) *OpcodeProfiler {
	return &OpcodeProfiler{now: now}
}

// StartProfile begins accumulating opcode counts. Returns false if a
// profile was already in progress.
func (p *OpcodeProfiler) StartProfile() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.counts != nil {
		return false
	}
	p.counts = make(map[Sym]int64)
	p.epoch = p.now()
	return true
}

// Observe records one tick of opcode op. It is safe to call from the
// same goroutine driving Runtime.Step, and a no-op if no profile is
// currently started.
func (p *OpcodeProfiler) Observe(op Sym) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.counts != nil {
		p.counts[op]++
	}
}

// StopProfile ends accumulation and returns the accumulated counts as
// a pprof Profile with a single "ticks" sample type, one Location and
// Function per distinct opcode. Returns nil if no profile was started.
func (p *OpcodeProfiler) StopProfile() *profile.Profile {
	p.mutex.Lock()
	counts, epoch := p.counts, p.epoch
	p.counts = nil
	p.mutex.Unlock()

	if counts == nil {
		return nil
	}
	return buildOpcodeProfile(counts, epoch, p.now())
}

func buildOpcodeProfile(counts map[Sym]int64, start, end time.Time) *profile.Profile {
	prof := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "ticks", Unit: "count"},
		},
		Sample:        make([]*profile.Sample, 0, len(counts)),
		Location:      make([]*profile.Location, 0, len(counts)),
		Function:      make([]*profile.Function, 0, len(counts)),
		TimeNanos:     start.UnixNano(),
		DurationNanos: int64(end.Sub(start)),
	}

	id := uint64(1)
	for op, n := range counts {
		name := op.String()

		fn := &profile.Function{
			ID:   id,
			Name: name,
		}
		loc := &profile.Location{
			ID:   id,
			Line: []profile.Line{{Function: fn}},
		}
		id++

		prof.Function = append(prof.Function, fn)
		prof.Location = append(prof.Location, loc)
		prof.Sample = append(prof.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{n},
		})
	}

	return prof
}

// WriteProfile writes prof to path in the standard gzip-compressed
// pprof wire format.
func WriteProfile(path string, prof *profile.Profile) error {
	w, err := os.Create(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return prof.Write(w)
}
