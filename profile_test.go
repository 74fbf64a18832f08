package nodel

import (
	"testing"
	"time"
)

func TestOpcodeProfilerAccumulatesCounts(t *testing.T) {
	p := NewOpcodeProfiler(time.Now)
	if !p.StartProfile() {
		t.Fatal("first StartProfile should succeed")
	}
	if p.StartProfile() {
		t.Fatal("StartProfile while already running should fail")
	}

	add, exit := NewSym("add"), NewSym("exit")
	p.Observe(add)
	p.Observe(add)
	p.Observe(exit)

	prof := p.StopProfile()
	if prof == nil {
		t.Fatal("StopProfile should return a profile")
	}
	if len(prof.SampleType) != 1 || prof.SampleType[0].Type != "ticks" {
		t.Fatalf("SampleType = %v, want a single ticks entry", prof.SampleType)
	}

	counts := make(map[string]int64)
	for _, s := range prof.Sample {
		name := s.Location[0].Line[0].Function.Name
		counts[name] += s.Value[0]
	}
	if counts["add"] != 2 || counts["exit"] != 1 {
		t.Fatalf("counts = %v, want add:2 exit:1", counts)
	}
}

func TestOpcodeProfilerStopWithoutStartReturnsNil(t *testing.T) {
	p := NewOpcodeProfiler(time.Now)
	if p.StopProfile() != nil {
		t.Fatal("StopProfile without a prior StartProfile should return nil")
	}
}

func TestOpcodeProfilerObserveIsNoOpWhenNotStarted(t *testing.T) {
	p := NewOpcodeProfiler(time.Now)
	p.Observe(NewSym("add")) // must not panic
	p.StartProfile()
	prof := p.StopProfile()
	if len(prof.Sample) != 0 {
		t.Fatalf("len(Sample) = %d, want 0 (observation before start should be dropped)", len(prof.Sample))
	}
}
