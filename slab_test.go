package nodel

import "testing"

func TestSlabAllocGetFree(t *testing.T) {
	s := NewSlab[int]()

	a := s.Alloc()
	*s.Get(a) = 10
	b := s.Alloc()
	*s.Get(b) = 20

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if *s.Get(a) != 10 || *s.Get(b) != 20 {
		t.Fatal("Get returned wrong payload")
	}

	s.Free(a)
	if s.Allocated(a) {
		t.Fatal("a should no longer be allocated")
	}
	if s.Len() != 1 {
		t.Fatalf("Len() after Free = %d, want 1", s.Len())
	}

	c := s.Alloc()
	if c != a {
		t.Fatalf("Alloc() after Free should reuse handle %d, got %d", a, c)
	}
	if *s.Get(c) != 0 {
		t.Fatal("reused slot should be zeroed")
	}
}

func TestSlabGetOutOfRange(t *testing.T) {
	s := NewSlab[int]()
	if s.Get(99) != nil {
		t.Fatal("Get of out-of-range handle should return nil")
	}
}

func TestSlabDoubleFreeIsNoOp(t *testing.T) {
	s := NewSlab[int]()
	a := s.Alloc()
	s.Free(a)
	before := s.Len()
	s.Free(a)
	if s.Len() != before {
		t.Fatal("double free should not change Len")
	}
}

func TestSlabIterateAscending(t *testing.T) {
	s := NewSlab[int]()
	var handles []uint64
	for i := 0; i < 5; i++ {
		handles = append(handles, s.Alloc())
	}
	s.Free(handles[1])
	s.Free(handles[3])

	got := s.Iterate()
	want := []uint64{handles[0], handles[2], handles[4]}
	if len(got) != len(want) {
		t.Fatalf("Iterate() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Iterate()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestSlabCapAndFreeCount(t *testing.T) {
	s := NewSlab[int]()
	a := s.Alloc()
	s.Alloc()
	if s.Cap() != 2 {
		t.Fatalf("Cap() = %d, want 2", s.Cap())
	}
	s.Free(a)
	if s.FreeCount() != 1 {
		t.Fatalf("FreeCount() = %d, want 1", s.FreeCount())
	}
}
