package dedupe

import (
	"sync"
	"testing"
)

func TestSet_ObserveFirstOnly(t *testing.T) {
	s := New()

	if !s.ObserveString("missing barrier") {
		t.Error("first ObserveString() = false, want true")
	}
	if s.ObserveString("missing barrier") {
		t.Error("second ObserveString() = true, want false")
	}
	if !s.ObserveString("duplicate begin") {
		t.Error("ObserveString() of a different key = false, want true")
	}

	if got := s.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if got := s.Count(StringHasher("missing barrier")); got != 2 {
		t.Errorf("Count() = %d, want 2", got)
	}

	stats := s.Stats()
	if stats.Unique != 2 || stats.Repeats != 1 {
		t.Errorf("Stats() = %+v, want {Unique:2 Repeats:1}", stats)
	}
}

func TestSet_Reset(t *testing.T) {
	s := New()
	s.Observe(42)
	s.Reset()

	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", s.Len())
	}
	if !s.Observe(42) {
		t.Error("Observe() after Reset = false, want true")
	}
}

func TestSet_Concurrent(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range 100 {
				if s.Observe(uint64(k)) {
					mu.Lock()
					firsts++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if firsts != 100 {
		t.Errorf("first sightings = %d, want 100", firsts)
	}
	if got := s.Stats().Repeats; got != 700 {
		t.Errorf("Stats().Repeats = %d, want 700", got)
	}
}

func TestStringHasher_Stable(t *testing.T) {
	if StringHasher("a") != StringHasher("a") {
		t.Error("StringHasher is not deterministic")
	}
	if StringHasher("a") == StringHasher("b") {
		t.Error("StringHasher(a) == StringHasher(b)")
	}
}
