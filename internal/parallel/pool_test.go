package parallel

import (
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// Pool Creation Tests
// =============================================================================

func TestPool_Create(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := New(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("New(%d).Workers() = %d, want %d (GOMAXPROCS)", n, pool.Workers(), runtime.GOMAXPROCS(0))
		}
		pool.Close()
	}
}

// =============================================================================
// Run Tests
// =============================================================================

func TestPool_Run(t *testing.T) {
	pool := New(4)
	defer pool.Close()

	var counter atomic.Int64
	jobs := make([]Job, 100)
	for i := range jobs {
		jobs[i] = func() error {
			counter.Add(1)
			return nil
		}
	}

	if err := pool.Run(jobs); err != nil {
		t.Fatalf("Run() = %v, want nil", err)
	}
	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestPool_RunEmpty(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	if err := pool.Run(nil); err != nil {
		t.Errorf("Run(nil) = %v, want nil", err)
	}
}

func TestPool_RunJoinsErrors(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	errA := errors.New("a")
	errB := errors.New("b")
	err := pool.Run([]Job{
		func() error { return errA },
		func() error { return nil },
		func() error { return errB },
	})

	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Run() = %v, want both job errors", err)
	}
}

func TestPool_RunRecoversPanic(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	err := pool.Run([]Job{func() error { panic("boom") }})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("Run() = %v, want *PanicError", err)
	}
	if pe.Job != 0 || pe.Value != "boom" {
		t.Errorf("PanicError = %+v, want job 0 value boom", pe)
	}

	// The worker must survive the panic.
	if err := pool.Run([]Job{func() error { return nil }}); err != nil {
		t.Errorf("Run() after panic = %v, want nil", err)
	}
}

func TestPool_RunSlowJobIsStolenAround(t *testing.T) {
	pool := New(2)
	defer pool.Close()

	var fast atomic.Int64
	jobs := []Job{func() error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}}
	for range 16 {
		jobs = append(jobs, func() error {
			fast.Add(1)
			return nil
		})
	}

	if err := pool.Run(jobs); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if fast.Load() != 16 {
		t.Errorf("fast jobs = %d, want 16", fast.Load())
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestPool_Close(t *testing.T) {
	pool := New(4)
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after Close")
	}
	// Second close must not panic.
	pool.Close()
}

func TestPool_RunAfterClose(t *testing.T) {
	pool := New(2)
	pool.Close()

	err := pool.Run([]Job{func() error { return nil }})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Run() after Close = %v, want ErrClosed", err)
	}
}

func BenchmarkPool_Run_100(b *testing.B) {
	pool := New(4)
	defer pool.Close()

	jobs := make([]Job, 100)
	for i := range jobs {
		jobs[i] = func() error { return nil }
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = pool.Run(jobs)
	}
}
