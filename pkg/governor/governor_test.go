package governor

import (
	"context"
	"testing"
	"time"
)

func TestUnlimitedNeverBlocks(t *testing.T) {
	g := New(0)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := g.WaitN(ctx, 1<<20); err != nil {
			t.Fatalf("unlimited WaitN returned error: %v", err)
		}
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("unlimited governor should not throttle")
	}
}

func TestRateEnforced(t *testing.T) {
	// 1 MiB/s with an initially full bucket: 3 MiB total should take
	// at least ~2s (first MiB free from the burst allowance).
	g := New(1 << 20)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := g.WaitN(ctx, 1<<20); err != nil {
			t.Fatalf("WaitN: %v", err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 1900*time.Millisecond {
		t.Errorf("3 MiB at 1 MiB/s finished in %v, want >= ~2s", elapsed)
	}
}

func TestOversizedRequestSliced(t *testing.T) {
	// A request above the bucket capacity must still complete
	g := New(1024)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if err := g.WaitN(ctx, 3*1024); err != nil {
		t.Fatalf("oversized WaitN: %v", err)
	}
	if time.Since(start) < 1900*time.Millisecond {
		t.Error("3 KiB at 1 KiB/s should take at least ~2s")
	}
}

func TestWaitCancellation(t *testing.T) {
	g := New(1024)
	// Drain the initial burst
	if err := g.WaitN(context.Background(), 1024); err != nil {
		t.Fatalf("drain: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := g.WaitN(ctx, 1024); err == nil {
		t.Error("WaitN should fail once the context expires")
	}
}
