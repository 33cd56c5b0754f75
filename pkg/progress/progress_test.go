package progress

import (
	"testing"

	"github.com/mirandadam/hsync/pkg/events"
)

func TestETA(t *testing.T) {
	tests := []struct {
		remaining int64
		rate      float64
		want      string
	}{
		{0, 100, "done"},
		{-5, 100, "done"},
		{100, 0, "--"},
		{1000, 100, "10s"},
		{3600 * 100, 100, "1h0m0s"},
	}
	for _, tt := range tests {
		if got := eta(tt.remaining, tt.rate); got != tt.want {
			t.Errorf("eta(%d, %.0f) = %q, want %q", tt.remaining, tt.rate, got, tt.want)
		}
	}
}

func TestETACapped(t *testing.T) {
	if got := eta(1<<50, 1); got != ">99h" {
		t.Errorf("huge eta = %q, want >99h", got)
	}
}

func TestAbsorbTracksTotals(t *testing.T) {
	r := New(nil, 1000, 500)

	r.absorb(&events.Event{Type: events.EventFileStarted, Path: "/src/a", Bytes: 600})
	r.absorb(&events.Event{Type: events.EventBlockWritten, Path: "/src/a", Bytes: 200})
	r.absorb(&events.Event{Type: events.EventBlockWritten, Path: "/src/a", Bytes: 400})

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.backlogBytes != 0 {
		t.Errorf("backlog = %d, want clamped to 0", r.backlogBytes)
	}
	if r.sessionBytes != 600 {
		t.Errorf("session = %d, want 600", r.sessionBytes)
	}
	if r.lifetime != 1600 {
		t.Errorf("lifetime = %d, want 1600", r.lifetime)
	}
	if r.currentDone != 600 {
		t.Errorf("current file progress = %d, want 600", r.currentDone)
	}
}
