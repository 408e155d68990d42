package profiler

import (
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/engine/clock"
)

func TestProfilerReportsPerInterval(t *testing.T) {
	src := clock.NewManualSource(time.Unix(0, 0))
	p := NewProfiler(src)

	for i := 0; i < 49; i++ {
		src.Advance(20 * time.Millisecond)
		if p.Tick() {
			t.Fatalf("reported after %d frames", i+1)
		}
	}
	p.Skip()
	src.Advance(20 * time.Millisecond)
	if !p.Tick() {
		t.Fatal("no report after the interval elapsed")
	}
	s := p.Last()
	if s.FPS < 49.9 || s.FPS > 50.1 {
		t.Errorf("FPS = %v, want 50", s.FPS)
	}
	if s.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", s.Skipped)
	}
}

func TestProfilerInterval(t *testing.T) {
	src := clock.NewManualSource(time.Unix(0, 0))
	p := NewProfiler(src)
	p.SetInterval(100 * time.Millisecond)
	p.SetInterval(0)
	src.Advance(100 * time.Millisecond)
	if !p.Tick() {
		t.Error("no report at the custom interval")
	}
}
