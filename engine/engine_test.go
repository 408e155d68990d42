package engine

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/clock"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
)

const frameDT = 0.016

func newTestRenderer(t *testing.T, win window.Window) renderer.Renderer {
	t.Helper()
	r, err := renderer.NewRenderer(renderer.BackendTypeSoftware, win, renderer.WithWorkers(2))
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	return r
}

func newTestEngine(t *testing.T, win window.HeadlessWindow, r renderer.Renderer, options ...EngineBuilderOption) Engine {
	t.Helper()
	base := []EngineBuilderOption{
		WithWindow(win),
		WithRenderer(r),
		WithRandomSource(rand.New(rand.NewPCG(3, 5))),
		WithClockSource(clock.NewManualSource(time.Unix(0, 0))),
	}
	e := NewEngine(append(base, options...)...)
	t.Cleanup(e.Dispose)
	return e
}

func newRunningEngine(t *testing.T, options ...EngineBuilderOption) (Engine, window.HeadlessWindow) {
	t.Helper()
	win := window.NewHeadlessWindow(window.WithWidth(32), window.WithHeight(32))
	e := newTestEngine(t, win, newTestRenderer(t, win), options...)
	if err := e.Init(); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	return e, win
}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestStateMachine(t *testing.T) {
	win := window.NewHeadlessWindow(window.WithWidth(16), window.WithHeight(16))
	e := newTestEngine(t, win, newTestRenderer(t, win))

	if got := e.State(); got != StateUninitialized {
		t.Fatalf("State() = %v, want %v", got, StateUninitialized)
	}
	if _, err := e.Start(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Start() before Init error = %v, want ErrNotInitialized", err)
	}
	if _, err := e.Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Snapshot() before Init error = %v, want ErrNotInitialized", err)
	}
	if err := e.Init(); err != nil {
		t.Fatal(err)
	}
	if got := e.State(); got != StateRunning {
		t.Errorf("State() after Init = %v, want %v", got, StateRunning)
	}
	if err := e.Init(); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}

	e.Pause()
	if got := e.State(); got != StatePaused {
		t.Errorf("State() after Pause = %v, want %v", got, StatePaused)
	}
	e.TogglePause()
	if got := e.State(); got != StateRunning {
		t.Errorf("State() after TogglePause = %v, want %v", got, StateRunning)
	}

	e.Dispose()
	e.Resume()
	if got := e.State(); got != StateDisposed {
		t.Errorf("State() after Dispose = %v, want %v", got, StateDisposed)
	}
	if err := e.Init(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Init() after Dispose error = %v, want ErrDisposed", err)
	}
	if _, err := e.Start(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Errorf("Start() after Dispose error = %v, want ErrDisposed", err)
	}
}

func TestInitRequiresRenderer(t *testing.T) {
	e := NewEngine()
	if err := e.Init(); err == nil {
		t.Fatal("Init() without a renderer succeeded")
	}
}

func TestPauseClockPolicy(t *testing.T) {
	for _, freeze := range []bool{true, false} {
		name := "clock runs"
		if freeze {
			name = "clock frozen"
		}
		t.Run(name, func(t *testing.T) {
			e, _ := newRunningEngine(t, WithPauseFreezesClock(freeze))
			e.Interact(24, 16, 32, 32)
			for i := 0; i < 3; i++ {
				e.Frame(frameDT)
			}

			e.Pause()
			before := e.Uniforms()
			clockBefore := e.Elapsed()
			first, err := e.Snapshot()
			if err != nil {
				t.Fatal(err)
			}
			for i := 0; i < 5; i++ {
				e.Frame(frameDT)
				img, err := e.Snapshot()
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(img.Pix, first.Pix) {
					t.Fatalf("paused frame %d changed the composited output", i)
				}
			}

			paused := e.Uniforms()
			if paused.StopTime != before.StopTime {
				t.Errorf("StopTime advanced while paused: %v -> %v", before.StopTime, paused.StopTime)
			}
			wantElapsed := before.ElapsedTime
			if !freeze {
				wantElapsed += 5 * frameDT
			}
			if !approx(paused.ElapsedTime, wantElapsed) {
				t.Errorf("ElapsedTime = %v, want %v", paused.ElapsedTime, wantElapsed)
			}
			wantClock := clockBefore
			if !freeze {
				wantClock += 5 * frameDT
			}
			if got := e.Elapsed(); math.Abs(got-wantClock) > 1e-4 {
				t.Errorf("Elapsed() = %v, want %v", got, wantClock)
			}

			e.Resume()
			e.Frame(frameDT)
			resumed := e.Uniforms()
			if !approx(resumed.StopTime, before.StopTime+frameDT) {
				t.Errorf("StopTime after resume = %v, want %v", resumed.StopTime, before.StopTime+frameDT)
			}
			if resumed.StopSeed != before.StopSeed || resumed.SeedPoint != before.SeedPoint {
				t.Error("resume reset the stamp uniforms")
			}
		})
	}
}

func TestInteractResumes(t *testing.T) {
	e, win := newRunningEngine(t)
	e.Pause()
	win.EmitPointerDown(8, 8, 32, 32)
	if got := e.State(); got != StateRunning {
		t.Fatalf("State() after pointer down = %v, want %v", got, StateRunning)
	}
	e.Frame(frameDT)
	if u := e.Uniforms(); !approx(u.SeedPoint.X(), 0.25) || !approx(u.SeedPoint.Y(), 0.75) {
		t.Errorf("SeedPoint = %v, want (0.25, 0.75)", u.SeedPoint)
	}
}

func TestTouchStartUsesFirstContact(t *testing.T) {
	e, win := newRunningEngine(t)
	win.EmitTouchStart([]window.TouchPoint{{X: 16, Y: 0}, {X: 0, Y: 32}}, 32, 32)
	e.Frame(frameDT)
	if u := e.Uniforms(); !approx(u.SeedPoint.X(), 0.5) || !approx(u.SeedPoint.Y(), 1) {
		t.Errorf("SeedPoint = %v, want (0.5, 1)", u.SeedPoint)
	}
	e.TouchStart(nil, 32, 32)
}

func TestKeyTogglesPause(t *testing.T) {
	e, win := newRunningEngine(t)
	win.EmitKeyDown(common.KeySpace)
	if got := e.State(); got != StatePaused {
		t.Errorf("State() after space = %v, want %v", got, StatePaused)
	}
	win.EmitKeyDown(common.KeyF)
	if got := e.State(); got != StateRunning {
		t.Errorf("State() after F = %v, want %v", got, StateRunning)
	}
}

func TestResizeAppliedNextFrame(t *testing.T) {
	e, win := newRunningEngine(t)
	win.SetSize(60, 20)
	if got := e.Uniforms().AspectRatio; got != 1 {
		t.Fatalf("AspectRatio before frame = %v, want 1", got)
	}
	e.Frame(frameDT)
	if got := e.Uniforms().AspectRatio; got != 3 {
		t.Errorf("AspectRatio after frame = %v, want 3", got)
	}
	img, err := e.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 20 {
		t.Errorf("snapshot size = %v, want 60x20", b)
	}

	win.SetSize(0, 0)
	e.Frame(frameDT)
	if got := e.Uniforms().AspectRatio; got != 1 {
		t.Errorf("AspectRatio after degenerate resize = %v, want 1", got)
	}
}

type scriptedRenderer struct {
	renderer.Renderer
	feedback func() error
}

func (s *scriptedRenderer) RenderFeedback(dst, src renderer.RenderTarget, u material.GPUFlowerUniforms) error {
	return s.feedback()
}

func TestFatalPath(t *testing.T) {
	tests := []struct {
		name     string
		feedback func() error
		want     string
	}{
		{"device lost", func() error { return renderer.ErrDeviceLost }, "device lost"},
		{"panic", func() error { panic("boom") }, "frame panic: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			win := window.NewHeadlessWindow(window.WithWidth(16), window.WithHeight(16))
			r := &scriptedRenderer{Renderer: newTestRenderer(t, win), feedback: tt.feedback}

			var calls atomic.Int32
			notified := make(chan error, 4)
			e := newTestEngine(t, win, r, WithFatalCallback(func(err error) {
				calls.Add(1)
				notified <- err
			}))
			if err := e.Init(); err != nil {
				t.Fatal(err)
			}

			e.Frame(frameDT)
			e.Frame(frameDT)
			select {
			case err := <-notified:
				if !strings.Contains(err.Error(), tt.want) {
					t.Errorf("fatal error = %v, want it to mention %q", err, tt.want)
				}
			case <-time.After(time.Second):
				t.Fatal("fatal callback not invoked")
			}
			if got := e.State(); got != StateFailed {
				t.Errorf("State() = %v, want %v", got, StateFailed)
			}
			if e.Err() == nil {
				t.Error("Err() = nil after failure")
			}

			time.Sleep(20 * time.Millisecond)
			if got := calls.Load(); got != 1 {
				t.Errorf("fatal callback invoked %d times, want 1", got)
			}
			e.Dispose()
			if got := e.State(); got != StateDisposed {
				t.Errorf("State() after Dispose = %v, want %v", got, StateDisposed)
			}
		})
	}
}

func TestNotReadyIsNotFatal(t *testing.T) {
	win := window.NewHeadlessWindow()
	win.SetSize(0, 0)
	r := newTestRenderer(t, win)
	e := newTestEngine(t, win, r)
	if err := e.Init(); err != nil {
		t.Fatal(err)
	}
	start := e.Uniforms().ElapsedTime
	e.Frame(frameDT)
	if got := e.State(); got != StateRunning {
		t.Errorf("State() = %v, want %v", got, StateRunning)
	}
	if got := e.Elapsed(); got != 0 {
		t.Errorf("Elapsed() after a not-ready frame = %v, want 0", got)
	}
	if got := e.Uniforms().ElapsedTime; got != start {
		t.Errorf("ElapsedTime after a not-ready frame = %v, want %v", got, start)
	}

	win.SetSize(8, 8)
	e.Frame(frameDT)
	if got := e.Elapsed(); !approx(float32(got), frameDT) {
		t.Errorf("Elapsed() after a ready frame = %v, want %v", got, frameDT)
	}
	if got := e.Uniforms().ElapsedTime; !approx(got, start+frameDT) {
		t.Errorf("ElapsedTime after a ready frame = %v, want %v", got, start+frameDT)
	}
}

func TestStartAndCancel(t *testing.T) {
	e, _ := newRunningEngine(t, WithRefreshRate(500))
	start := e.Uniforms().ElapsedTime

	h, err := e.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}

	// The manual clock does not advance, so ticked frames carry a zero delta.
	time.Sleep(10 * time.Millisecond)
	h.Cancel()
	select {
	case <-h.Done():
	default:
		t.Fatal("Done() not closed after Cancel")
	}

	e.Frame(frameDT)
	if got := e.Uniforms().ElapsedTime; !approx(got, start+frameDT) {
		t.Errorf("ElapsedTime = %v, want %v", got, start+frameDT)
	}
}

func TestStartDrivesFrames(t *testing.T) {
	src := clock.NewManualSource(time.Unix(0, 0))
	e, _ := newRunningEngine(t, WithRefreshRate(500), WithClockSource(src))
	start := e.Uniforms().ElapsedTime

	ctx, cancel := context.WithCancel(context.Background())
	h, err := e.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for e.Uniforms().ElapsedTime <= start && time.Now().Before(deadline) {
		src.Advance(5 * time.Millisecond)
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-h.Done()
	if got := e.Uniforms().ElapsedTime; got <= start {
		t.Errorf("ElapsedTime = %v, want it to grow past %v", got, start)
	}
}

func TestDemoStamps(t *testing.T) {
	e, _ := newRunningEngine(t,
		WithRefreshRate(1),
		WithDemoStamps(TimedStamp{After: 5 * time.Millisecond, X: 0.75, Y: 0.5}),
	)
	if _, err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		e.Frame(frameDT)
		if u := e.Uniforms(); approx(u.SeedPoint.X(), 0.75) && approx(u.SeedPoint.Y(), 0.5) {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("demo stamp not drawn, SeedPoint = %v", e.Uniforms().SeedPoint)
}

func TestOpeningStampAndTimeOffset(t *testing.T) {
	e, _ := newRunningEngine(t, WithOpeningStamp(0.65, 0.3), WithTimeOffset(0.9))
	e.Frame(frameDT)
	u := e.Uniforms()
	if !approx(u.ElapsedTime, 0.9+frameDT) {
		t.Errorf("ElapsedTime = %v, want %v", u.ElapsedTime, 0.9+frameDT)
	}
	if !approx(u.SeedPoint.X(), 0.65) || !approx(u.SeedPoint.Y(), 0.7) {
		t.Errorf("SeedPoint = %v, want (0.65, 0.7)", u.SeedPoint)
	}
	if u.StopSeed != (common.Vec3{0.5, 1, 1}) {
		t.Errorf("StopSeed = %v, want the first stamp seed", u.StopSeed)
	}
}

func TestDisposeIdempotent(t *testing.T) {
	e, win := newRunningEngine(t)
	if _, err := e.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Dispose()
	e.Dispose()
	if _, err := e.Snapshot(); !errors.Is(err, ErrDisposed) {
		t.Errorf("Snapshot() after Dispose error = %v, want ErrDisposed", err)
	}
	// Callbacks are unregistered; signals after Dispose are ignored.
	win.SetSize(10, 10)
	win.EmitPointerDown(1, 1, 10, 10)
	e.Frame(frameDT)
	if got := e.State(); got != StateDisposed {
		t.Errorf("State() = %v, want %v", got, StateDisposed)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	win := window.NewHeadlessWindow(window.WithWidth(16), window.WithHeight(16))
	e := newTestEngine(t, win, newTestRenderer(t, win))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if got := e.State(); got != StateDisposed {
		t.Errorf("State() = %v, want %v", got, StateDisposed)
	}
	if win.IsRunning() {
		t.Error("window still running after Run returned")
	}
}
