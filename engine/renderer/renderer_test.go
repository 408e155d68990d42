package renderer

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
)

func newSoftware(t *testing.T, width, height int, options ...RendererBuilderOption) Renderer {
	t.Helper()
	win := window.NewHeadlessWindow(window.WithWidth(width), window.WithHeight(height))
	r, err := NewRenderer(BackendTypeSoftware, win, append([]RendererBuilderOption{WithWorkers(2)}, options...)...)
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	t.Cleanup(r.Release)
	return r
}

func TestNewRendererWGPURequiresSurface(t *testing.T) {
	win := window.NewHeadlessWindow()
	if _, err := NewRenderer(BackendTypeWGPU, win); err == nil {
		t.Fatal("expected error creating wgpu backend on a headless window")
	}
}

func TestSoftwareNotReadyAtZeroSize(t *testing.T) {
	r := newSoftware(t, 0, 0)
	if r.Ready() {
		t.Fatal("Ready() = true for a 0x0 surface")
	}
	sc, err := NewSwapChain(r, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	err = r.RenderFeedback(sc.Write(), sc.Read(), material.GPUFlowerUniforms{})
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("RenderFeedback() error = %v, want ErrNotReady", err)
	}
	if err := r.Composite(sc.Write()); !errors.Is(err, ErrNotReady) {
		t.Errorf("Composite() error = %v, want ErrNotReady", err)
	}

	if err := r.Resize(8, 4); err != nil {
		t.Fatal(err)
	}
	if !r.Ready() {
		t.Error("Ready() = false after resize to 8x4")
	}
}

func TestSwapIsItsOwnInverse(t *testing.T) {
	r := newSoftware(t, 4, 4)
	sc, err := NewSwapChain(r, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	read, write := sc.Read(), sc.Write()
	if read == write {
		t.Fatal("read and write roles share a target")
	}
	sc.Swap()
	if sc.Read() != write || sc.Write() != read {
		t.Error("Swap() did not exchange roles")
	}
	sc.Swap()
	if sc.Read() != read || sc.Write() != write {
		t.Error("two swaps did not restore roles")
	}
}

func TestSwapChainResize(t *testing.T) {
	r := newSoftware(t, 4, 4)
	sc, err := NewSwapChain(r, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	before := sc.Targets()
	if err := sc.Resize(30, 20); err != nil {
		t.Fatal(err)
	}
	for i, tgt := range sc.Targets() {
		if tgt != before[i] {
			t.Errorf("target %d replaced instead of resized in place", i)
		}
		if tgt.Width() != 30 || tgt.Height() != 20 {
			t.Errorf("target %d size = %dx%d, want 30x20", i, tgt.Width(), tgt.Height())
		}
	}
	if w, h := sc.Size(); w != 30 || h != 20 {
		t.Errorf("Size() = %dx%d", w, h)
	}
}

func TestFeedbackAliasedTargets(t *testing.T) {
	r := newSoftware(t, 4, 4)
	sc, err := NewSwapChain(r, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.RenderFeedback(sc.Read(), sc.Read(), material.GPUFlowerUniforms{}); !errors.Is(err, ErrTargetAliased) {
		t.Errorf("RenderFeedback(x, x) error = %v, want ErrTargetAliased", err)
	}
}

func TestClearAndComposite(t *testing.T) {
	r := newSoftware(t, 6, 3)
	sc, err := NewSwapChain(r, 6, 3)
	if err != nil {
		t.Fatal(err)
	}
	bg := common.RGB{R: 1, G: 0, B: 0}
	if err := r.Clear(sc.Read(), bg); err != nil {
		t.Fatal(err)
	}
	if err := r.Composite(sc.Read()); err != nil {
		t.Fatal(err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 6 || img.Bounds().Dy() != 3 {
		t.Fatalf("snapshot size = %v", img.Bounds())
	}
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 || img.Pix[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want opaque red", i/4, img.Pix[i:i+4])
		}
	}
}

func TestFeedbackPreservesSourceWithoutStamp(t *testing.T) {
	r := newSoftware(t, 16, 16)
	sc, err := NewSwapChain(r, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	bg := common.RGB{R: 0.2, G: 0.4, B: 0.6}
	if err := r.Clear(sc.Read(), bg); err != nil {
		t.Fatal(err)
	}
	// A stamp far outside the surface leaves the copied previous frame as is.
	u := material.GPUFlowerUniforms{Ratio: 1, StopTime: 5, Point: [2]float32{-10, -10}}
	if err := r.RenderFeedback(sc.Write(), sc.Read(), u); err != nil {
		t.Fatal(err)
	}
	if err := r.Composite(sc.Write()); err != nil {
		t.Fatal(err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := bg.RGBA8()
	for i := 0; i < len(img.Pix); i += 4 {
		if [4]uint8(img.Pix[i:i+4]) != want {
			t.Fatalf("pixel %d = %v, want %v", i/4, img.Pix[i:i+4], want)
		}
	}
}

func TestFeedbackDrawsStamp(t *testing.T) {
	r := newSoftware(t, 64, 64)
	sc, err := NewSwapChain(r, 64, 64)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Clear(sc.Read(), common.White); err != nil {
		t.Fatal(err)
	}
	u := material.GPUFlowerUniforms{
		Ratio:          1,
		StopTime:       10,
		Point:          [2]float32{0.5, 0.3},
		StopRandomizer: [3]float32{0.5, 1, 1},
	}
	if err := r.RenderFeedback(sc.Write(), sc.Read(), u); err != nil {
		t.Fatal(err)
	}
	if err := r.Composite(sc.Write()); err != nil {
		t.Fatal(err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	changed := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 255 || img.Pix[i+1] != 255 || img.Pix[i+2] != 255 {
			changed++
		}
	}
	if changed == 0 {
		t.Error("stamp left every pixel at the background")
	}
}

func TestPixelRatioScalesSurface(t *testing.T) {
	r := newSoftware(t, 10, 5, WithPixelRatio(3))
	if w, h := r.SurfaceSize(); w != 20 || h != 10 {
		t.Errorf("SurfaceSize() = %dx%d, want 20x10 (ratio clamped to 2)", w, h)
	}
	sc, err := NewSwapChain(r, 10, 5)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Clear(sc.Read(), common.White); err != nil {
		t.Fatal(err)
	}
	if err := r.Composite(sc.Read()); err != nil {
		t.Fatal(err)
	}
	img, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 20 {
		t.Errorf("snapshot width = %d", img.Bounds().Dx())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	r := newSoftware(t, 4, 4)
	r.Release()
	r.Release()
	if r.Ready() {
		t.Error("Ready() after Release")
	}
	if _, err := r.Snapshot(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Snapshot() after Release error = %v", err)
	}
}

func TestReleaseStopsWorkers(t *testing.T) {
	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		win := window.NewHeadlessWindow(window.WithWidth(8), window.WithHeight(32))
		r, err := NewRenderer(BackendTypeSoftware, win, WithWorkers(4))
		if err != nil {
			t.Fatal(err)
		}
		sc, err := NewSwapChain(r, 8, 32)
		if err != nil {
			t.Fatal(err)
		}
		if err := r.RenderFeedback(sc.Write(), sc.Read(), material.GPUFlowerUniforms{}); err != nil {
			t.Fatal(err)
		}
		sc.Release()
		r.Release()
	}

	// A few runtime goroutines may linger; forty leaked workers may not.
	const slack = 5
	after := runtime.NumGoroutine()
	deadline := time.Now().Add(3 * time.Second)
	for after > before+slack && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
		after = runtime.NumGoroutine()
	}
	if after > before+slack {
		t.Errorf("NumGoroutine() = %d after Release, want at most %d", after, before+slack)
	}
}
