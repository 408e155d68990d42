package window

import (
	"sync"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
)

// headlessTick is the update-callback interval of a headless message loop.
const headlessTick = 16 * time.Millisecond

// HeadlessWindow is a Window without a native surface. Its size is set in code and its
// input signals are raised through the embedded Emit* methods, which makes it the window
// used for offscreen rendering and tests.
type HeadlessWindow interface {
	Window

	// SetSize changes the drawable size and raises the resize signal.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	SetSize(width, height int)

	// EmitPointerDown raises a pointer-down signal.
	EmitPointerDown(x, y float64, width, height int)

	// EmitTouchStart raises a touch-start signal.
	EmitTouchStart(points []TouchPoint, width, height int)

	// EmitKeyDown raises a key-down signal.
	EmitKeyDown(keyCode uint32)
}

type headlessWindow struct {
	Callbacks

	mu     sync.Mutex
	title  string
	width  int
	height int

	closed    chan struct{}
	closeOnce sync.Once
}

var _ HeadlessWindow = &headlessWindow{}

// NewHeadlessWindow creates a HeadlessWindow. A zero width or height is kept as is, which
// models a surface that has not been laid out yet.
//
// Parameters:
//   - options: window options; only title, width and height apply
//
// Returns:
//   - HeadlessWindow: the window
func NewHeadlessWindow(options ...WindowBuilderOption) HeadlessWindow {
	s := ApplyOptions(options...)
	return &headlessWindow{
		title:  s.Title,
		width:  s.Width,
		height: s.Height,
		closed: make(chan struct{}),
	}
}

func (w *headlessWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return nil
}

func (w *headlessWindow) IsRunning() bool {
	select {
	case <-w.closed:
		return false
	default:
		return true
	}
}

func (w *headlessWindow) Close() error {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
	return nil
}

func (w *headlessWindow) ProcessMessages() {
	ticker := time.NewTicker(headlessTick)
	defer ticker.Stop()
	for {
		select {
		case <-w.closed:
			return
		case <-ticker.C:
			w.EmitUpdate()
		}
	}
}

func (w *headlessWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *headlessWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

func (w *headlessWindow) SetSize(width, height int) {
	w.mu.Lock()
	w.width = width
	w.height = height
	w.mu.Unlock()
	w.EmitResize(width, height)
}
