package window

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// TouchPoint is one contact of a touch-start event, in client coordinates.
type TouchPoint struct {
	X, Y float64
}

// Window provides the drawable surface and the input signals the engine consumes.
// Implementations live in this package (headless) and in window/desktop (GLFW).
type Window interface {
	// SetUpdateCallback sets the function called each message loop iteration.
	//
	// Parameters:
	//   - callback: function to call (or nil to disable)
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the drawable surface is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels (or nil to disable)
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the key code, see common.Key* (or nil to disable)
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetPointerDownCallback sets the callback for primary pointer presses.
	// The callback receives the client coordinates together with the client area size
	// they are measured against, which may differ from the framebuffer size on high-DPI displays.
	//
	// Parameters:
	//   - callback: function receiving x, y and the client width and height (or nil to disable)
	SetPointerDownCallback(callback func(x, y float64, width, height int))

	// SetTouchStartCallback sets the callback for touch-start events.
	//
	// Parameters:
	//   - callback: function receiving the contacts and the client width and height (or nil to disable)
	SetTouchStartCallback(callback func(points []TouchPoint, width, height int))

	// SurfaceDescriptor returns the WebGPU surface descriptor for this window, or nil when the
	// window has no native surface.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the descriptor or nil
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning reports whether the window is still open.
	//
	// Returns:
	//   - bool: true until Close is called or the user closes the window
	IsRunning() bool

	// Close closes the window. Closing twice is a no-op.
	//
	// Returns:
	//   - error: error if the platform window could not be destroyed
	Close() error

	// ProcessMessages runs the message loop until the window closes.
	ProcessMessages()

	// Width returns the drawable width in pixels.
	Width() int

	// Height returns the drawable height in pixels.
	Height() int
}

// Callbacks stores the registered event callbacks. Window implementations embed it, which
// supplies the Set*Callback methods, and call the Emit* methods from their event sources.
type Callbacks struct {
	mu           sync.Mutex
	onUpdate     func()
	onResize     func(width, height int)
	onKeyDown    func(keyCode uint32)
	onPointer    func(x, y float64, width, height int)
	onTouchStart func(points []TouchPoint, width, height int)
}

// SetUpdateCallback sets the function called each message loop iteration.
//
// Parameters:
//   - callback: function to call (or nil to disable)
func (c *Callbacks) SetUpdateCallback(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = callback
}

// SetResizeCallback sets the function called when the drawable surface is resized.
//
// Parameters:
//   - callback: function receiving the new width and height in pixels (or nil to disable)
func (c *Callbacks) SetResizeCallback(callback func(width, height int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResize = callback
}

// SetKeyDownCallback sets the function called on key presses.
//
// Parameters:
//   - callback: function receiving the key code (or nil to disable)
func (c *Callbacks) SetKeyDownCallback(callback func(keyCode uint32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onKeyDown = callback
}

// SetPointerDownCallback sets the function called on primary pointer presses.
//
// Parameters:
//   - callback: function receiving the client coordinates and client size (or nil to disable)
func (c *Callbacks) SetPointerDownCallback(callback func(x, y float64, width, height int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onPointer = callback
}

// SetTouchStartCallback sets the function called on touch-start events.
//
// Parameters:
//   - callback: function receiving the contacts and client size (or nil to disable)
func (c *Callbacks) SetTouchStartCallback(callback func(points []TouchPoint, width, height int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onTouchStart = callback
}

// EmitUpdate invokes the update callback if one is set.
func (c *Callbacks) EmitUpdate() {
	c.mu.Lock()
	cb := c.onUpdate
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// EmitResize invokes the resize callback if one is set.
func (c *Callbacks) EmitResize(width, height int) {
	c.mu.Lock()
	cb := c.onResize
	c.mu.Unlock()
	if cb != nil {
		cb(width, height)
	}
}

// EmitKeyDown invokes the key-down callback if one is set.
func (c *Callbacks) EmitKeyDown(keyCode uint32) {
	c.mu.Lock()
	cb := c.onKeyDown
	c.mu.Unlock()
	if cb != nil {
		cb(keyCode)
	}
}

// EmitPointerDown invokes the pointer-down callback if one is set.
func (c *Callbacks) EmitPointerDown(x, y float64, width, height int) {
	c.mu.Lock()
	cb := c.onPointer
	c.mu.Unlock()
	if cb != nil {
		cb(x, y, width, height)
	}
}

// EmitTouchStart invokes the touch-start callback if one is set.
func (c *Callbacks) EmitTouchStart(points []TouchPoint, width, height int) {
	c.mu.Lock()
	cb := c.onTouchStart
	c.mu.Unlock()
	if cb != nil {
		cb(points, width, height)
	}
}
