// Package desktop implements window.Window on top of GLFW, producing a native surface
// descriptor for the WebGPU renderer.
package desktop

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window.Callbacks

	mu      sync.Mutex
	window  *glfw.Window
	width   int
	height  int
	running bool
}

var _ window.Window = &glfwWindow{}

// NewWindow creates the GLFW window with input callbacks. It must be called from the main
// goroutine, which it locks to the OS thread, and ProcessMessages must run on the same goroutine.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
//
// Parameters:
//   - options: window options (title, size, size limits)
//
// Returns:
//   - window.Window: the desktop window
//   - error: error if GLFW could not be initialized or the window could not be created
func NewWindow(options ...window.WindowBuilderOption) (window.Window, error) {
	runtime.LockOSThread()
	s := window.ApplyOptions(options...)

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(s.Width, s.Height, s.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(s.MinWidth, s.MinHeight, s.MaxWidth, s.MaxHeight)

	gw := &glfwWindow{
		window:  win,
		running: true,
	}

	// Escape closes; every other press is forwarded.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			gw.mu.Lock()
			gw.running = false
			gw.mu.Unlock()
			win.SetShouldClose(true)
			return
		}
		gw.EmitKeyDown(uint32(key))
	})

	// Cursor positions are in screen coordinates, so they are reported against the window
	// size rather than the framebuffer size.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetMouseButtonCallback
	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft || action != glfw.Press {
			return
		}
		x, y := win.GetCursorPos()
		cw, ch := win.GetSize()
		gw.EmitPointerDown(x, y, cw, ch)
	})

	// Use framebuffer size callback for pixel-accurate resize events.
	// On high-DPI displays the framebuffer size differs from the window size.
	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetFramebufferSizeCallback
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		gw.mu.Lock()
		gw.width = width
		gw.height = height
		gw.mu.Unlock()
		common.Logger().Debug("framebuffer resized", "width", width, "height", height)
		gw.EmitResize(width, height)
	})

	gw.width, gw.height = win.GetFramebufferSize()
	return gw, nil
}

// SurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
// Uses the wgpuglfw bridge package which has per-platform implementations (Windows, X11, Wayland, macOS).
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return wgpuglfw.GetSurfaceDescriptor(w.window)
}

func (w *glfwWindow) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running && w.window != nil && !w.window.ShouldClose()
}

// Close destroys the GLFW window and terminates the GLFW library.
func (w *glfwWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		return nil
	}
	w.running = false
	w.window.SetShouldClose(true)
	w.window.Destroy()
	w.window = nil
	glfw.Terminate()
	return nil
}

// ProcessMessages polls GLFW for pending events until the window should close.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func (w *glfwWindow) ProcessMessages() {
	for w.IsRunning() {
		glfw.WaitEventsTimeout(1.0 / 120)
		w.EmitUpdate()
	}
}

func (w *glfwWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *glfwWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}
