package renderer

import (
	"fmt"
	"image"
	"sync"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend
	released    bool

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	presentMode          PresentMode
	pixelRatio           float64
	workers              int
}

// Renderer defines the interface for the rendering system.
//
// It draws the feedback loop in two passes per frame: RenderFeedback runs the flowers program into
// one offscreen target while reading the other, and Composite copies the written target onto the
// visible surface. The Renderer serializes all calls and delegates to the selected backend.
type Renderer interface {
	// BackendType returns the backend the renderer was created with.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	BackendType() RendererBackendType

	// Ready reports whether the visible surface is available for drawing.
	//
	// Returns:
	//   - bool: false before the surface has a non-zero size, and after Release
	Ready() bool

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: error if the surface could not be configured
	Resize(width, height int) error

	// SurfaceSize returns the size of the visible surface in pixels.
	//
	// Returns:
	//   - int: the surface width
	//   - int: the surface height
	SurfaceSize() (width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync or Uncapped)
	SetPresentMode(mode PresentMode)

	// NewRenderTarget allocates an offscreen color target owned by the backend.
	//
	// Parameters:
	//   - label: the debug label of the target
	//   - width: the target width in pixels (values below 1 are raised to 1)
	//   - height: the target height in pixels (values below 1 are raised to 1)
	//
	// Returns:
	//   - RenderTarget: the target
	//   - error: error if the allocation failed
	NewRenderTarget(label string, width, height int) (RenderTarget, error)

	// Clear fills a render target with an opaque color.
	//
	// Parameters:
	//   - target: the target to clear
	//   - color: the fill color
	//
	// Returns:
	//   - error: ErrNotReady after Release, or a backend error
	Clear(target RenderTarget, color common.RGB) error

	// RenderFeedback runs the flowers fragment program over a full-screen triangle into dst,
	// binding src as the previous-frame texture.
	//
	// Parameters:
	//   - dst: the write target
	//   - src: the read target, which must not be dst
	//   - uniforms: the uniform block for this draw
	//
	// Returns:
	//   - error: ErrTargetAliased if dst is src, ErrNotReady if the surface is not available, or a backend error
	RenderFeedback(dst, src RenderTarget, uniforms material.GPUFlowerUniforms) error

	// Composite draws src onto the visible surface and presents it.
	//
	// Parameters:
	//   - src: the target to show
	//
	// Returns:
	//   - error: ErrNotReady if the surface is not available, or a backend error
	Composite(src RenderTarget) error

	// Snapshot returns a copy of the visible surface as last composited.
	//
	// Returns:
	//   - *image.RGBA: the surface pixels
	//   - error: ErrSnapshotUnsupported on backends without readback, ErrNotReady before the first configure
	Snapshot() (*image.RGBA, error)

	// Release frees every backend resource. Releasing twice is a no-op.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer for the given backend type and window.
//
// The WebGPU backend creates its surface from win.SurfaceDescriptor(), so win must be a native
// window. The software backend only reads the window size. In both cases the surface is
// configured at the window size before NewRenderer returns.
//
// Parameters:
//   - backendType: the backend to create
//   - win: the window providing the surface and its initial size
//   - options: a variadic list of options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: error if the backend could not be created
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:          &sync.Mutex{},
		backendType: backendType,
		presentMode: PresentModeVSync,
		pixelRatio:  1,
	}

	for _, opt := range options {
		opt(r)
	}

	switch backendType {
	case BackendTypeSoftware:
		r.backend = newSoftwareRendererBackend(r.pixelRatio, r.workers)
	case BackendTypeWGPU:
		desc := win.SurfaceDescriptor()
		if desc == nil {
			return nil, fmt.Errorf("wgpu backend requires a native window surface")
		}
		b, err := newWGPURendererBackend(desc, r.forceFallbackAdapter)
		if err != nil {
			return nil, err
		}
		r.backend = b
	default:
		return nil, fmt.Errorf("unknown renderer backend %d", backendType)
	}

	r.backend.SetPresentMode(r.presentMode)
	if err := r.backend.ConfigureSurface(win.Width(), win.Height()); err != nil {
		r.backend.Release()
		return nil, err
	}
	common.Logger().Info("renderer created", "backend", backendType.String(), "width", win.Width(), "height", win.Height())
	return r, nil
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.released && r.backend.Ready()
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil
	}
	return r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SurfaceSize() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.SurfaceSize()
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.SetPresentMode(mode)
}

func (r *renderer) NewRenderTarget(label string, width, height int) (RenderTarget, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrNotReady
	}
	return r.backend.NewRenderTarget(label, max(width, 1), max(height, 1))
}

func (r *renderer) Clear(target RenderTarget, color common.RGB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrNotReady
	}
	return r.backend.Clear(target, color)
}

func (r *renderer) RenderFeedback(dst, src RenderTarget, uniforms material.GPUFlowerUniforms) error {
	if dst == nil || src == nil {
		return fmt.Errorf("render feedback: nil target")
	}
	if dst == src {
		return ErrTargetAliased
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released || !r.backend.Ready() {
		return ErrNotReady
	}
	return r.backend.RenderFeedback(dst, src, uniforms)
}

func (r *renderer) Composite(src RenderTarget) error {
	if src == nil {
		return fmt.Errorf("composite: nil target")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released || !r.backend.Ready() {
		return ErrNotReady
	}
	return r.backend.Composite(src)
}

func (r *renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return nil, ErrNotReady
	}
	return r.backend.Snapshot()
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return
	}
	r.released = true
	r.backend.Release()
	common.Logger().Info("renderer released", "backend", r.backendType.String())
}
