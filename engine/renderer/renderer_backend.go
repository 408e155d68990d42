package renderer

import (
	"errors"
	"image"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware selects the CPU backend, which runs the fragment programs in Go
	// and keeps the visible surface in memory.
	BackendTypeSoftware
)

// String returns the configuration name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

var (
	// ErrNotReady reports that the surface or GPU context is not available yet. A frame that
	// hits it is skipped and retried on the next tick.
	ErrNotReady = errors.New("renderer: surface not ready")

	// ErrDeviceLost reports an unrecoverable loss of the GPU device or a failed allocation.
	ErrDeviceLost = errors.New("renderer: device lost")

	// ErrSnapshotUnsupported reports that the backend cannot read back the visible surface.
	ErrSnapshotUnsupported = errors.New("renderer: snapshot unsupported by backend")

	// ErrTargetAliased reports a feedback pass asked to read and write the same render target.
	ErrTargetAliased = errors.New("renderer: feedback source and destination are the same target")
)

// RendererBackend is the interface every backend implements. The Renderer validates arguments
// and serializes calls before delegating here.
type RendererBackend interface {
	// Ready reports whether the visible surface and context are available for drawing.
	Ready() bool

	// ConfigureSurface sizes the visible surface. Sizes of zero or below leave the backend not ready.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: ErrDeviceLost wrapped with the cause if the surface could not be configured
	ConfigureSurface(width, height int) error

	// SurfaceSize returns the current visible surface size in pixels.
	SurfaceSize() (width, height int)

	// SetPresentMode sets the surface present mode. It applies at the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// NewRenderTarget allocates an offscreen color target.
	//
	// Parameters:
	//   - label: debug label of the target
	//   - width: the target width in pixels
	//   - height: the target height in pixels
	//
	// Returns:
	//   - RenderTarget: the target
	//   - error: ErrDeviceLost wrapped with the cause if allocation failed
	NewRenderTarget(label string, width, height int) (RenderTarget, error)

	// Clear fills a render target with an opaque color.
	Clear(target RenderTarget, color common.RGB) error

	// RenderFeedback runs the flowers fragment program over dst, reading src as the previous frame.
	RenderFeedback(dst, src RenderTarget, uniforms material.GPUFlowerUniforms) error

	// Composite draws src onto the visible surface and presents it.
	Composite(src RenderTarget) error

	// Snapshot returns a copy of the visible surface.
	Snapshot() (*image.RGBA, error)

	// Release frees every backend-owned resource.
	Release()
}
