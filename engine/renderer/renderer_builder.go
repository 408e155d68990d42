package renderer

import "github.com/Carmen-Shannon/oxy-flowers/common"

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// MaxPixelRatio is the largest supported ratio of surface pixels to render-target pixels.
const MaxPixelRatio = 2.0

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = mode
	}
}

// WithPixelRatio sets how many surface pixels the software backend draws per render-target
// pixel along each axis. The ratio is clamped to [1, MaxPixelRatio]. The WebGPU surface always
// matches the window framebuffer, which already carries the display scale.
//
// Parameters:
//   - ratio: the pixel ratio
//
// Returns:
//   - RendererBuilderOption: a function that applies the pixel ratio option to a renderer
func WithPixelRatio(ratio float64) RendererBuilderOption {
	return func(r *renderer) {
		if ratio != ratio {
			ratio = 1
		}
		r.pixelRatio = common.Clamp(ratio, 1, MaxPixelRatio)
	}
}

// WithWorkers sets the number of pool workers the software backend shades rows with.
// Zero or below selects one worker per CPU.
//
// Parameters:
//   - workers: the worker count
//
// Returns:
//   - RendererBuilderOption: a function that applies the worker option to a renderer
func WithWorkers(workers int) RendererBuilderOption {
	return func(r *renderer) {
		r.workers = workers
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). It does not select BackendTypeSoftware.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
