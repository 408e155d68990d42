package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/clock"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flowers/engine/scene"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithRefreshRate sets the frame loop rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRefreshRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.frameInterval = time.Duration(float64(time.Second) / fps)
	}
}

// WithWindow sets the window whose input and resize signals drive the engine.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer the engine draws with. The engine takes ownership and
// releases it on Dispose.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithRandomSource sets the generator stamp seeds are drawn from.
func WithRandomSource(r scene.RandomSource) EngineBuilderOption {
	return func(e *engine) {
		e.sceneOptions = append(e.sceneOptions, scene.WithRandomSource(r))
	}
}

// WithPauseFreezesClock selects whether paused frames discard their delta (true, default)
// or keep advancing the elapsed time (false). Stop time never advances while paused.
//
// Parameters:
//   - freeze: the pause clock policy
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithPauseFreezesClock(freeze bool) EngineBuilderOption {
	return func(e *engine) {
		e.pauseFreezesClock = freeze
	}
}

// WithBackgroundColor sets the color the render targets are primed to.
func WithBackgroundColor(color common.RGB) EngineBuilderOption {
	return func(e *engine) {
		e.sceneOptions = append(e.sceneOptions, scene.WithBackgroundColor(color))
	}
}

// WithTimeOffset sets the elapsed time of the first frame, in seconds.
func WithTimeOffset(seconds float32) EngineBuilderOption {
	return func(e *engine) {
		e.sceneOptions = append(e.sceneOptions, scene.WithTimeOffset(seconds))
	}
}

// WithOpeningStamp requests a stamp at normalized (x, y), y down, before the first frame.
//
// Parameters:
//   - x: the normalized horizontal position
//   - y: the normalized vertical position
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithOpeningStamp(x, y float32) EngineBuilderOption {
	return func(e *engine) {
		e.sceneOptions = append(e.sceneOptions, scene.WithOpeningStamp(x, y))
	}
}

// WithDemoStamps schedules stamps relative to Start. The timers stop on Dispose.
//
// Parameters:
//   - stamps: the timed stamps
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDemoStamps(stamps ...TimedStamp) EngineBuilderOption {
	return func(e *engine) {
		e.demoStamps = append(e.demoStamps, stamps...)
	}
}

// WithFatalCallback sets the function notified once when the engine fails. It runs on its
// own goroutine and may call Dispose.
//
// Parameters:
//   - callback: function receiving the fatal error
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithFatalCallback(callback func(err error)) EngineBuilderOption {
	return func(e *engine) {
		e.fatalCallback = callback
	}
}

// WithClockSource sets the time source of the frame clock and the profiler.
func WithClockSource(src clock.Source) EngineBuilderOption {
	return func(e *engine) {
		e.clockSource = src
	}
}
