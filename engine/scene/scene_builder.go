package scene

import (
	"github.com/Carmen-Shannon/oxy-flowers/common"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithRandomSource sets the generator the stop seed is drawn from.
//
// Parameters:
//   - r: the random source (nil keeps the time-seeded default)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRandomSource(r RandomSource) SceneBuilderOption {
	return func(s *scene) {
		if r != nil {
			s.random = r
		}
	}
}

// WithBackgroundColor sets the color both render targets are primed to.
//
// Parameters:
//   - color: the background color
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithBackgroundColor(color common.RGB) SceneBuilderOption {
	return func(s *scene) {
		s.uniforms.BackgroundColor = color
	}
}

// WithTimeOffset sets the elapsed time the scene starts at, in seconds.
func WithTimeOffset(seconds float32) SceneBuilderOption {
	return func(s *scene) {
		s.timeOffset = max(seconds, 0)
	}
}

// WithOpeningStamp requests a stamp at the normalized position (x, y), y down, during Init,
// so the first frame draws without user input.
//
// Parameters:
//   - x: the normalized horizontal position
//   - y: the normalized vertical position
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithOpeningStamp(x, y float32) SceneBuilderOption {
	return func(s *scene) {
		s.openingStamp = &common.Vec2{common.Clamp01(x), common.Clamp01(y)}
	}
}
