package renderer

import (
	"fmt"
)

// RenderTarget is one offscreen color buffer owned by a backend. Resizing reallocates the
// buffer in place; the target's identity never changes.
type RenderTarget interface {
	// Label returns the debug label of the target.
	Label() string

	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// SetSize reallocates the buffer at the new size. Previous content is discarded.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: ErrDeviceLost wrapped with the cause if reallocation failed
	SetSize(width, height int) error

	// Release frees the buffer. Releasing twice is a no-op.
	Release()
}

// SwapChain is the pair of render targets that alternate between the "read last frame" and
// "write this frame" roles. Swapping exchanges role labels only; no pixel data moves.
type SwapChain struct {
	targets [2]RenderTarget
}

// NewSwapChain allocates two equally sized render targets through the renderer.
//
// Parameters:
//   - r: the renderer that owns the targets
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - *SwapChain: the chain, with the first target in the read role
//   - error: error if either allocation failed
func NewSwapChain(r Renderer, width, height int) (*SwapChain, error) {
	a, err := r.NewRenderTarget("flowers target A", width, height)
	if err != nil {
		return nil, fmt.Errorf("allocate target A: %w", err)
	}
	b, err := r.NewRenderTarget("flowers target B", width, height)
	if err != nil {
		a.Release()
		return nil, fmt.Errorf("allocate target B: %w", err)
	}
	return &SwapChain{targets: [2]RenderTarget{a, b}}, nil
}

// Read returns the target holding the previous frame.
func (s *SwapChain) Read() RenderTarget {
	return s.targets[0]
}

// Write returns the target the current frame renders into.
func (s *SwapChain) Write() RenderTarget {
	return s.targets[1]
}

// Swap exchanges the read and write roles.
func (s *SwapChain) Swap() {
	s.targets[0], s.targets[1] = s.targets[1], s.targets[0]
}

// Targets returns both targets in role order, read first.
func (s *SwapChain) Targets() [2]RenderTarget {
	return s.targets
}

// Size returns the shared size of the targets.
func (s *SwapChain) Size() (width, height int) {
	return s.targets[0].Width(), s.targets[0].Height()
}

// Resize reallocates both targets in place.
//
// Parameters:
//   - width: the new width in pixels
//   - height: the new height in pixels
//
// Returns:
//   - error: the first reallocation error
func (s *SwapChain) Resize(width, height int) error {
	for _, t := range s.targets {
		if err := t.SetSize(width, height); err != nil {
			return fmt.Errorf("resize %s: %w", t.Label(), err)
		}
	}
	return nil
}

// Release releases both targets.
func (s *SwapChain) Release() {
	for _, t := range s.targets {
		t.Release()
	}
}
