// Package scene holds the per-frame state of the feedback loop: the uniform set, the pointer
// request, and the swap chain they draw into. A Scene is the render engine state aggregate;
// the engine owns it and drives Step, Resize and Interact on it.
package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
)

// RandomSource draws stop seed components in [0, 1). *rand.Rand satisfies it.
type RandomSource interface {
	Float32() float32
}

// scene implements the Scene interface.
type scene struct {
	mu *sync.Mutex

	renderer renderer.Renderer
	targets  *renderer.SwapChain
	uniforms UniformSet
	pointer  *PointerState
	random   RandomSource

	firstStamp   bool
	timeOffset   float32
	openingStamp *common.Vec2
	released     bool
}

// Scene is the render engine state for one surface. It owns the two render targets and the
// uniform set, and references the renderer that draws them.
type Scene interface {
	// Init allocates both render targets at the given size, primes them to the background
	// color and sets the initial uniforms. A pending opening stamp is requested here.
	//
	// Parameters:
	//   - width: the render target width (values below 1 become 1)
	//   - height: the render target height (values below 1 become 1)
	//
	// Returns:
	//   - error: error if the targets could not be allocated or cleared
	Init(width, height int) error

	// Step runs one frame of the feedback loop: bind the read target as feedback texture,
	// advance elapsed and stop time, consume a pending stamp, draw into the write target,
	// composite it and swap roles. A surface that is not ready makes the step a no-op.
	//
	// Parameters:
	//   - dt: the frame delta in seconds
	//
	// Returns:
	//   - error: a fatal renderer error; not-ready conditions are absorbed
	Step(dt float32) error

	// AdvanceClock adds dt to the elapsed time without drawing or touching the stop time.
	// The engine calls it for paused frames when paused frames keep the clock running.
	//
	// Parameters:
	//   - dt: the delta in seconds
	AdvanceClock(dt float32)

	// Resize reallocates both render targets and the visible surface in place, updates the
	// aspect ratio and primes the targets. Non-positive sizes are clamped to 1.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	//
	// Returns:
	//   - error: error if the surface or targets could not be reallocated
	Resize(width, height int) error

	// Interact routes a pointer or primary touch contact into a stamp request.
	//
	// Parameters:
	//   - clientX, clientY: the client coordinates in pixels
	//   - surfaceWidth, surfaceHeight: the size the coordinates are measured against
	Interact(clientX, clientY float64, surfaceWidth, surfaceHeight int)

	// Pointer returns the pending stamp state.
	Pointer() *PointerState

	// Uniforms returns a copy of the current uniform set.
	Uniforms() UniformSet

	// SwapChain returns the render target pair, or nil before Init.
	SwapChain() *renderer.SwapChain

	// Renderer returns the renderer the scene draws with.
	Renderer() renderer.Renderer

	// Release frees both render targets. The renderer is not released. Releasing twice is a no-op.
	Release()
}

var _ Scene = &scene{}

// NewScene creates a Scene drawing with r.
//
// Parameters:
//   - r: the renderer
//   - options: a variadic list of options to configure the scene
//
// Returns:
//   - Scene: the scene, not yet initialized
func NewScene(r renderer.Renderer, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:         &sync.Mutex{},
		renderer:   r,
		pointer:    &PointerState{},
		firstStamp: true,
		uniforms: UniformSet{
			AspectRatio:     1,
			BackgroundColor: common.White,
		},
	}

	for _, opt := range options {
		opt(s)
	}

	if s.random == nil {
		seed := uint64(time.Now().UnixNano())
		s.random = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return s
}

func (s *scene) Init(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("scene released")
	}
	if s.targets != nil {
		return fmt.Errorf("scene already initialized")
	}

	w, h := max(width, 1), max(height, 1)
	targets, err := renderer.NewSwapChain(s.renderer, w, h)
	if err != nil {
		return err
	}
	s.targets = targets
	s.uniforms.ElapsedTime = s.timeOffset
	s.uniforms.AspectRatio = float32(w) / float32(h)
	s.uniforms.FeedbackTexture = targets.Read()
	if s.openingStamp != nil {
		s.pointer.Request(s.openingStamp.X(), s.openingStamp.Y())
	}
	return s.prime()
}

func (s *scene) Step(dt float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released || s.targets == nil || !s.renderer.Ready() {
		return nil
	}

	read, write := s.targets.Read(), s.targets.Write()
	s.uniforms.FeedbackTexture = read
	s.uniforms.ElapsedTime += dt

	if x, y, ok := s.pointer.Consume(); ok {
		s.uniforms.SeedPoint = common.Vec2{x, 1 - y}
		if s.firstStamp {
			s.uniforms.StopSeed = FirstStampSeed
			s.firstStamp = false
		} else {
			s.uniforms.StopSeed = common.Vec3{s.random.Float32(), s.random.Float32(), s.random.Float32()}
		}
		s.uniforms.StopTime = 0
		common.Logger().Debug("stamp", "x", x, "y", y, "seed", s.uniforms.StopSeed)
	}
	s.uniforms.StopTime += dt

	if err := s.renderer.RenderFeedback(write, read, s.uniforms.GPU()); err != nil {
		return absorbNotReady("feedback pass", err)
	}
	s.targets.Swap()
	if err := s.renderer.Composite(write); err != nil {
		return absorbNotReady("composite pass", err)
	}
	return nil
}

func (s *scene) AdvanceClock(dt float32) {
	if dt <= 0 {
		return
	}
	s.mu.Lock()
	s.uniforms.ElapsedTime += dt
	s.mu.Unlock()
}

func (s *scene) Resize(width, height int) error {
	w, h := max(width, 1), max(height, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	if err := s.renderer.Resize(w, h); err != nil {
		return fmt.Errorf("resize surface: %w", err)
	}
	s.uniforms.AspectRatio = float32(w) / float32(h)
	if s.targets == nil {
		return nil
	}
	if err := s.targets.Resize(w, h); err != nil {
		return err
	}
	s.uniforms.FeedbackTexture = s.targets.Read()
	common.Logger().Debug("scene resized", "width", w, "height", h)
	return s.prime()
}

func (s *scene) Interact(clientX, clientY float64, surfaceWidth, surfaceHeight int) {
	x, y := NormalizePointer(clientX, clientY, surfaceWidth, surfaceHeight)
	s.pointer.Request(x, y)
}

func (s *scene) Pointer() *PointerState {
	return s.pointer
}

func (s *scene) Uniforms() UniformSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uniforms
}

func (s *scene) SwapChain() *renderer.SwapChain {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets
}

func (s *scene) Renderer() renderer.Renderer {
	return s.renderer
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.uniforms.FeedbackTexture = nil
	if s.targets != nil {
		s.targets.Release()
	}
}

// prime clears both targets to the background color. Callers hold s.mu.
func (s *scene) prime() error {
	for _, t := range s.targets.Targets() {
		if err := s.renderer.Clear(t, s.uniforms.BackgroundColor); err != nil {
			return absorbNotReady("prime "+t.Label(), err)
		}
	}
	return nil
}

func absorbNotReady(pass string, err error) error {
	if errors.Is(err, renderer.ErrNotReady) {
		common.Logger().Debug("surface not ready, skipping", "pass", pass)
		return nil
	}
	return fmt.Errorf("%s: %w", pass, err)
}
