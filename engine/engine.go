package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/clock"
	"github.com/Carmen-Shannon/oxy-flowers/engine/profiler"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flowers/engine/scene"
	"github.com/Carmen-Shannon/oxy-flowers/engine/window"
)

var (
	// ErrNotInitialized is returned when an operation needs Init to have run first.
	ErrNotInitialized = errors.New("engine not initialized")

	// ErrDisposed is returned by operations on a disposed engine.
	ErrDisposed = errors.New("engine disposed")

	// ErrAlreadyInitialized is returned by a second Init call.
	ErrAlreadyInitialized = errors.New("engine already initialized")
)

// State is the render scheduler state.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StatePaused
	StateDisposed

	// StateFailed is entered on an unrecoverable renderer error. Frames are no longer driven.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateDisposed:
		return "disposed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TimedStamp is a stamp requested After the scheduler starts, at normalized (X, Y) with y down.
type TimedStamp struct {
	After time.Duration
	X, Y  float32
}

// FrameHandle controls the frame loop started by Start.
type FrameHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel stops the frame loop and waits for an in-flight frame to finish.
// It must not be called from inside a driven frame.
func (h *FrameHandle) Cancel() {
	h.cancel()
	<-h.done
}

// Done is closed once the frame loop has exited.
func (h *FrameHandle) Done() <-chan struct{} {
	return h.done
}

// engine implements the Engine interface.
// The ticker goroutine and host-driven frames are serialized by frameMu.
type engine struct {
	mu      *sync.Mutex
	frameMu *sync.Mutex

	state  State
	err    error
	window window.Window

	renderer     renderer.Renderer
	scene        scene.Scene
	sceneOptions []scene.SceneBuilderOption

	clockSource       clock.Source
	clock             *clock.FrameClock
	frameInterval     time.Duration
	pauseFreezesClock bool

	pendingResize *[2]int
	handle        *FrameHandle
	demoStamps    []TimedStamp
	demoTimers    []*time.Timer
	fatalCallback func(err error)
	disposeOnce   sync.Once

	profiler         *profiler.Profiler
	profilingEnabled bool
}

// Engine is the render scheduler. It owns the scene and renderer, drives one feedback frame
// per display refresh and exposes the host control surface.
//
// State machine: Uninitialized -> Running <-> Paused -> Disposed. Any driven state moves to
// Failed on an unrecoverable renderer error; Dispose is valid from every state.
type Engine interface {
	// Init creates the scene, allocates and primes both render targets at the window size and
	// registers the window callbacks. The engine moves to Running.
	//
	// Returns:
	//   - error: ErrAlreadyInitialized, ErrDisposed, or an allocation error
	Init() error

	// Start launches the frame loop at the configured refresh rate and arms the demo stamp timers.
	//
	// Parameters:
	//   - ctx: cancelling the context stops the loop
	//
	// Returns:
	//   - *FrameHandle: the handle that cancels the loop
	//   - error: ErrNotInitialized, ErrDisposed, or an error if the loop is already started
	Start(ctx context.Context) (*FrameHandle, error)

	// Frame drives exactly one frame. A queued resize is applied first. Running frames step the
	// compositor; paused frames only do clock bookkeeping; other states are a no-op.
	//
	// Parameters:
	//   - dt: the frame delta in seconds
	Frame(dt float32)

	// Pause freezes the visible output. The frame loop keeps ticking.
	Pause()

	// Resume unfreezes the output without resetting the uniforms.
	Resume()

	// TogglePause flips between Running and Paused.
	TogglePause()

	// Interact requests a stamp at client coordinates and resumes a paused engine.
	//
	// Parameters:
	//   - clientX, clientY: the client coordinates in pixels
	//   - surfaceWidth, surfaceHeight: the size the coordinates are measured against
	Interact(clientX, clientY float64, surfaceWidth, surfaceHeight int)

	// TouchStart requests a stamp at the first contact point, like Interact.
	//
	// Parameters:
	//   - points: the touch contacts
	//   - surfaceWidth, surfaceHeight: the size the coordinates are measured against
	TouchStart(points []window.TouchPoint, surfaceWidth, surfaceHeight int)

	// Resize queues a surface resize, applied at the start of the next frame.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Dispose stops the frame loop, stops demo timers, unregisters window callbacks and
	// releases the render targets and the renderer. Only the first call has an effect.
	// The window is not closed.
	Dispose()

	// State returns the current scheduler state.
	State() State

	// Err returns the error that moved the engine to Failed, or nil.
	Err() error

	// Snapshot returns a copy of the visible surface as last composited.
	//
	// Returns:
	//   - *image.RGBA: the surface pixels
	//   - error: ErrNotInitialized, ErrDisposed, or the renderer's snapshot error
	Snapshot() (*image.RGBA, error)

	// Uniforms returns a copy of the scene's uniform set.
	Uniforms() scene.UniformSet

	// Elapsed returns the frame clock's accumulated seconds. Frames skipped on a surface
	// that is not ready and frozen paused frames do not count.
	Elapsed() float64

	// Window returns the window the engine listens to, or nil.
	Window() window.Window

	// Run initializes the engine if needed, starts the frame loop and blocks in the window
	// message loop until the window closes, ctx is cancelled or the engine fails. The engine
	// is disposed before Run returns; the window is closed when Run stops for a reason other
	// than the window closing itself.
	//
	// Parameters:
	//   - ctx: cancelling the context stops the engine
	//
	// Returns:
	//   - error: the fatal error if the engine failed, or a start error
	Run(ctx context.Context) error
}

var _ Engine = &engine{}

// NewEngine creates a new Engine with the provided options.
// Options are applied directly to the engine struct via the option-builder pattern.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine, Uninitialized
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:                &sync.Mutex{},
		frameMu:           &sync.Mutex{},
		state:             StateUninitialized,
		frameInterval:     time.Second / 60,
		pauseFreezesClock: true,
	}

	for _, opt := range options {
		opt(e)
	}

	e.clock = clock.NewFrameClock(e.clockSource)
	e.profiler = profiler.NewProfiler(e.clockSource)
	return e
}

func (e *engine) Init() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateUninitialized:
	case StateDisposed:
		return ErrDisposed
	default:
		return ErrAlreadyInitialized
	}
	if e.renderer == nil {
		return fmt.Errorf("engine requires a renderer")
	}

	width, height := e.renderer.SurfaceSize()
	if e.window != nil {
		width, height = e.window.Width(), e.window.Height()
	}
	s := scene.NewScene(e.renderer, e.sceneOptions...)
	if err := s.Init(width, height); err != nil {
		return fmt.Errorf("init scene: %w", err)
	}
	e.scene = s
	e.registerWindowCallbacks()
	e.clock.Start()
	e.state = StateRunning
	common.Logger().Info("engine initialized", "backend", e.renderer.BackendType().String(), "width", width, "height", height)
	return nil
}

func (e *engine) Start(ctx context.Context) (*FrameHandle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case StateUninitialized:
		return nil, ErrNotInitialized
	case StateDisposed:
		return nil, ErrDisposed
	case StateFailed:
		return nil, e.err
	}
	if e.handle != nil {
		return nil, fmt.Errorf("frame loop already started")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	h := &FrameHandle{cancel: cancel, done: make(chan struct{})}
	e.handle = h
	go e.handleFrames(loopCtx, h)

	for _, stamp := range e.demoStamps {
		x, y := stamp.X, stamp.Y
		e.demoTimers = append(e.demoTimers, time.AfterFunc(stamp.After, func() {
			e.requestStamp(x, y)
		}))
	}
	common.Logger().Info("frame loop started", "interval", e.frameInterval)
	return h, nil
}

// handleFrames ticks at the frame interval until ctx is done or the engine fails.
func (e *engine) handleFrames(ctx context.Context, h *FrameHandle) {
	defer close(h.done)

	ticker := time.NewTicker(e.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.frameMu.Lock()
			dt := e.clock.Delta()
			e.frame(dt)
			e.frameMu.Unlock()
			if e.State() == StateFailed {
				return
			}
		}
	}
}

func (e *engine) Frame(dt float32) {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	e.frame(dt)
}

// frame drives one frame. Callers hold frameMu.
func (e *engine) frame(dt float32) {
	// Recover from panics inside a frame and treat them as fatal.
	defer func() {
		if r := recover(); r != nil {
			e.fail(fmt.Errorf("frame panic: %v", r))
		}
	}()

	state := e.State()
	if state != StateRunning && state != StatePaused {
		return
	}

	if size := e.takeResize(); size != nil {
		if err := e.scene.Resize(size[0], size[1]); err != nil {
			e.fail(err)
			return
		}
	}

	switch state {
	case StateRunning:
		if !e.renderer.Ready() {
			e.profiler.Skip()
			break
		}
		e.clock.Accumulate(dt)
		if err := e.scene.Step(dt); err != nil {
			e.fail(err)
			return
		}
	case StatePaused:
		if !e.pauseFreezesClock {
			e.clock.Accumulate(dt)
			e.scene.AdvanceClock(dt)
		}
	}

	if e.profilingEnabled {
		e.profiler.Tick()
	}
}

// fail moves a live engine to Failed and notifies the host once, on its own goroutine so the
// callback may call Dispose.
func (e *engine) fail(err error) {
	e.mu.Lock()
	if e.state == StateFailed || e.state == StateDisposed {
		e.mu.Unlock()
		return
	}
	e.state = StateFailed
	e.err = err
	timers := e.demoTimers
	e.demoTimers = nil
	if e.handle != nil {
		e.handle.cancel()
	}
	cb := e.fatalCallback
	e.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	common.Logger().Error("render engine failed", "error", err)
	if cb != nil {
		go cb(err)
	}
}

func (e *engine) takeResize() *[2]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	size := e.pendingResize
	e.pendingResize = nil
	return size
}

func (e *engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateRunning {
		e.state = StatePaused
		common.Logger().Info("engine paused")
	}
}

func (e *engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StatePaused {
		e.state = StateRunning
		common.Logger().Info("engine resumed")
	}
}

func (e *engine) TogglePause() {
	switch e.State() {
	case StateRunning:
		e.Pause()
	case StatePaused:
		e.Resume()
	}
}

func (e *engine) Interact(clientX, clientY float64, surfaceWidth, surfaceHeight int) {
	state := e.State()
	if state != StateRunning && state != StatePaused {
		return
	}
	e.scene.Interact(clientX, clientY, surfaceWidth, surfaceHeight)
	e.Resume()
}

func (e *engine) TouchStart(points []window.TouchPoint, surfaceWidth, surfaceHeight int) {
	if len(points) == 0 {
		return
	}
	e.Interact(points[0].X, points[0].Y, surfaceWidth, surfaceHeight)
}

// requestStamp requests a stamp at a normalized position without changing the run state.
func (e *engine) requestStamp(x, y float32) {
	state := e.State()
	if state != StateRunning && state != StatePaused {
		return
	}
	e.scene.Pointer().Request(x, y)
}

func (e *engine) Resize(width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDisposed || e.state == StateFailed {
		return
	}
	e.pendingResize = &[2]int{width, height}
}

func (e *engine) Dispose() {
	e.disposeOnce.Do(func() {
		e.mu.Lock()
		prev := e.state
		e.state = StateDisposed
		h := e.handle
		e.handle = nil
		timers := e.demoTimers
		e.demoTimers = nil
		e.mu.Unlock()

		if h != nil {
			h.Cancel()
		}
		for _, t := range timers {
			t.Stop()
		}
		e.unregisterWindowCallbacks()

		e.frameMu.Lock()
		if e.scene != nil {
			e.scene.Release()
		}
		if e.renderer != nil {
			e.renderer.Release()
		}
		e.frameMu.Unlock()
		common.Logger().Info("engine disposed", "from", prev.String())
	})
}

func (e *engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *engine) Snapshot() (*image.RGBA, error) {
	switch e.State() {
	case StateUninitialized:
		return nil, ErrNotInitialized
	case StateDisposed:
		return nil, ErrDisposed
	}
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.renderer.Snapshot()
}

func (e *engine) Uniforms() scene.UniformSet {
	e.mu.Lock()
	s := e.scene
	e.mu.Unlock()
	if s == nil {
		return scene.UniformSet{}
	}
	return s.Uniforms()
}

func (e *engine) Elapsed() float64 {
	e.frameMu.Lock()
	defer e.frameMu.Unlock()
	return e.clock.Elapsed()
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Run(ctx context.Context) error {
	if e.window == nil {
		return fmt.Errorf("engine has no window")
	}
	if e.State() == StateUninitialized {
		if err := e.Init(); err != nil {
			return err
		}
	}
	h, err := e.Start(ctx)
	if err != nil {
		return err
	}

	// The update callback runs on the message loop thread, where closing the window is safe.
	win := e.window
	win.SetUpdateCallback(func() {
		select {
		case <-h.Done():
			e.Dispose()
			win.Close()
		default:
		}
	})
	win.ProcessMessages()
	e.Dispose()
	return e.Err()
}

func (e *engine) registerWindowCallbacks() {
	if e.window == nil {
		return
	}
	e.window.SetPointerDownCallback(e.Interact)
	e.window.SetTouchStartCallback(e.TouchStart)
	e.window.SetResizeCallback(e.Resize)
	e.window.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case common.KeySpace, common.KeyF:
			e.TogglePause()
		}
	})
}

func (e *engine) unregisterWindowCallbacks() {
	if e.window == nil {
		return
	}
	e.window.SetPointerDownCallback(nil)
	e.window.SetTouchStartCallback(nil)
	e.window.SetResizeCallback(nil)
	e.window.SetKeyDownCallback(nil)
	e.window.SetUpdateCallback(nil)
}
