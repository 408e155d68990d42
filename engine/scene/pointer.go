package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-flowers/common"
)

// PointerState is the pending stamp request written by input handlers and consumed by the
// compositor. Coordinates are normalized to [0, 1] with y pointing down.
type PointerState struct {
	mu        sync.Mutex
	x, y      float32
	requested bool
}

// Request records a stamp at (x, y). Repeated requests before a consume overwrite the position.
//
// Parameters:
//   - x: the normalized horizontal position
//   - y: the normalized vertical position, 0 at the top
func (p *PointerState) Request(x, y float32) {
	p.mu.Lock()
	p.x, p.y = common.Clamp01(x), common.Clamp01(y)
	p.requested = true
	p.mu.Unlock()
}

// Consume returns the pending request and clears it.
//
// Returns:
//   - float32: the normalized x
//   - float32: the normalized y
//   - bool: false when nothing was requested
func (p *PointerState) Consume() (x, y float32, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.requested {
		return p.x, p.y, false
	}
	p.requested = false
	return p.x, p.y, true
}

// Pending reports whether a request is waiting to be consumed.
func (p *PointerState) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requested
}

// Position returns the last requested position.
func (p *PointerState) Position() (x, y float32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.x, p.y
}

// NormalizePointer maps client coordinates onto [0, 1] against the surface size. A
// non-positive dimension is treated as 1 so events before the first layout still map.
//
// Parameters:
//   - clientX, clientY: the client coordinates in pixels
//   - surfaceWidth, surfaceHeight: the size the coordinates are measured against
//
// Returns:
//   - float32: the normalized x
//   - float32: the normalized y
func NormalizePointer(clientX, clientY float64, surfaceWidth, surfaceHeight int) (float32, float32) {
	w, h := float64(max(surfaceWidth, 1)), float64(max(surfaceHeight, 1))
	return common.Clamp01(float32(clientX / w)), common.Clamp01(float32(clientY / h))
}
