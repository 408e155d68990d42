package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/shader"
	"golang.org/x/image/draw"
)

// softwareRenderTarget is a render target backed by an in-memory RGBA8 image, matching the
// RGBA8Unorm textures of the WebGPU backend.
type softwareRenderTarget struct {
	label    string
	img      *image.RGBA
	released bool
}

var _ RenderTarget = &softwareRenderTarget{}

func newSoftwareRenderTarget(label string, width, height int) *softwareRenderTarget {
	return &softwareRenderTarget{
		label: label,
		img:   image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

func (t *softwareRenderTarget) Label() string {
	return t.label
}

func (t *softwareRenderTarget) Width() int {
	return t.img.Rect.Dx()
}

func (t *softwareRenderTarget) Height() int {
	return t.img.Rect.Dy()
}

func (t *softwareRenderTarget) SetSize(width, height int) error {
	if t.released {
		return fmt.Errorf("%s: %w", t.label, ErrNotReady)
	}
	t.img = image.NewRGBA(image.Rect(0, 0, max(width, 1), max(height, 1)))
	return nil
}

func (t *softwareRenderTarget) Release() {
	t.released = true
}

// sample reads the target at uv (v up) with bilinear filtering and clamp-to-edge addressing.
func (t *softwareRenderTarget) sample(u, v float32) [3]float32 {
	w, h := t.img.Rect.Dx(), t.img.Rect.Dy()
	fx := float64(u)*float64(w) - 0.5
	fy := (1-float64(v))*float64(h) - 0.5
	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	tx, ty := float32(fx-float64(x0)), float32(fy-float64(y0))

	c00 := t.texel(x0, y0)
	c10 := t.texel(x0+1, y0)
	c01 := t.texel(x0, y0+1)
	c11 := t.texel(x0+1, y0+1)

	var out [3]float32
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*tx
		bottom := c01[i] + (c11[i]-c01[i])*tx
		out[i] = top + (bottom-top)*ty
	}
	return out
}

func (t *softwareRenderTarget) texel(x, y int) [3]float32 {
	x = common.Clamp(x, 0, t.img.Rect.Dx()-1)
	y = common.Clamp(y, 0, t.img.Rect.Dy()-1)
	i := t.img.PixOffset(x, y)
	p := t.img.Pix[i : i+3 : i+3]
	return [3]float32{float32(p[0]) / 255, float32(p[1]) / 255, float32(p[2]) / 255}
}

// softwareBandRows is the number of rows one pool task shades.
const softwareBandRows = 16

// softwareRendererBackendImpl runs fragment programs on the CPU. The feedback pass is split into
// bands of rows shaded in parallel on a dynamic worker pool; the composite scales the written
// target onto the surface with golang.org/x/image/draw.
type softwareRendererBackendImpl struct {
	mu *sync.Mutex

	pool    worker.DynamicWorkerPool
	program shader.FragmentProgram

	pixelRatio float64
	surface    *image.RGBA
	width      int
	height     int
	released   bool
}

var _ RendererBackend = &softwareRendererBackendImpl{}

func newSoftwareRendererBackend(pixelRatio float64, workers int) *softwareRendererBackendImpl {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &softwareRendererBackendImpl{
		mu:         &sync.Mutex{},
		pool:       worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
		program:    shader.FlowerProgram{},
		pixelRatio: pixelRatio,
	}
}

func (b *softwareRendererBackendImpl) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.released && b.surface != nil
}

func (b *softwareRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width <= 0 || height <= 0 {
		b.surface = nil
		b.width, b.height = 0, 0
		return nil
	}
	b.width = int(math.Round(float64(width) * b.pixelRatio))
	b.height = int(math.Round(float64(height) * b.pixelRatio))
	b.surface = image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	return nil
}

func (b *softwareRendererBackendImpl) SurfaceSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

// SetPresentMode is a no-op; the software surface has no presentation queue.
func (b *softwareRendererBackendImpl) SetPresentMode(PresentMode) {}

func (b *softwareRendererBackendImpl) NewRenderTarget(label string, width, height int) (RenderTarget, error) {
	return newSoftwareRenderTarget(label, width, height), nil
}

func (b *softwareRendererBackendImpl) Clear(target RenderTarget, c common.RGB) error {
	t, err := softwareTarget(target)
	if err != nil {
		return err
	}
	rgba := c.RGBA8()
	draw.Draw(t.img, t.img.Bounds(), image.NewUniform(color.RGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}), image.Point{}, draw.Src)
	return nil
}

func (b *softwareRendererBackendImpl) RenderFeedback(dst, src RenderTarget, uniforms material.GPUFlowerUniforms) error {
	d, err := softwareTarget(dst)
	if err != nil {
		return err
	}
	s, err := softwareTarget(src)
	if err != nil {
		return err
	}

	w, h := d.Width(), d.Height()
	invW, invH := 1/float32(w), 1/float32(h)

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicErr error
	)
	for id, y0 := 0, 0; y0 < h; id, y0 = id+1, y0+softwareBandRows {
		y1 := min(y0+softwareBandRows, h)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						panicMu.Lock()
						panicErr = fmt.Errorf("shading rows %d-%d: %v", y0, y1, r)
						panicMu.Unlock()
					}
				}()
				for y := y0; y < y1; y++ {
					v := 1 - (float32(y)+0.5)*invH
					row := d.img.Pix[y*d.img.Stride:]
					for x := 0; x < w; x++ {
						u := (float32(x) + 0.5) * invW
						c := b.program.Shade(u, v, &uniforms, s.sample)
						p := row[x*4 : x*4+4 : x*4+4]
						p[0] = unorm8(c[0])
						p[1] = unorm8(c[1])
						p[2] = unorm8(c[2])
						p[3] = unorm8(c[3])
					}
				}
				return nil, nil
			},
		})
	}
	wg.Wait()
	return panicErr
}

func (b *softwareRendererBackendImpl) Composite(src RenderTarget) error {
	s, err := softwareTarget(src)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return ErrNotReady
	}
	if s.img.Bounds().Eq(b.surface.Bounds()) {
		draw.Draw(b.surface, b.surface.Bounds(), s.img, image.Point{}, draw.Src)
		return nil
	}
	draw.BiLinear.Scale(b.surface, b.surface.Bounds(), s.img, s.img.Bounds(), draw.Src, nil)
	return nil
}

func (b *softwareRendererBackendImpl) Snapshot() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface == nil {
		return nil, ErrNotReady
	}
	out := image.NewRGBA(b.surface.Bounds())
	copy(out.Pix, b.surface.Pix)
	return out, nil
}

// Release stops the worker pool and drops the surface. Only the first call has an effect.
func (b *softwareRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return
	}
	b.released = true
	b.surface = nil
	b.pool.Stop()
}

func softwareTarget(t RenderTarget) (*softwareRenderTarget, error) {
	st, ok := t.(*softwareRenderTarget)
	if !ok {
		return nil, fmt.Errorf("render target %T does not belong to the software backend", t)
	}
	if st.released {
		return nil, fmt.Errorf("%s: %w", st.label, ErrNotReady)
	}
	return st, nil
}

// unorm8 converts a [0, 1] channel to 8 bits, rounding to nearest.
func unorm8(c float32) uint8 {
	return uint8(common.Clamp01(c)*255 + 0.5)
}
