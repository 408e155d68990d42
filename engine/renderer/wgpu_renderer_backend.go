package renderer

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pipeline keys of the two passes.
const (
	PipelineKeyFeedback  = "flowers_feedback"
	PipelineKeyComposite = "flowers_composite"
)

// targetFormat is the texture format of every offscreen render target.
const targetFormat = wgpu.TextureFormatRGBA8Unorm

// wgpuRenderTarget is a render target backed by a GPU texture. It holds one bind group per pass
// that reads it: the feedback group (uniforms, texture, sampler) and the composite group
// (texture, sampler). Both are rebuilt when the texture is reallocated.
type wgpuRenderTarget struct {
	backend *wgpuRendererBackendImpl
	label   string
	width   int
	height  int

	texture   *wgpu.Texture
	view      *wgpu.TextureView
	feedback  bind_group_provider.BindGroupProvider
	composite bind_group_provider.BindGroupProvider
}

var _ RenderTarget = &wgpuRenderTarget{}

func (t *wgpuRenderTarget) Label() string {
	return t.label
}

func (t *wgpuRenderTarget) Width() int {
	return t.width
}

func (t *wgpuRenderTarget) Height() int {
	return t.height
}

func (t *wgpuRenderTarget) SetSize(width, height int) error {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	t.releaseGPU()
	return t.allocate(max(width, 1), max(height, 1))
}

func (t *wgpuRenderTarget) Release() {
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	t.releaseGPU()
}

// allocate creates the texture, its view and both bind groups. Callers hold backend.mu.
func (t *wgpuRenderTarget) allocate(width, height int) error {
	b := t.backend
	if b.device == nil {
		return ErrNotReady
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: t.label + " Texture",
		Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        targetFormat,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("%w: create %s texture: %v", ErrDeviceLost, t.label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("%w: create %s view: %v", ErrDeviceLost, t.label, err)
	}
	t.texture, t.view = tex, view
	t.width, t.height = width, height

	t.feedback = bind_group_provider.NewBindGroupProvider(t.label+" feedback",
		bind_group_provider.WithBuffer(0, b.uniformBuffer),
		bind_group_provider.WithTextureView(1, view),
		bind_group_provider.WithSampler(2, b.sampler),
	)
	t.composite = bind_group_provider.NewBindGroupProvider(t.label+" composite",
		bind_group_provider.WithTextureView(0, view),
		bind_group_provider.WithSampler(1, b.sampler),
	)
	if err := b.initBindGroup(t.feedback, b.feedbackLayout); err != nil {
		return err
	}
	return b.initBindGroup(t.composite, b.compositeLayout)
}

// releaseGPU frees the texture, view and bind groups. Callers hold backend.mu.
func (t *wgpuRenderTarget) releaseGPU() {
	if t.feedback != nil {
		t.feedback.Release()
		t.feedback = nil
	}
	if t.composite != nil {
		t.composite.Release()
		t.composite = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
}

// passLayout is the bind group layout of one pass together with the descriptor it was created from.
type passLayout struct {
	descriptor wgpu.BindGroupLayoutDescriptor
	layout     *wgpu.BindGroupLayout
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat wgpu.TextureFormat
	alphaMode     wgpu.CompositeAlphaMode
	presentMode   wgpu.PresentMode
	width         int
	height        int
	configured    bool

	uniformBuffer   *wgpu.Buffer
	uniformWriter   bind_group_provider.BindGroupProvider
	sampler         *wgpu.Sampler
	feedbackLayout  passLayout
	compositeLayout passLayout
	pipelines       map[string]pipeline.Pipeline
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (*wgpuRendererBackendImpl, error) {
	runtime.LockOSThread()
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		pipelines:   make(map[string]pipeline.Pipeline),
	}
	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	capabilities := b.surface.GetCapabilities(b.adapter)
	if len(capabilities.Formats) == 0 {
		b.Release()
		return nil, errors.New("surface reports no supported formats")
	}
	b.surfaceFormat = capabilities.Formats[0]
	b.alphaMode = capabilities.AlphaModes[0]

	if err := b.initResources(); err != nil {
		b.Release()
		return nil, err
	}
	common.Logger().Info("wgpu adapter selected", "fallback", forceFallbackAdapter, "surface_format", b.surfaceFormat)
	return b, nil
}

// initResources creates the shared uniform buffer and sampler and registers both pipelines.
func (b *wgpuRendererBackendImpl) initResources() error {
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "flower uniforms Buffer",
		Size:  material.GPUFlowerUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	b.uniformBuffer = buf
	b.uniformWriter = bind_group_provider.NewBindGroupProvider("flower uniforms", bind_group_provider.WithBuffer(0, buf))

	staging := common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "flowers Sampler",
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	b.sampler = samp

	vs, err := shader.FullscreenVertex()
	if err != nil {
		return err
	}
	flowers, err := shader.FlowersFragment()
	if err != nil {
		return err
	}
	composite, err := shader.CompositeFragment()
	if err != nil {
		return err
	}

	feedback := pipeline.NewPipeline(PipelineKeyFeedback,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(flowers),
		pipeline.WithTargetFormat(targetFormat),
	)
	if b.feedbackLayout, err = b.registerRenderPipeline(feedback); err != nil {
		return err
	}

	present := pipeline.NewPipeline(PipelineKeyComposite,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(composite),
	)
	if b.compositeLayout, err = b.registerRenderPipeline(present); err != nil {
		return err
	}
	return nil
}

// registerRenderPipeline creates the shader modules, the group 0 layout and the render pipeline
// for p, and caches p under its key.
func (b *wgpuRendererBackendImpl) registerRenderPipeline(p pipeline.Pipeline) (passLayout, error) {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return passLayout{}, errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return passLayout{}, fmt.Errorf("compile %s: %w", vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return passLayout{}, fmt.Errorf("compile %s: %w", fragmentShader.Key(), err)
	}
	defer fs.Release()

	merged := mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	desc, ok := merged[0]
	if !ok || len(merged) != 1 {
		return passLayout{}, fmt.Errorf("pipeline %s: expected exactly bind group 0, got %d groups", p.PipelineKey(), len(merged))
	}
	desc.Label = p.PipelineKey() + " group 0"
	layout, err := b.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return passLayout{}, fmt.Errorf("failed to create bind group layout for %s: %w", p.PipelineKey(), err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		layout.Release()
		return passLayout{}, err
	}
	defer pipelineLayout.Release()

	format := p.TargetFormat()
	if format == wgpu.TextureFormatUndefined {
		format = b.surfaceFormat
	}
	state := wgpu.ColorTargetState{
		Format:    format,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		state.Blend = p.BlendState()
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{state},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		layout.Release()
		return passLayout{}, err
	}
	p.SetRenderPipeline(created)
	b.pipelines[p.PipelineKey()] = p

	return passLayout{descriptor: desc, layout: layout}, nil
}

// initBindGroup creates the bind group for provider from the resources it references.
// Callers hold b.mu.
func (b *wgpuRendererBackendImpl) initBindGroup(provider bind_group_provider.BindGroupProvider, pl passLayout) error {
	entries, err := provider.Entries(pl.descriptor)
	if err != nil {
		return err
	}
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  pl.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%w: create %s bind group: %v", ErrDeviceLost, provider.Label(), err)
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (b *wgpuRendererBackendImpl) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.device != nil && b.configured
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.surface == nil || b.device == nil {
		return ErrNotReady
	}
	if width <= 0 || height <= 0 {
		b.configured = false
		b.width, b.height = 0, 0
		return nil
	}

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   b.alphaMode,
	})
	b.width, b.height = width, height
	b.configured = true
	return nil
}

func (b *wgpuRendererBackendImpl) SurfaceSize() (int, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.width, b.height
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) NewRenderTarget(label string, width, height int) (RenderTarget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &wgpuRenderTarget{backend: b, label: label}
	if err := t.allocate(width, height); err != nil {
		t.releaseGPU()
		return nil, err
	}
	return t, nil
}

func (b *wgpuRendererBackendImpl) Clear(target RenderTarget, c common.RGB) error {
	t, err := wgpuTarget(target)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.submitPass(t.view, wgpu.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: 1}, nil, nil)
}

func (b *wgpuRendererBackendImpl) RenderFeedback(dst, src RenderTarget, uniforms material.GPUFlowerUniforms) error {
	d, err := wgpuTarget(dst)
	if err != nil {
		return err
	}
	s, err := wgpuTarget(src)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.writeBuffers([]bind_group_provider.BufferWrite{{
		Provider: b.uniformWriter,
		Binding:  0,
		Data:     uniforms.Marshal(),
	}})
	return b.submitPass(d.view, wgpu.Color{A: 1}, b.pipelines[PipelineKeyFeedback], s.feedback)
}

func (b *wgpuRendererBackendImpl) Composite(src RenderTarget) error {
	s, err := wgpuTarget(src)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return ErrNotReady
	}
	// Acquisition fails transiently while the surface is outdated or minimized.
	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotReady, err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("%w: surface view: %v", ErrDeviceLost, err)
	}
	defer view.Release()

	if err := b.submitPass(view, wgpu.Color{A: 1}, b.pipelines[PipelineKeyComposite], s.composite); err != nil {
		return err
	}
	b.surface.Present()
	return nil
}

// submitPass encodes and submits one render pass into view. With a pipeline it draws a single
// full-screen triangle with provider's bind group at group 0; without one it only clears.
// Callers hold b.mu.
func (b *wgpuRendererBackendImpl) submitPass(view *wgpu.TextureView, clear wgpu.Color, p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider) error {
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("%w: create command encoder: %v", ErrDeviceLost, err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: clear,
		}},
	})
	if p != nil {
		pass.SetPipeline(p.RenderPipeline())
		pass.SetBindGroup(0, provider.BindGroup(), nil)
		pass.Draw(3, 1, 0, 0)
	}
	pass.End()
	pass.Release()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("%w: finish command encoder: %v", ErrDeviceLost, err)
	}
	defer commandBuffer.Release()
	b.queue.Submit(commandBuffer)
	return nil
}

// writeBuffers writes all staged buffer writes to the GPU queue. Callers hold b.mu.
func (b *wgpuRendererBackendImpl) writeBuffers(writes []bind_group_provider.BufferWrite) {
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}

// Snapshot is not supported; reading back a presented surface texture is not allowed.
func (b *wgpuRendererBackendImpl) Snapshot() (*image.RGBA, error) {
	return nil, ErrSnapshotUnsupported
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, p := range b.pipelines {
		p.Release()
		delete(b.pipelines, key)
	}
	for _, pl := range []*passLayout{&b.feedbackLayout, &b.compositeLayout} {
		if pl.layout != nil {
			pl.layout.Release()
			pl.layout = nil
		}
	}
	if b.uniformWriter != nil {
		b.uniformWriter.Release()
		b.uniformWriter = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.sampler != nil {
		b.sampler.Release()
		b.sampler = nil
	}
	b.queue = nil
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.configured = false
}

func wgpuTarget(t RenderTarget) (*wgpuRenderTarget, error) {
	wt, ok := t.(*wgpuRenderTarget)
	if !ok {
		return nil, fmt.Errorf("render target %T does not belong to the wgpu backend", t)
	}
	if wt.view == nil {
		return nil, fmt.Errorf("%s: %w", wt.label, ErrNotReady)
	}
	return wt, nil
}

// mergeBindGroupLayouts combines the layouts parsed from a vertex and a fragment shader. Entries
// declared by both stages at the same binding have their visibility OR'd together.
func mergeBindGroupLayouts(
	vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor,
) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor)

	// collect all group indices from both maps
	groupIndices := make(map[int]bool)
	for g := range vertexLayouts {
		groupIndices[g] = true
	}
	for g := range fragmentLayouts {
		groupIndices[g] = true
	}

	for g := range groupIndices {
		vDesc, hasV := vertexLayouts[g]
		fDesc, hasF := fragmentLayouts[g]

		switch {
		case hasV && !hasF:
			merged[g] = vDesc
		case hasF && !hasV:
			merged[g] = fDesc
		default:
			entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry)
			for _, e := range vDesc.Entries {
				entryMap[e.Binding] = e
			}
			for _, e := range fDesc.Entries {
				if existing, ok := entryMap[e.Binding]; ok {
					// same binding in both stages, OR the visibility
					existing.Visibility |= e.Visibility
					entryMap[e.Binding] = existing
				} else {
					entryMap[e.Binding] = e
				}
			}

			entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
			for _, e := range entryMap {
				entries = append(entries, e)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Binding < entries[j].Binding
			})

			merged[g] = wgpu.BindGroupLayoutDescriptor{
				Label:   vDesc.Label,
				Entries: entries,
			}
		}
	}

	return merged
}
