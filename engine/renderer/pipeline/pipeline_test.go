package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("p")
	if p.PipelineKey() != "p" {
		t.Errorf("PipelineKey() = %q", p.PipelineKey())
	}
	if p.TargetFormat() != wgpu.TextureFormatUndefined {
		t.Errorf("TargetFormat() = %v, want undefined", p.TargetFormat())
	}
	if p.BlendEnabled() {
		t.Error("blend enabled by default")
	}
	if p.WriteMask() != wgpu.ColorWriteMaskAll {
		t.Errorf("WriteMask() = %v", p.WriteMask())
	}
	if p.Topology() != wgpu.PrimitiveTopologyTriangleList || p.CullMode() != wgpu.CullModeNone {
		t.Error("unexpected primitive defaults")
	}
	if p.RenderPipeline() != nil {
		t.Error("render pipeline set before registration")
	}
	p.Release()
}

func TestPipelineOptions(t *testing.T) {
	vs, err := shader.FullscreenVertex()
	if err != nil {
		t.Fatal(err)
	}
	fs, err := shader.FlowersFragment()
	if err != nil {
		t.Fatal(err)
	}
	p := NewPipeline("flowers_feedback",
		WithVertexShader(vs),
		WithFragmentShader(fs),
		WithTargetFormat(wgpu.TextureFormatRGBA8Unorm),
		WithBlendEnabled(true),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithCullMode(wgpu.CullModeBack),
	)
	if p.Shader(shader.ShaderTypeVertex) != vs || p.Shader(shader.ShaderTypeFragment) != fs {
		t.Error("shaders not bound to their stages")
	}
	if p.TargetFormat() != wgpu.TextureFormatRGBA8Unorm {
		t.Errorf("TargetFormat() = %v", p.TargetFormat())
	}
	if !p.BlendEnabled() || p.WriteMask() != wgpu.ColorWriteMaskRed || p.CullMode() != wgpu.CullModeBack {
		t.Error("options not applied")
	}
}
