package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestPreProcessorInclude(t *testing.T) {
	out, err := newPreProcessor().Process("//@oxy:include flower_uniforms\nfn f() {}")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "struct FlowerUniforms") {
		t.Errorf("include not expanded:\n%s", out)
	}
	if strings.Contains(out, "@oxy:include") {
		t.Error("directive left in output")
	}
}

func TestPreProcessorUnknownInclude(t *testing.T) {
	_, err := newPreProcessor().Process("fn a() {}\n  //@oxy:include nope")
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("expected line 2 error, got %v", err)
	}
	if _, err := newPreProcessor().Process("//@oxy:include"); err == nil {
		t.Fatal("expected error for empty include")
	}
}

func TestBuiltInShaders(t *testing.T) {
	tests := []struct {
		name  string
		load  func() (Shader, error)
		entry string
	}{
		{KeyFullscreenVertex, FullscreenVertex, "vs_main"},
		{KeyFlowersFragment, FlowersFragment, "fs_main"},
		{KeyCompositeFragment, CompositeFragment, "fs_main"},
	}
	for _, tt := range tests {
		s, err := tt.load()
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if s.Key() != tt.name {
			t.Errorf("Key() = %q, want %q", s.Key(), tt.name)
		}
		if s.EntryPoint() != tt.entry {
			t.Errorf("%s: EntryPoint() = %q, want %q", tt.name, s.EntryPoint(), tt.entry)
		}
		if s.Module() == nil || s.Module().WGSLDescriptor.Code != s.Source() {
			t.Errorf("%s: module does not carry processed source", tt.name)
		}
	}
}

func TestFlowersLayout(t *testing.T) {
	s, err := FlowersFragment()
	if err != nil {
		t.Fatal(err)
	}
	desc, ok := s.BindGroupLayoutDescriptors()[0]
	if !ok {
		t.Fatal("missing group 0")
	}
	if len(desc.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(desc.Entries))
	}
	u := desc.Entries[0]
	if u.Buffer.Type != wgpu.BufferBindingTypeUniform || u.Buffer.MinBindingSize != 64 {
		t.Errorf("binding 0 = %+v, want uniform of 64 bytes", u.Buffer)
	}
	if desc.Entries[1].Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("binding 1 is not a 2D texture")
	}
	if desc.Entries[2].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("binding 2 is not a filtering sampler")
	}
	for _, e := range desc.Entries {
		if e.Visibility != wgpu.ShaderStageFragment {
			t.Errorf("binding %d visibility = %v", e.Binding, e.Visibility)
		}
	}
	if b, ok := s.BindGroupFromVarName(0, "u_sampler"); !ok || b != 2 {
		t.Errorf("BindGroupFromVarName(u_sampler) = %d, %v", b, ok)
	}
	if _, ok := s.BindGroupFromVarName(1, "u"); ok {
		t.Error("lookup in missing group succeeded")
	}
}

func TestNewShaderMissingEntry(t *testing.T) {
	if _, err := NewShader("bad", ShaderTypeVertex, "@fragment fn fs_main() {}"); err == nil {
		t.Fatal("expected error for vertex shader without @vertex")
	}
}

func TestCommentedDeclarationsIgnored(t *testing.T) {
	src := "// @group(0) @binding(0) var<uniform> x: FlowerUniforms;\n@vertex fn vs_main() {}"
	s, err := NewShader("c", ShaderTypeVertex, src)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.BindGroupLayoutDescriptors()) != 0 {
		t.Errorf("commented declaration parsed: %v", s.BindGroupLayoutDescriptors())
	}
}
