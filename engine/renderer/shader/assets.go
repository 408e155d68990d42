package shader

import (
	_ "embed"
)

// Keys of the built-in shaders.
const (
	KeyFullscreenVertex  = "fullscreen_vert"
	KeyFlowersFragment   = "flowers_frag"
	KeyCompositeFragment = "composite_frag"
)

//go:embed assets/fullscreen.wgsl
var fullscreenSource string

//go:embed assets/flowers.wgsl
var flowersSource string

//go:embed assets/composite.wgsl
var compositeSource string

// FullscreenVertex returns the identity full-screen triangle vertex shader.
func FullscreenVertex() (Shader, error) {
	return NewShader(KeyFullscreenVertex, ShaderTypeVertex, fullscreenSource)
}

// FlowersFragment returns the procedural feedback fragment shader. It reads the
// previous frame through u_texture and the uniform block u.
func FlowersFragment() (Shader, error) {
	return NewShader(KeyFlowersFragment, ShaderTypeFragment, flowersSource)
}

// CompositeFragment returns the fragment shader that copies a render target onto the surface.
func CompositeFragment() (Shader, error) {
	return NewShader(KeyCompositeFragment, ShaderTypeFragment, compositeSource)
}
