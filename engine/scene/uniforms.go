package scene

import (
	"github.com/Carmen-Shannon/oxy-flowers/common"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer"
	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
)

// FirstStampSeed is the stop seed of the first stamp in a process lifetime.
var FirstStampSeed = common.Vec3{0.5, 1, 1}

// UniformSet holds the named parameters of the flowers program for the next draw.
// SeedPoint is in texture space, with v pointing up.
type UniformSet struct {
	AspectRatio float32
	SeedPoint   common.Vec2
	ElapsedTime float32
	StopTime    float32
	StopSeed    common.Vec3

	// FeedbackTexture is the target holding last frame's output. It is not owned by the set.
	FeedbackTexture renderer.RenderTarget
	BackgroundColor common.RGB
}

// GPU packs the set into the uniform block layout. The feedback texture is bound separately.
//
// Returns:
//   - material.GPUFlowerUniforms: the block ready for upload
func (u *UniformSet) GPU() material.GPUFlowerUniforms {
	return material.GPUFlowerUniforms{
		Ratio:           u.AspectRatio,
		Time:            u.ElapsedTime,
		StopTime:        u.StopTime,
		Point:           [2]float32(u.SeedPoint),
		StopRandomizer:  [3]float32(u.StopSeed),
		BackgroundColor: [3]float32(u.BackgroundColor.Vec3()),
	}
}
