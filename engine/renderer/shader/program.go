package shader

import (
	"math"

	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
)

// Sampler returns the previous frame's RGB color at uv, with v pointing up.
type Sampler func(u, v float32) [3]float32

// FragmentProgram is a CPU rendition of a fragment shader, run per pixel by the
// software backend. Implementations must be safe for concurrent use.
type FragmentProgram interface {
	// Shade computes the RGBA output for one fragment.
	//
	// Parameters:
	//   - u, v: the fragment's texture coordinate (v up)
	//   - uniforms: the uniform block for this draw
	//   - sample: reads the feedback texture
	//
	// Returns:
	//   - [4]float32: RGBA in [0, 1]
	Shade(u, v float32, uniforms *material.GPUFlowerUniforms, sample Sampler) [4]float32
}

// Growth constants shared with flowers.wgsl.
const (
	growRate  = 0.6
	bloomRate = 1.5
)

// FlowerProgram mirrors flowers.wgsl: it copies the previous frame and paints the
// latest stamp's stem and petal head on top, growing with the stop time.
type FlowerProgram struct{}

var _ FragmentProgram = FlowerProgram{}

func (FlowerProgram) Shade(u, v float32, un *material.GPUFlowerUniforms, sample Sampler) [4]float32 {
	base := sample(u, v)
	px := float64(u-un.Point[0]) * float64(un.Ratio)
	py := float64(v - un.Point[1])
	r := un.StopRandomizer
	rx, ry, rz := float64(r[0]), float64(r[1]), float64(r[2])
	stopTime := float64(un.StopTime)

	grow := clamp(stopTime*growRate, 0, 1)
	height := 0.12 + 0.25*rx
	bend := 0.6 * (ry - 0.5)
	stemLen := height * grow

	stem := 0.0
	if py >= 0 && py <= stemLen {
		dx := px - bend*py*py/height
		w := 0.006 * (1 - 0.5*py/height)
		stem = edge(w, math.Abs(dx))
	}

	bloom := clamp((stopTime-1/growRate)*bloomRate, 0, 1)
	qx, qy := px-bend*height, py-height
	petals := 5 + math.Floor(rz*4)
	radius := (0.03 + 0.03*rz) * bloom
	a := math.Atan2(qy, qx) + rx*3
	petal := radius * (0.55 + 0.45*math.Abs(math.Sin(a*petals*0.5)))
	d := math.Hypot(qx, qy)
	flower, center := 0.0, 0.0
	if bloom > 0 {
		flower = edge(petal, d)
		center = edge(radius*0.25, d) * bloom
	}

	stemColor := [3]float64{0.1 + rx*0.6, 0.6, 0.2}
	flowerColor := [3]float64{0.6 + 0.5*ry, 0.1, 0.9 - 0.5*ry}
	centerColor := [3]float64{1, 0.85, 0.3}

	var out [4]float32
	for i := 0; i < 3; i++ {
		c := mix(float64(base[i]), stemColor[i], stem)
		c = mix(c, flowerColor[i], flower)
		c = mix(c, centerColor[i], center)
		out[i] = float32(clamp(c, 0, 1))
	}
	out[3] = 1
	return out
}

// edge is an anti-aliased band of half width w: 1 inside w/2, 0 beyond w.
func edge(w, d float64) float64 {
	return 1 - smoothstep(w*0.5, math.Max(w, 1e-5), d)
}

func smoothstep(lo, hi, x float64) float64 {
	t := clamp((x-lo)/(hi-lo), 0, 1)
	return t * t * (3 - 2*t)
}

func mix(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
