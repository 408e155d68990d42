package shader

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-flowers/engine/renderer/material"
)

func solid(c [3]float32) Sampler {
	return func(u, v float32) [3]float32 { return c }
}

func near(a, b [4]float32, tol float32) bool {
	for i := range a {
		if float32(math.Abs(float64(a[i]-b[i]))) > tol {
			return false
		}
	}
	return true
}

func openingUniforms(stopTime float32) *material.GPUFlowerUniforms {
	return &material.GPUFlowerUniforms{
		Ratio:          1,
		StopTime:       stopTime,
		Point:          [2]float32{0.5, 0.5},
		StopRandomizer: [3]float32{0.5, 1, 1},
	}
}

func TestFlowerProgramPreservesBackground(t *testing.T) {
	bg := [3]float32{0.2, 0.3, 0.4}
	got := FlowerProgram{}.Shade(0.05, 0.05, openingUniforms(10), solid(bg))
	if !near(got, [4]float32{0.2, 0.3, 0.4, 1}, 1e-6) {
		t.Errorf("far pixel = %v, want background", got)
	}
}

func TestFlowerProgramNothingAtStopZero(t *testing.T) {
	bg := [3]float32{1, 1, 1}
	got := FlowerProgram{}.Shade(0.5, 0.52, openingUniforms(0), solid(bg))
	if !near(got, [4]float32{1, 1, 1, 1}, 1e-6) {
		t.Errorf("stem painted before growth: %v", got)
	}
}

func TestFlowerProgramStemAndBloom(t *testing.T) {
	bg := [3]float32{1, 1, 1}
	u := openingUniforms(10)

	// height 0.245 and bend 0.3 for randomizer (0.5, 1, 1).
	stem := FlowerProgram{}.Shade(0.5, 0.51, u, solid(bg))
	if !near(stem, [4]float32{0.4, 0.6, 0.2, 1}, 1e-3) {
		t.Errorf("stem pixel = %v", stem)
	}

	center := FlowerProgram{}.Shade(0.5+0.3*0.245, 0.5+0.245, u, solid(bg))
	if !near(center, [4]float32{1, 0.85, 0.3, 1}, 1e-3) {
		t.Errorf("flower center = %v", center)
	}
}

func TestFlowerProgramSamplesPreviousFrame(t *testing.T) {
	var gotU, gotV float32
	sample := func(u, v float32) [3]float32 {
		gotU, gotV = u, v
		return [3]float32{}
	}
	FlowerProgram{}.Shade(0.25, 0.75, openingUniforms(0), sample)
	if gotU != 0.25 || gotV != 0.75 {
		t.Errorf("sampled (%v, %v), want (0.25, 0.75)", gotU, gotV)
	}
}
