package material

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
)

func TestGPUFlowerUniforms_Size(t *testing.T) {
	var u GPUFlowerUniforms
	if got := u.Size(); got != GPUFlowerUniformsSize {
		t.Errorf("Size() = %d, want %d", got, GPUFlowerUniformsSize)
	}
}

func TestGPUFlowerUniforms_MarshalOffsets(t *testing.T) {
	u := GPUFlowerUniforms{
		Ratio:           1.5,
		Time:            2,
		StopTime:        0.25,
		Point:           [2]float32{0.75, 0.5},
		StopRandomizer:  [3]float32{0.5, 1, 1},
		BackgroundColor: [3]float32{1, 0.5, 0},
	}
	buf := u.Marshal()
	if len(buf) != GPUFlowerUniformsSize {
		t.Fatalf("len(Marshal()) = %d, want %d", len(buf), GPUFlowerUniformsSize)
	}
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	checks := []struct {
		off  int
		want float32
	}{
		{0, 1.5}, {4, 2}, {8, 0.25}, {12, 0},
		{16, 0.75}, {20, 0.5}, {24, 0}, {28, 0},
		{32, 0.5}, {36, 1}, {40, 1}, {44, 0},
		{48, 1}, {52, 0.5}, {56, 0}, {60, 0},
	}
	for _, c := range checks {
		if got := at(c.off); got != c.want {
			t.Errorf("offset %d = %v, want %v", c.off, got, c.want)
		}
	}
}

func TestGPUFlowerUniformsSource(t *testing.T) {
	for _, field := range []string{"ratio", "time", "stop_time", "point", "stop_randomizer", "background_color"} {
		if !strings.Contains(GPUFlowerUniformsSource, field+":") {
			t.Errorf("WGSL struct is missing field %q", field)
		}
	}
}
