package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUFlowerUniformsSource is the canonical WGSL definition of the FlowerUniforms struct.
// Matches GPUFlowerUniforms layout exactly (64 bytes, uniform address space alignment).
//
//go:embed assets/flower_uniforms.wgsl
var GPUFlowerUniformsSource string

// GPUFlowerUniforms is the GPU-aligned uniform block consumed by the feedback fragment shader.
// Matches the WGSL FlowerUniforms struct layout exactly (see GPUFlowerUniformsSource).
// The feedback texture is not part of the block; it is bound separately per frame.
// Size: 64 bytes.
type GPUFlowerUniforms struct {
	Ratio           float32    // offset 0: surface width / height
	Time            float32    // offset 4: elapsed seconds
	StopTime        float32    // offset 8: seconds since the last stamp
	_               float32    // offset 12: padding
	Point           [2]float32 // offset 16: stamp seed point in texture space (v up)
	_               [2]float32 // offset 24: padding to vec3 alignment
	StopRandomizer  [3]float32 // offset 32: stamp seed triple
	_               float32    // offset 44: padding
	BackgroundColor [3]float32 // offset 48: background RGB
	_               float32    // offset 60: padding
}

// GPUFlowerUniformsSize is the byte size of the uniform block.
const GPUFlowerUniformsSize = 64

// Size returns the size of the GPUFlowerUniforms struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFlowerUniforms) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUFlowerUniforms struct into a byte buffer suitable for GPU upload.
// Padding words are written as zero.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUFlowerUniforms) Marshal() []byte {
	buf := make([]byte, GPUFlowerUniformsSize)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(v))
	}
	put(0, g.Ratio)
	put(4, g.Time)
	put(8, g.StopTime)
	put(16, g.Point[0])
	put(20, g.Point[1])
	put(32, g.StopRandomizer[0])
	put(36, g.StopRandomizer[1])
	put(40, g.StopRandomizer[2])
	put(48, g.BackgroundColor[0])
	put(52, g.BackgroundColor[1])
	put(56, g.BackgroundColor[2])
	return buf
}
