// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// Vec2 is a two component float vector, used for normalized surface coordinates.
type Vec2 [2]float32

// X returns the first component.
func (v Vec2) X() float32 { return v[0] }

// Y returns the second component.
func (v Vec2) Y() float32 { return v[1] }

// Vec3 is a three component float vector, used for the stamp seed triple.
type Vec3 [3]float32

// RGB is a linear color with components in [0, 1].
type RGB struct {
	R, G, B float32
}

// White is the default background color.
var White = RGB{R: 1, G: 1, B: 1}

// Vec3 returns the color as a Vec3 for uniform upload.
func (c RGB) Vec3() Vec3 {
	return Vec3{c.R, c.G, c.B}
}

// RGBA8 returns the color quantized to 8-bit channels with full alpha.
//
// Returns:
//   - [4]uint8: the R, G, B, A bytes
func (c RGB) RGBA8() [4]uint8 {
	return [4]uint8{toByte(c.R), toByte(c.G), toByte(c.B), 255}
}

// String formats the color as a #rrggbb hex string.
func (c RGB) String() string {
	b := c.RGBA8()
	return fmt.Sprintf("#%02x%02x%02x", b[0], b[1], b[2])
}

// ParseHexRGB parses a "#rrggbb", "rrggbb", "#rgb" or "0xrrggbb" color string.
//
// Parameters:
//   - s: the color string
//
// Returns:
//   - RGB: the parsed color
//   - error: error if the string is not a valid hex color
func ParseHexRGB(s string) (RGB, error) {
	h := strings.TrimSpace(s)
	h = strings.TrimPrefix(h, "#")
	h = strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return RGB{
		R: float32((v>>16)&0xff) / 255,
		G: float32((v>>8)&0xff) / 255,
		B: float32(v&0xff) / 255,
	}, nil
}

func toByte(v float32) uint8 {
	return uint8(Clamp01(v)*255 + 0.5)
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero fields fall back to the renderer defaults (clamp-to-edge, linear filtering).
type SamplerStagingData struct {
	// AddressModeU, AddressModeV specify the addressing mode for texture coordinates outside the [0, 1] range.
	AddressModeU, AddressModeV wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
}
