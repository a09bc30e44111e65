package chipview

import (
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
	"golang.org/x/image/math/f32"
)

// Palette holds one color per layer slot.
type Palette [MaxLayers]gg.RGBA

// DefaultPalette returns the six half-transparent mask layer colors:
// red, green, blue, yellow, cyan and magenta, in layer order.
func DefaultPalette() Palette {
	return Palette{
		{R: 1, G: 0, B: 0, A: 0.5},
		{R: 0, G: 1, B: 0, A: 0.5},
		{R: 0, G: 0, B: 1, A: 0.5},
		{R: 1, G: 1, B: 0, A: 0.5},
		{R: 0, G: 1, B: 1, A: 0.5},
		{R: 1, G: 0, B: 1, A: 0.5},
	}
}

// vec4 returns the uniform representation of the color of layer i.
func (p *Palette) vec4(i LayerIndex) f32.Vec4 {
	c := p[i]
	return f32.Vec4{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
}

// blendConfig couples the palette with the blend equation it was
// authored for. Both are replaced together.
type blendConfig struct {
	blend   gpucore.BlendMode
	palette Palette
}
