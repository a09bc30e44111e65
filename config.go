package chipview

import (
	"fmt"

	"github.com/gogpu/chipview/gpucore"
	"golang.org/x/image/math/f32"
)

// Default resource limits.
const (
	DefaultBufferLimit   = 16
	DefaultPipelineLimit = 8
	DefaultTextureLimit  = 8
)

// Bounds is the model-space coordinate domain of the baked layer meshes,
// in unsigned 16-bit model units.
type Bounds struct {
	MinX, MinY uint16
	MaxX, MaxY uint16
}

// Width returns MaxX - MinX.
func (b Bounds) Width() int { return int(b.MaxX) - int(b.MinX) }

// Height returns MaxY - MinY.
func (b Bounds) Height() int { return int(b.MaxY) - int(b.MinY) }

// HalfSize returns the half-size domain scale used to recenter decoded
// vertex positions: (max >> 1) / 65535 per axis.
func (b Bounds) HalfSize() f32.Vec2 {
	return f32.Vec2{
		float32(b.MaxX>>1) / 65535,
		float32(b.MaxY>>1) / 65535,
	}
}

func (b Bounds) validate() error {
	if b.MaxX == 0 || b.MaxY == 0 {
		return violation("New", "bounds max (%d, %d) must be positive", b.MaxX, b.MaxY)
	}
	if b.MinX > b.MaxX || b.MinY > b.MaxY {
		return violation("New", "bounds min (%d, %d) exceeds max (%d, %d)", b.MinX, b.MinY, b.MaxX, b.MaxY)
	}
	return nil
}

// Limits caps the number of device resources a Compositor may create.
// A zero field selects its default.
type Limits struct {
	Buffers   int
	Pipelines int
	Textures  int
}

func (l Limits) withDefaults() Limits {
	if l.Buffers == 0 {
		l.Buffers = DefaultBufferLimit
	}
	if l.Pipelines == 0 {
		l.Pipelines = DefaultPipelineLimit
	}
	if l.Textures == 0 {
		l.Textures = DefaultTextureLimit
	}
	return l
}

// HighlightPolicy decides how long a node state set by a collaborator
// stays visible.
type HighlightPolicy uint8

const (
	// HighlightSticky keeps every node state until it is overwritten.
	HighlightSticky HighlightPolicy = iota

	// HighlightPerFrame resets all node states to NodeStateNone at the
	// start of every frame (in NewFrame).
	HighlightPerFrame
)

// String returns the YAML name of the policy.
func (p HighlightPolicy) String() string {
	switch p {
	case HighlightSticky:
		return "sticky"
	case HighlightPerFrame:
		return "per_frame"
	default:
		return fmt.Sprintf("HighlightPolicy(%d)", uint8(p))
	}
}

// Config is the one-shot initialization input of a Compositor.
type Config struct {
	// LayerVertices holds the baked vertex data of each layer slot
	// (see AppendVertex). Empty slots get no mesh and are never drawn.
	LayerVertices [MaxLayers][]byte

	// Bounds is the model-space domain of the vertex data.
	Bounds Bounds

	// HighlightPolicy selects sticky or per-frame node highlights.
	HighlightPolicy HighlightPolicy

	// Limits caps device resource usage. The zero value uses the defaults.
	Limits Limits
}

// validate checks cfg for contract violations and returns a copy with
// defaults applied.
func (cfg *Config) validate() (Config, error) {
	if cfg == nil {
		return Config{}, violation("New", "nil config")
	}
	c := *cfg
	if err := c.Bounds.validate(); err != nil {
		return Config{}, err
	}
	if c.HighlightPolicy > HighlightPerFrame {
		return Config{}, violation("New", "unknown highlight policy %d", c.HighlightPolicy)
	}
	if c.Limits.Buffers < 0 || c.Limits.Pipelines < 0 || c.Limits.Textures < 0 {
		return Config{}, violation("New", "negative limits %+v", c.Limits)
	}
	for i, data := range c.LayerVertices {
		if len(data)%gpucore.VertexStride != 0 {
			return Config{}, violation("New", "layer %d data is %d bytes, not a multiple of %d",
				i, len(data), gpucore.VertexStride)
		}
	}
	c.Limits = c.Limits.withDefaults()
	return c, nil
}

// meshCount returns the number of non-empty layer slots.
func (cfg *Config) meshCount() int {
	n := 0
	for _, data := range cfg.LayerVertices {
		if len(data) > 0 {
			n++
		}
	}
	return n
}
