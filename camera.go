package chipview

import (
	"github.com/gogpu/gg"
	"golang.org/x/image/math/f32"
)

// Camera limits and defaults.
const (
	MinScale     = 1.0
	MaxScale     = 100.0
	DefaultScale = 7.0
)

// DefaultOffset is the initial camera pan in normalized device units.
var DefaultOffset = f32.Vec2{-0.05, 0}

// unorm16Max is the model unit that decodes to 1.0 in the vertex stage.
const unorm16Max = 65535

// Camera is the pan/zoom/aspect view transform shared by the draw step and
// the picking collaborator. The same values feed the per-draw uniform
// block, so ClipFromModel and the vertex shader always agree.
//
// Camera is not safe for concurrent use; it belongs to the frame loop.
type Camera struct {
	scale   float32
	offset  f32.Vec2
	aspect  float32
	display f32.Vec2
}

// NewCamera returns a camera at the default scale and offset with a
// square aspect ratio.
func NewCamera() *Camera {
	return &Camera{
		scale:  DefaultScale,
		offset: DefaultOffset,
		aspect: 1,
	}
}

// BeginFrame records the framebuffer size of the frame being started and
// recomputes the aspect ratio from it. Non-positive sizes leave the
// previous state untouched; Compositor.NewFrame rejects them first.
func (c *Camera) BeginFrame(width, height float32) {
	if width <= 0 || height <= 0 {
		return
	}
	c.display = f32.Vec2{width, height}
	c.aspect = width / height
}

// AddScale adds delta to the zoom factor and clamps the result to
// [MinScale, MaxScale].
func (c *Camera) AddScale(delta float32) {
	s := c.scale + delta
	switch {
	case s < MinScale:
		s = MinScale
	case s > MaxScale:
		s = MaxScale
	}
	c.scale = s
}

// SetOffset replaces the pan offset. No validation is done.
func (c *Camera) SetOffset(o f32.Vec2) { c.offset = o }

// Offset returns the pan offset in normalized device units.
func (c *Camera) Offset() f32.Vec2 { return c.offset }

// DisplaySize returns the framebuffer size of the most recent BeginFrame.
func (c *Camera) DisplaySize() f32.Vec2 { return c.display }

// Aspect returns width/height of the most recent BeginFrame.
func (c *Camera) Aspect() float32 { return c.aspect }

// Scale returns the zoom factor.
func (c *Camera) Scale() float32 { return c.scale }

// ScalePivot returns the fixed point of zooming in offset space. Zoom
// multiplies around the origin of the recentered model domain.
func (c *Camera) ScalePivot() f32.Vec2 { return f32.Vec2{} }

// ScaleXY returns the per-axis clip scale: x uses the zoom factor, y is
// premultiplied by the aspect ratio so pixels stay square.
func (c *Camera) ScaleXY() f32.Vec2 {
	return f32.Vec2{c.scale, c.scale * c.aspect}
}

// DragOffset returns the offset reached by dragging the pointer by delta
// pixels from a drag that started at offset start.
func (c *Camera) DragOffset(start, delta f32.Vec2) f32.Vec2 {
	w, h := c.display[0], c.display[1]
	if w <= 0 || h <= 0 {
		return start
	}
	return f32.Vec2{
		start[0] + delta[0]*2/(w*c.scale),
		start[1] - delta[1]*2/(h*c.scale*c.aspect),
	}
}

// ClipFromModel returns the affine map from model units to clip space,
// the transform the layer vertex shader applies:
//
//	clip = (model/65535 - halfSize + offset) * scaleXY
func (c *Camera) ClipFromModel(b Bounds) gg.Matrix {
	hs := b.HalfSize()
	s := c.ScaleXY()
	m := gg.Scale(float64(s[0]), float64(s[1]))
	m = m.Multiply(gg.Translate(
		float64(c.offset[0])-float64(hs[0]),
		float64(c.offset[1])-float64(hs[1]),
	))
	return m.Multiply(gg.Scale(1.0/unorm16Max, 1.0/unorm16Max))
}

// screenFromClip maps clip space to framebuffer pixels, y pointing down.
func (c *Camera) screenFromClip() gg.Matrix {
	w, h := float64(c.display[0]), float64(c.display[1])
	return gg.Translate(w/2, h/2).Multiply(gg.Scale(w/2, -h/2))
}

// ModelToScreen maps a point in model units to framebuffer pixels.
func (c *Camera) ModelToScreen(b Bounds, p gg.Point) gg.Point {
	return c.screenFromClip().Multiply(c.ClipFromModel(b)).TransformPoint(p)
}

// ScreenToModel maps a framebuffer pixel to model units. This is the
// mapping a picking collaborator uses to turn a click into a model
// coordinate. Before the first BeginFrame the result is meaningless.
func (c *Camera) ScreenToModel(b Bounds, p gg.Point) gg.Point {
	m := c.screenFromClip().Multiply(c.ClipFromModel(b))
	return m.Invert().TransformPoint(p)
}
