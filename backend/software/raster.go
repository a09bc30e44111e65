package software

import (
	"image"
	"math"

	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
	"golang.org/x/image/math/f32"
)

// shade returns the color of a vertex: the layer color mixed toward white
// by the node state sampled at the vertex texcoord.
func shade(u *gpucore.LayerUniforms, v gpucore.Vertex, tex *texture) f32.Vec4 {
	uv := v.TexCoord()
	x := gpucore.NearestTexel(uv[0], int(tex.desc.Width))
	y := gpucore.NearestTexel(uv[1], int(tex.desc.Height))
	s := float32(tex.data[y*int(tex.desc.Width)+x]) / 255

	var c f32.Vec4
	for i := range c {
		c[i] = u.Color[i] + (1-u.Color[i])*s
	}
	return c
}

// clipToScreen maps clip space to framebuffer pixels, y pointing down.
func clipToScreen(w, h int) gg.Matrix {
	fw, fh := float64(w), float64(h)
	return gg.Translate(fw/2, fh/2).Multiply(gg.Scale(fw/2, -fh/2))
}

// rasterize draws a triangle list into the framebuffer. Every triangle is
// filled into the scratch mask on its own and composited with the blend
// equation, so overlapping triangles blend twice regardless of winding.
func (d *Device) rasterize(blend gpucore.BlendMode, verts []gpucore.Vertex, u *gpucore.LayerUniforms, tex *texture) error {
	w, h := d.target.Width(), d.target.Height()
	m := clipToScreen(w, h)
	dst := d.target.ResizeTarget().Data()

	d.scratch.Clear()
	d.scratch.SetRGBA(1, 1, 1, 1)
	mask := d.scratch.ResizeTarget().Data()

	for i := 0; i+2 < len(verts); i += 3 {
		var pts [3]gg.Point
		for j, v := range verts[i : i+3] {
			p := u.Project(v.Position())
			pts[j] = m.TransformPoint(gg.Pt(float64(p[0]), float64(p[1])))
		}
		r := triangleBounds(pts, w, h)
		if r.Empty() {
			continue
		}

		d.scratch.MoveTo(pts[0].X, pts[0].Y)
		d.scratch.LineTo(pts[1].X, pts[1].Y)
		d.scratch.LineTo(pts[2].X, pts[2].Y)
		d.scratch.ClosePath()
		if err := d.scratch.Fill(); err != nil {
			return err
		}
		composite(dst, mask, w, r, blend, shade(u, verts[i], tex))
	}
	return nil
}

// triangleBounds returns the pixels a triangle may touch, one pixel wider
// than its bounding box for anti-aliased edges, clipped to w x h.
func triangleBounds(pts [3]gg.Point, w, h int) image.Rectangle {
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	r := image.Rect(int(math.Floor(minX))-1, int(math.Floor(minY))-1, int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
	return r.Intersect(image.Rect(0, 0, w, h))
}

// composite blends color c into the pixels of r in dst that the mask
// covers, then clears the mask over r. Both buffers are RGBA8 with rows
// of w pixels; only the mask alpha is read.
//
// Coverage is sampled like a single-sampled GPU: a pixel is drawn when the
// triangle covers at least half of it. Covered pixels get
//
//	alpha:    dst = c*a + dst*(1-a)
//	additive: dst = dst + c*a
//
// with a = c.A. Destination alpha follows a + dst.A*(1-a) in both modes.
func composite(dst, mask []byte, w int, r image.Rectangle, blend gpucore.BlendMode, c f32.Vec4) {
	a := c[3]
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := (y*w + r.Min.X) * 4
		end := (y*w + r.Max.X) * 4
		for i := row; i < end && i+3 < len(dst) && i+3 < len(mask); i += 4 {
			covered := mask[i+3] >= 128
			clear(mask[i : i+4])
			if !covered {
				continue
			}
			for ch := range 3 {
				dv := float32(dst[i+ch]) / 255
				var out float32
				if blend == gpucore.BlendAdditive {
					out = dv + c[ch]*a
				} else {
					out = c[ch]*a + dv*(1-a)
				}
				dst[i+ch] = unorm8(out)
			}
			da := float32(dst[i+3]) / 255
			dst[i+3] = unorm8(a + da*(1-a))
		}
	}
}

func unorm8(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}
