package gpucore

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/image/math/f32"
)

// VertexStride is the byte stride of a baked layer vertex.
// Layout per vertex:
//
//	position (unorm16x2) = 4 bytes (location 0)
//	texcoord (unorm16x2) = 4 bytes (location 1)
//
// Total = 8 bytes per vertex, little endian.
const VertexStride = 8

// LayerUniformsSize is the byte size of the per-draw uniform block.
// Layout (WGSL uniform address space, 16-byte aligned vec4):
//
//	half_size (vec2<f32>) @ 0
//	offset    (vec2<f32>) @ 8
//	scale     (vec2<f32>) @ 16
//	padding             @ 24
//	color     (vec4<f32>) @ 32
const LayerUniformsSize = 48

// LayerVertexLayout returns the vertex layout shared by both layer pipelines.
func LayerVertexLayout() VertexLayout {
	return VertexLayout{
		Stride: VertexStride,
		Attributes: []VertexAttribute{
			{Format: VertexFormatUnorm16x2, Offset: 0, ShaderLocation: 0}, // position
			{Format: VertexFormatUnorm16x2, Offset: 4, ShaderLocation: 1}, // texcoord
		},
	}
}

// Vertex is one decoded layer vertex.
type Vertex struct {
	X, Y uint16 // position in model units
	U, V uint16 // lookup texture coordinate, normalized by 65535
}

// DecodeVertex decodes the vertex stored at the start of b.
func DecodeVertex(b []byte) Vertex {
	_ = b[VertexStride-1]
	return Vertex{
		X: binary.LittleEndian.Uint16(b[0:2]),
		Y: binary.LittleEndian.Uint16(b[2:4]),
		U: binary.LittleEndian.Uint16(b[4:6]),
		V: binary.LittleEndian.Uint16(b[6:8]),
	}
}

// Append appends the encoded vertex to dst.
func (v Vertex) Append(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint16(dst, v.X)
	dst = binary.LittleEndian.AppendUint16(dst, v.Y)
	dst = binary.LittleEndian.AppendUint16(dst, v.U)
	return binary.LittleEndian.AppendUint16(dst, v.V)
}

// Position returns the position as the vertex stage sees it (unorm16).
func (v Vertex) Position() f32.Vec2 {
	return f32.Vec2{unorm16(v.X), unorm16(v.Y)}
}

// TexCoord returns the texture coordinate as the vertex stage sees it.
func (v Vertex) TexCoord() f32.Vec2 {
	return f32.Vec2{unorm16(v.U), unorm16(v.V)}
}

func unorm16(x uint16) float32 { return float32(x) / 65535 }

// TexelCenter returns the unorm16 coordinate addressing the center of
// texel i in a texture of the given width.
func TexelCenter(i, width int) uint16 {
	return uint16(math.Round((float64(i) + 0.5) / float64(width) * 65535))
}

// NearestTexel resolves a normalized coordinate to a texel index the way
// a nearest, clamp-to-edge sampler does.
func NearestTexel(u float32, width int) int {
	i := int(math.Floor(float64(u) * float64(width)))
	if i < 0 {
		return 0
	}
	if i >= width {
		return width - 1
	}
	return i
}

// LayerUniforms is the per-draw uniform block of the layer shader.
type LayerUniforms struct {
	// HalfSize is half the model domain in unorm16 space; it recenters the
	// domain on the origin.
	HalfSize f32.Vec2

	// Offset is the camera pan in normalized device units.
	Offset f32.Vec2

	// Scale is the camera zoom, with the y component premultiplied by the
	// viewport aspect ratio.
	Scale f32.Vec2

	// Color is the layer palette color.
	Color f32.Vec4
}

// Append appends the encoded uniform block (LayerUniformsSize bytes) to dst.
func (u *LayerUniforms) Append(dst []byte) []byte {
	for _, f := range [...]float32{
		u.HalfSize[0], u.HalfSize[1],
		u.Offset[0], u.Offset[1],
		u.Scale[0], u.Scale[1],
		0, 0,
		u.Color[0], u.Color[1], u.Color[2], u.Color[3],
	} {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}

// DecodeLayerUniforms decodes a block produced by LayerUniforms.Append.
func DecodeLayerUniforms(b []byte) (LayerUniforms, error) {
	if len(b) != LayerUniformsSize {
		return LayerUniforms{}, fmt.Errorf("gpucore: uniform block is %d bytes, want %d", len(b), LayerUniformsSize)
	}
	f := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return LayerUniforms{
		HalfSize: f32.Vec2{f(0), f(1)},
		Offset:   f32.Vec2{f(2), f(3)},
		Scale:    f32.Vec2{f(4), f(5)},
		Color:    f32.Vec4{f(8), f(9), f(10), f(11)},
	}, nil
}

// Project maps a unorm16 position to clip space exactly as vs_main does:
//
//	clip = (pos - half_size + offset) * scale
func (u *LayerUniforms) Project(pos f32.Vec2) f32.Vec2 {
	return f32.Vec2{
		(pos[0] - u.HalfSize[0] + u.Offset[0]) * u.Scale[0],
		(pos[1] - u.HalfSize[1] + u.Offset[1]) * u.Scale[1],
	}
}
