package gpucore

// Resource IDs
//
// These opaque IDs represent GPU resources. Each device implementation
// maintains a mapping between IDs and actual backend resources.
// IDs are uint64 to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU vertex buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// BlendMode selects the color blend equation of a render pipeline.
type BlendMode uint8

const (
	// BlendAlpha is normal alpha blending: src*srcAlpha + dst*(1-srcAlpha).
	BlendAlpha BlendMode = iota

	// BlendAdditive adds source and destination colors: src*1 + dst*1.
	BlendAdditive
)

// String returns the YAML/CLI name of the blend mode.
func (m BlendMode) String() string {
	switch m {
	case BlendAlpha:
		return "alpha"
	case BlendAdditive:
		return "additive"
	default:
		return "unknown"
	}
}

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatR8Unorm is 8-bit red channel only, normalized unsigned integer.
	TextureFormatR8Unorm TextureFormat = iota + 1
)

// BytesPerPixel returns the texel size of the format.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatR8Unorm:
		return 1
	default:
		return 0
	}
}

// FilterMode selects texture sampling between texels.
type FilterMode uint8

const (
	// FilterNearest picks the closest texel.
	FilterNearest FilterMode = iota
	// FilterLinear interpolates neighbouring texels.
	FilterLinear
)

// WrapMode selects how out-of-range texture coordinates are resolved.
type WrapMode uint8

const (
	// WrapClampToEdge clamps coordinates to the outermost texels.
	WrapClampToEdge WrapMode = iota
	// WrapRepeat tiles the texture.
	WrapRepeat
)

// TextureUsage describes how often the CPU rewrites a texture.
type TextureUsage uint8

const (
	// TextureUsageImmutable textures are written once at creation.
	TextureUsageImmutable TextureUsage = iota
	// TextureUsageStream textures are fully rewritten every frame.
	TextureUsageStream
)

// VertexFormat specifies the data type of a vertex attribute.
type VertexFormat uint8

const (
	// VertexFormatUnorm16x2 is two unsigned 16-bit values normalized to [0, 1].
	VertexFormatUnorm16x2 VertexFormat = iota + 1
)

// Size returns the attribute size in bytes.
func (f VertexFormat) Size() uint32 {
	switch f {
	case VertexFormatUnorm16x2:
		return 4
	default:
		return 0
	}
}

// VertexAttribute describes one attribute in a vertex buffer.
type VertexAttribute struct {
	Format         VertexFormat
	Offset         uint32
	ShaderLocation uint32
}

// VertexLayout describes the memory layout of one vertex buffer.
type VertexLayout struct {
	Stride     uint32
	Attributes []VertexAttribute
}

// RenderPipelineDesc describes a triangle-list render pipeline.
type RenderPipelineDesc struct {
	// Label is an optional debug label.
	Label string

	// Blend is the color blend equation.
	Blend BlendMode

	// Layout describes the single vertex buffer bound at slot 0.
	Layout VertexLayout
}

// TextureDesc describes a sampled 2D texture.
type TextureDesc struct {
	// Label is an optional debug label.
	Label string

	Width  uint32
	Height uint32
	Format TextureFormat
	Filter FilterMode
	Wrap   WrapMode
	Usage  TextureUsage
}

// ByteSize returns the size of one full upload of the texture.
func (d *TextureDesc) ByteSize() int {
	return int(d.Width) * int(d.Height) * d.Format.BytesPerPixel()
}

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float64
}

// PassAction describes how a render pass starts.
type PassAction struct {
	// ClearColor is the color the target is cleared to.
	ClearColor Color

	// Width and Height are the framebuffer size in pixels. Devices
	// rendering to an externally provided surface may ignore them.
	Width  uint32
	Height uint32
}

// Bindings are the resources used by subsequent draws.
type Bindings struct {
	// VertexBuffer is bound at vertex buffer slot 0.
	VertexBuffer BufferID

	// Texture is sampled by the vertex stage to look up node state.
	Texture TextureID
}
