package software

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/gogpu/chipview/backend"
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gg"
)

func init() {
	backend.Register(backend.Software, func(opts backend.Options) (gpucore.Device, error) {
		return New(Options{Width: opts.Width, Height: opts.Height}), nil
	})
}

// Errors returned by the software device.
var (
	// ErrUnknownResource is returned when an ID does not name a live
	// resource of the expected kind.
	ErrUnknownResource = errors.New("software: unknown resource")

	// ErrPassState is returned for pass calls out of order.
	ErrPassState = errors.New("software: render pass state")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("software: device closed")
)

// Options configures a software Device.
type Options struct {
	// Width and Height size the framebuffer when a pass does not carry a
	// size.
	Width  int
	Height int
}

type texture struct {
	desc gpucore.TextureDesc
	data []byte
}

// Device is a gpucore.Device that rasterizes layer meshes on the CPU with
// gg. The framebuffer persists after Commit and can be read with Image,
// SavePNG or EncodePNG.
//
// Triangles are flat shaded with the node state of their first vertex.
// Each draw rasterizes its triangles one at a time into a coverage mask
// and composites every triangle with the pipeline's blend equation.
//
// Device is not safe for concurrent use.
type Device struct {
	opts   Options
	logger *slog.Logger

	nextID    uint64
	buffers   map[gpucore.BufferID][]gpucore.Vertex
	pipelines map[gpucore.RenderPipelineID]gpucore.BlendMode
	textures  map[gpucore.TextureID]*texture

	target  *gg.Context // framebuffer
	scratch *gg.Context // coverage mask

	inPass   bool
	passErr  error
	pipeline gpucore.RenderPipelineID
	bindings gpucore.Bindings
	uniforms []byte
	pending  bool // a pass ended and awaits Commit
	frames   int
	draws    int

	closed bool
}

// New creates a software device.
func New(opts Options) *Device {
	return &Device{
		opts:      opts,
		logger:    slog.New(slog.DiscardHandler),
		nextID:    1,
		buffers:   make(map[gpucore.BufferID][]gpucore.Vertex),
		pipelines: make(map[gpucore.RenderPipelineID]gpucore.BlendMode),
		textures:  make(map[gpucore.TextureID]*texture),
	}
}

// Name returns "software".
func (d *Device) Name() string { return backend.Software }

// SetLogger sets the device logger. A nil logger discards output.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.logger = l
}

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// CreateVertexBuffer decodes data into a vertex list.
func (d *Device) CreateVertexBuffer(label string, data []byte) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if len(data) == 0 || len(data)%gpucore.VertexStride != 0 {
		return gpucore.InvalidID, fmt.Errorf("software: vertex buffer %q has %d bytes, want a non-zero multiple of %d",
			label, len(data), gpucore.VertexStride)
	}
	verts := make([]gpucore.Vertex, 0, len(data)/gpucore.VertexStride)
	for off := 0; off < len(data); off += gpucore.VertexStride {
		verts = append(verts, gpucore.DecodeVertex(data[off:]))
	}
	id := gpucore.BufferID(d.newID())
	d.buffers[id] = verts
	return id, nil
}

// DestroyBuffer releases a vertex buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id gpucore.BufferID) { delete(d.buffers, id) }

// CreateRenderPipeline records the blend equation of a pipeline.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	switch desc.Blend {
	case gpucore.BlendAlpha, gpucore.BlendAdditive:
	default:
		return gpucore.InvalidID, fmt.Errorf("software: unknown blend mode %d", desc.Blend)
	}
	if desc.Layout.Stride != gpucore.VertexStride {
		return gpucore.InvalidID, fmt.Errorf("software: vertex stride %d, want %d", desc.Layout.Stride, gpucore.VertexStride)
	}
	id := gpucore.RenderPipelineID(d.newID())
	d.pipelines[id] = desc.Blend
	return id, nil
}

// DestroyRenderPipeline releases a pipeline. Unknown IDs are ignored.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) { delete(d.pipelines, id) }

// CreateTexture allocates a zero-filled texture.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if desc.Format != gpucore.TextureFormatR8Unorm {
		return gpucore.InvalidID, fmt.Errorf("software: unsupported texture format %d", desc.Format)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("software: texture %q is %dx%d", desc.Label, desc.Width, desc.Height)
	}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = &texture{desc: *desc, data: make([]byte, desc.ByteSize())}
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id gpucore.TextureID) { delete(d.textures, id) }

// WriteTexture replaces the contents of a texture.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}
	if len(data) != len(t.data) {
		return fmt.Errorf("software: texture %q upload is %d bytes, want %d", t.desc.Label, len(data), len(t.data))
	}
	copy(t.data, data)
	return nil
}

// BeginPass clears the framebuffer, resizing it to the pass size.
func (d *Device) BeginPass(action gpucore.PassAction) error {
	if d.closed {
		return ErrClosed
	}
	if d.inPass {
		return fmt.Errorf("%w: BeginPass inside a pass", ErrPassState)
	}
	w, h := int(action.Width), int(action.Height)
	if w == 0 || h == 0 {
		w, h = d.opts.Width, d.opts.Height
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("software: framebuffer size %dx%d", w, h)
	}
	if err := d.resize(w, h); err != nil {
		return err
	}
	c := action.ClearColor
	d.target.ClearWithColor(gg.RGBA{R: c.R, G: c.G, B: c.B, A: c.A})

	d.inPass = true
	d.passErr = nil
	d.pipeline = gpucore.InvalidID
	d.bindings = gpucore.Bindings{}
	d.uniforms = d.uniforms[:0]
	d.draws = 0
	return nil
}

func (d *Device) resize(w, h int) error {
	if d.target == nil {
		d.target = gg.NewContext(w, h)
		d.scratch = gg.NewContext(w, h)
		return nil
	}
	if err := d.target.Resize(w, h); err != nil {
		return fmt.Errorf("software: resize framebuffer: %w", err)
	}
	if err := d.scratch.Resize(w, h); err != nil {
		return fmt.Errorf("software: resize scratch: %w", err)
	}
	return nil
}

func (d *Device) fail(err error) {
	if d.passErr == nil {
		d.passErr = err
	}
}

// ApplyPipeline selects a pipeline.
func (d *Device) ApplyPipeline(id gpucore.RenderPipelineID) {
	if !d.inPass {
		d.fail(fmt.Errorf("%w: ApplyPipeline", ErrPassState))
		return
	}
	if _, ok := d.pipelines[id]; !ok {
		d.fail(fmt.Errorf("%w: pipeline %d", ErrUnknownResource, id))
		return
	}
	d.pipeline = id
}

// ApplyBindings selects the vertex buffer and lookup texture.
func (d *Device) ApplyBindings(b gpucore.Bindings) {
	if !d.inPass {
		d.fail(fmt.Errorf("%w: ApplyBindings", ErrPassState))
		return
	}
	if _, ok := d.buffers[b.VertexBuffer]; !ok {
		d.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.VertexBuffer))
		return
	}
	if _, ok := d.textures[b.Texture]; !ok {
		d.fail(fmt.Errorf("%w: texture %d", ErrUnknownResource, b.Texture))
		return
	}
	d.bindings = b
}

// ApplyUniforms copies the uniform block for the next draw.
func (d *Device) ApplyUniforms(data []byte) {
	if !d.inPass {
		d.fail(fmt.Errorf("%w: ApplyUniforms", ErrPassState))
		return
	}
	d.uniforms = append(d.uniforms[:0], data...)
}

// Draw rasterizes count vertices starting at base. Instances beyond the
// first draw the same triangles again.
func (d *Device) Draw(base, count, instances uint32) {
	if !d.inPass {
		d.fail(fmt.Errorf("%w: Draw", ErrPassState))
		return
	}
	if d.passErr != nil {
		return
	}
	blend, ok := d.pipelines[d.pipeline]
	if !ok {
		d.fail(errors.New("software: Draw without a pipeline"))
		return
	}
	verts, ok := d.buffers[d.bindings.VertexBuffer]
	tex, texOK := d.textures[d.bindings.Texture]
	if !ok || !texOK {
		d.fail(errors.New("software: Draw without bindings"))
		return
	}
	u, err := gpucore.DecodeLayerUniforms(d.uniforms)
	if err != nil {
		d.fail(err)
		return
	}
	end := uint64(base) + uint64(count)
	if end > uint64(len(verts)) {
		d.fail(fmt.Errorf("software: draw %d..%d exceeds %d vertices", base, end, len(verts)))
		return
	}

	for range instances {
		if err := d.rasterize(blend, verts[base:end], &u, tex); err != nil {
			d.fail(err)
			return
		}
	}
	d.draws++
}

// EndPass ends the pass and reports the first deferred error.
func (d *Device) EndPass() error {
	if !d.inPass {
		return fmt.Errorf("%w: EndPass outside a pass", ErrPassState)
	}
	d.inPass = false
	if d.passErr != nil {
		return d.passErr
	}
	d.pending = true
	return nil
}

// Commit completes the frame. The framebuffer keeps its contents until
// the next BeginPass.
func (d *Device) Commit() error {
	if d.closed {
		return ErrClosed
	}
	if d.inPass {
		return fmt.Errorf("%w: Commit inside a pass", ErrPassState)
	}
	if !d.pending {
		return nil
	}
	d.pending = false
	d.frames++
	d.logger.Debug("software: frame committed", "frame", d.frames, "draws", d.draws)
	return nil
}

// Frames returns the number of committed frames.
func (d *Device) Frames() int { return d.frames }

// Live returns the number of live resources.
func (d *Device) Live() int { return len(d.buffers) + len(d.pipelines) + len(d.textures) }

// Image returns a copy of the framebuffer, or nil before the first pass.
func (d *Device) Image() *image.RGBA {
	if d.target == nil {
		return nil
	}
	return d.target.ResizeTarget().ToImage()
}

// SavePNG writes the framebuffer to a PNG file.
func (d *Device) SavePNG(path string) error {
	if d.target == nil {
		return errors.New("software: no frame rendered")
	}
	return d.target.SavePNG(path)
}

// EncodePNG writes the framebuffer as PNG to w.
func (d *Device) EncodePNG(w io.Writer) error {
	if d.target == nil {
		return errors.New("software: no frame rendered")
	}
	return d.target.EncodePNG(w)
}

// Close releases the framebuffer and all resources. Safe to call
// multiple times.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	clear(d.buffers)
	clear(d.pipelines)
	clear(d.textures)
	var errs []error
	if d.target != nil {
		errs = append(errs, d.target.Close(), d.scratch.Close())
	}
	return errors.Join(errs...)
}
