//go:build !nogpu

package native

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/gogpu/chipview/backend"
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Options configures a native Device.
type Options struct {
	// Width and Height size the offscreen target when a pass does not
	// carry a size and no surface target is set.
	Width  uint32
	Height uint32

	// AllowNoop makes Open fall back to the noop HAL backend when no GPU
	// adapter is found.
	AllowNoop bool

	// SPIRV compiles the layer shader to SPIR-V with naga instead of
	// handing WGSL to the HAL.
	SPIRV bool

	// TargetFormat is the color format of the render target. The zero
	// value selects BGRA8Unorm.
	TargetFormat gputypes.TextureFormat
}

type bufferEntry struct {
	buf   hal.Buffer
	label string
}

type pipelineEntry struct {
	pipeline hal.RenderPipeline
	label    string
}

type textureEntry struct {
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler
	desc    gpucore.TextureDesc

	contents  []byte // last upload
	sampledIn uint64 // frame serial of the last draw that bound the texture
}

// Device is a gpucore.Device drawing through a gogpu/wgpu HAL device.
//
// A Device either wraps a caller's hal.Device (New, NewFromProvider) or
// owns one opened with Open. Resources created through it are tracked by
// opaque IDs and must be destroyed by the caller; Close releases whatever
// is left along with the device's own objects.
//
// Device is not safe for concurrent use.
type Device struct {
	device   hal.Device
	queue    hal.Queue
	instance hal.Instance // non-nil when Open created the device
	adapter  string

	opts   Options
	format gputypes.TextureFormat

	// shared layer shader objects, created lazily with the first pipeline
	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout

	nextID    uint64
	buffers   map[gpucore.BufferID]*bufferEntry
	pipelines map[gpucore.RenderPipelineID]*pipelineEntry
	textures  map[gpucore.TextureID]*textureEntry

	surface   hal.TextureView
	surfaceW  uint32
	surfaceH  uint32
	offscreen offscreenTarget

	frame frameState

	closed bool
}

// New wraps an existing HAL device and queue. The device is never
// destroyed by Close.
func New(device hal.Device, queue hal.Queue, opts Options) *Device {
	format := opts.TargetFormat
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	return &Device{
		device:    device,
		queue:     queue,
		opts:      opts,
		format:    format,
		nextID:    1,
		buffers:   make(map[gpucore.BufferID]*bufferEntry),
		pipelines: make(map[gpucore.RenderPipelineID]*pipelineEntry),
		textures:  make(map[gpucore.TextureID]*textureEntry),
	}
}

// NewFromProvider wraps the HAL device of a host application. The
// provider must implement HalDevice() any and HalQueue() any returning a
// hal.Device and hal.Queue. When it also implements
// gpucontext.DeviceProvider, its surface format becomes the target
// format unless opts.TargetFormat is set.
func NewFromProvider(provider any, opts Options) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: %T lacks HalDevice/HalQueue", ErrInvalidProvider, provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrInvalidProvider)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrInvalidProvider)
	}
	if dp, ok := provider.(gpucontext.DeviceProvider); ok && opts.TargetFormat == gputypes.TextureFormatUndefined {
		opts.TargetFormat = dp.SurfaceFormat()
	}
	d := New(device, queue, opts)
	slogger().Info("native: using shared device", "format", d.format)
	return d, nil
}

// Name returns "native".
func (d *Device) Name() string { return backend.Native }

// SetLogger sets the logger of the native backend.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Adapter returns the adapter name when the device was opened by Open.
func (d *Device) Adapter() string { return d.adapter }

// TargetFormat returns the color format pipelines are built for.
func (d *Device) TargetFormat() gputypes.TextureFormat { return d.format }

func (d *Device) newID() uint64 {
	id := d.nextID
	d.nextID++
	return id
}

// CreateVertexBuffer uploads data into a new vertex buffer.
func (d *Device) CreateVertexBuffer(label string, data []byte) (gpucore.BufferID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	if len(data) == 0 {
		return gpucore.InvalidID, fmt.Errorf("native: vertex buffer %q is empty", label)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return gpucore.InvalidID, fmt.Errorf("native: upload buffer %q: %w", label, err)
	}

	id := gpucore.BufferID(d.newID())
	d.buffers[id] = &bufferEntry{buf: buf, label: label}
	slogger().Debug("native: vertex buffer created", "label", label, "bytes", len(data))
	return id, nil
}

// DestroyBuffer releases a vertex buffer. Unknown IDs are ignored.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	e, ok := d.buffers[id]
	if !ok {
		return
	}
	d.device.DestroyBuffer(e.buf)
	delete(d.buffers, id)
}

// ensureShader creates the shader module and layouts shared by every
// layer pipeline.
func (d *Device) ensureShader() error {
	if d.shader != nil {
		return nil
	}

	source := hal.ShaderSource{WGSL: layerShaderSource}
	if d.opts.SPIRV {
		words, err := CompileShaderSPIRV(layerShaderSource)
		if err != nil {
			return err
		}
		source = hal.ShaderSource{SPIRV: words}
	}
	shader, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "layer_shader",
		Source: source,
	})
	if err != nil {
		return fmt.Errorf("native: compile layer shader: %w", err)
	}

	// Bind group layout:
	//   Binding 0: LayerUniforms (uniform buffer, vertex)
	//   Binding 1: node-state lookup texture (texture_2d, vertex)
	//   Binding 2: lookup sampler (vertex)
	bindLayout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "layer_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageVertex,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageVertex,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		d.device.DestroyShaderModule(shader)
		return fmt.Errorf("native: create layer bind group layout: %w", err)
	}

	pipeLayout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "layer_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{bindLayout},
	})
	if err != nil {
		d.device.DestroyBindGroupLayout(bindLayout)
		d.device.DestroyShaderModule(shader)
		return fmt.Errorf("native: create layer pipeline layout: %w", err)
	}

	d.shader = shader
	d.bindLayout = bindLayout
	d.pipeLayout = pipeLayout
	return nil
}

// blendState returns the color blend state and fragment entry point of
// a blend mode.
func blendState(mode gpucore.BlendMode) (gputypes.BlendState, string, error) {
	alpha := gputypes.BlendComponent{
		SrcFactor: gputypes.BlendFactorOne,
		DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
		Operation: gputypes.BlendOperationAdd,
	}
	switch mode {
	case gpucore.BlendAlpha:
		return gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorSrcAlpha,
				DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: alpha,
		}, fragmentEntryAlpha, nil
	case gpucore.BlendAdditive:
		return gputypes.BlendState{
			Color: gputypes.BlendComponent{
				SrcFactor: gputypes.BlendFactorOne,
				DstFactor: gputypes.BlendFactorOne,
				Operation: gputypes.BlendOperationAdd,
			},
			Alpha: alpha,
		}, fragmentEntryAdditive, nil
	default:
		return gputypes.BlendState{}, "", fmt.Errorf("native: unknown blend mode %d", mode)
	}
}

// vertexFormat maps a gpucore vertex format to its gputypes equivalent.
func vertexFormat(f gpucore.VertexFormat) (gputypes.VertexFormat, error) {
	switch f {
	case gpucore.VertexFormatUnorm16x2:
		return gputypes.VertexFormatUnorm16x2, nil
	default:
		return 0, fmt.Errorf("native: unsupported vertex format %d", f)
	}
}

func vertexBufferLayout(l gpucore.VertexLayout) ([]gputypes.VertexBufferLayout, error) {
	attrs := make([]gputypes.VertexAttribute, 0, len(l.Attributes))
	for _, a := range l.Attributes {
		f, err := vertexFormat(a.Format)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         f,
			Offset:         uint64(a.Offset),
			ShaderLocation: a.ShaderLocation,
		})
	}
	return []gputypes.VertexBufferLayout{{
		ArrayStride: uint64(l.Stride),
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}}, nil
}

// CreateRenderPipeline creates a layer pipeline for desc.Blend.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	blend, fragEntry, err := blendState(desc.Blend)
	if err != nil {
		return gpucore.InvalidID, err
	}
	buffers, err := vertexBufferLayout(desc.Layout)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if err := d.ensureShader(); err != nil {
		return gpucore.InvalidID, err
	}

	pipeline, err := d.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: d.pipeLayout,
		Vertex: hal.VertexState{
			Module:     d.shader,
			EntryPoint: vertexEntry,
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     d.shader,
			EntryPoint: fragEntry,
			Targets: []gputypes.ColorTargetState{
				{
					Format:    d.format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create pipeline %q: %w", desc.Label, err)
	}

	id := gpucore.RenderPipelineID(d.newID())
	d.pipelines[id] = &pipelineEntry{pipeline: pipeline, label: desc.Label}
	slogger().Debug("native: pipeline created", "label", desc.Label, "blend", desc.Blend.String())
	return id, nil
}

// DestroyRenderPipeline releases a pipeline. Unknown IDs are ignored.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	e, ok := d.pipelines[id]
	if !ok {
		return
	}
	d.device.DestroyRenderPipeline(e.pipeline)
	delete(d.pipelines, id)
}

func textureFormat(f gpucore.TextureFormat) (gputypes.TextureFormat, error) {
	switch f {
	case gpucore.TextureFormatR8Unorm:
		return gputypes.TextureFormatR8Unorm, nil
	default:
		return gputypes.TextureFormatUndefined, fmt.Errorf("native: unsupported texture format %d", f)
	}
}

func filterMode(f gpucore.FilterMode) gputypes.FilterMode {
	if f == gpucore.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func addressMode(w gpucore.WrapMode) gputypes.AddressMode {
	if w == gpucore.WrapRepeat {
		return gputypes.AddressModeRepeat
	}
	return gputypes.AddressModeClampToEdge
}

// CreateTexture creates a sampled texture with its view and sampler.
// The texture starts zero-filled.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	if d.closed {
		return gpucore.InvalidID, ErrClosed
	}
	format, err := textureFormat(desc.Format)
	if err != nil {
		return gpucore.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpucore.InvalidID, fmt.Errorf("%w: texture %q is %dx%d", ErrInvalidDimensions, desc.Label, desc.Width, desc.Height)
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("native: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create texture view %q: %w", desc.Label, err)
	}
	sampler, err := d.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        desc.Label + "_sampler",
		AddressModeU: addressMode(desc.Wrap),
		AddressModeV: addressMode(desc.Wrap),
		AddressModeW: addressMode(desc.Wrap),
		MagFilter:    filterMode(desc.Filter),
		MinFilter:    filterMode(desc.Filter),
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(tex)
		return gpucore.InvalidID, fmt.Errorf("native: create sampler %q: %w", desc.Label, err)
	}

	e := &textureEntry{tex: tex, view: view, sampler: sampler, desc: *desc}
	id := gpucore.TextureID(d.newID())
	d.textures[id] = e
	if err := d.WriteTexture(id, make([]byte, desc.ByteSize())); err != nil {
		d.DestroyTexture(id)
		return gpucore.InvalidID, err
	}
	return id, nil
}

// DestroyTexture releases a texture, its view, its sampler and any bind
// group still referring to it. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	e, ok := d.textures[id]
	if !ok {
		return
	}
	d.frame.forgetTexture(d.device, e)
	d.device.DestroySampler(e.sampler)
	d.device.DestroyTextureView(e.view)
	d.device.DestroyTexture(e.tex)
	delete(d.textures, id)
}

// WriteTexture replaces the full contents of a texture.
//
// Queue writes execute before the commands of the frame being recorded,
// so a texture already sampled by a draw of the open frame cannot change
// until the frame is committed. Such a write fails with ErrUploadOrder
// and also fails the pass. Rewriting identical contents is a no-op.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	e, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("%w: texture %d", ErrUnknownResource, id)
	}
	if want := e.desc.ByteSize(); len(data) != want {
		return fmt.Errorf("native: texture %q upload is %d bytes, want %d", e.desc.Label, len(data), want)
	}
	if f := &d.frame; f.open() && e.sampledIn == f.serial {
		if bytes.Equal(e.contents, data) {
			return nil
		}
		err := fmt.Errorf("%w: texture %q changed after a draw of the open frame", ErrUploadOrder, e.desc.Label)
		f.fail(err)
		return err
	}

	bpr := e.desc.Width * uint32(e.desc.Format.BytesPerPixel()) //nolint:gosec // bytes per pixel is 1..16
	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  e.tex,
			MipLevel: 0,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  bpr,
			RowsPerImage: e.desc.Height,
		},
		&hal.Extent3D{Width: e.desc.Width, Height: e.desc.Height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: upload texture %q: %w", e.desc.Label, err)
	}
	e.contents = append(e.contents[:0], data...)
	return nil
}

// Live returns the number of buffers, pipelines and textures created
// through the gpucore.Device interface and not yet destroyed.
func (d *Device) Live() int {
	return len(d.buffers) + len(d.pipelines) + len(d.textures)
}

// Close waits for submitted frames, then releases every remaining
// resource. A device opened with Open is destroyed along with its
// instance. Safe to call multiple times.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	waitErr := d.frame.close(d.device, d.queue)
	d.closed = true

	for id := range d.buffers {
		d.DestroyBuffer(id)
	}
	for id := range d.pipelines {
		d.DestroyRenderPipeline(id)
	}
	for id := range d.textures {
		d.DestroyTexture(id)
	}
	d.offscreen.destroy(d.device)

	if d.pipeLayout != nil {
		d.device.DestroyPipelineLayout(d.pipeLayout)
		d.pipeLayout = nil
	}
	if d.bindLayout != nil {
		d.device.DestroyBindGroupLayout(d.bindLayout)
		d.bindLayout = nil
	}
	if d.shader != nil {
		d.device.DestroyShaderModule(d.shader)
		d.shader = nil
	}

	if d.instance != nil {
		d.device.Destroy()
		d.instance.Destroy()
		d.instance = nil
		slogger().Info("native: device closed", "adapter", d.adapter)
	}
	return waitErr
}
