package recording

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/chipview/backend"
	"github.com/gogpu/chipview/gpucore"
)

func init() {
	backend.Register(backend.Recording, func(backend.Options) (gpucore.Device, error) {
		return New(Options{}), nil
	})
}

// ErrInjected is returned by the operation named in Options.FailOp.
var ErrInjected = errors.New("recording: injected failure")

// Options configures a recording Device.
type Options struct {
	// Capacity limits the number of live resources. Create calls beyond
	// it fail with an error wrapping gpucore.ErrResourceExhausted. Zero
	// means unlimited.
	Capacity int

	// FailOp makes every call of the named operation fail with
	// ErrInjected. Apply and Draw failures surface from EndPass.
	FailOp Op
}

type resourceKind uint8

const (
	kindBuffer resourceKind = iota + 1
	kindPipeline
	kindTexture
)

type resource struct {
	kind  resourceKind
	label string
	size  int // texture byte size
}

// Device is a gpucore.Device that draws nothing and records every call.
// Tests inspect the log with Commands and the live resources with Live.
//
// Device enforces the pass protocol: Apply and Draw calls outside a pass,
// or naming unknown resources, are recorded and reported from EndPass.
type Device struct {
	opts Options

	commands []Command
	live     map[uint64]resource
	nextID   uint64
	frames   int

	inPass  bool
	passErr error

	log *slog.Logger
}

// New creates a recording device.
func New(opts Options) *Device {
	return &Device{
		opts:   opts,
		live:   make(map[uint64]resource),
		nextID: 1,
		log:    slog.New(slog.DiscardHandler),
	}
}

// SetLogger sets the logger used for debug output of recorded calls.
func (d *Device) SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	d.log = l
}

// Name returns "recording".
func (d *Device) Name() string { return backend.Recording }

func (d *Device) record(c Command) {
	d.commands = append(d.commands, c)
	d.log.Debug("recording: command", "op", c.Op.String(), "label", c.Label)
}

func (d *Device) fail(op Op) error {
	if d.opts.FailOp == op && op != OpNone {
		return fmt.Errorf("%w: %s", ErrInjected, op)
	}
	return nil
}

func (d *Device) create(op Op, r resource) (uint64, error) {
	if err := d.fail(op); err != nil {
		return gpucore.InvalidID, err
	}
	if d.opts.Capacity > 0 && len(d.live) >= d.opts.Capacity {
		return gpucore.InvalidID, fmt.Errorf("recording: %s %q: %d live resources: %w",
			op, r.label, len(d.live), gpucore.ErrResourceExhausted)
	}
	id := d.nextID
	d.nextID++
	d.live[id] = r
	return id, nil
}

func (d *Device) destroy(op Op, id uint64, kind resourceKind) {
	r, ok := d.live[id]
	if !ok || r.kind != kind {
		panic(fmt.Sprintf("recording: %s of unknown resource %d", op, id))
	}
	delete(d.live, id)
	d.record(Command{Op: op, Label: r.label, ID: id})
}

// CreateVertexBuffer records a buffer creation. data is copied.
func (d *Device) CreateVertexBuffer(label string, data []byte) (gpucore.BufferID, error) {
	id, err := d.create(OpCreateBuffer, resource{kind: kindBuffer, label: label})
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.record(Command{Op: OpCreateBuffer, Label: label, ID: id, Data: slices.Clone(data)})
	return gpucore.BufferID(id), nil
}

// DestroyBuffer records a buffer destruction.
func (d *Device) DestroyBuffer(id gpucore.BufferID) {
	d.destroy(OpDestroyBuffer, uint64(id), kindBuffer)
}

// CreateRenderPipeline records a pipeline creation.
func (d *Device) CreateRenderPipeline(desc *gpucore.RenderPipelineDesc) (gpucore.RenderPipelineID, error) {
	id, err := d.create(OpCreatePipeline, resource{kind: kindPipeline, label: desc.Label})
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.record(Command{Op: OpCreatePipeline, Label: desc.Label, ID: id, Blend: desc.Blend})
	return gpucore.RenderPipelineID(id), nil
}

// DestroyRenderPipeline records a pipeline destruction.
func (d *Device) DestroyRenderPipeline(id gpucore.RenderPipelineID) {
	d.destroy(OpDestroyPipeline, uint64(id), kindPipeline)
}

// CreateTexture records a texture creation.
func (d *Device) CreateTexture(desc *gpucore.TextureDesc) (gpucore.TextureID, error) {
	size := desc.ByteSize()
	if size == 0 {
		return gpucore.InvalidID, fmt.Errorf("recording: texture %q has zero size", desc.Label)
	}
	id, err := d.create(OpCreateTexture, resource{kind: kindTexture, label: desc.Label, size: size})
	if err != nil {
		return gpucore.InvalidID, err
	}
	d.record(Command{Op: OpCreateTexture, Label: desc.Label, ID: id, Count: uint32(size)})
	return gpucore.TextureID(id), nil
}

// DestroyTexture records a texture destruction.
func (d *Device) DestroyTexture(id gpucore.TextureID) {
	d.destroy(OpDestroyTexture, uint64(id), kindTexture)
}

// WriteTexture records a full texture upload. data is copied.
func (d *Device) WriteTexture(id gpucore.TextureID, data []byte) error {
	if err := d.fail(OpWriteTexture); err != nil {
		return err
	}
	r, ok := d.live[uint64(id)]
	if !ok || r.kind != kindTexture {
		return fmt.Errorf("recording: write to unknown texture %d", id)
	}
	if len(data) != r.size {
		return fmt.Errorf("recording: texture %q upload is %d bytes, want %d", r.label, len(data), r.size)
	}
	d.record(Command{Op: OpWriteTexture, Label: r.label, ID: uint64(id), Data: slices.Clone(data)})
	return nil
}

// BeginPass records the start of a render pass.
func (d *Device) BeginPass(action gpucore.PassAction) error {
	if err := d.fail(OpBeginPass); err != nil {
		return err
	}
	if d.inPass {
		return errors.New("recording: BeginPass inside a pass")
	}
	d.inPass = true
	d.passErr = nil
	d.record(Command{Op: OpBeginPass, Clear: action.ClearColor, Width: action.Width, Height: action.Height})
	return nil
}

// passFail remembers the first protocol failure of the current pass.
func (d *Device) passFail(err error) {
	if d.passErr == nil {
		d.passErr = err
	}
}

func (d *Device) checkPass(op Op) {
	if !d.inPass {
		d.passFail(fmt.Errorf("recording: %s outside a pass", op))
	}
	if err := d.fail(op); err != nil {
		d.passFail(err)
	}
}

func (d *Device) checkLive(op Op, id uint64, kind resourceKind) string {
	r, ok := d.live[id]
	if !ok || r.kind != kind {
		d.passFail(fmt.Errorf("recording: %s names unknown resource %d", op, id))
		return ""
	}
	return r.label
}

// ApplyPipeline records a pipeline switch.
func (d *Device) ApplyPipeline(id gpucore.RenderPipelineID) {
	d.checkPass(OpApplyPipeline)
	label := d.checkLive(OpApplyPipeline, uint64(id), kindPipeline)
	d.record(Command{Op: OpApplyPipeline, Label: label, ID: uint64(id)})
}

// ApplyBindings records a binding change.
func (d *Device) ApplyBindings(b gpucore.Bindings) {
	d.checkPass(OpApplyBindings)
	label := d.checkLive(OpApplyBindings, uint64(b.VertexBuffer), kindBuffer)
	d.checkLive(OpApplyBindings, uint64(b.Texture), kindTexture)
	d.record(Command{Op: OpApplyBindings, Label: label, ID: uint64(b.VertexBuffer), Texture: uint64(b.Texture)})
}

// ApplyUniforms records a uniform upload. data is copied.
func (d *Device) ApplyUniforms(data []byte) {
	d.checkPass(OpApplyUniforms)
	d.record(Command{Op: OpApplyUniforms, Data: slices.Clone(data)})
}

// Draw records a draw call.
func (d *Device) Draw(base, count, instances uint32) {
	d.checkPass(OpDraw)
	d.record(Command{Op: OpDraw, Base: base, Count: count, Instances: instances})
}

// EndPass records the end of the pass and returns the first protocol
// failure recorded since BeginPass.
func (d *Device) EndPass() error {
	if !d.inPass {
		return errors.New("recording: EndPass outside a pass")
	}
	d.inPass = false
	d.record(Command{Op: OpEndPass})
	if err := d.fail(OpEndPass); err != nil {
		d.passFail(err)
	}
	err := d.passErr
	d.passErr = nil
	return err
}

// Commit records a frame submission.
func (d *Device) Commit() error {
	if err := d.fail(OpCommit); err != nil {
		return err
	}
	if d.inPass {
		return errors.New("recording: Commit inside a pass")
	}
	d.frames++
	d.record(Command{Op: OpCommit})
	return nil
}

// Commands returns the recorded command log.
func (d *Device) Commands() []Command { return d.commands }

// Ops returns the ops of the recorded command log, in order.
func (d *Device) Ops() []Op {
	ops := make([]Op, len(d.commands))
	for i, c := range d.commands {
		ops[i] = c.Op
	}
	return ops
}

// Frames returns the number of committed frames.
func (d *Device) Frames() int { return d.frames }

// Live returns the number of resources created and not yet destroyed.
func (d *Device) Live() int { return len(d.live) }

// Reset clears the command log and the frame count. Live resources are
// kept.
func (d *Device) Reset() {
	d.commands = nil
	d.frames = 0
}
