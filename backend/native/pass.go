//go:build !nogpu

package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// uniformSlot is the uniform buffer and bind group used by the n-th draw
// of a pass. Queue writes land before the command buffer executes, so
// draws within one pass cannot share a uniform buffer.
type uniformSlot struct {
	buf   hal.Buffer
	group hal.BindGroup
	view  hal.TextureView // texture view the group was built for
}

// submission is a committed frame that may still be executing.
type submission struct {
	index uint64 // queue submission index
	cmd   hal.CommandBuffer
}

// frameState is the per-pass recording state of a Device.
type frameState struct {
	encoder hal.CommandEncoder
	rp      hal.RenderPassEncoder
	cmd     hal.CommandBuffer // ended but not yet committed
	inPass  bool
	serial  uint64 // incremented by every BeginPass
	err     error  // first deferred Apply*/Draw failure of the pass

	pipeline *pipelineEntry
	vertex   *bufferEntry
	texture  *textureEntry
	uniforms []byte
	draws    int

	slots    []uniformSlot
	inflight []submission
}

// fail records the first deferred error of the pass.
func (f *frameState) fail(err error) {
	if f.err == nil {
		f.err = err
	}
}

// open reports whether a frame has been begun and not yet committed or
// discarded. Queue writes made while a frame is open execute before its
// commands.
func (f *frameState) open() bool {
	return f.inPass || f.cmd != nil
}

// wait blocks until every committed frame has completed and frees their
// command buffers.
func (f *frameState) wait(device hal.Device, queue hal.Queue) error {
	if len(f.inflight) == 0 {
		return nil
	}
	var err error
	if last := f.inflight[len(f.inflight)-1].index; queue.PollCompleted() < last {
		if werr := device.WaitIdle(); werr != nil {
			err = fmt.Errorf("native: wait for frame: %w", werr)
		}
	}
	for _, s := range f.inflight {
		device.FreeCommandBuffer(s.cmd)
	}
	f.inflight = f.inflight[:0]
	return err
}

// forgetTexture drops bind groups referring to a texture about to be
// destroyed.
func (f *frameState) forgetTexture(device hal.Device, e *textureEntry) {
	for i := range f.slots {
		if f.slots[i].group != nil && f.slots[i].view == e.view {
			device.DestroyBindGroup(f.slots[i].group)
			f.slots[i].group = nil
			f.slots[i].view = nil
		}
	}
	if f.texture == e {
		f.texture = nil
	}
}

// close abandons an open pass, waits for committed frames and releases
// the uniform slots.
func (f *frameState) close(device hal.Device, queue hal.Queue) error {
	if f.inPass {
		f.rp.End()
		f.encoder.DiscardEncoding()
		f.inPass = false
	}
	if f.cmd != nil {
		device.FreeCommandBuffer(f.cmd)
		f.cmd = nil
	}
	err := f.wait(device, queue)
	for i := len(f.slots) - 1; i >= 0; i-- {
		if f.slots[i].group != nil {
			device.DestroyBindGroup(f.slots[i].group)
		}
		device.DestroyBuffer(f.slots[i].buf)
	}
	f.slots = nil
	return err
}

// BeginPass waits for the previous frame, then starts encoding a render
// pass that clears the target.
func (d *Device) BeginPass(action gpucore.PassAction) error {
	if d.closed {
		return ErrClosed
	}
	f := &d.frame
	if f.inPass {
		return fmt.Errorf("%w: BeginPass inside a pass", ErrNoPass)
	}
	if f.cmd != nil {
		d.device.FreeCommandBuffer(f.cmd)
		f.cmd = nil
	}
	if err := f.wait(d.device, d.queue); err != nil {
		return err
	}

	view, err := d.target(action.Width, action.Height)
	if err != nil {
		return err
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "chip_frame",
	})
	if err != nil {
		return fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("chip_frame"); err != nil {
		return fmt.Errorf("native: begin encoding: %w", err)
	}

	c := action.ClearColor
	f.rp = encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "chip_layers",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: gputypes.Color{R: c.R, G: c.G, B: c.B, A: c.A},
			},
		},
	})
	f.encoder = encoder
	f.inPass = true
	f.serial++
	f.err = nil
	f.pipeline = nil
	f.vertex = nil
	f.texture = nil
	f.uniforms = f.uniforms[:0]
	f.draws = 0
	return nil
}

// ApplyPipeline selects a pipeline for subsequent draws.
func (d *Device) ApplyPipeline(id gpucore.RenderPipelineID) {
	f := &d.frame
	if !f.inPass {
		f.fail(fmt.Errorf("%w: ApplyPipeline", ErrNoPass))
		return
	}
	e, ok := d.pipelines[id]
	if !ok {
		f.fail(fmt.Errorf("%w: pipeline %d", ErrUnknownResource, id))
		return
	}
	f.pipeline = e
	f.rp.SetPipeline(e.pipeline)
}

// ApplyBindings selects the vertex buffer and lookup texture.
func (d *Device) ApplyBindings(b gpucore.Bindings) {
	f := &d.frame
	if !f.inPass {
		f.fail(fmt.Errorf("%w: ApplyBindings", ErrNoPass))
		return
	}
	vb, ok := d.buffers[b.VertexBuffer]
	if !ok {
		f.fail(fmt.Errorf("%w: buffer %d", ErrUnknownResource, b.VertexBuffer))
		return
	}
	tex, ok := d.textures[b.Texture]
	if !ok {
		f.fail(fmt.Errorf("%w: texture %d", ErrUnknownResource, b.Texture))
		return
	}
	f.vertex = vb
	f.texture = tex
	f.rp.SetVertexBuffer(0, vb.buf, 0)
}

// ApplyUniforms stores the uniform block for the next draw.
func (d *Device) ApplyUniforms(data []byte) {
	f := &d.frame
	if !f.inPass {
		f.fail(fmt.Errorf("%w: ApplyUniforms", ErrNoPass))
		return
	}
	if len(data) != gpucore.LayerUniformsSize {
		f.fail(fmt.Errorf("native: uniform block is %d bytes, want %d", len(data), gpucore.LayerUniformsSize))
		return
	}
	f.uniforms = append(f.uniforms[:0], data...)
}

// slot returns the uniform slot of the current draw with a bind group
// matching the bound texture.
func (d *Device) slot() (*uniformSlot, error) {
	f := &d.frame
	for len(f.slots) <= f.draws {
		buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: fmt.Sprintf("layer_uniforms_%d", len(f.slots)),
			Size:  gpucore.LayerUniformsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("native: create uniform buffer: %w", err)
		}
		f.slots = append(f.slots, uniformSlot{buf: buf})
	}

	s := &f.slots[f.draws]
	if s.group != nil && s.view == f.texture.view {
		return s, nil
	}
	if s.group != nil {
		d.device.DestroyBindGroup(s.group)
		s.group = nil
	}
	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  fmt.Sprintf("layer_bind_%d", f.draws),
		Layout: d.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: s.buf.NativeHandle(), Offset: 0, Size: gpucore.LayerUniformsSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{
				TextureView: f.texture.view.NativeHandle(),
			}},
			{Binding: 2, Resource: gputypes.SamplerBinding{
				Sampler: f.texture.sampler.NativeHandle(),
			}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("native: create bind group: %w", err)
	}
	s.group = group
	s.view = f.texture.view
	return s, nil
}

// Draw records a triangle draw using the current pipeline, bindings and
// uniforms.
func (d *Device) Draw(base, count, instances uint32) {
	f := &d.frame
	switch {
	case !f.inPass:
		f.fail(fmt.Errorf("%w: Draw", ErrNoPass))
		return
	case f.err != nil:
		return
	case f.pipeline == nil:
		f.fail(errors.New("native: Draw without a pipeline"))
		return
	case f.vertex == nil || f.texture == nil:
		f.fail(errors.New("native: Draw without bindings"))
		return
	case len(f.uniforms) == 0:
		f.fail(errors.New("native: Draw without uniforms"))
		return
	}

	s, err := d.slot()
	if err != nil {
		f.fail(err)
		return
	}
	if err := d.queue.WriteBuffer(s.buf, 0, f.uniforms); err != nil {
		f.fail(fmt.Errorf("native: write uniforms: %w", err))
		return
	}
	f.rp.SetBindGroup(0, s.group, nil)
	f.rp.Draw(count, instances, base, 0)
	f.texture.sampledIn = f.serial
	f.draws++
}

// EndPass finishes encoding and reports the first deferred error of the
// pass. A failed pass is discarded and not committed.
func (d *Device) EndPass() error {
	f := &d.frame
	if !f.inPass {
		return fmt.Errorf("%w: EndPass outside a pass", ErrNoPass)
	}
	f.rp.End()
	f.inPass = false
	f.rp = nil

	if f.err != nil {
		f.encoder.DiscardEncoding()
		f.encoder = nil
		return f.err
	}
	cmd, err := f.encoder.EndEncoding()
	f.encoder = nil
	if err != nil {
		return fmt.Errorf("native: end encoding: %w", err)
	}
	f.cmd = cmd
	return nil
}

// Commit submits the frame ended by EndPass without waiting for it.
func (d *Device) Commit() error {
	if d.closed {
		return ErrClosed
	}
	f := &d.frame
	if f.inPass {
		return fmt.Errorf("%w: Commit inside a pass", ErrNoPass)
	}
	if f.cmd == nil {
		// EndPass failed or nothing was encoded.
		return nil
	}
	cmd := f.cmd
	f.cmd = nil

	index, err := d.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		d.device.FreeCommandBuffer(cmd)
		return fmt.Errorf("native: submit: %w", err)
	}
	f.inflight = append(f.inflight, submission{index: index, cmd: cmd})
	slogger().Debug("native: frame submitted", "draws", f.draws)
	return nil
}
