//go:build !nogpu

package native

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// offscreenTarget is the render texture used when no surface view is set.
type offscreenTarget struct {
	tex    hal.Texture
	view   hal.TextureView
	width  uint32
	height uint32
}

func (t *offscreenTarget) destroy(device hal.Device) {
	if t.view != nil {
		device.DestroyTextureView(t.view)
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
	}
	*t = offscreenTarget{}
}

// SetSurfaceTarget makes subsequent passes render into view, typically the
// current swapchain image of a host window. A nil view switches back to
// the offscreen target.
func (d *Device) SetSurfaceTarget(view hal.TextureView, width, height uint32) {
	d.surface = view
	d.surfaceW = width
	d.surfaceH = height
}

// target returns the view the next pass renders into. The offscreen
// texture is recreated when the requested size changes.
func (d *Device) target(width, height uint32) (hal.TextureView, error) {
	if d.surface != nil {
		return d.surface, nil
	}
	if width == 0 || height == 0 {
		width, height = d.opts.Width, d.opts.Height
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("%w: offscreen target %dx%d", ErrInvalidDimensions, width, height)
	}
	t := &d.offscreen
	if t.view != nil && t.width == width && t.height == height {
		return t.view, nil
	}
	t.destroy(d.device)

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "chip_target",
		Size:          hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.format,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create target texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "chip_target_view",
		Format:        d.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("native: create target view: %w", err)
	}
	*t = offscreenTarget{tex: tex, view: view, width: width, height: height}
	slogger().Debug("native: offscreen target created", "width", width, "height", height)
	return view, nil
}

// ReadPixels copies the offscreen target of the last committed frame into
// an RGBA image. It waits for the GPU and fails when rendering goes to a
// surface view.
func (d *Device) ReadPixels() (*image.RGBA, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t := &d.offscreen
	if d.surface != nil || t.tex == nil {
		return nil, fmt.Errorf("native: no offscreen target to read")
	}
	if err := d.frame.wait(d.device, d.queue); err != nil {
		return nil, err
	}

	const bpp = 4
	unpadded := t.width * bpp
	// Buffer rows must be 256-byte aligned for texture copies.
	paddedBPR := (unpadded + 255) &^ 255
	size := uint64(paddedBPR) * uint64(t.height)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "chip_readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create readback buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "chip_readback"})
	if err != nil {
		return nil, fmt.Errorf("native: create readback encoder: %w", err)
	}
	if err := encoder.BeginEncoding("chip_readback"); err != nil {
		return nil, fmt.Errorf("native: begin readback encoding: %w", err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.tex,
		Usage: hal.TextureUsageTransition{
			OldUsage: gputypes.TextureUsageRenderAttachment,
			NewUsage: gputypes.TextureUsageCopySrc,
		},
	}})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  paddedBPR,
			RowsPerImage: t.height,
		},
		TextureBase: hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		Size:        hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("native: end readback encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return nil, fmt.Errorf("native: submit readback: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return nil, fmt.Errorf("native: wait for readback: %w", err)
	}

	m, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("native: map readback buffer: %w", err)
	}
	raw := unsafe.Slice((*byte)(m.Ptr), size)
	defer func() { _ = d.device.UnmapBuffer(staging) }()

	img := image.NewRGBA(image.Rect(0, 0, int(t.width), int(t.height)))
	bgra := d.format == gputypes.TextureFormatBGRA8Unorm || d.format == gputypes.TextureFormatBGRA8UnormSrgb
	for y := range int(t.height) {
		src := raw[y*int(paddedBPR) : y*int(paddedBPR)+int(unpadded)]
		dst := img.Pix[y*img.Stride : y*img.Stride+int(unpadded)]
		copy(dst, src)
		if bgra {
			for x := 0; x < len(dst); x += bpp {
				dst[x], dst[x+2] = dst[x+2], dst[x]
			}
		}
	}
	return img, nil
}
