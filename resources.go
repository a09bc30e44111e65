package chipview

import (
	"fmt"

	"github.com/gogpu/chipview/gpucore"
)

// layerMesh is the device state of one layer slot.
type layerMesh struct {
	buffer   gpucore.BufferID
	elements uint32
	visible  bool
}

// hasMesh reports whether the slot was given vertex data.
func (m *layerMesh) hasMesh() bool { return m.elements > 0 }

// resources owns every device object of a Compositor: one vertex buffer
// per non-empty layer, the alpha and additive pipelines and the node-state
// lookup texture. Each is created once in newResources and destroyed once
// in release.
type resources struct {
	dev    gpucore.Device
	limits Limits

	layers       [MaxLayers]layerMesh
	pipeAlpha    gpucore.RenderPipelineID
	pipeAdditive gpucore.RenderPipelineID
	nodeTexture  gpucore.TextureID

	// live resource counts, checked against limits
	buffers   int
	pipelines int
	textures  int

	released bool
}

// nodeTextureDesc describes the MaxNodes x 1 lookup texture.
func nodeTextureDesc() *gpucore.TextureDesc {
	return &gpucore.TextureDesc{
		Label:  "node_state",
		Width:  MaxNodes,
		Height: 1,
		Format: gpucore.TextureFormatR8Unorm,
		Filter: gpucore.FilterNearest,
		Wrap:   gpucore.WrapClampToEdge,
		Usage:  gpucore.TextureUsageStream,
	}
}

// newResources creates all device objects for cfg. On failure everything
// created so far is destroyed before the error is returned.
func newResources(dev gpucore.Device, cfg *Config) (*resources, error) {
	r := &resources{dev: dev, limits: cfg.Limits}
	for i := range r.layers {
		r.layers[i].visible = true
	}

	if n := cfg.meshCount(); n > r.limits.Buffers {
		return nil, fmt.Errorf("chipview: %d layer meshes exceed buffer limit %d: %w",
			n, r.limits.Buffers, ErrResourceExhausted)
	}
	if r.limits.Pipelines < 2 {
		return nil, fmt.Errorf("chipview: 2 pipelines exceed pipeline limit %d: %w",
			r.limits.Pipelines, ErrResourceExhausted)
	}
	if r.limits.Textures < 1 {
		return nil, fmt.Errorf("chipview: lookup texture exceeds texture limit %d: %w",
			r.limits.Textures, ErrResourceExhausted)
	}

	if err := r.create(cfg); err != nil {
		r.release()
		return nil, err
	}
	return r, nil
}

func (r *resources) create(cfg *Config) error {
	for i, data := range cfg.LayerVertices {
		if len(data) == 0 {
			continue
		}
		id, err := r.dev.CreateVertexBuffer(fmt.Sprintf("layer_%d", i), data)
		if err != nil {
			return fmt.Errorf("chipview: create layer %d buffer: %w", i, err)
		}
		r.buffers++
		r.layers[i].buffer = id
		r.layers[i].elements = uint32(len(data) / gpucore.VertexStride)
	}

	var err error
	r.pipeAlpha, err = r.dev.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:  "layer_alpha",
		Blend:  gpucore.BlendAlpha,
		Layout: gpucore.LayerVertexLayout(),
	})
	if err != nil {
		return fmt.Errorf("chipview: create alpha pipeline: %w", err)
	}
	r.pipelines++

	r.pipeAdditive, err = r.dev.CreateRenderPipeline(&gpucore.RenderPipelineDesc{
		Label:  "layer_additive",
		Blend:  gpucore.BlendAdditive,
		Layout: gpucore.LayerVertexLayout(),
	})
	if err != nil {
		return fmt.Errorf("chipview: create additive pipeline: %w", err)
	}
	r.pipelines++

	r.nodeTexture, err = r.dev.CreateTexture(nodeTextureDesc())
	if err != nil {
		return fmt.Errorf("chipview: create node state texture: %w", err)
	}
	r.textures++
	return nil
}

// pipeline returns the pipeline implementing blend.
func (r *resources) pipeline(blend gpucore.BlendMode) gpucore.RenderPipelineID {
	switch blend {
	case gpucore.BlendAlpha:
		return r.pipeAlpha
	case gpucore.BlendAdditive:
		return r.pipeAdditive
	default:
		panic(fmt.Sprintf("chipview: no pipeline for blend mode %d", blend))
	}
}

// release destroys every created object in reverse creation order.
// Safe to call multiple times.
func (r *resources) release() {
	if r.released {
		return
	}
	r.released = true

	if r.nodeTexture != gpucore.InvalidID {
		r.dev.DestroyTexture(r.nodeTexture)
		r.nodeTexture = gpucore.InvalidID
		r.textures--
	}
	if r.pipeAdditive != gpucore.InvalidID {
		r.dev.DestroyRenderPipeline(r.pipeAdditive)
		r.pipeAdditive = gpucore.InvalidID
		r.pipelines--
	}
	if r.pipeAlpha != gpucore.InvalidID {
		r.dev.DestroyRenderPipeline(r.pipeAlpha)
		r.pipeAlpha = gpucore.InvalidID
		r.pipelines--
	}
	for i := len(r.layers) - 1; i >= 0; i-- {
		m := &r.layers[i]
		if m.buffer != gpucore.InvalidID {
			r.dev.DestroyBuffer(m.buffer)
			r.buffers--
		}
		*m = layerMesh{}
	}

	if r.buffers != 0 || r.pipelines != 0 || r.textures != 0 {
		panic(fmt.Sprintf("chipview: resource leak after release: %d buffers, %d pipelines, %d textures",
			r.buffers, r.pipelines, r.textures))
	}
}
