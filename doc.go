// Package chipview composites the mask layers of a digital-logic chip
// with per-node highlight state under a pannable, zoomable camera.
//
// # Overview
//
// Each of up to [MaxLayers] layers is a static triangle mesh baked offline
// (see [AppendVertex]). Every vertex carries a texture coordinate naming
// the node it belongs to. Node states live in a [MaxNodes]-byte buffer that
// is streamed into a MaxNodes x 1 lookup texture every frame; the layer
// shader samples it and brightens highlighted nodes.
//
// # Quick Start
//
//	import (
//		"github.com/gogpu/chipview"
//		"github.com/gogpu/chipview/backend"
//		_ "github.com/gogpu/chipview/backend/native"
//	)
//
//	dev, err := backend.Open(backend.Native, backend.Options{AllowNoop: true})
//	c, err := chipview.New(dev, &chipview.Config{
//		LayerVertices: layers,
//		Bounds:        chipview.Bounds{MaxX: 8000, MaxY: 8000},
//	})
//	defer c.Shutdown()
//
//	for running {
//		c.NewFrame(width, height)
//		c.SetNodeHighlight(picked)
//		c.Begin()
//		c.Draw()
//		c.End()
//	}
//
// # Camera
//
// [Camera] holds scale, pan offset and aspect ratio. The draw step builds
// every per-draw uniform block from it, and picking code maps pointer
// positions through [Camera.ScreenToModel], so what is drawn and what is
// clickable always agree.
//
// # Errors
//
// Caller bugs (wrong frame order, out-of-range indices, invalid Config,
// use after Shutdown) return errors wrapping [ErrContractViolation]. A
// device or [Limits] too small for the configured layers makes [New] fail
// with [ErrResourceExhausted].
//
// # Backends
//
// The compositor draws through the small [gpucore.Device] interface. See
// backend/native (gogpu/wgpu HAL), backend/software (gogpu/gg) and
// backend/recording (command log).
package chipview
