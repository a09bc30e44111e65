// Package gpucore provides the backend-neutral GPU abstractions used by the
// chipview compositor.
//
// This package defines the [Device] interface, the small capability set the
// compositor needs from a graphics backend, so that camera math, node-state
// streaming and layer iteration order are written once and run on:
//   - gogpu/wgpu HAL (Vulkan, Metal, DX12, GLES, noop) via backend/native
//   - a CPU rasterizer built on gogpu/gg via backend/software
//   - a command recorder via backend/recording
//
// # Architecture
//
//	               +-----------------+
//	               |    chipview     |
//	               |  (Compositor)   |
//	               +--------+--------+
//	                        | gpucore.Device
//	      +-----------------+-----------------+
//	      |                 |                 |
//	+-----v-----+     +-----v-----+     +-----v-----+
//	|  native   |     | software  |     | recording |
//	| (wgpu hal)|     |   (gg)    |     | (cmd log) |
//	+-----------+     +-----------+     +-----------+
//
// # Resource Management
//
// GPU resources are managed via opaque IDs ([BufferID], [TextureID],
// [RenderPipelineID]). Devices are responsible for tracking the mapping
// between IDs and actual backend resources.
//
// # Wire Layout
//
// Baked vertex data ([VertexStride] bytes per vertex) and the per-draw
// uniform block ([LayerUniformsSize] bytes) are defined here so every
// backend decodes them identically. [LayerUniforms.Project] is the CPU
// mirror of the vertex shader transform.
package gpucore
