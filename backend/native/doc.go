// Package native implements gpucore.Device on the gogpu/wgpu HAL.
//
// Layer meshes are drawn by one WGSL shader (shaders/layer.wgsl) with two
// fragment entry points: fs_alpha for normal blending and fs_additive,
// which premultiplies so that a One/One blend state adds layer colors.
// The vertex stage samples the node-state lookup texture with the
// vertex texcoord and mixes the layer color toward white by the sampled
// value.
//
// # Devices
//
// [Open] creates a standalone Vulkan device, optionally falling back to
// the noop HAL backend. [New] and [NewFromProvider] wrap a device owned
// by a host application such as a gogpu window:
//
//	dev, err := native.NewFromProvider(app.GPUContextProvider(), native.Options{})
//	...
//	dev.SetSurfaceTarget(frameView, w, h)
//
// Without a surface target, passes render into an offscreen texture that
// [Device.ReadPixels] copies back to the CPU.
//
// # Frames
//
// Commit submits without waiting. The next BeginPass waits for the
// previous submission, so at most one frame is in flight. Each draw in a
// pass gets its own uniform buffer and bind group; both are reused across
// frames.
//
// Texture uploads are queue writes and execute before the commands of the
// frame being recorded. Once a draw has sampled a texture, changing its
// contents before Commit fails with [ErrUploadOrder].
//
// Building with the nogpu tag removes this package's contents.
package native
