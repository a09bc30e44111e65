// Package software implements gpucore.Device on the CPU using the gg 2D
// rasterizer.
//
// It runs the same math as the native layer shader: vertex positions are
// projected with the layer uniforms, the node-state texture is sampled
// with nearest filtering at the vertex texcoord, and the layer color is
// mixed toward white by the sampled state. It needs no GPU, which makes
// it the fallback for headless rendering and for tests that check pixels:
//
//	dev := software.New(software.Options{Width: 800, Height: 600})
//	c, _ := chipview.New(dev, cfg)
//	// ... NewFrame, Begin, Draw, End ...
//	_ = dev.SavePNG("chip.png")
package software
