//go:build !nogpu

package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
)

// layerShaderSource is the WGSL source of both layer pipelines. The
// alpha and additive pipelines share vs_main and differ in their
// fragment entry point.
//
//go:embed shaders/layer.wgsl
var layerShaderSource string

// Shader entry points.
const (
	vertexEntry           = "vs_main"
	fragmentEntryAlpha    = "fs_alpha"
	fragmentEntryAdditive = "fs_additive"
)

// LayerShaderWGSL returns the WGSL source of the layer shader.
func LayerShaderWGSL() string { return layerShaderSource }

// CompileShaderSPIRV compiles WGSL source to SPIR-V words. HAL backends
// that take SPIR-V (Vulkan) can use the result directly.
func CompileShaderSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("native: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("native: SPIR-V output is %d bytes, not whole words", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
