// Package backend is the named registry of chipview devices.
//
// Backends register a [Factory] from their init functions, following the
// database/sql driver pattern, and callers open a [gpucore.Device] by name
// or take the best available one:
//
//	import (
//		"github.com/gogpu/chipview/backend"
//		_ "github.com/gogpu/chipview/backend/native"
//		_ "github.com/gogpu/chipview/backend/software"
//	)
//
//	dev, err := backend.Open(backend.Software, backend.Options{Width: 800, Height: 600})
//
//	// Or: native if a GPU is present, else software.
//	dev, err := backend.Default(backend.Options{})
//
// # Available Backends
//
//   - "native": gogpu/wgpu HAL (Vulkan, or noop with Options.AllowNoop)
//   - "software": CPU rasterizer built on gogpu/gg
//   - "recording": command log, draws nothing
//
// [gpucore.Device]: github.com/gogpu/chipview/gpucore.Device
package backend
