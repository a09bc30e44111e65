package backend

import (
	"errors"

	"github.com/gogpu/chipview/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered, or when no backend is registered at all.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend names.
const (
	// Native draws through gogpu/wgpu HAL (Vulkan, Metal, DX12, GLES).
	Native = "native"

	// Software rasterizes on the CPU with gogpu/gg.
	Software = "software"

	// Recording records every device call as a command log.
	Recording = "recording"
)

// Options are passed to a backend factory.
type Options struct {
	// Width and Height size offscreen targets. Zero selects each
	// backend's default.
	Width  int
	Height int

	// AllowNoop lets the native backend fall back to the noop HAL device
	// when no GPU adapter is found.
	AllowNoop bool
}

// Factory opens a new device.
type Factory func(opts Options) (gpucore.Device, error)

// Closer is implemented by devices that hold resources beyond those
// created through gpucore.Device, such as a HAL instance or a canvas.
type Closer interface {
	Close() error
}

// Close releases dev if it implements Closer.
func Close(dev gpucore.Device) error {
	if c, ok := dev.(Closer); ok {
		return c.Close()
	}
	return nil
}
