//go:build !nogpu

package native

import (
	"fmt"

	"github.com/gogpu/chipview/backend"
	"github.com/gogpu/chipview/gpucore"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	_ "github.com/gogpu/wgpu/hal/vulkan"
)

func init() {
	backend.Register(backend.Native, func(opts backend.Options) (gpucore.Device, error) {
		return Open(Options{
			Width:     uint32(max(opts.Width, 0)),  //nolint:gosec // clamped non-negative
			Height:    uint32(max(opts.Height, 0)), //nolint:gosec // clamped non-negative
			AllowNoop: opts.AllowNoop,
		})
	})
}

// Open creates a standalone device on the first discrete or integrated
// Vulkan adapter. With opts.AllowNoop it falls back to the noop HAL
// backend, which accepts every call and draws nothing; this keeps
// headless machines and CI able to drive the full pipeline.
//
// The returned device owns its HAL instance and must be closed.
func Open(opts Options) (*Device, error) {
	instance, exposed, err := openVulkan()
	if err != nil {
		if !opts.AllowNoop {
			return nil, err
		}
		slogger().Warn("native: GPU unavailable, using noop device", "error", err)
		instance, exposed, err = openNoop()
		if err != nil {
			return nil, err
		}
	}

	openDev, err := exposed.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("native: open device: %w", err)
	}

	d := New(openDev.Device, openDev.Queue, opts)
	d.instance = instance
	d.adapter = exposed.Info.Name
	slogger().Info("native: device opened", "adapter", d.adapter, "type", exposed.Info.DeviceType)
	return d, nil
}

func openVulkan() (hal.Instance, *hal.ExposedAdapter, error) {
	vk, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create instance: %w", ErrNoAdapter, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, ErrNoAdapter
	}
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return instance, &adapters[i], nil
		}
	}
	return instance, &adapters[0], nil
}

func openNoop() (hal.Instance, *hal.ExposedAdapter, error) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("native: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, nil, ErrNoAdapter
	}
	return instance, &adapters[0], nil
}
