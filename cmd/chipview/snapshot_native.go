//go:build !nogpu

package main

import (
	"image"

	"github.com/gogpu/chipview/backend/native"
	"github.com/gogpu/chipview/gpucore"
)

// readNative reads back the offscreen target of a native device.
func readNative(dev gpucore.Device) (*image.RGBA, bool, error) {
	d, ok := dev.(*native.Device)
	if !ok {
		return nil, false, nil
	}
	img, err := d.ReadPixels()
	return img, true, err
}
