//go:build nogpu

package main

import (
	"image"

	"github.com/gogpu/chipview/gpucore"
)

func readNative(gpucore.Device) (*image.RGBA, bool, error) { return nil, false, nil }
