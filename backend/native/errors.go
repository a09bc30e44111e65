//go:build !nogpu

package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoAdapter is returned by Open when no GPU adapter is available
	// and the noop fallback is disabled.
	ErrNoAdapter = errors.New("native: no GPU adapter available")

	// ErrInvalidProvider is returned by NewFromProvider when the provider
	// does not expose a hal.Device and hal.Queue.
	ErrInvalidProvider = errors.New("native: provider does not expose a HAL device")

	// ErrUnknownResource is returned when an ID does not name a live
	// resource of the expected kind.
	ErrUnknownResource = errors.New("native: unknown resource")

	// ErrNoPass is returned when a pass operation runs outside a pass, or
	// BeginPass runs inside one.
	ErrNoPass = errors.New("native: render pass state")

	// ErrUploadOrder is returned by WriteTexture when a texture sampled by
	// a draw of the open frame would change before that draw executes.
	ErrUploadOrder = errors.New("native: texture upload after draw")

	// ErrInvalidDimensions is returned when an offscreen target would be
	// empty.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("native: device closed")
)
