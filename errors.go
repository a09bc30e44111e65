package chipview

import (
	"errors"
	"fmt"

	"github.com/gogpu/chipview/gpucore"
)

// Compositor errors.
var (
	// ErrContractViolation is returned when a caller breaks the usage
	// contract: calling an operation in the wrong frame state, after
	// Shutdown, with an out-of-range index, or with an invalid Config.
	// It indicates a caller bug and is never retried.
	ErrContractViolation = errors.New("chipview: contract violation")

	// ErrResourceExhausted is returned from New when the device or the
	// configured Limits cannot hold every resource the compositor needs.
	// The caller may retry with fewer layers or a larger device.
	ErrResourceExhausted = gpucore.ErrResourceExhausted
)

// violation builds an ErrContractViolation for op.
func violation(op, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrContractViolation, op, fmt.Sprintf(format, args...))
}
