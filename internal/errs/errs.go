// Error kinds shared by the compositing engine and its boundaries
package errs

import "errors"

// Every error returned by the engine wraps exactly one of these kinds so that
// callers can branch with errors.Is.
var (
	// ErrInvalidInput reports an empty or unreadable source image.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidParameter reports a non-positive sigma, a degenerate canvas or
	// any other out-of-range option.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrShapeMismatch reports planes or kernels that do not line up element
	// for element. It marks a programming error; the public API never
	// produces it for valid inputs.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrIOFailure reports a decode, encode or write failure at the boundary.
	ErrIOFailure = errors.New("io failure")
)

// Kind returns the name of the error kind wrapped by err, or "unknown".
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidParameter):
		return "invalid_parameter"
	case errors.Is(err, ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, ErrIOFailure):
		return "io_failure"
	default:
		return "unknown"
	}
}
