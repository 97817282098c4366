package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("sigma must be > 0, got %v: %w", -1.0, ErrInvalidParameter), "invalid_parameter"},
		{fmt.Errorf("decode a.png: %w", ErrInvalidInput), "invalid_input"},
		{fmt.Errorf("outer: %w", fmt.Errorf("write: %w", ErrIOFailure)), "io_failure"},
		{fmt.Errorf("kernel 8x8 vs plane 4x4: %w", ErrShapeMismatch), "shape_mismatch"},
		{errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err))
	}
}
