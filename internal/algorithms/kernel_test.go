package algorithms

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

func spectrumValues(t *testing.T, m gocv.Mat) []float64 {
	t.Helper()
	require.Equal(t, gocv.MatTypeCV64FC2, m.Type())
	data, err := m.DataPtrFloat64()
	require.NoError(t, err)
	return data
}

func TestBuildKernelSumsToOne(t *testing.T) {
	sizes := []image.Point{image.Pt(8, 8), image.Pt(64, 32), image.Pt(256, 256)}
	sigmas := []float64{0.5, 7.5, 100}

	for _, size := range sizes {
		for _, sigma := range sigmas {
			k, err := BuildKernel(size, sigma)
			require.NoError(t, err)

			assert.Equal(t, size.X, k.Low.Cols())
			assert.Equal(t, size.Y, k.Low.Rows())
			assert.Equal(t, size, k.Size)

			low := spectrumValues(t, k.Low)
			high := spectrumValues(t, k.High)
			require.Len(t, low, size.X*size.Y*2)
			for i := 0; i < len(low); i += 2 {
				// real and imaginary channels carry the same weight
				require.Equal(t, low[i], low[i+1])
				require.Equal(t, high[i], high[i+1])
				require.InDelta(t, 1.0, low[i]+high[i], 1e-12)
			}
			k.Close()
		}
	}
}

func TestBuildKernelPeakOnDCBin(t *testing.T) {
	k, err := BuildKernel(image.Pt(64, 32), 4)
	require.NoError(t, err)
	defer k.Close()

	low := spectrumValues(t, k.Low)
	high := spectrumValues(t, k.High)
	assert.Equal(t, 1.0, low[0])
	assert.Equal(t, 0.0, high[0])

	// the geometric centre now holds the weakest low-pass weight
	centre := (16*64 + 32) * 2
	assert.Less(t, low[centre], 1e-10)
	assert.InDelta(t, 1.0, high[centre], 1e-10)
}

func TestBuildKernelIsPure(t *testing.T) {
	a, err := BuildKernel(image.Pt(48, 40), 7.5)
	require.NoError(t, err)
	defer a.Close()
	b, err := BuildKernel(image.Pt(48, 40), 7.5)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, spectrumValues(t, a.Low), spectrumValues(t, b.Low))
	assert.Equal(t, spectrumValues(t, a.High), spectrumValues(t, b.High))
}

func TestBuildKernelLimits(t *testing.T) {
	size := image.Pt(32, 32)

	narrow, err := BuildKernel(size, 1e-6)
	require.NoError(t, err)
	defer narrow.Close()
	low := spectrumValues(t, narrow.Low)
	assert.Equal(t, 1.0, low[0])
	for i := 2; i < len(low); i += 2 {
		require.Equal(t, 0.0, low[i])
	}

	wide, err := BuildKernel(size, 1e9)
	require.NoError(t, err)
	defer wide.Close()
	for _, v := range spectrumValues(t, wide.Low) {
		require.InDelta(t, 1.0, v, 1e-12)
	}
}

func TestBuildKernelRejectsInvalidArguments(t *testing.T) {
	tests := []struct {
		name  string
		size  image.Point
		sigma float64
	}{
		{"zero sigma", image.Pt(8, 8), 0},
		{"negative sigma", image.Pt(8, 8), -2},
		{"nan sigma", image.Pt(8, 8), math.NaN()},
		{"empty size", image.Pt(0, 8), 1},
		{"odd width", image.Pt(9, 8), 1},
		{"odd height", image.Pt(8, 7), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := BuildKernel(tt.size, tt.sigma)
			assert.Nil(t, k)
			assert.ErrorIs(t, err, errs.ErrInvalidParameter)
		})
	}
}

func TestSwapQuadrants(t *testing.T) {
	m := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV64FC1)
	defer m.Close()
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			m.SetDoubleAt(r, c, float64(r*4+c))
		}
	}

	swapQuadrants(&m)

	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			want := float64(((r+2)%4)*4 + (c+2)%4)
			assert.Equal(t, want, m.GetDoubleAt(r, c), "row %d col %d", r, c)
		}
	}
}
