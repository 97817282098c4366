package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

func TestValidateImage(t *testing.T) {
	ok := gocv.NewMatWithSize(4, 5, gocv.MatTypeCV8UC3)
	defer ok.Close()
	gray := gocv.NewMatWithSize(4, 5, gocv.MatTypeCV8UC1)
	defer gray.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	assert.NoError(t, ValidateImage(ok))
	assert.ErrorIs(t, ValidateImage(gray), errs.ErrInvalidInput)
	assert.ErrorIs(t, ValidateImage(empty), errs.ErrInvalidInput)
	assert.Equal(t, "5x4x3", MetadataOf(ok).String())
}

func TestPlanesRoundTrip(t *testing.T) {
	img := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(10, 20, 30, 0), 3, 4, gocv.MatTypeCV8UC3)
	defer img.Close()

	planes, err := ToPlanes(img)
	require.NoError(t, err)
	defer ClosePlanes(planes)
	require.Len(t, planes, 3)
	for i, want := range []float64{10, 20, 30} {
		assert.Equal(t, gocv.MatTypeCV64FC1, planes[i].Type())
		assert.Equal(t, want, planes[i].GetDoubleAt(2, 3))
	}

	out := FromPlanes(planes)
	defer out.Close()
	assert.Equal(t, gocv.MatTypeCV8UC3, out.Type())
	data, err := out.DataPtrUint8()
	require.NoError(t, err)
	assert.Equal(t, []uint8{10, 20, 30}, data[(1*4+1)*3:(1*4+1)*3+3])
}

func TestFromPlanesSaturatesAbsoluteValue(t *testing.T) {
	planes := []gocv.Mat{
		gocv.NewMatWithSizeFromScalar(gocv.NewScalar(-12.4, 0, 0, 0), 2, 2, gocv.MatTypeCV64FC1),
		gocv.NewMatWithSizeFromScalar(gocv.NewScalar(300, 0, 0, 0), 2, 2, gocv.MatTypeCV64FC1),
		gocv.NewMatWithSizeFromScalar(gocv.NewScalar(99.6, 0, 0, 0), 2, 2, gocv.MatTypeCV64FC1),
	}
	defer ClosePlanes(planes)

	out := FromPlanes(planes)
	defer out.Close()
	data, err := out.DataPtrUint8()
	require.NoError(t, err)
	assert.Equal(t, []uint8{12, 255, 100}, data[:3])
}
