package metrics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solid(rows, cols int, v float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func noise(t *testing.T, rows, cols int, seed int64) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	data, err := m.DataPtrUint8()
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(seed))
	for i := range data {
		data[i] = uint8(rng.Intn(256))
	}
	return m
}

func TestIdenticalImages(t *testing.T) {
	img := noise(t, 32, 48, 1)
	defer img.Close()

	e := NewEvaluator()
	results := e.CalculateAll(img, img)

	require.Len(t, results, 3)
	assert.True(t, math.IsInf(results["psnr"], 1))
	assert.Zero(t, results["mse"])
	assert.InDelta(t, 1, results["ssim"], 1e-4)
}

func TestSolidImages(t *testing.T) {
	a := solid(16, 16, 200)
	defer a.Close()
	b := solid(16, 16, 50)
	defer b.Close()

	e := NewEvaluator()

	mse, err := e.Calculate("mse", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 22500, mse, 1e-6)

	psnr, err := e.Calculate("psnr", a, b)
	require.NoError(t, err)
	assert.InDelta(t, 20*math.Log10(255.0/150.0), psnr, 1e-9)

	ssim, err := e.Calculate("ssim", a, b)
	require.NoError(t, err)
	assert.Less(t, ssim, 0.9)
}

func TestCalculateErrors(t *testing.T) {
	a := solid(16, 16, 1)
	defer a.Close()
	b := solid(8, 16, 1)
	defer b.Close()
	empty := gocv.NewMat()
	defer empty.Close()

	e := NewEvaluator()
	for _, name := range e.Names() {
		_, err := e.Calculate(name, a, b)
		assert.ErrorContains(t, err, "mismatch", name)
		_, err = e.Calculate(name, a, empty)
		assert.ErrorContains(t, err, "empty", name)
	}

	_, err := e.Calculate("fmeasure", a, a)
	assert.ErrorContains(t, err, "metric not found")
	assert.Empty(t, e.CalculateAll(a, b))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"mse", "psnr", "ssim"}, NewEvaluator().Names())
}

func TestCompareSources(t *testing.T) {
	first := noise(t, 40, 40, 2)
	defer first.Close()
	second := noise(t, 40, 40, 3)
	defer second.Close()

	e := NewEvaluator()
	report, err := e.CompareSources(5, first, first, second)
	require.NoError(t, err)

	assert.Equal(t, 5.0, report.Sigma)
	assert.Zero(t, report.NearFirst["mse"])
	assert.Zero(t, report.FarFirst["mse"])
	assert.Greater(t, report.NearSecond["mse"], 0.0)
	assert.Greater(t, report.FarSecond["mse"], 0.0)

	// blurring removes most of the noise difference
	assert.Less(t, report.FarSecond["mse"], report.NearSecond["mse"])

	small := solid(10, 10, 0)
	defer small.Close()
	_, err = e.CompareSources(5, first, small, second)
	assert.Error(t, err)
}
