// Gaussian low-pass / high-pass kernel pair in the frequency domain
package algorithms

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// KernelPair holds the frequency-domain weighting masks used to split a
// spectrum between two images. Both masks are CV_64FC2 with the real and
// imaginary channels set to the same weight, and Low+High == 1 everywhere.
type KernelPair struct {
	Low   gocv.Mat
	High  gocv.Mat
	Size  image.Point
	Sigma float64
}

// Close releases both masks.
func (k *KernelPair) Close() {
	if k == nil {
		return
	}
	k.Low.Close()
	k.High.Close()
}

// BuildKernel creates the kernel pair for a transform of the given size.
//
// The low-pass mask is exp(-d/(2*sigma^2)) where d is the squared distance
// to (width/2, height/2). Both masks are quadrant swapped afterwards so the
// peak sits on the DC bin at (0, 0), where the DFT places it. A larger sigma
// keeps more of the first image's frequencies.
//
// Sizes must be even; TransformSize only produces even sizes.
func BuildKernel(size image.Point, sigma float64) (*KernelPair, error) {
	if !(sigma > 0) {
		return nil, fmt.Errorf("sigma must be > 0, got %v: %w", sigma, errs.ErrInvalidParameter)
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("kernel size must be positive, got %dx%d: %w", size.X, size.Y, errs.ErrInvalidParameter)
	}
	if size.X%2 != 0 || size.Y%2 != 0 {
		return nil, fmt.Errorf("kernel size must be even for the quadrant swap, got %dx%d: %w", size.X, size.Y, errs.ErrInvalidParameter)
	}

	low := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV64FC1)
	defer low.Close()
	high := gocv.NewMatWithSize(size.Y, size.X, gocv.MatTypeCV64FC1)
	defer high.Close()

	lowData, err := low.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("access low-pass mask: %w", err)
	}
	highData, err := high.DataPtrFloat64()
	if err != nil {
		return nil, fmt.Errorf("access high-pass mask: %w", err)
	}

	ss2 := 2 * sigma * sigma
	cx, cy := float64(size.X)/2, float64(size.Y)/2
	for y := 0; y < size.Y; y++ {
		dy := cy - float64(y)
		row := y * size.X
		for x := 0; x < size.X; x++ {
			dx := cx - float64(x)
			d := dx*dx + dy*dy

			// d == 0 is kept out of the division so a vanishing sigma
			// still leaves a unit impulse instead of NaN.
			g := 1.0
			if d > 0 {
				g = math.Exp(-d / ss2)
			}
			lowData[row+x] = g
			highData[row+x] = 1 - g
		}
	}

	swapQuadrants(&low)
	swapQuadrants(&high)

	return &KernelPair{
		Low:   spectrumMask(low),
		High:  spectrumMask(high),
		Size:  size,
		Sigma: sigma,
	}, nil
}

// spectrumMask duplicates a single-channel weight into real and imaginary
// channels so it can multiply complex DFT output directly.
func spectrumMask(weights gocv.Mat) gocv.Mat {
	mask := gocv.NewMat()
	gocv.Merge([]gocv.Mat{weights, weights}, &mask)
	return mask
}

// swapQuadrants exchanges top-left with bottom-right and top-right with
// bottom-left in place. Odd trailing rows or columns are left untouched.
func swapQuadrants(m *gocv.Mat) {
	cx, cy := m.Cols()/2, m.Rows()/2

	q0 := m.Region(image.Rect(0, 0, cx, cy))
	defer q0.Close()
	q1 := m.Region(image.Rect(cx, 0, 2*cx, cy))
	defer q1.Close()
	q2 := m.Region(image.Rect(0, cy, cx, 2*cy))
	defer q2.Close()
	q3 := m.Region(image.Rect(cx, cy, 2*cx, 2*cy))
	defer q3.Close()

	tmp := gocv.NewMat()
	defer tmp.Close()

	q0.CopyTo(&tmp)
	q3.CopyTo(&q0)
	tmp.CopyTo(&q3)

	q1.CopyTo(&tmp)
	q2.CopyTo(&q1)
	tmp.CopyTo(&q2)
}
