// Discrete Fourier transform backend and transform sizing
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// Transformer performs in-place forward and inverse transforms of CV_64FC2
// planes. validRows is the number of leading rows that carry data; an
// implementation may use it to skip work but must stay correct either way.
type Transformer interface {
	Forward(m *gocv.Mat, validRows int) error
	Inverse(m *gocv.Mat, validRows int) error
}

// DFT is the OpenCV transform. The gocv binding does not expose the
// nonzeroRows argument of cv::dft, so validRows is accepted and ignored.
type DFT struct{}

func (DFT) Forward(m *gocv.Mat, validRows int) error {
	if err := checkSpectrum(*m, validRows); err != nil {
		return err
	}
	gocv.DFT(*m, m, gocv.DftForward)
	return nil
}

// Inverse applies the inverse transform scaled by 1/N.
func (DFT) Inverse(m *gocv.Mat, validRows int) error {
	if err := checkSpectrum(*m, validRows); err != nil {
		return err
	}
	gocv.DFT(*m, m, gocv.DftInverse|gocv.DftScale)
	return nil
}

func checkSpectrum(m gocv.Mat, validRows int) error {
	if m.Empty() || m.Type() != gocv.MatTypeCV64FC2 {
		return fmt.Errorf("transform needs a non-empty CV_64FC2 plane, got type %v: %w", m.Type(), errs.ErrShapeMismatch)
	}
	if validRows <= 0 || validRows > m.Rows() {
		return fmt.Errorf("valid rows %d outside 1..%d: %w", validRows, m.Rows(), errs.ErrShapeMismatch)
	}
	return nil
}

// OptimalSize returns the smallest even length >= n for which OpenCV's DFT
// is efficient.
func OptimalSize(n int) int {
	size := gocv.GetOptimalDFTSize(n)
	for size%2 != 0 {
		size = gocv.GetOptimalDFTSize(size + 1)
	}
	return size
}

// TransformSize returns the padded transform size for a working canvas.
func TransformSize(canvas image.Point) (image.Point, error) {
	if canvas.X <= 0 || canvas.Y <= 0 {
		return image.Point{}, fmt.Errorf("canvas size must be positive, got %dx%d: %w", canvas.X, canvas.Y, errs.ErrInvalidParameter)
	}
	return image.Pt(OptimalSize(canvas.X), OptimalSize(canvas.Y)), nil
}
