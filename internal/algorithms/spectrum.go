// Single-channel frequency-domain blending
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// Compositor blends two planes of one colour channel:
//
//	Output = F(plane1)·Low + F(plane2)·High
//
// followed by the scaled inverse transform.
type Compositor struct {
	transform Transformer
}

// NewCompositor creates a compositor. A nil transformer selects DFT.
func NewCompositor(transform Transformer) *Compositor {
	if transform == nil {
		transform = DFT{}
	}
	return &Compositor{transform: transform}
}

// Composite blends plane1 and plane2 (CV_64FC1, same size) through the kernel
// pair and returns the real part of the result cropped to the plane size.
// Values are not clamped. The caller owns the returned Mat; on error it is
// the zero value and holds nothing to close.
func (c *Compositor) Composite(plane1, plane2 gocv.Mat, kernels *KernelPair, transformSize image.Point) (gocv.Mat, error) {
	if err := checkPlanes(plane1, plane2); err != nil {
		return gocv.Mat{}, err
	}
	if kernels == nil {
		return gocv.Mat{}, fmt.Errorf("missing kernel pair: %w", errs.ErrShapeMismatch)
	}
	if kernels.Size != transformSize {
		return gocv.Mat{}, fmt.Errorf("kernel size %v does not match transform size %v: %w", kernels.Size, transformSize, errs.ErrShapeMismatch)
	}
	if transformSize.X < plane1.Cols() || transformSize.Y < plane1.Rows() {
		return gocv.Mat{}, fmt.Errorf("transform size %v smaller than plane %dx%d: %w", transformSize, plane1.Cols(), plane1.Rows(), errs.ErrShapeMismatch)
	}

	spec1, err := c.forward(plane1, transformSize)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer spec1.Close()

	spec2, err := c.forward(plane2, transformSize)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer spec2.Close()

	gocv.Multiply(spec1, kernels.Low, &spec1)
	gocv.Multiply(spec2, kernels.High, &spec2)

	combined := gocv.NewMat()
	defer combined.Close()
	gocv.Add(spec1, spec2, &combined)

	if err := c.transform.Inverse(&combined, plane1.Rows()); err != nil {
		return gocv.Mat{}, fmt.Errorf("inverse transform: %w", err)
	}

	return realPart(combined, image.Rect(0, 0, plane1.Cols(), plane1.Rows())), nil
}

// forward pairs the plane with a zero imaginary plane, pads it with zeros to
// the transform size and transforms it.
func (c *Compositor) forward(plane gocv.Mat, size image.Point) (gocv.Mat, error) {
	imaginary := gocv.Zeros(plane.Rows(), plane.Cols(), gocv.MatTypeCV64FC1)
	defer imaginary.Close()

	complexPlane := gocv.NewMat()
	defer complexPlane.Close()
	gocv.Merge([]gocv.Mat{plane, imaginary}, &complexPlane)

	padded := gocv.Zeros(size.Y, size.X, gocv.MatTypeCV64FC2)
	roi := padded.Region(image.Rect(0, 0, plane.Cols(), plane.Rows()))
	complexPlane.CopyTo(&roi)
	roi.Close()

	if err := c.transform.Forward(&padded, plane.Rows()); err != nil {
		padded.Close()
		return gocv.Mat{}, fmt.Errorf("forward transform: %w", err)
	}
	return padded, nil
}

func realPart(spectrum gocv.Mat, crop image.Rectangle) gocv.Mat {
	roi := spectrum.Region(crop)
	defer roi.Close()

	parts := gocv.Split(roi)
	for _, p := range parts[1:] {
		p.Close()
	}
	return parts[0]
}

func checkPlanes(plane1, plane2 gocv.Mat) error {
	for i, p := range []gocv.Mat{plane1, plane2} {
		if p.Empty() {
			return fmt.Errorf("plane %d is empty: %w", i+1, errs.ErrShapeMismatch)
		}
		if p.Type() != gocv.MatTypeCV64FC1 {
			return fmt.Errorf("plane %d must be CV_64FC1, got %v: %w", i+1, p.Type(), errs.ErrShapeMismatch)
		}
	}
	if plane1.Rows() != plane2.Rows() || plane1.Cols() != plane2.Cols() {
		return fmt.Errorf("plane sizes differ: %dx%d vs %dx%d: %w",
			plane1.Cols(), plane1.Rows(), plane2.Cols(), plane2.Rows(), errs.ErrShapeMismatch)
	}
	return nil
}
