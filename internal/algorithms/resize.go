// Input size policy applied before alignment
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// DefaultMaxSide bounds the longer side of the first image.
const DefaultMaxSide = 400

// ResizePolicy limits the working size of the two source images.
type ResizePolicy struct {
	// MaxSide is the largest allowed longer side. Zero disables fitting.
	MaxSide int

	// MatchFirst resizes the second image to the fitted size of the first
	// instead of fitting it on its own.
	MatchFirst bool
}

func DefaultResizePolicy() ResizePolicy {
	return ResizePolicy{MaxSide: DefaultMaxSide}
}

// Apply returns resized copies of both images using bicubic interpolation.
// The caller owns both results. On error both are zero values.
func (p ResizePolicy) Apply(first, second gocv.Mat) (gocv.Mat, gocv.Mat, error) {
	if first.Empty() || second.Empty() {
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("cannot resize empty image: %w", errs.ErrInvalidInput)
	}
	if p.MaxSide < 0 {
		return gocv.Mat{}, gocv.Mat{}, fmt.Errorf("max side must be >= 0, got %d: %w", p.MaxSide, errs.ErrInvalidParameter)
	}

	size1 := FittedSize(image.Pt(first.Cols(), first.Rows()), p.MaxSide)
	out1 := resizeTo(first, size1)

	size2 := FittedSize(image.Pt(second.Cols(), second.Rows()), p.MaxSide)
	if p.MatchFirst {
		size2 = size1
	}
	out2 := resizeTo(second, size2)

	return out1, out2, nil
}

// FittedSize scales size down, keeping its aspect ratio, until the longer
// side is at most maxSide. Sizes already within the limit are unchanged.
func FittedSize(size image.Point, maxSide int) image.Point {
	if maxSide <= 0 {
		return size
	}

	w, h := size.X, size.Y
	if w > h {
		if w > maxSide {
			h = maxSide * h / w
			w = maxSide
		}
	} else if h > maxSide {
		w = maxSide * w / h
		h = maxSide
	}
	return image.Pt(max(w, 1), max(h, 1))
}

func resizeTo(src gocv.Mat, size image.Point) gocv.Mat {
	if src.Cols() == size.X && src.Rows() == size.Y {
		return src.Clone()
	}
	dst := gocv.NewMat()
	gocv.Resize(src, &dst, size, 0, 0, gocv.InterpolationCubic)
	return dst
}
