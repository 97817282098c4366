// Placement of two source layers on one shared canvas
package layers

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// AlignMode selects how the canvas is derived from the two placed images.
type AlignMode int

const (
	// AlignUnion makes the canvas large enough to hold both images.
	AlignUnion AlignMode = iota
	// AlignIntersection crops both images to the region where they overlap.
	AlignIntersection
)

func (m AlignMode) String() string {
	switch m {
	case AlignUnion:
		return "union"
	case AlignIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("AlignMode(%d)", int(m))
	}
}

// ParseAlignMode maps "union" or "intersection" to an AlignMode.
func ParseAlignMode(s string) (AlignMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "union":
		return AlignUnion, nil
	case "intersection":
		return AlignIntersection, nil
	default:
		return AlignUnion, fmt.Errorf("unknown align mode %q, want union or intersection: %w", s, errs.ErrInvalidParameter)
	}
}

// DefaultBackground is the flat grey used for uncovered canvas area when
// extrapolation is off.
const DefaultBackground = 128

// Aligner places two images on a common canvas.
type Aligner struct {
	Mode AlignMode

	// Extrapolate fills uncovered canvas area by replicating the nearest
	// edge pixels of the placed image. A hard edge against flat padding
	// would otherwise show up as high-frequency energy in the blend.
	Extrapolate bool

	// Background is the fill value (0-255) used when Extrapolate is false.
	Background float64
}

func NewAligner() *Aligner {
	return &Aligner{
		Mode:        AlignUnion,
		Extrapolate: true,
		Background:  DefaultBackground,
	}
}

// AlignedPair is two images of identical canvas size.
type AlignedPair struct {
	First  gocv.Mat
	Second gocv.Mat

	// Placement of each source image on the canvas.
	FirstOrigin  image.Point
	SecondOrigin image.Point

	Canvas image.Point
}

// Close releases both canvases.
func (p *AlignedPair) Close() {
	if p == nil {
		return
	}
	p.First.Close()
	p.Second.Close()
}

// Align places first at (0, 0) and second at offset (which may be negative)
// and returns both on a shared canvas. The caller owns the result.
func (a *Aligner) Align(first, second gocv.Mat, offset image.Point) (*AlignedPair, error) {
	if err := validateSources(first, second); err != nil {
		return nil, err
	}
	if a.Background < 0 || a.Background > 255 {
		return nil, fmt.Errorf("background must be within 0..255, got %v: %w", a.Background, errs.ErrInvalidParameter)
	}

	size1 := image.Pt(first.Cols(), first.Rows())
	size2 := image.Pt(second.Cols(), second.Rows())

	switch a.Mode {
	case AlignUnion:
		return a.union(first, second, size1, size2, offset), nil
	case AlignIntersection:
		return intersect(first, second, size1, size2, offset)
	default:
		return nil, fmt.Errorf("unsupported align mode %v: %w", a.Mode, errs.ErrInvalidParameter)
	}
}

func (a *Aligner) union(first, second gocv.Mat, size1, size2, offset image.Point) *AlignedPair {
	canvas, origin1, origin2 := UnionLayout(size1, size2, offset)

	return &AlignedPair{
		First:        a.place(first, origin1, canvas),
		Second:       a.place(second, origin2, canvas),
		FirstOrigin:  origin1,
		SecondOrigin: origin2,
		Canvas:       canvas,
	}
}

// UnionLayout computes the canvas holding an image of size1 at (0, 0) and one
// of size2 at offset, and where each image lands on it. The image with the
// more negative offset along an axis is anchored at canvas coordinate 0.
func UnionLayout(size1, size2, offset image.Point) (canvas, origin1, origin2 image.Point) {
	origin1.X, origin2.X, canvas.X = span(size1.X, size2.X, offset.X)
	origin1.Y, origin2.Y, canvas.Y = span(size1.Y, size2.Y, offset.Y)
	return canvas, origin1, origin2
}

func span(n1, n2, offset int) (o1, o2, n int) {
	if offset >= 0 {
		o2 = offset
	} else {
		o1 = -offset
	}
	return o1, o2, max(o1+n1, o2+n2)
}

// place copies src into a canvas-sized Mat at origin and fills the rest.
func (a *Aligner) place(src gocv.Mat, origin, canvas image.Point) gocv.Mat {
	top, left := origin.Y, origin.X
	bottom := canvas.Y - origin.Y - src.Rows()
	right := canvas.X - origin.X - src.Cols()

	border := gocv.BorderReplicate
	if !a.Extrapolate {
		border = gocv.BorderConstant
	}

	v := uint8(a.Background)
	dst := gocv.NewMat()
	gocv.CopyMakeBorder(src, &dst, top, bottom, left, right, border, color.RGBA{R: v, G: v, B: v, A: 255})
	return dst
}

func intersect(first, second gocv.Mat, size1, size2, offset image.Point) (*AlignedPair, error) {
	overlap := image.Rectangle{Max: size1}.Intersect(image.Rectangle{Min: offset, Max: offset.Add(size2)})
	if overlap.Empty() {
		return nil, fmt.Errorf("images do not overlap at offset %v: %w", offset, errs.ErrInvalidParameter)
	}

	crop1 := first.Region(overlap)
	defer crop1.Close()
	crop2 := second.Region(overlap.Sub(offset))
	defer crop2.Close()

	return &AlignedPair{
		First:        crop1.Clone(),
		Second:       crop2.Clone(),
		FirstOrigin:  image.Point{}.Sub(overlap.Min),
		SecondOrigin: offset.Sub(overlap.Min),
		Canvas:       overlap.Size(),
	}, nil
}

func validateSources(first, second gocv.Mat) error {
	for i, m := range []gocv.Mat{first, second} {
		if m.Empty() || m.Cols() <= 0 || m.Rows() <= 0 {
			return fmt.Errorf("image %d is empty: %w", i+1, errs.ErrInvalidInput)
		}
	}
	if first.Type() != second.Type() {
		return fmt.Errorf("image types differ: %v vs %v: %w", first.Type(), second.Type(), errs.ErrInvalidInput)
	}
	return nil
}
