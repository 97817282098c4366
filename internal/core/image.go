// Raster validation and plane conversion
package core

import (
	"fmt"

	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

// RasterChannels is the channel count of every raster the engine accepts.
const RasterChannels = 3

// MaxDimension bounds either side of an input raster.
const MaxDimension = 16384

// ImageMetadata describes a raster for logging.
type ImageMetadata struct {
	Width    int
	Height   int
	Channels int
	Type     gocv.MatType
}

func MetadataOf(mat gocv.Mat) ImageMetadata {
	return ImageMetadata{
		Width:    mat.Cols(),
		Height:   mat.Rows(),
		Channels: mat.Channels(),
		Type:     mat.Type(),
	}
}

func (m ImageMetadata) String() string {
	return fmt.Sprintf("%dx%dx%d", m.Width, m.Height, m.Channels)
}

// ValidateImage checks that mat is a usable 3-channel raster.
func ValidateImage(mat gocv.Mat) error {
	if mat.Empty() {
		return fmt.Errorf("image is empty: %w", errs.ErrInvalidInput)
	}

	if mat.Cols() <= 0 || mat.Rows() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d: %w", mat.Cols(), mat.Rows(), errs.ErrInvalidInput)
	}

	if mat.Channels() != RasterChannels {
		return fmt.Errorf("unsupported channel count %d, want %d: %w", mat.Channels(), RasterChannels, errs.ErrInvalidInput)
	}

	if mat.Cols() > MaxDimension || mat.Rows() > MaxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d): %w", mat.Cols(), mat.Rows(), MaxDimension, errs.ErrInvalidInput)
	}

	return nil
}

// ToPlanes promotes a raster to CV_64F and splits it into one plane per
// channel. The caller owns the planes.
func ToPlanes(mat gocv.Mat) ([]gocv.Mat, error) {
	if err := ValidateImage(mat); err != nil {
		return nil, err
	}

	promoted := gocv.NewMat()
	defer promoted.Close()
	mat.ConvertTo(&promoted, gocv.MatTypeCV64FC3)

	return gocv.Split(promoted), nil
}

// FromPlanes merges channel planes and converts them to an 8-bit raster,
// rounding |v| to the nearest integer and saturating to 0..255.
func FromPlanes(planes []gocv.Mat) gocv.Mat {
	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(planes, &merged)

	out := gocv.NewMat()
	gocv.ConvertScaleAbs(merged, &out, 1, 0)
	return out
}

// ClosePlanes releases every plane in the slice.
func ClosePlanes(planes []gocv.Mat) {
	for i := range planes {
		planes[i].Close()
	}
}
