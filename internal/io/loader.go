// Image loading and saving functionality
package io

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"hybrid-images/internal/errs"
)

var supportedFormats = map[string]string{
	".jpg":  "JPEG",
	".jpeg": "JPEG",
	".png":  "PNG",
	".tiff": "TIFF",
	".tif":  "TIFF",
	".bmp":  "BMP",
	".webp": "WEBP",
}

// ImageLoader handles image file operations
type ImageLoader struct {
	logger *slog.Logger
}

func NewImageLoader(logger *slog.Logger) *ImageLoader {
	return &ImageLoader{
		logger: logger,
	}
}

// LoadImage reads a colour image as 8-bit BGR. Files OpenCV cannot decode
// are retried with the Go image decoders. On error the Mat is the zero
// value.
func (il *ImageLoader) LoadImage(path string) (gocv.Mat, error) {
	il.logger.Debug("Loading image", "filepath", path)

	if _, err := os.Stat(path); err != nil {
		return gocv.Mat{}, fmt.Errorf("cannot read %s: %v: %w", path, err, errs.ErrIOFailure)
	}

	mat := gocv.IMRead(path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()

		fallback, err := il.decodeFile(path)
		if err != nil {
			return gocv.Mat{}, err
		}
		mat = fallback
	}

	il.logger.Info("Image loaded successfully",
		"filepath", path,
		"width", mat.Cols(),
		"height", mat.Rows(),
		"channels", mat.Channels())

	return mat, nil
}

func (il *ImageLoader) decodeFile(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("cannot read %s: %v: %w", path, err, errs.ErrIOFailure)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image %s: %v: %w", path, err, errs.ErrInvalidInput)
	}
	il.logger.Debug("Decoded with fallback decoder", "filepath", path, "format", format)

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to convert image %s: %v: %w", path, err, errs.ErrInvalidInput)
	}
	return mat, nil
}

func (il *ImageLoader) SaveImage(mat gocv.Mat, path string) error {
	il.logger.Debug("Saving image", "filepath", path)

	if mat.Empty() {
		return fmt.Errorf("cannot save empty image: %w", errs.ErrInvalidInput)
	}

	if !IsSupportedFormat(path) {
		return fmt.Errorf("unsupported image format: %s: %w", path, errs.ErrInvalidParameter)
	}

	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("failed to save image: %s: %w", path, errs.ErrIOFailure)
	}

	il.logger.Info("Image saved successfully",
		"filepath", path,
		"width", mat.Cols(),
		"height", mat.Rows(),
		"channels", mat.Channels())

	return nil
}

// Encode compresses mat in memory as PNG.
func (il *ImageLoader) Encode(mat gocv.Mat) ([]byte, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("cannot encode empty image: %w", errs.ErrInvalidInput)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %v: %w", err, errs.ErrIOFailure)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Decode reads an in-memory encoded image as 8-bit BGR.
func (il *ImageLoader) Decode(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("no image data: %w", errs.ErrInvalidInput)
	}

	if mat, err := gocv.IMDecode(data, gocv.IMReadColor); err == nil {
		if !mat.Empty() {
			return mat, nil
		}
		mat.Close()
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("failed to decode image: %v: %w", err, errs.ErrInvalidInput)
	}
	return gocv.ImageToMatRGB(img)
}

// IsSupportedFormat reports whether path has a known image extension.
func IsSupportedFormat(path string) bool {
	_, ok := supportedFormats[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (il *ImageLoader) GetSupportedFormats() []string {
	seen := make(map[string]bool)
	var formats []string
	for _, name := range supportedFormats {
		if !seen[name] {
			seen[name] = true
			formats = append(formats, name)
		}
	}
	sort.Strings(formats)
	return formats
}
