package io

import (
	"image"
	"image/color"
	"image/gif"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"hybrid-images/internal/errs"
)

func newTestLoader() *ImageLoader {
	return NewImageLoader(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func gradient(t *testing.T, rows, cols int) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(rows, cols, gocv.MatTypeCV8UC3)
	data, err := m.DataPtrUint8()
	require.NoError(t, err)
	for i := range data {
		data[i] = uint8(i % 251)
	}
	return m
}

func bytesOf(t *testing.T, m gocv.Mat) []uint8 {
	t.Helper()
	data, err := m.DataPtrUint8()
	require.NoError(t, err)
	return data
}

func TestSaveAndLoadPNG(t *testing.T) {
	il := newTestLoader()
	src := gradient(t, 12, 17)
	defer src.Close()

	path := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, il.SaveImage(src, path))

	loaded, err := il.LoadImage(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, gocv.MatTypeCV8UC3, loaded.Type())
	assert.Equal(t, []int{12, 17}, loaded.Size())
	assert.Equal(t, bytesOf(t, src), bytesOf(t, loaded))
}

func TestEncodeDecode(t *testing.T) {
	il := newTestLoader()
	src := gradient(t, 9, 5)
	defer src.Close()

	data, err := il.Encode(src)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	decoded, err := il.Decode(data)
	require.NoError(t, err)
	defer decoded.Close()
	assert.Equal(t, bytesOf(t, src), bytesOf(t, decoded))

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = il.Encode(empty)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = il.Decode([]byte("not an image"))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestLoadGIF(t *testing.T) {
	il := newTestLoader()
	palette := color.Palette{color.RGBA{10, 20, 30, 255}}
	img := image.NewPaletted(image.Rect(0, 0, 6, 4), palette)

	path := filepath.Join(t.TempDir(), "in.gif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gif.Encode(f, img, nil))
	require.NoError(t, f.Close())

	loaded, err := il.LoadImage(path)
	require.NoError(t, err)
	defer loaded.Close()

	assert.Equal(t, 3, loaded.Channels())
	assert.Equal(t, []int{4, 6}, loaded.Size())
	assert.Equal(t, []uint8{30, 20, 10}, bytesOf(t, loaded)[:3])
}

func TestLoadErrors(t *testing.T) {
	il := newTestLoader()
	dir := t.TempDir()

	missing, err := il.LoadImage(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, errs.ErrIOFailure)
	assert.Nil(t, missing.Ptr())

	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))
	_, err = il.LoadImage(garbage)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestSaveErrors(t *testing.T) {
	il := newTestLoader()
	src := gradient(t, 4, 4)
	defer src.Close()
	empty := gocv.NewMat()
	defer empty.Close()
	dir := t.TempDir()

	assert.ErrorIs(t, il.SaveImage(empty, filepath.Join(dir, "a.png")), errs.ErrInvalidInput)
	assert.ErrorIs(t, il.SaveImage(src, filepath.Join(dir, "a.txt")), errs.ErrInvalidParameter)
}

func TestSupportedFormats(t *testing.T) {
	assert.True(t, IsSupportedFormat("photo.JPG"))
	assert.True(t, IsSupportedFormat("dir.v2/cat.webp"))
	assert.False(t, IsSupportedFormat("notes.txt"))
	assert.False(t, IsSupportedFormat("noext"))
	assert.Equal(t, []string{"BMP", "JPEG", "PNG", "TIFF", "WEBP"}, newTestLoader().GetSupportedFormats())
}
