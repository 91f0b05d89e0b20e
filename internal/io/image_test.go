package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func decodeJPEG(t *testing.T, path string) image.Config {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg
}

func TestMakeThumbnail_Resizes(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.jpg")
	dst := filepath.Join(dir, "folder.jpg")
	writePNG(t, src, 300, 200)

	require.NoError(t, NewImageService().MakeThumbnail(context.Background(), src, dst, 150))

	cfg := decodeJPEG(t, dst)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 100, cfg.Height)
}

func TestMakeThumbnail_KeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.jpg")
	dst := filepath.Join(dir, "folder.jpg")
	writePNG(t, src, 80, 60)

	require.NoError(t, NewImageService().MakeThumbnail(context.Background(), src, dst, 0))

	cfg := decodeJPEG(t, dst)
	assert.Equal(t, 80, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestMakeThumbnail_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "cover.jpg")
	require.NoError(t, os.WriteFile(src, []byte("<html>quota exceeded</html>"), 0644))

	err := NewImageService().MakeThumbnail(context.Background(), src, filepath.Join(dir, "folder.jpg"), 100)
	assert.Error(t, err)
}
