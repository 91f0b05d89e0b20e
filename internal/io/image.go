package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageService provides image processing operations for cover art.
//
// It is used to derive a small folder thumbnail (folder.jpg) from the
// downloaded cover, which many players and file managers show for the
// album directory.
//
// Example usage:
//
//	svc := NewImageService()
//	err := svc.MakeThumbnail(ctx, "/music/Album/cover.jpg", "/music/Album/folder.jpg", 500)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// MakeThumbnail writes a JPEG copy of src at dst scaled to fit within
// maxSize x maxSize. A maxSize of zero keeps the original dimensions.
func (s *ImageService) MakeThumbnail(ctx context.Context, src, dst string, maxSize int) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	var out []byte
	if maxSize > 0 {
		out, err = s.ResizeImage(ctx, data, maxSize, maxSize)
	} else {
		out, err = s.ConvertToJPEG(ctx, data)
	}
	if err != nil {
		return fmt.Errorf("thumbnail of %s: %w", src, err)
	}
	return WriteFile(ctx, dst, out)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. If the image is already smaller than the
// maximum dimensions, it is only re-encoded as JPEG.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Calculate new dimensions maintaining aspect ratio
	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = int(float64(maxHeight) * ratio)
			height = maxHeight
		} else {
			// Width is the limiting factor
			height = int(float64(maxWidth) / ratio)
			width = maxWidth
		}
	}

	// Create new image with calculated dimensions
	dst := image.NewRGBA(image.Rect(0, 0, width, height))

	// Use Catmull-Rom for high-quality scaling
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	// Encode to JPEG with high quality
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ConvertToJPEG re-encodes an image (JPEG, PNG or GIF) as JPEG with 90%
// quality.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
