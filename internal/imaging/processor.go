// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalizes uploaded images before storage: EXIF
// auto-rotation, metadata stripping and thumbnail generation.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder

	"github.com/olegiv/staffblog/internal/model"
)

// jpegQuality is used for all lossy re-encodes.
const jpegQuality = 90

// Result is a processed image ready for storage.
type Result struct {
	Data     []byte
	Width    int
	Height   int
	MimeType string
}

// Process decodes an uploaded image, applies its EXIF orientation and
// re-encodes it. The pure Go encoders drop EXIF blocks, so location
// and device metadata never reach storage. GIFs pass through untouched
// to preserve animation.
func Process(data []byte) (*Result, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	if format == "gif" {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding gif: %w", err)
		}
		return &Result{Data: data, Width: cfg.Width, Height: cfg.Height, MimeType: model.MimeTypeGIF}, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	encoded, mimeType, err := encode(img, format)
	if err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	bounds := img.Bounds()
	return &Result{
		Data:     encoded,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: mimeType,
	}, nil
}

// Thumbnail renders the image into a width x height JPEG, cropped from
// the center. Sources already smaller than the target are returned
// re-encoded without upscaling.
func Thumbnail(data []byte, width, height int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = applyOrientation(img, readExifOrientation(bytes.NewReader(data)))

	bounds := img.Bounds()
	if bounds.Dx() > width || bounds.Dy() > height {
		img = imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// readExifOrientation returns the EXIF orientation tag, 1 when absent.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// encode writes the image back in its source format. WebP has no pure
// Go encoder, so WebP sources come back as JPEG.
func encode(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), model.MimeTypePNG, nil
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), model.MimeTypeGIF, nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), model.MimeTypeJPEG, nil
	}
}

// detectFormat sniffs the image format from raw bytes. TIFF is
// rejected (CVE-2023-36308 in disintegration/imaging).
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}
