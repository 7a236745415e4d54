// Package imaging decodes stored plate crops and scales them down for
// embedding in exported workbooks.
package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

const (
	thumbnailQuality = 85

	// MaxPixels bounds the decoded size of a source image. Headers are
	// checked before any pixel data is allocated.
	MaxPixels = 50_000_000
)

var (
	ErrEmptyImage    = errors.New("empty image payload")
	ErrImageTooLarge = errors.New("image exceeds pixel limit")
)

// DecodeBase64 decodes a stored image payload. Whitespace and a data URI
// prefix are ignored, and missing padding is accepted.
func DecodeBase64(payload string) ([]byte, error) {
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	payload = strings.Join(strings.Fields(payload), "")
	if payload == "" {
		return nil, ErrEmptyImage
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err == nil {
		return raw, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, fmt.Errorf("decode base64: %w", err)
}

// FitWithin returns the largest size with the aspect ratio of w×h that fits in
// maxW×maxH. Sizes already inside the bound are returned unchanged.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	nw := int(math.Round(float64(w) * ratio))
	nh := int(math.Round(float64(h) * ratio))
	return min(max(nw, 1), maxW), min(max(nh, 1), maxH)
}

// Thumbnail returns data scaled to fit within maxW×maxH together with the
// file extension of the returned bytes. Images inside the bound are returned
// as they are; larger ones are re-encoded as JPEG.
func Thumbnail(data []byte, maxW, maxH int) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	}

	if cfg.Width <= maxW && cfg.Height <= maxH {
		return data, "." + format, nil
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	w, h := FitWithin(cfg.Width, cfg.Height, maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha channel, so transparent pixels end up white
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), ".jpg", nil
}
