package persistence

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	"image/jpeg"
	_ "image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// JPEGDataURLPrefix prefixes every compressed image
const JPEGDataURLPrefix = "data:image/jpeg;base64,"

// DefaultMaxPixels bounds the decoded size of an image, about 100 MB as RGBA
const DefaultMaxPixels = 25_000_000

var (
	// ErrNotAnImage is returned for payloads that are not base64 encoded images
	ErrNotAnImage = errors.New("payload is not a base64 encoded image")
	// ErrImageTooLarge is returned for images whose declared dimensions
	// exceed the pixel limit. They are never decoded.
	ErrImageTooLarge = errors.New("image dimensions exceed the pixel limit")
)

// ImageCompressor downscales images to a maximum width and re-encodes them
// as JPEG data URLs.
type ImageCompressor struct {
	maxWidth  int
	quality   int
	maxPixels int
}

// ImageCompressorOption configures an ImageCompressor
type ImageCompressorOption func(*ImageCompressor)

// WithMaxPixels sets the largest width×height that will be decoded.
// Values below 1 keep the default.
func WithMaxPixels(n int) ImageCompressorOption {
	return func(c *ImageCompressor) {
		if n > 0 {
			c.maxPixels = n
		}
	}
}

// NewImageCompressor creates a compressor
func NewImageCompressor(maxWidth, quality int, opts ...ImageCompressorOption) *ImageCompressor {
	c := &ImageCompressor{
		maxWidth:  maxWidth,
		quality:   quality,
		maxPixels: DefaultMaxPixels,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compress accepts a data URL or bare base64 payload. The aspect ratio is
// kept and images narrower than the maximum width are not upscaled.
func (c *ImageCompressor) Compress(payload string) (string, error) {
	raw, err := decodeImagePayload(payload)
	if err != nil {
		return "", err
	}

	// Decoders allocate the whole pixel buffer from the header alone
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("image has no pixels: %w", ErrNotAnImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(c.maxPixels) {
		return "", fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, ErrImageTooLarge)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return "", fmt.Errorf("image has no pixels: %w", ErrNotAnImage)
	}
	if c.maxWidth > 0 && width > c.maxWidth {
		height = max(1, height*c.maxWidth/width)
		width = c.maxWidth
	}

	// JPEG has no alpha channel, so flatten onto white
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.quality}); err != nil {
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return JPEGDataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeImagePayload(payload string) ([]byte, error) {
	data := strings.TrimSpace(payload)
	if strings.HasPrefix(data, "data:") {
		header, body, ok := strings.Cut(data, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, ErrNotAnImage
		}
		data = body
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
		}
	}
	return raw, nil
}
