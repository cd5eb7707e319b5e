package integrations

import (
	"bufio"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Registered for format auto-detection in image.Decode.
	_ "image/gif"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// EncodeFunc writes img to w in one output format.
type EncodeFunc func(w io.Writer, img image.Image) error

// ImageConverter decodes any registered image format and re-encodes it in
// the format named by the destination extension.
type ImageConverter struct {
	encoders map[string]EncodeFunc
	logger   *slog.Logger
}

// NewImageConverter returns a converter that writes PNG for ".png" and JPEG
// for ".jpg"/".jpeg" destinations.
func NewImageConverter(logger *slog.Logger) *ImageConverter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	pngEncoder := &png.Encoder{CompressionLevel: png.DefaultCompression}
	jpegEncode := func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	}
	return &ImageConverter{
		encoders: map[string]EncodeFunc{
			".png":  pngEncoder.Encode,
			".jpg":  jpegEncode,
			".jpeg": jpegEncode,
		},
		logger: logger,
	}
}

// Convert decodes src and writes it to dst, creating or truncating dst.
// The source file is never modified. A decode failure leaves dst untouched;
// an encode failure may leave a partially written dst behind.
func (c *ImageConverter) Convert(src, dst string) error {
	started := time.Now()

	img, format, err := decodeFile(src)
	if err != nil {
		return &ConvertError{Op: OpDecode, Path: src, Err: err}
	}

	encode, err := c.encoderFor(dst)
	if err != nil {
		return &ConvertError{Op: OpEncode, Path: dst, Err: err}
	}

	if err := writeFile(dst, normalize(img), encode); err != nil {
		return &ConvertError{Op: OpEncode, Path: dst, Err: err}
	}

	bounds := img.Bounds()
	c.logger.Debug("image converted",
		"src", src,
		"dst", dst,
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy(),
		"elapsed", time.Since(started),
	)
	return nil
}

func (c *ImageConverter) encoderFor(dst string) (EncodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(dst))
	encode, ok := c.encoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported output format %q", ext)
	}
	return encode, nil
}

func decodeFile(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

func writeFile(path string, img image.Image, encode EncodeFunc) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := encode(w, img); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// normalize converts CMYK images (Adobe JPEGs) to RGBA; PNG has no CMYK
// color model. Everything else is passed through unchanged.
func normalize(img image.Image) image.Image {
	cmyk, ok := img.(*image.CMYK)
	if !ok {
		return img
	}
	bounds := cmyk.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, cmyk, bounds.Min, draw.Src)
	return rgba
}
