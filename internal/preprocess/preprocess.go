package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/Brownie44l1/leaf-api/internal/apperr"
	"github.com/nfnt/resize"
)

const (
	InputSize = 224
	Channels  = 3

	// MaxPixels bounds width*height as claimed by the image header.
	MaxPixels = 40_000_000
)

// Tensor is a single NHWC batch: Shape is (1, InputSize, InputSize, Channels).
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Len is the number of values the shape describes.
func (t Tensor) Len() int {
	return t.Shape[0] * t.Shape[1] * t.Shape[2] * t.Shape[3]
}

// At returns row y, column x, channel c of batch item 0.
func (t Tensor) At(y, x, c int) float32 {
	return t.Data[(y*t.Shape[2]+x)*t.Shape[3]+c]
}

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// Decode reads a JPEG or PNG image. Anything else, an empty image, or one
// whose header claims more than MaxPixels is an input error.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	// Check the header first so formats registered by other packages are
	// rejected before a full decode.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Input("not a decodable image", err)
	}
	if !supportedFormats[format] {
		return nil, "", apperr.Inputf("unsupported image format %q, expected JPEG or PNG", format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperr.Inputf("image has no pixels (%dx%d)", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", apperr.Inputf("image is too large (%dx%d), limit is %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", apperr.Input("not a decodable image", err)
	}
	return img, format, nil
}

// Tensorize resizes img to InputSize x InputSize (no crop, aspect ratio is
// not kept) and scales each 8-bit RGB channel to [0,1]. Alpha is dropped.
func Tensorize(img image.Image) Tensor {
	resized := resize.Resize(InputSize, InputSize, img, resize.Bicubic)
	bounds := resized.Bounds()

	t := Tensor{
		Shape: [4]int{1, InputSize, InputSize, Channels},
		Data:  make([]float32, InputSize*InputSize*Channels),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(resized.At(x, y)).(color.NRGBA)
			t.Data[i] = float32(c.R) / 255.0
			t.Data[i+1] = float32(c.G) / 255.0
			t.Data[i+2] = float32(c.B) / 255.0
			i += Channels
		}
	}
	return t
}

// FromReader decodes and tensorizes in one step.
func FromReader(r io.Reader) (image.Image, Tensor, error) {
	img, _, err := Decode(r)
	if err != nil {
		return nil, Tensor{}, err
	}
	return img, Tensorize(img), nil
}

// Validate checks the invariants the classifier relies on.
func (t Tensor) Validate() error {
	want := [4]int{1, InputSize, InputSize, Channels}
	if t.Shape != want {
		return fmt.Errorf("tensor shape %v, want %v", t.Shape, want)
	}
	if len(t.Data) != t.Len() {
		return fmt.Errorf("tensor has %d values, shape needs %d", len(t.Data), t.Len())
	}
	return nil
}
