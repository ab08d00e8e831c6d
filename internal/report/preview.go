package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const PreviewMaxSide = 480

// Preview scales img down to fit PreviewMaxSide (never up) and returns it
// as a JPEG data URI for inline display next to the result.
func Preview(img image.Image) (string, error) {
	thumb := imaging.Fit(img, PreviewMaxSide, PreviewMaxSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		return "", fmt.Errorf("encode preview: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
