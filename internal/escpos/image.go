package escpos

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/makeworld-the-better-one/dither/v2"
	xdraw "golang.org/x/image/draw"
)

// DecodeBase64Image decodes an embedded image payload. A data-URI prefix
// ("data:image/png;base64,") is tolerated and stripped.
func DecodeBase64Image(payload string) (image.Image, error) {
	if idx := strings.Index(payload, ","); idx != -1 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64 image: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// PrepareForPaper composites the image onto a white background (so
// transparency prints as blank paper, not solid black), downscales it when it
// is wider than the printable dot width, and optionally Floyd-Steinberg
// dithers it to pure black and white before thresholding.
func PrepareForPaper(img image.Image, maxWidthDots int, applyDither bool) image.Image {
	bounds := img.Bounds()
	flattened := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(flattened, flattened.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(flattened, flattened.Bounds(), img, bounds.Min, draw.Over)

	var result image.Image = flattened
	if maxWidthDots > 0 && flattened.Bounds().Dx() > maxWidthDots {
		scale := float64(maxWidthDots) / float64(flattened.Bounds().Dx())
		height := int(float64(flattened.Bounds().Dy()) * scale)
		if height < 1 {
			height = 1
		}
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidthDots, height))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), flattened, flattened.Bounds(), xdraw.Src, nil)
		result = scaled
	}

	if applyDither {
		d := dither.NewDitherer([]color.Color{color.Black, color.White})
		d.Matrix = dither.FloydSteinberg
		result = d.Dither(result)
	}

	return result
}
