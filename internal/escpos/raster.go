package escpos

import (
	"errors"
	"image"
)

// ErrEmptyImage is returned when an image with a zero dimension is encoded.
var ErrEmptyImage = errors.New("escpos: image has zero width or height")

const rasterHeaderLen = 5

// EncodeRaster converts a bitmap into ESC * column raster commands, one
// command per pixel row. Each row is a fixed header (ESC * 0x21 nL nH, where
// nL+nH*256 is the packed row width in bytes), the packed pixel bits MSB
// first, and a trailing line feed. A bit is set when the pixel's average
// luminance is below 128. Output length is exactly
// height * (5 + ceil(width/8) + 1) bytes.
func EncodeRaster(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, ErrEmptyImage
	}

	widthBytes := (width + 7) / 8
	out := make([]byte, 0, height*(rasterHeaderLen+widthBytes+1))

	for y := 0; y < height; y++ {
		out = append(out, ESC, '*', 0x21, byte(widthBytes%256), byte(widthBytes/256))

		for x := 0; x < width; x += 8 {
			var packed byte
			for bit := 0; bit < 8; bit++ {
				px := x + bit
				if px >= width {
					break
				}
				r, g, b, _ := img.At(bounds.Min.X+px, bounds.Min.Y+y).RGBA()
				luma := (uint32(r>>8) + uint32(g>>8) + uint32(b>>8)) / 3
				if luma < 128 {
					packed |= 1 << uint(7-bit)
				}
			}
			out = append(out, packed)
		}

		out = append(out, NL)
	}

	return out, nil
}
