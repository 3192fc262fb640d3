// Package quant implements the three quantizers of spec §4.3: a black/white
// threshold, a closest-color cluster-fit against a target palette, and
// Atkinson error-diffusion dithering. Each converts a truecolor or already
// paletted image.Frame to a Paletted8 frame; prune-indices (see package
// palette) is responsible for packing down to 1/2/4 bits per pixel later in
// the canonical pipeline order.
package quant

import (
	"fmt"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// Threshold converts fr to a 2-color Paletted8 image: {0x000000, 0xFFFFFF}.
// A pixel whose Rec.601 luma, normalized to [0,1], is >= threshold becomes
// white (index 1); otherwise black (index 0). threshold must be in [0,1].
func Threshold(fr *image.Frame, threshold float64) (*image.Frame, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("quant: Threshold: threshold %v out of range [0,1]", threshold)
	}

	out := image.New(color.Paletted8, fr.Width, fr.Height)
	out.DataType = fr.DataType
	out.SourceFile = fr.SourceFile
	out.SourceIndex = fr.SourceIndex
	out.ColorMap = []color.RGB888{{R: 0, G: 0, B: 0}, {R: 255, G: 255, B: 255}}

	for i := range out.Pixels.Pixels {
		c, err := fr.RGB888At(i)
		if err != nil {
			return nil, fmt.Errorf("quant: Threshold: %w", err)
		}
		gray := float64(color.Gray(c)) / 255
		if gray >= threshold {
			out.Pixels.Pixels[i] = 1
		}
	}
	return out, nil
}
