package quant

import (
	"fmt"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// atkinsonOffset is one (dx,dy) neighbor the Atkinson kernel spreads 1/8 of
// the quantization error to.
type atkinsonOffset struct{ dx, dy int }

var atkinsonKernel = []atkinsonOffset{
	{1, 0}, {2, 0},
	{-1, 1}, {0, 1}, {1, 1},
	{0, 2},
}

// Atkinson dithers fr against the fixed target palette using the Atkinson
// error-diffusion kernel, in raster order. Output is a Paletted8 frame
// whose color map is exactly target (truncated/padded is never done by the
// caller; target is used verbatim).
func Atkinson(fr *image.Frame, target []color.RGB888) (*image.Frame, error) {
	if len(target) == 0 {
		return nil, fmt.Errorf("quant: Atkinson: target color map is empty")
	}
	if len(target) > 256 {
		return nil, fmt.Errorf("quant: Atkinson: target color map has %d entries, max 256", len(target))
	}

	w, h := fr.Width, fr.Height
	// errR/G/B hold the working (original + accumulated error) channel
	// values for every pixel, float64 so fractional error survives
	// diffusion without per-pixel rounding drift.
	errR := make([]float64, w*h)
	errG := make([]float64, w*h)
	errB := make([]float64, w*h)
	for i := 0; i < w*h; i++ {
		c, err := fr.RGB888At(i)
		if err != nil {
			return nil, fmt.Errorf("quant: Atkinson: %w", err)
		}
		errR[i], errG[i], errB[i] = float64(c.R), float64(c.G), float64(c.B)
	}

	out := image.New(color.Paletted8, w, h)
	out.DataType = fr.DataType
	out.SourceFile = fr.SourceFile
	out.SourceIndex = fr.SourceIndex
	out.ColorMap = append([]color.RGB888(nil), target...)

	clamp := func(v float64) uint8 {
		if v < 0 {
			return 0
		}
		if v > 255 {
			return 255
		}
		return uint8(v)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			cur := color.RGB888{R: clamp(errR[i]), G: clamp(errG[i]), B: clamp(errB[i])}
			idx, _ := nearest(cur, target)
			chosen := target[idx]
			out.Pixels.Pixels[i] = uint32(idx)

			dr := float64(cur.R) - float64(chosen.R)
			dg := float64(cur.G) - float64(chosen.G)
			db := float64(cur.B) - float64(chosen.B)

			for _, off := range atkinsonKernel {
				nx, ny := x+off.dx, y+off.dy
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				errR[ni] += dr / 8
				errG[ni] += dg / 8
				errB[ni] += db / 8
			}
		}
	}
	return out, nil
}
