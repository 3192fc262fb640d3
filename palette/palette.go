// Package palette implements the palette-manipulation pipeline steps of
// spec §4.4: adding or relocating a color to index 0, reordering a palette
// for dithering/compression friendliness, shifting indices, and pruning to
// a smaller bit depth.
package palette

import (
	"fmt"
	"sort"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// AddColorAt0 prepends c to fr's color map and shifts every pixel index up
// by one, so index 0 now refers to c. Fails if the color map already holds
// 256 entries.
func AddColorAt0(fr *image.Frame, c color.RGB888) error {
	if err := image.RequirePaletted(fr); err != nil {
		return fmt.Errorf("palette: AddColorAt0: %w", err)
	}
	if len(fr.ColorMap) >= image.MaxColorMapEntries {
		return fmt.Errorf("palette: AddColorAt0: color map already has %d entries", image.MaxColorMapEntries)
	}
	fr.ColorMap = append([]color.RGB888{c}, fr.ColorMap...)
	for i, v := range fr.Pixels.Pixels {
		fr.Pixels.Pixels[i] = v + 1
	}
	return nil
}

// MoveColorAt0 finds c in fr's color map and swaps it with index 0,
// everywhere in both the color map and the pixel data. Fails if c is not
// present.
func MoveColorAt0(fr *image.Frame, c color.RGB888) error {
	if err := image.RequirePaletted(fr); err != nil {
		return fmt.Errorf("palette: MoveColorAt0: %w", err)
	}
	target := -1
	for i, v := range fr.ColorMap {
		if v == c {
			target = i
			break
		}
	}
	if target == -1 {
		return fmt.Errorf("palette: MoveColorAt0: color %v not present in color map", c)
	}
	if target == 0 {
		return nil
	}
	fr.ColorMap[0], fr.ColorMap[target] = fr.ColorMap[target], fr.ColorMap[0]
	for i, v := range fr.Pixels.Pixels {
		switch int(v) {
		case 0:
			fr.Pixels.Pixels[i] = uint32(target)
		case target:
			fr.Pixels.Pixels[i] = 0
		}
	}
	return nil
}

// ShiftIndices adds n to every non-zero pixel index, clamping to 255.
// Fails if the largest resulting index would exceed 255.
func ShiftIndices(fr *image.Frame, n int) error {
	if err := image.RequirePaletted(fr); err != nil {
		return fmt.Errorf("palette: ShiftIndices: %w", err)
	}
	maxIdx := 0
	for _, v := range fr.Pixels.Pixels {
		if int(v) > maxIdx {
			maxIdx = int(v)
		}
	}
	if maxIdx != 0 && maxIdx+n > 255 {
		return fmt.Errorf("palette: ShiftIndices: max index %d + shift %d exceeds 255", maxIdx, n)
	}
	for i, v := range fr.Pixels.Pixels {
		if v == 0 {
			continue
		}
		shifted := int(v) + n
		if shifted > 255 {
			shifted = 255
		}
		fr.Pixels.Pixels[i] = uint32(shifted)
	}
	return nil
}

// PruneIndices packs fr's pixel indices down to bits (1, 2, or 4) per
// pixel, changing its format tag. Fails if any index does not fit.
func PruneIndices(fr *image.Frame, bits int) error {
	if err := image.RequirePaletted(fr); err != nil {
		return fmt.Errorf("palette: PruneIndices: %w", err)
	}
	var format color.Format
	var max uint32
	switch bits {
	case 1:
		format, max = color.Paletted1, 1
	case 2:
		format, max = color.Paletted2, 3
	case 4:
		format, max = color.Paletted4, 15
	default:
		return fmt.Errorf("palette: PruneIndices: unsupported bit depth %d", bits)
	}
	for _, v := range fr.Pixels.Pixels {
		if v > max {
			return fmt.Errorf("palette: PruneIndices: index %d does not fit in %d bits", v, bits)
		}
	}
	fr.Pixels.Format = format
	return nil
}

// hue returns the HSL hue in [0,360) of c, used only to seed
// ReorderForSimilarity's initial ordering.
func hue(c color.RGB888) float64 {
	r, g, b := float64(c.R)/255, float64(c.G)/255, float64(c.B)/255
	max := r
	if g > max {
		max = g
	}
	if b > max {
		max = b
	}
	min := r
	if g < min {
		min = g
	}
	if b < min {
		min = b
	}
	d := max - min
	if d == 0 {
		return 0
	}
	var h float64
	switch max {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	case b:
		h = (r-g)/d + 4
	}
	return h * 60
}

// ReorderForSimilarity permutes fr's color map (and remaps pixel indices to
// match) to minimize the RMS of successive-color squared distances, via a
// greedy nearest-neighbor insertion heuristic seeded by an HSL-hue-sorted
// index, per spec §4.4.
func ReorderForSimilarity(fr *image.Frame) error {
	if err := image.RequirePaletted(fr); err != nil {
		return fmt.Errorf("palette: ReorderForSimilarity: %w", err)
	}
	n := len(fr.ColorMap)
	if n <= 1 {
		return nil
	}

	seeded := make([]int, n)
	for i := range seeded {
		seeded[i] = i
	}
	sort.Slice(seeded, func(i, j int) bool { return hue(fr.ColorMap[seeded[i]]) < hue(fr.ColorMap[seeded[j]]) })

	used := make([]bool, n)
	order := make([]int, 0, n)
	cur := seeded[0]
	order = append(order, cur)
	used[cur] = true
	for len(order) < n {
		best, bestD := -1, 0.0
		for _, cand := range seeded {
			if used[cand] {
				continue
			}
			d := color.SquaredDistance(fr.ColorMap[cur], fr.ColorMap[cand])
			if best == -1 || d < bestD {
				best, bestD = cand, d
			}
		}
		used[best] = true
		order = append(order, best)
		cur = best
	}

	newMap := make([]color.RGB888, n)
	oldToNew := make([]uint32, n)
	for newIdx, oldIdx := range order {
		newMap[newIdx] = fr.ColorMap[oldIdx]
		oldToNew[oldIdx] = uint32(newIdx)
	}
	fr.ColorMap = newMap
	for i, v := range fr.Pixels.Pixels {
		fr.Pixels.Pixels[i] = oldToNew[v]
	}
	return nil
}
