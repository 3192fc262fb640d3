package quant

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// nearest returns the index into pal of the color closest to c by the
// spec §4.1 weighted squared distance, and that distance.
func nearest(c color.RGB888, pal []color.RGB888) (int, float64) {
	best, bestD := 0, color.SquaredDistance(c, pal[0])
	for i := 1; i < len(pal); i++ {
		if d := color.SquaredDistance(c, pal[i]); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

// ClosestColor builds the input's color histogram, greedily clusters it to
// the K colors of target closest to the input's color distribution, then
// maps every source color to its nearest chosen palette entry. Output is a
// Paletted8 frame; unused palette slots (K < len(target)) are not emitted.
func ClosestColor(fr *image.Frame, target []color.RGB888, k int) (*image.Frame, error) {
	if k < 1 || k > 255 {
		return nil, fmt.Errorf("quant: ClosestColor: palette size %d out of range [1,255]", k)
	}
	if len(target) == 0 {
		return nil, fmt.Errorf("quant: ClosestColor: target color map is empty")
	}
	if k > len(target) {
		k = len(target)
	}

	// Build the source color histogram.
	type entry struct {
		c     color.RGB888
		count int
	}
	hist := make(map[color.RGB888]int)
	n := fr.Width * fr.Height
	for i := 0; i < n; i++ {
		c, err := fr.RGB888At(i)
		if err != nil {
			return nil, fmt.Errorf("quant: ClosestColor: %w", err)
		}
		hist[c]++
	}
	entries := make([]entry, 0, len(hist))
	for c, cnt := range hist {
		entries = append(entries, entry{c, cnt})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].count > entries[j].count })

	// Seed cluster centroids with the K most common colors' nearest target
	// match, so that dense parts of the histogram each claim a slot before
	// duplicates collapse.
	centroids := make([]color.RGB888, 0, k)
	seen := make(map[color.RGB888]bool)
	for _, e := range entries {
		if len(centroids) >= k {
			break
		}
		ti, _ := nearest(e.c, target)
		if !seen[target[ti]] {
			seen[target[ti]] = true
			centroids = append(centroids, target[ti])
		}
	}
	// Top up with further target colors if the histogram had fewer unique
	// clusters than K.
	for _, t := range target {
		if len(centroids) >= k {
			break
		}
		if !seen[t] {
			seen[t] = true
			centroids = append(centroids, t)
		}
	}

	// One refinement pass: recompute each centroid as the histogram-weighted
	// mean color of the source colors currently assigned to it, then snap
	// that mean back onto the nearest actual target color so the final
	// palette stays within the caller's target set.
	assignR := make([][]float64, len(centroids))
	assignW := make([][]float64, len(centroids))
	assignG := make([][]float64, len(centroids))
	assignB := make([][]float64, len(centroids))
	for _, e := range entries {
		ci, _ := nearest(e.c, centroids)
		w := float64(e.count)
		assignR[ci] = append(assignR[ci], float64(e.c.R))
		assignG[ci] = append(assignG[ci], float64(e.c.G))
		assignB[ci] = append(assignB[ci], float64(e.c.B))
		assignW[ci] = append(assignW[ci], w)
	}
	final := make([]color.RGB888, len(centroids))
	for i := range centroids {
		if len(assignW[i]) == 0 {
			final[i] = centroids[i]
			continue
		}
		mean := color.RGB888{
			R: uint8(stat.Mean(assignR[i], assignW[i])),
			G: uint8(stat.Mean(assignG[i], assignW[i])),
			B: uint8(stat.Mean(assignB[i], assignW[i])),
		}
		ti, _ := nearest(mean, target)
		final[i] = target[ti]
	}

	// Deduplicate the final palette, preserving first-occurrence order.
	pal := make([]color.RGB888, 0, len(final))
	dedup := make(map[color.RGB888]bool)
	for _, c := range final {
		if !dedup[c] {
			dedup[c] = true
			pal = append(pal, c)
		}
	}

	out := image.New(color.Paletted8, fr.Width, fr.Height)
	out.DataType = fr.DataType
	out.SourceFile = fr.SourceFile
	out.SourceIndex = fr.SourceIndex
	out.ColorMap = pal

	for i := 0; i < n; i++ {
		c, err := fr.RGB888At(i)
		if err != nil {
			return nil, fmt.Errorf("quant: ClosestColor: %w", err)
		}
		idx, _ := nearest(c, pal)
		out.Pixels.Pixels[i] = uint32(idx)
	}
	return out, nil
}
