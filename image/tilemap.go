package image

import "fmt"

// TileRef is one entry of a screen-map: which store tile to draw, and
// whether to draw it flipped.
type TileRef struct {
	Index uint16
	HFlip bool
	VFlip bool
}

// log2Ceil returns the number of bits needed to represent values in
// [0, n), i.e. ceil(log2(n)), with a floor of 1 bit.
func log2Ceil(n int) uint {
	bits := uint(1)
	for (1 << bits) < n {
		bits++
	}
	return bits
}

// Pack encodes r as a 16-bit screen-map word: index | (h<<nrTilesLog2) |
// (v<<(nrTilesLog2+1)), per spec §3.
func (r TileRef) Pack(nrTiles int) uint16 {
	shift := log2Ceil(nrTiles)
	w := r.Index
	if r.HFlip {
		w |= 1 << shift
	}
	if r.VFlip {
		w |= 1 << (shift + 1)
	}
	return w
}

// UnpackTileRef is the inverse of TileRef.Pack.
func UnpackTileRef(w uint16, nrTiles int) TileRef {
	shift := log2Ceil(nrTiles)
	mask := uint16(1)<<shift - 1
	return TileRef{
		Index: w & mask,
		HFlip: w&(1<<shift) != 0,
		VFlip: w&(1<<(shift+1)) != 0,
	}
}

// TileMap is a (screen-map, tile-store) pair: the ordered sequence of tile
// references making up one or more frames, and the deduplicated tile
// pixels they reference, per spec §3.
type TileMap struct {
	Tw, Th    int
	MaxTiles  int // reserved store capacity used for Pack/UnpackTileRef's bit width.
	ScreenMap []TileRef
	Store     [][]uint32 // unique tile pixels, in first-occurrence order.
}

// fnv1a64 hashes a tile's pixel values with the FNV-1a algorithm, treating
// each uint32 pixel as four bytes.
func fnv1a64(px []uint32) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for _, v := range px {
		for shift := 0; shift < 32; shift += 8 {
			h ^= uint64(byte(v >> shift))
			h *= prime
		}
	}
	return h
}

func flipH(px []uint32, tw, th int) []uint32 {
	out := make([]uint32, len(px))
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			out[y*tw+x] = px[y*tw+(tw-1-x)]
		}
	}
	return out
}

func flipV(px []uint32, tw, th int) []uint32 {
	out := make([]uint32, len(px))
	for y := 0; y < th; y++ {
		for x := 0; x < tw; x++ {
			out[y*tw+x] = px[(th-1-y)*tw+x]
		}
	}
	return out
}

func equalTiles(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func extractTile(fr *Frame, x0, y0, tw, th int) []uint32 {
	out := make([]uint32, tw*th)
	for y := 0; y < th; y++ {
		copy(out[y*tw:y*tw+tw], fr.Pixels.Pixels[(y0+y)*fr.Width+x0:(y0+y)*fr.Width+x0+tw])
	}
	return out
}

// BuildTileMap computes a unique-tile map across one or more same-sized
// bitmap frames, per spec §4.2. Deterministic tie-break: earlier occurrence
// wins; among flipped matches, no-flip beats H-flip beats V-flip beats both.
func BuildTileMap(frames []*Frame, tw, th int, detectFlips bool, maxTiles int) (*TileMap, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("image: BuildTileMap: no frames given")
	}
	w, h := frames[0].Width, frames[0].Height
	for _, fr := range frames {
		if err := RequireBitmap(fr); err != nil {
			return nil, err
		}
		if fr.Width != w || fr.Height != h {
			return nil, fmt.Errorf("image: BuildTileMap: frame size mismatch: %dx%d vs %dx%d", fr.Width, fr.Height, w, h)
		}
		if w%tw != 0 || h%th != 0 {
			return nil, fmt.Errorf("image: BuildTileMap: %dx%d frame not divisible by %dx%d tiles", w, h, tw, th)
		}
	}

	tm := &TileMap{Tw: tw, Th: th, MaxTiles: maxTiles}
	hashIndex := make(map[uint64]int)

	for _, fr := range frames {
		for y0 := 0; y0 < h; y0 += th {
			for x0 := 0; x0 < w; x0 += tw {
				tile := extractTile(fr, x0, y0, tw, th)

				type candidate struct {
					px           []uint32
					hflip, vflip bool
				}
				candidates := []candidate{{tile, false, false}}
				if detectFlips {
					candidates = append(candidates,
						candidate{flipH(tile, tw, th), true, false},
						candidate{flipV(tile, tw, th), false, true},
						candidate{flipH(flipV(tile, tw, th), tw, th), true, true},
					)
				}

				matched := false
				for _, c := range candidates {
					if idx, ok := hashIndex[fnv1a64(c.px)]; ok && equalTiles(tm.Store[idx], c.px) {
						tm.ScreenMap = append(tm.ScreenMap, TileRef{Index: uint16(idx), HFlip: c.hflip, VFlip: c.vflip})
						matched = true
						break
					}
				}
				if matched {
					continue
				}

				if len(tm.Store) >= maxTiles {
					return nil, fmt.Errorf("image: BuildTileMap: exceeded tile store cap of %d", maxTiles)
				}
				idx := len(tm.Store)
				tm.Store = append(tm.Store, tile)
				hashIndex[fnv1a64(tile)] = idx
				tm.ScreenMap = append(tm.ScreenMap, TileRef{Index: uint16(idx)})
			}
		}
	}
	return tm, nil
}
