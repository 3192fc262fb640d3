// Package dxtg implements the intra-frame DXT1-style block codec of spec
// §4.6.3: a truecolor image is partitioned into 4×4 blocks, each stored as
// two XRGB1555 endpoints plus a 2-bit-per-pixel index stream selecting
// among the endpoints and their two interpolated interior colors.
package dxtg

import (
	"encoding/binary"
	"fmt"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

const blockDim = 4

// Block is one decoded or to-be-encoded 4×4 tile: the two endpoints and
// the raster-order 2-bit index per pixel.
type Block struct {
	C0, C1  uint16 // XRGB1555
	Indices [blockDim * blockDim]byte
}

// Encode partitions fr into 4×4 blocks (raster order) and picks the
// lowest-error endpoint pair for each from the block's own 16 pixels, per
// spec §4.6.3's brute-force enumeration with a deterministic tie-break
// (first pair in enumeration order wins).
func Encode(fr *image.Frame) ([]Block, error) {
	if err := image.RequireBitmap(fr); err != nil {
		return nil, fmt.Errorf("dxtg: Encode: %w", err)
	}
	if fr.Width%blockDim != 0 || fr.Height%blockDim != 0 {
		return nil, fmt.Errorf("dxtg: Encode: frame %dx%d is not a multiple of %d", fr.Width, fr.Height, blockDim)
	}

	var blocks []Block
	for by := 0; by < fr.Height; by += blockDim {
		for bx := 0; bx < fr.Width; bx += blockDim {
			px, err := extractBlock(fr, bx, by)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, encodeBlock(px))
		}
	}
	return blocks, nil
}

func extractBlock(fr *image.Frame, bx, by int) ([blockDim * blockDim]uint16, error) {
	var out [blockDim * blockDim]uint16
	for y := 0; y < blockDim; y++ {
		for x := 0; x < blockDim; x++ {
			rgb, err := fr.RGB888At((by+y)*fr.Width + bx + x)
			if err != nil {
				return out, fmt.Errorf("dxtg: extractBlock: %w", err)
			}
			out[y*blockDim+x] = color.ToXRGB1555(rgb)
		}
	}
	return out, nil
}

// encodeBlock enumerates every ordered pair of the block's own colors,
// picking the pair minimizing total per-pixel squared distance to the
// best of the pair's four derived colors.
func encodeBlock(px [blockDim * blockDim]uint16) Block {
	var bestC0, bestC1 uint16
	var bestIdx [blockDim * blockDim]byte
	bestScore := -1

	for i := 0; i < len(px); i++ {
		for j := 0; j < len(px); j++ {
			if i == j {
				continue
			}
			c0, c1 := px[i], px[j]
			palette := interiorColors(c0, c1)
			score := 0
			var idx [blockDim * blockDim]byte
			for p, sample := range px {
				bestK, bestD := 0, 256
				for k, cand := range palette {
					d := int(color.TableDistance(sample, cand))
					if d < bestD {
						bestD, bestK = d, k
					}
				}
				idx[p] = byte(bestK)
				score += bestD
			}
			if bestScore == -1 || score < bestScore {
				bestScore = score
				bestC0, bestC1 = c0, c1
				bestIdx = idx
			}
		}
	}
	return Block{C0: bestC0, C1: bestC1, Indices: bestIdx}
}

// interiorColors returns {c0, c1, c2, c3} per spec §4.6.3's 3-interior / 2-
// interior mode selection.
func interiorColors(c0, c1 uint16) [4]uint16 {
	rgb0, rgb1 := color.FromXRGB1555(c0), color.FromXRGB1555(c1)
	if c0 > c1 {
		c2 := color.ToXRGB1555(lerp(rgb0, rgb1, 2, 1, 3))
		c3 := color.ToXRGB1555(lerp(rgb0, rgb1, 1, 2, 3))
		return [4]uint16{c0, c1, c2, c3}
	}
	c2 := color.ToXRGB1555(lerp(rgb0, rgb1, 1, 1, 2))
	return [4]uint16{c0, c1, c2, 0}
}

func lerp(a, b color.RGB888, wa, wb, denom int) color.RGB888 {
	return color.RGB888{
		R: lerp8(a.R, b.R, wa, wb, denom),
		G: lerp8(a.G, b.G, wa, wb, denom),
		B: lerp8(a.B, b.B, wa, wb, denom),
	}
}

func lerp8(a, b byte, wa, wb, denom int) byte {
	v := (int(a)*wa + int(b)*wb + denom/2) / denom
	if v > 255 {
		v = 255
	}
	return byte(v)
}

// Decode reconstructs a truecolor Frame from blocks laid out the way
// Encode produced them (blockW x blockH blocks, raster order).
func Decode(blocks []Block, width, height int) (*image.Frame, error) {
	if width%blockDim != 0 || height%blockDim != 0 {
		return nil, fmt.Errorf("dxtg: Decode: frame %dx%d is not a multiple of %d", width, height, blockDim)
	}
	blocksPerRow := width / blockDim
	wantBlocks := blocksPerRow * (height / blockDim)
	if len(blocks) != wantBlocks {
		return nil, fmt.Errorf("dxtg: Decode: got %d blocks, want %d", len(blocks), wantBlocks)
	}

	fr := image.New(color.XRGB1555, width, height)
	for bi, b := range blocks {
		bx := (bi % blocksPerRow) * blockDim
		by := (bi / blocksPerRow) * blockDim
		palette := interiorColors(b.C0, b.C1)
		for p, idx := range b.Indices {
			x, y := bx+p%blockDim, by+p/blockDim
			if err := fr.Pixels.SetRGB888At(y*width+x, color.FromXRGB1555(palette[idx])); err != nil {
				return nil, fmt.Errorf("dxtg: Decode: %w", err)
			}
		}
	}
	return fr, nil
}

// Marshal lays out blocks on disk de-interleaved (spec §4.6.3): every
// block's endpoint pair first, in block-raster order, followed by every
// block's 32-bit index stream.
func Marshal(blocks []Block) []byte {
	out := make([]byte, 0, len(blocks)*8)
	for _, b := range blocks {
		out = binary.LittleEndian.AppendUint16(out, b.C0)
		out = binary.LittleEndian.AppendUint16(out, b.C1)
	}
	for _, b := range blocks {
		var word uint32
		for p, idx := range b.Indices {
			word |= uint32(idx&0x3) << (uint(p) * 2)
		}
		out = binary.LittleEndian.AppendUint32(out, word)
	}
	return out
}

// Unmarshal is the inverse of Marshal, given the number of blocks the
// caller expects (derived from the frame's dimensions).
func Unmarshal(data []byte, nrBlocks int) ([]Block, error) {
	want := nrBlocks*4 + nrBlocks*4
	if len(data) != want {
		return nil, fmt.Errorf("dxtg: Unmarshal: got %d bytes, want %d for %d blocks", len(data), want, nrBlocks)
	}
	blocks := make([]Block, nrBlocks)
	for i := range blocks {
		blocks[i].C0 = binary.LittleEndian.Uint16(data[i*4:])
		blocks[i].C1 = binary.LittleEndian.Uint16(data[i*4+2:])
	}
	base := nrBlocks * 4
	for i := range blocks {
		word := binary.LittleEndian.Uint32(data[base+i*4:])
		for p := range blocks[i].Indices {
			blocks[i].Indices[p] = byte(word>>(uint(p)*2)) & 0x3
		}
	}
	return blocks, nil
}
