// Package dxtv implements the hierarchical, motion-compensated inter-frame
// block codec of spec §4.6.4: 16×16 blocks that may recursively split into
// 8×8 then 4×4 children in Z-order, each leaf either an intra DXT block or
// a motion-compensation reference into the previous or current frame.
//
// Resolved ambiguities (recorded here and in DESIGN.md, not stated plainly
// in spec text):
//   - The leaf DXT block's index-word counts are given explicitly per
//     block size (4×4→1 word, 8×8→4, 16×16→16); at 16 bits per word those
//     figures only work out to 1 bit per pixel, not the 2-bit/4-colour
//     index §4.6.3 uses. This package follows the explicit word counts:
//     a DXTV leaf DXT block stores a 1-bit-per-pixel index choosing
//     between c0 and c1 only, with no interior-colour blending.
//   - Split-flag bits and leaf payload words are grouped into two
//     contiguous regions (all split flags, then all payload), mirroring
//     codec/dxtg's endpoint/index de-interleaving, rather than
//     interleaved inline with the tree walk.
package dxtv

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// Frame header flags (spec §4.6.4).
const (
	FrameKeep     = 1 << 0
	FrameIsPFrame = 1 << 1
)

// Header is DXTV's 4-byte frame header: flags:u8, uncompressed_size:u24.
type Header struct {
	Flags            byte
	UncompressedSize uint32 // 24-bit
}

func (h Header) bytes() [4]byte {
	return [4]byte{h.Flags, byte(h.UncompressedSize), byte(h.UncompressedSize >> 8), byte(h.UncompressedSize >> 16)}
}

func parseHeader(data []byte) (Header, error) {
	if len(data) < 4 {
		return Header{}, fmt.Errorf("dxtv: truncated frame header")
	}
	size := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16
	return Header{Flags: data[0], UncompressedSize: size}, nil
}

// refSource selects which decoded buffer a motion-compensation leaf reads
// from.
type refSource bool

const (
	fromCurrent refSource = false
	fromPrev    refSource = true
)

type leafKind int

const (
	leafDXT leafKind = iota
	leafRef
)

type leaf struct {
	kind leafKind

	// leafDXT:
	c0, c1  uint16
	indices []bool // raster order, len == size*size

	// leafRef:
	source refSource
	offX   int // [-15, 15]
	offY   int
}

// Encoder holds the tunables spec §4.6.4 leaves to the caller: the
// reconstruction-error threshold below which a candidate is accepted, and
// the key-frame cadence that forces FRAME_IS_PFRAME off and skips
// previous-frame motion search entirely.
type Encoder struct {
	ErrorThreshold float64
	KeyFrame       bool
}

// Encode produces one DXTV frame for cur, optionally referencing prev
// (ignored, may be nil, when e.KeyFrame is set).
func (e Encoder) Encode(cur, prev *image.Frame) ([]byte, error) {
	if err := image.RequireBitmap(cur); err != nil {
		return nil, fmt.Errorf("dxtv: Encode: %w", err)
	}
	w, h := cur.Width, cur.Height
	if w%16 != 0 || h%16 != 0 {
		return nil, fmt.Errorf("dxtv: Encode: frame %dx%d is not a multiple of 16", w, h)
	}

	dec := newDecodedBuffer(w, h)
	var splitBuf, payloadBuf bytes.Buffer
	sw := bitio.NewWriter(&splitBuf)

	for by := 0; by < h; by += 16 {
		for bx := 0; bx < w; bx += 16 {
			if err := e.encodeNode(cur, prev, dec, bx, by, 16, sw, &payloadBuf); err != nil {
				return nil, err
			}
		}
	}
	sw.Close()

	flags := byte(0)
	if !e.KeyFrame {
		flags |= FrameIsPFrame
	}
	hdr := Header{Flags: flags, UncompressedSize: uint32(w * h * 2)}

	out := hdr.bytes()
	body := append(out[:], splitBuf.Bytes()...)
	body = append(body, payloadBuf.Bytes()...)
	for len(body)%4 != 0 {
		body = append(body, 0)
	}
	return body, nil
}

// decodedBuffer is the in-progress current-frame reconstruction the
// encoder/decoder consult for in-frame motion references; it must only
// ever be read at positions already written (spec §4.6.4 invariant).
type decodedBuffer struct {
	w, h   int
	pixels []color.RGB888
}

func newDecodedBuffer(w, h int) *decodedBuffer {
	return &decodedBuffer{w: w, h: h, pixels: make([]color.RGB888, w*h)}
}

func (d *decodedBuffer) at(x, y int) color.RGB888 { return d.pixels[y*d.w+x] }
func (d *decodedBuffer) set(x, y int, c color.RGB888) {
	d.pixels[y*d.w+x] = c
}

// inBounds reports whether a size×size block at (x,y) fits entirely
// within a w×h frame.
func inBounds(x, y, size, w, h int) bool {
	return x >= 0 && y >= 0 && x+size <= w && y+size <= h
}

// alreadyDecoded reports whether every pixel of the size×size block with
// top-left (x,y) is decoded before the block starting at (bx,by), so
// referencing it from the block currently being written never reads
// undecoded pixels. Blocks are decoded 16×16 at a time in raster order and
// in Z-order inside each, so the block's bottom-right pixel is its last.
func alreadyDecoded(x, y, size, bx, by int) bool {
	lx, ly := x+size-1, y+size-1
	if ly/16 != by/16 {
		return ly/16 < by/16
	}
	if lx/16 != bx/16 {
		return lx/16 < bx/16
	}
	// Z-order position inside the 16×16 block: x bits in the even
	// positions, y bits in the odd ones.
	var last, first int
	for b := 0; b < 4; b++ {
		last |= (lx>>b&1)<<(2*b) | (ly>>b&1)<<(2*b+1)
		first |= (bx>>b&1)<<(2*b) | (by>>b&1)<<(2*b+1)
	}
	return last < first
}

func blockError(cur *image.Frame, bx, by, size int, sample func(dx, dy int) color.RGB888) (float64, error) {
	var total float64
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			want, err := cur.RGB888At((by+dy)*cur.Width + bx + dx)
			if err != nil {
				return 0, err
			}
			total += color.SquaredDistance(want, sample(dx, dy))
		}
	}
	return total / float64(size*size), nil
}

func (e Encoder) encodeNode(cur, prev *image.Frame, dec *decodedBuffer, bx, by, size int, sw *bitio.Writer, payload *bytes.Buffer) error {
	best, bestErr, err := e.bestLeaf(cur, prev, dec, bx, by, size)
	if err != nil {
		return err
	}

	if size > 4 && bestErr > e.ErrorThreshold {
		sw.WriteBool(true)
		half := size / 2
		// Z-order: upper-left, upper-right, lower-left, lower-right.
		children := [4][2]int{{bx, by}, {bx + half, by}, {bx, by + half}, {bx + half, by + half}}
		for _, c := range children {
			if err := e.encodeNode(cur, prev, dec, c[0], c[1], half, sw, payload); err != nil {
				return err
			}
		}
		return nil
	}

	if size == 4 && bestErr > e.ErrorThreshold && best.kind != leafDXT {
		// No candidate meets the threshold at the minimum block size:
		// spec §4.6.4 forces the intra DXT encoding rather than settling
		// for an out-of-tolerance motion reference.
		intra, _, err := intraLeaf(cur, bx, by, size)
		if err != nil {
			return err
		}
		best = intra
	}

	sw.WriteBool(false)
	writeLeafPayload(payload, best)
	applyLeaf(dec, prev, bx, by, size, best)
	return nil
}

// bestLeaf evaluates the three candidates of spec §4.6.4 and returns the
// cheapest one together with its reconstruction error.
func (e Encoder) bestLeaf(cur, prev *image.Frame, dec *decodedBuffer, bx, by, size int) (leaf, float64, error) {
	var best leaf
	bestErr := -1.0

	consider := func(cand leaf, score float64) {
		if bestErr < 0 || score < bestErr {
			best, bestErr = cand, score
		}
	}

	if !e.KeyFrame && prev != nil {
		if l, err := searchMotion(cur, fromPrev, bx, by, size, func(x, y int) (color.RGB888, bool) {
			if !inBounds(x, y, 1, prev.Width, prev.Height) {
				return color.RGB888{}, false
			}
			c, err := prev.RGB888At(y*prev.Width + x)
			return c, err == nil
		}); err == nil {
			score, err := blockError(cur, bx, by, size, func(dx, dy int) color.RGB888 {
				c, _ := prev.RGB888At((by+l.offY+dy)*prev.Width + bx + l.offX + dx)
				return c
			})
			if err == nil {
				consider(l, score)
			}
		}
	}

	if l, err := searchMotion(cur, fromCurrent, bx, by, size, func(x, y int) (color.RGB888, bool) {
		if !inBounds(x, y, 1, dec.w, dec.h) || !alreadyDecoded(x, y, 1, bx, by) {
			return color.RGB888{}, false
		}
		return dec.at(x, y), true
	}); err == nil {
		score, serr := blockError(cur, bx, by, size, func(dx, dy int) color.RGB888 {
			return dec.at(bx+l.offX+dx, by+l.offY+dy)
		})
		if serr == nil {
			consider(l, score)
		}
	}

	intra, _, err := intraLeaf(cur, bx, by, size)
	if err != nil {
		return leaf{}, 0, err
	}
	score, err := blockError(cur, bx, by, size, func(dx, dy int) color.RGB888 {
		c := intra.c0
		if intra.indices[dy*size+dx] {
			c = intra.c1
		}
		return color.FromXRGB1555(c)
	})
	if err != nil {
		return leaf{}, 0, err
	}
	consider(intra, score)

	return best, bestErr, nil
}

// searchMotion evaluates every offset in [-15,15]^2 and returns the one
// minimizing blockError, using sample(x,y) to fetch a candidate source
// pixel (ok=false if out of bounds / not yet decoded).
func searchMotion(cur *image.Frame, source refSource, bx, by, size int, sample func(x, y int) (color.RGB888, bool)) (leaf, error) {
	bestErr := -1.0
	var best leaf
	found := false
	for offY := -15; offY <= 15; offY++ {
		for offX := -15; offX <= 15; offX++ {
			ok := true
			var total float64
			for dy := 0; dy < size && ok; dy++ {
				for dx := 0; dx < size && ok; dx++ {
					c, good := sample(bx+offX+dx, by+offY+dy)
					if !good {
						ok = false
						break
					}
					want, err := cur.RGB888At((by+dy)*cur.Width + bx + dx)
					if err != nil {
						ok = false
						break
					}
					total += color.SquaredDistance(want, c)
				}
			}
			if !ok {
				continue
			}
			score := total / float64(size*size)
			if !found || score < bestErr {
				found, bestErr = true, score
				best = leaf{kind: leafRef, source: source, offX: offX, offY: offY}
			}
		}
	}
	if !found {
		return leaf{}, fmt.Errorf("dxtv: no valid motion candidate")
	}
	return best, nil
}

func intraLeaf(cur *image.Frame, bx, by, size int) (leaf, float64, error) {
	px := make([]uint16, size*size)
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			c, err := cur.RGB888At((by+dy)*cur.Width + bx + dx)
			if err != nil {
				return leaf{}, 0, err
			}
			px[dy*size+dx] = color.ToXRGB1555(c)
		}
	}

	var bestC0, bestC1 uint16
	bestScore := -1.0
	var bestIdx []bool
	for i := range px {
		for j := range px {
			if i == j {
				continue
			}
			c0, c1 := px[i], px[j]
			score := 0.0
			idx := make([]bool, len(px))
			for p, sample := range px {
				d0 := float64(color.TableDistance(sample, c0))
				d1 := float64(color.TableDistance(sample, c1))
				if d1 < d0 {
					idx[p] = true
					score += d1
				} else {
					score += d0
				}
			}
			score /= float64(len(px))
			if bestScore < 0 || score < bestScore {
				bestScore, bestC0, bestC1, bestIdx = score, c0, c1, idx
			}
		}
	}
	return leaf{kind: leafDXT, c0: bestC0, c1: bestC1, indices: bestIdx}, bestScore, nil
}

func writeLeafPayload(payload *bytes.Buffer, l leaf) {
	switch l.kind {
	case leafRef:
		word := uint16(1) << 15
		if l.source == fromPrev {
			word |= 1 << 14
		}
		word |= uint16(l.offY+15) << 9
		word |= uint16(l.offX+15) << 4
		payload.WriteByte(byte(word))
		payload.WriteByte(byte(word >> 8))
	case leafDXT:
		payload.WriteByte(byte(l.c0))
		payload.WriteByte(byte(l.c0 >> 8))
		payload.WriteByte(byte(l.c1))
		payload.WriteByte(byte(l.c1 >> 8))
		writeIndexWords(payload, l.indices)
	}
}

// writeIndexWords packs one bit per pixel, MSB first within each 16-bit
// little-endian word, raster order.
func writeIndexWords(payload *bytes.Buffer, indices []bool) {
	for i := 0; i < len(indices); i += 16 {
		var word uint16
		for b := 0; b < 16 && i+b < len(indices); b++ {
			if indices[i+b] {
				word |= 1 << uint(15-b)
			}
		}
		payload.WriteByte(byte(word))
		payload.WriteByte(byte(word >> 8))
	}
}

func applyLeaf(dec *decodedBuffer, prev *image.Frame, bx, by, size int, l leaf) {
	switch l.kind {
	case leafDXT:
		for p := 0; p < size*size; p++ {
			dx, dy := p%size, p/size
			c := l.c0
			if l.indices[p] {
				c = l.c1
			}
			dec.set(bx+dx, by+dy, color.FromXRGB1555(c))
		}
	case leafRef:
		for dy := 0; dy < size; dy++ {
			for dx := 0; dx < size; dx++ {
				var c color.RGB888
				if l.source == fromPrev && prev != nil {
					c, _ = prev.RGB888At((by+l.offY+dy)*prev.Width + bx + l.offX + dx)
				} else {
					c = dec.at(bx+l.offX+dx, by+l.offY+dy)
				}
				dec.set(bx+dx, by+dy, c)
			}
		}
	}
}
