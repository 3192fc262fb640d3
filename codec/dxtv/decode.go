package dxtv

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

// Decode mirrors Encode: consume the 4-byte header; if FRAME_KEEP, return
// prev untouched; otherwise walk the 16×16 grid in raster order, pulling
// split bits from the split-flag region and leaf payloads from the
// payload region (see package doc for why those are two separate
// contiguous regions rather than interleaved).
func Decode(data []byte, prev *image.Frame, width, height int) (*image.Frame, error) {
	hdr, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("dxtv: Decode: %w", err)
	}
	if hdr.Flags&FrameKeep != 0 {
		if prev == nil {
			return nil, fmt.Errorf("dxtv: Decode: FRAME_KEEP with no previous frame")
		}
		return prev, nil
	}
	if width%16 != 0 || height%16 != 0 {
		return nil, fmt.Errorf("dxtv: Decode: frame %dx%d is not a multiple of 16", width, height)
	}

	body := data[4:]
	// The split-flag region's exact byte length isn't stored (spec: "the
	// number of split bits is implicit in the tree structure"); decode it
	// by walking the tree twice: first over a bit reader counting
	// consumption to locate the payload boundary, then for real.
	sr := bitio.NewReader(bytes.NewReader(body))

	dec := newDecodedBuffer(width, height)
	splitBitsUsed := 0
	var walk func(bx, by, size int) error

	// First pass: walk the tree using only the split-flag reader to learn
	// the total split-bit count, without touching payload bytes.
	walk = func(bx, by, size int) error {
		split, err := sr.ReadBool()
		if err != nil {
			return fmt.Errorf("dxtv: Decode: reading split bit at (%d,%d,%d): %w", bx, by, size, err)
		}
		splitBitsUsed++
		if split {
			if size <= 4 {
				return fmt.Errorf("dxtv: Decode: split bit set below minimum block size at (%d,%d)", bx, by)
			}
			half := size / 2
			children := [4][2]int{{bx, by}, {bx + half, by}, {bx, by + half}, {bx + half, by + half}}
			for _, c := range children {
				if err := walk(c[0], c[1], half); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for by := 0; by < height; by += 16 {
		for bx := 0; bx < width; bx += 16 {
			if err := walk(bx, by, 16); err != nil {
				return nil, err
			}
		}
	}

	splitBytes := (splitBitsUsed + 7) / 8
	if splitBytes > len(body) {
		return nil, fmt.Errorf("dxtv: Decode: split-flag region overruns frame body")
	}
	payload := bytes.NewReader(body[splitBytes:])
	sr2 := bitio.NewReader(bytes.NewReader(body))

	var walk2 func(bx, by, size int) error
	walk2 = func(bx, by, size int) error {
		split, err := sr2.ReadBool()
		if err != nil {
			return fmt.Errorf("dxtv: Decode: %w", err)
		}
		if split {
			half := size / 2
			children := [4][2]int{{bx, by}, {bx + half, by}, {bx, by + half}, {bx + half, by + half}}
			for _, c := range children {
				if err := walk2(c[0], c[1], half); err != nil {
					return err
				}
			}
			return nil
		}
		return decodeLeaf(payload, dec, prev, bx, by, size)
	}
	for by := 0; by < height; by += 16 {
		for bx := 0; bx < width; bx += 16 {
			if err := walk2(bx, by, 16); err != nil {
				return nil, err
			}
		}
	}

	fr := image.New(color.XRGB1555, width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if err := fr.Pixels.SetRGB888At(y*width+x, dec.at(x, y)); err != nil {
				return nil, err
			}
		}
	}
	return fr, nil
}

func decodeLeaf(payload *bytes.Reader, dec *decodedBuffer, prev *image.Frame, bx, by, size int) error {
	b0, err := payload.ReadByte()
	if err != nil {
		return fmt.Errorf("dxtv: decodeLeaf: %w", err)
	}
	b1, err := payload.ReadByte()
	if err != nil {
		return fmt.Errorf("dxtv: decodeLeaf: %w", err)
	}
	word := uint16(b0) | uint16(b1)<<8

	if word&(1<<15) != 0 {
		fromP := word&(1<<14) != 0
		offY := int((word>>9)&0x1f) - 15
		offX := int((word>>4)&0x1f) - 15
		l := leaf{kind: leafRef, offX: offX, offY: offY}
		if fromP {
			l.source = fromPrev
		} else {
			l.source = fromCurrent
		}
		applyLeaf(dec, prev, bx, by, size, l)
		return nil
	}

	c2, err := payload.ReadByte()
	if err != nil {
		return fmt.Errorf("dxtv: decodeLeaf: %w", err)
	}
	c3, err := payload.ReadByte()
	if err != nil {
		return fmt.Errorf("dxtv: decodeLeaf: %w", err)
	}
	c1 := uint16(c2) | uint16(c3)<<8

	indices := make([]bool, size*size)
	for i := 0; i < len(indices); i += 16 {
		wb0, err := payload.ReadByte()
		if err != nil {
			return fmt.Errorf("dxtv: decodeLeaf: %w", err)
		}
		wb1, err := payload.ReadByte()
		if err != nil {
			return fmt.Errorf("dxtv: decodeLeaf: %w", err)
		}
		iw := uint16(wb0) | uint16(wb1)<<8
		for b := 0; b < 16 && i+b < len(indices); b++ {
			indices[i+b] = iw&(1<<uint(15-b)) != 0
		}
	}

	applyLeaf(dec, prev, bx, by, size, leaf{kind: leafDXT, c0: word, c1: c1, indices: indices})
	return nil
}
