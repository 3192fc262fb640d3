// Package image implements the V2H image frame: a pixel buffer plus an
// optional color map, its declared size, and the data-type flags (bitmap /
// sprites / tiles / compressed) the pipeline's Convert steps validate
// against before acting. It also implements the tile/sprite geometry
// transforms and the unique-tile map builder (spec §4.2).
package image

import (
	"fmt"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/pixbuf"
)

// DataType is a bitmask of the shapes a Frame's pixel data may carry. A
// bitmap frame may additionally be any combination of the others.
type DataType uint8

const (
	Bitmap DataType = 1 << iota
	Sprites
	Tiles
	Compressed
)

func (d DataType) Has(flag DataType) bool { return d&flag != 0 }

// MaxColorMapEntries is the largest a Frame's ColorMap may be.
const MaxColorMapEntries = 256

// Frame is one image in a pipeline: a pixel buffer, an optional color map,
// its declared width/height, data-type flags, and bookkeeping the pipeline
// fills in as it runs (spec §3, §4.7).
type Frame struct {
	Pixels   *pixbuf.Buffer
	ColorMap []color.RGB888 // len <= MaxColorMapEntries; nil for truecolor frames.

	Width, Height int
	DataType      DataType

	// SourceFile and SourceIndex are informational only: the originating
	// file name and its position in an input sequence, for ordering and
	// diagnostics.
	SourceFile  string
	SourceIndex int

	// MaxMemoryNeeded is set by the pipeline engine (spec §4.7) as it runs
	// this frame through each step; it is the largest intermediate chunk
	// size plus 4 bytes seen across all non-input steps.
	MaxMemoryNeeded int

	// PendingHeader is the 4-byte processing header (spec §4.7) the
	// pipeline engine computed for this frame's most recent step, for
	// the container emitter to prepend when it writes the chunk out.
	PendingHeader [4]byte
}

// New allocates a Frame of the given format and size. DataType defaults to
// Bitmap.
func New(f color.Format, width, height int) *Frame {
	return &Frame{
		Pixels:   pixbuf.New(f, width*height),
		Width:    width,
		Height:   height,
		DataType: Bitmap,
	}
}

// RequireBitmap returns an error unless fr is a plain bitmap (not already
// tiled, sprited, or compressed). Convert steps that operate on raw
// rectangular pixel data call this up front per spec §4.7.
func RequireBitmap(fr *Frame) error {
	if fr.DataType != Bitmap {
		return fmt.Errorf("image: requires a bitmap input, got data type %#b", fr.DataType)
	}
	return nil
}

// RequirePaletted returns an error unless fr's pixel buffer is in a
// paletted format.
func RequirePaletted(fr *Frame) error {
	if !color.IsPaletted(fr.Pixels.Format) {
		return fmt.Errorf("image: requires a paletted input, got format %v", fr.Pixels.Format)
	}
	return nil
}

// RequireColorMap returns an error unless fr carries a non-empty color map.
func RequireColorMap(fr *Frame) error {
	if len(fr.ColorMap) == 0 {
		return fmt.Errorf("image: requires a color map, frame has none")
	}
	return nil
}

// RGB888At resolves the truecolor sample of pixel i, following the color
// map for paletted frames and reading directly for truecolor frames.
func (fr *Frame) RGB888At(i int) (color.RGB888, error) {
	if color.IsPaletted(fr.Pixels.Format) {
		idx := fr.Pixels.Pixels[i]
		if int(idx) >= len(fr.ColorMap) {
			return color.RGB888{}, fmt.Errorf("image: RGB888At: index %d out of range for a %d-entry color map", idx, len(fr.ColorMap))
		}
		return fr.ColorMap[idx], nil
	}
	return fr.Pixels.RGB888At(i)
}

// AddColorMapEntry returns an error if adding one more color map entry to
// fr would exceed MaxColorMapEntries.
func AddColorMapEntry(fr *Frame) error {
	if len(fr.ColorMap) >= MaxColorMapEntries {
		return fmt.Errorf("image: color map already has %d entries, cannot add more", MaxColorMapEntries)
	}
	return nil
}
