package image

import (
	"fmt"

	"github.com/retrogba/v2h/pixbuf"
)

// reorderToWidth implements the forward to-width(W) permutation of spec
// §4.2: every column-group of width w is laid out, top-to-bottom, before
// the next group. It operates on a flat, row-major pixel slice of the
// given width/height and returns a new slice of identical length.
func reorderToWidth(px []uint32, width, height, w int) []uint32 {
	out := make([]uint32, len(px))
	groups := width / w
	i := 0
	for g := 0; g < groups; g++ {
		for y := 0; y < height; y++ {
			for x := 0; x < w; x++ {
				out[i] = px[y*width+g*w+x]
				i++
			}
		}
	}
	return out
}

// reorderFromWidth is the inverse of reorderToWidth.
func reorderFromWidth(px []uint32, width, height, w int) []uint32 {
	out := make([]uint32, len(px))
	groups := width / w
	i := 0
	for g := 0; g < groups; g++ {
		for y := 0; y < height; y++ {
			for x := 0; x < w; x++ {
				out[y*width+g*w+x] = px[i]
				i++
			}
		}
	}
	return out
}

// reorderToTiles implements the forward to-tiles(Tw,Th) permutation of spec
// §4.2: horizontal strips of height Th, each split into Tw-wide blocks,
// each block traversed Tw columns per scanline for Th scanlines.
func reorderToTiles(px []uint32, width, height, tw, th int) []uint32 {
	out := make([]uint32, len(px))
	i := 0
	for y0 := 0; y0 < height; y0 += th {
		for x0 := 0; x0 < width; x0 += tw {
			for ty := 0; ty < th; ty++ {
				for tx := 0; tx < tw; tx++ {
					out[i] = px[(y0+ty)*width+x0+tx]
					i++
				}
			}
		}
	}
	return out
}

// reorderFromTiles is the inverse of reorderToTiles.
func reorderFromTiles(px []uint32, width, height, tw, th int) []uint32 {
	out := make([]uint32, len(px))
	i := 0
	for y0 := 0; y0 < height; y0 += th {
		for x0 := 0; x0 < width; x0 += tw {
			for ty := 0; ty < th; ty++ {
				for tx := 0; tx < tw; tx++ {
					out[(y0+ty)*width+x0+tx] = px[i]
					i++
				}
			}
		}
	}
	return out
}

// ToWidth reorders fr's pixel data so that every W-wide column group is
// laid out top-to-bottom before the next group. Requires
// Width%W==0 && Height%8==0.
func ToWidth(fr *Frame, w int) (*Frame, error) {
	if err := RequireBitmap(fr); err != nil {
		return nil, err
	}
	if fr.Width%w != 0 {
		return nil, fmt.Errorf("image: ToWidth: width %d not divisible by %d", fr.Width, w)
	}
	if fr.Height%8 != 0 {
		return nil, fmt.Errorf("image: ToWidth: height %d not divisible by 8", fr.Height)
	}
	out := fr.Pixels.Clone()
	out.Pixels = reorderToWidth(fr.Pixels.Pixels, fr.Width, fr.Height, w)
	return withPixels(fr, out), nil
}

// ToWidthInverse undoes ToWidth.
func ToWidthInverse(fr *Frame, w int) (*Frame, error) {
	if fr.Width%w != 0 {
		return nil, fmt.Errorf("image: ToWidthInverse: width %d not divisible by %d", fr.Width, w)
	}
	out := fr.Pixels.Clone()
	out.Pixels = reorderFromWidth(fr.Pixels.Pixels, fr.Width, fr.Height, w)
	return withPixels(fr, out), nil
}

// ToTiles hierarchically reorders fr's pixel data into Tw×Th tiles,
// default 8×8, marking the result as Tiles data.
func ToTiles(fr *Frame, tw, th int) (*Frame, error) {
	if err := RequireBitmap(fr); err != nil {
		return nil, err
	}
	if fr.Width%tw != 0 || fr.Height%th != 0 {
		return nil, fmt.Errorf("image: ToTiles: %dx%d image not divisible by %dx%d tiles", fr.Width, fr.Height, tw, th)
	}
	out := fr.Pixels.Clone()
	out.Pixels = reorderToTiles(fr.Pixels.Pixels, fr.Width, fr.Height, tw, th)
	res := withPixels(fr, out)
	res.DataType |= Tiles
	return res, nil
}

// ToTilesInverse undoes ToTiles.
func ToTilesInverse(fr *Frame, tw, th int) (*Frame, error) {
	if fr.Width%tw != 0 || fr.Height%th != 0 {
		return nil, fmt.Errorf("image: ToTilesInverse: %dx%d image not divisible by %dx%d tiles", fr.Width, fr.Height, tw, th)
	}
	out := fr.Pixels.Clone()
	out.Pixels = reorderFromTiles(fr.Pixels.Pixels, fr.Width, fr.Height, tw, th)
	res := withPixels(fr, out)
	res.DataType &^= Tiles
	return res, nil
}

// ToSprites reorders fr into Sw×Sh sprites, each stored as concatenated
// 8×8 tiles in "1-D mapping" order: to-width(Sw) followed by to-tiles(8,8).
// Requires Sw, Sh, fr.Width and fr.Height all divisible by 8, and
// fr.Width%Sw==0, fr.Height%Sh==0.
func ToSprites(fr *Frame, sw, sh int) (*Frame, error) {
	if err := RequireBitmap(fr); err != nil {
		return nil, err
	}
	if sw%8 != 0 || sh%8 != 0 {
		return nil, fmt.Errorf("image: ToSprites: sprite size %dx%d must be a multiple of 8", sw, sh)
	}
	if fr.Width%sw != 0 || fr.Height%sh != 0 {
		return nil, fmt.Errorf("image: ToSprites: %dx%d image not divisible by %dx%d sprites", fr.Width, fr.Height, sw, sh)
	}

	reshapedHeight := fr.Height * (fr.Width / sw)
	step1 := reorderToWidth(fr.Pixels.Pixels, fr.Width, fr.Height, sw)
	step2 := reorderToTiles(step1, sw, reshapedHeight, 8, 8)

	out := fr.Pixels.Clone()
	out.Pixels = step2
	res := withPixels(fr, out)
	res.DataType |= Sprites | Tiles
	return res, nil
}

// ToSpritesInverse undoes ToSprites.
func ToSpritesInverse(fr *Frame, sw, sh int) (*Frame, error) {
	if sw%8 != 0 || sh%8 != 0 {
		return nil, fmt.Errorf("image: ToSpritesInverse: sprite size %dx%d must be a multiple of 8", sw, sh)
	}
	if fr.Width%sw != 0 || fr.Height%sh != 0 {
		return nil, fmt.Errorf("image: ToSpritesInverse: %dx%d image not divisible by %dx%d sprites", fr.Width, fr.Height, sw, sh)
	}

	reshapedHeight := fr.Height * (fr.Width / sw)
	step1 := reorderFromTiles(fr.Pixels.Pixels, sw, reshapedHeight, 8, 8)
	step2 := reorderFromWidth(step1, fr.Width, fr.Height, sw)

	out := fr.Pixels.Clone()
	out.Pixels = step2
	res := withPixels(fr, out)
	res.DataType &^= Sprites | Tiles
	return res, nil
}

// withPixels returns a shallow copy of fr with its pixel buffer replaced.
func withPixels(fr *Frame, px *pixbuf.Buffer) *Frame {
	out := *fr
	out.Pixels = px
	return &out
}
