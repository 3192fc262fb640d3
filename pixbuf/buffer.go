// Package pixbuf implements the typed pixel buffer that every image/Frame
// carries: a contiguous, row-major sequence of logical pixels tagged with
// its color.Format, plus the raw-byte and cross-format views the pipeline
// steps need.
package pixbuf

import (
	"fmt"

	"github.com/retrogba/v2h/color"
)

// Buffer is a contiguous, row-major pixel sequence tagged with its
// color.Format. One element of Pixels holds one logical pixel:
//   - Paletted1/2/4/8: the palette index, one full byte per pixel in
//     memory (sub-byte packing happens only at emit time, per spec §3).
//   - XRGB1555/RGB565: the packed 16-bit color value.
//   - XRGB8888: packed 0x00RRGGBB.
type Buffer struct {
	Format color.Format
	Pixels []uint32
}

// New allocates a Buffer of the given format sized for n pixels.
func New(f color.Format, n int) *Buffer {
	return &Buffer{Format: f, Pixels: make([]uint32, n)}
}

// Len returns the number of logical pixels in b.
func (b *Buffer) Len() int { return len(b.Pixels) }

// Clone returns a deep copy of b.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{Format: b.Format, Pixels: make([]uint32, len(b.Pixels))}
	copy(out.Pixels, b.Pixels)
	return out
}

// RGB888At returns the truecolor sample at index i, converting from the
// buffer's native format. It is an error to call this on a paletted buffer;
// callers must resolve palette indices against the owning image's color
// map first.
func (b *Buffer) RGB888At(i int) (color.RGB888, error) {
	switch b.Format {
	case color.XRGB8888:
		v := b.Pixels[i]
		return color.RGB888{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	case color.XRGB1555:
		return color.FromXRGB1555(uint16(b.Pixels[i])), nil
	case color.RGB565:
		return color.FromRGB565(uint16(b.Pixels[i])), nil
	default:
		return color.RGB888{}, fmt.Errorf("pixbuf: RGB888At: format %v is not a truecolor format", b.Format)
	}
}

// SetRGB888At stores c at index i, converting to the buffer's native
// format.
func (b *Buffer) SetRGB888At(i int, c color.RGB888) error {
	switch b.Format {
	case color.XRGB8888:
		b.Pixels[i] = uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
	case color.XRGB1555:
		b.Pixels[i] = uint32(color.ToXRGB1555(c))
	case color.RGB565:
		b.Pixels[i] = uint32(color.ToRGB565(c))
	default:
		return fmt.Errorf("pixbuf: SetRGB888At: format %v is not a truecolor format", b.Format)
	}
	return nil
}

// Bytes packs the buffer to its on-wire byte representation: sub-byte
// paletted formats are packed LSB-first within each byte (the first pixel
// in the lowest bits), 8-bit paletted is one byte per pixel, and
// 16/32-bit formats are little-endian.
func (b *Buffer) Bytes() ([]byte, error) {
	switch b.Format {
	case color.Paletted1, color.Paletted2, color.Paletted4:
		bpp := color.BitsPerPixel(b.Format)
		perByte := 8 / bpp
		out := make([]byte, (len(b.Pixels)+perByte-1)/perByte)
		for i, v := range b.Pixels {
			byteIdx := i / perByte
			shift := uint(bpp * (i % perByte))
			out[byteIdx] |= byte(v&((1<<bpp)-1)) << shift
		}
		return out, nil
	case color.Paletted8:
		out := make([]byte, len(b.Pixels))
		for i, v := range b.Pixels {
			out[i] = byte(v)
		}
		return out, nil
	case color.XRGB1555, color.RGB565:
		out := make([]byte, len(b.Pixels)*2)
		for i, v := range b.Pixels {
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		return out, nil
	case color.XRGB8888:
		out := make([]byte, len(b.Pixels)*4)
		for i, v := range b.Pixels {
			out[i*4] = byte(v)
			out[i*4+1] = byte(v >> 8)
			out[i*4+2] = byte(v >> 16)
			out[i*4+3] = byte(v >> 24)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("pixbuf: Bytes: unsupported format %v", b.Format)
	}
}
