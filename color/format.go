// Package color implements the pixel and color-map formats the V2H pipeline
// operates on, together with the deterministic, bit-exact conversions and
// distance metrics that the quantizers and block codecs (quant, codec/dxtg,
// codec/dxtv) depend on.
//
// Every conversion in this package is a pure function: no hidden state, no
// randomness, identical output for identical input across runs. That
// property is load-bearing for the pipeline's scratchpad accounting and for
// the codec golden tests in codec/dxtg and codec/dxtv.
package color

import "fmt"

// Format identifies a pixel or color-map encoding.
type Format uint8

const (
	Unknown Format = iota
	Paletted1
	Paletted2
	Paletted4
	Paletted8
	XRGB1555
	RGB565
	XRGB8888
	LChf
	Grayf
)

func (f Format) String() string {
	switch f {
	case Paletted1:
		return "Paletted1"
	case Paletted2:
		return "Paletted2"
	case Paletted4:
		return "Paletted4"
	case Paletted8:
		return "Paletted8"
	case XRGB1555:
		return "XRGB1555"
	case RGB565:
		return "RGB565"
	case XRGB8888:
		return "XRGB8888"
	case LChf:
		return "LChf"
	case Grayf:
		return "Grayf"
	default:
		return "Unknown"
	}
}

// BitsPerPixel returns the fixed bit depth of f, or 0 for Unknown.
func BitsPerPixel(f Format) int {
	switch f {
	case Paletted1:
		return 1
	case Paletted2:
		return 2
	case Paletted4:
		return 4
	case Paletted8:
		return 8
	case XRGB1555, RGB565:
		return 16
	case XRGB8888:
		return 32
	case LChf:
		return 96 // 3 x float32.
	case Grayf:
		return 32
	default:
		return 0
	}
}

// IsPaletted reports whether f indexes into a color map rather than
// encoding color directly.
func IsPaletted(f Format) bool {
	switch f {
	case Paletted1, Paletted2, Paletted4, Paletted8:
		return true
	default:
		return false
	}
}

// MaxIndex returns the largest representable palette index for a paletted
// format f.
func MaxIndex(f Format) (int, error) {
	switch f {
	case Paletted1:
		return 1, nil
	case Paletted2:
		return 3, nil
	case Paletted4:
		return 15, nil
	case Paletted8:
		return 255, nil
	default:
		return 0, fmt.Errorf("color: MaxIndex: %v is not a paletted format", f)
	}
}
