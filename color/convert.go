package color

// RGB888 is a truecolor sample in XRGB8888 with the unused top byte
// dropped; R, G and B each range over [0,255].
type RGB888 struct {
	R, G, B uint8
}

// round implements floor(x+0.5), the rounding rule this package commits to
// for every scale-up/scale-down conversion below. All converters in this
// file use this rule exclusively so that repeated encode/decode passes stay
// bit-exact across runs, as required by spec §4.1.
func round(x float64) int {
	return int(x + 0.5)
}

// ToXRGB1555 converts a truecolor sample to XRGB1555 (bit 15 always 0, 5
// bits each of red/green/blue).
func ToXRGB1555(c RGB888) uint16 {
	r := uint16(round(float64(c.R) * 31 / 255))
	g := uint16(round(float64(c.G) * 31 / 255))
	b := uint16(round(float64(c.B) * 31 / 255))
	return b<<10 | g<<5 | r
}

// FromXRGB1555 converts an XRGB1555 sample back to truecolor.
func FromXRGB1555(c uint16) RGB888 {
	r := c & 0x1f
	g := (c >> 5) & 0x1f
	b := (c >> 10) & 0x1f
	return RGB888{
		R: uint8(round(float64(r) * 255 / 31)),
		G: uint8(round(float64(g) * 255 / 31)),
		B: uint8(round(float64(b) * 255 / 31)),
	}
}

// ToRGB565 converts a truecolor sample to RGB565 (5 bits blue, 6 green, 5
// red).
func ToRGB565(c RGB888) uint16 {
	r := uint16(round(float64(c.R) * 31 / 255))
	g := uint16(round(float64(c.G) * 63 / 255))
	b := uint16(round(float64(c.B) * 31 / 255))
	return b<<11 | g<<5 | r
}

// FromRGB565 converts an RGB565 sample back to truecolor.
func FromRGB565(c uint16) RGB888 {
	r := c & 0x1f
	g := (c >> 5) & 0x3f
	b := (c >> 11) & 0x1f
	return RGB888{
		R: uint8(round(float64(r) * 255 / 31)),
		G: uint8(round(float64(g) * 255 / 63)),
		B: uint8(round(float64(b) * 255 / 31)),
	}
}

// Gray converts a truecolor sample to a single 8-bit luma value using the
// standard Rec.601 luma weights, for use by the threshold quantizer.
func Gray(c RGB888) uint8 {
	y := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	return uint8(round(y))
}
