package color

import "testing"

func TestXRGB1555RoundTripExact(t *testing.T) {
	// Every 5-bit channel value round-trips exactly through the 255-scale
	// and back, since 31 evenly divides the rounding error out.
	for v := 0; v < 32; v++ {
		in := RGB888{
			R: uint8(round(float64(v) * 255 / 31)),
			G: uint8(round(float64(v) * 255 / 31)),
			B: uint8(round(float64(v) * 255 / 31)),
		}
		packed := ToXRGB1555(in)
		out := FromXRGB1555(packed)
		if out != in {
			t.Errorf("v=%d: round trip %v -> %#04x -> %v", v, in, packed, out)
		}
	}
}

func TestToXRGB1555Layout(t *testing.T) {
	// Red in bits 0-4, green in bits 5-9, blue in bits 10-14, bit 15 is 0.
	c := ToXRGB1555(RGB888{R: 255, G: 0, B: 0})
	if c != 0x001f {
		t.Errorf("pure red = %#04x, want 0x001f", c)
	}
	c = ToXRGB1555(RGB888{R: 0, G: 255, B: 0})
	if c != 0x03e0 {
		t.Errorf("pure green = %#04x, want 0x03e0", c)
	}
	c = ToXRGB1555(RGB888{R: 0, G: 0, B: 255})
	if c != 0x7c00 {
		t.Errorf("pure blue = %#04x, want 0x7c00", c)
	}
	if c&0x8000 != 0 {
		t.Error("bit 15 must be 0 for XRGB1555")
	}
}

func TestToRGB565Layout(t *testing.T) {
	c := ToRGB565(RGB888{R: 0, G: 255, B: 0})
	if c != 0x07e0 {
		t.Errorf("pure green = %#04x, want 0x07e0 (6 green bits in 5-10)", c)
	}
}

func TestGray(t *testing.T) {
	if g := Gray(RGB888{R: 255, G: 255, B: 255}); g != 255 {
		t.Errorf("white luma = %d, want 255", g)
	}
	if g := Gray(RGB888{R: 0, G: 0, B: 0}); g != 0 {
		t.Errorf("black luma = %d, want 0", g)
	}
}
