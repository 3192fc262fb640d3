package pixbuf

import (
	"testing"

	"github.com/retrogba/v2h/color"
)

func TestBytesPaletted4Packing(t *testing.T) {
	b := New(color.Paletted4, 4)
	b.Pixels[0] = 0x1
	b.Pixels[1] = 0x2
	b.Pixels[2] = 0xf
	b.Pixels[3] = 0x0

	out, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x1 | 0x2<<4, 0xf | 0x0<<4}
	if len(out) != len(want) || out[0] != want[0] || out[1] != want[1] {
		t.Errorf("Bytes() = %#v, want %#v", out, want)
	}
}

func TestRGB888RoundTripXRGB8888(t *testing.T) {
	b := New(color.XRGB8888, 1)
	c := color.RGB888{R: 10, G: 20, B: 30}
	if err := b.SetRGB888At(0, c); err != nil {
		t.Fatal(err)
	}
	got, err := b.RGB888At(0)
	if err != nil {
		t.Fatal(err)
	}
	if got != c {
		t.Errorf("got %v, want %v", got, c)
	}
}

func TestClone(t *testing.T) {
	b := New(color.Paletted8, 3)
	b.Pixels[0] = 5
	c := b.Clone()
	c.Pixels[0] = 9
	if b.Pixels[0] != 5 {
		t.Error("Clone should be independent of the original")
	}
}
