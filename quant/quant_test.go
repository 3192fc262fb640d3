package quant

import (
	"testing"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

func truecolorFrame(w, h int, fill func(x, y int) color.RGB888) *image.Frame {
	fr := image.New(color.XRGB8888, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fr.Pixels.SetRGB888At(y*w+x, fill(x, y))
		}
	}
	return fr
}

func TestThresholdBlackWhite(t *testing.T) {
	fr := truecolorFrame(2, 1, func(x, y int) color.RGB888 {
		if x == 0 {
			return color.RGB888{R: 0, G: 0, B: 0}
		}
		return color.RGB888{R: 255, G: 255, B: 255}
	})
	out, err := Threshold(fr, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if out.Pixels.Pixels[0] != 0 || out.Pixels.Pixels[1] != 1 {
		t.Errorf("indices = %v, want [0 1]", out.Pixels.Pixels)
	}
	want := []color.RGB888{{0, 0, 0}, {255, 255, 255}}
	if len(out.ColorMap) != 2 || out.ColorMap[0] != want[0] || out.ColorMap[1] != want[1] {
		t.Errorf("color map = %v, want %v", out.ColorMap, want)
	}
}

func TestThresholdRejectsOutOfRange(t *testing.T) {
	fr := truecolorFrame(1, 1, func(x, y int) color.RGB888 { return color.RGB888{} })
	if _, err := Threshold(fr, 1.5); err == nil {
		t.Error("expected error for out-of-range threshold")
	}
}

func TestClosestColorSolidImageUsesOneEntry(t *testing.T) {
	fr := truecolorFrame(4, 4, func(x, y int) color.RGB888 { return color.RGB888{R: 200, G: 10, B: 10} })
	target := []color.RGB888{
		{R: 200, G: 10, B: 10},
		{R: 0, G: 0, B: 0},
		{R: 255, G: 255, B: 255},
	}
	out, err := ClosestColor(fr, target, 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, idx := range out.Pixels.Pixels {
		if out.ColorMap[idx] != target[0] {
			t.Errorf("solid-color image should map entirely to the matching target color, got %v", out.ColorMap[idx])
		}
	}
}

func TestAtkinsonProducesValidIndices(t *testing.T) {
	fr := truecolorFrame(4, 4, func(x, y int) color.RGB888 { return color.RGB888{R: uint8(x * 60), G: uint8(y * 60), B: 0} })
	target := []color.RGB888{{0, 0, 0}, {255, 255, 255}}
	out, err := Atkinson(fr, target)
	if err != nil {
		t.Fatal(err)
	}
	for _, idx := range out.Pixels.Pixels {
		if idx > 1 {
			t.Fatalf("index %d out of range for a 2-color target palette", idx)
		}
	}
}

func TestAtkinsonRejectsEmptyTarget(t *testing.T) {
	fr := truecolorFrame(1, 1, func(x, y int) color.RGB888 { return color.RGB888{} })
	if _, err := Atkinson(fr, nil); err == nil {
		t.Error("expected error for empty target palette")
	}
}
