package palette

import (
	"testing"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

func paletted(indices []uint32, cmap []color.RGB888) *image.Frame {
	fr := image.New(color.Paletted8, len(indices), 1)
	copy(fr.Pixels.Pixels, indices)
	fr.ColorMap = cmap
	return fr
}

func TestAddColorAt0(t *testing.T) {
	fr := paletted([]uint32{0, 1}, []color.RGB888{{1, 1, 1}, {2, 2, 2}})
	if err := AddColorAt0(fr, color.RGB888{9, 9, 9}); err != nil {
		t.Fatal(err)
	}
	if fr.ColorMap[0] != (color.RGB888{9, 9, 9}) {
		t.Errorf("new color not at index 0: %v", fr.ColorMap)
	}
	if fr.Pixels.Pixels[0] != 1 || fr.Pixels.Pixels[1] != 2 {
		t.Errorf("pixel indices not shifted: %v", fr.Pixels.Pixels)
	}
}

func TestMoveColorAt0(t *testing.T) {
	fr := paletted([]uint32{0, 1, 2}, []color.RGB888{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}})
	if err := MoveColorAt0(fr, color.RGB888{3, 3, 3}); err != nil {
		t.Fatal(err)
	}
	if fr.ColorMap[0] != (color.RGB888{3, 3, 3}) || fr.ColorMap[2] != (color.RGB888{1, 1, 1}) {
		t.Errorf("color map not swapped: %v", fr.ColorMap)
	}
	want := []uint32{2, 1, 0}
	for i, v := range want {
		if fr.Pixels.Pixels[i] != v {
			t.Errorf("pixel %d = %d, want %d", i, fr.Pixels.Pixels[i], v)
		}
	}
}

func TestMoveColorAt0MissingColor(t *testing.T) {
	fr := paletted([]uint32{0}, []color.RGB888{{1, 1, 1}})
	if err := MoveColorAt0(fr, color.RGB888{9, 9, 9}); err == nil {
		t.Error("expected error for absent color")
	}
}

func TestShiftIndices(t *testing.T) {
	fr := paletted([]uint32{0, 1, 2}, make([]color.RGB888, 3))
	if err := ShiftIndices(fr, 10); err != nil {
		t.Fatal(err)
	}
	want := []uint32{0, 11, 12}
	for i, v := range want {
		if fr.Pixels.Pixels[i] != v {
			t.Errorf("pixel %d = %d, want %d", i, fr.Pixels.Pixels[i], v)
		}
	}
}

func TestShiftIndicesOverflow(t *testing.T) {
	fr := paletted([]uint32{250}, make([]color.RGB888, 251))
	if err := ShiftIndices(fr, 10); err == nil {
		t.Error("expected overflow error")
	}
}

func TestPruneIndices(t *testing.T) {
	fr := paletted([]uint32{0, 1, 2, 3}, make([]color.RGB888, 4))
	if err := PruneIndices(fr, 2); err != nil {
		t.Fatal(err)
	}
	if fr.Pixels.Format != color.Paletted2 {
		t.Errorf("format = %v, want Paletted2", fr.Pixels.Format)
	}
}

func TestPruneIndicesDoesNotFit(t *testing.T) {
	fr := paletted([]uint32{0, 1, 2, 17}, make([]color.RGB888, 18))
	if err := PruneIndices(fr, 4); err == nil {
		t.Error("expected does-not-fit error")
	}
}

func TestReorderForSimilarityPreservesImage(t *testing.T) {
	cmap := []color.RGB888{{255, 0, 0}, {0, 0, 255}, {0, 255, 0}, {128, 128, 128}}
	fr := paletted([]uint32{0, 1, 2, 3, 0, 1}, cmap)
	before := make([]color.RGB888, len(fr.Pixels.Pixels))
	for i := range before {
		before[i], _ = fr.RGB888At(i)
	}
	if err := ReorderForSimilarity(fr); err != nil {
		t.Fatal(err)
	}
	for i := range before {
		after, _ := fr.RGB888At(i)
		if after != before[i] {
			t.Errorf("pixel %d changed color after reorder: %v -> %v", i, before[i], after)
		}
	}
}
