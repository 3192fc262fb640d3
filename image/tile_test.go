package image

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/retrogba/v2h/color"
)

func sequentialFrame(w, h int) *Frame {
	fr := New(color.Paletted8, w, h)
	for i := range fr.Pixels.Pixels {
		fr.Pixels.Pixels[i] = uint32(i)
	}
	return fr
}

func TestToWidthRoundTrip(t *testing.T) {
	fr := sequentialFrame(16, 8)
	wide, err := ToWidth(fr, 4)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ToWidthInverse(wide, 4)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fr.Pixels.Pixels, back.Pixels.Pixels); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToWidthLayout(t *testing.T) {
	// 4x8 image, to-width(2): column group 0 (x=0,1) for all 8 rows, then group 1 (x=2,3).
	fr := sequentialFrame(4, 8)
	wide, err := ToWidth(fr, 2)
	if err != nil {
		t.Fatal(err)
	}
	// First two entries should be row0's x=0,1 i.e. values 0,1.
	if wide.Pixels.Pixels[0] != 0 || wide.Pixels.Pixels[1] != 1 {
		t.Errorf("unexpected layout start: %v", wide.Pixels.Pixels[:4])
	}
	// Entry at index 2 should be row1's x=0 i.e. value 4.
	if wide.Pixels.Pixels[2] != 4 {
		t.Errorf("unexpected layout at index 2: %v", wide.Pixels.Pixels[2])
	}
}

func TestToTilesRoundTrip(t *testing.T) {
	fr := sequentialFrame(16, 16)
	tiled, err := ToTiles(fr, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !tiled.DataType.Has(Tiles) {
		t.Error("ToTiles should set the Tiles data-type flag")
	}
	back, err := ToTilesInverse(tiled, 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fr.Pixels.Pixels, back.Pixels.Pixels); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToSpritesRoundTrip(t *testing.T) {
	fr := sequentialFrame(32, 16)
	sprited, err := ToSprites(fr, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	back, err := ToSpritesInverse(sprited, 16, 16)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(fr.Pixels.Pixels, back.Pixels.Pixels); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestToTilesRejectsNonBitmap(t *testing.T) {
	fr := sequentialFrame(8, 8)
	fr.DataType = Compressed
	if _, err := ToTiles(fr, 8, 8); err == nil {
		t.Error("expected error for non-bitmap input")
	}
}

func TestToTilesRejectsBadDivision(t *testing.T) {
	fr := sequentialFrame(10, 10)
	if _, err := ToTiles(fr, 8, 8); err == nil {
		t.Error("expected error for non-divisible dimensions")
	}
}
