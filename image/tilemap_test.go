package image

import (
	"testing"

	"github.com/retrogba/v2h/color"
)

func TestBuildTileMapDeduplicates(t *testing.T) {
	// Two 8x8 tiles side by side, both identical.
	fr := New(color.Paletted8, 16, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint32(y*8 + x)
			fr.Pixels.Pixels[y*16+x] = v
			fr.Pixels.Pixels[y*16+8+x] = v
		}
	}

	tm, err := BuildTileMap([]*Frame{fr}, 8, 8, false, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if len(tm.Store) != 1 {
		t.Fatalf("Store has %d tiles, want 1 (duplicate should be eliminated)", len(tm.Store))
	}
	if len(tm.ScreenMap) != 2 {
		t.Fatalf("ScreenMap has %d entries, want 2", len(tm.ScreenMap))
	}
	if tm.ScreenMap[0].Index != 0 || tm.ScreenMap[1].Index != 0 {
		t.Errorf("both tiles should reference store index 0: %+v", tm.ScreenMap)
	}
}

func TestBuildTileMapDetectsFlip(t *testing.T) {
	fr := New(color.Paletted8, 16, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			v := uint32(y*8 + x)
			fr.Pixels.Pixels[y*16+x] = v
			fr.Pixels.Pixels[y*16+8+(7-x)] = v // second tile is first, horizontally flipped.
		}
	}

	tm, err := BuildTileMap([]*Frame{fr}, 8, 8, true, 1024)
	if err != nil {
		t.Fatal(err)
	}
	if len(tm.Store) != 1 {
		t.Fatalf("Store has %d tiles, want 1", len(tm.Store))
	}
	if !tm.ScreenMap[1].HFlip || tm.ScreenMap[1].VFlip {
		t.Errorf("second tile should be flagged H-flip only: %+v", tm.ScreenMap[1])
	}
}

func TestTileRefPackRoundTrip(t *testing.T) {
	r := TileRef{Index: 42, HFlip: true, VFlip: false}
	packed := r.Pack(1024)
	got := UnpackTileRef(packed, 1024)
	if got != r {
		t.Errorf("round trip = %+v, want %+v", got, r)
	}
}

func TestBuildTileMapCap(t *testing.T) {
	fr := New(color.Paletted8, 16, 8)
	for i := range fr.Pixels.Pixels {
		fr.Pixels.Pixels[i] = uint32(i) // every tile unique.
	}
	if _, err := BuildTileMap([]*Frame{fr}, 8, 8, false, 1); err == nil {
		t.Error("expected cap-exceeded error")
	}
}
