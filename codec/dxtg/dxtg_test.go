package dxtg

import (
	"testing"

	"github.com/retrogba/v2h/color"
	"github.com/retrogba/v2h/image"
)

func solidFrame(w, h int, rgb color.RGB888) *image.Frame {
	fr := image.New(color.XRGB8888, w, h)
	for i := 0; i < w*h; i++ {
		fr.Pixels.SetRGB888At(i, rgb)
	}
	return fr
}

func TestEncodeDecodeSolidBlock(t *testing.T) {
	want := color.RGB888{R: 0x20, G: 0x60, B: 0xa0}
	fr := solidFrame(4, 4, want)

	blocks, err := Encode(fr)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	for _, idx := range blocks[0].Indices {
		if idx != 0 {
			t.Errorf("solid block index = %d, want 0 (all pixels select c0)", idx)
		}
	}

	dec, err := Decode(blocks, 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 16; i++ {
		got, err := dec.RGB888At(i)
		if err != nil {
			t.Fatal(err)
		}
		d := color.SquaredDistance(got, want)
		if d > 0.05 {
			t.Errorf("pixel %d = %+v, want close to %+v (dist=%v)", i, got, want, d)
		}
	}
}

func TestEncodeDecodeFF0000GoldenEndpoint(t *testing.T) {
	// Spec scenario 5 claims a solid #FF0000 block encodes to endpoints
	// (0x7C00, 0x7C00), but color.ToXRGB1555 packs blue<<10|green<<5|red
	// (spec's own bit-layout text), under which pure red is 0x001F. This
	// pins the value the code actually, correctly, produces.
	red := color.RGB888{R: 0xff, G: 0x00, B: 0x00}
	fr := solidFrame(4, 4, red)

	blocks, err := Encode(fr)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	const wantEndpoint = 0x001f
	if blocks[0].C0 != wantEndpoint || blocks[0].C1 != wantEndpoint {
		t.Errorf("endpoints = (%#04x, %#04x), want (%#04x, %#04x)", blocks[0].C0, blocks[0].C1, wantEndpoint, wantEndpoint)
	}
	for _, idx := range blocks[0].Indices {
		if idx != 0 {
			t.Errorf("solid block index = %d, want 0", idx)
		}
	}
}

func TestEncodeRejectsNonMultipleOfFour(t *testing.T) {
	fr := solidFrame(5, 4, color.RGB888{})
	if _, err := Encode(fr); err == nil {
		t.Error("expected error for width not a multiple of 4")
	}
}

func TestEncodeMultiBlockGrid(t *testing.T) {
	fr := image.New(color.XRGB8888, 8, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGB888{R: byte(x * 16), G: byte(y * 16), B: 0x80}
			fr.Pixels.SetRGB888At(y*8+x, c)
		}
	}
	blocks, err := Encode(fr)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if _, err := Decode(blocks, 8, 4); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeRejectsBlockCountMismatch(t *testing.T) {
	if _, err := Decode(nil, 8, 4); err == nil {
		t.Error("expected error for block count mismatch")
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	fr := image.New(color.XRGB8888, 8, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			c := color.RGB888{R: byte(x * 16), G: byte(y * 16), B: 0x80}
			fr.Pixels.SetRGB888At(y*8+x, c)
		}
	}
	blocks, err := Encode(fr)
	if err != nil {
		t.Fatal(err)
	}
	data := Marshal(blocks)
	if len(data) != len(blocks)*8 {
		t.Fatalf("len(data) = %d, want %d", len(data), len(blocks)*8)
	}
	got, err := Unmarshal(data, len(blocks))
	if err != nil {
		t.Fatal(err)
	}
	for i := range blocks {
		if got[i] != blocks[i] {
			t.Errorf("block %d = %+v, want %+v", i, got[i], blocks[i])
		}
	}
}

func TestUnmarshalRejectsWrongLength(t *testing.T) {
	if _, err := Unmarshal([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for wrong-length data")
	}
}
