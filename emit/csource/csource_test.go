package csource

import (
	"strings"
	"testing"
)

func TestEmitBasicImage(t *testing.T) {
	img := Image{
		Name: "sprite0", Width: 8, Height: 8, BytesPerImage: 64, NrOfImages: 1,
		Data: []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}
	h, c, err := Emit(img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h, "SPRITE0_WIDTH 8") {
		t.Error("header missing WIDTH macro")
	}
	if !strings.Contains(h, "SPRITE0_DATA_SIZE 2") {
		t.Error("header DATA_SIZE should be in 32-bit words (8 bytes = 2 words)")
	}
	if !strings.Contains(c, "0x04030201,") {
		t.Errorf("source missing expected little-endian word, got: %s", c)
	}
}

func TestEmitRejectsUnalignedData(t *testing.T) {
	img := Image{Name: "bad", Data: []byte{1, 2, 3}}
	if _, _, err := Emit(img); err == nil {
		t.Error("expected error for data length not a multiple of 4")
	}
}

func TestEmitWithPaletteAndStartIndices(t *testing.T) {
	img := Image{
		Name: "tiles", Data: make([]byte, 16),
		Palette:      []uint16{0x7c00, 0x03e0},
		StartIndices: []uint32{0, 4},
	}
	h, c, err := Emit(img)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(h, "TILES_PALETTE_LENGTH 2") {
		t.Error("header missing palette length macro")
	}
	if !strings.Contains(c, "tiles_palette") {
		t.Error("source missing palette array")
	}
	if !strings.Contains(c, "tiles_start") {
		t.Error("source missing start-index array")
	}
}

func TestSanitizeIdentReplacesInvalidChars(t *testing.T) {
	got := sanitizeIdent("my-image.01")
	want := "my_image_01"
	if got != want {
		t.Errorf("sanitizeIdent() = %q, want %q", got, want)
	}
}
