package lzss

import (
	"bytes"
	"testing"
)

func TestEncode10GoldenSingleLiteral(t *testing.T) {
	enc := Encode10([]byte{0x01}, false)
	want := []byte{0x10, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00}
	if !bytes.Equal(enc, want) {
		t.Errorf("Encode10([0x01]) = % x, want % x", enc, want)
	}
	dec, err := Decode10(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, []byte{0x01}) {
		t.Errorf("Decode10 round trip = % x, want [01]", dec)
	}
}

func TestEncode10GoldenRepeatedRun(t *testing.T) {
	src := bytes.Repeat([]byte{0x41}, 6)
	enc := Encode10(src, false)
	want := []byte{0x10, 0x06, 0x00, 0x00, 0x40, 0x41, 0x20, 0x00}
	if !bytes.Equal(enc, want) {
		t.Errorf("Encode10(AAAAAA) = % x, want % x", enc, want)
	}
	dec, err := Decode10(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = % x, want % x", dec, src)
	}
}

func TestEncode10VRAMSafeForbidsOffsetOne(t *testing.T) {
	src := bytes.Repeat([]byte{0x41}, 6)
	enc := Encode10(src, true)
	want := []byte{0x10, 0x06, 0x00, 0x00, 0x00, 0x41, 0x41, 0x41, 0x41, 0x41, 0x41, 0x00}
	if !bytes.Equal(enc, want) {
		t.Errorf("vram-safe Encode10(AAAAAA) = % x, want % x", enc, want)
	}
	dec, err := Decode10(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = % x, want % x", dec, src)
	}
}

func TestEncode10RoundTripMixed(t *testing.T) {
	src := []byte("the quick brown fox the quick brown fox jumps over the quick brown fox")
	for _, vram := range []bool{false, true} {
		enc := Encode10([]byte(src), vram)
		dec, err := Decode10(enc)
		if err != nil {
			t.Fatalf("vram=%v: %v", vram, err)
		}
		if !bytes.Equal(dec, src) {
			t.Errorf("vram=%v: round trip mismatch", vram)
		}
	}
}

func TestEncode11RoundTripLongRun(t *testing.T) {
	// A run long enough to force LZSS-11's long-form (length > 10) token.
	src := append([]byte("prefix-"), bytes.Repeat([]byte{0x5a}, 400)...)
	enc := Encode11(src, false)
	dec, err := Decode11(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip length %d, want %d", len(dec), len(src))
	}
}

func TestEncode11RoundTripShortFormBoundaryLengths(t *testing.T) {
	// Lengths 11-18 used to collide with the long-form discriminator bit
	// (shortMatch11Max was 18, letting (length-3)<<4 set bit 7). Walk the
	// whole short-form range, including the old buggy band, to pin it down.
	for length := minMatch; length <= 18; length++ {
		src := append([]byte("prefix-"), bytes.Repeat([]byte{0x5a}, length)...)
		enc := Encode11(src, false)
		dec, err := Decode11(enc)
		if err != nil {
			t.Fatalf("length=%d: %v", length, err)
		}
		if !bytes.Equal(dec, src) {
			t.Errorf("length=%d: round trip = % x, want % x", length, dec, src)
		}
	}
}

func TestEncode11RoundTripVRAMSafe(t *testing.T) {
	src := bytes.Repeat([]byte("ab"), 200)
	enc := Encode11(src, true)
	dec, err := Decode11(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip mismatch under vram-safe")
	}
}

func TestDecode10RejectsWrongMagic(t *testing.T) {
	enc := Encode11([]byte{0x01}, false)
	if _, err := Decode10(enc); err == nil {
		t.Error("expected error decoding LZSS-11 stream as LZSS-10")
	}
}

func TestDecode10RejectsTruncatedHeader(t *testing.T) {
	if _, err := Decode10([]byte{0x10, 0x00}); err == nil {
		t.Error("expected error for truncated header")
	}
}

func TestUncompressedSizeIsAuthoritative(t *testing.T) {
	// Two encodes of different inputs that happen to share a compressed
	// body prefix must still decode to their own recorded length, not an
	// inferred one; this just exercises that size, not body, drives decode.
	enc := Encode10([]byte{0x09, 0x09, 0x09}, false)
	dec, err := Decode10(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != 3 {
		t.Errorf("decoded length = %d, want 3", len(dec))
	}
}
