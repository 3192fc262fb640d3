package rle

import (
	"bytes"
	"testing"
)

func TestRoundTripSpecScenario(t *testing.T) {
	src := []byte{1, 1, 1, 2, 3, 2, 2, 2, 2, 2}
	enc := Encode(src, minRepeat)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = %v, want %v", dec, src)
	}
}

func TestEncodeLeadingRepeatBlock(t *testing.T) {
	src := []byte{1, 1, 1, 2, 3, 2, 2, 2, 2, 2}
	enc := Encode(src, minRepeat)
	if enc[0] != 0x80 || enc[1] != 0x01 {
		t.Errorf("first block = %#x %#x, want repetition of 0x01 (tag 0x80)", enc[0], enc[1])
	}
}

func TestRoundTripEmpty(t *testing.T) {
	enc := Encode(nil, minRepeat)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != 0 {
		t.Errorf("Decode(Encode(nil, minRepeat)) = %v, want empty", dec)
	}
}

func TestRoundTripAllLiteral(t *testing.T) {
	src := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	enc := Encode(src, minRepeat)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = %v, want %v", dec, src)
	}
}

func TestRoundTripLongRun(t *testing.T) {
	src := bytes.Repeat([]byte{0x42}, 500)
	enc := Encode(src, minRepeat)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip length %d, want %d", len(dec), len(src))
	}
}

func TestEncodeMinRunRaisesThreshold(t *testing.T) {
	// A run of exactly minRepeat (3) is a repeat block at the default
	// threshold, but falls back to literal bytes when minRun is raised
	// above it; the decoder still recovers the original bytes either way.
	src := []byte{9, 9, 9, 1, 2}

	enc3 := Encode(src, 3)
	if enc3[0]&repeatFlag == 0 {
		t.Fatalf("minRun=3: first block tag %#x, want a repetition block", enc3[0])
	}

	enc5 := Encode(src, 5)
	if enc5[0]&repeatFlag != 0 {
		t.Fatalf("minRun=5: first block tag %#x, want a literal block", enc5[0])
	}
	dec, err := Decode(enc5)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("minRun=5 round trip = %v, want %v", dec, src)
	}
}

func TestEncodeMinRunBelowFloorIsClamped(t *testing.T) {
	src := []byte{9, 9, 9, 1, 2}
	if !bytes.Equal(Encode(src, 0), Encode(src, minRepeat)) {
		t.Error("minRun below minRepeat should behave as minRepeat")
	}
}

func TestDecodeTruncatedErrors(t *testing.T) {
	if _, err := Decode([]byte{0x80}); err == nil {
		t.Error("expected error for truncated repetition block")
	}
	if _, err := Decode([]byte{0x05, 1, 2}); err == nil {
		t.Error("expected error for truncated literal block")
	}
}
