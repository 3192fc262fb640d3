package delta

import (
	"bytes"
	"testing"
)

func TestEncode8RoundTrip(t *testing.T) {
	src := []byte{0, 1, 1, 2, 3, 5, 8, 13, 255, 0}
	enc := Encode8(src)
	dec := Decode8(enc)
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = %v, want %v", dec, src)
	}
}

func TestEncode8Values(t *testing.T) {
	src := []byte{10, 12, 11}
	enc := Encode8(src)
	want := []byte{10, 2, 255} // 11-12 = -1 = 255 mod 256.
	if !bytes.Equal(enc, want) {
		t.Errorf("Encode8 = %v, want %v", enc, want)
	}
}

func TestEncode16RoundTrip(t *testing.T) {
	src := []byte{0x01, 0x00, 0x05, 0x00, 0x03, 0x00, 0xff, 0xff}
	enc, err := Encode16(src)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := Decode16(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip = %v, want %v", dec, src)
	}
}

func TestEncode16RejectsOddLength(t *testing.T) {
	if _, err := Encode16([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for odd byte count")
	}
	if _, err := Decode16([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for odd byte count")
	}
}
