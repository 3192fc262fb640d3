package adpcm

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

// sinePCM generates n 16-bit little-endian PCM samples of a quiet sine wave,
// giving the encoder a non-trivial, non-silent signal to adapt to.
func sinePCM(n int) []byte {
	b := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(8000 * math.Sin(float64(i)*0.1))
		binary.LittleEndian.PutUint16(b[i*2:], uint16(v))
	}
	return b
}

func TestEncBytesMatchesWriteLength(t *testing.T) {
	for _, n := range []int{2, 3, 4, 8, 9, 100, 101} {
		pcm := sinePCM(n)
		var buf bytes.Buffer
		enc := NewEncoder(&buf)
		written, err := enc.Write(pcm)
		if err != nil {
			t.Fatalf("n=%d: Write: %v", n, err)
		}
		if written != buf.Len() {
			t.Errorf("n=%d: Write returned %d but buffer holds %d bytes", n, written, buf.Len())
		}
		want := EncBytes(len(pcm))
		if buf.Len() != want {
			t.Errorf("n=%d: EncBytes(%d) = %d, encoder produced %d", n, len(pcm), want, buf.Len())
		}
	}
}

func TestRoundTripSampleCount(t *testing.T) {
	pcm := sinePCM(64)

	var enc bytes.Buffer
	e := NewEncoder(&enc)
	if _, err := e.Write(pcm); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var dec bytes.Buffer
	d := NewDecoder(&dec)
	if _, err := d.Write(enc.Bytes()); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if dec.Len() != len(pcm) {
		t.Fatalf("decoded %d bytes, want %d (sample count must round-trip exactly, values are lossy)", dec.Len(), len(pcm))
	}
}

func TestWriteRejectsShortInput(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)
	if _, err := e.Write([]byte{0x01}); err == nil {
		t.Error("expected error encoding fewer bytes than the 2-sample initialisation window")
	}
}
