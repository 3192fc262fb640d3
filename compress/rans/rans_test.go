package rans

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTripUniformHistogram(t *testing.T) {
	src := make([]byte, 1024)
	for i := range src {
		if i%2 == 0 {
			src[i] = 0x00
		} else {
			src[i] = 0xff
		}
	}
	enc := Encode(src)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip mismatch for uniform 0/255 histogram")
	}
}

func TestFreqTableScenario4(t *testing.T) {
	src := make([]byte, 1024)
	for i := 0; i < 512; i++ {
		src[i] = 0
	}
	for i := 512; i < 1024; i++ {
		src[i] = 255
	}
	weight := BuildFreqTable(src)
	freq, _ := expand(weight)
	if freq[0] != 1<<13 || freq[255] != 1<<13 {
		t.Errorf("freq[0]=%d freq[255]=%d, want both %d", freq[0], freq[255], 1<<13)
	}
}

func TestRoundTripSingleDominantSymbol(t *testing.T) {
	src := bytes.Repeat([]byte{0x2a}, 300)
	enc := Encode(src)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip mismatch for single-symbol stream")
	}
}

func TestRoundTripRandomSkewedDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	src := make([]byte, 4096)
	for i := range src {
		// Skew toward low byte values so the histogram is non-uniform.
		v := rng.Intn(1000)
		switch {
		case v < 700:
			src[i] = byte(rng.Intn(4))
		case v < 950:
			src[i] = byte(4 + rng.Intn(20))
		default:
			src[i] = byte(rng.Intn(256))
		}
	}
	enc := Encode(src)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, src) {
		t.Errorf("round trip mismatch for skewed distribution")
	}
}

func TestRoundTripEmpty(t *testing.T) {
	enc := Encode(nil)
	dec, err := Decode(enc)
	if err != nil {
		t.Fatal(err)
	}
	if len(dec) != 0 {
		t.Errorf("Decode(Encode(nil)) = %v, want empty", dec)
	}
}

func TestFreqTableSumsToProfile(t *testing.T) {
	srcs := [][]byte{
		bytes.Repeat([]byte{7}, 1),
		bytes.Repeat([]byte{7}, 1000),
		{0, 1, 2, 3, 4, 5},
		bytes.Repeat([]byte("hello world"), 50),
	}
	for _, src := range srcs {
		weight := BuildFreqTable(src)
		var sum int
		for _, w := range weight {
			sum += int(w)
		}
		if sum != profile {
			t.Errorf("BuildFreqTable(%d bytes): weight sum = %d, want %d", len(src), sum, profile)
		}
	}
}

func TestDecodeRejectsWrongTag(t *testing.T) {
	enc := Encode([]byte{1, 2, 3})
	enc[0] ^= 0xff
	if _, err := Decode(enc); err == nil {
		t.Error("expected error for corrupted header tag")
	}
}
