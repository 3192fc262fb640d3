package v2h

import (
	"bytes"
	"testing"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := FileHeader{ContentType: ContentVideo | ContentAudio, MetadataSize: 12}
	b := h.Bytes()
	got, err := parseFileHeader(bytes.NewReader(b[:]))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestParseFileHeaderRejectsBadMagic(t *testing.T) {
	buf := make([]byte, 8)
	if _, err := parseFileHeader(bytes.NewReader(buf)); err == nil {
		t.Error("expected error for zeroed magic")
	}
}

func TestVideoHeaderRoundTrip(t *testing.T) {
	h := VideoHeader{
		NrOfFrames: 30, FrameRateHz: 60 << 16, Width: 240, Height: 160,
		BitsPerPixel: 8, BitsPerColor: 15, ColorMapEntries: 16,
		SwappedRedBlue: 1, MemoryNeeded: 4096,
		Processing: [4]Processing{ProcLZ7710, ProcInvalid, ProcInvalid, ProcInvalid},
	}
	b := h.Bytes()
	got, err := parseVideoHeader(bytes.NewReader(b[:]))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestParseVideoHeaderRejectsBadBitsPerPixel(t *testing.T) {
	h := VideoHeader{BitsPerPixel: 7, BitsPerColor: 0}
	b := h.Bytes()
	if _, err := parseVideoHeader(bytes.NewReader(b[:])); err == nil {
		t.Error("expected error for invalid bits_per_pixel")
	}
}

func TestAudioHeaderRoundTrip(t *testing.T) {
	h := AudioHeader{NrOfFrames: 5, NrOfSamples: 1000, SampleRateHz: 8000, Channels: 2, SampleBits: 16, MemoryNeeded: 64}
	b := h.Bytes()
	got, err := parseAudioHeader(bytes.NewReader(b[:]))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestParseAudioHeaderRejectsBadChannels(t *testing.T) {
	h := AudioHeader{Channels: 3, SampleBits: 8}
	b := h.Bytes()
	if _, err := parseAudioHeader(bytes.NewReader(b[:])); err == nil {
		t.Error("expected error for invalid channel count")
	}
}

func TestChunkHeaderRoundTripAndFinalBit(t *testing.T) {
	h := ChunkHeader{Type: ProcLZ7710, Final: true, UncompressedSize: 1234}
	b, err := h.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	got, err := parseChunkHeader(bytes.NewReader(b[:]))
	if err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestReadChunkChainStopsAtFinal(t *testing.T) {
	var buf bytes.Buffer
	h1, _ := ChunkHeader{Type: ProcRepackage, Final: false, UncompressedSize: 2}.Bytes()
	buf.Write(h1[:])
	buf.Write([]byte{0xaa, 0xbb})
	h2, _ := ChunkHeader{Type: ProcUncompressed, Final: true, UncompressedSize: 3}.Bytes()
	buf.Write(h2[:])
	buf.Write([]byte{1, 2, 3})

	out, err := ReadChunkChain(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0xaa, 0xbb, 1, 2, 3}
	if !bytes.Equal(out, want) {
		t.Errorf("got %v, want %v", out, want)
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := &Writer{
		Header: FileHeader{ContentType: ContentVideo},
		Video: &VideoHeader{
			NrOfFrames: 1, Width: 8, Height: 8, BitsPerPixel: 8, BitsPerColor: 15,
		},
	}
	frames := []Frame{{DataType: FramePixels, Payload: []byte{1, 2, 3, 4}}}

	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf, frames); err != nil {
		t.Fatal(err)
	}

	c, err := Read(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Video == nil || c.Video.Width != 8 {
		t.Fatalf("Video header not round-tripped: %+v", c.Video)
	}
	if len(c.Frames) != 1 || !bytes.Equal(c.Frames[0].Payload, frames[0].Payload) {
		t.Errorf("frames = %+v, want %+v", c.Frames, frames)
	}
}

func TestWriterRejectsMismatchedSubHeader(t *testing.T) {
	w := &Writer{
		Header: FileHeader{ContentType: ContentVideo},
		Audio:  &AudioHeader{Channels: 1, SampleBits: 8},
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf, nil); err == nil {
		t.Error("expected error for Audio header set without ContentAudio flag")
	}
}
