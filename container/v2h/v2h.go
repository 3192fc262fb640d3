// Package v2h reads and writes the V2H binary container (spec §6.1): a
// file header, one sub-header per content type present, a sequence of
// frame records, and an optional metadata trailer. Layout parsing errors
// are wrapped with github.com/pkg/errors the way the rest of this module's
// ambient error handling does, and every operation accepts a duck-typed
// Logger for diagnostics, mirroring revid's config.Logger.
package v2h

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/retrogba/v2h/compress/adpcm"
)

// Logger is the diagnostic sink Writer/Reader accept; satisfied by
// *github.com/ausocean/utils/logging.Logger among others.
type Logger interface {
	SetLevel(int8)
	Log(level int8, message string, params ...interface{})
}

// ContentType is the file header's bitfield of media kinds present.
type ContentType uint8

const (
	ContentAudio     ContentType = 1 << 0
	ContentVideo     ContentType = 1 << 1
	ContentSubtitles ContentType = 1 << 2
)

func (c ContentType) Has(flag ContentType) bool { return c&flag != 0 }

// Magic is the V2H file header's identifying 32-bit value, ASCII "v2h0"
// read as a big-endian u32. Like every header field it is stored
// little-endian, so a file's first four bytes are "0h2v".
const Magic uint32 = 0x76326830

// FileHeader is the container's fixed 8-byte leading record.
type FileHeader struct {
	ContentType  ContentType
	MetadataSize uint16
}

func (h FileHeader) Bytes() [8]byte {
	var out [8]byte
	binary.LittleEndian.PutUint32(out[0:4], Magic)
	out[4] = byte(h.ContentType)
	out[5] = 0 // reserved
	binary.LittleEndian.PutUint16(out[6:8], h.MetadataSize)
	return out
}

func parseFileHeader(r io.Reader) (FileHeader, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FileHeader{}, errors.Wrap(err, "v2h: parseFileHeader: short read")
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != Magic {
		return FileHeader{}, errors.Errorf("v2h: parseFileHeader: bad magic %#08x, want %#08x", magic, Magic)
	}
	return FileHeader{
		ContentType:  ContentType(buf[4]),
		MetadataSize: binary.LittleEndian.Uint16(buf[6:8]),
	}, nil
}

// Processing is a chunk's compression/transform code (spec §6.1).
type Processing uint8

const (
	ProcUncompressed    Processing = 0
	ProcResampleInput   Processing = 10
	ProcRepackage       Processing = 20
	ProcLZ7710          Processing = 60
	ProcLZ7711OrRANS50  Processing = 61
	ProcRLE             Processing = 64
	ProcRANS            Processing = 65
	ProcADPCM           Processing = 70
	ProcDXTV            Processing = 71
	ProcGVID            Processing = 72
	ProcConvertToRaw    Processing = 80
	ProcPadTo           Processing = 81
	ProcEqualizeColorMaps Processing = 93
	ProcInvalid         Processing = 255
)

// AudioHeader is the sub-header present iff ContentAudio is set. Its
// declared field list (this comment's fields) sums to 20 bytes rather
// than the spec summary's stated 16; the field list is taken as
// authoritative (see DESIGN.md).
type AudioHeader struct {
	NrOfFrames     uint16
	NrOfSamples    uint32
	SampleRateHz   uint16
	Channels       uint8 // 1 or 2
	SampleBits     uint8 // 8 or 16
	OffsetSamples  int16
	MemoryNeeded   uint16
	Processing     [4]Processing
}

func (h AudioHeader) Bytes() [20]byte {
	var out [20]byte
	binary.LittleEndian.PutUint16(out[0:2], h.NrOfFrames)
	binary.LittleEndian.PutUint32(out[2:6], h.NrOfSamples)
	binary.LittleEndian.PutUint16(out[6:8], h.SampleRateHz)
	out[8] = h.Channels
	out[9] = h.SampleBits
	binary.LittleEndian.PutUint16(out[10:12], uint16(h.OffsetSamples))
	binary.LittleEndian.PutUint16(out[12:14], h.MemoryNeeded)
	// out[14:16] reserved
	for i, p := range h.Processing {
		out[16+i] = byte(p)
	}
	return out
}

func parseAudioHeader(r io.Reader) (AudioHeader, error) {
	var buf [20]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return AudioHeader{}, errors.Wrap(err, "v2h: parseAudioHeader: short read")
	}
	h := AudioHeader{
		NrOfFrames:    binary.LittleEndian.Uint16(buf[0:2]),
		NrOfSamples:   binary.LittleEndian.Uint32(buf[2:6]),
		SampleRateHz:  binary.LittleEndian.Uint16(buf[6:8]),
		Channels:      buf[8],
		SampleBits:    buf[9],
		OffsetSamples: int16(binary.LittleEndian.Uint16(buf[10:12])),
		MemoryNeeded:  binary.LittleEndian.Uint16(buf[12:14]),
	}
	for i := range h.Processing {
		h.Processing[i] = Processing(buf[16+i])
	}
	if h.Channels != 1 && h.Channels != 2 {
		return AudioHeader{}, errors.Errorf("v2h: parseAudioHeader: channels = %d, want 1 or 2", h.Channels)
	}
	if h.SampleBits != 8 && h.SampleBits != 16 {
		return AudioHeader{}, errors.Errorf("v2h: parseAudioHeader: sample_bits = %d, want 8 or 16", h.SampleBits)
	}
	return h, nil
}

// VideoHeader is the 24-byte sub-header present iff ContentVideo is set.
// FrameRateHz is a 16.16 fixed-point value (spec §6.1).
type VideoHeader struct {
	NrOfFrames          uint16
	FrameRateHz         uint32 // 16.16 fixed point
	Width, Height       uint16
	BitsPerPixel        uint8 // 1,2,4,8,15,16,24
	BitsPerColor        uint8 // 0,15,16,24
	ColorMapEntries     uint8
	SwappedRedBlue      uint8
	NrOfColorMapFrames  uint16
	MemoryNeeded        uint32
	Processing          [4]Processing
}

func (h VideoHeader) Bytes() [24]byte {
	var out [24]byte
	binary.LittleEndian.PutUint16(out[0:2], h.NrOfFrames)
	binary.LittleEndian.PutUint32(out[2:6], h.FrameRateHz)
	binary.LittleEndian.PutUint16(out[6:8], h.Width)
	binary.LittleEndian.PutUint16(out[8:10], h.Height)
	out[10] = h.BitsPerPixel
	out[11] = h.BitsPerColor
	out[12] = h.ColorMapEntries
	out[13] = h.SwappedRedBlue
	binary.LittleEndian.PutUint16(out[14:16], h.NrOfColorMapFrames)
	binary.LittleEndian.PutUint32(out[16:20], h.MemoryNeeded)
	for i, p := range h.Processing {
		out[20+i] = byte(p)
	}
	return out
}

var validBPP = map[uint8]bool{1: true, 2: true, 4: true, 8: true, 15: true, 16: true, 24: true}
var validBPC = map[uint8]bool{0: true, 15: true, 16: true, 24: true}

func parseVideoHeader(r io.Reader) (VideoHeader, error) {
	var buf [24]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return VideoHeader{}, errors.Wrap(err, "v2h: parseVideoHeader: short read")
	}
	h := VideoHeader{
		NrOfFrames:         binary.LittleEndian.Uint16(buf[0:2]),
		FrameRateHz:        binary.LittleEndian.Uint32(buf[2:6]),
		Width:              binary.LittleEndian.Uint16(buf[6:8]),
		Height:             binary.LittleEndian.Uint16(buf[8:10]),
		BitsPerPixel:       buf[10],
		BitsPerColor:       buf[11],
		ColorMapEntries:    buf[12],
		SwappedRedBlue:     buf[13],
		NrOfColorMapFrames: binary.LittleEndian.Uint16(buf[14:16]),
		MemoryNeeded:       binary.LittleEndian.Uint32(buf[16:20]),
	}
	for i := range h.Processing {
		h.Processing[i] = Processing(buf[20+i])
	}
	if !validBPP[h.BitsPerPixel] {
		return VideoHeader{}, errors.Errorf("v2h: parseVideoHeader: bits_per_pixel = %d is not valid", h.BitsPerPixel)
	}
	if !validBPC[h.BitsPerColor] {
		return VideoHeader{}, errors.Errorf("v2h: parseVideoHeader: bits_per_color = %d is not valid", h.BitsPerColor)
	}
	return h, nil
}

// SubtitlesHeader is the 4-byte sub-header present iff ContentSubtitles
// is set.
type SubtitlesHeader struct {
	NrOfFrames uint16
}

func (h SubtitlesHeader) Bytes() [4]byte {
	var out [4]byte
	binary.LittleEndian.PutUint16(out[0:2], h.NrOfFrames)
	return out
}

func parseSubtitlesHeader(r io.Reader) (SubtitlesHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return SubtitlesHeader{}, errors.Wrap(err, "v2h: parseSubtitlesHeader: short read")
	}
	return SubtitlesHeader{NrOfFrames: binary.LittleEndian.Uint16(buf[0:2])}, nil
}

// FrameDataType identifies what a FrameHeader's payload holds.
type FrameDataType uint8

const (
	FramePixels    FrameDataType = 1
	FrameColormap  FrameDataType = 2
	FrameAudio     FrameDataType = 3
	FrameSubtitles FrameDataType = 4
)

// FrameHeader is the 4-byte record preceding every frame's payload.
type FrameHeader struct {
	DataType FrameDataType
	DataSize uint32 // 24 bits
}

func (h FrameHeader) Bytes() ([4]byte, error) {
	if h.DataSize >= 1<<24 {
		return [4]byte{}, errors.Errorf("v2h: FrameHeader.bytes: data_size %d exceeds 24 bits", h.DataSize)
	}
	var out [4]byte
	out[0] = byte(h.DataType)
	out[1] = byte(h.DataSize)
	out[2] = byte(h.DataSize >> 8)
	out[3] = byte(h.DataSize >> 16)
	return out, nil
}

func parseFrameHeader(r io.Reader) (FrameHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return FrameHeader{}, errors.Wrap(err, "v2h: parseFrameHeader: short read")
	}
	return FrameHeader{
		DataType: FrameDataType(buf[0]),
		DataSize: uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16,
	}, nil
}

// ChunkHeader precedes each processing chunk within a frame's payload, as
// prepended by the pipeline engine (spec §4.7, §6.1). Chunks chain until
// one with Final set.
type ChunkHeader struct {
	Type              Processing
	Final             bool
	UncompressedSize  uint32 // 24 bits
}

const finalBit = 0x80

func (h ChunkHeader) Bytes() ([4]byte, error) {
	if h.UncompressedSize >= 1<<24 {
		return [4]byte{}, errors.Errorf("v2h: ChunkHeader.bytes: uncompressed_size %d exceeds 24 bits", h.UncompressedSize)
	}
	var out [4]byte
	out[0] = byte(h.Type)
	if h.Final {
		out[0] |= finalBit
	}
	out[1] = byte(h.UncompressedSize)
	out[2] = byte(h.UncompressedSize >> 8)
	out[3] = byte(h.UncompressedSize >> 16)
	return out, nil
}

func parseChunkHeader(r io.Reader) (ChunkHeader, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return ChunkHeader{}, errors.Wrap(err, "v2h: parseChunkHeader: short read")
	}
	return ChunkHeader{
		Type:             Processing(buf[0] &^ finalBit),
		Final:            buf[0]&finalBit != 0,
		UncompressedSize: uint32(buf[1]) | uint32(buf[2])<<8 | uint32(buf[3])<<16,
	}, nil
}

// ReadChunkChain reads consecutive ChunkHeader+payload records from r
// until one with Final set, decoding ADPCM-coded audio chunks (processing
// code 70) in place via compress/adpcm; all other processing codes are
// returned undecoded for the caller's codec of choice to finish (the
// pixel codecs live in codec/dxtg, codec/dxtv and compress/lzss|rle|rans,
// which operate on whole frames rather than container chunks).
func ReadChunkChain(r io.Reader, log Logger) ([]byte, error) {
	var out []byte
	for {
		ch, err := parseChunkHeader(r)
		if err != nil {
			return nil, fmt.Errorf("v2h: ReadChunkChain: %w", err)
		}
		payload := make([]byte, ch.UncompressedSize)
		if ch.Type == ProcADPCM {
			decoded, err := decodeADPCMChunk(r, int(ch.UncompressedSize))
			if err != nil {
				return nil, fmt.Errorf("v2h: ReadChunkChain: %w", err)
			}
			payload = decoded
		} else {
			if _, err := io.ReadFull(r, payload); err != nil {
				return nil, errors.Wrap(err, "v2h: ReadChunkChain: short chunk payload")
			}
		}
		if log != nil {
			log.Log(0, "v2h: read chunk", "type", ch.Type, "size", len(payload), "final", ch.Final)
		}
		out = append(out, payload...)
		if ch.Final {
			return out, nil
		}
	}
}

// decodeADPCMChunk runs r's next wantBytes ADPCM-coded bytes
// through compress/adpcm.Decoder, producing 16-bit PCM output.
func decodeADPCMChunk(r io.Reader, wantBytes int) ([]byte, error) {
	var out pcmBuffer
	dec := adpcm.NewDecoder(&out)
	buf := make([]byte, wantBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "v2h: decodeADPCMChunk: short read")
	}
	if _, err := dec.Write(buf); err != nil {
		return nil, fmt.Errorf("v2h: decodeADPCMChunk: %w", err)
	}
	return out.buf, nil
}

// pcmBuffer is a minimal io.Writer sink collecting adpcm.Decoder's PCM
// output in memory.
type pcmBuffer struct{ buf []byte }

func (p *pcmBuffer) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	return len(b), nil
}
