// Package adpcm implements the IMA ADPCM transcoding used by the V2H
// container's audio chunk processing code 70 (see container/v2h). It
// compresses 16-bit PCM samples by a factor of 4 using a per-chunk
// adaptive step size, matching the chunked layout a streaming decoder
// with a bounded scratchpad can consume incrementally.
package adpcm

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

const (
	sampleBytes   = 2 // 16-bit PCM samples.
	headSamples   = 2 // samples consumed to seed a chunk's encoder state.
	headSampBytes = headSamples * sampleBytes
	chunkHeadLen  = 8 // chunk length (4) + seed sample (2) + index (1) + pad flag (1).
	sampsPerByte  = 2 // two 4-bit nibbles packed per encoded byte.
	encBytesGroup = sampsPerByte * sampleBytes
	chunkLenBytes = 4
	compressRatio = 4 // nominal PCM:ADPCM byte ratio, ignoring the chunk header.
)

// indexTable maps a decoded nibble to the step-table index adjustment
// (IMA ADPCM standard table).
var indexTable = []int16{
	-1, -1, -1, -1, 2, 4, 6, 8,
	-1, -1, -1, -1, 2, 4, 6, 8,
}

// stepTable is the IMA ADPCM quantizer step-size table, indexed by a
// running state that indexTable nudges up or down per sample.
var stepTable = []int16{
	7, 8, 9, 10, 11, 12, 13, 14,
	16, 17, 19, 21, 23, 25, 28, 31,
	34, 37, 41, 45, 50, 55, 60, 66,
	73, 80, 88, 97, 107, 118, 130, 143,
	157, 173, 190, 209, 230, 253, 279, 307,
	337, 371, 408, 449, 494, 544, 598, 658,
	724, 796, 876, 963, 1060, 1166, 1282, 1411,
	1552, 1707, 1878, 2066, 2272, 2499, 2749, 3024,
	3327, 3660, 4026, 4428, 4871, 5358, 5894, 6484,
	7132, 7845, 8630, 9493, 10442, 11487, 12635, 13899,
	15289, 16818, 18500, 20350, 22385, 24623, 27086, 29794,
	32767,
}

// Encoder transcodes PCM samples to ADPCM, writing chunks to dst.
type Encoder struct {
	dst io.Writer

	est int16 // running sample estimate.
	idx int16 // stepTable index driving the current quantizer step.
}

// Decoder transcodes ADPCM chunks back to PCM, writing samples to dst.
type Decoder struct {
	dst io.Writer

	est  int16
	idx  int16
	step int16
}

// NewEncoder returns an Encoder writing ADPCM chunks to dst.
func NewEncoder(dst io.Writer) *Encoder {
	return &Encoder{dst: dst}
}

// encodeSample quantizes one 16-bit PCM sample against the running
// estimate, returning the 4-bit nibble (sign bit plus 3 magnitude bits)
// and advancing the encoder's estimate and step index.
func (e *Encoder) encodeSample(sample int16) byte {
	delta := capAdd16(sample, -e.est)

	var nib byte
	if delta < 0 {
		nib = 8
		delta = -delta
	}

	step := stepTable[e.idx]
	diff := step >> 3
	var bit byte = 4

	for i := 0; i < 3; i++ {
		if delta > step {
			nib |= bit
			delta = capAdd16(delta, -step)
			diff = capAdd16(diff, step)
		}
		bit >>= 1
		step >>= 1
	}

	if nib&8 != 0 {
		diff = -diff
	}
	e.est = capAdd16(e.est, diff)

	e.idx = clampIndex(e.idx + indexTable[nib&7])

	return nib
}

// writeChunkHead writes a chunk's 2-byte seed sample, 1-byte step index
// and 1-byte pad flag, priming the decoder's state for the nibbles that
// follow.
func (e *Encoder) writeChunkHead(seed []byte, pad bool) (int, error) {
	if len(seed) != sampleBytes {
		return 0, errors.Errorf("adpcm: writeChunkHead: seed is %d bytes, want %d", len(seed), sampleBytes)
	}

	n, err := e.dst.Write(seed)
	if err != nil {
		return n, errors.Wrap(err, "adpcm: writeChunkHead: seed sample")
	}

	m, err := e.dst.Write([]byte{byte(e.idx)})
	n += m
	if err != nil {
		return n, errors.Wrap(err, "adpcm: writeChunkHead: step index")
	}

	padByte := byte(0x00)
	if pad {
		padByte = 0x01
	}
	m, err = e.dst.Write([]byte{padByte})
	n += m
	if err != nil {
		return n, errors.Wrap(err, "adpcm: writeChunkHead: pad flag")
	}
	return n, nil
}

// seedState initializes the estimate to the chunk's first sample and
// picks the stepTable entry closest to half the first two samples'
// difference, the standard IMA ADPCM warm-start heuristic.
func (e *Encoder) seedState(samples []byte) {
	s0 := int16(binary.LittleEndian.Uint16(samples[:sampleBytes]))
	s1 := int16(binary.LittleEndian.Uint16(samples[sampleBytes:headSampBytes]))
	e.est = s0

	halfDiff := math.Abs(float64(s0)-float64(s1)) / 2
	best := math.Abs(float64(stepTable[0]) - halfDiff)
	var bestIdx int16
	for i, step := range stepTable {
		if d := math.Abs(float64(step) - halfDiff); d < best {
			best = d
			bestIdx = int16(i)
		}
	}
	e.idx = bestIdx
}

// Write encodes b, a run of little-endian 16-bit PCM samples, to one
// ADPCM chunk written to e.dst. The chunk is self-contained: a 4-byte
// length prefix, a 2-byte seed sample, the seed's step index, a pad
// flag, then one nibble pair per encoded byte.
func (e *Encoder) Write(b []byte) (int, error) {
	pcmLen := len(b)
	if pcmLen < headSampBytes {
		return 0, errors.Errorf("adpcm: Write: %d PCM bytes, want at least %d", pcmLen, headSampBytes)
	}

	pad := (pcmLen-sampleBytes)%encBytesGroup != 0

	lenField := make([]byte, chunkLenBytes)
	binary.LittleEndian.PutUint32(lenField, uint32(EncBytes(pcmLen)))
	n, err := e.dst.Write(lenField)
	if err != nil {
		return n, errors.Wrap(err, "adpcm: Write: chunk length")
	}

	e.seedState(b[:headSampBytes])
	m, err := e.writeChunkHead(b[:sampleBytes], pad)
	n += m
	if err != nil {
		return n, err
	}

	// The seed sample is consumed by seedState; every remaining pair of
	// samples packs into one byte of two nibbles.
	for i := sampleBytes; i+encBytesGroup-1 < pcmLen; i += encBytesGroup {
		lo := e.encodeSample(int16(binary.LittleEndian.Uint16(b[i : i+sampleBytes])))
		hi := e.encodeSample(int16(binary.LittleEndian.Uint16(b[i+sampleBytes : i+encBytesGroup])))
		m, err := e.dst.Write([]byte{byte((hi << 4) | lo)})
		n += m
		if err != nil {
			return n, errors.Wrap(err, "adpcm: Write: nibble pair")
		}
	}
	if pad {
		nib := e.encodeSample(int16(binary.LittleEndian.Uint16(b[pcmLen-sampleBytes : pcmLen])))
		m, err := e.dst.Write([]byte{nib})
		n += m
		if err != nil {
			return n, errors.Wrap(err, "adpcm: Write: trailing nibble")
		}
	}
	return n, nil
}

// NewDecoder returns a Decoder writing PCM samples to dst.
func NewDecoder(dst io.Writer) *Decoder {
	return &Decoder{dst: dst}
}

// decodeSample reverses encodeSample: it reconstructs the next PCM
// sample from a 4-bit nibble and advances the decoder's state the same
// way the encoder that produced it did.
func (d *Decoder) decodeSample(nibble byte) int16 {
	var diff int16
	if nibble&4 != 0 {
		diff = capAdd16(diff, d.step)
	}
	if nibble&2 != 0 {
		diff = capAdd16(diff, d.step>>1)
	}
	if nibble&1 != 0 {
		diff = capAdd16(diff, d.step>>2)
	}
	diff = capAdd16(diff, d.step>>3)

	if nibble&8 != 0 {
		diff = -diff
	}
	d.est = capAdd16(d.est, diff)

	d.idx = clampIndex(d.idx + indexTable[nibble])
	d.step = stepTable[d.idx]

	return d.est
}

// Write decodes b, a run of concatenated ADPCM chunks, writing the
// reconstructed little-endian 16-bit PCM samples to d.dst.
func (d *Decoder) Write(b []byte) (int, error) {
	var n int
	var chunkLen int
	for off := 0; off+chunkHeadLen <= len(b); off += chunkLen {
		chunkLen = int(binary.LittleEndian.Uint32(b[off : off+chunkLenBytes]))
		if off+chunkLen > len(b) {
			break
		}

		d.est = int16(binary.LittleEndian.Uint16(b[off+chunkLenBytes : off+chunkLenBytes+sampleBytes]))
		d.idx = int16(b[off+chunkLenBytes+sampleBytes])
		d.step = stepTable[d.idx]
		m, err := d.dst.Write(b[off+chunkLenBytes : off+chunkLenBytes+sampleBytes])
		n += m
		if err != nil {
			return n, errors.Wrap(err, "adpcm: Decoder.Write: seed sample")
		}

		padFlag := b[off+chunkLenBytes+3]
		for i := off + chunkHeadLen; i < off+chunkLen-int(padFlag); i++ {
			packed := b[i]
			hi := packed >> 4
			lo := (hi << 4) ^ packed

			loSamp := make([]byte, sampleBytes)
			binary.LittleEndian.PutUint16(loSamp, uint16(d.decodeSample(lo)))
			m, err := d.dst.Write(loSamp)
			n += m
			if err != nil {
				return n, errors.Wrap(err, "adpcm: Decoder.Write: sample")
			}

			hiSamp := make([]byte, sampleBytes)
			binary.LittleEndian.PutUint16(hiSamp, uint16(d.decodeSample(hi)))
			m, err = d.dst.Write(hiSamp)
			n += m
			if err != nil {
				return n, errors.Wrap(err, "adpcm: Decoder.Write: sample")
			}
		}
		if padFlag == 0x01 {
			trailing := b[off+chunkLen-1]
			samp := make([]byte, sampleBytes)
			binary.LittleEndian.PutUint16(samp, uint16(d.decodeSample(trailing)))
			m, err := d.dst.Write(samp)
			n += m
			if err != nil {
				return n, errors.Wrap(err, "adpcm: Decoder.Write: trailing sample")
			}
		}
	}
	return n, nil
}

// clampIndex keeps a stepTable index within bounds after an indexTable
// adjustment.
func clampIndex(idx int16) int16 {
	if idx < 0 {
		return 0
	}
	if last := int16(len(stepTable) - 1); idx > last {
		return last
	}
	return idx
}

// capAdd16 adds two int16s, saturating at int16's bounds instead of
// wrapping on overflow.
func capAdd16(a, b int16) int16 {
	c := int32(a) + int32(b)
	switch {
	case c < math.MinInt16:
		return math.MinInt16
	case c > math.MaxInt16:
		return math.MaxInt16
	default:
		return int16(c)
	}
}

// EncBytes returns the ADPCM chunk size, in bytes, that encoding n bytes
// of PCM produces: a chunk-length prefix and seed header, plus one
// nibble per remaining sample packed two to a byte.
func EncBytes(n int) int {
	if n%encBytesGroup == 0 {
		return (n-sampleBytes)/compressRatio + chunkHeadLen + 1
	}
	return (n-sampleBytes)/compressRatio + chunkHeadLen
}
