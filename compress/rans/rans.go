// Package rans implements the static-table rANS codec of spec §4.6.2: a
// 256-symbol range coder with a frequency table computed once per stream
// and shipped alongside it, rather than an adaptive model.
//
// Parameters fixed by the spec: total frequency M = 2^14, renormalization
// interval L = 2^23, 8-bit renormalization radix.
//
// The header's on-disk frequency table is one byte per symbol (256 bytes),
// which spec §9 notes as "the legacy single-byte frequency format" chosen
// over a two-byte mode. A single byte can't hold an M=2^14-scaled
// frequency directly, so this package resolves that by storing a coarse
// 256-summing weight profile on disk and having both encoder and decoder
// independently re-expand it to the full M-summing table by a fixed ×64
// scale (256*64 == M exactly, so the expansion introduces no further
// rounding ambiguity beyond the one already resolved when the profile
// itself was built). This is recorded as an implementation decision, not
// read from the spec text, which does not spell out the expansion.
package rans

import (
	"bytes"
	"fmt"

	"github.com/icza/bitio"
)

const (
	log2M   = 14
	m       = 1 << log2M  // 16384
	rLow    = 1 << 23     // renormalization lower bound
	profile = 256         // on-disk byte-weight profile sums to this
	scale   = m / profile // 64

	headerTag = 0x40
)

// BuildFreqTable computes the on-disk 256-byte weight profile for src,
// using largest-remainder rounding so symbols present in src never round
// to a zero weight (spec: "rounding error distributed deterministically
// to the largest bins").
func BuildFreqTable(src []byte) [256]byte {
	var counts [256]int
	for _, b := range src {
		counts[b]++
	}
	total := len(src)
	var weight [256]byte
	if total == 0 {
		return weight
	}

	var rems []binStat
	sum := 0
	for s := 0; s < 256; s++ {
		if counts[s] == 0 {
			continue
		}
		raw := float64(counts[s]) * profile / float64(total)
		fl := int(raw)
		w := fl
		if w < 1 {
			w = 1
		}
		if w > 255 {
			// A byte can express weight at most 255; the shortfall is
			// made up below by awarding it to a phantom, never-decoded
			// symbol, since a single byte value can otherwise dominate
			// the whole source (e.g. a solid-colour frame).
			w = 255
		}
		weight[s] = byte(w)
		sum += w
		rems = append(rems, binStat{sym: s, count: counts[s], frac: raw - float64(fl)})
	}

	diff := profile - sum
	if diff == 0 || len(rems) == 0 {
		return weight
	}
	sortBinsDesc(rems)
	if diff > 0 {
		for i := 0; diff > 0 && i < len(rems)*2; i++ {
			r := rems[i%len(rems)]
			if weight[r.sym] >= 255 {
				continue
			}
			weight[r.sym]++
			diff--
		}
		// Every present bin is already saturated at 255 (only possible
		// with a single distinct symbol in src): park the remainder on
		// phantom, absent symbols so Σ weight stays exactly `profile`.
		// These slots are never selected by encode/decode since no
		// input byte maps to them; they just cost unused table space.
		for phantom := 0; diff > 0; phantom = (phantom + 1) % 256 {
			if counts[phantom] != 0 {
				continue
			}
			if weight[phantom] >= 255 {
				continue
			}
			weight[phantom]++
			diff--
		}
		return weight
	}
	// diff < 0: trim in the same largest-remainder-first order, never below
	// weight 1.
	for i := 0; diff < 0; i++ {
		r := rems[i%len(rems)]
		if weight[r.sym] > 1 {
			weight[r.sym]--
			diff++
		}
	}
	return weight
}

// binStat is a present symbol's rounding remainder, used to pick a
// deterministic, fixed tie-break order for distributing rounding error.
type binStat struct {
	sym   int
	count int
	frac  float64
}

// sortBinsDesc orders by fractional remainder desc, then raw count desc,
// then symbol value asc, so two callers with the same histogram always
// agree on which bins absorb rounding error.
func sortBinsDesc(r []binStat) {
	for i := 1; i < len(r); i++ {
		for j := i; j > 0 && binLess(r[j], r[j-1]); j-- {
			r[j], r[j-1] = r[j-1], r[j]
		}
	}
}

func binLess(a, b binStat) bool {
	if a.frac != b.frac {
		return a.frac > b.frac
	}
	if a.count != b.count {
		return a.count > b.count
	}
	return a.sym < b.sym
}

// expand turns the on-disk 256-summing weight profile into the M-summing
// coding frequency table plus cumulative start offsets.
func expand(weight [256]byte) (freq [256]uint16, start [256]uint16) {
	var cum uint16
	for s := 0; s < 256; s++ {
		f := uint16(weight[s]) * scale
		freq[s] = f
		start[s] = cum
		cum += f
	}
	return freq, start
}

// buildSymbolTable maps each of the M renormalized slots to its symbol.
func buildSymbolTable(freq, start [256]uint16) []byte {
	table := make([]byte, m)
	for s := 0; s < 256; s++ {
		for i := uint16(0); i < freq[s]; i++ {
			table[start[s]+i] = byte(s)
		}
	}
	return table
}

// Encode rANS-codes src, prefixing the 4-byte header (uncompressed
// size<<8 | 0x40) and the 256-byte frequency profile, and zero-padding the
// result to a multiple of 4 bytes.
func Encode(src []byte) []byte {
	weight := BuildFreqTable(src)
	freq, start := expand(weight)

	body := encodeBody(src, freq, start)

	var out bytes.Buffer
	header := uint32(headerTag) | uint32(len(src))<<8
	out.WriteByte(byte(header))
	out.WriteByte(byte(header >> 8))
	out.WriteByte(byte(header >> 16))
	out.WriteByte(byte(header >> 24))
	out.Write(weight[:])
	out.Write(body)

	buf := out.Bytes()
	for len(buf)%4 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

func encodeBody(src []byte, freq, start [256]uint16) []byte {
	x := uint32(rLow)
	var acc []byte
	for i := len(src) - 1; i >= 0; i-- {
		s := src[i]
		f := uint32(freq[s])
		xmax := (uint32(rLow) >> log2M << 8) * f
		var step []byte
		for x >= xmax {
			step = append(step, byte(x&0xff))
			x >>= 8
		}
		// Bytes emitted later within this step must be consumed by the
		// decoder first (rANS renormalization is a stack), so reverse
		// before splicing into the forward stream.
		for a, b := 0, len(step)-1; a < b; a, b = a+1, b-1 {
			step[a], step[b] = step[b], step[a]
		}
		acc = append(step, acc...)
		x = (x/f)<<log2M + x%f + uint32(start[s])
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	for i := 0; i < 4; i++ {
		w.WriteBits(uint64(byte(x>>(8*uint(i)))), 8)
	}
	for _, b := range acc {
		w.WriteBits(uint64(b), 8)
	}
	w.Close()
	return out.Bytes()
}

// Decode reverses Encode.
func Decode(data []byte) ([]byte, error) {
	if len(data) < 4+256 {
		return nil, fmt.Errorf("rans: Decode: truncated header")
	}
	header := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	if byte(header) != headerTag {
		return nil, fmt.Errorf("rans: Decode: wrong tag byte %#x, want %#x", byte(header), headerTag)
	}
	size := int(header >> 8)

	var weight [256]byte
	copy(weight[:], data[4:4+256])
	freq, start := expand(weight)
	symTable := buildSymbolTable(freq, start)

	r := bitio.NewReader(bytes.NewReader(data[4+256:]))
	var xb [4]uint64
	for i := range xb {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, fmt.Errorf("rans: Decode: reading initial state: %w", err)
		}
		xb[i] = v
	}
	x := uint32(xb[0]) | uint32(xb[1])<<8 | uint32(xb[2])<<16 | uint32(xb[3])<<24

	out := make([]byte, 0, size)
	for len(out) < size {
		slot := x & (m - 1)
		s := symTable[slot]
		x = uint32(freq[s])*(x>>log2M) + slot - uint32(start[s])
		for x < rLow {
			v, err := r.ReadBits(8)
			if err != nil {
				return nil, fmt.Errorf("rans: Decode: truncated stream after %d symbols: %w", len(out), err)
			}
			x = x<<8 | uint32(v)
		}
		out = append(out, s)
	}
	return out, nil
}
