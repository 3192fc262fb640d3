// Package rle implements the run-length encoding of spec §4.6.1: a stream
// of blocks, each either a literal run or a byte repetition. The minimum
// beneficial repetition length is fixed at 3 (spec §9 resolves the
// documented ambiguity between "3" and a computed value in favor of the
// literal constant 3).
package rle

import "fmt"

const (
	minRepeat    = 3
	maxRepeat    = minRepeat + 127 // len field is 7 bits.
	maxLiteral   = 128             // len field is 7 bits, +1.
	literalFlag  = 0x00
	repeatFlag   = 0x80
	lenFieldMask = 0x7f
)

// Encode run-length encodes src. minRun is the shortest identical-byte run
// worth spending a repetition block on rather than literal bytes; ties
// between a literal run and a repetition block are broken in favor of
// emitting a repetition as soon as a run of minRun or more identical bytes
// is found, matching the decoder's block framing exactly (spec §8 scenario
// 3 permits either of several valid splits; this is one of them).
//
// The wire format's repetition length field always stores a count biased
// by minRepeat (3), independent of minRun: minRun only raises the bar for
// when a repetition block is worth emitting at all, e.g. to skip runs too
// short to beat the 2-byte block overhead in a particular caller's data.
// minRun below minRepeat is clamped up to it, since the field can't encode
// a shorter repetition than the wire format's floor.
func Encode(src []byte, minRun int) []byte {
	if minRun < minRepeat {
		minRun = minRepeat
	}
	var out []byte
	i := 0
	for i < len(src) {
		runEnd := runLength(src, i)
		if runEnd-i >= minRun {
			out = append(out, repeatFlag|byte(runEnd-i-minRepeat), src[i])
			i = runEnd
			continue
		}

		litStart := i
		for i < len(src) && i-litStart < maxLiteral {
			end := runLength(src, i)
			if end-i >= minRun {
				break
			}
			i++
		}
		lit := src[litStart:i]
		out = append(out, byte(len(lit)-1))
		out = append(out, lit...)
	}
	return out
}

// runLength returns the index just past the run of identical bytes
// starting at i, capped at maxRepeat bytes.
func runLength(src []byte, i int) int {
	j := i + 1
	for j < len(src) && src[j] == src[i] && j-i < maxRepeat {
		j++
	}
	return j
}

// Decode reverses Encode.
func Decode(src []byte) ([]byte, error) {
	var out []byte
	i := 0
	for i < len(src) {
		tag := src[i]
		i++
		if tag&repeatFlag != 0 {
			count := int(tag&lenFieldMask) + minRepeat
			if i >= len(src) {
				return nil, fmt.Errorf("rle: Decode: truncated repetition block at offset %d", i)
			}
			b := src[i]
			i++
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
			continue
		}
		count := int(tag) + 1
		if i+count > len(src) {
			return nil, fmt.Errorf("rle: Decode: truncated literal block at offset %d", i)
		}
		out = append(out, src[i:i+count]...)
		i += count
	}
	return out, nil
}
