// Package delta implements the invertible delta-8 and delta-16 byte
// transforms of spec §4.5, used to make DXTV/DXTG key-frame data and
// inter-frame diffs friendlier to the downstream LZ/RLE/rANS coders.
package delta

import (
	"encoding/binary"
	"fmt"
)

// Encode8 emits x0, x1-x0, x2-x1, ... modulo 256.
func Encode8(src []byte) []byte {
	out := make([]byte, len(src))
	var prev byte
	for i, b := range src {
		out[i] = b - prev
		prev = b
	}
	return out
}

// Decode8 is the inverse of Encode8.
func Decode8(src []byte) []byte {
	out := make([]byte, len(src))
	var prev byte
	for i, d := range src {
		prev += d
		out[i] = prev
	}
	return out
}

// Encode16 is Encode8's 16-bit little-endian analogue. Requires an even
// byte count.
func Encode16(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("delta: Encode16: odd byte count %d", len(src))
	}
	out := make([]byte, len(src))
	var prev uint16
	for i := 0; i < len(src); i += 2 {
		v := binary.LittleEndian.Uint16(src[i:])
		binary.LittleEndian.PutUint16(out[i:], v-prev)
		prev = v
	}
	return out, nil
}

// Decode16 is the inverse of Encode16.
func Decode16(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("delta: Decode16: odd byte count %d", len(src))
	}
	out := make([]byte, len(src))
	var prev uint16
	for i := 0; i < len(src); i += 2 {
		d := binary.LittleEndian.Uint16(src[i:])
		prev += d
		binary.LittleEndian.PutUint16(out[i:], prev)
	}
	return out, nil
}
