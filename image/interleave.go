package image

import "fmt"

// InterleaveImages combines same-sized raw pixel byte slices from several
// images into one interleaved stream, the way the GBA video player expects
// consecutive frames' data stored side by side for fast per-scanline
// access (spec §6.3's --interleavedata flag; step StepInterleavePixels in
// the canonical ordering). bitsPerPixel selects the packing granularity:
// 4 (two images' nibbles share a byte), 8 (one byte per image per pixel),
// or 15/16 (one uint16 per image per pixel).
func InterleaveImages(data [][]byte, bitsPerPixel int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	n := len(data[0])
	for i, d := range data {
		if len(d) != n {
			return nil, fmt.Errorf("InterleaveImages: image %d has %d bytes, want %d", i, len(d), n)
		}
	}

	switch bitsPerPixel {
	case 4:
		if len(data)%2 != 0 {
			return nil, fmt.Errorf("InterleaveImages: bitsPerPixel=4 requires an even number of images, got %d", len(data))
		}
		out := make([]byte, 0, n*len(data)/2)
		for pi := 0; pi < n; pi++ {
			for di := 0; di < len(data); di += 2 {
				lo := data[di][pi] & 0x0F
				hi := data[di+1][pi] & 0x0F
				out = append(out, lo|hi<<4)
			}
		}
		return out, nil

	case 8:
		out := make([]byte, 0, n*len(data))
		for pi := 0; pi < n; pi++ {
			for _, d := range data {
				out = append(out, d[pi])
			}
		}
		return out, nil

	case 15, 16:
		if n%2 != 0 {
			return nil, fmt.Errorf("InterleaveImages: bitsPerPixel=%d requires an even byte count, got %d", bitsPerPixel, n)
		}
		out := make([]byte, 0, n*len(data))
		for pi := 0; pi < n; pi += 2 {
			for _, d := range data {
				out = append(out, d[pi], d[pi+1])
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("InterleaveImages: bitsPerPixel must be 4, 8 or 16, got %d", bitsPerPixel)
	}
}
