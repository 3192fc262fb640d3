// Package csource emits GBA-ready C source (spec §6.2): a header file
// declaring sizing macros and extern array declarations, and a matching
// source file with the actual data and an alignment directive. Style
// mirrors the rest of this module's encode-to-writer packages; nothing
// here is grounded on a teacher file directly (ausocean-av has no C
// codegen), so it follows the general Go convention of building output
// with strings.Builder and returning it fully formed.
package csource

import (
	"fmt"
	"strings"
)

// Image is one source image's data plus, optionally, the start index of
// each of its constituent images/tiles when Data packs more than one.
type Image struct {
	Name string

	Width, Height int
	BytesPerImage int // or BytesPerTile, for a tiled source
	NrOfImages    int // or NrOfTiles

	// Data is the final, already-pipeline-processed byte payload, to be
	// emitted as a sequence of u32 words (spec: "alignment directive
	// equivalent to 4-byte alignment").
	Data []byte

	// Palette is optional; when non-nil it is emitted as a second array
	// of 16-bit color entries.
	Palette []uint16

	// StartIndices, when non-nil, is emitted as a per-image/per-tile
	// offset array: word offsets into Data for pixel data, half-word
	// offsets into Palette for per-image palettes.
	StartIndices []uint32
}

// Emit returns the <name>.h and <name>.c file contents for img.
func Emit(img Image) (header, source string, err error) {
	if len(img.Data)%4 != 0 {
		return "", "", fmt.Errorf("csource: Emit: data length %d is not a multiple of 4", len(img.Data))
	}

	upper := strings.ToUpper(sanitizeIdent(img.Name))
	dataWords := len(img.Data) / 4

	var h strings.Builder
	fmt.Fprintf(&h, "#ifndef %s_H\n#define %s_H\n\n", upper, upper)
	fmt.Fprintf(&h, "#define %s_WIDTH %d\n", upper, img.Width)
	fmt.Fprintf(&h, "#define %s_HEIGHT %d\n", upper, img.Height)
	fmt.Fprintf(&h, "#define %s_BYTES_PER_IMAGE %d\n", upper, img.BytesPerImage)
	fmt.Fprintf(&h, "#define %s_DATA_SIZE %d\n", upper, dataWords)
	fmt.Fprintf(&h, "#define %s_NR_OF_IMAGES %d\n", upper, img.NrOfImages)
	if img.Palette != nil {
		fmt.Fprintf(&h, "#define %s_PALETTE_LENGTH %d\n", upper, len(img.Palette))
		fmt.Fprintf(&h, "#define %s_PALETTE_SIZE %d\n", upper, len(img.Palette)*2)
	}
	h.WriteString("\n")
	fmt.Fprintf(&h, "extern const unsigned int %s_data[%d];\n", sanitizeIdent(img.Name), dataWords)
	if img.Palette != nil {
		fmt.Fprintf(&h, "extern const unsigned short %s_palette[%d];\n", sanitizeIdent(img.Name), len(img.Palette))
	}
	if img.StartIndices != nil {
		fmt.Fprintf(&h, "extern const unsigned int %s_start[%d];\n", sanitizeIdent(img.Name), len(img.StartIndices))
	}
	fmt.Fprintf(&h, "\n#endif // %s_H\n", upper)

	var c strings.Builder
	fmt.Fprintf(&c, "#include \"%s.h\"\n\n", sanitizeIdent(img.Name))
	fmt.Fprintf(&c, "__attribute__((aligned(4)))\nconst unsigned int %s_data[%d] = {\n", sanitizeIdent(img.Name), dataWords)
	writeWords(&c, img.Data)
	c.WriteString("};\n")

	if img.Palette != nil {
		fmt.Fprintf(&c, "\n__attribute__((aligned(4)))\nconst unsigned short %s_palette[%d] = {\n", sanitizeIdent(img.Name), len(img.Palette))
		writeHalfWords(&c, img.Palette)
		c.WriteString("};\n")
	}

	if img.StartIndices != nil {
		fmt.Fprintf(&c, "\n__attribute__((aligned(4)))\nconst unsigned int %s_start[%d] = {\n", sanitizeIdent(img.Name), len(img.StartIndices))
		writeUint32s(&c, img.StartIndices)
		c.WriteString("};\n")
	}

	return h.String(), c.String(), nil
}

func sanitizeIdent(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

const wordsPerLine = 8

func writeWords(b *strings.Builder, data []byte) {
	for i := 0; i < len(data); i += 4 {
		w := uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24
		fmt.Fprintf(b, "0x%08x,", w)
		if (i/4+1)%wordsPerLine == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
}

func writeHalfWords(b *strings.Builder, data []uint16) {
	for i, w := range data {
		fmt.Fprintf(b, "0x%04x,", w)
		if (i+1)%wordsPerLine == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
}

func writeUint32s(b *strings.Builder, data []uint32) {
	for i, w := range data {
		fmt.Fprintf(b, "0x%08x,", w)
		if (i+1)%wordsPerLine == 0 {
			b.WriteString("\n")
		} else {
			b.WriteString(" ")
		}
	}
	b.WriteString("\n")
}
