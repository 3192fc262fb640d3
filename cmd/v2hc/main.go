// Command v2hc converts a BMP source image (or sequence of them) into a
// V2H container or C-source array pair, driving the pipeline/, palette/,
// quant/, delta/, compress/ and codec/ packages according to the flags
// below. Its flag surface, version flag, and lumberjack/logging wiring
// follow the shape of the teacher's rv command.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/utils/logging"

	"github.com/retrogba/v2h/codec/dxtg"
	"github.com/retrogba/v2h/codec/dxtv"
	"github.com/retrogba/v2h/color"
	v2hcontainer "github.com/retrogba/v2h/container/v2h"
	"github.com/retrogba/v2h/compress/lzss"
	"github.com/retrogba/v2h/compress/rle"
	"github.com/retrogba/v2h/delta"
	"github.com/retrogba/v2h/emit/csource"
	"github.com/retrogba/v2h/image"
	"github.com/retrogba/v2h/internal/config"
	"github.com/retrogba/v2h/palette"
)

const version = "v0.1.0"

const (
	logPath      = "v2hc.log"
	logMaxSize   = 50 // MB
	logMaxBackup = 5
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = false
)

// Exit codes (spec §6.3).
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("v2hc", flag.ContinueOnError)

	showVersion := fs.Bool("version", false, "show version")
	in := fs.String("in", "", "input BMP file path, or comma-separated sequence for multi-frame input")
	out := fs.String("out", "", "output file path (.v2h container, or base name for --csource)")
	csourceOut := fs.Bool("csource", false, "emit <out>.h/<out>.c instead of a .v2h container")

	reorderColors := fs.Bool("reordercolors", false, "reorder the palette for perceptual similarity")
	addColor0 := fs.String("addcolor0", "", "insert RRGGBB as palette entry 0")
	moveColor0 := fs.String("movecolor0", "", "move RRGGBB to palette entry 0")
	shift := fs.Int("shift", 0, "shift all palette indices by N")
	prune := fs.Int("prune", 0, "prune index width to {1|2|4} bits")

	tiles := fs.Bool("tiles", false, "reorder pixel data into 8x8 tiles")
	sprites := fs.String("sprites", "", "reorder pixel data into WxH sprites, e.g. 16,16")
	tilemap := fs.Bool("tilemap", false, "deduplicate 8x8 tiles across all input frames into a tile store and screen-map")
	tilemapFlips := fs.Bool("tilemap-detectflips", false, "when building a tilemap, recognize horizontally/vertically flipped duplicate tiles")
	interleave := fs.Bool("interleavedata", false, "interleave same-sized frames' pixel data for fast per-scanline playback")

	delta8 := fs.Bool("delta8", false, "apply 8-bit delta coding before compression")
	delta16 := fs.Bool("delta16", false, "apply 16-bit delta coding before compression")
	useRLE := fs.Bool("rle", false, "compress with RLE")
	useLZ10 := fs.Bool("lz10", false, "compress with LZSS-10")
	useLZ11 := fs.Bool("lz11", false, "compress with LZSS-11")
	vram := fs.Bool("vram", false, "forbid LZSS back-reference offset==1 (VRAM-safe)")

	swapRB := fs.Bool("swapredblue", false, "source truecolor data is BGR-ordered: swap to RGB on load and flag the container header")

	useDXTG := fs.Bool("dxtg", false, "encode as intra-frame DXTG blocks instead of delta/RLE/LZSS")
	dxtvFlag := fs.String("dxtv", "", "encode as inter-frame DXTV, error_threshold,keyframe_interval (e.g. 64,30)")
	gvid := fs.Bool("gvid", false, "encode with GVID (not implemented; returns a usage error)")

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *showVersion {
		fmt.Println(version)
		return exitOK
	}

	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(fileLog, os.Stderr), logSuppress)
	log.Info("starting v2hc", "version", version)

	if *in == "" || *out == "" {
		log.Error("missing required flag", "in", *in, "out", *out)
		return exitUsage
	}
	if *gvid {
		log.Error("gvid encoding is not implemented")
		return exitUsage
	}

	dxtvErr, dxtvKeyInterval, err := parseDXTVFlag(*dxtvFlag)
	if err != nil {
		log.Error("invalid --dxtv", "error", err)
		return exitUsage
	}

	cfg := config.New(
		WithStepsFromFlags(*reorderColors, *addColor0 != "", *moveColor0 != "", *shift != 0, *prune != 0, *tiles, *sprites != "", *delta8, *delta16, *useRLE, *useLZ10, *useLZ11),
		config.WithLZSS(*vram, *useLZ11),
		config.WithDXTV(dxtvErr, dxtvKeyInterval),
		config.WithSwappedRedBlue(*swapRB),
	)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return exitUsage
	}

	frames, err := loadBMPs(strings.Split(*in, ","), cfg.SwappedRedBlue)
	if err != nil {
		log.Error("failed to load input", "error", err)
		return exitRuntime
	}

	for _, fr := range frames {
		if *reorderColors {
			if err := palette.ReorderForSimilarity(fr); err != nil {
				log.Error("pipeline step failed", "error", err)
				return exitRuntime
			}
		}
		if err := applySteps(fr, *addColor0, *moveColor0, *shift, *prune, *tiles, *sprites); err != nil {
			log.Error("pipeline step failed", "error", err)
			return exitRuntime
		}
	}

	var payload []byte
	var code v2hcontainer.Processing
	var screenMap []byte

	switch {
	case *tilemap:
		tm, body, c, sm, err := buildAndPackTileMap(frames, *tilemapFlips)
		if err != nil {
			log.Error("tilemap build failed", "error", err)
			return exitRuntime
		}
		log.Info("tilemap built", "tiles", len(tm.Store), "screen entries", len(tm.ScreenMap))
		payload, code, screenMap = body, c, sm

	case *useDXTG:
		body, err := encodeDXTG(frames[0])
		if err != nil {
			log.Error("dxtg encode failed", "error", err)
			return exitRuntime
		}
		payload, code = body, v2hcontainer.ProcUncompressed

	case *dxtvFlag != "":
		body, err := encodeDXTV(frames, dxtvErr, dxtvKeyInterval)
		if err != nil {
			log.Error("dxtv encode failed", "error", err)
			return exitRuntime
		}
		payload, code = body, v2hcontainer.ProcDXTV

	case *interleave && len(frames) > 1:
		body, c, err := compressAndPack(interleavedBody(frames, log), cfg)
		if err != nil {
			log.Error("compression failed", "error", err)
			return exitRuntime
		}
		payload, code = body, c

	default:
		raw, err := frames[0].Pixels.Bytes()
		if err != nil {
			log.Error("failed to read pixel bytes", "error", err)
			return exitRuntime
		}
		body, c, err := compressAndPack(raw, cfg)
		if err != nil {
			log.Error("compression failed", "error", err)
			return exitRuntime
		}
		payload, code = body, c
	}

	ch, err := v2hcontainer.ChunkHeader{Type: code, Final: true, UncompressedSize: uint32(len(payload))}.Bytes()
	if err != nil {
		log.Error("failed to build chunk header", "error", err)
		return exitRuntime
	}
	chunked := append(append([]byte{}, ch[:]...), payload...)

	if *csourceOut {
		if err := writeCSource(*out, frames[0], len(frames), chunked, screenMap); err != nil {
			log.Error("failed to write C source", "error", err)
			return exitRuntime
		}
	} else {
		if err := writeContainer(*out, frames[0], len(frames), chunked, screenMap, cfg.SwappedRedBlue); err != nil {
			log.Error("failed to write container", "error", err)
			return exitRuntime
		}
	}

	log.Info("done", "out", *out)
	return exitOK
}

// parseDXTVFlag parses "error,keyframe_interval"; an empty string disables
// DXTV and returns the zero values.
func parseDXTVFlag(s string) (errThreshold float64, keyFrameInterval int, err error) {
	if s == "" {
		return 0, 0, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parseDXTVFlag: %q must be error,keyframe_interval", s)
	}
	errThreshold, err = strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parseDXTVFlag: %w", err)
	}
	keyFrameInterval, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parseDXTVFlag: %w", err)
	}
	return errThreshold, keyFrameInterval, nil
}

// WithStepsFromFlags assembles the canonical-ordered step list the CLI's
// chosen flags imply.
func WithStepsFromFlags(reorder, add0, move0, shift, prune, tiles, sprites, d8, d16, rle, lz10, lz11 bool) config.Option {
	var steps []config.StepName
	if reorder {
		steps = append(steps, config.StepReorderColors)
	}
	if add0 || move0 {
		steps = append(steps, config.StepAdd0OrMove0)
	}
	if shift {
		steps = append(steps, config.StepShiftIndices)
	}
	if prune {
		steps = append(steps, config.StepPruneIndices)
	}
	if sprites {
		steps = append(steps, config.StepSprites)
	} else if tiles {
		steps = append(steps, config.StepTiles)
	}
	if d8 {
		steps = append(steps, config.StepDelta8)
	}
	if d16 {
		steps = append(steps, config.StepDelta16)
	}
	if rle {
		steps = append(steps, config.StepRLE)
	}
	if lz11 {
		steps = append(steps, config.StepLZSS11)
	} else if lz10 {
		steps = append(steps, config.StepLZSS10)
	}
	steps = append(steps, config.StepEmit)
	return config.WithSteps(steps...)
}

func loadBMPs(paths []string, swapRB bool) ([]*image.Frame, error) {
	frames := make([]*image.Frame, 0, len(paths))
	for _, p := range paths {
		fr, err := loadBMP(strings.TrimSpace(p), swapRB)
		if err != nil {
			return nil, err
		}
		frames = append(frames, fr)
	}
	return frames, nil
}

// loadBMP decodes path into a Frame. When swapRB is set, the source is
// treated as BGR-ordered truecolor data (a hardware capture quirk some
// devices exhibit) and its red/blue channels are swapped back to RGB
// before storage; the caller is expected to also set the container
// header's SwappedRedBlue flag so a reader knows the swap has already
// been applied.
func loadBMP(path string, swapRB bool) (*image.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loadBMP: %w", err)
	}
	defer f.Close()

	img, err := bmp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loadBMP: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	fr := image.New(color.XRGB8888, w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			c := color.RGB888{R: byte(r >> 8), G: byte(g >> 8), B: byte(b >> 8)}
			if swapRB {
				c.R, c.B = c.B, c.R
			}
			if err := fr.Pixels.SetRGB888At(y*w+x, c); err != nil {
				return nil, fmt.Errorf("loadBMP: %w", err)
			}
		}
	}
	return fr, nil
}

func parseHex6(s string) (color.RGB888, error) {
	if len(s) != 6 {
		return color.RGB888{}, fmt.Errorf("parseHex6: %q is not 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGB888{}, fmt.Errorf("parseHex6: %w", err)
	}
	return color.RGB888{R: byte(v >> 16), G: byte(v >> 8), B: byte(v)}, nil
}

func applySteps(fr *image.Frame, addColor0, moveColor0 string, shift, prune int, tiles bool, sprites string) error {
	if addColor0 != "" {
		c, err := parseHex6(addColor0)
		if err != nil {
			return err
		}
		if err := palette.AddColorAt0(fr, c); err != nil {
			return err
		}
	}
	if moveColor0 != "" {
		c, err := parseHex6(moveColor0)
		if err != nil {
			return err
		}
		if err := palette.MoveColorAt0(fr, c); err != nil {
			return err
		}
	}
	if shift != 0 {
		if err := palette.ShiftIndices(fr, shift); err != nil {
			return err
		}
	}
	if prune != 0 {
		if err := palette.PruneIndices(fr, prune); err != nil {
			return err
		}
	}
	if sprites != "" {
		w, h, err := parseDims(sprites)
		if err != nil {
			return err
		}
		out, err := image.ToSprites(fr, w, h)
		if err != nil {
			return err
		}
		*fr = *out
	} else if tiles {
		out, err := image.ToTiles(fr, 8, 8)
		if err != nil {
			return err
		}
		*fr = *out
	}
	return nil
}

func parseDims(s string) (int, int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("parseDims: %q must be W,H", s)
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parseDims: %w", err)
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parseDims: %w", err)
	}
	return w, h, nil
}

// interleavedBody combines every frame's raw pixel bytes with
// image.InterleaveImages. Unlike the canonical step ordering, which places
// interleave-pixels after LZSS/RLE, this operates on the frames' raw bytes
// (matching the original tool's combineImageData, which interleaves
// uncompressed per-frame arrays): the combined blob is then what feeds the
// delta/RLE/LZSS chain below, so the two orderings coincide whenever no
// byte-compression step is also requested.
func interleavedBody(frames []*image.Frame, log logging.Logger) []byte {
	raws := make([][]byte, len(frames))
	for i, fr := range frames {
		b, err := fr.Pixels.Bytes()
		if err != nil {
			log.Error("interleavedBody: reading frame bytes", "index", i, "error", err)
			return nil
		}
		raws[i] = b
	}
	bpp := color.BitsPerPixel(frames[0].Pixels.Format)
	out, err := image.InterleaveImages(raws, bpp)
	if err != nil {
		log.Error("interleavedBody: interleave failed", "error", err)
		return nil
	}
	return out
}

// buildAndPackTileMap deduplicates 8x8 tiles across frames and returns the
// concatenated unique-tile pixel bytes as the chunk payload plus the
// packed screen-map bytes, for the caller to attach as container metadata
// or a second C array.
func buildAndPackTileMap(frames []*image.Frame, detectFlips bool) (tm *image.TileMap, body []byte, code v2hcontainer.Processing, screenMap []byte, err error) {
	tm, err = image.BuildTileMap(frames, 8, 8, detectFlips, 1024)
	if err != nil {
		return nil, nil, 0, nil, err
	}

	tileBytes := make([][]byte, len(tm.Store))
	for i, px := range tm.Store {
		b := make([]byte, len(px)*4)
		for j, v := range px {
			b[j*4] = byte(v)
			b[j*4+1] = byte(v >> 8)
			b[j*4+2] = byte(v >> 16)
			b[j*4+3] = byte(v >> 24)
		}
		tileBytes[i] = b
	}

	for _, b := range tileBytes {
		body = append(body, b...)
	}

	for _, ref := range tm.ScreenMap {
		w := ref.Pack(len(tm.Store))
		screenMap = append(screenMap, byte(w), byte(w>>8))
	}

	return tm, body, v2hcontainer.ProcUncompressed, screenMap, nil
}

func encodeDXTG(fr *image.Frame) ([]byte, error) {
	blocks, err := dxtg.Encode(fr)
	if err != nil {
		return nil, fmt.Errorf("encodeDXTG: %w", err)
	}
	return dxtg.Marshal(blocks), nil
}

func encodeDXTV(frames []*image.Frame, errThreshold float64, keyFrameInterval int) ([]byte, error) {
	var out []byte
	var prev *image.Frame
	for i, fr := range frames {
		keyFrame := i == 0 || (keyFrameInterval > 0 && i%keyFrameInterval == 0)
		enc := dxtv.Encoder{ErrorThreshold: errThreshold, KeyFrame: keyFrame}
		body, err := enc.Encode(fr, prev)
		if err != nil {
			return nil, fmt.Errorf("encodeDXTV: frame %d: %w", i, err)
		}
		out = append(out, body...)
		prev, err = dxtv.Decode(body, prev, fr.Width, fr.Height)
		if err != nil {
			return nil, fmt.Errorf("encodeDXTV: frame %d: %w", i, err)
		}
	}
	return out, nil
}

// compressAndPack runs the configured delta/RLE/LZSS chain over raw bytes,
// returning the transformed body and the processing code the last
// compressing step applied (ProcUncompressed if none did).
func compressAndPack(raw []byte, cfg *config.Config) ([]byte, v2hcontainer.Processing, error) {
	if raw == nil {
		return nil, 0, fmt.Errorf("compressAndPack: no input bytes")
	}
	body := raw
	var err error
	code := v2hcontainer.ProcUncompressed

	for _, s := range cfg.Steps {
		switch s {
		case config.StepDelta8:
			body = delta.Encode8(body)
		case config.StepDelta16:
			body, err = delta.Encode16(body)
			if err != nil {
				return nil, 0, fmt.Errorf("compressAndPack: %w", err)
			}
		case config.StepRLE:
			body = rle.Encode(body, cfg.RLEMinRun)
			code = v2hcontainer.ProcRLE
		case config.StepLZSS10:
			body = lzss.Encode10(body, cfg.LZSSVRAMSafe)
			code = v2hcontainer.ProcLZ7710
		case config.StepLZSS11:
			body = lzss.Encode11(body, cfg.LZSSVRAMSafe)
			code = v2hcontainer.ProcLZ7711OrRANS50
		}
	}
	return body, code, nil
}

func writeContainer(out string, fr *image.Frame, nrFrames int, payload, screenMap []byte, swappedRedBlue bool) error {
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("writeContainer: %w", err)
	}
	defer f.Close()

	var swapFlag uint8
	if swappedRedBlue {
		swapFlag = 1
	}
	w := &v2hcontainer.Writer{
		Header: v2hcontainer.FileHeader{ContentType: v2hcontainer.ContentVideo},
		Video: &v2hcontainer.VideoHeader{
			NrOfFrames:     uint16(nrFrames),
			Width:          uint16(fr.Width),
			Height:         uint16(fr.Height),
			BitsPerPixel:   uint8(color.BitsPerPixel(fr.Pixels.Format)),
			BitsPerColor:   15,
			SwappedRedBlue: swapFlag,
		},
	}
	if len(screenMap) > 0 {
		hdr, err := v2hcontainer.WithMetadataSize(w.Header, screenMap)
		if err != nil {
			return fmt.Errorf("writeContainer: %w", err)
		}
		w.Header = hdr
		w.Metadata = screenMap
	}
	_, err = w.WriteTo(f, []v2hcontainer.Frame{{DataType: v2hcontainer.FramePixels, Payload: payload}})
	return err
}

func writeCSource(out string, fr *image.Frame, nrFrames int, payload, screenMap []byte) error {
	padded := payload
	for len(padded)%4 != 0 {
		padded = append(padded, 0)
	}
	h, c, err := csource.Emit(csource.Image{
		Name:          filepath.Base(out),
		Width:         fr.Width,
		Height:        fr.Height,
		BytesPerImage: len(padded) / max(nrFrames, 1),
		NrOfImages:    nrFrames,
		Data:          padded,
	})
	if err != nil {
		return fmt.Errorf("writeCSource: %w", err)
	}
	if err := os.WriteFile(out+".h", []byte(h), 0644); err != nil {
		return fmt.Errorf("writeCSource: %w", err)
	}
	if err := os.WriteFile(out+".c", []byte(c), 0644); err != nil {
		return fmt.Errorf("writeCSource: %w", err)
	}

	if len(screenMap) > 0 {
		mapPadded := screenMap
		for len(mapPadded)%4 != 0 {
			mapPadded = append(mapPadded, 0)
		}
		mh, mc, err := csource.Emit(csource.Image{
			Name:          filepath.Base(out) + "_map",
			Width:         fr.Width,
			Height:        fr.Height,
			BytesPerImage: len(mapPadded),
			NrOfImages:    1,
			Data:          mapPadded,
		})
		if err != nil {
			return fmt.Errorf("writeCSource: screen map: %w", err)
		}
		if err := os.WriteFile(out+"_map.h", []byte(mh), 0644); err != nil {
			return fmt.Errorf("writeCSource: %w", err)
		}
		if err := os.WriteFile(out+"_map.c", []byte(mc), 0644); err != nil {
			return fmt.Errorf("writeCSource: %w", err)
		}
	}
	return nil
}
