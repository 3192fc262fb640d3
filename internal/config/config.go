// Package config holds the shared settings a V2H encode run is built
// from: which steps to run and in what order, the thresholds and flags
// those steps need, and where diagnostic output goes. Its enum-and-flat-
// struct shape, and its duck-typed Logger, follow revid's config package.
package config

import (
	"fmt"

	"github.com/ausocean/utils/logging"
)

// Logger is the diagnostic sink a Config carries. Satisfied by
// *github.com/ausocean/utils/logging.Logger among others.
type Logger interface {
	SetLevel(int8)
	Log(level int8, message string, params ...interface{})
}

// StepName identifies one stage of the canonical V2H step ordering
// (spec §4.7). Not every pipeline uses every step, but the ones it does
// use must appear in this relative order.
type StepName int

const (
	StepReorderColors StepName = iota
	StepAdd0OrMove0
	StepShiftIndices
	StepEqualizePalettes
	StepConvertColorMap
	StepPadColorMapData
	StepPruneIndices
	StepSprites
	StepTiles
	StepTilemap
	StepDelta8
	StepDelta16
	StepRLE
	StepLZSS10
	StepLZSS11
	StepPadImageData
	StepInterleavePixels
	StepEmit
)

var stepNames = map[StepName]string{
	StepReorderColors:    "reorder-colors",
	StepAdd0OrMove0:      "add-0/move-0",
	StepShiftIndices:     "shift-indices",
	StepEqualizePalettes: "equalize-palettes",
	StepConvertColorMap:  "convert-colormap",
	StepPadColorMapData:  "pad-colormap-data",
	StepPruneIndices:     "prune-indices",
	StepSprites:          "sprites",
	StepTiles:            "tiles",
	StepTilemap:          "tilemap",
	StepDelta8:           "delta-8",
	StepDelta16:          "delta-16",
	StepRLE:              "rle",
	StepLZSS10:           "lzss-10",
	StepLZSS11:           "lzss-11",
	StepPadImageData:     "pad-image-data",
	StepInterleavePixels: "interleave-pixels",
	StepEmit:             "emit",
}

func (s StepName) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("StepName(%d)", int(s))
}

// ValidateOrder returns an error unless steps is a strictly increasing
// subsequence of the canonical ordering above (spec §4.7's step list).
// Duplicates and out-of-order pairs are both rejected; steps may be
// skipped freely.
func ValidateOrder(steps []StepName) error {
	last := StepName(-1)
	for i, s := range steps {
		if _, ok := stepNames[s]; !ok {
			return fmt.Errorf("config: ValidateOrder: step %d is not a recognised StepName (%d)", i, s)
		}
		if s <= last {
			return fmt.Errorf("config: ValidateOrder: step %d (%s) is out of canonical order (preceded by %s)", i, s, last)
		}
		last = s
	}
	return nil
}

// Config collects the settings an encode run is parameterized by.
// Defaults are the zero value except where noted.
type Config struct {
	// Steps is the ordered list of pipeline stages to run; ValidateOrder
	// is applied to it before building a pipeline.Pipeline.
	Steps []StepName

	// MaxColors bounds the palette size a paletted frame may use; 0
	// means unbounded (subject to image.MaxColorMapEntries).
	MaxColors int

	// RLEMinRun is the shortest run compress/rle will encode as a
	// repeat token rather than literal bytes; the spec leaves this an
	// implementation choice, resolved to 3 (see DESIGN.md).
	RLEMinRun int

	// LZSSVRAMSafe forces compress/lzss to avoid offset==1 back-references,
	// required when the decompression target is GBA VRAM.
	LZSSVRAMSafe bool

	// Use11 selects LZSS-11 over LZSS-10 when both LZSS steps are
	// otherwise eligible.
	Use11 bool

	// DXTVErrorThreshold is the per-block mean squared-distance cutoff
	// codec/dxtv uses to decide whether to split, motion-reference, or
	// fall back to intra DXT (spec §4.6.4).
	DXTVErrorThreshold float64

	// DXTVKeyFrameInterval emits a DXTV key frame (KeyFrame: true) every
	// N frames; 0 means every frame is a key frame.
	DXTVKeyFrameInterval int

	// PrependProcessingHeaders mirrors a pipeline.Step's PrependHeader
	// flag at the config layer, for CLI wiring.
	PrependProcessingHeaders bool

	// SwappedRedBlue marks that source truecolor data is BGR-ordered
	// rather than RGB-ordered, a hardware quirk some capture paths
	// exhibit; cmd/v2hc swaps loaded frames' R/B channels back to RGB
	// when this is set, and copies it into the video sub-header's
	// SwappedRedBlue field.
	SwappedRedBlue bool

	// Logger is the diagnostic sink carried with this Config; New applies
	// LogLevel to it. No other package in this module logs through it.
	Logger Logger

	// LogLevel is forwarded to Logger.SetLevel at construction.
	LogLevel int8
}

// New returns a Config with RLEMinRun, DXTVErrorThreshold and LogLevel
// defaulted, and Logger's level set accordingly.
func New(opts ...Option) *Config {
	c := &Config{
		RLEMinRun:          3,
		DXTVErrorThreshold: 64, // squared RGB888 distance, ~1 LSB per channel
		LogLevel:           logging.Info,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger != nil {
		c.Logger.SetLevel(c.LogLevel)
	}
	return c
}

// Option configures a Config at construction time.
type Option func(*Config)

func WithSteps(steps ...StepName) Option { return func(c *Config) { c.Steps = steps } }

func WithLogger(l Logger, level int8) Option {
	return func(c *Config) {
		c.Logger = l
		c.LogLevel = level
	}
}

func WithRLEMinRun(n int) Option { return func(c *Config) { c.RLEMinRun = n } }

func WithLZSS(vramSafe, use11 bool) Option {
	return func(c *Config) {
		c.LZSSVRAMSafe = vramSafe
		c.Use11 = use11
	}
}

func WithDXTV(threshold float64, keyFrameInterval int) Option {
	return func(c *Config) {
		c.DXTVErrorThreshold = threshold
		c.DXTVKeyFrameInterval = keyFrameInterval
	}
}

func WithSwappedRedBlue(v bool) Option { return func(c *Config) { c.SwappedRedBlue = v } }

// Validate checks the invariants Config itself can enforce, independent
// of any particular pipeline's steps: valid canonical ordering and
// non-negative numeric fields.
func (c *Config) Validate() error {
	if err := ValidateOrder(c.Steps); err != nil {
		return err
	}
	if c.RLEMinRun < 2 {
		return fmt.Errorf("config: Validate: RLEMinRun must be >= 2, got %d", c.RLEMinRun)
	}
	if c.DXTVErrorThreshold < 0 {
		return fmt.Errorf("config: Validate: DXTVErrorThreshold must be >= 0, got %v", c.DXTVErrorThreshold)
	}
	if c.DXTVKeyFrameInterval < 0 {
		return fmt.Errorf("config: Validate: DXTVKeyFrameInterval must be >= 0, got %d", c.DXTVKeyFrameInterval)
	}
	return nil
}
