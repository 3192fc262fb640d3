// Package pipeline implements the V2H step-engine of spec §4.7: an ordered
// list of typed steps that transform one or more image frames, tracking
// the per-frame scratchpad size a player must allocate and optionally
// wrapping a step's output with a chainable processing header.
//
// The orchestration style here — a slice of steps run in order, each
// producing output the next consumes, the first step error ending the
// run and being returned with the step's index and name — follows the shape of the
// teacher's revid pipeline setup, generalized from a live AV capture
// pipeline to this package's batch, frame-in/frame-out model.
package pipeline

import (
	"fmt"

	"github.com/retrogba/v2h/image"
)

// Kind identifies what shape of input/output a Step has.
type Kind int

const (
	// Input consumes an external image and emits exactly one frame; it
	// must be the first step in a Pipeline.
	Input Kind = iota
	// Convert is a pure image frame -> image frame transform.
	Convert
	// ConvertWithState is Convert, but the function may read and update
	// a per-step state slot (inter-frame deltas, DXTV's previous-frame
	// buffer).
	ConvertWithState
	// BatchConvert maps N frames to N frames (e.g. equalize-palettes).
	BatchConvert
	// Reduce folds N frames into 1 (e.g. building a shared tile map).
	Reduce
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "Input"
	case Convert:
		return "Convert"
	case ConvertWithState:
		return "ConvertWithState"
	case BatchConvert:
		return "BatchConvert"
	case Reduce:
		return "Reduce"
	default:
		return "Unknown"
	}
}

// ProcessingCode is the wire value identifying a step's operation in the
// V2H container's chunk processing-header (spec §6.1).
type ProcessingCode byte

const (
	CodeUncompressed       ProcessingCode = 0
	CodeResampleInput      ProcessingCode = 10
	CodeRepackage          ProcessingCode = 20
	CodeLZ7710            ProcessingCode = 60
	CodeLZ7711OrRANS50     ProcessingCode = 61
	CodeRLE                ProcessingCode = 64
	CodeRANS               ProcessingCode = 65
	CodeADPCM              ProcessingCode = 70
	CodeDXTV               ProcessingCode = 71
	CodeGVID               ProcessingCode = 72
	CodeConvertToRaw       ProcessingCode = 80
	CodePadTo              ProcessingCode = 81
	CodeEqualizeColorMaps  ProcessingCode = 93
	CodeInvalid            ProcessingCode = 255
)

// StepFunc is a Convert step's transform: validate fr's shape up front
// (image.RequireBitmap et al.) and return a precise error on mismatch.
type StepFunc func(fr *image.Frame) (*image.Frame, error)

// StateStepFunc is ConvertWithState's transform: state is this step's
// private slot, persisted across frames in one Pipeline.Run call.
type StateStepFunc func(fr *image.Frame, state *interface{}) (*image.Frame, error)

// BatchFunc is BatchConvert's transform.
type BatchFunc func(frs []*image.Frame) ([]*image.Frame, error)

// ReduceFunc is Reduce's transform.
type ReduceFunc func(frs []*image.Frame) (*image.Frame, error)

// Step is one stage of a Pipeline.
type Step struct {
	Name string
	Kind Kind
	Code ProcessingCode

	Fn      StepFunc
	StateFn StateStepFunc
	BatchFn BatchFunc
	ReduceFn ReduceFunc

	// PrependHeader, when true, wraps this step's output with the 4-byte
	// processing header described in spec §4.7 (input_size:24,
	// type:7, final:1). The final bit is set by the engine on the
	// first non-input step, not configured per-step.
	PrependHeader bool

	state interface{}
}

// Header is the 4-byte prepend-processing-header spec §4.7 describes.
type Header struct {
	InputSize uint32 // 24 bits
	Type      byte   // 7 bits
	Final     bool
}

// Bytes packs h into its 4-byte little-endian wire form:
// byte0..2 = input_size, byte3 = type<<1 | final.
func (h Header) Bytes() [4]byte {
	var out [4]byte
	out[0] = byte(h.InputSize)
	out[1] = byte(h.InputSize >> 8)
	out[2] = byte(h.InputSize >> 16)
	out[3] = (h.Type & 0x7f) << 1
	if h.Final {
		out[3] |= 1
	}
	return out
}

// Pipeline is an ordered list of Steps, the first of which must be Input.
type Pipeline struct {
	Steps []Step

	// MaxMemoryNeeded is updated as Run executes: the largest
	// step_output_bytes+4 seen across all non-input steps (spec §4.7),
	// copied into the container header so a player can size one
	// scratchpad for any intermediate.
	MaxMemoryNeeded int
}

// Validate checks the pipeline's shape invariants: Input must be first
// and only once, and every other step has the function field its Kind
// requires.
func (p *Pipeline) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("pipeline: empty pipeline")
	}
	if p.Steps[0].Kind != Input {
		return fmt.Errorf("pipeline: first step must be Input, got %v", p.Steps[0].Kind)
	}
	for i, s := range p.Steps[1:] {
		if s.Kind == Input {
			return fmt.Errorf("pipeline: step %d (%s): Input must be first and only step of that kind", i+1, s.Name)
		}
		switch s.Kind {
		case Convert:
			if s.Fn == nil {
				return fmt.Errorf("pipeline: step %d (%s): Convert step missing Fn", i+1, s.Name)
			}
		case ConvertWithState:
			if s.StateFn == nil {
				return fmt.Errorf("pipeline: step %d (%s): ConvertWithState step missing StateFn", i+1, s.Name)
			}
		case BatchConvert:
			if s.BatchFn == nil {
				return fmt.Errorf("pipeline: step %d (%s): BatchConvert step missing BatchFn", i+1, s.Name)
			}
		case Reduce:
			if s.ReduceFn == nil {
				return fmt.Errorf("pipeline: step %d (%s): Reduce step missing ReduceFn", i+1, s.Name)
			}
		default:
			return fmt.Errorf("pipeline: step %d (%s): unknown kind %v", i+1, s.Name, s.Kind)
		}
	}
	return nil
}

// frameSizer estimates the bytes a frame's encoded form will occupy, for
// max_memory_needed accounting. It uses the pixel buffer's packed byte
// length, which is exact for uncompressed steps and a reasonable upper
// bound immediately after a compressing step (whose real output is
// smaller, never larger).
func frameSizer(fr *image.Frame) int {
	if fr == nil || fr.Pixels == nil {
		return 0
	}
	b, err := fr.Pixels.Bytes()
	if err != nil {
		return 0
	}
	return len(b)
}

// Run executes the pipeline against a single external input, threading
// the frame through each step in order. Batch/Reduce steps operate on the
// single-frame slice {fr}, which is a degenerate but valid use of those
// kinds for a one-frame run; RunBatch is the many-frame entry point.
func (p *Pipeline) Run(input func() (*image.Frame, error)) (*image.Frame, error) {
	frs, err := p.RunBatch(func() ([]*image.Frame, error) {
		fr, err := input()
		if err != nil {
			return nil, err
		}
		return []*image.Frame{fr}, nil
	})
	if err != nil {
		return nil, err
	}
	if len(frs) != 1 {
		return nil, fmt.Errorf("pipeline: Run: pipeline ended with %d frames, want 1 (use RunBatch for N:1 pipelines)", len(frs))
	}
	return frs[0], nil
}

// RunBatch is Run generalized to a pipeline whose Input step and later
// Batch/Reduce steps operate over a whole batch of frames at once.
func (p *Pipeline) RunBatch(input func() ([]*image.Frame, error)) ([]*image.Frame, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	frs, err := input()
	if err != nil {
		return nil, fmt.Errorf("pipeline: step 0 (%s): %w", p.Steps[0].Name, err)
	}

	firstNonInput := true
	for i := 1; i < len(p.Steps); i++ {
		s := &p.Steps[i]
		var outSize int
		switch s.Kind {
		case Convert:
			for j, fr := range frs {
				out, err := s.Fn(fr)
				if err != nil {
					return nil, fmt.Errorf("pipeline: step %d (%s) frame %d: %w", i, s.Name, j, err)
				}
				frs[j] = out
				if sz := frameSizer(out); sz > outSize {
					outSize = sz
				}
			}
		case ConvertWithState:
			for j, fr := range frs {
				out, err := s.StateFn(fr, &s.state)
				if err != nil {
					return nil, fmt.Errorf("pipeline: step %d (%s) frame %d: %w", i, s.Name, j, err)
				}
				frs[j] = out
				if sz := frameSizer(out); sz > outSize {
					outSize = sz
				}
			}
		case BatchConvert:
			out, err := s.BatchFn(frs)
			if err != nil {
				return nil, fmt.Errorf("pipeline: step %d (%s): %w", i, s.Name, err)
			}
			frs = out
			for _, fr := range frs {
				if sz := frameSizer(fr); sz > outSize {
					outSize = sz
				}
			}
		case Reduce:
			out, err := s.ReduceFn(frs)
			if err != nil {
				return nil, fmt.Errorf("pipeline: step %d (%s): %w", i, s.Name, err)
			}
			frs = []*image.Frame{out}
			outSize = frameSizer(out)
		}

		needed := outSize + 4
		if needed > p.MaxMemoryNeeded {
			p.MaxMemoryNeeded = needed
		}
		for _, fr := range frs {
			if fr != nil && needed > fr.MaxMemoryNeeded {
				fr.MaxMemoryNeeded = needed
			}
		}

		if s.PrependHeader {
			final := firstNonInput
			for j, fr := range frs {
				hdr := Header{InputSize: uint32(outSize), Type: byte(s.Code), Final: final}.Bytes()
				frs[j] = withHeaderTag(fr, hdr)
			}
		}
		firstNonInput = false
	}

	return frs, nil
}

// withHeaderTag records the processing header spec §4.7 describes would
// prefix this frame's on-disk chunk; the engine doesn't mutate pixel
// bytes here (that happens at container-emission time in container/v2h),
// it just threads the header value through via the frame for the emitter
// to prepend.
func withHeaderTag(fr *image.Frame, hdr [4]byte) *image.Frame {
	out := *fr
	out.PendingHeader = hdr
	return &out
}
