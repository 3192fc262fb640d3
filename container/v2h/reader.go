package v2h

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Container is a fully-parsed in-memory V2H file: its headers, frame
// records (with chunk chains already flattened back to raw payload
// bytes via ReadChunkChain where applicable), and trailing metadata.
type Container struct {
	Header    FileHeader
	Audio     *AudioHeader
	Video     *VideoHeader
	Subtitles *SubtitlesHeader
	Frames    []Frame
	Metadata  []byte
}

// Read parses a complete V2H container from r.
func Read(r io.Reader, log Logger) (*Container, error) {
	hdr, err := parseFileHeader(r)
	if err != nil {
		return nil, err
	}
	c := &Container{Header: hdr}

	if hdr.ContentType.Has(ContentAudio) {
		a, err := parseAudioHeader(r)
		if err != nil {
			return nil, err
		}
		c.Audio = &a
	}
	if hdr.ContentType.Has(ContentVideo) {
		v, err := parseVideoHeader(r)
		if err != nil {
			return nil, err
		}
		c.Video = &v
	}
	if hdr.ContentType.Has(ContentSubtitles) {
		s, err := parseSubtitlesHeader(r)
		if err != nil {
			return nil, err
		}
		c.Subtitles = &s
	}

	nrFrames := 0
	if c.Audio != nil && int(c.Audio.NrOfFrames) > nrFrames {
		nrFrames = int(c.Audio.NrOfFrames)
	}
	if c.Video != nil && int(c.Video.NrOfFrames) > nrFrames {
		nrFrames = int(c.Video.NrOfFrames)
	}
	if c.Subtitles != nil && int(c.Subtitles.NrOfFrames) > nrFrames {
		nrFrames = int(c.Subtitles.NrOfFrames)
	}

	for i := 0; i < nrFrames; i++ {
		fh, err := parseFrameHeader(r)
		if err != nil {
			return nil, errors.Wrapf(err, "v2h: Read: frame %d", i)
		}
		payload := make([]byte, fh.DataSize)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, errors.Wrapf(err, "v2h: Read: frame %d payload", i)
		}
		c.Frames = append(c.Frames, Frame{DataType: fh.DataType, Payload: payload})
		if log != nil {
			log.Log(0, "v2h: read frame", "index", i, "type", fh.DataType, "size", fh.DataSize)
		}
	}

	if hdr.MetadataSize > 0 {
		meta := make([]byte, hdr.MetadataSize)
		if _, err := io.ReadFull(r, meta); err != nil {
			return nil, errors.Wrap(err, "v2h: Read: metadata trailer")
		}
		c.Metadata = meta
	}

	return c, nil
}

// DecodeFrameChunks re-reads fr.Payload as a chunk chain (spec §6.1),
// flattening any processing-code prefix chain to raw bytes. Frames
// written without a pipeline processing-header prefix (chunk-free,
// Processing uncompressed payloads) should not be passed through this;
// callers know from their own pipeline config whether chunking is in use.
func DecodeFrameChunks(fr Frame, log Logger) ([]byte, error) {
	return ReadChunkChain(bytes.NewReader(fr.Payload), log)
}
