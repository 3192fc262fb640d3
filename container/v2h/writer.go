package v2h

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// Frame is one frame record ready to be written: its header plus the raw
// payload bytes, which may already carry prepended ChunkHeaders from the
// pipeline engine (spec §4.7).
type Frame struct {
	DataType FrameDataType
	Payload  []byte
}

// Writer assembles a V2H container from a file-level header, at most one
// sub-header per content type, a frame sequence and an optional metadata
// trailer.
type Writer struct {
	Header    FileHeader
	Audio     *AudioHeader
	Video     *VideoHeader
	Subtitles *SubtitlesHeader
	Metadata  []byte
	Logger    Logger
}

// WriteTo serializes w's configured headers, frames and metadata to dst,
// validating that the sub-headers present match Header.ContentType.
func (w *Writer) WriteTo(dst io.Writer, frames []Frame) (int64, error) {
	if w.Audio != nil && !w.Header.ContentType.Has(ContentAudio) {
		return 0, errors.New("v2h: Writer.WriteTo: Audio sub-header set without ContentAudio flag")
	}
	if w.Video != nil && !w.Header.ContentType.Has(ContentVideo) {
		return 0, errors.New("v2h: Writer.WriteTo: Video sub-header set without ContentVideo flag")
	}
	if w.Subtitles != nil && !w.Header.ContentType.Has(ContentSubtitles) {
		return 0, errors.New("v2h: Writer.WriteTo: Subtitles sub-header set without ContentSubtitles flag")
	}

	var buf bytes.Buffer
	hb := w.Header.Bytes()
	buf.Write(hb[:])

	if w.Audio != nil {
		ab := w.Audio.Bytes()
		buf.Write(ab[:])
	}
	if w.Video != nil {
		vb := w.Video.Bytes()
		buf.Write(vb[:])
	}
	if w.Subtitles != nil {
		sb := w.Subtitles.Bytes()
		buf.Write(sb[:])
	}

	for i, fr := range frames {
		fh, err := FrameHeader{DataType: fr.DataType, DataSize: uint32(len(fr.Payload))}.Bytes()
		if err != nil {
			return 0, errors.Wrapf(err, "v2h: Writer.WriteTo: frame %d", i)
		}
		buf.Write(fh[:])
		buf.Write(fr.Payload)
		if w.Logger != nil {
			w.Logger.Log(0, "v2h: wrote frame", "index", i, "type", fr.DataType, "size", len(fr.Payload))
		}
	}

	buf.Write(w.Metadata)

	n, err := dst.Write(buf.Bytes())
	return int64(n), err
}

// WithMetadataSize returns a copy of h with MetadataSize set from the
// length of meta, erroring if it overflows 16 bits.
func WithMetadataSize(h FileHeader, meta []byte) (FileHeader, error) {
	if len(meta) > 1<<16-1 {
		return FileHeader{}, errors.Errorf("v2h: WithMetadataSize: metadata length %d exceeds 16 bits", len(meta))
	}
	h.MetadataSize = uint16(len(meta))
	return h, nil
}
