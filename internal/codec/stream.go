package codec

import (
	"Go2Sawzall/internal/model"
	"bufio"
	"encoding/binary"
	"io"

	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// maxFrameSize bounds a single record frame.
const maxFrameSize = 64 << 20

// Writer writes length-delimited records to an underlying stream.
type Writer struct {
	w   *bufio.Writer
	buf []byte
}

// NewWriter returns a Writer that buffers output to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write appends one record frame.
func (w *Writer) Write(r model.Record) error {
	w.buf = AppendRecord(w.buf[:0], r)
	var hdr [binary.MaxVarintLen64]byte
	hdrLen := len(protowire.AppendVarint(hdr[:0], uint64(len(w.buf))))
	if _, err := w.w.Write(hdr[:hdrLen]); err != nil {
		return errors.Wrap(err, "failed to write frame header")
	}
	if _, err := w.w.Write(w.buf); err != nil {
		return errors.Wrap(err, "failed to write frame")
	}
	return nil
}

// Flush writes any buffered frames.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader reads records written by Writer.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next record, or io.EOF at a clean end of stream.
func (r *Reader) Read() (model.Record, error) {
	size, err := binary.ReadUvarint(r.r)
	if err == io.EOF {
		return model.Record{}, io.EOF
	}
	if err != nil {
		return model.Record{}, errors.Mark(errors.Wrap(err, "failed to read frame header"), ErrCorruptStream)
	}
	if size > maxFrameSize {
		return model.Record{}, errors.Mark(errors.Newf("frame of %d bytes exceeds limit", size), ErrCorruptStream)
	}
	if cap(r.buf) < int(size) {
		r.buf = make([]byte, size)
	}
	r.buf = r.buf[:size]
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		return model.Record{}, errors.Mark(errors.Wrap(err, "truncated frame"), ErrCorruptStream)
	}
	return UnmarshalRecord(r.buf)
}
