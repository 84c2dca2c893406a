package rowbuf

import (
	"fmt"

	"github.com/tuannm99/rowstore/internal/alias/bx"
)

// Writer is an append-only byte buffer for the fixed-width and raw values
// that make up catalog entries and stored records.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer whose buffer is allocated up front with room for
// sizeHint bytes. sizeHint <= 0 is fine.
func NewWriter(sizeHint int) *Writer {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) PutByte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) PutShort(v int16) { w.buf = bx.AppendI16(w.buf, v) }

func (w *Writer) PutInt(v int32) { w.buf = bx.AppendI32(w.buf, v) }

func (w *Writer) PutDouble(v float64) { w.buf = bx.AppendF64(w.buf, v) }

// PutBool writes 1 for true and 0 for false.
func (w *Writer) PutBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

// PutText writes the raw bytes of s. No length prefix is written; the caller
// tracks the extent.
func (w *Writer) PutText(s string) { w.buf = append(w.buf, s...) }

// Bytes returns a copy of everything written so far.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Writer) Len() int { return len(w.buf) }

// Reset empties the buffer and keeps its capacity.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) String() string {
	return fmt.Sprintf("%v", w.buf)
}
