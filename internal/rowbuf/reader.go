// Package rowbuf provides the byte-level writer and reader used to marshal
// catalog entries and rows.
package rowbuf

import (
	"fmt"

	"github.com/tuannm99/rowstore/internal/alias/bx"
	"github.com/tuannm99/rowstore/internal/errs"
)

const (
	sizeByte   = 1
	sizeShort  = 2
	sizeInt    = 4
	sizeDouble = 8
)

// Reader reads fixed-width and raw values from an immutable byte slice, either
// at an absolute offset or sequentially from a cursor.
//
// An absolute read also moves the cursor to just past the bytes it read, so a
// ByteAt followed by NextInt continues from there.
type Reader struct {
	b   []byte
	cur int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) Len() int       { return len(r.b) }
func (r *Reader) Offset() int    { return r.cur }
func (r *Reader) Remaining() int { return len(r.b) - r.cur }

// Seek moves the cursor. Seeking to Len() is allowed (nothing left to read).
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.b) {
		return fmt.Errorf("rowbuf: seek to %d in buffer of length %d: %w", off, len(r.b), errs.ErrOutOfRange)
	}
	r.cur = off
	return nil
}

// check validates that n bytes can be read at off.
func (r *Reader) check(off, n int) error {
	if off < 0 || n < 0 || off > len(r.b)-n {
		return fmt.Errorf("rowbuf: cannot read %d bytes at offset %d in buffer of length %d: %w",
			n, off, len(r.b), errs.ErrOutOfRange)
	}
	return nil
}

// span returns b[off:off+n] and advances the cursor past it.
func (r *Reader) span(off, n int) ([]byte, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	r.cur = off + n
	return r.b[off : off+n], nil
}

func (r *Reader) ByteAt(off int) (byte, error) {
	s, err := r.span(off, sizeByte)
	if err != nil {
		return 0, err
	}
	return s[0], nil
}

func (r *Reader) ShortAt(off int) (int16, error) {
	s, err := r.span(off, sizeShort)
	if err != nil {
		return 0, err
	}
	return bx.I16(s), nil
}

func (r *Reader) IntAt(off int) (int32, error) {
	s, err := r.span(off, sizeInt)
	if err != nil {
		return 0, err
	}
	return bx.I32(s), nil
}

func (r *Reader) DoubleAt(off int) (float64, error) {
	s, err := r.span(off, sizeDouble)
	if err != nil {
		return 0, err
	}
	return bx.F64(s), nil
}

// BoolAt treats any non-zero byte as true.
func (r *Reader) BoolAt(off int) (bool, error) {
	b, err := r.ByteAt(off)
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// TextAt reads n raw bytes at off as a string.
func (r *Reader) TextAt(off, n int) (string, error) {
	s, err := r.span(off, n)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

// sequential reads: a bounds failure here means the cursor walked off the
// buffer, which is reported as invalid state as well as out of range.

func nextErr(err error) error {
	return fmt.Errorf("%w: %w", errs.ErrInvalidState, err)
}

func (r *Reader) NextByte() (byte, error) {
	v, err := r.ByteAt(r.cur)
	if err != nil {
		return 0, nextErr(err)
	}
	return v, nil
}

func (r *Reader) NextShort() (int16, error) {
	v, err := r.ShortAt(r.cur)
	if err != nil {
		return 0, nextErr(err)
	}
	return v, nil
}

func (r *Reader) NextInt() (int32, error) {
	v, err := r.IntAt(r.cur)
	if err != nil {
		return 0, nextErr(err)
	}
	return v, nil
}

func (r *Reader) NextDouble() (float64, error) {
	v, err := r.DoubleAt(r.cur)
	if err != nil {
		return 0, nextErr(err)
	}
	return v, nil
}

func (r *Reader) NextBool() (bool, error) {
	v, err := r.BoolAt(r.cur)
	if err != nil {
		return false, nextErr(err)
	}
	return v, nil
}

func (r *Reader) NextText(n int) (string, error) {
	v, err := r.TextAt(r.cur, n)
	if err != nil {
		return "", nextErr(err)
	}
	return v, nil
}

func (r *Reader) String() string {
	return fmt.Sprintf("byte array: %v\ncurrent offset: %d", r.b, r.cur)
}
