package record

import (
	"fmt"
	"math"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/rowbuf"
)

// Offset header sentinels. They are part of the stored format.
const (
	OffsetNull       int16 = -1
	OffsetPrimaryKey int16 = -2
)

// MaxRecordLen is the largest value payload the 16-bit offset header can
// address.
const MaxRecordLen = math.MaxInt16

var (
	ErrSchemaMismatch = fmt.Errorf("rowcodec: schema/values mismatch: %w", errs.ErrInvalidState)
	ErrNoPrimaryKey   = fmt.Errorf("rowcodec: schema has no primary key: %w", errs.ErrInvalidState)
	ErrNullNotAllowed = fmt.Errorf("rowcodec: null in not-null column: %w", errs.ErrTypeMismatch)
	ErrWrongType      = fmt.Errorf("rowcodec: value does not match column type: %w", errs.ErrTypeMismatch)
	ErrRecordTooLarge = fmt.Errorf("rowcodec: record exceeds 16-bit offsets: %w", errs.ErrOutOfRange)
	ErrBadHeader      = fmt.Errorf("rowcodec: malformed offset header: %w", errs.ErrStructural)
	ErrBadKey         = fmt.Errorf("rowcodec: malformed key: %w", errs.ErrStructural)
	ErrBadFieldWidth  = fmt.Errorf("rowcodec: field width does not match column type: %w", errs.ErrStructural)
)

// ---- EncodeRow(schema, values) -> key, value ----
// Format:
// key   = primary-key value in its natural width (INTEGER 4B, REAL 8B, TEXT raw bytes)
// value = [int16 offset x (N+1)] [packed fields of non-null, non-key columns]
// offset[i] = -1 null, -2 primary key, else start of column i within value.
// offset[N] = len(value).
// All fixed-width numbers are big-endian.
func EncodeRow(s Schema, values []Value) (key, value []byte, err error) {
	nc := s.NumCols()
	if len(values) != nc {
		return nil, nil, fmt.Errorf("%w: %d values for %d columns of %s", ErrSchemaMismatch, len(values), nc, s.Table)
	}
	pk := s.PrimaryKey()
	if pk < 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, s.Table)
	}

	for i, col := range s.Cols {
		if err := checkValue(col, values[i]); err != nil {
			return nil, nil, err
		}
	}

	key, err = EncodeKey(s.Cols[pk], values[pk])
	if err != nil {
		return nil, nil, err
	}

	// lay out the header first so the writer is sized once
	offsets := make([]int16, nc+1)
	next := 2 * (nc + 1)
	for i, col := range s.Cols {
		switch {
		case i == pk:
			offsets[i] = OffsetPrimaryKey
		case values[i].IsNull():
			offsets[i] = OffsetNull
		default:
			if next > MaxRecordLen {
				return nil, nil, fmt.Errorf("%w: %s.%s starts at %d", ErrRecordTooLarge, s.Table, col.Name, next)
			}
			offsets[i] = int16(next)
			next += packedWidth(values[i])
		}
	}
	if next > MaxRecordLen {
		return nil, nil, fmt.Errorf("%w: %s row is %d bytes", ErrRecordTooLarge, s.Table, next)
	}
	offsets[nc] = int16(next)

	w := rowbuf.NewWriter(next)
	for _, off := range offsets {
		w.PutShort(off)
	}
	for i := range s.Cols {
		if i == pk || values[i].IsNull() {
			continue
		}
		putValue(w, values[i])
	}
	return key, w.Bytes(), nil
}

// EncodeKey encodes v as the stored key for primary-key column col.
func EncodeKey(col Column, v Value) ([]byte, error) {
	if v.IsNull() {
		return nil, fmt.Errorf("%w: key column %s", ErrNullNotAllowed, col.Name)
	}
	if !v.Fits(col.Type) {
		return nil, fmt.Errorf("%w: key column %s is %v, got %v", ErrWrongType, col.Name, col.Type, v.Kind())
	}
	w := rowbuf.NewWriter(packedWidth(v))
	putValue(w, v)
	return w.Bytes(), nil
}

func checkValue(col Column, v Value) error {
	if v.IsNull() {
		if !col.Nullable() {
			return fmt.Errorf("%w: %s", ErrNullNotAllowed, col.Name)
		}
		return nil
	}
	if !v.Fits(col.Type) {
		return fmt.Errorf("%w: %s is %v, got %v", ErrWrongType, col.Name, col.Type, v.Kind())
	}
	return nil
}

func packedWidth(v Value) int {
	switch v.Kind() {
	case KindInteger:
		return 4
	case KindReal:
		return 8
	case KindText:
		s, _ := v.AsText()
		return len(s)
	}
	return 0
}

func putValue(w *rowbuf.Writer, v Value) {
	switch v.Kind() {
	case KindInteger:
		x, _ := v.AsInt()
		w.PutInt(x)
	case KindReal:
		x, _ := v.AsReal()
		w.PutDouble(x)
	case KindText:
		x, _ := v.AsText()
		w.PutText(x)
	}
}

// ---- header decoding ----

// FieldKind says where a column's bytes live in a stored record.
type FieldKind uint8

const (
	FieldNull    FieldKind = iota // no bytes, value is null
	FieldInKey                    // the whole key
	FieldInValue                  // value[Start:End]
)

// Field locates one column inside a stored record.
type Field struct {
	Kind  FieldKind
	Start int
	End   int
}

// DecodeHeader reads the offset header of a stored value and resolves every
// column to a Field. Sentinels never escape this function.
func DecodeHeader(s Schema, value []byte) ([]Field, error) {
	nc := s.NumCols()
	headerLen := 2 * (nc + 1)
	if len(value) < headerLen {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrBadHeader, len(value), headerLen)
	}

	r := rowbuf.NewReader(value)
	offsets := make([]int, nc+1)
	for i := range offsets {
		off, err := r.NextShort()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadHeader, err)
		}
		offsets[i] = int(off)
	}
	if offsets[nc] != len(value) {
		return nil, fmt.Errorf("%w: trailing offset %d, value has %d bytes", ErrBadHeader, offsets[nc], len(value))
	}

	fields := make([]Field, nc)
	for i, col := range s.Cols {
		off := offsets[i]
		switch {
		case off == int(OffsetPrimaryKey):
			if !col.PrimaryKey {
				return nil, fmt.Errorf("%w: %s marked as key but is not the primary key", ErrBadHeader, col.Name)
			}
			fields[i] = Field{Kind: FieldInKey}
			continue
		case col.PrimaryKey:
			return nil, fmt.Errorf("%w: primary key %s not marked as key", ErrBadHeader, col.Name)
		case off == int(OffsetNull):
			if !col.Nullable() {
				return nil, fmt.Errorf("%w: null in not-null column %s", ErrBadHeader, col.Name)
			}
			fields[i] = Field{Kind: FieldNull}
			continue
		case off < headerLen || off > len(value):
			return nil, fmt.Errorf("%w: column %s offset %d outside [%d, %d]", ErrBadHeader, col.Name, off, headerLen, len(value))
		}

		// width runs to the next real offset; the trailing entry always is one
		end := offsets[nc]
		for j := i + 1; j < nc; j++ {
			if offsets[j] >= 0 {
				end = offsets[j]
				break
			}
		}
		if end < off {
			return nil, fmt.Errorf("%w: column %s offsets decrease (%d > %d)", ErrBadHeader, col.Name, off, end)
		}
		if n, fixed := col.Type.Width(); fixed && end-off != n {
			return nil, fmt.Errorf("%w: %s is %v but spans %d bytes", ErrBadFieldWidth, col.Name, col.Type, end-off)
		}
		fields[i] = Field{Kind: FieldInValue, Start: off, End: end}
	}
	return fields, nil
}

// DecodeField decodes one column located by f.
func DecodeField(col Column, key, value []byte, f Field) (Value, error) {
	switch f.Kind {
	case FieldNull:
		return Null(), nil
	case FieldInKey:
		if n, fixed := col.Type.Width(); fixed && len(key) != n {
			return Value{}, fmt.Errorf("%w: %v key of %d bytes", ErrBadKey, col.Type, len(key))
		}
		return decodeAt(col.Type, rowbuf.NewReader(key), 0, len(key))
	case FieldInValue:
		return decodeAt(col.Type, rowbuf.NewReader(value), f.Start, f.End-f.Start)
	}
	return Value{}, fmt.Errorf("rowcodec: unknown field kind %d: %w", f.Kind, errs.ErrStructural)
}

func decodeAt(t ColumnType, r *rowbuf.Reader, off, n int) (Value, error) {
	switch t {
	case TypeInteger:
		v, err := r.IntAt(off)
		if err != nil {
			return Value{}, err
		}
		return Int(v), nil
	case TypeReal:
		v, err := r.DoubleAt(off)
		if err != nil {
			return Value{}, err
		}
		return Real(v), nil
	case TypeText:
		v, err := r.TextAt(off, n)
		if err != nil {
			return Value{}, err
		}
		return Text(v), nil
	}
	return Value{}, fmt.Errorf("%w: %v", ErrBadColumnType, t)
}

// DecodeRow decodes every column of a stored record.
func DecodeRow(s Schema, key, value []byte) ([]Value, error) {
	fields, err := DecodeHeader(s, value)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(fields))
	for i, f := range fields {
		v, err := DecodeField(s.Cols[i], key, value, f)
		if err != nil {
			return nil, fmt.Errorf("rowcodec: column %s: %w", s.Cols[i].Name, err)
		}
		out[i] = v
	}
	return out, nil
}
