package record

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tuannm99/rowstore/internal/errs"
)

type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "NULL"
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindText:
		return "TEXT"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is one column value. The zero Value is null.
type Value struct {
	kind Kind
	i    int32
	f    float64
	s    string
}

func Null() Value           { return Value{} }
func Int(v int32) Value     { return Value{kind: KindInteger, i: v} }
func Real(v float64) Value  { return Value{kind: KindReal, f: v} }
func Text(v string) Value   { return Value{kind: KindText, s: v} }
func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsInt() (int32, bool)    { return v.i, v.kind == KindInteger }
func (v Value) AsReal() (float64, bool) { return v.f, v.kind == KindReal }
func (v Value) AsText() (string, bool)  { return v.s, v.kind == KindText }

// Fits reports whether v may be stored in a column of type t, ignoring
// nullability.
func (v Value) Fits(t ColumnType) bool {
	switch v.kind {
	case KindInteger:
		return t == TypeInteger
	case KindReal:
		return t == TypeReal
	case KindText:
		return t == TypeText
	}
	return false
}

// Equal compares kind and payload. Reals compare by bit pattern so NaN
// round-trips equal to itself.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInteger:
		return v.i == o.i
	case KindReal:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case KindText:
		return v.s == o.s
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(int64(v.i), 10)
	case KindReal:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return v.s
	}
	return "null"
}

// Any returns the payload as a plain Go value (nil, int32, float64, string).
func (v Value) Any() any {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return v.f
	case KindText:
		return v.s
	}
	return nil
}

// FromAny converts a plain Go value into a Value. Integers must fit in 32 bits.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case int32:
		return Int(t), nil
	case int:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return Int(int32(t)), nil
		}
	case int64:
		if t >= math.MinInt32 && t <= math.MaxInt32 {
			return Int(int32(t)), nil
		}
	case float64:
		return Real(t), nil
	case float32:
		return Real(float64(t)), nil
	case string:
		return Text(t), nil
	}
	return Value{}, fmt.Errorf("record: cannot use %T(%v) as a column value: %w", x, x, errs.ErrTypeMismatch)
}

// Values converts a row of plain Go values with FromAny.
func Values(xs ...any) ([]Value, error) {
	out := make([]Value, len(xs))
	for i, x := range xs {
		v, err := FromAny(x)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParseValue converts the text form of a value for a column of type t.
// "null" (any case) yields Null.
func ParseValue(t ColumnType, s string) (Value, error) {
	if strings.EqualFold(s, "null") {
		return Null(), nil
	}
	switch t {
	case TypeInteger:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return Value{}, fmt.Errorf("record: %q is not an INTEGER: %w", s, errs.ErrTypeMismatch)
		}
		return Int(int32(n)), nil
	case TypeReal:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, fmt.Errorf("record: %q is not a REAL: %w", s, errs.ErrTypeMismatch)
		}
		return Real(f), nil
	case TypeText:
		return Text(s), nil
	}
	return Value{}, fmt.Errorf("%w: %v", ErrBadColumnType, t)
}
