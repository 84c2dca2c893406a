package table

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/record"
)

// Row is what a Predicate sees: the current row of an iterator, decoded on
// demand.
type Row interface {
	Schema() record.Schema
	ColumnValue(i int) (record.Value, error)
}

// Predicate filters rows during iteration (the WHERE clause).
type Predicate interface {
	IsTrue(row Row) (bool, error)
}

var ErrUnknownColumn = fmt.Errorf("table: unknown column: %w", errs.ErrInvalidState)

// True accepts every row.
type True struct{}

func (True) IsTrue(Row) (bool, error) { return true, nil }

type Op uint8

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

var opSymbols = [...]string{OpEq: "=", OpNe: "!=", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">="}

func (o Op) String() string {
	if int(o) < len(opSymbols) {
		return opSymbols[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func (o Op) holds(cmp int) bool {
	switch o {
	case OpEq:
		return cmp == 0
	case OpNe:
		return cmp != 0
	case OpLt:
		return cmp < 0
	case OpLe:
		return cmp <= 0
	case OpGt:
		return cmp > 0
	case OpGe:
		return cmp >= 0
	}
	return false
}

// Compare tests one column against a constant. A null on either side never
// satisfies it.
type Compare struct {
	Column string
	Op     Op
	Value  record.Value
}

func (c Compare) IsTrue(row Row) (bool, error) {
	idx := row.Schema().ColumnIndex(c.Column)
	if idx < 0 {
		return false, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Column)
	}
	v, err := row.ColumnValue(idx)
	if err != nil {
		return false, err
	}
	if v.IsNull() || c.Value.IsNull() {
		return false, nil
	}
	cmp, err := compareValues(v, c.Value)
	if err != nil {
		return false, fmt.Errorf("table: %s %v %v: %w", c.Column, c.Op, c.Value, err)
	}
	return c.Op.holds(cmp), nil
}

func (c Compare) String() string {
	return fmt.Sprintf("%s %v %v", c.Column, c.Op, c.Value)
}

// And holds when every member holds; an empty And is true.
type And []Predicate

func (a And) IsTrue(row Row) (bool, error) {
	for _, p := range a {
		ok, err := p.IsTrue(row)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Or holds when any member holds; an empty Or is false.
type Or []Predicate

func (o Or) IsTrue(row Row) (bool, error) {
	for _, p := range o {
		ok, err := p.IsTrue(row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

type Not struct {
	P Predicate
}

func (n Not) IsTrue(row Row) (bool, error) {
	ok, err := n.P.IsTrue(row)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// compareValues orders two non-null values. Integers and reals compare
// numerically with each other; text compares byte-wise.
func compareValues(a, b record.Value) (int, error) {
	if as, ok := a.AsText(); ok {
		bs, ok := b.AsText()
		if !ok {
			return 0, fmt.Errorf("cannot compare %v with %v: %w", a.Kind(), b.Kind(), errs.ErrTypeMismatch)
		}
		return strings.Compare(as, bs), nil
	}

	af, aok := numeric(a)
	bf, bok := numeric(b)
	if !aok || !bok {
		return 0, fmt.Errorf("cannot compare %v with %v: %w", a.Kind(), b.Kind(), errs.ErrTypeMismatch)
	}
	ai, aInt := a.AsInt()
	bi, bInt := b.AsInt()
	if aInt && bInt {
		return cmp.Compare(ai, bi), nil
	}
	return cmp.Compare(af, bf), nil
}

func numeric(v record.Value) (float64, bool) {
	if i, ok := v.AsInt(); ok {
		return float64(i), true
	}
	if f, ok := v.AsReal(); ok {
		return f, true
	}
	return 0, false
}

// ParseCondition parses "column<op>literal", e.g. "age>35" or "name = Ann",
// typing the literal by the column it names. The condition splits at the
// leftmost operator, so the literal may itself contain operator characters.
func ParseCondition(schema record.Schema, s string) (Compare, error) {
	i := strings.IndexAny(s, "!<>=")
	if i <= 0 {
		return Compare{}, fmt.Errorf("table: cannot parse condition %q: %w", s, errs.ErrInvalidState)
	}
	sym := s[i : i+1]
	if i+1 < len(s) && s[i+1] == '=' && sym != "=" {
		sym = s[i : i+2]
	}
	op, ok := parseOp(sym)
	if !ok {
		return Compare{}, fmt.Errorf("table: cannot parse condition %q: %w", s, errs.ErrInvalidState)
	}

	name := strings.TrimSpace(s[:i])
	lit := strings.TrimSpace(s[i+len(sym):])
	idx := schema.ColumnIndex(name)
	if idx < 0 {
		return Compare{}, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	v, err := record.ParseValue(schema.Cols[idx].Type, lit)
	if err != nil {
		return Compare{}, err
	}
	return Compare{Column: name, Op: op, Value: v}, nil
}

func parseOp(sym string) (Op, bool) {
	for o, os := range opSymbols {
		if os == sym {
			return Op(o), true
		}
	}
	return 0, false
}
