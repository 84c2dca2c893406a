package record

import (
	"fmt"

	"github.com/tuannm99/rowstore/internal/errs"
)

// ColumnType is the declared type of a column. The numeric value is the type
// code persisted in the catalog.
type ColumnType uint8

const (
	TypeInteger ColumnType = iota // 4 bytes, signed
	TypeReal                      // 8 bytes, IEEE754
	TypeText                      // raw bytes, width taken from the offset header
)

func (t ColumnType) Valid() bool { return t <= TypeText }

// Width returns the packed width of fixed-size types. ok is false for Text.
func (t ColumnType) Width() (n int, ok bool) {
	switch t {
	case TypeInteger:
		return 4, true
	case TypeReal:
		return 8, true
	}
	return 0, false
}

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	default:
		return fmt.Sprintf("ColumnType(%d)", uint8(t))
	}
}

type Column struct {
	Name       string
	Type       ColumnType
	Length     int32 // declared length, meaningful for Text
	NotNull    bool
	PrimaryKey bool
	Index      int // ordinal position inside its schema
}

// Nullable reports whether the column may hold null. A primary key never may.
func (c Column) Nullable() bool { return !c.NotNull && !c.PrimaryKey }

// Schema describes one table: its name and ordered columns.
type Schema struct {
	Table string
	Cols  []Column
}

var (
	ErrDuplicateColumn    = fmt.Errorf("record: duplicate column name: %w", errs.ErrInvalidState)
	ErrMultiplePrimaryKey = fmt.Errorf("record: more than one primary key: %w", errs.ErrInvalidState)
	ErrBadColumnType      = fmt.Errorf("record: unknown column type: %w", errs.ErrInvalidState)
	ErrEmptyName          = fmt.Errorf("record: empty name: %w", errs.ErrInvalidState)
)

// NewSchema builds a Schema and normalizes its columns: ordinals are assigned
// by position and a primary key is marked not-null.
func NewSchema(table string, cols ...Column) (Schema, error) {
	s := Schema{Table: table, Cols: make([]Column, len(cols))}
	copy(s.Cols, cols)
	for i := range s.Cols {
		s.Cols[i].Index = i
		if s.Cols[i].PrimaryKey {
			s.Cols[i].NotNull = true
		}
	}
	if err := s.Validate(); err != nil {
		return Schema{}, err
	}
	return s, nil
}

// Validate checks the invariants NewSchema establishes. It is used on schemas
// decoded from the catalog as well.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("%w: table", ErrEmptyName)
	}
	seen := make(map[string]struct{}, len(s.Cols))
	pk := 0
	for i, c := range s.Cols {
		if c.Name == "" {
			return fmt.Errorf("%w: column %d of %s", ErrEmptyName, i, s.Table)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, s.Table, c.Name)
		}
		seen[c.Name] = struct{}{}
		if !c.Type.Valid() {
			return fmt.Errorf("%w: %s.%s has %v", ErrBadColumnType, s.Table, c.Name, c.Type)
		}
		if c.PrimaryKey {
			pk++
		}
	}
	if pk > 1 {
		return fmt.Errorf("%w: %s", ErrMultiplePrimaryKey, s.Table)
	}
	return nil
}

func (s Schema) NumCols() int { return len(s.Cols) }

// Col returns column i or an OutOfRange error.
func (s Schema) Col(i int) (Column, error) {
	if i < 0 || i >= len(s.Cols) {
		return Column{}, fmt.Errorf("record: column index %d not in [0, %d): %w", i, len(s.Cols), errs.ErrOutOfRange)
	}
	return s.Cols[i], nil
}

// ColumnIndex returns the position of the named column, or -1.
func (s Schema) ColumnIndex(name string) int {
	for i := range s.Cols {
		if s.Cols[i].Name == name {
			return i
		}
	}
	return -1
}

// PrimaryKey returns the primary-key column position, or -1 when the schema
// has none.
func (s Schema) PrimaryKey() int {
	for i := range s.Cols {
		if s.Cols[i].PrimaryKey {
			return i
		}
	}
	return -1
}
