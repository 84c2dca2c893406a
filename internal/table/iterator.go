package table

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv"
	"github.com/tuannm99/rowstore/internal/record"
)

var (
	ErrIteratorClosed = fmt.Errorf("table: iterator is closed: %w", errs.ErrInvalidState)
	ErrNotPositioned  = fmt.Errorf("table: iterator is not on a row: %w", errs.ErrInvalidState)
	ErrColumnRange    = fmt.Errorf("table: column index out of range: %w", errs.ErrOutOfRange)
)

type iterState uint8

const (
	stateUnopened iterState = iota
	statePositioned
	stateExhausted
	stateClosed
)

// Iterator walks a table's rows in primary-key order, stopping on those that
// satisfy its predicate. Column values are decoded lazily from the current
// row.
type Iterator struct {
	table  *Table
	cursor kv.Cursor
	pred   Predicate

	state   iterState
	visited int

	key    []byte
	value  []byte
	fields []record.Field // nil until the header of the current row is read
}

var _ Row = (*Iterator)(nil)

func (it *Iterator) Schema() record.Schema { return it.table.Schema }

func (it *Iterator) NumColumns() int { return it.table.Schema.NumCols() }

// Column returns the i-th column definition.
func (it *Iterator) Column(i int) (record.Column, error) {
	c, err := it.table.Schema.Col(i)
	if err != nil {
		return record.Column{}, fmt.Errorf("%w: %d of %d", ErrColumnRange, i, it.NumColumns())
	}
	return c, nil
}

// Visited is the number of rows Next has stopped on since the iterator was
// opened.
func (it *Iterator) Visited() int { return it.visited }

func (it *Iterator) land(key, value []byte) {
	it.key, it.value, it.fields = key, value, nil
	it.state = statePositioned
}

func (it *Iterator) exhaust() {
	it.key, it.value, it.fields = nil, nil, nil
	it.state = stateExhausted
}

// First moves to the first row of the table without consulting the
// predicate and without counting it as visited. It reports false when the
// table is empty.
func (it *Iterator) First() (bool, error) {
	if it.state == stateClosed {
		return false, ErrIteratorClosed
	}
	k, v, ok, err := it.cursor.First()
	if err != nil {
		return false, fmt.Errorf("table: first on %s: %w", it.table.Name(), err)
	}
	if !ok {
		it.exhaust()
		return false, nil
	}
	it.land(k, v)
	return true, nil
}

// Next advances to the next row satisfying the predicate. On an unopened
// iterator it starts from the first row. Once it reports false, or the
// predicate fails, the iterator stays exhausted until First is called.
func (it *Iterator) Next() (bool, error) {
	switch it.state {
	case stateClosed:
		return false, ErrIteratorClosed
	case stateExhausted:
		return false, nil
	}

	for {
		k, v, ok, err := it.cursor.Next()
		if err != nil {
			return false, fmt.Errorf("table: next on %s: %w", it.table.Name(), err)
		}
		if !ok {
			it.exhaust()
			return false, nil
		}
		it.land(k, v)

		match, err := it.pred.IsTrue(it)
		if err != nil {
			// the row did not pass the predicate; never expose it
			it.exhaust()
			return false, err
		}
		if match {
			it.visited++
			return true, nil
		}
	}
}

// ColumnValue decodes column i of the current row.
func (it *Iterator) ColumnValue(i int) (record.Value, error) {
	col, err := it.Column(i)
	if err != nil {
		return record.Value{}, err
	}
	switch it.state {
	case stateClosed:
		return record.Value{}, ErrIteratorClosed
	case statePositioned:
	default:
		return record.Value{}, ErrNotPositioned
	}

	if it.fields == nil {
		fields, err := record.DecodeHeader(it.table.Schema, it.value)
		if err != nil {
			return record.Value{}, fmt.Errorf("table: row of %s: %w", it.table.Name(), err)
		}
		it.fields = fields
	}
	v, err := record.DecodeField(col, it.key, it.value, it.fields[i])
	if err != nil {
		return record.Value{}, fmt.Errorf("table: %s.%s: %w", it.table.Name(), col.Name, err)
	}
	return v, nil
}

// Row decodes every column of the current row.
func (it *Iterator) Row() ([]record.Value, error) {
	out := make([]record.Value, it.NumColumns())
	for i := range out {
		v, err := it.ColumnValue(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Close releases the cursor. Closing twice is a no-op.
func (it *Iterator) Close() error {
	if it.state == stateClosed {
		return nil
	}
	it.state = stateClosed
	it.key, it.value, it.fields = nil, nil, nil
	it.table.iters.Dec()
	if err := it.cursor.Close(); err != nil {
		return fmt.Errorf("table: close iterator on %s: %w", it.table.Name(), err)
	}
	return nil
}

func printWidth(c record.Column) int {
	w := 0
	switch c.Type {
	case record.TypeInteger:
		w = 11
	case record.TypeReal:
		w = 15
	case record.TypeText:
		w = max(int(c.Length), 4)
	}
	return max(w, len(c.Name))
}

// PrintAll writes a header followed by every remaining row that satisfies
// the predicate, as a padded text table.
func (it *Iterator) PrintAll(w io.Writer) error {
	bw := bufio.NewWriter(w)
	n := it.NumColumns()
	widths := make([]int, n)

	sep := 3
	bw.WriteString("\n")
	for i, c := range it.table.Schema.Cols {
		widths[i] = printWidth(c)
		fmt.Fprintf(bw, " | %-*s", widths[i], c.Name)
		sep += widths[i] + 3
	}
	bw.WriteString(" | \n")
	bw.WriteString(strings.Repeat("-", sep))
	bw.WriteString("\n")

	for {
		ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for i := 0; i < n; i++ {
			v, err := it.ColumnValue(i)
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, " | %-*s", widths[i], v.String())
		}
		bw.WriteString(" | \n")
	}
	bw.WriteString("\n")
	return bw.Flush()
}
