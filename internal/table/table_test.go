package table

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv/memkv"
	"github.com/tuannm99/rowstore/internal/record"
)

func personSchema(t *testing.T) record.Schema {
	t.Helper()
	s, err := record.NewSchema("Person",
		record.Column{Name: "id", Type: record.TypeInteger, PrimaryKey: true},
		record.Column{Name: "name", Type: record.TypeText, Length: 10},
		record.Column{Name: "age", Type: record.TypeInteger, NotNull: true},
	)
	require.NoError(t, err)
	return s
}

// newTestTable opens a Person table over a fresh in-memory store.
func newTestTable(t *testing.T) *Table {
	t.Helper()
	store, err := memkv.NewEnv().Open("Person.db")
	require.NoError(t, err)
	tbl := New(personSchema(t), store)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func insertPeople(t *testing.T, tbl *Table, rows ...[]any) {
	t.Helper()
	for _, r := range rows {
		vals, err := record.Values(r...)
		require.NoError(t, err)
		require.NoError(t, tbl.Insert(vals))
	}
}

// drain collects the ids of every row Next stops on.
func drain(t *testing.T, it *Iterator) []int32 {
	t.Helper()
	var ids []int32
	for {
		ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			return ids
		}
		v, err := it.ColumnValue(0)
		require.NoError(t, err)
		id, _ := v.AsInt()
		ids = append(ids, id)
	}
}

func TestIterator_PersonScenario(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30}, []any{2, nil, 40})

	it, err := tbl.NewIterator(Compare{Column: "age", Op: OpGt, Value: record.Int(35)})
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	row, err := it.Row()
	require.NoError(t, err)
	require.Equal(t, []record.Value{record.Int(2), record.Null(), record.Int(40)}, row)

	name, err := it.ColumnValue(1)
	require.NoError(t, err)
	require.True(t, name.IsNull())
	_, isText := name.AsText()
	require.False(t, isText)

	ok, err = it.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, it.Visited())
}

func TestIterator_PredicateAndVisited(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl,
		[]any{5, "Eve", 51},
		[]any{1, "Ann", 30},
		[]any{3, nil, 17},
		[]any{4, "Dan", 40},
		[]any{2, "Bob", 35},
	)

	tests := []struct {
		name string
		pred Predicate
		want []int32
	}{
		{"nil accepts all", nil, []int32{1, 2, 3, 4, 5}},
		{"age >= 35", Compare{Column: "age", Op: OpGe, Value: record.Int(35)}, []int32{2, 4, 5}},
		{"age compared with real", Compare{Column: "age", Op: OpLt, Value: record.Real(30.5)}, []int32{1, 3}},
		{"name is never equal to null", Compare{Column: "name", Op: OpEq, Value: record.Null()}, nil},
		{"null name fails !=", Compare{Column: "name", Op: OpNe, Value: record.Text("Ann")}, []int32{2, 4, 5}},
		{"and", And{
			Compare{Column: "age", Op: OpGt, Value: record.Int(20)},
			Compare{Column: "name", Op: OpLe, Value: record.Text("Bob")},
		}, []int32{1, 2}},
		{"or", Or{
			Compare{Column: "id", Op: OpEq, Value: record.Int(3)},
			Compare{Column: "id", Op: OpEq, Value: record.Int(5)},
		}, []int32{3, 5}},
		{"not", Not{Compare{Column: "age", Op: OpGt, Value: record.Int(35)}}, []int32{1, 2, 3}},
		{"empty or", Or{}, nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			it, err := tbl.NewIterator(tc.pred)
			require.NoError(t, err)
			defer it.Close()

			got := drain(t, it)
			require.Equal(t, tc.want, got)
			require.Equal(t, len(tc.want), it.Visited())

			// exhausted is sticky
			ok, err := it.Next()
			require.NoError(t, err)
			require.False(t, ok)
			require.Equal(t, len(tc.want), it.Visited())
		})
	}
}

func TestIterator_PredicateErrors(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30})

	it, err := tbl.NewIterator(Compare{Column: "height", Op: OpEq, Value: record.Int(1)})
	require.NoError(t, err)
	_, err = it.Next()
	require.ErrorIs(t, err, errs.ErrInvalidState)
	require.NoError(t, it.Close())

	it, err = tbl.NewIterator(Compare{Column: "name", Op: OpEq, Value: record.Int(1)})
	require.NoError(t, err)
	defer it.Close()
	ok, err := it.Next()
	require.ErrorIs(t, err, errs.ErrTypeMismatch)
	require.False(t, ok)
	require.Equal(t, 0, it.Visited())

	// the row that failed the predicate is not readable
	_, err = it.ColumnValue(0)
	require.ErrorIs(t, err, ErrNotPositioned)
	_, err = it.Row()
	require.ErrorIs(t, err, ErrNotPositioned)

	ok, err = it.Next()
	require.NoError(t, err)
	require.False(t, ok)

	// First still rewinds
	ok, err = it.First()
	require.NoError(t, err)
	require.True(t, ok)
	v, err := it.ColumnValue(0)
	require.NoError(t, err)
	require.Equal(t, record.Int(1), v)
}

func TestIterator_FirstIgnoresPredicate(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30}, []any{2, "Bob", 40}, []any{3, "Cid", 50})

	it, err := tbl.NewIterator(Compare{Column: "age", Op: OpGt, Value: record.Int(35)})
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.First()
	require.NoError(t, err)
	require.True(t, ok)
	v, err := it.ColumnValue(0)
	require.NoError(t, err)
	require.Equal(t, record.Int(1), v)
	require.Equal(t, 0, it.Visited())

	require.Equal(t, []int32{2, 3}, drain(t, it))
	require.Equal(t, 2, it.Visited())

	// First resets an exhausted iterator
	ok, err = it.First()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []int32{2, 3}, drain(t, it))
	require.Equal(t, 4, it.Visited())
}

func TestIterator_FirstOnEmptyTable(t *testing.T) {
	tbl := newTestTable(t)

	it, err := tbl.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.First()
	require.NoError(t, err)
	require.False(t, ok)

	_, err = it.ColumnValue(0)
	require.ErrorIs(t, err, ErrNotPositioned)
}

func TestIterator_ColumnValueGuards(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30})

	it, err := tbl.NewIterator(nil)
	require.NoError(t, err)

	// unopened
	_, err = it.ColumnValue(0)
	require.ErrorIs(t, err, errs.ErrInvalidState)

	// bad index wins over state
	_, err = it.ColumnValue(3)
	require.ErrorIs(t, err, errs.ErrOutOfRange)
	_, err = it.ColumnValue(-1)
	require.ErrorIs(t, err, errs.ErrOutOfRange)

	ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	v, err := it.ColumnValue(1)
	require.NoError(t, err)
	require.Equal(t, record.Text("Ann"), v)

	ok, err = it.Next()
	require.NoError(t, err)
	require.False(t, ok)
	_, err = it.ColumnValue(1)
	require.ErrorIs(t, err, ErrNotPositioned)

	require.NoError(t, it.Close())
	require.NoError(t, it.Close())

	_, err = it.ColumnValue(0)
	require.ErrorIs(t, err, ErrIteratorClosed)
	_, err = it.First()
	require.ErrorIs(t, err, ErrIteratorClosed)
	_, err = it.Next()
	require.ErrorIs(t, err, ErrIteratorClosed)
}

func TestIterator_IndependentCursors(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30}, []any{2, "Bob", 40})

	a, err := tbl.NewIterator(nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := tbl.NewIterator(nil)
	require.NoError(t, err)
	defer b.Close()
	require.Equal(t, 2, tbl.OpenIterators())

	ok, err := a.Next()
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = a.Next()
	require.NoError(t, err)
	require.True(t, ok)

	require.Equal(t, []int32{1, 2}, drain(t, b))

	v, err := a.ColumnValue(0)
	require.NoError(t, err)
	require.Equal(t, record.Int(2), v)
}

func TestIterator_CorruptRow(t *testing.T) {
	env := memkv.NewEnv()
	store, err := env.Open("Person.db")
	require.NoError(t, err)
	require.NoError(t, store.PutIfAbsent([]byte{0, 0, 0, 1}, []byte{0xff, 0xfe, 0x00}))

	tbl := New(personSchema(t), store)
	defer tbl.Close()

	it, err := tbl.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, err = it.ColumnValue(2)
	require.ErrorIs(t, err, errs.ErrStructural)
}

func TestIterator_PrintAll(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30}, []any{2, nil, 40})

	it, err := tbl.NewIterator(nil)
	require.NoError(t, err)
	defer it.Close()

	var buf bytes.Buffer
	require.NoError(t, it.PrintAll(&buf))

	lines := strings.Split(buf.String(), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "", lines[0])
	row := func(a, b, c string) string { return fmt.Sprintf(" | %-11s | %-10s | %-11s | ", a, b, c) }
	assert.Equal(t, row("id", "name", "age"), lines[1])
	assert.Equal(t, strings.Repeat("-", len(lines[1])), lines[2])
	assert.Equal(t, row("1", "Ann", "30"), lines[3])
	assert.Equal(t, row("2", "null", "40"), lines[4])
	assert.Equal(t, 2, it.Visited())
}

func TestTable_InsertGetDelete(t *testing.T) {
	tbl := newTestTable(t)
	insertPeople(t, tbl, []any{1, "Ann", 30})

	row, err := tbl.Get(record.Int(1))
	require.NoError(t, err)
	require.Equal(t, []record.Value{record.Int(1), record.Text("Ann"), record.Int(30)}, row)

	vals, err := record.Values(1, "Other", 99)
	require.NoError(t, err)
	err = tbl.Insert(vals)
	require.ErrorIs(t, err, ErrDuplicateKey)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	row, err = tbl.Get(record.Int(1))
	require.NoError(t, err)
	require.Equal(t, record.Text("Ann"), row[1])

	_, err = tbl.Get(record.Int(7))
	require.ErrorIs(t, err, errs.ErrNotFound)
	_, err = tbl.Get(record.Text("1"))
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	require.NoError(t, tbl.Delete(record.Int(1)))
	require.ErrorIs(t, tbl.Delete(record.Int(1)), ErrRowNotFound)
	_, err = tbl.Get(record.Int(1))
	require.ErrorIs(t, err, ErrRowNotFound)

	vals, err = record.Values(3, "Cid", nil)
	require.NoError(t, err)
	require.ErrorIs(t, tbl.Insert(vals), errs.ErrTypeMismatch)
}

func TestTable_CloseWithOpenIterators(t *testing.T) {
	tbl := newTestTable(t)

	it, err := tbl.NewIterator(nil)
	require.NoError(t, err)

	err = tbl.Close()
	require.ErrorIs(t, err, ErrTableBusy)
	require.True(t, tbl.IsOpen())

	require.NoError(t, it.Close())
	require.Equal(t, 0, tbl.OpenIterators())
	require.NoError(t, tbl.Close())
	require.False(t, tbl.IsOpen())
	require.NoError(t, tbl.Close())

	_, err = tbl.NewIterator(nil)
	require.ErrorIs(t, err, errs.ErrInvalidState)
	vals, err := record.Values(1, "Ann", 30)
	require.NoError(t, err)
	require.ErrorIs(t, tbl.Insert(vals), ErrTableClosed)
}

func TestParseCondition(t *testing.T) {
	s := personSchema(t)

	c, err := ParseCondition(s, "age>35")
	require.NoError(t, err)
	require.Equal(t, Compare{Column: "age", Op: OpGt, Value: record.Int(35)}, c)

	c, err = ParseCondition(s, " age <= 35 ")
	require.NoError(t, err)
	require.Equal(t, OpLe, c.Op)

	c, err = ParseCondition(s, "name != Ann")
	require.NoError(t, err)
	require.Equal(t, Compare{Column: "name", Op: OpNe, Value: record.Text("Ann")}, c)

	// split at the first operator; the rest is the literal
	c, err = ParseCondition(s, "name=a<=b")
	require.NoError(t, err)
	require.Equal(t, Compare{Column: "name", Op: OpEq, Value: record.Text("a<=b")}, c)
	c, err = ParseCondition(s, "name>=x!=y")
	require.NoError(t, err)
	require.Equal(t, Compare{Column: "name", Op: OpGe, Value: record.Text("x!=y")}, c)

	_, err = ParseCondition(s, "name!Ann")
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = ParseCondition(s, "=3")
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = ParseCondition(s, "height=3")
	require.ErrorIs(t, err, ErrUnknownColumn)
	_, err = ParseCondition(s, "age")
	require.ErrorIs(t, err, errs.ErrInvalidState)
	_, err = ParseCondition(s, "age=old")
	require.Error(t, err)
}
