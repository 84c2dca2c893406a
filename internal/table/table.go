package table

import (
	"errors"
	"fmt"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv"
	"github.com/tuannm99/rowstore/internal/lock"
	"github.com/tuannm99/rowstore/internal/record"
)

var (
	ErrDuplicateKey = fmt.Errorf("table: duplicate primary key: %w", errs.ErrAlreadyExists)
	ErrRowNotFound  = fmt.Errorf("table: row not found: %w", errs.ErrNotFound)
	ErrTableClosed  = fmt.Errorf("table: table is closed: %w", errs.ErrInvalidState)
	ErrTableBusy    = fmt.Errorf("table: table has open iterators: %w", errs.ErrInvalidState)
)

// Table is an open handle over the kv store holding one table's rows, keyed
// by primary key.
type Table struct {
	Schema record.Schema

	store kv.Store
	iters lock.RefCount
}

// New binds schema to store. The table takes ownership of store and closes it
// in Close. A nil store yields a closed table.
func New(schema record.Schema, store kv.Store) *Table {
	return &Table{Schema: schema, store: store}
}

func (t *Table) Name() string { return t.Schema.Table }

func (t *Table) IsOpen() bool { return t.store != nil }

// OpenIterators reports how many iterators are still open over t.
func (t *Table) OpenIterators() int { return int(t.iters.Get()) }

// Busy reports whether t has open iterators and so cannot be closed.
func (t *Table) Busy() bool { return t.iters.Get() > 0 }

// Insert encodes values and stores the row. An existing row with the same
// primary key is left untouched and ErrDuplicateKey is returned.
func (t *Table) Insert(values []record.Value) error {
	if !t.IsOpen() {
		return fmt.Errorf("%w: %s", ErrTableClosed, t.Name())
	}
	key, value, err := record.EncodeRow(t.Schema, values)
	if err != nil {
		return err
	}
	err = t.store.PutIfAbsent(key, value)
	if errors.Is(err, kv.ErrKeyExists) {
		return fmt.Errorf("%w: %s key %v", ErrDuplicateKey, t.Name(), values[t.Schema.PrimaryKey()])
	}
	if err != nil {
		return fmt.Errorf("table: insert into %s: %w", t.Name(), err)
	}
	return nil
}

func (t *Table) lookupKey(pk record.Value) ([]byte, error) {
	if !t.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrTableClosed, t.Name())
	}
	idx := t.Schema.PrimaryKey()
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", record.ErrNoPrimaryKey, t.Name())
	}
	return record.EncodeKey(t.Schema.Cols[idx], pk)
}

// Get returns the row whose primary key is pk.
func (t *Table) Get(pk record.Value) ([]record.Value, error) {
	key, err := t.lookupKey(pk)
	if err != nil {
		return nil, err
	}
	value, err := t.store.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s key %v", ErrRowNotFound, t.Name(), pk)
	}
	if err != nil {
		return nil, fmt.Errorf("table: get from %s: %w", t.Name(), err)
	}
	return record.DecodeRow(t.Schema, key, value)
}

// Delete removes the row whose primary key is pk.
func (t *Table) Delete(pk record.Value) error {
	key, err := t.lookupKey(pk)
	if err != nil {
		return err
	}
	err = t.store.Delete(key)
	if errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("%w: %s key %v", ErrRowNotFound, t.Name(), pk)
	}
	if err != nil {
		return fmt.Errorf("table: delete from %s: %w", t.Name(), err)
	}
	return nil
}

// NewIterator opens a forward iterator over every row satisfying pred. A nil
// pred accepts every row. The caller must Close the iterator.
func (t *Table) NewIterator(pred Predicate) (*Iterator, error) {
	if !t.IsOpen() {
		return nil, fmt.Errorf("%w: %s", ErrTableClosed, t.Name())
	}
	if pred == nil {
		pred = True{}
	}
	cur, err := t.store.OpenCursor()
	if err != nil {
		return nil, fmt.Errorf("table: open cursor on %s: %w", t.Name(), err)
	}
	t.iters.Inc()
	return &Iterator{table: t, cursor: cur, pred: pred}, nil
}

// Close releases the store. It fails with ErrTableBusy while iterators are
// open; closing a closed table is a no-op.
func (t *Table) Close() error {
	if !t.IsOpen() {
		return nil
	}
	if n := t.iters.Get(); n > 0 {
		return fmt.Errorf("%w: %s has %d", ErrTableBusy, t.Name(), n)
	}
	err := t.store.Close()
	t.store = nil
	if err != nil {
		return fmt.Errorf("table: close %s: %w", t.Name(), err)
	}
	return nil
}
