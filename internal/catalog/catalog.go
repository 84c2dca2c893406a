// Package catalog persists table schemas in a kv store.
//
// Entry format (big-endian):
//
//	key   = table name bytes
//	value = u8 columnCount
//	        { u8 nameLen, name, u8 typeCode, i32 length, bool notNull, bool primaryKey } x columnCount
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv"
	"github.com/tuannm99/rowstore/internal/record"
	"github.com/tuannm99/rowstore/internal/rowbuf"
)

// StoreName is the name of the kv store holding the catalog.
const StoreName = "catalog.db"

var (
	ErrNoColumns     = fmt.Errorf("catalog: table has no columns: %w", errs.ErrInvalidState)
	ErrUnencodable   = fmt.Errorf("catalog: schema cannot be encoded: %w", errs.ErrInvalidState)
	ErrTableExists   = fmt.Errorf("catalog: table already exists: %w", errs.ErrAlreadyExists)
	ErrTableNotFound = fmt.Errorf("catalog: no such table: %w", errs.ErrNotFound)
	ErrCorruptEntry  = fmt.Errorf("catalog: corrupt entry: %w", errs.ErrStructural)
)

// Catalog maps table names to schemas. It does not retry conflicts reported
// by the store.
type Catalog struct {
	store kv.Store
}

func New(store kv.Store) *Catalog {
	return &Catalog{store: store}
}

// Open opens the catalog store in env.
func Open(env kv.Env) (*Catalog, error) {
	s, err := env.Open(StoreName)
	if err != nil {
		return nil, fmt.Errorf("catalog: open: %w", err)
	}
	return New(s), nil
}

func (c *Catalog) Close() error {
	return c.store.Close()
}

// Put adds schema to the catalog. It never overwrites an existing entry.
func (c *Catalog) Put(schema record.Schema) error {
	if schema.NumCols() == 0 {
		return fmt.Errorf("%w: %s", ErrNoColumns, schema.Table)
	}
	key, value, err := Encode(schema)
	if err != nil {
		return err
	}
	err = c.store.PutIfAbsent(key, value)
	if errors.Is(err, kv.ErrKeyExists) {
		return fmt.Errorf("%w: %s", ErrTableExists, schema.Table)
	}
	if err != nil {
		return fmt.Errorf("catalog: put %s: %w", schema.Table, err)
	}
	return nil
}

// Get loads the schema of the named table.
func (c *Catalog) Get(name string) (record.Schema, error) {
	value, err := c.store.Get([]byte(name))
	if errors.Is(err, kv.ErrNotFound) {
		return record.Schema{}, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return record.Schema{}, fmt.Errorf("catalog: get %s: %w", name, err)
	}
	return Decode(name, value)
}

// Remove deletes the named table's entry.
func (c *Catalog) Remove(name string) error {
	err := c.store.Delete([]byte(name))
	if errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("catalog: remove %s: %w", name, err)
	}
	return nil
}

// List returns every table name in key order.
func (c *Catalog) List() (names []string, err error) {
	cur, err := c.store.OpenCursor()
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer func() {
		if cerr := cur.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	k, _, ok, err := cur.First()
	for ; ok && err == nil; k, _, ok, err = cur.Next() {
		names = append(names, string(k))
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return names, nil
}

// Encode builds the catalog key and value for schema. Schemas that fail
// Validate are refused.
func Encode(schema record.Schema) (key, value []byte, err error) {
	if schema.Table == "" {
		return nil, nil, fmt.Errorf("%w: empty table name", ErrUnencodable)
	}
	if schema.NumCols() > math.MaxUint8 {
		return nil, nil, fmt.Errorf("%w: %s has %d columns, max %d", ErrUnencodable, schema.Table, schema.NumCols(), math.MaxUint8)
	}
	// Decode applies the same check
	if err := schema.Validate(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUnencodable, err)
	}

	kw := rowbuf.NewWriter(len(schema.Table))
	kw.PutText(schema.Table)

	vw := rowbuf.NewWriter(1 + schema.NumCols()*16)
	vw.PutByte(byte(schema.NumCols()))
	for _, col := range schema.Cols {
		if len(col.Name) == 0 || len(col.Name) > math.MaxUint8 {
			return nil, nil, fmt.Errorf("%w: column name %q of %s must be 1..%d bytes", ErrUnencodable, col.Name, schema.Table, math.MaxUint8)
		}
		vw.PutByte(byte(len(col.Name)))
		vw.PutText(col.Name)
		vw.PutByte(byte(col.Type))
		vw.PutInt(col.Length)
		vw.PutBool(col.NotNull)
		vw.PutBool(col.PrimaryKey)
	}
	return kw.Bytes(), vw.Bytes(), nil
}

// Decode parses a catalog value. Column ordinals follow stored order.
func Decode(name string, value []byte) (record.Schema, error) {
	r := rowbuf.NewReader(value)
	corrupt := func(err error) (record.Schema, error) {
		return record.Schema{}, fmt.Errorf("%w: %s: %w", ErrCorruptEntry, name, err)
	}

	n, err := r.NextByte()
	if err != nil {
		return corrupt(err)
	}
	cols := make([]record.Column, 0, n)
	for i := 0; i < int(n); i++ {
		nameLen, err := r.NextByte()
		if err != nil {
			return corrupt(err)
		}
		colName, err := r.NextText(int(nameLen))
		if err != nil {
			return corrupt(err)
		}
		typ, err := r.NextByte()
		if err != nil {
			return corrupt(err)
		}
		length, err := r.NextInt()
		if err != nil {
			return corrupt(err)
		}
		notNull, err := r.NextBool()
		if err != nil {
			return corrupt(err)
		}
		pk, err := r.NextBool()
		if err != nil {
			return corrupt(err)
		}
		cols = append(cols, record.Column{
			Name:       colName,
			Type:       record.ColumnType(typ),
			Length:     length,
			NotNull:    notNull,
			PrimaryKey: pk,
			Index:      i,
		})
	}
	if r.Remaining() != 0 {
		return corrupt(fmt.Errorf("%d trailing bytes", r.Remaining()))
	}

	schema := record.Schema{Table: name, Cols: cols}
	if err := schema.Validate(); err != nil {
		return corrupt(err)
	}
	return schema, nil
}
