package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/rowstore/internal"
	"github.com/tuannm99/rowstore/internal/cache"
	"github.com/tuannm99/rowstore/internal/catalog"
	"github.com/tuannm99/rowstore/internal/errs"
	"github.com/tuannm99/rowstore/internal/kv"
	"github.com/tuannm99/rowstore/internal/kv/memkv"
	"github.com/tuannm99/rowstore/internal/kv/sqlitekv"
	"github.com/tuannm99/rowstore/internal/record"
	"github.com/tuannm99/rowstore/internal/table"
)

var ErrDatabaseClosed = fmt.Errorf("rowstore: database is closed: %w", errs.ErrInvalidState)

type DatabaseOperation interface {
	CreateTable(schema record.Schema) (*table.Table, error)
	OpenTable(name string) (*table.Table, error)
	DropTable(name string) error
	ListTables() ([]string, error)
	Close() error
}

var _ DatabaseOperation = (*Database)(nil)

type Options struct {
	// ConflictRetries bounds how many times an operation is retried after
	// the store reports a conflict.
	ConflictRetries int
	// TableCacheSize bounds how many idle tables stay open; 0 is unbounded.
	TableCacheSize int
}

// Database ties the catalog and the per-table stores of one kv.Env together.
type Database struct {
	mu      sync.Mutex
	env     kv.Env
	catalog *catalog.Catalog
	tables  *cache.LRU[*table.Table]
	opts    Options
	closed  bool
}

// Open builds a Database over env. The database owns env and closes it.
func Open(env kv.Env, opts Options) (*Database, error) {
	cat, err := catalog.Open(env)
	if err != nil {
		return nil, err
	}
	db := &Database{
		env:     env,
		catalog: cat,
		tables:  cache.NewLRU[*table.Table](opts.TableCacheSize),
		opts:    opts,
	}
	db.tables.OnEvict = func(name string, _ *table.Table, err error) {
		if err != nil {
			slog.Warn("engine: evict table", "table", name, "err", err)
			return
		}
		slog.Debug("engine: evicted table", "table", name)
	}
	return db, nil
}

// OpenEnv creates the kv.Env selected by cfg.Storage.Mode.
func OpenEnv(cfg *internal.RowStoreConfig) (kv.Env, error) {
	switch cfg.Storage.Mode {
	case internal.StorageMemory:
		return memkv.NewEnv(), nil
	case internal.StorageSQLite:
		return sqlitekv.Open(sqlitekv.Config{
			Path:          cfg.Storage.Path,
			BusyTimeoutMS: cfg.Storage.BusyTimeoutMS,
		})
	}
	return nil, fmt.Errorf("rowstore: unknown storage mode %q", cfg.Storage.Mode)
}

// OpenConfig opens the storage described by cfg and a Database over it.
func OpenConfig(cfg *internal.RowStoreConfig) (*Database, error) {
	env, err := OpenEnv(cfg)
	if err != nil {
		return nil, err
	}
	db, err := Open(env, Options{
		ConflictRetries: cfg.Engine.ConflictRetries,
		TableCacheSize:  cfg.Engine.TableCacheSize,
	})
	if err != nil {
		_ = env.Close()
		return nil, err
	}
	slog.Info("engine: database opened", "app", cfg.AppName, "mode", cfg.Storage.Mode)
	return db, nil
}

// storeName is the kv store holding a table's rows.
func storeName(table string) string {
	return table + ".db"
}

// withRetry runs fn until it succeeds, fails with a non-conflict error, or
// the retry budget is spent.
func (db *Database) withRetry(op, name string, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !errs.Retryable(err) || attempt >= db.opts.ConflictRetries {
			return err
		}
		slog.Warn("engine: conflict, retrying",
			"op", op,
			"table", name,
			"attempt", attempt+1,
			"err", err,
		)
	}
}

func (db *Database) CreateTable(schema record.Schema) (*table.Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}

	err := db.withRetry("create", schema.Table, func() error {
		return db.catalog.Put(schema)
	})
	if err != nil {
		return nil, err
	}

	tbl, err := db.openLocked(schema)
	if err != nil {
		return nil, err
	}
	slog.Info("engine: created table", "table", schema.Table, "columns", schema.NumCols())
	return tbl, nil
}

func (db *Database) openLocked(schema record.Schema) (*table.Table, error) {
	store, err := db.env.Open(storeName(schema.Table))
	if err != nil {
		return nil, fmt.Errorf("rowstore: open store of %s: %w", schema.Table, err)
	}
	tbl := table.New(schema, store)
	db.tables.Put(schema.Table, tbl)
	return tbl, nil
}

// OpenTable returns the open handle of the named table, loading its schema
// from the catalog on first use. The handle stays valid until the table is
// dropped, the database is closed, or it is evicted while idle; the
// Database methods below reopen it as needed.
func (db *Database) OpenTable(name string) (*table.Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.tableLocked(name)
}

func (db *Database) tableLocked(name string) (*table.Table, error) {
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	if tbl, ok := db.tables.Get(name); ok && tbl.IsOpen() {
		return tbl, nil
	}

	var schema record.Schema
	err := db.withRetry("open", name, func() error {
		var err error
		schema, err = db.catalog.Get(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	tbl, err := db.openLocked(schema)
	if err != nil {
		return nil, err
	}
	slog.Debug("engine: opened table", "table", name)
	return tbl, nil
}

// DropTable closes the named table, deletes its catalog entry and removes
// its rows. It fails while the table has open iterators.
func (db *Database) DropTable(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}

	if tbl, ok := db.tables.Get(name); ok {
		if err := tbl.Close(); err != nil {
			return err
		}
		db.tables.Remove(name)
	}

	err := db.withRetry("drop", name, func() error {
		return db.catalog.Remove(name)
	})
	if err != nil {
		return err
	}

	err = db.withRetry("drop", name, func() error {
		return db.env.Remove(storeName(name))
	})
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("rowstore: remove rows of %s: %w", name, err)
	}
	slog.Info("engine: dropped table", "table", name)
	return nil
}

func (db *Database) ListTables() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrDatabaseClosed
	}
	var names []string
	err := db.withRetry("list", "", func() error {
		var err error
		names, err = db.catalog.List()
		return err
	})
	return names, err
}

// Describe returns the schema of the named table.
func (db *Database) Describe(name string) (record.Schema, error) {
	tbl, err := db.OpenTable(name)
	if err != nil {
		return record.Schema{}, err
	}
	return tbl.Schema, nil
}

// withTable runs fn against the named table under the database lock,
// retrying conflicts.
func (db *Database) withTable(op, name string, fn func(*table.Table) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	tbl, err := db.tableLocked(name)
	if err != nil {
		return err
	}
	return db.withRetry(op, name, func() error { return fn(tbl) })
}

func (db *Database) Insert(name string, values []record.Value) error {
	return db.withTable("insert", name, func(tbl *table.Table) error {
		return tbl.Insert(values)
	})
}

func (db *Database) Get(name string, pk record.Value) ([]record.Value, error) {
	var row []record.Value
	err := db.withTable("get", name, func(tbl *table.Table) error {
		var err error
		row, err = tbl.Get(pk)
		return err
	})
	return row, err
}

func (db *Database) Delete(name string, pk record.Value) error {
	return db.withTable("delete", name, func(tbl *table.Table) error {
		return tbl.Delete(pk)
	})
}

// Scan opens an iterator over the rows of the named table satisfying pred.
// The table is kept open until the iterator is closed.
func (db *Database) Scan(name string, pred table.Predicate) (*table.Iterator, error) {
	var it *table.Iterator
	err := db.withTable("scan", name, func(tbl *table.Table) error {
		var err error
		it, err = tbl.NewIterator(pred)
		return err
	})
	return it, err
}

// Close closes every cached table, the catalog and the environment. Tables
// with open iterators are reported in the returned error but the rest is
// still released.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	var errList []error
	for _, tbl := range db.tables.Drain() {
		if err := tbl.Close(); err != nil {
			errList = append(errList, err)
		}
	}
	if err := db.catalog.Close(); err != nil {
		errList = append(errList, err)
	}
	if err := db.env.Close(); err != nil {
		errList = append(errList, err)
	}
	slog.Debug("engine: database closed")
	return errors.Join(errList...)
}
