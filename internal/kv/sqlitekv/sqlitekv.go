// Package sqlitekv is a kv.Env persisted in a single SQLite file. Each named
// store is a WITHOUT ROWID table keyed by a BLOB, so SQLite's memcmp ordering
// gives the byte-lexicographic order kv promises.
package sqlitekv

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/tuannm99/rowstore/internal/kv"
)

type Config struct {
	Path          string
	BusyTimeoutMS int
}

type Env struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ kv.Env = (*Env)(nil)

// Open opens (or creates) the SQLite file at cfg.Path.
func Open(cfg Config) (*Env, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlitekv: database path cannot be empty")
	}
	// _busy_timeout: wait for a lock before reporting SQLITE_BUSY, which
	// surfaces as kv.ErrConflict.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open %s: %w", cfg.Path, err)
	}
	// one connection: the store is used from a single goroutine and this
	// keeps every statement on the same view of the file.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitekv: open %s: %w", cfg.Path, classify(err))
	}
	slog.Debug("sqlitekv.open", "path", cfg.Path)
	return &Env{db: db, path: cfg.Path}, nil
}

func tableName(name string) string {
	return `"kv_` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (e *Env) Open(name string) (kv.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil, kv.ErrClosed
	}
	q := `CREATE TABLE IF NOT EXISTS ` + tableName(name) +
		` (k BLOB PRIMARY KEY NOT NULL, v BLOB NOT NULL) WITHOUT ROWID`
	if _, err := e.db.Exec(q); err != nil {
		return nil, fmt.Errorf("sqlitekv: create store %q: %w", name, classify(err))
	}
	return &Store{env: e, name: name, table: tableName(name)}, nil
}

func (e *Env) Remove(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return kv.ErrClosed
	}
	var n int
	err := e.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, "kv_"+name).Scan(&n)
	if err != nil {
		return fmt.Errorf("sqlitekv: remove store %q: %w", name, classify(err))
	}
	if n == 0 {
		return fmt.Errorf("%w: store %q", kv.ErrNotFound, name)
	}
	if _, err := e.db.Exec(`DROP TABLE ` + tableName(name)); err != nil {
		return fmt.Errorf("sqlitekv: remove store %q: %w", name, classify(err))
	}
	return nil
}

func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

func (e *Env) conn() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil, kv.ErrClosed
	}
	return e.db, nil
}

// classify maps SQLite lock contention onto kv.ErrConflict and leaves every
// other error as is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return fmt.Errorf("%w: %w", kv.ErrConflict, err)
		}
	}
	return err
}

type Store struct {
	env    *Env
	name   string
	table  string
	closed bool
}

var _ kv.Store = (*Store)(nil)

func (s *Store) db() (*sql.DB, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: %s", kv.ErrClosed, s.name)
	}
	return s.env.conn()
}

// nonNil keeps zero-length keys and values from binding as NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func (s *Store) Get(key []byte) ([]byte, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}
	var v []byte
	err = db.QueryRow(`SELECT v FROM `+s.table+` WHERE k = ?`, nonNil(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: get from %s: %w", s.name, classify(err))
	}
	return v, nil
}

func (s *Store) PutIfAbsent(key, value []byte) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	res, err := db.Exec(`INSERT INTO `+s.table+` (k, v) VALUES (?, ?) ON CONFLICT(k) DO NOTHING`,
		nonNil(key), nonNil(value))
	if err != nil {
		return fmt.Errorf("sqlitekv: put into %s: %w", s.name, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitekv: put into %s: %w", s.name, err)
	}
	if n == 0 {
		return kv.ErrKeyExists
	}
	return nil
}

func (s *Store) Delete(key []byte) error {
	db, err := s.db()
	if err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM `+s.table+` WHERE k = ?`, nonNil(key))
	if err != nil {
		return fmt.Errorf("sqlitekv: delete from %s: %w", s.name, classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlitekv: delete from %s: %w", s.name, err)
	}
	if n == 0 {
		return kv.ErrNotFound
	}
	return nil
}

func (s *Store) OpenCursor() (kv.Cursor, error) {
	if _, err := s.db(); err != nil {
		return nil, err
	}
	return &cursor{s: s}, nil
}

func (s *Store) Close() error {
	s.closed = true
	return nil
}

// cursor pages through the table one key at a time (keyset pagination), so
// it holds no statement or connection between steps.
type cursor struct {
	s          *Store
	cur        []byte
	positioned bool
	closed     bool
}

func (c *cursor) First() ([]byte, []byte, bool, error) {
	return c.step(`SELECT k, v FROM ` + c.s.table + ` ORDER BY k LIMIT 1`)
}

func (c *cursor) Next() ([]byte, []byte, bool, error) {
	if !c.positioned {
		return c.First()
	}
	return c.step(`SELECT k, v FROM `+c.s.table+` WHERE k > ? ORDER BY k LIMIT 1`, c.cur)
}

func (c *cursor) step(q string, args ...any) ([]byte, []byte, bool, error) {
	if c.closed {
		return nil, nil, false, kv.ErrClosed
	}
	db, err := c.s.db()
	if err != nil {
		return nil, nil, false, err
	}
	var k, v []byte
	err = db.QueryRow(q, args...).Scan(&k, &v)
	if errors.Is(err, sql.ErrNoRows) {
		if len(args) == 0 {
			c.positioned = false
		}
		return nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, false, fmt.Errorf("sqlitekv: scan %s: %w", c.s.name, classify(err))
	}
	c.cur = k
	c.positioned = true
	return k, v, true, nil
}

func (c *cursor) Close() error {
	c.closed = true
	return nil
}
