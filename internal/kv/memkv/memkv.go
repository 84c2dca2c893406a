// Package memkv is an in-memory kv.Env backed by a B-tree. It is used by
// tests and by the "memory" storage mode.
package memkv

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/tuannm99/rowstore/internal/kv"
)

const degree = 32

type item struct {
	key   []byte
	value []byte
}

func less(a, b item) bool { return bytes.Compare(a.key, b.key) < 0 }

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// db is the shared state behind every handle opened on one name.
type db struct {
	mu      sync.RWMutex
	tree    *btree.BTreeG[item]
	dropped bool
	closed  bool
}

type Env struct {
	mu     sync.Mutex
	dbs    map[string]*db
	closed bool
}

var _ kv.Env = (*Env)(nil)

func NewEnv() *Env {
	return &Env{dbs: make(map[string]*db)}
}

func (e *Env) Open(name string) (kv.Store, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, kv.ErrClosed
	}
	d, ok := e.dbs[name]
	if !ok {
		d = &db{tree: btree.NewG[item](degree, less)}
		e.dbs[name] = d
	}
	return &Store{name: name, db: d}, nil
}

func (e *Env) Remove(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return kv.ErrClosed
	}
	d, ok := e.dbs[name]
	if !ok {
		return fmt.Errorf("%w: store %q", kv.ErrNotFound, name)
	}
	d.mu.Lock()
	d.dropped = true
	d.tree.Clear(false)
	d.mu.Unlock()
	delete(e.dbs, name)
	return nil
}

// Close closes the environment and every handle opened on it. Closing twice
// is a no-op.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, d := range e.dbs {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
	}
	e.dbs = nil
	e.closed = true
	return nil
}

// Store is one handle on a named tree. Closing it does not affect other
// handles on the same name.
type Store struct {
	name   string
	db     *db
	closed bool
}

var _ kv.Store = (*Store)(nil)

func (s *Store) check() error {
	if s.closed || s.db.dropped || s.db.closed {
		return fmt.Errorf("%w: %s", kv.ErrClosed, s.name)
	}
	return nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	it, ok := s.db.tree.Get(item{key: key})
	if !ok {
		return nil, kv.ErrNotFound
	}
	return clone(it.value), nil
}

func (s *Store) PutIfAbsent(key, value []byte) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if s.db.tree.Has(item{key: key}) {
		return kv.ErrKeyExists
	}
	s.db.tree.ReplaceOrInsert(item{key: clone(key), value: clone(value)})
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	if _, ok := s.db.tree.Delete(item{key: key}); !ok {
		return kv.ErrNotFound
	}
	return nil
}

// Len returns the number of keys in the store.
func (s *Store) Len() int {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return s.db.tree.Len()
}

func (s *Store) OpenCursor() (kv.Cursor, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	return &cursor{s: s}, nil
}

func (s *Store) Close() error {
	s.closed = true
	return nil
}

// cursor remembers only the last key it returned, so writes between steps
// are seen (or not) according to key order.
type cursor struct {
	s          *Store
	cur        []byte
	positioned bool
	closed     bool
}

func (c *cursor) First() ([]byte, []byte, bool, error) {
	if c.closed {
		return nil, nil, false, kv.ErrClosed
	}
	c.s.db.mu.RLock()
	defer c.s.db.mu.RUnlock()
	if err := c.s.check(); err != nil {
		return nil, nil, false, err
	}
	it, ok := c.s.db.tree.Min()
	if !ok {
		c.positioned = false
		return nil, nil, false, nil
	}
	return c.land(it)
}

func (c *cursor) Next() ([]byte, []byte, bool, error) {
	if !c.positioned {
		return c.First()
	}
	if c.closed {
		return nil, nil, false, kv.ErrClosed
	}
	c.s.db.mu.RLock()
	defer c.s.db.mu.RUnlock()
	if err := c.s.check(); err != nil {
		return nil, nil, false, err
	}

	var (
		next  item
		found bool
	)
	c.s.db.tree.AscendGreaterOrEqual(item{key: c.cur}, func(it item) bool {
		if bytes.Equal(it.key, c.cur) {
			return true
		}
		next, found = it, true
		return false
	})
	if !found {
		return nil, nil, false, nil
	}
	return c.land(next)
}

func (c *cursor) land(it item) ([]byte, []byte, bool, error) {
	c.cur = clone(it.key)
	c.positioned = true
	return clone(it.key), clone(it.value), true, nil
}

func (c *cursor) Close() error {
	c.closed = true
	return nil
}
