package cache

import (
	"container/list"
	"sync"
)

// Evictable is a value the LRU may drop. Busy values are skipped when making
// room; Close is called on every value that leaves the cache by eviction.
type Evictable interface {
	Busy() bool
	Close() error
}

type entry[V Evictable] struct {
	key string
	val V
}

// LRU keeps up to Capacity values by name, evicting the least recently used
// idle value when full. A capacity of 0 means unbounded. When every cached
// value is busy the cache grows past its capacity rather than fail.
type LRU[V Evictable] struct {
	mu       sync.Mutex
	capacity int
	lruList  *list.List
	items    map[string]*list.Element

	// OnEvict, if set, is called after an evicted value is closed.
	OnEvict func(key string, val V, err error)
}

func NewLRU[V Evictable](capacity int) *LRU[V] {
	return &LRU[V]{
		capacity: capacity,
		lruList:  list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the value cached under key and marks it most recently used.
func (l *LRU[V]) Get(key string) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	elem, ok := l.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.lruList.MoveToFront(elem)
	return elem.Value.(*entry[V]).val, true
}

// Put caches val under key, replacing (without closing) any previous value.
func (l *LRU[V]) Put(key string, val V) {
	l.mu.Lock()
	if elem, ok := l.items[key]; ok {
		elem.Value.(*entry[V]).val = val
		l.lruList.MoveToFront(elem)
		l.mu.Unlock()
		return
	}
	l.items[key] = l.lruList.PushFront(&entry[V]{key: key, val: val})
	evicted := l.evictLocked()
	l.mu.Unlock()

	// close outside the lock; Close may do I/O
	for _, e := range evicted {
		err := e.val.Close()
		if l.OnEvict != nil {
			l.OnEvict(e.key, e.val, err)
		}
	}
}

func (l *LRU[V]) evictLocked() []*entry[V] {
	if l.capacity <= 0 {
		return nil
	}
	var out []*entry[V]
	elem := l.lruList.Back()
	// the front entry was just put and is never a candidate
	for l.lruList.Len() > l.capacity && elem != nil && elem != l.lruList.Front() {
		prev := elem.Prev()
		e := elem.Value.(*entry[V])
		if !e.val.Busy() {
			l.lruList.Remove(elem)
			delete(l.items, e.key)
			out = append(out, e)
		}
		elem = prev
	}
	return out
}

// Remove drops key from the cache without closing it and returns the value.
func (l *LRU[V]) Remove(key string) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	elem, ok := l.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	l.lruList.Remove(elem)
	delete(l.items, key)
	return elem.Value.(*entry[V]).val, true
}

// Drain empties the cache and returns its values, most recently used first.
func (l *LRU[V]) Drain() []V {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]V, 0, l.lruList.Len())
	for elem := l.lruList.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*entry[V]).val)
	}
	l.lruList.Init()
	clear(l.items)
	return out
}

// Keys returns the cached keys, most recently used first.
func (l *LRU[V]) Keys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, l.lruList.Len())
	for elem := l.lruList.Front(); elem != nil; elem = elem.Next() {
		out = append(out, elem.Value.(*entry[V]).key)
	}
	return out
}

func (l *LRU[V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lruList.Len()
}
