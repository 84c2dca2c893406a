package lock

import (
	"fmt"
	"sync/atomic"
)

// RefCount tracks how many users currently hold a resource, e.g. the open
// iterators of a table. A table is only closed or evicted once it drops to
// zero. The zero value is ready to use.
type RefCount struct {
	count int32
}

// Inc adds one holder and returns the new count.
func (r *RefCount) Inc() int32 {
	return atomic.AddInt32(&r.count, 1)
}

// Dec drops one holder and reports whether none remain.
func (r *RefCount) Dec() bool {
	newCount := atomic.AddInt32(&r.count, -1)
	if newCount < 0 {
		panic("refcount dropped below zero")
	}
	return newCount == 0
}

func (r *RefCount) Get() int32 {
	return atomic.LoadInt32(&r.count)
}

func (r *RefCount) String() string {
	return fmt.Sprintf("RefCount: %d", r.Get())
}
