// Package slot provides a single-value mailbox shared between one producer
// and any number of readers. A new value always replaces the previous one;
// nothing is queued.
package slot

import "sync"

// Cell holds the most recently published value and whether it is valid.
// The lock is held only for the swap or the copy, never across I/O.
type Cell[T any] struct {
	mu    sync.Mutex
	value T
	ok    bool
}

// Swap stores v with its validity flag and hands back the value it replaced,
// so the producer can release it. Readers that called Load earlier hold their
// own copies and are not affected.
func (c *Cell[T]) Swap(v T, ok bool) (old T, oldOK bool) {
	c.mu.Lock()
	old, oldOK = c.value, c.ok
	c.value, c.ok = v, ok
	c.mu.Unlock()
	return old, oldOK
}

// Load returns a copy of the current value made with clone while the lock is
// held. A nil clone returns the value as is. Before the first valid Swap it
// returns the zero value and false.
func (c *Cell[T]) Load(clone func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.ok {
		var zero T
		return zero, false
	}
	if clone == nil {
		return c.value, true
	}
	return clone(c.value), true
}

// Take empties the cell and returns what it held.
func (c *Cell[T]) Take() (T, bool) {
	var zero T
	return c.Swap(zero, false)
}
