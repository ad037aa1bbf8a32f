package optimistic

import "sync"

// Value holds a single item (e.g. a profile header or a post detail). A *Value
// is an Editor like a collection entry.
type Value[T any] struct {
	mu   sync.Mutex
	v    T
	set  bool
	held bool
}

// Set replaces the held item with an authoritative copy.
func (v *Value[T]) Set(item T) {
	v.mu.Lock()
	v.v = item
	v.set = true
	v.mu.Unlock()
}

// Get returns a copy and whether anything was set.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v, v.set
}

// Clear forgets the held item.
func (v *Value[T]) Clear() {
	v.mu.Lock()
	var zero T
	v.v = zero
	v.set = false
	v.mu.Unlock()
}

// Edit implements Editor.
func (v *Value[T]) Edit(fn func(*T)) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.set {
		return false
	}
	fn(&v.v)
	return true
}

func (v *Value[T]) Hold() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.held {
		return false
	}
	v.held = true
	return true
}

func (v *Value[T]) Release() {
	v.mu.Lock()
	v.held = false
	v.mu.Unlock()
}
