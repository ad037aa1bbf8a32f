package paging

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

var (
	// ErrClosed is returned once the owning screen tore the collection down.
	ErrClosed = errors.New("paging: collection closed")
	// ErrStale marks a response that arrived after Close or Reset and was dropped.
	ErrStale = errors.New("paging: stale response dropped")
)

// FetchFunc performs one network call for req.
type FetchFunc[T any] func(ctx context.Context, req Request) (Window[T], error)

// Options configure a Collection. Zero values are usable except Size.
type Options struct {
	Name    string
	Size    int
	Sort    string
	Metrics metrics.Recorder
	Logger  *zap.Logger
}

// State is a snapshot for rendering.
type State struct {
	Page    int
	HasMore bool
	Loading bool
	Closed  bool
	Len     int
}

// Collection accumulates pages of one logical list, de-duplicated by key, in
// arrival order. One fetch at a time: LoadMore while loading is a silent no-op.
// Live pushes go through the same key index, first write wins.
type Collection[K comparable, T any] struct {
	name    string
	size    int
	sort    string
	key     func(T) K
	fetch   FetchFunc[T]
	metrics metrics.Recorder
	log     *zap.Logger

	mu       sync.Mutex
	items    []T
	index    map[K]int
	cursor   Cursor
	loading  bool
	closed   bool
	gen      uint64
	inflight context.CancelFunc
	held     map[K]struct{}
}

// New builds an empty collection; nothing is fetched until LoadMore.
func New[K comparable, T any](key func(T) K, fetch FetchFunc[T], opts Options) *Collection[K, T] {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop
	}
	if opts.Logger == nil {
		opts.Logger = logger.Named("paging")
	}
	if opts.Name == "" {
		opts.Name = "collection"
	}
	return &Collection[K, T]{
		name:    opts.Name,
		size:    opts.Size,
		sort:    opts.Sort,
		key:     key,
		fetch:   fetch,
		metrics: opts.Metrics,
		log:     opts.Logger.With(zap.String("collection", opts.Name)),
		index:   make(map[K]int),
		held:    make(map[K]struct{}),
		cursor:  NewCursor(opts.Size, opts.Sort),
	}
}

// LoadMore fetches the next page and merges it. It returns how many new items
// were appended. It does nothing (0, nil) while a fetch is outstanding or after
// the last page. On error the accumulated items and the cursor are untouched.
func (c *Collection[K, T]) LoadMore(ctx context.Context) (int, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	if c.loading {
		c.mu.Unlock()
		return 0, nil
	}
	req, err := c.cursor.Next()
	if err != nil {
		c.mu.Unlock()
		return 0, nil
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.loading = true
	c.inflight = cancel
	gen := c.gen
	c.mu.Unlock()

	w, err := c.fetch(fetchCtx, req)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.metrics.StaleDropped(c.name)
		c.log.Debug("drop stale page", zap.Int("page", req.Page))
		return 0, ErrStale
	}
	c.loading = false
	c.inflight = nil

	if err == nil && w == nil {
		err = errors.New("paging: fetch returned no window")
	}
	if err != nil {
		c.metrics.PageFailed(c.name)
		c.log.Warn("page fetch failed", zap.Int("page", req.Page), zap.Error(err))
		return 0, err
	}

	items := w.Items()
	added := c.appendLocked(items)
	c.cursor.Advance(w)
	c.metrics.PageFetched(c.name, len(items))
	c.log.Debug("page merged",
		zap.Int("page", req.Page),
		zap.Int("received", len(items)),
		zap.Int("added", added),
		zap.Bool("has_more", c.cursor.HasMore()),
	)
	return added, nil
}

// Push merges one live item. It reports whether the item was new.
func (c *Collection[K, T]) Push(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	return c.appendLocked([]T{item}) == 1
}

func (c *Collection[K, T]) appendLocked(incoming []T) int {
	added := 0
	for _, it := range incoming {
		k := c.key(it)
		if _, ok := c.index[k]; ok {
			continue
		}
		c.index[k] = len(c.items)
		c.items = append(c.items, it)
		added++
	}
	return added
}

// Update mutates the item with key k in place. fn must not change the key.
func (c *Collection[K, T]) Update(k K, fn func(*T)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[k]
	if !ok {
		return false
	}
	fn(&c.items[i])
	return true
}

// Edit returns the entry for key k, an editor for optimistic.Apply.
func (c *Collection[K, T]) Edit(k K) Entry[K, T] {
	return Entry[K, T]{c: c, k: k}
}

// Entry is one key of a Collection. At most one hold per key is granted
// until it is released; the item itself may come and go meanwhile.
type Entry[K comparable, T any] struct {
	c *Collection[K, T]
	k K
}

func (e Entry[K, T]) Edit(fn func(*T)) bool { return e.c.Update(e.k, fn) }

func (e Entry[K, T]) Hold() bool {
	e.c.mu.Lock()
	defer e.c.mu.Unlock()
	if _, busy := e.c.held[e.k]; busy {
		return false
	}
	e.c.held[e.k] = struct{}{}
	return true
}

func (e Entry[K, T]) Release() {
	e.c.mu.Lock()
	delete(e.c.held, e.k)
	e.c.mu.Unlock()
}

// Remove deletes the item with key k (explicit user action).
func (c *Collection[K, T]) Remove(k K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[k]
	if !ok {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	delete(c.index, k)
	for j := i; j < len(c.items); j++ {
		c.index[c.key(c.items[j])] = j
	}
	return true
}

// Get returns a copy of the item with key k.
func (c *Collection[K, T]) Get(k K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i, ok := c.index[k]
	if !ok {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Items returns a copy of the accumulated items in arrival order.
func (c *Collection[K, T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Collection[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[K, T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Page:    c.cursor.Page(),
		HasMore: c.cursor.HasMore(),
		Loading: c.loading,
		Closed:  c.closed,
		Len:     len(c.items),
	}
}

// Reset drops everything and rewinds to page 0 (pull-to-refresh). An in-flight
// fetch is cancelled and its response discarded.
func (c *Collection[K, T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.invalidateLocked()
	c.cursor = NewCursor(c.size, c.sort)
}

// Close tears the collection down with its screen. Later fetch results are dropped.
func (c *Collection[K, T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.invalidateLocked()
}

func (c *Collection[K, T]) invalidateLocked() {
	c.gen++
	if c.inflight != nil {
		c.inflight()
		c.inflight = nil
	}
	c.loading = false
	c.items = nil
	c.index = make(map[K]int)
}

// Merge is the pure form of the accumulator: existing items followed by the
// unseen incoming ones. Re-merging the same page is a no-op.
func Merge[K comparable, T any](existing, incoming []T, key func(T) K) ([]T, int) {
	seen := make(map[K]struct{}, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))
	for _, it := range existing {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	added := 0
	for _, it := range incoming {
		k := key(it)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
		added++
	}
	return out, added
}
