// Package optimistic applies speculative local changes and reverts them exactly
// when the confirming call fails.
//
// A Mutation is a descriptor: it names the boolean field and/or counter it
// touches. Apply records the prior flag and the counter delta it actually
// applied; Rollback restores the flag and subtracts that same delta. Call sites
// never compute the inverse themselves.
package optimistic

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/d60-Lab/feedsync/internal/metrics"
	"github.com/d60-Lab/feedsync/pkg/logger"
)

var (
	// ErrNotFound is returned when the editor no longer holds the target item.
	ErrNotFound = errors.New("optimistic: item not found")
	// ErrPending rejects a mutation on an item whose previous one is unresolved.
	ErrPending = errors.New("optimistic: mutation already pending")
)

// Editor is the source of one item: a paging.Collection entry or a *Value.
// Edit runs fn against the live item and reports whether it exists. Hold
// admits one unresolved mutation per item; Release frees it.
type Editor[T any] interface {
	Edit(fn func(*T)) bool
	Hold() bool
	Release()
}

type kind int

const (
	kindToggle kind = iota + 1
	kindClear
)

// Mutation describes a speculative change on T.
type Mutation[T any] struct {
	name    string
	kind    kind
	flag    func(*T) *bool
	counter func(*T) *int
}

// Toggle flips flag and moves counter by one in the same direction. counter may
// be nil.
func Toggle[T any](name string, flag func(*T) *bool, counter func(*T) *int) Mutation[T] {
	return Mutation[T]{name: name, kind: kindToggle, flag: flag, counter: counter}
}

// Clear sets counter to zero (e.g. unread messages on entering a room).
func Clear[T any](name string, counter func(*T) *int) Mutation[T] {
	return Mutation[T]{name: name, kind: kindClear, counter: counter}
}

// Name is used for logs and metrics.
func (m Mutation[T]) Name() string { return m.name }

// Pending is an applied, unresolved mutation.
type Pending[T any] struct {
	m       Mutation[T]
	edit    Editor[T]
	metrics metrics.Recorder

	hadFlag   bool
	priorFlag bool
	delta     int

	once     sync.Once
	resolved string
}

// Apply changes the item synchronously and returns the handle to resolve it.
// While that handle is unresolved, Apply on the same item fails with ErrPending.
func Apply[T any](edit Editor[T], m Mutation[T]) (*Pending[T], error) {
	if !edit.Hold() {
		return nil, ErrPending
	}
	p := &Pending[T]{m: m, edit: edit, metrics: metrics.Nop}
	ok := edit.Edit(func(it *T) {
		switch m.kind {
		case kindToggle:
			f := m.flag(it)
			p.hadFlag = true
			p.priorFlag = *f
			*f = !*f
			if m.counter != nil {
				step := 1
				if !*f {
					step = -1
				}
				p.delta = shift(m.counter(it), step)
			}
		case kindClear:
			c := m.counter(it)
			p.delta = shift(c, -*c)
		}
	})
	if !ok {
		edit.Release()
		return nil, ErrNotFound
	}
	return p, nil
}

// shift adds step to *c without going below zero and returns the delta applied.
func shift(c *int, step int) int {
	next := *c + step
	if next < 0 {
		next = 0
	}
	applied := next - *c
	*c = next
	return applied
}

// Prior is the flag value before Apply.
func (p *Pending[T]) Prior() bool { return p.priorFlag }

// Delta is the counter change recorded at Apply.
func (p *Pending[T]) Delta() int { return p.delta }

// Confirm accepts the speculative state. State is unchanged.
func (p *Pending[T]) Confirm() {
	p.once.Do(func() {
		p.resolved = "confirmed"
		p.edit.Release()
	})
}

// Rollback reverts the flag and subtracts the recorded delta. It is a no-op
// after Confirm or a previous Rollback, or if the item has since been removed.
func (p *Pending[T]) Rollback() {
	p.once.Do(func() {
		p.resolved = "rolled_back"
		p.edit.Edit(func(it *T) {
			if p.hadFlag {
				*p.m.flag(it) = p.priorFlag
			}
			if p.m.counter != nil && p.delta != 0 {
				*p.m.counter(it) -= p.delta
			}
		})
		p.edit.Release()
		p.metrics.MutationRolledBack(p.m.name)
	})
}

// Do applies m, runs call, and confirms or rolls back depending on its error.
// The call's error is returned unchanged.
func Do[T any](ctx context.Context, edit Editor[T], m Mutation[T], rec metrics.Recorder, call func(ctx context.Context) error) error {
	return Run(ctx, edit, m, rec, func(ctx context.Context, _ bool) error { return call(ctx) })
}

// Run is Do for calls chosen by the flag value seen at Apply time, e.g. like
// vs unlike. prior is false for Clear mutations.
func Run[T any](ctx context.Context, edit Editor[T], m Mutation[T], rec metrics.Recorder, call func(ctx context.Context, prior bool) error) error {
	p, err := Apply(edit, m)
	if err != nil {
		return err
	}
	if rec != nil {
		p.metrics = rec
	}
	if err := call(ctx, p.priorFlag); err != nil {
		p.Rollback()
		logger.Warn("optimistic mutation rolled back",
			zap.String("mutation", m.name),
			zap.Int("delta", p.delta),
			zap.Error(err),
		)
		return err
	}
	p.Confirm()
	return nil
}
