package backend

import (
	"context"
	"sync"
)

// lazy holds a connection that is opened on first use and reused afterwards.
// Opening happens under the mutex, so concurrent first callers wait for the
// same attempt instead of dialing twice. A failed attempt leaves nothing
// cached and the next caller tries again.
type lazy[T any] struct {
	mu     sync.Mutex
	value  T
	ready  bool
	open   func(ctx context.Context) (T, error)
	closer func(T) error
}

func newLazy[T any](open func(ctx context.Context) (T, error), closer func(T) error) *lazy[T] {
	return &lazy[T]{open: open, closer: closer}
}

func (l *lazy[T]) get(ctx context.Context) (T, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ready {
		return l.value, nil
	}

	v, err := l.open(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	l.value = v
	l.ready = true

	return v, nil
}

// Close tears the connection down if one was opened. A later get reopens it.
func (l *lazy[T]) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.ready {
		return nil
	}

	var (
		v   = l.value
		err error
	)

	if l.closer != nil {
		err = l.closer(v)
	}

	var zero T
	l.value = zero
	l.ready = false

	return err
}
