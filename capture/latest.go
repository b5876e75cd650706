// Package capture - Frame acquisition for live counting.
//
// A Source reads frames from a camera or a video file through gocv and posts them into a
// Latest mailbox. The counting side takes the newest frame whenever it is ready for one; frames
// that arrive while a frame is being counted replace the waiting one and are dropped.
package capture

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed is returned by Take once the mailbox is closed and drained.
var ErrClosed = errors.New("mailbox closed")

// Latest is a single-slot mailbox keeping only the newest value. It is safe for concurrent use.
type Latest[T any] struct {
	mu      sync.Mutex
	value   T
	full    bool
	closed  bool
	ready   chan struct{}
	done    chan struct{}
	dropped int64
	onDrop  func(T)
}

// NewLatest creates an empty mailbox. onDrop, when non-nil, is called with every value that is
// replaced or discarded without being taken, so it can release the value's resources.
func NewLatest[T any](onDrop func(T)) *Latest[T] {
	return &Latest[T]{
		ready:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		onDrop: onDrop,
	}
}

// Offer stores v, replacing the waiting value if any. It returns false, dropping v, when the
// mailbox is closed.
func (l *Latest[T]) Offer(v T) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.drop(v)
		return false
	}
	old, replaced := l.value, l.full
	l.value, l.full = v, true
	if replaced {
		l.dropped++
	}
	l.mu.Unlock()

	if replaced {
		l.drop(old)
	}
	select {
	case l.ready <- struct{}{}:
	default:
	}
	return true
}

// Take blocks until a value is waiting and returns it.
//
// Arguments:
//   - ctx: Cancels the wait.
//
// Returns:
//   - T: The newest value; the caller owns it.
//   - error: ctx.Err() on cancellation, or ErrClosed when the mailbox is closed and empty.
func (l *Latest[T]) Take(ctx context.Context) (T, error) {
	var zero T
	for {
		l.mu.Lock()
		if l.full {
			v := l.value
			l.value, l.full = zero, false
			l.mu.Unlock()
			return v, nil
		}
		if l.closed {
			l.mu.Unlock()
			return zero, ErrClosed
		}
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-l.ready:
		case <-l.done:
		}
	}
}

// Close stops accepting values. A waiting value can still be taken.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
}

// Drain discards the waiting value, if any.
func (l *Latest[T]) Drain() {
	var zero T
	l.mu.Lock()
	v, full := l.value, l.full
	l.value, l.full = zero, false
	l.mu.Unlock()
	if full {
		l.drop(v)
	}
}

// Dropped returns the number of values replaced before they were taken.
func (l *Latest[T]) Dropped() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Latest[T]) drop(v T) {
	if l.onDrop != nil {
		l.onDrop(v)
	}
}
