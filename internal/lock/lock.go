// Package lock serialises rating applications per match.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrLocked = errors.New("lock is held by another caller")

type Locker interface {
	// Acquire takes the lock for key without waiting. It returns ErrLocked
	// when someone else holds it.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[key]; ok {
		return nil, ErrLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}
