package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	release, err := l.Acquire(ctx, "m1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "m1")
	assert.ErrorIs(t, err, ErrLocked)

	other, err := l.Acquire(ctx, "m2")
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := l.Acquire(ctx, "m1")
	require.NoError(t, err)
	again()
}

func TestLocalLockerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalLocker().Acquire(ctx, "m1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalLockerSingleWinner(t *testing.T) {
	l := NewLocalLocker()
	var winners atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.Acquire(context.Background(), "m1"); err == nil {
				winners.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestNewRedisClientDisabled(t *testing.T) {
	assert.Nil(t, NewRedisClient(context.Background(), "", "", zerolog.Nop()))
}
