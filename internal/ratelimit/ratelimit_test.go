package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerSpacesCalls(t *testing.T) {
	pacer := NewPacer(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Wait(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 75*time.Millisecond)
}

func TestPacerDisabled(t *testing.T) {
	pacer := NewPacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, pacer.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	var nilPacer *Pacer
	assert.NoError(t, nilPacer.Wait(context.Background()))
}

func TestPacerHonoursContext(t *testing.T) {
	pacer := NewPacer(time.Hour)
	require.NoError(t, pacer.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, pacer.Wait(ctx))
}

func TestNilLocker(t *testing.T) {
	locker := NewLocker(nil)
	assert.Nil(t, locker)
	assert.False(t, locker.Enabled())

	_, ok, err := locker.TryLock(context.Background(), "backoffice:job:breakdown", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.False(t, ok)
	assert.NoError(t, locker.Release(context.Background(), "backoffice:job:breakdown", "token"))
}
