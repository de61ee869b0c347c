package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*StateTracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewWithPrefix(client, "test:"), mr
}

func TestStateTracker_Exec(t *testing.T) {
	tr, mr := newTracker(t)
	ctx := context.Background()

	calls := 0
	fn := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, tr.Exec(ctx, "k1", fn))
	assert.ErrorIs(t, tr.Exec(ctx, "k1", fn), ErrAlreadyCompleted)
	assert.Equal(t, 1, calls)

	v, err := mr.Get("test:k1")
	require.NoError(t, err)
	assert.Equal(t, StateCompleted.String(), v)
}

func TestStateTracker_Exec_Failed(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tr.Exec(ctx, "k2", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	err = tr.Exec(ctx, "k2", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrAlreadyFailed)
}

func TestStateTracker_Exec_StateExpires(t *testing.T) {
	tr, mr := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.Exec(ctx, "k3", func(context.Context) error { return nil }, WithStateTTL(time.Second)))
	mr.FastForward(2 * time.Second)

	ran := false
	require.NoError(t, tr.Exec(ctx, "k3", func(context.Context) error { ran = true; return nil }))
	assert.True(t, ran)
}

func TestStateTracker_Acquire_InProgress(t *testing.T) {
	tr, _ := newTracker(t)
	ctx := context.Background()

	state, err := tr.Acquire(ctx, "k4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateNone, state)

	state, err = tr.Acquire(ctx, "k4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, state)
}
