package goroutine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManager_GoWait(t *testing.T) {
	m := NewManager(4)

	var n atomic.Int32
	for range 3 {
		assert.True(t, m.Go(context.Background(), func(context.Context) error {
			n.Add(1)
			return nil
		}))
	}

	boom := errors.New("boom")
	m.Go(context.Background(), func(context.Context) error { return boom })

	err := m.Wait()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(3), n.Load())

	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
}

func TestManager_Go_Full(t *testing.T) {
	m := NewManager(1)
	release := make(chan struct{})

	assert.True(t, m.Go(context.Background(), func(context.Context) error {
		<-release
		return nil
	}))
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))

	close(release)
	assert.NoError(t, m.Wait())
}

func TestManager_Go_Panic(t *testing.T) {
	m := NewManager(1)
	m.Go(context.Background(), func(context.Context) error { panic("oops") })
	assert.NoError(t, m.Wait())
}

func TestManager_Nil(t *testing.T) {
	var m *Manager
	assert.False(t, m.Go(context.Background(), func(context.Context) error { return nil }))
	assert.NoError(t, m.Wait())
}
