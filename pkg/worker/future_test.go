package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jzx17/threadpool/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_CompleteOnce(t *testing.T) {
	f := newFuture[string]()
	assert.False(t, f.IsDone())

	f.complete("first", nil)
	f.complete("second", errors.New("ignored"))

	assert.True(t, f.IsDone())
	testutils.RequireClosed(t, f.Done(), time.Second)

	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, "first", v)
}

func TestFuture_GetBlocksUntilComplete(t *testing.T) {
	f := newFuture[int]()

	result := make(chan int, 1)
	go func() {
		v, _ := f.Get()
		result <- v
	}()

	select {
	case <-result:
		t.Fatal("Get returned before the future was completed")
	case <-time.After(20 * time.Millisecond):
	}

	f.complete(9, nil)
	select {
	case v := <-result:
		assert.Equal(t, 9, v)
	case <-time.After(testutils.DefaultTimeout):
		t.Fatal("Get did not return")
	}
}

func TestFuture_GetContext(t *testing.T) {
	t.Run("context expires first", func(t *testing.T) {
		f := newFuture[int]()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		v, err := f.GetContext(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Zero(t, v)
		assert.False(t, f.IsDone())
	})

	t.Run("future already done", func(t *testing.T) {
		f := newFuture[int]()
		taskErr := errors.New("failed")
		f.complete(0, taskErr)

		_, err := f.GetContext(context.Background())
		assert.ErrorIs(t, err, taskErr)
	})
}
