package service

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ludo-technologies/pystage/domain"
)

func TestNewParallelExecutor(t *testing.T) {
	executor := NewParallelExecutor()

	require.NotNil(t, executor)
	assert.Equal(t, runtime.GOMAXPROCS(0), executor.maxConcurrency)
	assert.Equal(t, 10*time.Minute, executor.timeout)
}

func TestParallelExecutor_Execute(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.NoError(t, NewParallelExecutor().Execute(context.Background(), nil))
	})

	t.Run("runs enabled tasks only", func(t *testing.T) {
		var counter int32
		var tasks []domain.ExecutableTask
		for i := 0; i < 6; i++ {
			tasks = append(tasks, NewSimpleTask("task", i%2 == 0, func(ctx context.Context) (interface{}, error) {
				atomic.AddInt32(&counter, 1)
				return nil, nil
			}))
		}

		require.NoError(t, NewParallelExecutor().Execute(context.Background(), tasks))
		assert.Equal(t, int32(3), counter)
	})

	t.Run("joins every failure", func(t *testing.T) {
		errA := errors.New("a broke")
		errB := errors.New("b broke")
		tasks := []domain.ExecutableTask{
			NewSimpleTask("a", true, func(context.Context) (interface{}, error) { return nil, errA }),
			NewSimpleTask("ok", true, func(context.Context) (interface{}, error) { return nil, nil }),
			NewSimpleTask("b", true, func(context.Context) (interface{}, error) { return nil, errB }),
		}

		err := NewParallelExecutor().Execute(context.Background(), tasks)
		require.Error(t, err)
		assert.ErrorIs(t, err, errA)
		assert.ErrorIs(t, err, errB)
		assert.Contains(t, err.Error(), "task a failed")
	})

	t.Run("nil execute function", func(t *testing.T) {
		err := NewParallelExecutor().Execute(context.Background(), []domain.ExecutableTask{NewSimpleTask("empty", true, nil)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no execute function")
	})
}

func TestParallelExecutor_RespectsConcurrencyLimit(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(2)

	var running, peak int32
	var tasks []domain.ExecutableTask
	for i := 0; i < 8; i++ {
		tasks = append(tasks, NewSimpleTask("task", true, func(ctx context.Context) (interface{}, error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&running, -1)
			return nil, nil
		}))
	}

	require.NoError(t, executor.Execute(context.Background(), tasks))
	assert.LessOrEqual(t, peak, int32(2))
	assert.Greater(t, peak, int32(0))
}

func TestParallelExecutor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executed := false
	task := NewSimpleTask("late", true, func(context.Context) (interface{}, error) {
		executed = true
		return nil, nil
	})

	err := NewParallelExecutor().Execute(ctx, []domain.ExecutableTask{task})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, executed)
}

func TestParallelExecutor_Timeout(t *testing.T) {
	executor := NewParallelExecutor()
	executor.SetMaxConcurrency(1)
	executor.SetTimeout(20 * time.Millisecond)

	tasks := []domain.ExecutableTask{
		NewSimpleTask("slow", true, func(ctx context.Context) (interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
		NewSimpleTask("queued", true, func(context.Context) (interface{}, error) { return nil, nil }),
	}

	err := executor.Execute(context.Background(), tasks)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
