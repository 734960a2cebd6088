package workerpool_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/joshyorko/makelint/internal/workerpool"
)

func TestPoolRunsAllWorkAndAccumulatesStatus(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Close()

	var completed int32
	for i := 0; i < 20; i++ {
		i := i
		pool.Submit(func() int {
			atomic.AddInt32(&completed, 1)
			if i%5 == 0 {
				return 1
			}
			return 0
		})
	}

	status := pool.Wait()
	require.Equal(t, int32(20), completed)
	require.Equal(t, 1, status)
}

func TestPoolRecoversFromPanic(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	pool.Submit(func() int { panic("boom") })
	pool.Submit(func() int { return 0 })

	status := pool.Wait()
	require.Equal(t, 1, status)
}

func TestPoolCancelClosesCancelledChannel(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Close()

	select {
	case <-pool.Cancelled():
		t.Fatal("should not be cancelled yet")
	default:
	}

	pool.Cancel()
	pool.Cancel() // idempotent

	select {
	case <-pool.Cancelled():
	case <-time.After(time.Second):
		t.Fatal("cancel did not close channel")
	}
}

func TestPoolDefaultsToSizeOne(t *testing.T) {
	pool := workerpool.New(0)
	defer pool.Close()
	pool.Submit(func() int { return 0 })
	require.Equal(t, 0, pool.Wait())
}
