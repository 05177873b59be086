package workqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRunsTask(t *testing.T) {
	q := New(2, time.Second, 50*time.Millisecond)
	q.Start()
	defer q.Stop()

	var ran int32
	task := q.Add("t1", 0, func(ctx context.Context) error {
		atomic.StoreInt32(&ran, 1)
		return nil
	})
	require.NoError(t, task.Wait())
	assert.EqualValues(t, 1, atomic.LoadInt32(&ran))
}

func TestAddSuppressesDuplicateName(t *testing.T) {
	q := New(1, time.Second, 50*time.Millisecond)

	var calls int32
	block := make(chan struct{})
	fn := func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-block
		return nil
	}

	first := q.Add("dup", 0, fn)
	second := q.Add("dup", 0, fn)
	assert.Same(t, first, second, "duplicate name must return the pending task, not enqueue a second one")

	q.Start()
	defer q.Stop()
	close(block)
	require.NoError(t, first.Wait())
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestTaskTimeoutCancelsContext(t *testing.T) {
	q := New(1, 0, 20*time.Millisecond)
	q.Start()
	defer q.Stop()

	done := make(chan struct{})
	task := q.Add("slow", 30*time.Millisecond, func(ctx context.Context) error {
		defer close(done)
		<-ctx.Done()
		return ctx.Err()
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was never cancelled")
	}
	err := task.Wait()
	assert.Error(t, err)
}

func TestZeroTimeoutIsNeverCancelled(t *testing.T) {
	q := New(1, 10*time.Millisecond, 5*time.Millisecond)
	q.Start()
	defer q.Stop()

	started := make(chan struct{})
	task := q.Add("unbounded", 0, func(ctx context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond) // well past defaultTO and several sweeps
		return ctx.Err()
	})

	<-started
	require.NoError(t, task.Wait())
}

func TestUseDefaultTimeoutFallsBackToConfiguredDefault(t *testing.T) {
	q := New(1, 15*time.Millisecond, 5*time.Millisecond)
	q.Start()
	defer q.Stop()

	task := q.Add("defaulted", UseDefaultTimeout, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := task.Wait()
	assert.Error(t, err)
}

func TestFIFOOrder(t *testing.T) {
	q := New(1, time.Second, 50*time.Millisecond)

	var order []int
	mk := func(i int) Func {
		return func(ctx context.Context) error {
			order = append(order, i)
			return nil
		}
	}
	t1 := q.Add("a", 0, mk(1))
	t2 := q.Add("b", 0, mk(2))
	t3 := q.Add("c", 0, mk(3))

	q.Start()
	defer q.Stop()
	t1.Wait()
	t2.Wait()
	t3.Wait()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestPendingReflectsInFlightTask(t *testing.T) {
	q := New(1, time.Second, 50*time.Millisecond)
	block := make(chan struct{})
	task := q.Add("x", 0, func(ctx context.Context) error {
		<-block
		return nil
	})
	assert.True(t, q.Pending("x"))

	q.Start()
	defer q.Stop()
	close(block)
	task.Wait()

	assert.Eventually(t, func() bool { return !q.Pending("x") }, time.Second, 5*time.Millisecond)
}
