package timer

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/msgctl/netaidkit-nakd/internal/workqueue"
)

func TestAddFiresPeriodically(t *testing.T) {
	wq := workqueue.New(2, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()

	svc := NewService(wq)
	defer svc.Stop()

	var ticks int32
	svc.Add("tick", 10*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&ticks) >= 3 }, time.Second, 5*time.Millisecond)
}

func TestAddPanicsOnDuplicateName(t *testing.T) {
	wq := workqueue.New(1, time.Second, 50*time.Millisecond)
	svc := NewService(wq)
	defer svc.Stop()

	svc.Add("dup", time.Hour, func(ctx context.Context) error { return nil })
	assert.Panics(t, func() {
		svc.Add("dup", time.Hour, func(ctx context.Context) error { return nil })
	})
}

func TestRemoveStopsFiring(t *testing.T) {
	wq := workqueue.New(2, time.Second, 50*time.Millisecond)
	wq.Start()
	defer wq.Stop()

	svc := NewService(wq)
	defer svc.Stop()

	var ticks int32
	svc.Add("tick", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&ticks, 1)
		return nil
	})
	time.Sleep(20 * time.Millisecond)
	svc.Remove("tick")
	after := atomic.LoadInt32(&ticks)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&ticks))
}
