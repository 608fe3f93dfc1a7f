package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerRunsAndStops(t *testing.T) {
	var runs int64

	s := New()
	s.Register(&Job{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			atomic.AddInt64(&runs, 1)
			return nil
		},
	})

	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	count := atomic.LoadInt64(&runs)
	assert.Greater(t, count, int64(2))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, count, atomic.LoadInt64(&runs))
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s := New()
	assert.NotPanics(t, func() { s.Stop() })
}
