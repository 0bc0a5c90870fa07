package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalSchedulerRunsAndStops(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)

	s := NewIntervalScheduler(10*time.Millisecond, loc)
	var calls atomic.Int32
	require.NoError(t, s.Start(context.Background(), func(time.Time) { calls.Add(1) }))
	require.NoError(t, s.Start(context.Background(), func(time.Time) { t.Error("second start must be ignored") }))

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestIntervalSchedulerNilJob(t *testing.T) {
	t.Parallel()

	s := NewIntervalScheduler(0, nil)
	assert.NoError(t, s.Start(context.Background(), nil))
	assert.NoError(t, s.Stop(context.Background()))
}
