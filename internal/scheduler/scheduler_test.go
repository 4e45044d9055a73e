package scheduler

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Second)
	err := s.ScheduleBestOddsRefresh("every now and then", func(context.Context) error { return nil })
	assert.Error(t, err)
	assert.Error(t, s.Start(), "nothing was scheduled")
}

func TestStartRequiresJobs(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Second)
	assert.Error(t, s.Start())
	assert.True(t, s.GetNextRun().IsZero())
}

func TestScheduledJobRuns(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Second)

	var runs atomic.Int32
	require.NoError(t, s.ScheduleBestOddsRefresh("@every 1s", func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
		return nil
	}))

	require.NoError(t, s.Start())
	assert.False(t, s.GetNextRun().IsZero())

	err := s.ScheduleBestOddsRefresh("@every 1s", func(context.Context) error { return nil })
	assert.Error(t, err, "jobs cannot be added while running")
	assert.Error(t, s.Start())

	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.True(t, s.GetNextRun().IsZero(), "a stopped scheduler has no next run")
	require.NoError(t, s.Stop())
}

func TestFailingJobKeepsSchedulerAlive(t *testing.T) {
	s := NewScheduler(quietLogger(), time.Second)

	var runs atomic.Int32
	require.NoError(t, s.ScheduleBestOddsRefresh("@every 1s", func(context.Context) error {
		runs.Add(1)
		return assert.AnError
	}))
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 2 }, 4*time.Second, 50*time.Millisecond)
}
