package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/bookverse-backend/pkg/logger"
	"github.com/angelmondragon/bookverse-backend/pkg/metrics"
)

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

type releaseFailingLock struct {
	LocalLock
}

func (l *releaseFailingLock) Release(ctx context.Context) error {
	_ = l.LocalLock.Release(ctx)
	return errors.New("release failed")
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("boom")}
	after := &testJob{name: "after"}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:  testLogger(),
		Jobs:    []Job{ok, nil, failing, after},
		Lock:    &LocalLock{},
		Metrics: metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	err = service.runCycle(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing: boom")
	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, after.runs)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, mfs)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ok"}
	lock := &LocalLock{}
	service, err := NewService(ServiceParams{Logger: testLogger(), Jobs: []Job{job}, Lock: lock})
	require.NoError(t, err)

	held, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	require.True(t, held)

	require.NoError(t, service.runCycle(context.Background()))
	require.Zero(t, job.runs)

	require.NoError(t, lock.Release(context.Background()))
	require.NoError(t, service.runCycle(context.Background()))
	require.Equal(t, 1, job.runs)
}

func TestRunCycleReportsReleaseFailure(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger: testLogger(),
		Jobs:   []Job{&testJob{name: "ok"}},
		Lock:   &releaseFailingLock{},
	})
	require.NoError(t, err)

	err = service.runCycle(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "lock release")
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "ok"}
	service, err := NewService(ServiceParams{
		Logger:   testLogger(),
		Jobs:     []Job{job},
		Lock:     &LocalLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, service.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLock(t *testing.T) {
	_, err := NewService(ServiceParams{Logger: testLogger()})
	require.Error(t, err)
}
