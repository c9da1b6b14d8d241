package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name     string
	schedule Schedule
	runs     int
	err      error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Execute(ctx context.Context) error {
	j.runs++
	return j.err
}

func (j *countingJob) Schedule() Schedule { return j.schedule }

func TestSchedulerService_AddJob(t *testing.T) {
	scheduler := NewSchedulerService()

	require.NoError(t, scheduler.AddJob(&countingJob{name: "hourly", schedule: Hourly}))
	require.NoError(t, scheduler.AddJob(&countingJob{name: "daily", schedule: Daily}))
	assert.Equal(t, 2, scheduler.GetJobCount())

	err := scheduler.AddJob(&countingJob{name: "bogus", schedule: Schedule(42)})
	assert.Error(t, err)
	assert.Equal(t, 2, scheduler.GetJobCount())
}

func TestSchedulerService_StartStop(t *testing.T) {
	scheduler := NewSchedulerService()
	ctx := context.Background()

	require.NoError(t, scheduler.Start(ctx))
	assert.False(t, scheduler.IsRunning(), "no jobs means no start")

	require.NoError(t, scheduler.AddJob(&countingJob{name: "hourly", schedule: Hourly}))
	require.NoError(t, scheduler.Start(ctx))
	assert.True(t, scheduler.IsRunning())

	require.NoError(t, scheduler.Stop(ctx))
	assert.False(t, scheduler.IsRunning())
}

func TestSchedulerService_RunJob(t *testing.T) {
	scheduler := NewSchedulerService()
	job := &countingJob{name: "ExportRetry", schedule: Hourly}
	failing := &countingJob{name: "Failing", schedule: Hourly, err: errors.New("boom")}
	require.NoError(t, scheduler.AddJob(job))
	require.NoError(t, scheduler.AddJob(failing))

	require.NoError(t, scheduler.RunJob(context.Background(), "ExportRetry"))
	assert.Equal(t, 1, job.runs)

	assert.Error(t, scheduler.RunJob(context.Background(), "Failing"))
	assert.Error(t, scheduler.RunJob(context.Background(), "missing"))
}
