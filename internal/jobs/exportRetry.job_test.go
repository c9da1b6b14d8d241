package jobs

import (
	"context"
	"errors"
	"rentflow/config"
	"rentflow/internal/services"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPendingExporter struct {
	mock.Mock
}

func (m *MockPendingExporter) ExportPending(ctx context.Context, limit int) (int, error) {
	args := m.Called(ctx, limit)
	return args.Int(0), args.Error(1)
}

func TestExportRetryJob_Name(t *testing.T) {
	job := &ExportRetryJob{}
	assert.Equal(t, ExportRetryJobName, job.Name())
}

func TestExportRetryJob_Schedule(t *testing.T) {
	job := NewExportRetryJob(nil, services.Hourly)
	assert.Equal(t, services.Hourly, job.Schedule())
}

func TestExportRetryJob_Execute(t *testing.T) {
	tests := []struct {
		name      string
		exported  int
		returnErr error
		expectErr bool
	}{
		{name: "nothing pending", exported: 0},
		{name: "exports completed", exported: 3},
		{name: "exporter failing", exported: 1, returnErr: errors.New("exporter down"), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter := &MockPendingExporter{}
			exporter.On("ExportPending", mock.Anything, exportRetryBatchSize).Return(tt.exported, tt.returnErr)

			job := NewExportRetryJob(exporter, services.Hourly)
			err := job.Execute(context.Background())

			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			exporter.AssertExpectations(t)
		})
	}
}

func TestRegisterAllJobs_Disabled(t *testing.T) {
	scheduler := services.NewSchedulerService()

	err := RegisterAllJobs(scheduler, config.Config{SchedulerEnabled: false}, services.Service{})
	assert.NoError(t, err)
	assert.Equal(t, 0, scheduler.GetJobCount())
}

func TestRegisterAllJobs_Enabled(t *testing.T) {
	scheduler := services.NewSchedulerService()

	err := RegisterAllJobs(scheduler, config.Config{SchedulerEnabled: true}, services.Service{})
	assert.NoError(t, err)
	assert.Equal(t, 1, scheduler.GetJobCount())
}

func TestRunStartupJobs(t *testing.T) {
	scheduler := services.NewSchedulerService()
	exporter := &MockPendingExporter{}
	exporter.On("ExportPending", mock.Anything, exportRetryBatchSize).Return(2, nil).Once()
	require.NoError(t, scheduler.AddJob(NewExportRetryJob(exporter, services.Hourly)))

	assert.NoError(t, RunStartupJobs(context.Background(), scheduler))
	exporter.AssertExpectations(t)

	assert.Error(t, RunStartupJobs(context.Background(), services.NewSchedulerService()), "no export retry job registered")
}
