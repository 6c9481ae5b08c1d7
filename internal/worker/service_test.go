package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerServiceRejectsBadSpec(t *testing.T) {
	_, err := NewWorkerService(Job{Name: "pipeline", Spec: "not a schedule", Run: func(ctx context.Context) (string, error) {
		return "", nil
	}})
	assert.Error(t, err)
}

func TestWorkerServiceSkipsUnscheduledJobs(t *testing.T) {
	ws, err := NewWorkerService(Job{Name: "cleanup", Run: func(ctx context.Context) (string, error) { return "", nil }})
	require.NoError(t, err)
	assert.Error(t, ws.Trigger("cleanup"))
}

func TestTriggerRecordsOutcome(t *testing.T) {
	calls := 0
	ws, err := NewWorkerService(
		Job{Name: "pipeline", Spec: "@every 1h", Run: func(ctx context.Context) (string, error) {
			calls++
			return "pipeline_runs=2", nil
		}},
		Job{Name: "cleanup", Spec: "@every 6h", Run: func(ctx context.Context) (string, error) {
			return "", errors.New("database unavailable")
		}},
	)
	require.NoError(t, err)

	require.NoError(t, ws.Trigger("pipeline"))
	require.NoError(t, ws.Trigger("cleanup"))
	assert.Error(t, ws.Trigger("missing"))
	assert.Equal(t, 1, calls)

	status := ws.GetStatus()
	assert.Equal(t, false, status["running"])
	jobs := status["jobs"].([]JobStatus)
	require.Len(t, jobs, 2)
	assert.Equal(t, "pipeline_runs=2", jobs[0].LastSummary)
	assert.Equal(t, 1, jobs[0].Runs)
	assert.Equal(t, 1, jobs[1].Failures)
	assert.Equal(t, "database unavailable", jobs[1].LastError)
}

func TestStartStop(t *testing.T) {
	ws, err := NewWorkerService(Job{Name: "pipeline", Spec: "@every 1h", Run: func(ctx context.Context) (string, error) {
		return "", nil
	}})
	require.NoError(t, err)

	require.NoError(t, ws.Start())
	assert.True(t, ws.IsRunning())
	assert.Eventually(t, func() bool {
		jobs := ws.GetStatus()["jobs"].([]JobStatus)
		return !jobs[0].NextRun.IsZero()
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, ws.GetStatus(), "uptime")

	ws.Stop()
	assert.False(t, ws.IsRunning())
	ws.Stop()
}
