package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"contract-announcer/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPipeline struct {
	runs atomic.Int32
}

func (p *countingPipeline) RunOnce(ctx context.Context) (*RunReport, error) {
	p.runs.Add(1)
	return &RunReport{}, nil
}

func TestScheduler_InvalidExpression(t *testing.T) {
	s := NewSchedulerService(&countingPipeline{}, "every tuesday", time.Minute, logger.NewNop())
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestScheduler_StopsOnCancel(t *testing.T) {
	pipeline := &countingPipeline{}
	s := NewSchedulerService(pipeline, "@every 1h", time.Minute, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Zero(t, pipeline.runs.Load())
}

func TestScheduler_TickRunsPipeline(t *testing.T) {
	pipeline := &countingPipeline{}
	s := NewSchedulerService(pipeline, "@every 1h", time.Minute, logger.NewNop()).(*schedulerService)

	s.tick(context.Background())
	assert.Equal(t, int32(1), pipeline.runs.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.tick(ctx)
	assert.Equal(t, int32(1), pipeline.runs.Load())
}
