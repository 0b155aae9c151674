package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"TradePilot/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingJob struct {
	mu    sync.Mutex
	seen  []string
	fails int32
}

func (j *recordingJob) Name() string { return "recording" }
func (j *recordingJob) Type() string { return "test.record" }

func (j *recordingJob) Handle(_ context.Context, payload json.RawMessage) error {
	p, err := ParsePayload[struct {
		ID string `json:"id"`
	}](payload)
	if err != nil {
		return err
	}
	if atomic.AddInt32(&j.fails, -1) >= 0 {
		return errors.New("transient")
	}
	j.mu.Lock()
	j.seen = append(j.seen, p.ID)
	j.mu.Unlock()
	return nil
}

func TestLocalQueueProcessesAll(t *testing.T) {
	ctx := context.Background()
	q := NewLocalQueue(logger.Nop(), &Config{Workers: 3})
	job := &recordingJob{}
	q.Register(job)
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)

	for _, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, q.Enqueue(ctx, job.Type(), map[string]string{"id": id}))
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(waitCtx))
	assert.ElementsMatch(t, []string{"a", "b", "c", "d"}, job.seen)
}

func TestLocalQueueRetries(t *testing.T) {
	ctx := context.Background()
	q := NewLocalQueue(logger.Nop(), &Config{Workers: 1, RetryLimit: 2, RetryDelay: 10 * time.Millisecond})
	job := &recordingJob{fails: 2}
	q.Register(job)
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)

	require.NoError(t, q.Enqueue(ctx, job.Type(), map[string]string{"id": "x"}))

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(waitCtx))
	assert.Equal(t, []string{"x"}, job.seen)
}

func TestLocalQueueRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	q := NewLocalQueue(logger.Nop(), nil)
	require.NoError(t, q.Start(ctx))
	defer q.Stop(ctx)

	assert.Error(t, q.Enqueue(ctx, "nope", nil))
}

// slowJob runs for delay unless its context ends first.
type slowJob struct {
	delay    time.Duration
	started  chan struct{}
	finished atomic.Bool
	aborted  atomic.Bool
}

func (j *slowJob) Name() string { return "slow" }
func (j *slowJob) Type() string { return "test.slow" }

func (j *slowJob) Handle(ctx context.Context, _ json.RawMessage) error {
	close(j.started)
	select {
	case <-time.After(j.delay):
		j.finished.Store(true)
		return nil
	case <-ctx.Done():
		j.aborted.Store(true)
		return ctx.Err()
	}
}

func TestLocalQueueStopLetsRunningJobFinish(t *testing.T) {
	ctx := context.Background()
	q := NewLocalQueue(logger.Nop(), &Config{Workers: 1})
	job := &slowJob{delay: 200 * time.Millisecond, started: make(chan struct{})}
	q.Register(job)
	require.NoError(t, q.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, job.Type(), nil))
	<-job.started

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, q.Stop(stopCtx))
	assert.True(t, job.finished.Load())
	assert.False(t, job.aborted.Load())
	assert.Error(t, q.Enqueue(ctx, job.Type(), nil), "stopped queue takes no work")
}

func TestLocalQueueStopDeadlineCancelsRunningJob(t *testing.T) {
	ctx := context.Background()
	q := NewLocalQueue(logger.Nop(), &Config{Workers: 1})
	job := &slowJob{delay: 5 * time.Second, started: make(chan struct{})}
	q.Register(job)
	require.NoError(t, q.Start(ctx))

	require.NoError(t, q.Enqueue(ctx, job.Type(), nil))
	<-job.started

	stopCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Stop(stopCtx), context.DeadlineExceeded)
	require.Eventually(t, job.aborted.Load, time.Second, 5*time.Millisecond)
	assert.False(t, job.finished.Load())
}
