package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"TradePilot/pkg/logger"
)

var ErrQueueFull = errors.New("queue: local buffer full")

// LocalQueue runs jobs on an in-process worker pool. It backs the one-shot CLI
// commands and deployments without Redis.
type LocalQueue struct {
	log *logger.Logger
	cfg *Config

	mu      sync.RWMutex
	jobs    map[string]Job
	ch      chan Message
	running bool
	// cancel stops intake; abort cancels jobs still running past the Stop deadline.
	cancel context.CancelFunc
	abort  context.CancelFunc

	workers sync.WaitGroup
	pending sync.WaitGroup
}

func NewLocalQueue(lgr *logger.Logger, cfg *Config) *LocalQueue {
	c := cfg.withDefaults()
	return &LocalQueue{
		log:  lgr,
		cfg:  c,
		jobs: make(map[string]Job),
		ch:   make(chan Message, c.QueueSize),
	}
}

func (q *LocalQueue) Register(jobs ...Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, job := range jobs {
		q.jobs[job.Type()] = job
	}
}

func (q *LocalQueue) Start(_ context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	intake, cancel := context.WithCancel(context.Background())
	jobCtx, abort := context.WithCancel(context.Background())
	q.cancel, q.abort = cancel, abort
	q.running = true
	for i := 0; i < q.cfg.Workers; i++ {
		q.workers.Add(1)
		go q.worker(intake, jobCtx)
	}
	q.log.Info("local queue started", logger.Int("workers", q.cfg.Workers))
	return nil
}

func (q *LocalQueue) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return fmt.Errorf("queue not running")
	}
	if _, ok := q.jobs[msgType]; !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}

	msg, err := newMessage(msgType, payload)
	if err != nil {
		return err
	}
	q.pending.Add(1)
	select {
	case q.ch <- msg:
		jobsEnqueued.WithLabelValues(msgType, "local").Inc()
		return nil
	default:
		q.pending.Done()
		return ErrQueueFull
	}
}

// Wait blocks until every enqueued message, including retries, has been handled.
func (q *LocalQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops taking messages and lets in-flight jobs finish. Jobs still running
// when ctx ends are cancelled.
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	abort := q.abort
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		abort()
		return nil
	case <-ctx.Done():
		abort()
		return fmt.Errorf("waiting for queue workers: %w", ctx.Err())
	}
}

func (q *LocalQueue) worker(intake, jobCtx context.Context) {
	defer q.workers.Done()
	for {
		if intake.Err() != nil {
			return
		}
		select {
		case <-intake.Done():
			return
		case msg := <-q.ch:
			q.handle(jobCtx, msg)
		}
	}
}

func (q *LocalQueue) handle(ctx context.Context, msg Message) {
	q.mu.RLock()
	job := q.jobs[msg.Type]
	q.mu.RUnlock()

	started := time.Now()
	err := job.Handle(ctx, msg.Payload)
	observeJob(msg.Type, started, err)
	if err == nil || msg.Attempts >= q.cfg.RetryLimit || ctx.Err() != nil {
		if err != nil {
			q.log.Error("job failed",
				logger.String("id", msg.ID),
				logger.String("job", job.Name()),
				logger.Error(err))
		}
		q.pending.Done()
		return
	}

	msg.Attempts++
	time.AfterFunc(q.cfg.RetryDelay, func() {
		select {
		case q.ch <- msg:
		default:
			q.log.Error("retry dropped, buffer full", logger.String("id", msg.ID))
			q.pending.Done()
		}
	})
}
