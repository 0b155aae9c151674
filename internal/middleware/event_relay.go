package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	"TradePilot/pkg/logger"
)

var ErrRelayFull = errors.New("event relay buffer full")

// EventRelay sits between the trade ledger and the event bus. It validates events,
// forwards them downstream and, when downstream rejects one, buffers it for
// in-order redelivery by a background worker with capped backoff.
type EventRelay struct {
	next    domrepo.TradeEventPublisher
	metrics domrepo.Metrics
	log     *logger.Logger

	bufSize     int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	sendTimeout time.Duration
	maxAttempts int

	bufCh   chan models.TradeEvent
	stopCh  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	started bool
	// inflight is set while the worker holds an event taken from bufCh.
	inflight atomic.Bool
}

type RelayOption func(*EventRelay)

// WithBufferSize sets how many rejected events are kept for redelivery.
func WithBufferSize(n int) RelayOption {
	return func(r *EventRelay) {
		if n > 0 {
			r.bufSize = n
		}
	}
}

func WithBackoff(min, max time.Duration) RelayOption {
	return func(r *EventRelay) {
		if min > 0 && max >= min {
			r.minBackoff, r.maxBackoff = min, max
		}
	}
}

// WithMaxAttempts bounds redelivery attempts per event; 0 retries until stopped.
func WithMaxAttempts(n int) RelayOption {
	return func(r *EventRelay) { r.maxAttempts = n }
}

func WithSendTimeout(d time.Duration) RelayOption {
	return func(r *EventRelay) {
		if d > 0 {
			r.sendTimeout = d
		}
	}
}

func NewEventRelay(next domrepo.TradeEventPublisher, metrics domrepo.Metrics, lgr *logger.Logger, opts ...RelayOption) *EventRelay {
	r := &EventRelay{
		next:        next,
		metrics:     metrics,
		log:         lgr,
		bufSize:     1000,
		minBackoff:  50 * time.Millisecond,
		maxBackoff:  2 * time.Second,
		sendTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.bufCh = make(chan models.TradeEvent, r.bufSize)
	return r
}

// Start launches background redelivery.
func (r *EventRelay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.stopCh = make(chan struct{})
	r.done = make(chan struct{})
	go r.run(r.stopCh, r.done)
}

// Stop halts redelivery and makes one last attempt for each buffered event until ctx ends.
func (r *EventRelay) Stop(ctx context.Context) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	close(r.stopCh)
	done := r.done
	r.mu.Unlock()
	<-done

	for {
		select {
		case ev := <-r.bufCh:
			if err := r.next.PublishTradeEvent(ctx, ev); err != nil {
				r.log.Warn("dropping trade event on shutdown",
					logger.String("trade_id", ev.TradeID),
					logger.Int("remaining", len(r.bufCh)),
					logger.Error(err))
				r.metrics.RecordError("event_relay_drop")
			}
		default:
			return
		}
		if ctx.Err() != nil {
			r.metrics.RecordError("event_relay_drop")
			return
		}
	}
}

// Pending returns the number of events waiting for redelivery.
func (r *EventRelay) Pending() int {
	n := len(r.bufCh)
	if r.inflight.Load() {
		n++
	}
	return n
}

// PublishTradeEvent forwards ev, or buffers it behind earlier events still waiting
// for redelivery.
func (r *EventRelay) PublishTradeEvent(ctx context.Context, ev models.TradeEvent) error {
	if err := validateEvent(ev); err != nil {
		r.metrics.RecordError("event_relay_validate")
		return err
	}
	if r.Pending() > 0 {
		return r.buffer(ev, nil)
	}
	if err := r.next.PublishTradeEvent(ctx, ev); err != nil {
		r.metrics.RecordError("event_relay_publish")
		return r.buffer(ev, err)
	}
	return nil
}

func (r *EventRelay) buffer(ev models.TradeEvent, cause error) error {
	select {
	case r.bufCh <- ev:
		if cause != nil {
			r.log.Warn("trade event buffered for redelivery",
				logger.String("trade_id", ev.TradeID),
				logger.String("status", string(ev.Status)),
				logger.Error(cause))
		}
		return nil
	default:
		r.metrics.RecordError("event_relay_buffer_full")
		if cause != nil {
			return fmt.Errorf("%w: %v", ErrRelayFull, cause)
		}
		return ErrRelayFull
	}
}

func (r *EventRelay) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev := <-r.bufCh:
			r.inflight.Store(true)
			ok := r.redeliver(stop, ev)
			r.inflight.Store(false)
			if !ok {
				return
			}
		}
	}
}

// redeliver retries ev until it succeeds, runs out of attempts or the relay stops.
// It reports false only when stopped with ev still undelivered.
func (r *EventRelay) redeliver(stop <-chan struct{}, ev models.TradeEvent) bool {
	backoff := r.minBackoff
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.sendTimeout)
		err := r.next.PublishTradeEvent(ctx, ev)
		cancel()
		if err == nil {
			return true
		}
		r.metrics.RecordError("event_relay_redeliver")
		if r.maxAttempts > 0 && attempt >= r.maxAttempts {
			r.log.Error("trade event dropped after retries",
				logger.String("trade_id", ev.TradeID),
				logger.Int("attempts", attempt),
				logger.Error(err))
			r.metrics.RecordError("event_relay_drop")
			return true
		}

		select {
		case <-stop:
			// Keep it for the shutdown drain; order is best-effort from here on.
			select {
			case r.bufCh <- ev:
			default:
				r.metrics.RecordError("event_relay_drop")
			}
			return false
		case <-time.After(backoff):
		}
		if backoff < r.maxBackoff {
			backoff *= 2
			if backoff > r.maxBackoff {
				backoff = r.maxBackoff
			}
		}
	}
}

func validateEvent(ev models.TradeEvent) error {
	switch {
	case ev.TradeID == "":
		return fmt.Errorf("trade event: trade id empty")
	case ev.Status == "":
		return fmt.Errorf("trade event %s: status empty", ev.TradeID)
	case ev.OccurredAt.IsZero():
		return fmt.Errorf("trade event %s: timestamp missing", ev.TradeID)
	case ev.Amount.IsNegative():
		return fmt.Errorf("trade event %s: negative amount", ev.TradeID)
	}
	return nil
}
