package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"TradePilot/internal/domain/models"
	"TradePilot/pkg/logger"
	"TradePilot/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	mu     sync.Mutex
	down   bool
	events []models.TradeEvent
}

func (p *flakyPublisher) PublishTradeEvent(_ context.Context, ev models.TradeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.down {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *flakyPublisher) setDown(down bool) {
	p.mu.Lock()
	p.down = down
	p.mu.Unlock()
}

func (p *flakyPublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.TradeID+":"+string(ev.Status))
	}
	return out
}

func event(id string, status models.TradeStatus) models.TradeEvent {
	return models.TradeEvent{
		TradeID:    id,
		Status:     status,
		Amount:     decimal.NewFromInt(1),
		OccurredAt: time.Now(),
	}
}

func newRelay(next *flakyPublisher, opts ...RelayOption) *EventRelay {
	opts = append([]RelayOption{WithBackoff(time.Millisecond, 5*time.Millisecond)}, opts...)
	return NewEventRelay(next, metrics.NewWithRegisterer(prometheus.NewRegistry()), logger.Nop(), opts...)
}

func TestEventRelayForwardsDirectly(t *testing.T) {
	next := &flakyPublisher{}
	r := newRelay(next)

	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusPending)))
	assert.Equal(t, []string{"a:PENDING"}, next.ids())
	assert.Zero(t, r.Pending())
}

func TestEventRelayValidates(t *testing.T) {
	r := newRelay(&flakyPublisher{})
	neg := event("a", models.StatusPending)
	neg.Amount = decimal.NewFromInt(-1)

	tests := []struct {
		name string
		ev   models.TradeEvent
	}{
		{"missing id", event("", models.StatusPending)},
		{"missing status", event("a", "")},
		{"missing time", models.TradeEvent{TradeID: "a", Status: models.StatusPending}},
		{"negative amount", neg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, r.PublishTradeEvent(context.Background(), tt.ev))
		})
	}
}

func TestEventRelayRedeliversInOrder(t *testing.T) {
	next := &flakyPublisher{down: true}
	r := newRelay(next)
	r.Start()
	defer r.Stop(context.Background())

	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusPending)))
	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusProcessing)))
	next.setDown(false)
	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusCompleted)))

	require.Eventually(t, func() bool { return len(next.ids()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a:PENDING", "a:PROCESSING", "a:COMPLETED"}, next.ids())
	assert.Zero(t, r.Pending())
}

func TestEventRelayBufferFull(t *testing.T) {
	next := &flakyPublisher{down: true}
	r := newRelay(next, WithBufferSize(1))

	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusPending)))
	err := r.PublishTradeEvent(context.Background(), event("b", models.StatusPending))
	assert.ErrorIs(t, err, ErrRelayFull)
	assert.Equal(t, 1, r.Pending())
}

func TestEventRelayDropsAfterMaxAttempts(t *testing.T) {
	next := &flakyPublisher{down: true}
	r := newRelay(next, WithMaxAttempts(2))
	r.Start()
	defer r.Stop(context.Background())

	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusPending)))
	require.Eventually(t, func() bool { return r.Pending() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, next.ids())
}

func TestEventRelayStopDrainsBuffer(t *testing.T) {
	next := &flakyPublisher{down: true}
	r := newRelay(next)

	require.NoError(t, r.PublishTradeEvent(context.Background(), event("a", models.StatusPending)))
	r.Start()
	next.setDown(false)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
	assert.Equal(t, []string{"a:PENDING"}, next.ids())
}
