package usecase

import (
	"context"
	"encoding/json"
	"time"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// Broadcaster fans trade events out to live subscribers.
type Broadcaster interface {
	Broadcast(ev models.TradeEvent)
}

// TradeEventsHandler consumes ledger events from Kafka and forwards them to live feeds.
type TradeEventsHandler struct {
	topic   string
	out     Broadcaster
	metrics drepo.Metrics
}

var _ pkgkafka.MessageHandler = (*TradeEventsHandler)(nil)

func NewTradeEventsHandler(topic string, out Broadcaster, metrics drepo.Metrics) *TradeEventsHandler {
	return &TradeEventsHandler{topic: topic, out: out, metrics: metrics}
}

func (h *TradeEventsHandler) Topic() string { return h.topic }

func (h *TradeEventsHandler) Handle(_ context.Context, b []byte) error {
	var ev models.TradeEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("trade_event_unmarshal")
		return err
	}
	if ev.TradeID == "" {
		h.metrics.RecordError("trade_event_invalid")
		return nil
	}
	if !ev.OccurredAt.IsZero() {
		h.metrics.ObserveExternalCall("kafka", "trade_event_lag", time.Since(ev.OccurredAt), nil)
	}
	h.out.Broadcast(ev)
	return nil
}
