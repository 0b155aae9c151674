package repository

import (
	"context"

	"TradePilot/internal/domain/models"
	domrepo "TradePilot/internal/domain/repository"
	pkgkafka "TradePilot/pkg/kafka"
)

// KafkaTradeEventPublisher writes ledger events keyed by trade id.
type KafkaTradeEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.TradeEventPublisher = (*KafkaTradeEventPublisher)(nil)

func NewKafkaTradeEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaTradeEventPublisher {
	return &KafkaTradeEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaTradeEventPublisher) PublishTradeEvent(ctx context.Context, ev models.TradeEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.TradeID), ev)
}

// NopTradeEventPublisher is used when Kafka is disabled.
type NopTradeEventPublisher struct{}

func (NopTradeEventPublisher) PublishTradeEvent(context.Context, models.TradeEvent) error { return nil }

// KafkaLogPublisher ships aggregated error logs to a topic.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaLogPublisher(producer *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
