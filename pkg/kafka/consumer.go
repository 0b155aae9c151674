package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"TradePilot/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics in a consumer group and fans messages out to a
// worker pool. Offsets are committed after success, or after the message was parked
// on the DLQ.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	handlers map[string]MessageHandler
	readers  map[string]*kafka.Reader
	dlq      *kafka.Writer
	hook     ConsumerHook

	msgs     chan delivery
	stopCh   chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
}

type delivery struct {
	reader *kafka.Reader
	msg    kafka.Message
}

func NewConsumer(lgr *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "tradepilot",
		Workers:    1,
		BufferSize: 64,
		RetryMax:   3,
		BackoffMin: 100 * time.Millisecond,
		BackoffMax: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:      cfg,
		log:      lgr.With(logger.String("component", "kafka_consumer")),
		handlers: make(map[string]MessageHandler),
		readers:  make(map[string]*kafka.Reader),
		hook:     HookFuncs{},
		msgs:     make(chan delivery, cfg.BufferSize),
		stopCh:   make(chan struct{}),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	return c, nil
}

// WithHook replaces the handling hook.
func (c *Consumer) WithHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) RegisterHandler(handler MessageHandler) {
	if _, ok := c.handlers[handler.Topic()]; ok {
		c.log.Warn("handler already registered", logger.String("topic", handler.Topic()))
		return
	}
	c.handlers[handler.Topic()] = handler
}

func (c *Consumer) Start(_ context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("no handlers registered")
	}

	for i := 0; i < c.cfg.Workers; i++ {
		c.workWG.Add(1)
		go c.work()
	}
	for topic := range c.handlers {
		r := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.readers[topic] = r
		c.readWG.Add(1)
		go c.read(r)
	}

	c.log.Info("kafka consumer started",
		logger.Int("workers", c.cfg.Workers),
		logger.String("group", c.cfg.GroupID))
	return nil
}

func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}

		done := make(chan struct{})
		go func() {
			c.readWG.Wait()
			close(c.msgs)
			c.workWG.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("waiting for consumer to stop: %w", ctx.Err())
		}

		if c.dlq != nil {
			_ = c.dlq.Close()
		}
	})
	return err
}

func (c *Consumer) read(r *kafka.Reader) {
	defer c.readWG.Done()
	topic := r.Config().Topic
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		msg, err := r.FetchMessage(context.Background())
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			c.log.Error("fetch message", logger.String("topic", topic), logger.Error(err))
			time.Sleep(time.Second)
			continue
		}

		select {
		case c.msgs <- delivery{reader: r, msg: msg}:
		case <-c.stopCh:
			return
		}
	}
}

func (c *Consumer) work() {
	defer c.workWG.Done()
	for d := range c.msgs {
		c.handle(d)
	}
}

func (c *Consumer) handle(d delivery) {
	handler, ok := c.handlers[d.msg.Topic]
	if !ok {
		return
	}

	started := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = c.invoke(handler, d.msg)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stopCh:
			return
		}
	}
	observeHandle(d.msg.Topic, started, err)

	if err != nil {
		c.log.Error("message handling failed",
			logger.String("topic", d.msg.Topic),
			logger.Int64("offset", d.msg.Offset),
			logger.Error(err))
		if c.dlq == nil {
			return
		}
		if dlqErr := c.dlq.WriteMessages(context.Background(), kafka.Message{
			Topic:   c.cfg.DLQTopic,
			Key:     d.msg.Key,
			Value:   d.msg.Value,
			Headers: append(d.msg.Headers, kafka.Header{Key: "source_topic", Value: []byte(d.msg.Topic)}),
		}); dlqErr != nil {
			c.log.Error("dlq write", logger.Error(dlqErr))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if cerr := d.reader.CommitMessages(ctx, d.msg); cerr != nil {
		c.log.Warn("commit offset", logger.String("topic", d.msg.Topic), logger.Error(cerr))
	}
}

func (c *Consumer) invoke(handler MessageHandler, km kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	ctx, err := c.hook.BeforeHandle(context.Background(), km)
	if err == nil {
		err = handler.Handle(ctx, km.Value)
	}
	c.hook.AfterHandle(ctx, km, err)
	return err
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	d := min << uint(attempt-1)
	if d > max || d <= 0 {
		d = max
	}
	half := int64(d) / 2
	if half <= 0 {
		return d
	}
	return d - time.Duration(rand.Int63n(half))
}
