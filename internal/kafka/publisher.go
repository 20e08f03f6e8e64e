package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/TemirB/merch-checkout/internal/domain"
	"github.com/TemirB/merch-checkout/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

//go:generate mockgen -source publisher.go -destination=publisher_mock_test.go -package=kafka

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer  Writer
	logger  *zap.Logger
	metrics observability.Metrics
}

func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
	}
}

func NewPublisher(writer Writer, logger *zap.Logger, metrics observability.Metrics) *Publisher {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &Publisher{
		writer:  writer,
		logger:  logger,
		metrics: metrics,
	}
}

// PublishCapture writes one event keyed by the PayPal order id.
func (p *Publisher) PublishCapture(ctx context.Context, order *domain.Order) error {
	ev := NewCaptureEvent(order)
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(order.PayPalOrderID),
		Value: value,
		Time:  start,
	})
	durMs := float64(time.Since(start).Microseconds()) / 1000.0
	p.metrics.ObserveEvent(durMs, err == nil)
	if err != nil {
		return err
	}

	p.logger.Debug("capture event published",
		zap.String("event_id", ev.ID),
		zap.Int64("record_id", ev.RecordID),
		zap.Int("value_bytes", len(value)),
		zap.Float64("dur_ms", durMs),
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
