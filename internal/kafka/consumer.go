package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

//go:generate mockgen -source consumer.go -destination=consumer_mock_test.go -package=kafka

type EventHandler interface {
	Handle(ctx context.Context, ev CaptureEvent) error
}

type Reader interface {
	Config() kafkago.ReaderConfig
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// Consumer tails capture events one message at a time, committing each
// offset only after the handler succeeds.
type Consumer struct {
	handler EventHandler
	reader  Reader
	zlogger *zap.Logger
}

func NewReader(brokers []string, topic, group string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     group,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
}

func NewConsumer(handler EventHandler, reader Reader, logger *zap.Logger) *Consumer {
	return &Consumer{
		handler: handler,
		reader:  reader,
		zlogger: logger,
	}
}

// Start blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) {
	rc := c.reader.Config()
	c.zlogger.Info("Starting capture event consumer",
		zap.Strings("brokers", rc.Brokers),
		zap.String("group", rc.GroupID),
		zap.String("topic", rc.Topic),
	)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			if isBenignFetchTimeout(err) {
				c.zlogger.Debug("fetch timeout (idle), backing off", zap.Error(err))
				sleepWithContext(ctx, 10*time.Second)
				continue
			}
			c.zlogger.Warn("FetchMessage error, backing off", zap.Error(err))
			sleepWithContext(ctx, 500*time.Millisecond)
			continue
		}

		// the offset only moves forward once msg is handled
		for !c.process(ctx, msg) {
			sleepWithContext(ctx, 200*time.Millisecond)
			if ctx.Err() != nil {
				return
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.zlogger.Warn("commit failed",
				zap.Error(err),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
			)
			sleepWithContext(ctx, 200*time.Millisecond)
		}
	}
}

// process reports whether msg may be committed. Undecodable messages are
// committed so they do not block the partition.
func (c *Consumer) process(ctx context.Context, msg kafkago.Message) bool {
	var ev CaptureEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.zlogger.Error("bad json format, skipping",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return true
	}

	if err := c.handler.Handle(ctx, ev); err != nil {
		c.zlogger.Error("handler failed; retrying the same message",
			zap.Error(err),
			zap.String("event_id", ev.ID),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
		return false
	}
	return true
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func isBenignFetchTimeout(err error) bool {
	s := err.Error()
	return strings.Contains(s, "Request Timed Out") ||
		strings.Contains(s, "no messages received from kafka within the allocated time")
}
