package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
}

// EnsureTopic creates the capture events topic when missing and waits until
// its partitions show up in the metadata. Calling it for an existing topic is a no-op.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return errors.New("empty topic")
	}
	if spec.Partitions < 1 {
		spec.Partitions = 1
	}
	if spec.ReplicationFactor < 1 {
		spec.ReplicationFactor = 1
	}

	dialer := &kafkago.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	if n := partitionCount(conn, spec.Name); n > 0 {
		log.Info("kafka topic exists", zap.String("topic", spec.Name), zap.Int("partitions", n))
		return nil
	}

	if err := createOnController(ctx, dialer, conn, spec); err != nil {
		return err
	}
	log.Info("kafka topic created",
		zap.String("topic", spec.Name),
		zap.Int("partitions", spec.Partitions),
		zap.Int("replication", spec.ReplicationFactor),
	)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()
	for {
		if partitionCount(conn, spec.Name) >= spec.Partitions {
			return nil
		}
		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("topic %s not visible after creation", spec.Name)
		case <-tick.C:
		}
	}
}

func partitionCount(conn *kafkago.Conn, topic string) int {
	parts, err := conn.ReadPartitions(topic)
	if err != nil {
		return 0
	}
	return len(parts)
}

// createOnController issues CreateTopics against the cluster controller.
// An "already exists" answer from a concurrent creator counts as success.
func createOnController(ctx context.Context, dialer *kafkago.Dialer, conn *kafkago.Conn, spec TopicSpec) error {
	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("get controller: %w", err)
	}
	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))

	ctrl, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial controller %s: %w", addr, err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic: %w", err)
	}
	return nil
}
