// Package notify delivers backend change notifications to Kafka.
package notify

import (
	"context"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/apiforge-io/apiforge/core/backend"
	"github.com/apiforge-io/apiforge/core/logger"
)

// Topic is the Kafka topic change notifications are published to.
const Topic = "resource_notification"

// KafkaNotifier publishes backend notifications as JSON messages, keyed
// by resource so all changes to one resource land on the same partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

var _ backend.Notifier = (*KafkaNotifier)(nil)

// NewKafkaNotifier creates a notifier for the given broker addresses.
func NewKafkaNotifier(brokers []string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    Topic,
			Balancer: &kafka.Hash{},
		},
	}
}

// Notify implements backend.Notifier.
func (k *KafkaNotifier) Notify(ctx context.Context, n backend.Notification) error {
	value, err := json.Marshal(n)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).WithField("resource", n.Resource).Debugln("publish notification")
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.Resource),
		Value: value,
	})
}

// Close flushes pending messages and releases the writer.
func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}
