package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/overcastlab/meteod/internal/scheduler"
)

// Notifier publishes current-conditions snapshots to a Kafka topic.
// It implements scheduler.Listener.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the conditions topic.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// ConditionsUpdated serializes and publishes a snapshot. Snapshots for the
// same location share a key, so a compacted topic retains only the latest.
func (n *Notifier) ConditionsUpdated(ctx context.Context, snap scheduler.Snapshot) error {
	msg, err := serializeToMessage(snap)
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish conditions: %w", err)
	}
	n.logger.Debug("conditions published", "topic", n.writer.Topic)
	return nil
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a snapshot into a Kafka message.
func serializeToMessage(snap scheduler.Snapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize conditions snapshot: %w", err)
	}
	night := "false"
	if snap.Night {
		night = "true"
	}
	return kafkago.Message{
		Key:   []byte(snap.Latitude + "," + snap.Longitude),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "night", Value: []byte(night)},
			{Key: "updated_at", Value: []byte(snap.UpdatedAt.Format(time.RFC3339))},
		},
	}, nil
}
