package events

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/noisycontents/uzu-orders/internal/logger"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaReporter publishes run events to a Kafka topic, keyed by run ID so one
// run's events land on one partition in order.
type KafkaReporter struct {
	writer kafkaMessageWriter
	logger *logger.Logger
}

// NewKafkaReporter connects to the brokers given as a comma-separated list.
func NewKafkaReporter(brokers, topic string, logger *logger.Logger) *KafkaReporter {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	return &KafkaReporter{writer: writer, logger: logger}
}

// NewKafkaReporterWith injects the message writer, for tests.
func NewKafkaReporterWith(writer kafkaMessageWriter, logger *logger.Logger) *KafkaReporter {
	return &KafkaReporter{writer: writer, logger: logger}
}

func (r *KafkaReporter) Report(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("Failed to marshal event %s: %v", e.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.RunID),
		Value: payload,
		Time:  e.Timestamp,
	}
	if err := r.writer.WriteMessages(ctx, msg); err != nil {
		r.logger.Error("Failed to publish event %s: %v", e.Type, err)
	}
}

// Close releases the underlying writer when it owns a connection.
func (r *KafkaReporter) Close() error {
	if closer, ok := r.writer.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
