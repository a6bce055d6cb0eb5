package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/noisycontents/uzu-orders/internal/events"
	"github.com/noisycontents/uzu-orders/internal/logger"
)

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

type captureReporter struct {
	seen []events.Event
}

func (c *captureReporter) Report(e events.Event) {
	c.seen = append(c.seen, e)
}

func TestKafkaReporterPublishes(t *testing.T) {
	fake := &fakeKafkaWriter{}
	r := events.NewKafkaReporterWith(fake, logger.New("error"))

	r.Report(events.Event{
		RunID:     "run-1",
		Type:      events.TypeRunStarted,
		Mode:      "imweb-daily",
		Data:      map[string]interface{}{"from": "2025-03-08"},
		Timestamp: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	})

	require.Len(t, fake.messages, 1)
	require.Equal(t, []byte("run-1"), fake.messages[0].Key)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(fake.messages[0].Value, &decoded))
	require.Equal(t, events.TypeRunStarted, decoded.Type)
	require.Equal(t, "imweb-daily", decoded.Mode)
	require.Equal(t, "2025-03-08", decoded.Data["from"])
}

func TestKafkaReporterSwallowsWriteErrors(t *testing.T) {
	fake := &fakeKafkaWriter{err: errors.New("broker down")}
	r := events.NewKafkaReporterWith(fake, logger.New("error"))

	// Must not panic or propagate; runs outlive their observers.
	r.Report(events.Event{RunID: "run-2", Type: events.TypeRunFinished})
}

func TestMultiReporterFansOut(t *testing.T) {
	a := &captureReporter{}
	b := &captureReporter{}
	m := events.NewMultiReporter(a, b)

	m.Report(events.Event{RunID: "run-3", Type: events.TypeBatchFailed})

	require.Len(t, a.seen, 1)
	require.Len(t, b.seen, 1)
	require.Equal(t, "run-3", b.seen[0].RunID)
}
