package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestProducer_Publish(t *testing.T) {
	writer := &recordingWriter{}
	producer := NewProducerWithWriter(writer, "sync-events", silentLogger())

	require.NoError(t, producer.Publish(context.Background(), "product.mapped", "1001", map[string]any{"name": "Chair"}))

	require.Len(t, writer.messages, 1)
	msg := writer.messages[0]
	assert.Equal(t, "1001", string(msg.Key))
	assert.Equal(t, "event_type", msg.Headers[0].Key)

	var event SyncEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "product.mapped", event.EventType)
	assert.JSONEq(t, `{"name":"Chair"}`, string(event.Data))
	assert.False(t, event.Timestamp.IsZero())
}

func TestProducer_PublishError(t *testing.T) {
	producer := NewProducerWithWriter(&recordingWriter{err: errors.New("broker down")}, "t", silentLogger())
	assert.Error(t, producer.Publish(context.Background(), "x", "k", nil))
}
