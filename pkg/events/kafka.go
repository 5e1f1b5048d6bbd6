package events

import (
	"context"

	"github.com/Kentzo-Omakse/hexim/pkg/kafka"
)

// Publisher is implemented by kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, data any) error
}

var _ Publisher = (*kafka.Producer)(nil)

// KafkaListener mirrors every hook onto a topic for observability.
type KafkaListener struct {
	publisher Publisher
}

func NewKafkaListener(publisher Publisher) *KafkaListener {
	return &KafkaListener{publisher: publisher}
}

func (l *KafkaListener) OnCriteria(ctx context.Context, event *CriteriaEvent) error {
	return l.publisher.Publish(ctx, event.Name, event.Name, event.Criteria)
}

func (l *KafkaListener) OnMapping(ctx context.Context, event *MappingEvent) error {
	return l.publisher.Publish(ctx, event.Name, event.ForeignID, event.Payload)
}
