package events

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
	"github.com/stretchr/testify/assert"
)

type widening struct{}

func (widening) OnCriteria(_ context.Context, event *CriteriaEvent) error {
	event.Criteria.AddAssociation("crossSellings")
	return nil
}

func (widening) OnMapping(_ context.Context, event *MappingEvent) error {
	event.Payload["extra"] = true
	return nil
}

type failing struct{}

func (failing) OnCriteria(context.Context, *CriteriaEvent) error { return errors.New("nope") }
func (failing) OnMapping(context.Context, *MappingEvent) error   { return errors.New("nope") }

type published struct {
	eventType string
	key       string
}

type fakePublisher struct {
	calls []published
}

func (p *fakePublisher) Publish(_ context.Context, eventType, key string, _ any) error {
	p.calls = append(p.calls, published{eventType: eventType, key: key})
	return nil
}

func TestDispatcher(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	publisher := &fakePublisher{}
	d := NewDispatcher(logger, failing{}, widening{})
	d.Subscribe(NewKafkaListener(publisher))

	criteria := shopware.NewCriteria("p1")
	d.DispatchCriteria(context.Background(), &CriteriaEvent{Name: ExistingProductsCriteria, Criteria: criteria})
	assert.True(t, criteria.HasAssociation("crossSellings"))

	payload := map[string]any{}
	d.DispatchMapping(context.Background(), &MappingEvent{Name: ProductMapping, ForeignID: "1001", Payload: payload})
	assert.Equal(t, true, payload["extra"])

	assert.Equal(t, []published{
		{eventType: ExistingProductsCriteria, key: ExistingProductsCriteria},
		{eventType: ProductMapping, key: "1001"},
	}, publisher.calls)
}
