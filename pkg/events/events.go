// Package events carries the extension hooks of the sync: a notification
// before existing entities are searched, which may widen the criteria, and a
// notification for every mapped payload. Listener failures are logged and
// never fail the sync.
package events

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/Kentzo-Omakse/hexim/pkg/shopware"
)

const (
	// ExistingProductsCriteria is dispatched before the existing product
	// snapshot is loaded.
	ExistingProductsCriteria = "data.process-product.additional-data.existing-products"

	// ProductMapping names the product mapping pass.
	ProductMapping = "lenz_platform_plenty_connector.mapping.product"
)

type CriteriaEvent struct {
	Name     string
	Criteria *shopware.Criteria
}

type MappingEvent struct {
	Name      string
	ForeignID string
	Payload   map[string]any
}

type Listener interface {
	OnCriteria(ctx context.Context, event *CriteriaEvent) error
	OnMapping(ctx context.Context, event *MappingEvent) error
}

type Dispatcher struct {
	listeners []Listener
	logger    ectologger.Logger
}

func NewDispatcher(logger ectologger.Logger, listeners ...Listener) *Dispatcher {
	return &Dispatcher{listeners: listeners, logger: logger}
}

func (d *Dispatcher) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

func (d *Dispatcher) DispatchCriteria(ctx context.Context, event *CriteriaEvent) {
	for _, l := range d.listeners {
		if err := l.OnCriteria(ctx, event); err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event": event.Name,
			}).Warn("criteria listener failed")
		}
	}
}

func (d *Dispatcher) DispatchMapping(ctx context.Context, event *MappingEvent) {
	for _, l := range d.listeners {
		if err := l.OnMapping(ctx, event); err != nil {
			d.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"event":      event.Name,
				"foreign_id": event.ForeignID,
			}).Warn("mapping listener failed")
		}
	}
}
