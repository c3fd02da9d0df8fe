package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"shipment-sync/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventWriter is satisfied by Producer
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer EventWriter
	now      func() time.Time
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer EventWriter) *EventPublisher {
	return &EventPublisher{producer: producer, now: time.Now}
}

func (ep *EventPublisher) base(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: ep.now().UTC(),
	}
}

// PublishOrderShipped publishes OrderShipped event
func (ep *EventPublisher) PublishOrderShipped(ctx context.Context, rec *models.OrderRecord) error {
	event := &models.OrderShippedEvent{
		BaseEvent:         ep.base(models.EventTypeOrderShipped),
		StorefrontOrderID: rec.StorefrontOrderID,
		CarrierShipmentID: rec.ShipmentID(),
		TrackingCode:      rec.Tracking(),
	}
	return ep.producer.PublishEvent(ctx, orderKey(rec.StorefrontOrderID), event)
}

// PublishOrderDelivered publishes OrderDelivered event
func (ep *EventPublisher) PublishOrderDelivered(ctx context.Context, rec *models.OrderRecord) error {
	event := &models.OrderDeliveredEvent{
		BaseEvent:         ep.base(models.EventTypeOrderDelivered),
		StorefrontOrderID: rec.StorefrontOrderID,
		CarrierShipmentID: rec.ShipmentID(),
		TrackingCode:      rec.Tracking(),
	}
	return ep.producer.PublishEvent(ctx, orderKey(rec.StorefrontOrderID), event)
}

// PublishOrderSyncFailed publishes OrderSyncFailed event
func (ep *EventPublisher) PublishOrderSyncFailed(ctx context.Context, orderID, reason string) error {
	event := &models.OrderSyncFailedEvent{
		BaseEvent:         ep.base(models.EventTypeOrderSyncFailed),
		StorefrontOrderID: orderID,
		Reason:            reason,
	}
	return ep.producer.PublishEvent(ctx, orderKey(orderID), event)
}

func orderKey(orderID string) string {
	return "order-" + orderID
}

// OrderHandler feeds storefront order payloads read from Kafka to a sync function
type OrderHandler struct {
	sync func(ctx context.Context, payload map[string]any) error
}

// NewOrderHandler creates a handler calling sync for every decoded payload
func NewOrderHandler(sync func(ctx context.Context, payload map[string]any) error) *OrderHandler {
	return &OrderHandler{sync: sync}
}

// HandleMessage decodes the message value as a JSON object and syncs it
func (h *OrderHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var payload map[string]any
	if err := json.Unmarshal(msg.Value, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal order payload: %w", err)
	}
	return h.sync(ctx, payload)
}
