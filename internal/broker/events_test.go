package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"shipment-sync/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key   string
	event interface{}
}

type fakeWriter struct {
	events []published
	err    error
}

func (f *fakeWriter) PublishEvent(ctx context.Context, key string, event interface{}) error {
	f.events = append(f.events, published{key: key, event: event})
	return f.err
}

func TestPublishOrderShipped(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(w)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	ep.now = func() time.Time { return fixed }

	id, code := "me-1", "BR1"
	rec := &models.OrderRecord{StorefrontOrderID: "9876", CarrierShipmentID: &id, TrackingCode: &code}
	require.NoError(t, ep.PublishOrderShipped(context.Background(), rec))

	require.Len(t, w.events, 1)
	assert.Equal(t, "order-9876", w.events[0].key)

	event, ok := w.events[0].event.(*models.OrderShippedEvent)
	require.True(t, ok)
	assert.Equal(t, models.EventTypeOrderShipped, event.EventType)
	assert.Equal(t, fixed, event.Timestamp)
	assert.Equal(t, "me-1", event.CarrierShipmentID)
	assert.Equal(t, "BR1", event.TrackingCode)
	_, err := uuid.Parse(event.EventID)
	assert.NoError(t, err)
}

func TestPublishOrderDeliveredAndFailed(t *testing.T) {
	w := &fakeWriter{}
	ep := NewEventPublisher(w)

	require.NoError(t, ep.PublishOrderDelivered(context.Background(), &models.OrderRecord{StorefrontOrderID: "1"}))
	require.NoError(t, ep.PublishOrderSyncFailed(context.Background(), "2", "carrier_rejected"))

	require.Len(t, w.events, 2)
	delivered := w.events[0].event.(*models.OrderDeliveredEvent)
	assert.Equal(t, models.EventTypeOrderDelivered, delivered.EventType)
	assert.Empty(t, delivered.TrackingCode)

	failed := w.events[1].event.(*models.OrderSyncFailedEvent)
	assert.Equal(t, "order-2", w.events[1].key)
	assert.Equal(t, "carrier_rejected", failed.Reason)
	assert.NotEqual(t, delivered.EventID, failed.EventID)
}

func TestPublishPropagatesWriterError(t *testing.T) {
	ep := NewEventPublisher(&fakeWriter{err: errors.New("broker down")})
	assert.Error(t, ep.PublishOrderSyncFailed(context.Background(), "1", "internal"))
}

func TestOrderHandler(t *testing.T) {
	var got map[string]any
	h := NewOrderHandler(func(ctx context.Context, payload map[string]any) error {
		got = payload
		return nil
	})

	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"id":9876,"fulfillment_status":"invoiced"}`)}))
	assert.Equal(t, float64(9876), got["id"])

	assert.Error(t, h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`not json`)}))
}
