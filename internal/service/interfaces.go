package service

import (
	"context"

	"shipment-sync/internal/models"
)

// CarrierClient creates shipments and reports delivery
type CarrierClient interface {
	CreateShipment(ctx context.Context, orderID string, req *models.ShipmentRequest) (*models.ShipmentResult, error)
	QueryDelivery(ctx context.Context, shipmentID string) (bool, error)
}

// StorefrontClient updates fulfillment on the order-originating platform
type StorefrontClient interface {
	MarkShipped(ctx context.Context, orderID, trackingCode string) error
	MarkDelivered(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (map[string]any, error)
}

// OrderStore persists the sync state of each order
type OrderStore interface {
	Upsert(ctx context.Context, upd models.OrderUpdate) (*models.OrderRecord, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.OrderRecord, error)
	ListPending(ctx context.Context, maxRetryCount int) ([]models.OrderRecord, error)
}

// ShipmentBuilder maps a canonical order to a carrier request
type ShipmentBuilder interface {
	Build(order *models.CanonicalOrder) (*models.ShipmentRequest, error)
}

// StatusCache is a fast path for the already-processed check
type StatusCache interface {
	SetStatus(ctx context.Context, orderID string, status models.Status) error
	GetStatus(ctx context.Context, orderID string) (models.Status, bool, error)
}

// EventPublisher announces sync state transitions
type EventPublisher interface {
	PublishOrderShipped(ctx context.Context, rec *models.OrderRecord) error
	PublishOrderDelivered(ctx context.Context, rec *models.OrderRecord) error
	PublishOrderSyncFailed(ctx context.Context, orderID, reason string) error
}
