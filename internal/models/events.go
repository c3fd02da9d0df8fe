package models

import "time"

// Event types
const (
	EventTypeOrderShipped    = "ORDER_SHIPPED"
	EventTypeOrderDelivered  = "ORDER_DELIVERED"
	EventTypeOrderSyncFailed = "ORDER_SYNC_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderShippedEvent published when the carrier shipment exists and the storefront was told
type OrderShippedEvent struct {
	BaseEvent
	StorefrontOrderID string `json:"storefront_order_id"`
	CarrierShipmentID string `json:"carrier_shipment_id"`
	TrackingCode      string `json:"tracking_code"`
}

// OrderDeliveredEvent published when reconciliation confirms delivery
type OrderDeliveredEvent struct {
	BaseEvent
	StorefrontOrderID string `json:"storefront_order_id"`
	CarrierShipmentID string `json:"carrier_shipment_id"`
	TrackingCode      string `json:"tracking_code"`
}

// OrderSyncFailedEvent published when a sync attempt ends in the error state
type OrderSyncFailedEvent struct {
	BaseEvent
	StorefrontOrderID string `json:"storefront_order_id"`
	Reason            string `json:"reason"`
}
