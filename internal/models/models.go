package models

import "time"

// Status is the sync state of a storefront order
type Status string

// Order statuses
const (
	StatusCreated   Status = "created"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusError     Status = "error"
)

// NoTrackingCode is stored when the carrier accepted a shipment without issuing a code yet.
// Records carrying it are never polled for delivery.
const NoTrackingCode = "SEM-RASTREIO"

// FulfillmentInvoiced is the only storefront fulfillment status that triggers a shipment
const FulfillmentInvoiced = "invoiced"

// OrderRecord is the persisted sync state of one storefront order
type OrderRecord struct {
	ID                int64      `db:"id" json:"-"`
	StorefrontOrderID string     `db:"storefront_order_id" json:"storefront_order_id"`
	CarrierShipmentID *string    `db:"carrier_shipment_id" json:"carrier_shipment_id,omitempty"`
	TrackingCode      *string    `db:"tracking_code" json:"tracking_code,omitempty"`
	Status            Status     `db:"status" json:"status"`
	RetryCount        int        `db:"retry_count" json:"retry_count"`
	LastError         *string    `db:"last_error" json:"last_error,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeliveredAt       *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}

// IsProcessed reports whether a new order event for this record must be ignored
func (r *OrderRecord) IsProcessed() bool {
	return r != nil && (r.Status == StatusShipped || r.Status == StatusDelivered)
}

// ShipmentID returns the carrier shipment id or "" when none was recorded
func (r *OrderRecord) ShipmentID() string {
	if r == nil || r.CarrierShipmentID == nil {
		return ""
	}
	return *r.CarrierShipmentID
}

// Tracking returns the tracking code or "" when none was recorded
func (r *OrderRecord) Tracking() string {
	if r == nil || r.TrackingCode == nil {
		return ""
	}
	return *r.TrackingCode
}

// OrderUpdate describes one write to the order store. Empty fields keep the stored value;
// a non-empty Error counts as a failed attempt.
type OrderUpdate struct {
	StorefrontOrderID string
	CarrierShipmentID string
	TrackingCode      string
	Status            Status
	Error             string
}
