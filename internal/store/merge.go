package store

import (
	"time"

	"shipment-sync/internal/models"
)

// Merge applies upd to the stored record, or to a fresh record when existing is nil.
//
// Non-empty fields of upd overwrite, empty ones keep the stored value. An error increments
// retry_count. A delivered record stays delivered and delivered_at is written only once.
func Merge(existing *models.OrderRecord, upd models.OrderUpdate, now time.Time) models.OrderRecord {
	var rec models.OrderRecord
	if existing != nil {
		rec = *existing
	} else {
		rec = models.OrderRecord{
			StorefrontOrderID: upd.StorefrontOrderID,
			Status:            models.StatusCreated,
			CreatedAt:         now,
		}
	}

	if upd.CarrierShipmentID != "" {
		id := upd.CarrierShipmentID
		rec.CarrierShipmentID = &id
	}
	if upd.TrackingCode != "" {
		code := upd.TrackingCode
		rec.TrackingCode = &code
	}
	if upd.Status != "" && rec.Status != models.StatusDelivered {
		rec.Status = upd.Status
	}
	if upd.Error != "" {
		msg := upd.Error
		rec.LastError = &msg
		rec.RetryCount++
	}
	if rec.Status == models.StatusDelivered && rec.DeliveredAt == nil {
		at := now
		rec.DeliveredAt = &at
	}

	rec.UpdatedAt = now
	return rec
}
