package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shipment-sync/internal/models"
)

const orderColumns = `id, storefront_order_id, carrier_shipment_id, tracking_code, status,
	retry_count, last_error, created_at, updated_at, delivered_at`

// Upsert merges upd into the record of its order id, creating it when missing.
// The row is locked for the read-merge-write so concurrent writers serialize per order.
func (s *Store) Upsert(ctx context.Context, upd models.OrderUpdate) (*models.OrderRecord, error) {
	if upd.StorefrontOrderID == "" {
		return nil, errors.New("upsert: empty storefront order id")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := s.now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO shipment_orders (storefront_order_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (storefront_order_id) DO NOTHING`,
		upd.StorefrontOrderID, models.StatusCreated, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	var existing models.OrderRecord
	err = tx.GetContext(ctx, &existing,
		"SELECT "+orderColumns+" FROM shipment_orders WHERE storefront_order_id = $1 FOR UPDATE",
		upd.StorefrontOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}

	merged := Merge(&existing, upd, now)

	_, err = tx.ExecContext(ctx, `
		UPDATE shipment_orders
		SET carrier_shipment_id = $1, tracking_code = $2, status = $3, retry_count = $4,
			last_error = $5, updated_at = $6, delivered_at = $7
		WHERE id = $8`,
		merged.CarrierShipmentID, merged.TrackingCode, merged.Status, merged.RetryCount,
		merged.LastError, merged.UpdatedAt, merged.DeliveredAt, merged.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// GetByOrderID returns nil, nil when the order was never synced
func (s *Store) GetByOrderID(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	var rec models.OrderRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT "+orderColumns+" FROM shipment_orders WHERE storefront_order_id = $1", orderID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetByTrackingCode returns nil, nil when no order carries the code
func (s *Store) GetByTrackingCode(ctx context.Context, code string) (*models.OrderRecord, error) {
	var rec models.OrderRecord
	err := s.db.GetContext(ctx, &rec,
		"SELECT "+orderColumns+" FROM shipment_orders WHERE tracking_code = $1 ORDER BY updated_at DESC LIMIT 1", code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListPending returns the orders to poll for delivery, least recently updated first
func (s *Store) ListPending(ctx context.Context, maxRetryCount int) ([]models.OrderRecord, error) {
	var recs []models.OrderRecord
	err := s.db.SelectContext(ctx, &recs, `
		SELECT `+orderColumns+` FROM shipment_orders
		WHERE status IN ($1, $2)
			AND tracking_code IS NOT NULL
			AND tracking_code <> ''
			AND tracking_code <> $3
			AND retry_count < $4
		ORDER BY updated_at ASC`,
		models.StatusCreated, models.StatusShipped, models.NoTrackingCode, maxRetryCount)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}
	return recs, nil
}

type statusCount struct {
	Status string `db:"status"`
	Count  int    `db:"count"`
}

// Stats counts orders per status, plus a "total" entry
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	var rows []statusCount
	err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM shipment_orders GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	stats := map[string]int{"total": 0}
	for _, r := range rows {
		stats[r.Status] = r.Count
		stats["total"] += r.Count
	}
	return stats, nil
}
