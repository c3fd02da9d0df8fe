package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"shipment-sync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t1.Add(time.Hour)
)

var columns = []string{"id", "storefront_order_id", "carrier_shipment_id", "tracking_code", "status",
	"retry_count", "last_error", "created_at", "updated_at", "delivered_at"}

func strPtr(s string) *string { return &s }

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	s := NewStoreWithDB(sqlx.NewDb(mockDB, "postgres"))
	s.now = func() time.Time { return t1 }
	return s, mock
}

func TestMergeNewRecord(t *testing.T) {
	rec := Merge(nil, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusError, Error: "carrier down"}, t0)

	assert.Equal(t, "1", rec.StorefrontOrderID)
	assert.Equal(t, models.StatusError, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Equal(t, "carrier down", *rec.LastError)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t0, rec.UpdatedAt)
	assert.Nil(t, rec.DeliveredAt)
}

func TestMergeKeepsStoredFieldsForEmptyUpdate(t *testing.T) {
	existing := &models.OrderRecord{
		StorefrontOrderID: "1",
		CarrierShipmentID: strPtr("me-1"),
		TrackingCode:      strPtr("BR1"),
		Status:            models.StatusShipped,
		RetryCount:        2,
		LastError:         strPtr("timeout"),
		CreatedAt:         t0,
		UpdatedAt:         t0,
	}

	rec := Merge(existing, models.OrderUpdate{StorefrontOrderID: "1"}, t1)

	assert.Equal(t, "me-1", rec.ShipmentID())
	assert.Equal(t, "BR1", rec.Tracking())
	assert.Equal(t, models.StatusShipped, rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, "timeout", *rec.LastError)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.Equal(t, t1, rec.UpdatedAt)

	// input is not mutated
	assert.Equal(t, t0, existing.UpdatedAt)
}

func TestMergeRetryCountAccumulates(t *testing.T) {
	rec := Merge(nil, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusShipped, TrackingCode: "BR1"}, t0)
	for i := 1; i <= 5; i++ {
		before := rec.RetryCount
		rec = Merge(&rec, models.OrderUpdate{StorefrontOrderID: "1", Error: "boom"}, t1)
		assert.Equal(t, before+1, rec.RetryCount)
		assert.Equal(t, models.StatusShipped, rec.Status)
	}

	rec = Merge(&rec, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusShipped}, t2)
	assert.Equal(t, 5, rec.RetryCount)
	assert.Equal(t, "boom", *rec.LastError)
}

func TestMergeDeliveredAtSetOnce(t *testing.T) {
	rec := Merge(nil, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusShipped}, t0)
	assert.Nil(t, rec.DeliveredAt)

	rec = Merge(&rec, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusDelivered}, t1)
	require.NotNil(t, rec.DeliveredAt)
	assert.Equal(t, t1, *rec.DeliveredAt)

	rec = Merge(&rec, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusDelivered}, t2)
	assert.Equal(t, t1, *rec.DeliveredAt)

	rec = Merge(&rec, models.OrderUpdate{StorefrontOrderID: "1", Status: models.StatusError, Error: "late"}, t2)
	assert.Equal(t, models.StatusDelivered, rec.Status)
	assert.Equal(t, t1, *rec.DeliveredAt)
	assert.Equal(t, 1, rec.RetryCount)
}

func TestUpsert(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shipment_orders")).
		WithArgs("9876", models.StatusCreated, t1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM shipment_orders WHERE storefront_order_id = $1 FOR UPDATE")).
		WithArgs("9876").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "9876", nil, nil, "created", 0, nil, t0, t0, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shipment_orders")).
		WithArgs("me-1", "BR1", models.StatusShipped, 0, nil, t1, nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := s.Upsert(context.Background(), models.OrderUpdate{
		StorefrontOrderID: "9876",
		CarrierShipmentID: "me-1",
		TrackingCode:      "BR1",
		Status:            models.StatusShipped,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, models.StatusShipped, rec.Status)
	assert.Equal(t, t0, rec.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertErrorIncrementsRetryCount(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shipment_orders")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "9876", "me-1", "BR1", "shipped", 1, "old", t0, t0, nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE shipment_orders")).
		WithArgs("me-1", "BR1", models.StatusShipped, 2, "timeout", t1, nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec, err := s.Upsert(context.Background(), models.OrderUpdate{StorefrontOrderID: "9876", Error: "timeout"})

	require.NoError(t, err)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, models.StatusShipped, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO shipment_orders")).
		WillReturnError(errors.New("connection lost"))
	mock.ExpectRollback()

	_, err := s.Upsert(context.Background(), models.OrderUpdate{StorefrontOrderID: "9876"})

	assert.ErrorContains(t, err, "connection lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertRequiresOrderID(t *testing.T) {
	s, _ := newMockStore(t)
	_, err := s.Upsert(context.Background(), models.OrderUpdate{})
	assert.Error(t, err)
}

func TestGetByOrderID(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE storefront_order_id = $1")).
		WithArgs("9876").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "9876", "me-1", "BR1", "delivered", 0, nil, t0, t1, t1))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE storefront_order_id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columns))

	rec, err := s.GetByOrderID(context.Background(), "9876")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.IsProcessed())
	assert.Equal(t, t1, *rec.DeliveredAt)

	rec, err = s.GetByOrderID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByTrackingCode(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE tracking_code = $1")).
		WithArgs("BR1").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(7, "9876", "me-1", "BR1", "shipped", 0, nil, t0, t1, nil))

	rec, err := s.GetByTrackingCode(context.Background(), "BR1")
	require.NoError(t, err)
	assert.Equal(t, "9876", rec.StorefrontOrderID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPending(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`(?s)SELECT .* FROM shipment_orders\s+WHERE status IN \(\$1, \$2\).*tracking_code <> \$3.*retry_count < \$4\s+ORDER BY updated_at ASC`).
		WithArgs(models.StatusCreated, models.StatusShipped, models.NoTrackingCode, 6).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(1, "a", "me-a", "BRa", "shipped", 0, nil, t0, t0, nil).
			AddRow(2, "b", "me-b", "BRb", "created", 5, "x", t0, t1, nil))

	recs, err := s.ListPending(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].StorefrontOrderID)
	assert.Equal(t, 5, recs[1].RetryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY status")).
		WillReturnRows(sqlmock.NewRows([]string{"status", "count"}).
			AddRow("shipped", 3).
			AddRow("error", 2))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"shipped": 3, "error": 2, "total": 5}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
