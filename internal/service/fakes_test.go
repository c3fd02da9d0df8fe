package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"shipment-sync/internal/models"
	"shipment-sync/internal/store"

	"github.com/stretchr/testify/mock"
)

type mockCarrier struct {
	mock.Mock
}

func (m *mockCarrier) CreateShipment(ctx context.Context, orderID string, req *models.ShipmentRequest) (*models.ShipmentResult, error) {
	args := m.Called(ctx, orderID, req)
	res, _ := args.Get(0).(*models.ShipmentResult)
	return res, args.Error(1)
}

func (m *mockCarrier) QueryDelivery(ctx context.Context, shipmentID string) (bool, error) {
	args := m.Called(ctx, shipmentID)
	return args.Bool(0), args.Error(1)
}

type mockStorefront struct {
	mock.Mock
}

func (m *mockStorefront) MarkShipped(ctx context.Context, orderID, trackingCode string) error {
	return m.Called(ctx, orderID, trackingCode).Error(0)
}

func (m *mockStorefront) MarkDelivered(ctx context.Context, orderID string) error {
	return m.Called(ctx, orderID).Error(0)
}

func (m *mockStorefront) GetOrder(ctx context.Context, orderID string) (map[string]any, error) {
	args := m.Called(ctx, orderID)
	payload, _ := args.Get(0).(map[string]any)
	return payload, args.Error(1)
}

// memStore applies the same merge as the SQL store
type memStore struct {
	mu      sync.Mutex
	records map[string]models.OrderRecord
	clock   time.Time
	writes  int
	failErr error
}

func newMemStore() *memStore {
	return &memStore{
		records: map[string]models.OrderRecord{},
		clock:   time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) Upsert(ctx context.Context, upd models.OrderUpdate) (*models.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}
	// like database/sql, a cancelled context never starts the write
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.clock = s.clock.Add(time.Second)
	s.writes++

	var existing *models.OrderRecord
	if rec, ok := s.records[upd.StorefrontOrderID]; ok {
		existing = &rec
	}
	merged := store.Merge(existing, upd, s.clock)
	s.records[upd.StorefrontOrderID] = merged
	return &merged, nil
}

func (s *memStore) GetByOrderID(ctx context.Context, orderID string) (*models.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[orderID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *memStore) ListPending(ctx context.Context, maxRetryCount int) ([]models.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return nil, s.failErr
	}

	var out []models.OrderRecord
	for _, rec := range s.records {
		if rec.Status != models.StatusCreated && rec.Status != models.StatusShipped {
			continue
		}
		code := rec.Tracking()
		if code == "" || code == models.NoTrackingCode || rec.RetryCount >= maxRetryCount {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// seed stores a record as if written by an earlier sync
func (s *memStore) seed(upd models.OrderUpdate) models.OrderRecord {
	rec, _ := s.Upsert(context.Background(), upd)
	return *rec
}

func (s *memStore) get(orderID string) models.OrderRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[orderID]
}

type memCache struct {
	statuses map[string]models.Status
	err      error
}

func newMemCache() *memCache {
	return &memCache{statuses: map[string]models.Status{}}
}

func (c *memCache) SetStatus(ctx context.Context, orderID string, status models.Status) error {
	if c.err != nil {
		return c.err
	}
	c.statuses[orderID] = status
	return nil
}

func (c *memCache) GetStatus(ctx context.Context, orderID string) (models.Status, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	status, ok := c.statuses[orderID]
	return status, ok, nil
}

type recordedEvents struct {
	shipped   []string
	delivered []string
	failed    map[string]string
	// set when any publish ran without a deadline or on a cancelled context
	unbounded bool
	cancelled bool
}

func (e *recordedEvents) observe(ctx context.Context) {
	if _, ok := ctx.Deadline(); !ok {
		e.unbounded = true
	}
	if ctx.Err() != nil {
		e.cancelled = true
	}
}

func newRecordedEvents() *recordedEvents {
	return &recordedEvents{failed: map[string]string{}}
}

func (e *recordedEvents) PublishOrderShipped(ctx context.Context, rec *models.OrderRecord) error {
	e.observe(ctx)
	e.shipped = append(e.shipped, rec.StorefrontOrderID)
	return nil
}

func (e *recordedEvents) PublishOrderDelivered(ctx context.Context, rec *models.OrderRecord) error {
	e.observe(ctx)
	e.delivered = append(e.delivered, rec.StorefrontOrderID)
	return errors.New("broker unavailable")
}

func (e *recordedEvents) PublishOrderSyncFailed(ctx context.Context, orderID, reason string) error {
	e.observe(ctx)
	e.failed[orderID] = reason
	return nil
}
