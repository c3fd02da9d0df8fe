package service

import (
	"context"
	"fmt"
	"time"

	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"
	"shipment-sync/internal/normalizer"
	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

// DefaultEventTimeout bounds one best-effort event publish
const DefaultEventTimeout = 5 * time.Second

// Outcome of handling one order event
type Outcome string

const (
	OutcomeIgnored          Outcome = "ignored"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeShipped          Outcome = "shipped"
)

// SyncResult describes a handled order event that did not fail
type SyncResult struct {
	Outcome           Outcome
	OrderID           string
	OrderCode         string
	FulfillmentStatus string
	Status            models.Status
	CarrierShipmentID string
	TrackingCode      string
}

// SyncOrchestrator drives an invoiced order through carrier shipment creation and
// storefront fulfillment, recording the outcome in the store
type SyncOrchestrator struct {
	normalizer   *normalizer.Normalizer
	builder      ShipmentBuilder
	carrier      CarrierClient
	storefront   StorefrontClient
	store        OrderStore
	cache        StatusCache
	events       EventPublisher
	eventTimeout time.Duration
	logger       *zap.Logger
}

// NewSyncOrchestrator creates a new orchestrator. cache and events may be nil.
func NewSyncOrchestrator(
	builder ShipmentBuilder,
	carrier CarrierClient,
	storefront StorefrontClient,
	store OrderStore,
	cache StatusCache,
	events EventPublisher,
	logger *zap.Logger,
) *SyncOrchestrator {
	if logger == nil {
		logger = util.GetLogger()
	}
	return &SyncOrchestrator{
		normalizer:   normalizer.NewNormalizer(logger),
		builder:      builder,
		carrier:      carrier,
		storefront:   storefront,
		store:        store,
		cache:        cache,
		events:       events,
		eventTimeout: DefaultEventTimeout,
		logger:       logger,
	}
}

// HandleOrderEvent processes one inbound order payload.
// Errors are returned after the failure was recorded against the order.
func (o *SyncOrchestrator) HandleOrderEvent(ctx context.Context, payload map[string]any) (*SyncResult, error) {
	ctx, span := util.StartSpan(ctx, "SyncOrchestrator.HandleOrderEvent")
	defer span.End()

	order, err := o.normalizer.Normalize(payload)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues(apperrors.Reason(err)).Inc()
		o.logger.Warn("Rejected order payload", zap.Error(err))
		return nil, err
	}

	result := &SyncResult{
		OrderID:           order.ID,
		OrderCode:         order.Code,
		FulfillmentStatus: order.FulfillmentStatus,
	}

	if order.FulfillmentStatus != models.FulfillmentInvoiced {
		util.OrdersIgnoredTotal.Inc()
		o.logger.Info("Order ignored, not invoiced",
			zap.String("order_id", order.ID),
			zap.String("order_code", order.Code),
			zap.String("fulfillment_status", order.FulfillmentStatus))
		result.Outcome = OutcomeIgnored
		return result, nil
	}

	status, processed, err := o.processedStatus(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if processed {
		util.OrdersDuplicateTotal.Inc()
		o.logger.Info("Order already processed",
			zap.String("order_id", order.ID),
			zap.String("status", string(status)))
		result.Outcome = OutcomeAlreadyProcessed
		result.Status = status
		return result, nil
	}

	req, err := o.builder.Build(order)
	if err != nil {
		return nil, o.recordFailure(ctx, order.ID, err, nil)
	}

	shipment, err := o.carrier.CreateShipment(ctx, order.ID, req)
	if err != nil {
		return nil, o.recordFailure(ctx, order.ID, err, nil)
	}

	if err := o.storefront.MarkShipped(ctx, order.ID, shipment.TrackingCode); err != nil {
		return nil, o.recordFailure(ctx, order.ID, err, shipment)
	}

	// the shipment exists at the carrier now; its state is saved even if the caller went away
	saveCtx := context.WithoutCancel(ctx)
	rec, err := o.store.Upsert(saveCtx, models.OrderUpdate{
		StorefrontOrderID: order.ID,
		CarrierShipmentID: shipment.ShipmentID,
		TrackingCode:      shipment.TrackingCode,
		Status:            models.StatusShipped,
	})
	if err != nil {
		o.logger.Error("Shipment created but state not saved",
			zap.String("order_id", order.ID),
			zap.String("shipment_id", shipment.ShipmentID),
			zap.Error(err))
		return nil, fmt.Errorf("save shipped order %s: %w", order.ID, err)
	}

	o.cacheStatus(saveCtx, order.ID, models.StatusShipped)
	if o.events != nil {
		pubCtx, cancel := eventContext(ctx, o.eventTimeout)
		if err := o.events.PublishOrderShipped(pubCtx, rec); err != nil {
			o.logger.Error("Failed to publish OrderShipped event", zap.String("order_id", order.ID), zap.Error(err))
		}
		cancel()
	}

	util.OrdersShippedTotal.Inc()
	o.logger.Info("Order synced",
		zap.String("order_id", order.ID),
		zap.String("shipment_id", shipment.ShipmentID),
		zap.String("tracking_code", shipment.TrackingCode))

	result.Outcome = OutcomeShipped
	result.Status = models.StatusShipped
	result.CarrierShipmentID = shipment.ShipmentID
	result.TrackingCode = shipment.TrackingCode
	return result, nil
}

// SyncByID fetches the order from the storefront and handles it like an inbound event
func (o *SyncOrchestrator) SyncByID(ctx context.Context, orderID string) (*SyncResult, error) {
	payload, err := o.storefront.GetOrder(ctx, orderID)
	if err != nil {
		o.logger.Error("Failed to fetch order from storefront", zap.String("order_id", orderID), zap.Error(err))
		return nil, fmt.Errorf("fetch order %s: %w", orderID, err)
	}
	return o.HandleOrderEvent(ctx, payload)
}

// processedStatus consults the cache, then the store. Only shipped and delivered count.
func (o *SyncOrchestrator) processedStatus(ctx context.Context, orderID string) (models.Status, bool, error) {
	if o.cache != nil {
		status, ok, err := o.cache.GetStatus(ctx, orderID)
		if err != nil {
			o.logger.Warn("Status cache unavailable, falling back to store", zap.Error(err))
		} else if ok && (status == models.StatusShipped || status == models.StatusDelivered) {
			return status, true, nil
		}
	}

	rec, err := o.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return "", false, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if rec == nil {
		return "", false, nil
	}
	if rec.IsProcessed() {
		o.cacheStatus(ctx, orderID, rec.Status)
	}
	return rec.Status, rec.IsProcessed(), nil
}

// recordFailure stores the error state and returns cause unchanged. The write does not
// follow ctx cancellation: a created shipment must never go unrecorded.
func (o *SyncOrchestrator) recordFailure(ctx context.Context, orderID string, cause error, shipment *models.ShipmentResult) error {
	ctx = context.WithoutCancel(ctx)
	reason := apperrors.Reason(cause)
	util.OrdersFailedTotal.WithLabelValues(reason).Inc()
	o.logger.Error("Order sync failed",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
		zap.Error(cause))

	upd := models.OrderUpdate{
		StorefrontOrderID: orderID,
		Status:            models.StatusError,
		Error:             cause.Error(),
	}
	if shipment != nil {
		upd.CarrierShipmentID = shipment.ShipmentID
		upd.TrackingCode = shipment.TrackingCode
	}

	if _, err := o.store.Upsert(ctx, upd); err != nil {
		o.logger.Error("Failed to record sync error", zap.String("order_id", orderID), zap.Error(err))
	}
	o.cacheStatus(ctx, orderID, models.StatusError)

	if o.events != nil {
		pubCtx, cancel := eventContext(ctx, o.eventTimeout)
		if err := o.events.PublishOrderSyncFailed(pubCtx, orderID, reason); err != nil {
			o.logger.Error("Failed to publish OrderSyncFailed event", zap.String("order_id", orderID), zap.Error(err))
		}
		cancel()
	}
	return cause
}

func (o *SyncOrchestrator) cacheStatus(ctx context.Context, orderID string, status models.Status) {
	if o.cache == nil {
		return
	}
	if err := o.cache.SetStatus(ctx, orderID, status); err != nil {
		o.logger.Warn("Failed to cache order status", zap.String("order_id", orderID), zap.Error(err))
	}
}

// eventContext detaches a publish from ctx cancellation and bounds it by timeout
func eventContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), timeout)
}
