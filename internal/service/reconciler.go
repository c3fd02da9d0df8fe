package service

import (
	"context"
	"errors"
	"time"

	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"
	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

// ScanReport counts what one reconciliation scan did
type ScanReport struct {
	Checked   int
	Delivered int
	Pending   int
	Failed    int
	Skipped   int
}

// Reconciler polls the carrier for shipped orders and propagates deliveries to the storefront
type Reconciler struct {
	store         OrderStore
	carrier       CarrierClient
	storefront    StorefrontClient
	cache         StatusCache
	events        EventPublisher
	maxRetryCount int
	pause         time.Duration
	sleep         func(ctx context.Context, d time.Duration) error
	eventTimeout  time.Duration
	logger        *zap.Logger
}

// NewReconciler creates a reconciler. Orders whose retry_count reached maxRetryCount are
// no longer polled; pause is waited between two orders of the same scan.
func NewReconciler(
	store OrderStore,
	carrier CarrierClient,
	storefront StorefrontClient,
	cache StatusCache,
	events EventPublisher,
	maxRetryCount int,
	pause time.Duration,
	logger *zap.Logger,
) *Reconciler {
	if logger == nil {
		logger = util.GetLogger()
	}
	return &Reconciler{
		store:         store,
		carrier:       carrier,
		storefront:    storefront,
		cache:         cache,
		events:        events,
		maxRetryCount: maxRetryCount,
		pause:         pause,
		sleep:         sleepCtx,
		eventTimeout:  DefaultEventTimeout,
		logger:        logger,
	}
}

// Scan checks every pending order once. A failing order is recorded and the scan goes on;
// only a failure to list pending orders or a cancelled ctx ends it early.
func (r *Reconciler) Scan(ctx context.Context) (ScanReport, error) {
	ctx, span := util.StartSpan(ctx, "Reconciler.Scan")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ReconciliationScansTotal.Inc()
		util.ReconciliationScanDuration.Observe(time.Since(start).Seconds())
	}()

	var report ScanReport
	pending, err := r.store.ListPending(ctx, r.maxRetryCount)
	if err != nil {
		r.logger.Error("Failed to list pending orders", zap.Error(err))
		return report, err
	}
	if len(pending) > 0 {
		r.logger.Info("Checking pending orders", zap.Int("count", len(pending)))
	}

	for i := range pending {
		if i > 0 {
			if err := r.sleep(ctx, r.pause); err != nil {
				return report, err
			}
		}
		r.reconcile(ctx, &pending[i], &report)
	}

	r.logger.Info("Reconciliation scan finished",
		zap.Int("checked", report.Checked),
		zap.Int("delivered", report.Delivered),
		zap.Int("pending", report.Pending),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

func (r *Reconciler) reconcile(ctx context.Context, rec *models.OrderRecord, report *ScanReport) {
	orderID := rec.StorefrontOrderID
	shipmentID := rec.ShipmentID()
	if shipmentID == "" {
		r.logger.Debug("Order has no carrier shipment id, skipping", zap.String("order_id", orderID))
		report.Skipped++
		return
	}

	report.Checked++
	delivered, err := r.carrier.QueryDelivery(ctx, shipmentID)
	if err != nil {
		r.recordError(ctx, orderID, err, report)
		return
	}
	if !delivered {
		r.logger.Debug("Order not delivered yet", zap.String("order_id", orderID), zap.String("shipment_id", shipmentID))
		report.Pending++
		return
	}

	if err := r.storefront.MarkDelivered(ctx, orderID); err != nil {
		r.recordError(ctx, orderID, err, report)
		return
	}

	// the storefront already shows the delivery, the store must follow
	saveCtx := context.WithoutCancel(ctx)
	updated, err := r.store.Upsert(saveCtx, models.OrderUpdate{
		StorefrontOrderID: orderID,
		Status:            models.StatusDelivered,
	})
	if err != nil {
		r.logger.Error("Delivery confirmed but state not saved", zap.String("order_id", orderID), zap.Error(err))
		report.Failed++
		util.ReconciliationErrorsTotal.Inc()
		return
	}

	report.Delivered++
	util.DeliveriesConfirmedTotal.Inc()
	r.logger.Info("Order marked delivered", zap.String("order_id", orderID), zap.String("shipment_id", shipmentID))

	if r.cache != nil {
		if err := r.cache.SetStatus(saveCtx, orderID, models.StatusDelivered); err != nil {
			r.logger.Warn("Failed to cache order status", zap.String("order_id", orderID), zap.Error(err))
		}
	}
	if r.events != nil {
		pubCtx, cancel := eventContext(ctx, r.eventTimeout)
		if err := r.events.PublishOrderDelivered(pubCtx, updated); err != nil {
			r.logger.Error("Failed to publish OrderDelivered event", zap.String("order_id", orderID), zap.Error(err))
		}
		cancel()
	}
}

// recordError increments the retry count and keeps the status. Failures that never reached
// the remote platform (open circuit, shutdown) leave the order untouched.
func (r *Reconciler) recordError(ctx context.Context, orderID string, cause error, report *ScanReport) {
	switch {
	case ctx.Err() != nil:
		return
	case errors.Is(cause, apperrors.ErrCircuitOpen):
		r.logger.Warn("Circuit open, order not checked", zap.String("order_id", orderID), zap.Error(cause))
		report.Skipped++
		return
	}

	report.Failed++
	util.ReconciliationErrorsTotal.Inc()
	r.logger.Error("Failed to reconcile order", zap.String("order_id", orderID), zap.Error(cause))

	if _, err := r.store.Upsert(ctx, models.OrderUpdate{StorefrontOrderID: orderID, Error: cause.Error()}); err != nil {
		r.logger.Error("Failed to record reconciliation error", zap.String("order_id", orderID), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
