package worker

import (
	"context"
	"time"

	"shipment-sync/internal/broker"
	"shipment-sync/internal/service"
	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

// Scanner runs one reconciliation pass
type Scanner interface {
	Scan(ctx context.Context) (service.ScanReport, error)
}

// TrackingWorker runs reconciliation scans forever, one every interval
type TrackingWorker struct {
	scanner  Scanner
	interval time.Duration
	after    func(d time.Duration) <-chan time.Time
	logger   *zap.Logger
}

// NewTrackingWorker creates a new tracking worker
func NewTrackingWorker(scanner Scanner, interval time.Duration) *TrackingWorker {
	return &TrackingWorker{
		scanner:  scanner,
		interval: interval,
		after:    time.After,
		logger:   util.GetLogger(),
	}
}

// Start scans immediately, then waits interval between scans until ctx is done.
// Scan failures are logged and never stop the loop.
func (w *TrackingWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting tracking worker", zap.Duration("interval", w.interval))

	for {
		w.RunOnce(ctx)

		w.logger.Debug("Waiting for next reconciliation scan", zap.Duration("interval", w.interval))
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping tracking worker")
			return ctx.Err()
		case <-w.after(w.interval):
		}
	}
}

// RunOnce runs a single scan and swallows its error
func (w *TrackingWorker) RunOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Reconciliation scan panicked", zap.Any("panic", r))
		}
	}()

	if _, err := w.scanner.Scan(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("Reconciliation scan failed", zap.Error(err))
	}
}

// OrderWorker syncs storefront orders published on a Kafka topic
type OrderWorker struct {
	consumer *broker.Consumer
	handler  *broker.OrderHandler
	logger   *zap.Logger
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(consumer *broker.Consumer, orchestrator *service.SyncOrchestrator) *OrderWorker {
	logger := util.GetLogger()
	handler := broker.NewOrderHandler(func(ctx context.Context, payload map[string]any) error {
		res, err := orchestrator.HandleOrderEvent(ctx, payload)
		if err != nil {
			// failures are already recorded on the order, commit and move on
			logger.Warn("Order from topic failed to sync", zap.Error(err))
			return nil
		}
		logger.Info("Order from topic handled",
			zap.String("order_id", res.OrderID),
			zap.String("outcome", string(res.Outcome)))
		return nil
	})

	return &OrderWorker{consumer: consumer, handler: handler, logger: logger}
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting order worker")
	return w.consumer.StartConsuming(ctx, w.handler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	w.logger.Info("Stopping order worker")
	return w.consumer.Close()
}
