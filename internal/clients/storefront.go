package clients

import (
	"context"
	"net/http"
	"net/url"

	"shipment-sync/config"
	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/retry"
	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

// ShippingCarrierName is reported to the storefront with every tracking code
const ShippingCarrierName = "Melhor Envio"

// StorefrontClient updates order fulfillment on the storefront
type StorefrontClient struct {
	remote *remote
	retry  *retry.Policy
	logger *zap.Logger
}

// NewStorefrontClient creates a new storefront client
func NewStorefrontClient(cfg *config.Config, policy *retry.Policy, logger *zap.Logger) *StorefrontClient {
	return &StorefrontClient{
		remote: newRemote(apperrors.PlatformStorefront, cfg.Storefront.BaseURL, cfg.Storefront.Token, cfg.Sync.RequestTimeout,
			breakerSettings{failures: cfg.Storefront.BreakerFailures, timeout: cfg.Storefront.BreakerTimeout}, logger),
		retry:  policy,
		logger: logger,
	}
}

type shippedRequest struct {
	ShippingCode    string `json:"shipping_code"`
	ShippingCarrier string `json:"shipping_carrier"`
}

// MarkShipped sets the order fulfillment to shipped with its tracking code
func (s *StorefrontClient) MarkShipped(ctx context.Context, orderID, trackingCode string) error {
	ctx, span := util.StartSpan(ctx, "StorefrontClient.MarkShipped")
	defer span.End()

	s.logger.Info("Marking order shipped on storefront", zap.String("order_id", orderID))
	body := shippedRequest{ShippingCode: trackingCode, ShippingCarrier: ShippingCarrierName}
	err := s.retry.Do(ctx, "storefront.mark_shipped", func(ctx context.Context) error {
		return s.remote.do(ctx, "mark_shipped", http.MethodPut, orderPath(orderID)+"/fulfillment/shipped", body, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order marked shipped on storefront", zap.String("order_id", orderID))
	return nil
}

// MarkDelivered sets the order fulfillment to delivered
func (s *StorefrontClient) MarkDelivered(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "StorefrontClient.MarkDelivered")
	defer span.End()

	s.logger.Info("Marking order delivered on storefront", zap.String("order_id", orderID))
	err := s.retry.Do(ctx, "storefront.mark_delivered", func(ctx context.Context) error {
		return s.remote.do(ctx, "mark_delivered", http.MethodPut, orderPath(orderID)+"/fulfillment/delivered", nil, nil)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Order marked delivered on storefront", zap.String("order_id", orderID))
	return nil
}

// GetOrder fetches the raw order payload
func (s *StorefrontClient) GetOrder(ctx context.Context, orderID string) (map[string]any, error) {
	ctx, span := util.StartSpan(ctx, "StorefrontClient.GetOrder")
	defer span.End()

	return retry.Value(ctx, s.retry, "storefront.get_order", func(ctx context.Context) (map[string]any, error) {
		var out map[string]any
		err := s.remote.do(ctx, "get_order", http.MethodGet, orderPath(orderID), nil, &out)
		return out, err
	})
}

func orderPath(orderID string) string {
	return "/orders/" + url.PathEscape(orderID)
}
