package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"shipment-sync/config"
	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"
	"shipment-sync/internal/retry"
	"shipment-sync/internal/util"

	"go.uber.org/zap"
)

var deliveredMarkers = []string{"delivered", "entregue", "finalizado"}

// CarrierClient talks to the shipping carrier API
type CarrierClient struct {
	remote *remote
	retry  *retry.Policy
	logger *zap.Logger
}

// NewCarrierClient creates a new carrier client
func NewCarrierClient(cfg *config.Config, policy *retry.Policy, logger *zap.Logger) *CarrierClient {
	return &CarrierClient{
		remote: newRemote(apperrors.PlatformCarrier, cfg.Carrier.BaseURL, cfg.Carrier.Token, cfg.Sync.RequestTimeout,
			breakerSettings{failures: cfg.Carrier.BreakerFailures, timeout: cfg.Carrier.BreakerTimeout}, logger),
		retry:  policy,
		logger: logger,
	}
}

type cartResponse struct {
	ID       any    `json:"id"`
	Tracking string `json:"tracking"`
	Protocol string `json:"protocol"`
}

// CreateShipment adds the shipment to the carrier cart. The tracking code falls back to the
// protocol, then to models.NoTrackingCode.
func (c *CarrierClient) CreateShipment(ctx context.Context, orderID string, req *models.ShipmentRequest) (*models.ShipmentResult, error) {
	ctx, span := util.StartSpan(ctx, "CarrierClient.CreateShipment")
	defer span.End()

	c.logger.Info("Sending shipment to carrier",
		zap.String("order_id", orderID),
		zap.Float64("weight", firstVolume(req).Weight),
		zap.Float64("insurance_value", req.Options.InsuranceValue))

	resp, err := retry.Value(ctx, c.retry, "carrier.create_shipment", func(ctx context.Context) (*cartResponse, error) {
		var out cartResponse
		if err := c.remote.do(ctx, "create_shipment", http.MethodPost, "/me/cart", req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	result := &models.ShipmentResult{ShipmentID: idString(resp.ID), TrackingCode: resp.Tracking}
	if result.TrackingCode == "" {
		result.TrackingCode = resp.Protocol
	}
	if result.TrackingCode == "" {
		result.TrackingCode = models.NoTrackingCode
	}
	if result.ShipmentID == "" {
		c.logger.Warn("Carrier returned no shipment id", zap.String("order_id", orderID))
	}

	c.logger.Info("Shipment created",
		zap.String("order_id", orderID),
		zap.String("shipment_id", result.ShipmentID),
		zap.String("tracking_code", result.TrackingCode))
	return result, nil
}

// QueryDelivery asks the carrier whether the shipment was delivered. Failures are logged and
// returned with false so callers can record them.
func (c *CarrierClient) QueryDelivery(ctx context.Context, shipmentID string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "CarrierClient.QueryDelivery")
	defer span.End()

	body := map[string][]string{"orders": {shipmentID}}
	raw, err := retry.Value(ctx, c.retry, "carrier.query_delivery", func(ctx context.Context) (json.RawMessage, error) {
		var out json.RawMessage
		err := c.remote.do(ctx, "query_delivery", http.MethodPost, "/me/shipment/tracking", body, &out)
		return out, err
	})
	if err != nil {
		c.logger.Error("Failed to query delivery status",
			zap.String("shipment_id", shipmentID),
			zap.Error(err))
		return false, err
	}

	for _, status := range trackingStatuses(raw) {
		if isDeliveredStatus(status) {
			c.logger.Info("Shipment delivered", zap.String("shipment_id", shipmentID), zap.String("status", status))
			return true, nil
		}
		c.logger.Debug("Shipment not delivered yet", zap.String("shipment_id", shipmentID), zap.String("status", status))
	}
	return false, nil
}

// IsDelivered is QueryDelivery with failures reported as not delivered
func (c *CarrierClient) IsDelivered(ctx context.Context, shipmentID string) bool {
	delivered, _ := c.QueryDelivery(ctx, shipmentID)
	return delivered
}

// trackingStatuses accepts an array of entries, a single entry, or entries keyed by shipment id
func trackingStatuses(raw json.RawMessage) []string {
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return statusesOf(list)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if _, ok := obj["status"]; ok {
		return statusesOf([]map[string]any{obj})
	}
	for _, v := range obj {
		if entry, ok := v.(map[string]any); ok {
			list = append(list, entry)
		}
	}
	return statusesOf(list)
}

func statusesOf(entries []map[string]any) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if s, ok := e["status"].(string); ok {
			out = append(out, strings.ToLower(strings.TrimSpace(s)))
		}
	}
	return out
}

func isDeliveredStatus(status string) bool {
	status = strings.ToLower(status)
	for _, m := range deliveredMarkers {
		if strings.Contains(status, m) {
			return true
		}
	}
	return false
}

func firstVolume(req *models.ShipmentRequest) models.ShipmentVolume {
	if len(req.Volumes) == 0 {
		return models.ShipmentVolume{}
	}
	return req.Volumes[0]
}
