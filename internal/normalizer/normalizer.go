package normalizer

import (
	"encoding/json"
	"strconv"
	"strings"

	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"

	"go.uber.org/zap"
)

// Normalizer turns raw storefront payloads into canonical orders
type Normalizer struct {
	logger *zap.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Unwrap returns the order carried by an {event, data} envelope, or the payload itself
func Unwrap(payload map[string]any) map[string]any {
	_, hasEvent := payload["event"]
	data, hasData := payload["data"]
	if !hasEvent || !hasData {
		return payload
	}
	order, _ := data.(map[string]any)
	return order
}

// Normalize builds a CanonicalOrder. Only a missing order id is an error; absent
// customer or address blocks are left nil for the shipment builder to reject.
func (n *Normalizer) Normalize(payload map[string]any) (*models.CanonicalOrder, error) {
	if _, ok := payload["event"]; ok {
		if _, ok := payload["data"]; ok {
			n.logger.Info("Webhook envelope received", zap.String("event", asString(payload["event"])))
		}
	}

	raw := Unwrap(payload)
	id := asString(raw["id"])
	if id == "" {
		return nil, apperrors.ErrMalformedOrder
	}

	order := &models.CanonicalOrder{
		ID:                id,
		Code:              asString(raw["code"]),
		FulfillmentStatus: asString(raw["fulfillment_status"]),
		Total:             asFloat(raw["total"], 0),
	}

	if cust := asMap(raw["customer"]); len(cust) > 0 {
		order.Customer = n.customer(id, cust)
	}

	addr := asMap(raw["address"])
	if len(addr) == 0 {
		addr = asMap(raw["shipping_address"])
	}
	if len(addr) > 0 {
		order.Address = address(addr)
	}

	if items, ok := raw["items"].([]any); ok {
		for _, it := range items {
			if m := asMap(it); m != nil {
				order.Items = append(order.Items, item(m))
			}
		}
	}

	return order, nil
}

func (n *Normalizer) customer(orderID string, m map[string]any) *models.Customer {
	doc := CleanDocument(asString(m["document"]))
	switch {
	case doc == "":
		n.logger.Warn("Order without customer CPF, sending empty document", zap.String("order_id", orderID))
	case !ValidateCPF(doc):
		n.logger.Warn("Invalid customer CPF, sending empty document",
			zap.String("order_id", orderID),
			zap.String("document", MaskDocument(doc)))
		doc = ""
	default:
		n.logger.Debug("Customer CPF validated",
			zap.String("order_id", orderID),
			zap.String("document", MaskDocument(doc)))
	}

	return &models.Customer{
		Name:     asString(m["name"]),
		Email:    asString(m["email"]),
		Phone:    asString(m["phone"]),
		Document: doc,
	}
}

func address(m map[string]any) *models.Address {
	zip := asString(m["zipcode"])
	if zip == "" {
		zip = asString(m["postal_code"])
	}
	return &models.Address{
		Street:       asString(m["street"]),
		Number:       asString(m["number"]),
		Complement:   asString(m["complement"]),
		District:     asString(m["district"]),
		Neighborhood: asString(m["neighborhood"]),
		City:         asString(m["city"]),
		State:        asString(m["state"]),
		Zipcode:      CleanZipcode(zip),
	}
}

func item(m map[string]any) models.Item {
	return models.Item{
		Weight:   asFloat(m["weight"], models.DefaultItemWeight),
		Length:   asFloat(m["length"], models.DefaultItemLength),
		Width:    asFloat(m["width"], models.DefaultItemWidth),
		Height:   asFloat(m["height"], models.DefaultItemHeight),
		Quantity: int(asFloat(m["quantity"], 1)),
		Price:    asFloat(m["price"], 0),
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asString accepts the loose JSON typing storefronts use for ids and codes
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// asFloat returns def for missing or unparsable values
func asFloat(v any, def float64) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(t, ",", ".")), 64); err == nil {
			return f
		}
	}
	return def
}
