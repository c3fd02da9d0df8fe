package shipment

import (
	"fmt"
	"math"

	"shipment-sync/config"
	"shipment-sync/internal/apperrors"
	"shipment-sync/internal/models"
	"shipment-sync/internal/normalizer"

	"github.com/shopspring/decimal"
)

const (
	minWeight        = 0.3
	minDeclaredValue = 10
	defaultName      = "Cliente"
	defaultNumber    = "S/N"
)

// Builder maps canonical orders to carrier shipment requests
type Builder struct {
	serviceID int
	sender    models.ShipmentParty
}

// NewBuilder creates a builder with the configured sender and carrier service
func NewBuilder(cfg *config.Config) *Builder {
	s := cfg.Sender
	return &Builder{
		serviceID: cfg.Carrier.ServiceID,
		sender: models.ShipmentParty{
			Name:       s.Name,
			Phone:      s.Phone,
			Email:      s.Email,
			Document:   normalizer.CleanDocument(s.Document),
			Address:    s.Address,
			Complement: s.Complement,
			Number:     s.Number,
			District:   s.District,
			City:       s.City,
			StateAbbr:  s.State,
			PostalCode: normalizer.CleanZipcode(s.Zipcode),
		},
	}
}

// Build returns the shipment request for order. The order must carry an address and a customer.
func (b *Builder) Build(order *models.CanonicalOrder) (*models.ShipmentRequest, error) {
	if order.Address == nil {
		return nil, apperrors.ErrMissingAddress
	}
	if order.Customer == nil {
		return nil, apperrors.ErrMissingCustomer
	}

	items := order.Items
	if len(items) == 0 {
		items = []models.Item{models.DefaultItem()}
	}

	value := DeclaredValue(order.Total, items)

	return &models.ShipmentRequest{
		Service: b.serviceID,
		From:    b.sender,
		To:      recipient(order.Customer, order.Address),
		Products: []models.ShipmentProduct{{
			Name:         fmt.Sprintf("Pedido #%s", order.ID),
			Quantity:     1,
			UnitaryValue: value,
		}},
		Volumes: []models.ShipmentVolume{Volume(items)},
		Options: models.ShipmentOptions{InsuranceValue: value},
	}, nil
}

func recipient(c *models.Customer, a *models.Address) models.ShipmentParty {
	name := c.Name
	if name == "" {
		name = defaultName
	}
	number := a.Number
	if number == "" {
		number = defaultNumber
	}
	district := a.District
	if district == "" {
		district = a.Neighborhood
	}
	return models.ShipmentParty{
		Name:       name,
		Phone:      c.Phone,
		Email:      c.Email,
		Document:   c.Document,
		Address:    a.Street,
		Complement: a.Complement,
		Number:     number,
		District:   district,
		City:       a.City,
		StateAbbr:  a.State,
		PostalCode: normalizer.CleanZipcode(a.Zipcode),
	}
}

// Volume packs all items in a single box: summed weight, largest side per dimension
func Volume(items []models.Item) models.ShipmentVolume {
	weight := decimal.Zero
	var length, height, width float64
	for _, it := range items {
		weight = weight.Add(decimal.NewFromFloat(it.Weight).Mul(decimal.NewFromInt(int64(it.Quantity))))
		length = math.Max(length, it.Length)
		height = math.Max(height, it.Height)
		width = math.Max(width, it.Width)
	}

	w, _ := decimal.Max(weight, decimal.NewFromFloat(minWeight)).Float64()
	return models.ShipmentVolume{
		Height: int(height),
		Width:  int(width),
		Length: int(length),
		Weight: w,
	}
}

// DeclaredValue is the order total, or the item subtotal when the total is zero, never below the minimum
func DeclaredValue(total float64, items []models.Item) float64 {
	value := decimal.NewFromFloat(total)
	if value.IsZero() {
		for _, it := range items {
			value = value.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
	}
	f, _ := decimal.Max(value, decimal.NewFromInt(minDeclaredValue)).Float64()
	return f
}
