package models

// CanonicalOrder is a storefront order after normalization
type CanonicalOrder struct {
	ID                string
	Code              string
	FulfillmentStatus string
	Total             float64
	Customer          *Customer
	Address           *Address
	Items             []Item
}

// Customer is the order recipient. Document holds a validated CPF or "".
type Customer struct {
	Name     string
	Email    string
	Phone    string
	Document string
}

// Address is the delivery address as sent by the storefront, postal code digits only
type Address struct {
	Street       string
	Number       string
	Complement   string
	District     string
	Neighborhood string
	City         string
	State        string
	Zipcode      string
}

// Item is one order line. Missing dimensions are filled with package defaults.
type Item struct {
	Weight   float64
	Length   float64
	Width    float64
	Height   float64
	Quantity int
	Price    float64
}

// Package defaults used when the storefront omits item data
const (
	DefaultItemWeight = 0.3
	DefaultItemLength = 20
	DefaultItemHeight = 10
	DefaultItemWidth  = 15
)

// DefaultItem is synthesized for orders without line items
func DefaultItem() Item {
	return Item{
		Weight:   DefaultItemWeight,
		Length:   DefaultItemLength,
		Width:    DefaultItemWidth,
		Height:   DefaultItemHeight,
		Quantity: 1,
	}
}
