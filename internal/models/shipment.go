package models

// ShipmentRequest is the carrier cart payload
type ShipmentRequest struct {
	Service  int               `json:"service"`
	From     ShipmentParty     `json:"from"`
	To       ShipmentParty     `json:"to"`
	Products []ShipmentProduct `json:"products"`
	Volumes  []ShipmentVolume  `json:"volumes"`
	Options  ShipmentOptions   `json:"options"`
}

// ShipmentParty is a sender or recipient block
type ShipmentParty struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Document   string `json:"document"`
	Address    string `json:"address"`
	Complement string `json:"complement"`
	Number     string `json:"number"`
	District   string `json:"district"`
	City       string `json:"city"`
	StateAbbr  string `json:"state_abbr"`
	PostalCode string `json:"postal_code"`
}

type ShipmentProduct struct {
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	UnitaryValue float64 `json:"unitary_value"`
}

type ShipmentVolume struct {
	Height int     `json:"height"`
	Width  int     `json:"width"`
	Length int     `json:"length"`
	Weight float64 `json:"weight"`
}

type ShipmentOptions struct {
	InsuranceValue float64 `json:"insurance_value"`
	Receipt        bool    `json:"receipt"`
	OwnHand        bool    `json:"own_hand"`
	Collect        bool    `json:"collect"`
}

// ShipmentResult is what the carrier answered for a new shipment
type ShipmentResult struct {
	ShipmentID   string
	TrackingCode string
}
