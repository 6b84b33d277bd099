package entities

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"
)

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPaid      Status = "paid"
	StatusDelivered Status = "delivered"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPlaced, StatusPaid, StatusDelivered:
		return true
	}
	return false
}

func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if !s.IsValid() {
		return "", fmt.Errorf("invalid order status %q", value)
	}
	return s, nil
}

type Address struct {
	Address    string
	City       string
	PostalCode string
	Country    string
}

// LineItem is a product snapshot taken when the order was placed. UnitPrice
// never follows later catalog changes.
type LineItem struct {
	ProductID string
	Name      string
	UnitPrice Money
	Quantity  int
	Subtotal  Money
}

type Totals struct {
	Items    Money
	Shipping Money
	Tax      Money
	Grand    Money
}

// Payment is recorded exactly once, on the placed -> paid transition.
type Payment struct {
	ProviderTransactionID string
	PaidAt                time.Time
	CapturedAmount        Money
}

// Capture is a payment provider's confirmation that funds were collected.
type Capture struct {
	TransactionID string
	Amount        Money
}

// Delivery is recorded exactly once, on the paid -> delivered transition.
type Delivery struct {
	DeliveredAt time.Time
	DeliveredBy string
}

// OrderDraft is what a customer submits when placing an order. Prices come
// from the catalog, never from the draft.
type OrderDraft struct {
	Items           []DraftItem
	ShippingAddress Address
	PaymentMethod   string
}

type DraftItem struct {
	ProductID string
	Quantity  int
}

// Order is a frozen quote plus lifecycle state. Items, totals and the
// shipping address never change after creation; only Status, Payment,
// Delivery and Version do.
type Order struct {
	ID              string
	OwnerID         string
	Items           []LineItem
	ShippingAddress Address
	PaymentMethod   string
	Totals          Totals
	Status          Status
	Payment         *Payment
	Delivery        *Delivery
	CreatedAt       time.Time

	// Version is bumped by every successful store update and is the
	// compare-and-swap token for state transitions.
	Version int64
}

func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid || o.Status == StatusDelivered
}

func (o *Order) IsDelivered() bool {
	return o.Status == StatusDelivered
}

// CanBeAccessedBy reports whether the identity owns the order or is an admin.
func (o *Order) CanBeAccessedBy(who Identity) bool {
	return who.IsAdmin || (who.ID != "" && who.ID == o.OwnerID)
}

// Validate checks the lifecycle invariants that must hold for every
// persisted order.
func (o *Order) Validate() error {
	if !o.Status.IsValid() {
		return fmt.Errorf("order %s: invalid status %q", o.ID, o.Status)
	}
	if o.IsPaid() != (o.Payment != nil) {
		return fmt.Errorf("order %s: status %s inconsistent with payment record", o.ID, o.Status)
	}
	if o.IsDelivered() != (o.Delivery != nil) {
		return fmt.Errorf("order %s: status %s inconsistent with delivery record", o.ID, o.Status)
	}
	return nil
}

func (o *Order) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(o); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Order) Unmarshal(data []byte) error {
	buf := bytes.NewBuffer(data)
	dec := gob.NewDecoder(buf)
	return dec.Decode(o)
}

func init() {
	gob.Register(Order{})
	gob.Register(LineItem{})
	gob.Register(Payment{})
	gob.Register(Delivery{})
}
