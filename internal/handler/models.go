package handler

import (
	"time"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

// Money is an amount in minor units (cents) with an ISO 4217 currency code
type Money struct {
	Amount   int64  `json:"amount" validate:"gte=0" example:"2700"`
	Currency string `json:"currency" validate:"required,len=3,uppercase" example:"LKR"`
}

// Address is the shipping address snapshot
type Address struct {
	Address    string `json:"address" validate:"required,max=256"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postal_code" validate:"required,max=32"`
	Country    string `json:"country" validate:"required,max=64"`
}

// LineItem is a product snapshot taken at order creation
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice Money  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	Subtotal  Money  `json:"subtotal"`
}

// Totals are computed once, when the order is placed
type Totals struct {
	Items    Money `json:"items"`
	Shipping Money `json:"shipping"`
	Tax      Money `json:"tax"`
	Grand    Money `json:"grand"`
}

// Payment is the capture that paid the order
type Payment struct {
	TransactionID  string    `json:"transaction_id"`
	PaidAt         time.Time `json:"paid_at"`
	CapturedAmount Money     `json:"captured_amount"`
}

// Delivery records who marked the order delivered and when
type Delivery struct {
	DeliveredAt time.Time `json:"delivered_at"`
	DeliveredBy string    `json:"delivered_by"`
}

// Order represents an order with its lifecycle state
type Order struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	Items           []LineItem `json:"items"`
	ShippingAddress Address    `json:"shipping_address"`
	PaymentMethod   string     `json:"payment_method"`
	Totals          Totals     `json:"totals"`
	Status          string     `json:"status" enums:"placed,paid,delivered"`
	IsPaid          bool       `json:"is_paid"`
	IsDelivered     bool       `json:"is_delivered"`
	Payment         *Payment   `json:"payment,omitempty"`
	Delivery        *Delivery  `json:"delivery,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// OrdersPage is one page of the caller's orders
type OrdersPage struct {
	Orders        []Order `json:"orders"`
	NextPageToken string  `json:"next_page_token,omitempty"`
}

// CreateOrderItem references a catalog product; the price comes from the catalog
type CreateOrderItem struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

// CreateOrderRequest places a new order
type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items" validate:"dive"`
	ShippingAddress Address           `json:"shipping_address" validate:"required"`
	PaymentMethod   string            `json:"payment_method" validate:"required,max=64" example:"PayPal"`
}

// ConfirmPaymentRequest carries the capture the client received from the provider
type ConfirmPaymentRequest struct {
	TransactionID string `json:"transaction_id" validate:"required,max=128"`
	Amount        Money  `json:"amount" validate:"required"`
}

// CaptureRequest asks the server to capture a previously created intent
type CaptureRequest struct {
	IntentRef string `json:"intent_ref" validate:"required,max=128"`
}

// IntentResponse references the provider checkout created for an order
type IntentResponse struct {
	IntentRef string `json:"intent_ref"`
}

// PayPalConfig is what the browser needs to render the PayPal button
type PayPalConfig struct {
	ClientID string `json:"client_id"`
	Currency string `json:"currency"`
}

// CaptureEvent is a capture confirmation delivered through Kafka
type CaptureEvent struct {
	OrderID       string `json:"order_id" validate:"required,uuid"`
	TransactionID string `json:"transaction_id" validate:"required,max=128"`
	Amount        Money  `json:"amount" validate:"required"`
}

func MoneyEntityToJSON(m entities.Money) Money {
	return Money{Amount: m.Amount, Currency: m.Currency}
}

func MoneyJSONToEntity(m Money) entities.Money {
	return entities.NewMoney(m.Amount, m.Currency)
}

func OrderEntityToJSON(o entities.Order) Order {
	items := make([]LineItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: MoneyEntityToJSON(it.UnitPrice),
			Quantity:  it.Quantity,
			Subtotal:  MoneyEntityToJSON(it.Subtotal),
		})
	}

	res := Order{
		ID:      o.ID,
		OwnerID: o.OwnerID,
		Items:   items,
		ShippingAddress: Address{
			Address:    o.ShippingAddress.Address,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod: o.PaymentMethod,
		Totals: Totals{
			Items:    MoneyEntityToJSON(o.Totals.Items),
			Shipping: MoneyEntityToJSON(o.Totals.Shipping),
			Tax:      MoneyEntityToJSON(o.Totals.Tax),
			Grand:    MoneyEntityToJSON(o.Totals.Grand),
		},
		Status:      string(o.Status),
		IsPaid:      o.IsPaid(),
		IsDelivered: o.IsDelivered(),
		CreatedAt:   o.CreatedAt,
	}

	if p := o.Payment; p != nil {
		res.Payment = &Payment{
			TransactionID:  p.ProviderTransactionID,
			PaidAt:         p.PaidAt,
			CapturedAmount: MoneyEntityToJSON(p.CapturedAmount),
		}
	}
	if d := o.Delivery; d != nil {
		res.Delivery = &Delivery{
			DeliveredAt: d.DeliveredAt,
			DeliveredBy: d.DeliveredBy,
		}
	}

	return res
}

func CreateOrderJSONToEntity(req CreateOrderRequest) entities.OrderDraft {
	items := make([]entities.DraftItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, entities.DraftItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	return entities.OrderDraft{
		Items: items,
		ShippingAddress: entities.Address{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	}
}
