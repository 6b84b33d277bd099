package repo

import (
	"database/sql"
	"time"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

type Order struct {
	ID            string `db:"id"`
	OwnerID       string `db:"owner_id"`
	Address       string `db:"address"`
	City          string `db:"city"`
	PostalCode    string `db:"postal_code"`
	Country       string `db:"country"`
	PaymentMethod string `db:"payment_method"`

	Currency      string `db:"currency"`
	ItemsTotal    int64  `db:"items_total"`
	ShippingTotal int64  `db:"shipping_total"`
	TaxTotal      int64  `db:"tax_total"`
	GrandTotal    int64  `db:"grand_total"`

	Status string `db:"status"`

	PaymentTxID      sql.NullString `db:"payment_tx_id"`
	PaidAt           sql.NullTime   `db:"paid_at"`
	CapturedAmount   sql.NullInt64  `db:"captured_amount"`
	CapturedCurrency sql.NullString `db:"captured_currency"`

	DeliveredAt sql.NullTime   `db:"delivered_at"`
	DeliveredBy sql.NullString `db:"delivered_by"`

	Version   int64     `db:"version"`
	CreatedAt time.Time `db:"created_at"`
}

var orderColumns = []string{
	"id", "owner_id", "address", "city", "postal_code", "country", "payment_method",
	"currency", "items_total", "shipping_total", "tax_total", "grand_total",
	"status", "payment_tx_id", "paid_at", "captured_amount", "captured_currency",
	"delivered_at", "delivered_by", "version", "created_at",
}

type Item struct {
	OrderID   string `db:"order_id"`
	Position  int    `db:"position"`
	ProductID string `db:"product_id"`
	Name      string `db:"name"`
	UnitPrice int64  `db:"unit_price"`
	Quantity  int    `db:"quantity"`
	Subtotal  int64  `db:"subtotal"`
}

var itemColumns = []string{"order_id", "position", "product_id", "name", "unit_price", "quantity", "subtotal"}

type Product struct {
	ID        string `db:"id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Currency  string `db:"currency"`
	Available bool   `db:"available"`
}

// Item prices share the order currency.
func ItemToEntity(i Item, currency string) entities.LineItem {
	return entities.LineItem{
		ProductID: i.ProductID,
		Name:      i.Name,
		UnitPrice: entities.NewMoney(i.UnitPrice, currency),
		Quantity:  i.Quantity,
		Subtotal:  entities.NewMoney(i.Subtotal, currency),
	}
}

func OrderToEntity(o Order, items []Item) (entities.Order, error) {
	status, err := entities.ParseStatus(o.Status)
	if err != nil {
		return entities.Order{}, err
	}

	order := entities.Order{
		ID:      o.ID,
		OwnerID: o.OwnerID,
		ShippingAddress: entities.Address{
			Address:    o.Address,
			City:       o.City,
			PostalCode: o.PostalCode,
			Country:    o.Country,
		},
		PaymentMethod: o.PaymentMethod,
		Totals: entities.Totals{
			Items:    entities.NewMoney(o.ItemsTotal, o.Currency),
			Shipping: entities.NewMoney(o.ShippingTotal, o.Currency),
			Tax:      entities.NewMoney(o.TaxTotal, o.Currency),
			Grand:    entities.NewMoney(o.GrandTotal, o.Currency),
		},
		Status:    status,
		CreatedAt: o.CreatedAt.UTC(),
		Version:   o.Version,
	}

	if o.PaymentTxID.Valid {
		order.Payment = &entities.Payment{
			ProviderTransactionID: o.PaymentTxID.String,
			PaidAt:                o.PaidAt.Time.UTC(),
			CapturedAmount:        entities.NewMoney(o.CapturedAmount.Int64, o.CapturedCurrency.String),
		}
	}
	if o.DeliveredAt.Valid {
		order.Delivery = &entities.Delivery{
			DeliveredAt: o.DeliveredAt.Time.UTC(),
			DeliveredBy: o.DeliveredBy.String,
		}
	}

	if len(items) > 0 {
		order.Items = make([]entities.LineItem, 0, len(items))
		for _, it := range items {
			order.Items = append(order.Items, ItemToEntity(it, o.Currency))
		}
	}

	return order, order.Validate()
}

func ProductToEntity(p Product) entities.Product {
	return entities.Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     entities.NewMoney(p.Price, p.Currency),
		Available: p.Available,
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
