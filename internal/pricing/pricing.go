// Package pricing computes order totals. Everything here is a pure function
// of its inputs: the same items and rules always produce the same totals.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

// ShippingRule charges a flat fee, waived once the items total reaches
// FreeOver. A zero FreeOver disables the waiver.
type ShippingRule struct {
	Flat     entities.Money
	FreeOver entities.Money
}

// TaxRule applies Rate (0.10 for 10%) to the items total, and to shipping
// when OnShipping is set.
type TaxRule struct {
	Rate       decimal.Decimal
	OnShipping bool
}

// Item is the pricing input: a quantity of a product whose unit price was
// snapshotted from the catalog.
type Item struct {
	ProductID string
	Name      string
	UnitPrice entities.Money
	Quantity  int
}

type Quote struct {
	Items  []entities.LineItem
	Totals entities.Totals
}

// ComputeTotals prices the items. Each line is rounded to the minor unit
// before summation; tax is rounded half up once, on the taxable base.
func ComputeTotals(items []Item, shipping ShippingRule, tax TaxRule) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, entities.ErrEmptyOrder
	}
	if tax.Rate.IsNegative() {
		return Quote{}, fmt.Errorf("negative tax rate %s", tax.Rate)
	}

	currency := shipping.Flat.Currency
	lines := make([]entities.LineItem, 0, len(items))
	itemsTotal := entities.Zero(currency)

	for i, it := range items {
		if it.Quantity <= 0 {
			return Quote{}, lineErr(i, it, fmt.Sprintf("quantity must be positive, got %d", it.Quantity))
		}
		if it.UnitPrice.Amount < 0 {
			return Quote{}, lineErr(i, it, "negative unit price")
		}
		if it.UnitPrice.Currency != currency {
			return Quote{}, lineErr(i, it, fmt.Sprintf("priced in %s, order currency is %s", it.UnitPrice.Currency, currency))
		}

		subtotal, err := it.UnitPrice.Mul(int64(it.Quantity))
		if err != nil {
			return Quote{}, lineErr(i, it, err.Error())
		}
		itemsTotal, err = itemsTotal.Add(subtotal)
		if err != nil {
			return Quote{}, lineErr(i, it, err.Error())
		}

		lines = append(lines, entities.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
		})
	}

	shippingTotal := shipping.Flat
	if !shipping.FreeOver.IsZero() && itemsTotal.GreaterOrEqual(shipping.FreeOver) {
		shippingTotal = entities.Zero(currency)
	}

	taxBase := itemsTotal
	if tax.OnShipping {
		var err error
		if taxBase, err = taxBase.Add(shippingTotal); err != nil {
			return Quote{}, err
		}
	}
	taxTotal := taxBase.MulRate(tax.Rate)

	grand, err := itemsTotal.Add(shippingTotal)
	if err != nil {
		return Quote{}, err
	}
	if grand, err = grand.Add(taxTotal); err != nil {
		return Quote{}, err
	}

	return Quote{
		Items: lines,
		Totals: entities.Totals{
			Items:    itemsTotal,
			Shipping: shippingTotal,
			Tax:      taxTotal,
			Grand:    grand,
		},
	}, nil
}

func lineErr(i int, it Item, reason string) error {
	return &entities.LineItemError{
		Index:     i,
		ProductID: it.ProductID,
		Reason:    reason,
		Kind:      entities.ErrInvalidLineItem,
	}
}
