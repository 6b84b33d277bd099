package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

// ParseRules builds shipping and tax rules from their textual configuration.
// Amounts are in major units ("5.00"), the rate is a fraction ("0.10").
func ParseRules(currency, flat, freeOver, rate string, taxOnShipping bool) (ShippingRule, TaxRule, error) {
	flatFee, err := entities.ParseMoney(flat, currency)
	if err != nil {
		return ShippingRule{}, TaxRule{}, fmt.Errorf("shipping fee: %w", err)
	}

	threshold := entities.Zero(currency)
	if freeOver != "" {
		if threshold, err = entities.ParseMoney(freeOver, currency); err != nil {
			return ShippingRule{}, TaxRule{}, fmt.Errorf("free shipping threshold: %w", err)
		}
	}

	taxRate, err := decimal.NewFromString(rate)
	if err != nil {
		return ShippingRule{}, TaxRule{}, fmt.Errorf("tax rate: %w", err)
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return ShippingRule{}, TaxRule{}, fmt.Errorf("tax rate %s out of range [0, 1]", taxRate)
	}

	return ShippingRule{Flat: flatFee, FreeOver: threshold},
		TaxRule{Rate: taxRate, OnShipping: taxOnShipping},
		nil
}
