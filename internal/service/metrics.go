package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

const (
	captureApplied        = "applied"
	captureIdempotent     = "idempotent"
	captureAmountMismatch = "amount_mismatch"
	captureDuplicate      = "duplicate"
	captureNotFound       = "not_found"
	captureError          = "error"
)

var (
	captureOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront_orders",
		Subsystem: "payments",
		Name:      "captures_total",
		Help:      "Capture reconciliations by outcome.",
	}, []string{"outcome"})

	deliveriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront_orders",
		Subsystem: "fulfillment",
		Name:      "deliveries_total",
		Help:      "Orders marked as delivered.",
	})
)

func captureOutcome(err error) string {
	switch {
	case errors.Is(err, entities.ErrAmountMismatch):
		return captureAmountMismatch
	case errors.Is(err, entities.ErrDuplicatePaymentAttempt):
		return captureDuplicate
	case errors.Is(err, entities.ErrOrderNotFound):
		return captureNotFound
	default:
		return captureError
	}
}
