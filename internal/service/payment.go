package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

// PaymentGateway is the payment provider. Calls are slow external I/O and are
// never made while an order transition is in progress.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, orderID string, amount entities.Money) (string, error)
	CaptureResult(ctx context.Context, intentRef string) (entities.Capture, error)
}

// ApplyCapture records a provider capture on the order. Redelivery of the
// same transaction returns the order unchanged; a different transaction on a
// paid order, or an amount other than the grand total, is rejected and
// leaves the order as it was.
func (s *orderService) ApplyCapture(ctx context.Context, orderID string, capture entities.Capture) (entities.Order, error) {
	if capture.TransactionID == "" {
		return entities.Order{}, fmt.Errorf("%w: empty transaction id", entities.ErrInvalidCapture)
	}

	logger := s.logger.With(
		slog.String("order_id", orderID),
		slog.String("transaction_id", capture.TransactionID),
	)

	outcome := captureApplied
	order, err := s.transition(ctx, orderID, func(o *entities.Order) (bool, error) {
		if o.IsPaid() {
			if o.Payment.ProviderTransactionID == capture.TransactionID {
				outcome = captureIdempotent
				return false, nil
			}
			return false, &entities.DuplicatePaymentError{
				OrderID:      o.ID,
				StoredTxID:   o.Payment.ProviderTransactionID,
				IncomingTxID: capture.TransactionID,
			}
		}

		if !capture.Amount.Equal(o.Totals.Grand) {
			return false, &entities.AmountMismatchError{
				OrderID:  o.ID,
				Expected: o.Totals.Grand,
				Actual:   capture.Amount,
			}
		}

		outcome = captureApplied
		o.Status = entities.StatusPaid
		o.Payment = &entities.Payment{
			ProviderTransactionID: capture.TransactionID,
			PaidAt:                s.timestamp(),
			CapturedAmount:        capture.Amount,
		}
		return true, nil
	})
	if err != nil {
		captureOutcomes.WithLabelValues(captureOutcome(err)).Inc()
		logCaptureFailure(logger, err)
		return entities.Order{}, err
	}

	captureOutcomes.WithLabelValues(outcome).Inc()
	if outcome == captureIdempotent {
		logger.Debug("capture already applied")
	} else {
		logger.Info("order paid", slog.String("amount", capture.Amount.String()))
	}
	return order, nil
}

// ConfirmPayment applies a capture reported by the order's owner (or an admin)
// after the client completed checkout with the provider.
func (s *orderService) ConfirmPayment(ctx context.Context, who entities.Identity, orderID string, capture entities.Capture) (entities.Order, error) {
	if _, err := s.GetOrder(ctx, who, orderID); err != nil {
		return entities.Order{}, err
	}
	return s.ApplyCapture(ctx, orderID, capture)
}

// CreatePaymentIntent opens a provider checkout for the order's grand total.
func (s *orderService) CreatePaymentIntent(ctx context.Context, who entities.Identity, orderID string) (string, error) {
	order, err := s.GetOrder(ctx, who, orderID)
	if err != nil {
		return "", err
	}
	if order.IsPaid() {
		return "", fmt.Errorf("order %s: %w", orderID, entities.ErrAlreadyPaid)
	}

	ref, err := s.gateway.CreateIntent(ctx, order.ID, order.Totals.Grand)
	if err != nil {
		return "", fmt.Errorf("%w: create intent for order %s: %w", entities.ErrPaymentGateway, orderID, err)
	}
	return ref, nil
}

// CapturePayment asks the provider to capture intentRef and applies the result.
// The provider call happens before the order transition, outside of it.
func (s *orderService) CapturePayment(ctx context.Context, who entities.Identity, orderID, intentRef string) (entities.Order, error) {
	order, err := s.GetOrder(ctx, who, orderID)
	if err != nil {
		return entities.Order{}, err
	}
	if order.IsPaid() {
		// Capturing again would charge the buyer twice.
		return order, nil
	}

	capture, err := s.gateway.CaptureResult(ctx, intentRef)
	if err != nil {
		return entities.Order{}, fmt.Errorf("%w: capture intent %s for order %s: %w", entities.ErrPaymentGateway, intentRef, orderID, err)
	}
	return s.ApplyCapture(ctx, orderID, capture)
}

func logCaptureFailure(logger *slog.Logger, err error) {
	var (
		mismatch  *entities.AmountMismatchError
		duplicate *entities.DuplicatePaymentError
	)
	switch {
	case errors.As(err, &mismatch):
		logger.Warn("capture amount mismatch",
			slog.String("expected", mismatch.Expected.String()),
			slog.String("actual", mismatch.Actual.String()),
		)
	case errors.As(err, &duplicate):
		logger.Warn("duplicate payment attempt",
			slog.String("stored_transaction_id", duplicate.StoredTxID),
		)
	case errors.Is(err, entities.ErrOrderNotFound):
		logger.Info("capture for unknown order")
	default:
		logger.Error("failed to apply capture", slog.Any("error", err))
	}
}
