package entities

import (
	"errors"
	"fmt"
)

var (
	// creation-time validation
	ErrInvalidLineItem = errors.New("invalid line item")
	ErrEmptyOrder      = errors.New("order has no items")
	ErrCatalogMismatch = errors.New("product missing from catalog")
	ErrProductNotFound = errors.New("product not found")

	// access control
	ErrOrderNotFound = errors.New("order not found")
	ErrForbidden     = errors.New("forbidden")

	// payment integrity
	ErrAmountMismatch          = errors.New("captured amount does not match order total")
	ErrDuplicatePaymentAttempt = errors.New("order already paid with a different transaction")
	ErrInvalidCapture          = errors.New("invalid capture")
	ErrAlreadyPaid             = errors.New("order already paid")
	ErrPaymentGateway          = errors.New("payment gateway failure")

	// fulfillment preconditions
	ErrNotPaid          = errors.New("order is not paid")
	ErrAlreadyDelivered = errors.New("order already delivered")

	ErrStoreUnavailable = errors.New("order store unavailable")

	// ErrVersionConflict is returned by the store when a compare-and-swap
	// update lost the race. The service retries and never surfaces it.
	ErrVersionConflict = errors.New("order version conflict")
)

type LineItemError struct {
	Index     int
	ProductID string
	Reason    string
	Kind      error
}

func (e *LineItemError) Error() string {
	return fmt.Sprintf("item %d (product %s): %s", e.Index, e.ProductID, e.Reason)
}

func (e *LineItemError) Unwrap() error {
	return e.Kind
}

type AmountMismatchError struct {
	OrderID  string
	Expected Money
	Actual   Money
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("order %s: captured %s, expected %s", e.OrderID, e.Actual, e.Expected)
}

func (e *AmountMismatchError) Unwrap() error {
	return ErrAmountMismatch
}

// DuplicatePaymentError is returned when an order already carries a different
// transaction, or when the incoming transaction already paid another order
// (StoredTxID is empty in that case).
type DuplicatePaymentError struct {
	OrderID      string
	StoredTxID   string
	IncomingTxID string
}

func (e *DuplicatePaymentError) Error() string {
	if e.StoredTxID == "" {
		return fmt.Sprintf("order %s: transaction %s already paid another order", e.OrderID, e.IncomingTxID)
	}
	return fmt.Sprintf("order %s: paid by transaction %s, got %s", e.OrderID, e.StoredTxID, e.IncomingTxID)
}

func (e *DuplicatePaymentError) Unwrap() error {
	return ErrDuplicatePaymentAttempt
}
