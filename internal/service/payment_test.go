package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/internal/service"
)

func TestOrderService_ApplyCapture(t *testing.T) {
	testCases := []struct {
		name       string
		prepare    func(t *testing.T, f fixture, orderID string)
		capture    entities.Capture
		wantErr    error
		wantStatus entities.Status
		wantTx     string
	}{
		{
			name:       "matching amount pays the order",
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)},
			wantStatus: entities.StatusPaid,
			wantTx:     "tx-a",
		},
		{
			name:       "amount one minor unit short",
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2699)},
			wantErr:    entities.ErrAmountMismatch,
			wantStatus: entities.StatusPlaced,
		},
		{
			name:       "currency differs",
			capture:    entities.Capture{TransactionID: "tx-a", Amount: entities.NewMoney(2700, "USD")},
			wantErr:    entities.ErrAmountMismatch,
			wantStatus: entities.StatusPlaced,
		},
		{
			name:       "empty transaction id",
			capture:    entities.Capture{Amount: lkr(2700)},
			wantErr:    entities.ErrInvalidCapture,
			wantStatus: entities.StatusPlaced,
		},
		{
			name: "different transaction on paid order",
			prepare: func(t *testing.T, f fixture, orderID string) {
				_, err := f.svc.ApplyCapture(context.Background(), orderID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
				require.NoError(t, err)
			},
			capture:    entities.Capture{TransactionID: "tx-b", Amount: lkr(2700)},
			wantErr:    entities.ErrDuplicatePaymentAttempt,
			wantStatus: entities.StatusPaid,
			wantTx:     "tx-a",
		},
		{
			name: "same transaction on delivered order",
			prepare: func(t *testing.T, f fixture, orderID string) {
				_, err := f.svc.ApplyCapture(context.Background(), orderID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
				require.NoError(t, err)
				_, err = f.svc.MarkDelivered(context.Background(), admin, orderID)
				require.NoError(t, err)
			},
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)},
			wantStatus: entities.StatusDelivered,
			wantTx:     "tx-a",
		},
		{
			name: "transaction already paid another order",
			prepare: func(t *testing.T, f fixture, _ string) {
				other := f.placeOrder(t, bob)
				_, err := f.svc.ApplyCapture(context.Background(), other.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
				require.NoError(t, err)
			},
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)},
			wantErr:    entities.ErrDuplicatePaymentAttempt,
			wantStatus: entities.StatusPlaced,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.placeOrder(t, alice)
			if tc.prepare != nil {
				tc.prepare(t, f, order.ID)
			}

			_, err := f.svc.ApplyCapture(context.Background(), order.ID, tc.capture)

			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}

			stored := f.store.get(order.ID)
			assert.Equal(t, tc.wantStatus, stored.Status)
			assert.NoError(t, stored.Validate())
			if tc.wantTx == "" {
				assert.Nil(t, stored.Payment)
				return
			}
			require.NotNil(t, stored.Payment)
			assert.Equal(t, tc.wantTx, stored.Payment.ProviderTransactionID)
			assert.Equal(t, lkr(2700), stored.Payment.CapturedAmount)
		})
	}
}

func TestOrderService_ApplyCapture_Idempotent(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)
	capture := entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)}

	first, err := f.svc.ApplyCapture(context.Background(), order.ID, capture)
	require.NoError(t, err)

	second, err := f.svc.ApplyCapture(context.Background(), order.ID, capture)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, fixedNow, second.Payment.PaidAt)
	assert.Equal(t, 1, f.store.updateCount())
}

func TestOrderService_TimestampsSurviveStoreRoundTrip(t *testing.T) {
	clock := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	f := newFixture(t, service.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	order := f.placeOrder(t, alice)
	assert.Equal(t, f.store.get(order.ID), order)

	capture := entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)}
	first, err := f.svc.ApplyCapture(ctx, order.ID, capture)
	require.NoError(t, err)
	second, err := f.svc.ApplyCapture(ctx, order.ID, capture)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, f.store.get(order.ID), first)
	assert.Equal(t, clock.Truncate(time.Microsecond), first.Payment.PaidAt)

	delivered, err := f.svc.MarkDelivered(ctx, admin, order.ID)
	require.NoError(t, err)
	assert.Equal(t, f.store.get(order.ID), delivered)
}

func TestOrderService_ApplyCapture_ErrorContext(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	_, err := f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2699)})
	var mismatch *entities.AmountMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, order.ID, mismatch.OrderID)
	assert.Equal(t, lkr(2700), mismatch.Expected)
	assert.Equal(t, lkr(2699), mismatch.Actual)

	_, err = f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
	require.NoError(t, err)

	_, err = f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-b", Amount: lkr(2700)})
	var duplicate *entities.DuplicatePaymentError
	require.ErrorAs(t, err, &duplicate)
	assert.Equal(t, "tx-a", duplicate.StoredTxID)
	assert.Equal(t, "tx-b", duplicate.IncomingTxID)
}

func TestOrderService_ApplyCapture_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyCapture(context.Background(), "6f1c1a52-5d3e-4a41-8a70-0c6c1fb4a9aa", entities.Capture{TransactionID: "tx-a", Amount: lkr(1)})
	assert.ErrorIs(t, err, entities.ErrOrderNotFound)
}

func TestOrderService_ApplyCapture_StoreTimeoutLeavesOrderPlaced(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	f.store.block = true
	_, err := f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
	assert.ErrorIs(t, err, entities.ErrStoreUnavailable)

	f.store.block = false
	assert.Equal(t, entities.StatusPlaced, f.store.get(order.ID).Status)
}

func TestOrderService_ApplyCapture_CancelledBeforeCommit(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.store.failWith = context.Canceled

	_, err := f.svc.ApplyCapture(ctx, order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
	assert.ErrorIs(t, err, context.Canceled)

	f.store.failWith = nil
	assert.Equal(t, entities.StatusPlaced, f.store.get(order.ID).Status)
}

func TestOrderService_ApplyCapture_Concurrent(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)
	capture := entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)}

	const n = 32
	results := make([]entities.Order, n)

	var g errgroup.Group
	for i := range n {
		g.Go(func() error {
			res, err := f.svc.ApplyCapture(context.Background(), order.ID, capture)
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, f.store.updateCount())
	for _, res := range results {
		assert.Equal(t, results[0], res)
	}
	assert.Equal(t, entities.StatusPaid, results[0].Status)
	assert.Equal(t, "tx-a", results[0].Payment.ProviderTransactionID)
}

func TestOrderService_ApplyCapture_ConcurrentConflictingTransactions(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	txs := []string{"tx-a", "tx-b", "tx-c", "tx-d"}
	errs := make([]error, len(txs))

	var g errgroup.Group
	for i, tx := range txs {
		g.Go(func() error {
			_, errs[i] = f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: tx, Amount: lkr(2700)})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, entities.ErrDuplicatePaymentAttempt)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.store.updateCount())
}

func TestOrderService_ConfirmPayment(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)
	capture := entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)}

	_, err := f.svc.ConfirmPayment(context.Background(), bob, order.ID, capture)
	assert.ErrorIs(t, err, entities.ErrForbidden)
	assert.Equal(t, entities.StatusPlaced, f.store.get(order.ID).Status)

	paid, err := f.svc.ConfirmPayment(context.Background(), alice, order.ID, capture)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPaid, paid.Status)

	got, err := f.svc.GetOrder(context.Background(), alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paid, got, "cache reflects the transition")
}

func TestOrderService_CreatePaymentIntent(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	f.gateway.On("CreateIntent", mock.Anything, order.ID, lkr(2700)).Return("intent-1", nil).Once()

	ref, err := f.svc.CreatePaymentIntent(context.Background(), alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "intent-1", ref)

	_, err = f.svc.CreatePaymentIntent(context.Background(), bob, order.ID)
	assert.ErrorIs(t, err, entities.ErrForbidden)

	_, err = f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
	require.NoError(t, err)

	_, err = f.svc.CreatePaymentIntent(context.Background(), alice, order.ID)
	assert.ErrorIs(t, err, entities.ErrAlreadyPaid)
}

func TestOrderService_CreatePaymentIntent_GatewayFailure(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	f.gateway.On("CreateIntent", mock.Anything, order.ID, lkr(2700)).Return("", errors.New("503 from provider")).Once()

	_, err := f.svc.CreatePaymentIntent(context.Background(), alice, order.ID)
	assert.ErrorIs(t, err, entities.ErrPaymentGateway)
}

func TestOrderService_CapturePayment(t *testing.T) {
	testCases := []struct {
		name       string
		capture    entities.Capture
		captureErr error
		wantErr    error
		wantStatus entities.Status
	}{
		{
			name:       "OK",
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)},
			wantStatus: entities.StatusPaid,
		},
		{
			name:       "provider captured a different amount",
			capture:    entities.Capture{TransactionID: "tx-a", Amount: lkr(2000)},
			wantErr:    entities.ErrAmountMismatch,
			wantStatus: entities.StatusPlaced,
		},
		{
			name:       "provider failure",
			capture:    entities.Capture{},
			captureErr: errors.New("timeout"),
			wantErr:    entities.ErrPaymentGateway,
			wantStatus: entities.StatusPlaced,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			order := f.placeOrder(t, alice)
			f.gateway.On("CaptureResult", mock.Anything, "intent-1").Return(tc.capture, tc.captureErr).Once()

			_, err := f.svc.CapturePayment(context.Background(), alice, order.ID, "intent-1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantStatus, f.store.get(order.ID).Status)
		})
	}
}

func TestOrderService_CapturePayment_AlreadyPaidSkipsProvider(t *testing.T) {
	f := newFixture(t)
	order := f.placeOrder(t, alice)

	_, err := f.svc.ApplyCapture(context.Background(), order.ID, entities.Capture{TransactionID: "tx-a", Amount: lkr(2700)})
	require.NoError(t, err)

	got, err := f.svc.CapturePayment(context.Background(), alice, order.ID, "intent-1")
	require.NoError(t, err)
	assert.Equal(t, entities.StatusPaid, got.Status)
	f.gateway.AssertNotCalled(t, "CaptureResult", mock.Anything, mock.Anything)
}
