package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.queue[0]
	r.queue = r.queue[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type applierMock struct {
	mock.Mock
}

func (m *applierMock) ApplyCapture(ctx context.Context, orderID string, capture entities.Capture) (entities.Order, error) {
	args := m.Called(ctx, orderID, capture)
	return args.Get(0).(entities.Order), args.Error(1)
}

const testOrderID = "0b9f6f4e-8a3c-4a3e-9d6b-2f1c7c1e5a10"

func captureMessage(offset int64, value string) kafka.Message {
	return kafka.Message{Topic: "payment-captures", Offset: offset, Key: []byte(testOrderID), Value: []byte(value)}
}

func newTestKafkaHandler(reader *fakeReader, dlq *fakeWriter, applier CaptureApplier) *kafkaHandler {
	h := newKafkaHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, dlq, applier)
	h.retry.InitialDelay = time.Millisecond
	h.retry.MaxDelay = time.Millisecond
	return h
}

func TestKafkaHandler_Consume(t *testing.T) {
	const valid = `{"order_id":"` + testOrderID + `","transaction_id":"TX-1","amount":{"amount":2700,"currency":"LKR"}}`
	capture := entities.Capture{TransactionID: "TX-1", Amount: entities.NewMoney(2700, "LKR")}

	testCases := []struct {
		name         string
		value        string
		mockBehavior func(m *applierMock)
		wantDLQ      bool
	}{
		{
			name:  "applied",
			value: valid,
			mockBehavior: func(m *applierMock) {
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{ID: testOrderID}, nil).Once()
			},
		},
		{
			name:    "malformed json",
			value:   `{"order_id":`,
			wantDLQ: true,
		},
		{
			name:    "invalid order id",
			value:   `{"order_id":"42","transaction_id":"TX-1","amount":{"amount":2700,"currency":"LKR"}}`,
			wantDLQ: true,
		},
		{
			name:  "amount mismatch",
			value: valid,
			mockBehavior: func(m *applierMock) {
				err := &entities.AmountMismatchError{OrderID: testOrderID}
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{}, err).Once()
			},
			wantDLQ: true,
		},
		{
			name:  "store recovers",
			value: valid,
			mockBehavior: func(m *applierMock) {
				err := fmt.Errorf("%w: %w", entities.ErrStoreUnavailable, context.DeadlineExceeded)
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{}, err).Twice()
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{ID: testOrderID}, nil).Once()
			},
		},
		{
			name:  "store down for several rounds",
			value: valid,
			mockBehavior: func(m *applierMock) {
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{}, entities.ErrStoreUnavailable).Times(2*storeRetry.MaxAttempts + 1)
				m.On("ApplyCapture", mock.Anything, testOrderID, capture).Return(entities.Order{ID: testOrderID}, nil).Once()
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			applier := new(applierMock)
			if tc.mockBehavior != nil {
				tc.mockBehavior(applier)
			}
			reader := &fakeReader{queue: []kafka.Message{captureMessage(7, tc.value)}}
			dlq := &fakeWriter{}

			newTestKafkaHandler(reader, dlq, applier).Consume(context.Background())

			require.Len(t, reader.committed, 1)
			assert.Equal(t, int64(7), reader.committed[0].Offset)
			if tc.wantDLQ {
				require.Len(t, dlq.written, 1)
				assert.Equal(t, "payment-captures-dlq", dlq.written[0].Topic)
				assert.Equal(t, tc.value, string(dlq.written[0].Value))
			} else {
				assert.Empty(t, dlq.written)
			}
			applier.AssertExpectations(t)
		})
	}
}

func TestKafkaHandler_Consume_DLQFailureLeavesMessageUncommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{captureMessage(1, `not json`)}}
	dlq := &fakeWriter{err: errors.New("broker down")}

	newTestKafkaHandler(reader, dlq, new(applierMock)).Consume(context.Background())

	assert.Empty(t, reader.committed)
}

func TestKafkaHandler_Consume_CancelledLeavesMessageUncommitted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	applier := new(applierMock)
	applier.On("ApplyCapture", mock.Anything, testOrderID, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(entities.Order{}, context.Canceled).Once()

	const valid = `{"order_id":"` + testOrderID + `","transaction_id":"TX-1","amount":{"amount":2700,"currency":"LKR"}}`
	reader := &fakeReader{queue: []kafka.Message{captureMessage(3, valid)}}
	dlq := &fakeWriter{}

	newTestKafkaHandler(reader, dlq, applier).Consume(ctx)

	assert.Empty(t, reader.committed)
	assert.Empty(t, dlq.written)
}

func TestKafkaHandler_Consume_StoreOutageUntilShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	applier := new(applierMock)
	applier.On("ApplyCapture", mock.Anything, testOrderID, mock.Anything).
		Run(func(mock.Arguments) {
			calls++
			if calls == 3*storeRetry.MaxAttempts {
				cancel()
			}
		}).
		Return(entities.Order{}, entities.ErrStoreUnavailable)

	const valid = `{"order_id":"` + testOrderID + `","transaction_id":"TX-1","amount":{"amount":2700,"currency":"LKR"}}`
	reader := &fakeReader{queue: []kafka.Message{captureMessage(5, valid)}}
	dlq := &fakeWriter{}

	newTestKafkaHandler(reader, dlq, applier).Consume(ctx)

	assert.Equal(t, 3*storeRetry.MaxAttempts, calls)
	assert.Empty(t, reader.committed)
	assert.Empty(t, dlq.written)
}
