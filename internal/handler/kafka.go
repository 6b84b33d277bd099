package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"

	"github.com/SergeyBogomolovv/storefront-orders/internal/config"
	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
	"github.com/SergeyBogomolovv/storefront-orders/pkg/utils"
)

type CaptureApplier interface {
	ApplyCapture(ctx context.Context, orderID string, capture entities.Capture) (entities.Order, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// storeRetry is one round of backoff against a database outage. Rounds repeat
// until the store is back or the consumer stops; business rejections are
// never retried, they go to the DLQ right away.
var storeRetry = utils.RetryConfig{
	MaxAttempts:  5,
	InitialDelay: 100 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2,
	RetryIf: func(err error) bool {
		return errors.Is(err, entities.ErrStoreUnavailable)
	},
}

type kafkaHandler struct {
	dlq      messageWriter
	reader   messageReader
	logger   *slog.Logger
	validate *validator.Validate
	applier  CaptureApplier
	retry    utils.RetryConfig
}

func NewKafkaHandler(logger *slog.Logger, cfg config.Kafka, applier CaptureApplier) *kafkaHandler {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.CaptureTopic,
		MaxWait: cfg.ReaderMaxWait,
	})
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: cfg.BatchTimeout,
	}
	return newKafkaHandler(logger, reader, dlq, applier)
}

func newKafkaHandler(logger *slog.Logger, reader messageReader, dlq messageWriter, applier CaptureApplier) *kafkaHandler {
	return &kafkaHandler{
		logger:   logger.With(slog.String("handler", "kafka")),
		reader:   reader,
		dlq:      dlq,
		validate: validator.New(),
		applier:  applier,
		retry:    storeRetry,
	}
}

// Consume reads capture events until ctx is cancelled. Every message is
// committed once it is either applied or parked in the DLQ; a capture
// interrupted by shutdown stays uncommitted.
func (h *kafkaHandler) Consume(ctx context.Context) {
	for {
		m, err := h.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			h.logger.Error("failed to fetch message", slog.Any("error", err))
			continue
		}

		h.process(ctx, m)
	}
}

func (h *kafkaHandler) process(ctx context.Context, m kafka.Message) {
	capturesInProgress.Inc()
	defer capturesInProgress.Dec()
	start := time.Now()

	if err := h.handleCapture(ctx, m); err != nil {
		if ctx.Err() != nil {
			// Left uncommitted, the message is redelivered after restart.
			return
		}
		capturesFailed.Inc()
		h.logger.Error("failed to handle capture",
			slog.Any("error", err),
			slog.Int("partition", m.Partition),
			slog.Int64("offset", m.Offset),
		)

		if err := h.WriteToDLQ(ctx, m); err != nil {
			h.logger.Error("failed to write message to DLQ", slog.Any("error", err))
			return
		}
		capturesDLQ.Inc()
	} else {
		capturesProcessed.Inc()
	}
	captureProcessingDuration.Observe(time.Since(start).Seconds())

	if err := h.reader.CommitMessages(ctx, m); err != nil {
		commitErrors.Inc()
		h.logger.Error("failed to commit message", slog.Any("error", err))
	}
}

func (h *kafkaHandler) handleCapture(ctx context.Context, m kafka.Message) error {
	var event CaptureEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal capture: %w", err)
	}

	if err := h.validate.Struct(event); err != nil {
		return fmt.Errorf("invalid capture data: %w", err)
	}

	capture := entities.Capture{
		TransactionID: event.TransactionID,
		Amount:        MoneyJSONToEntity(event.Amount),
	}
	return h.applyCapture(ctx, event.OrderID, capture)
}

// applyCapture blocks while the order store is unavailable. A payment
// confirmation is never parked in the DLQ because of an outage.
func (h *kafkaHandler) applyCapture(ctx context.Context, orderID string, capture entities.Capture) error {
	for {
		err := utils.Retry(ctx, h.retry, func() error {
			_, err := h.applier.ApplyCapture(ctx, orderID, capture)
			return err
		})
		if !errors.Is(err, entities.ErrStoreUnavailable) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		storeOutageRetries.Inc()
		h.logger.Warn("order store unavailable, still retrying capture",
			slog.String("order_id", orderID),
			slog.String("transaction_id", capture.TransactionID),
			slog.Any("error", err),
		)
	}
}

func (h *kafkaHandler) WriteToDLQ(ctx context.Context, m kafka.Message) error {
	dead := kafka.Message{
		Topic:   fmt.Sprintf("%s-dlq", m.Topic),
		Key:     m.Key,
		Value:   m.Value,
		Headers: m.Headers,
	}
	return h.dlq.WriteMessages(ctx, dead)
}

func (h *kafkaHandler) Close() error {
	return errors.Join(h.reader.Close(), h.dlq.Close())
}
