package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
)

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type CaptureEvent struct {
	OrderID       string `json:"order_id"`
	TransactionID string `json:"transaction_id"`
	Amount        Money  `json:"amount"`
}

func randomString(n int) string {
	letters := []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

// nextEvent mostly redelivers the same capture, sometimes sends a competing
// transaction or a wrong amount, so every reconciliation outcome shows up.
func nextEvent(orderID, txID string, amount Money) CaptureEvent {
	event := CaptureEvent{OrderID: orderID, TransactionID: txID, Amount: amount}
	switch rand.Intn(10) {
	case 0:
		event.TransactionID = randomString(17)
	case 1:
		event.Amount.Amount += int64(rand.Intn(100) + 1)
	}
	return event
}

func main() {
	brokers := flag.String("brokers", "localhost:9092", "kafka broker address")
	topic := flag.String("topic", "payment-captures", "capture topic")
	orderID := flag.String("order", "", "id of a placed order")
	amount := flag.Int64("amount", 0, "order grand total in minor units")
	currency := flag.String("currency", "LKR", "order currency")
	every := flag.Duration("every", 500*time.Millisecond, "publish interval")
	flag.Parse()

	if *orderID == "" {
		log.Fatal("-order is required")
	}

	writer := &kafka.Writer{
		Addr:  kafka.TCP(*brokers),
		Topic: *topic,
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	txID := randomString(17)
	total := Money{Amount: *amount, Currency: *currency}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			event := nextEvent(*orderID, txID, total)
			data, _ := json.Marshal(event)
			err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.OrderID), Value: data})
			if err != nil {
				log.Println("failed to publish:", err)
				continue
			}
			log.Printf("capture published tx=%s amount=%d", event.TransactionID, event.Amount.Amount)
		case <-ctx.Done():
			return
		}
	}
}
