package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// Hammers PUT /pay on one order with a mix of the same and competing
// transactions. Exactly one transaction must win; the rest see 200 for the
// winner's id and 409 for everything else.
func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/orders/", "orders endpoint")
	orderID := flag.String("order", "", "id of a placed order")
	amount := flag.Int64("amount", 0, "order grand total in minor units")
	currency := flag.String("currency", "LKR", "order currency")
	flag.Parse()

	token := os.Getenv("TOKEN")
	if *orderID == "" || token == "" {
		fmt.Println("usage: TOKEN=<jwt> requester -order <id> -amount <minor units>")
		os.Exit(2)
	}

	url := *baseURL + *orderID + "/pay"
	for {
		var wg sync.WaitGroup
		for range rand.Intn(10) + 1 {
			wg.Go(func() {
				doRequest(url, token, transactionID(), *amount, *currency)
			})
		}
		wg.Wait()
		time.Sleep(20 * time.Millisecond)
	}
}

func transactionID() string {
	if rand.Intn(3) == 0 {
		return fmt.Sprintf("TX-%d", rand.Intn(1000))
	}
	return "TX-FIXED"
}

func doRequest(url, token, txID string, amount int64, currency string) {
	body := fmt.Sprintf(`{"transaction_id":%q,"amount":{"amount":%d,"currency":%q}}`, txID, amount, currency)
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	if err != nil {
		fmt.Println("request error:", err)
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("request error:", err)
		return
	}
	fmt.Println("PUT", url, txID, "->", resp.Status)
	resp.Body.Close()
}
