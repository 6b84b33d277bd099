package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/SergeyBogomolovv/storefront-orders/internal/config"
	"github.com/SergeyBogomolovv/storefront-orders/internal/entities"
)

const (
	tokenPath         = "/v1/oauth2/token"
	ordersPath        = "/v2/checkout/orders"
	statusCompleted   = "COMPLETED"
	errorBodyLimit    = 1024
	tokenExpiryMargin = time.Minute
)

var ErrCaptureNotCompleted = errors.New("capture not completed")

// Client implements the order service payment gateway on top of the PayPal
// Orders v2 REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	logger     *slog.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

func NewClient(logger *slog.Logger, cfg config.PayPal) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		logger:     logger.With(slog.String("client", "paypal")),
		now:        time.Now,
	}
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	Amount      amount `json:"amount"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type captureResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
				Amount amount `json:"amount"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateIntent creates a PayPal order for the amount and returns its id.
func (c *Client) CreateIntent(ctx context.Context, orderID string, total entities.Money) (string, error) {
	body := createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: orderID,
			Amount:      toAmount(total),
		}},
	}

	var res orderResponse
	if err := c.do(ctx, http.MethodPost, ordersPath, "create-"+orderID, body, &res); err != nil {
		return "", fmt.Errorf("create paypal order: %w", err)
	}
	if res.ID == "" {
		return "", errors.New("create paypal order: empty id in response")
	}

	c.logger.DebugContext(ctx, "paypal order created", slog.String("order_id", orderID), slog.String("paypal_order_id", res.ID))
	return res.ID, nil
}

// CaptureResult captures the approved PayPal order and reports the capture.
// PayPal answers a repeated capture of the same order with the original
// capture, so retries never charge twice.
func (c *Client) CaptureResult(ctx context.Context, intentRef string) (entities.Capture, error) {
	path := fmt.Sprintf("%s/%s/capture", ordersPath, url.PathEscape(intentRef))

	var res captureResponse
	if err := c.do(ctx, http.MethodPost, path, "capture-"+intentRef, nil, &res); err != nil {
		return entities.Capture{}, fmt.Errorf("capture paypal order %s: %w", intentRef, err)
	}

	for _, pu := range res.PurchaseUnits {
		for _, capture := range pu.Payments.Captures {
			if capture.Status != statusCompleted {
				continue
			}
			money, err := entities.ParseMoney(capture.Amount.Value, capture.Amount.CurrencyCode)
			if err != nil {
				return entities.Capture{}, fmt.Errorf("capture paypal order %s: %w", intentRef, err)
			}
			return entities.Capture{TransactionID: capture.ID, Amount: money}, nil
		}
	}
	return entities.Capture{}, fmt.Errorf("paypal order %s (status %s): %w", intentRef, res.Status, ErrCaptureNotCompleted)
}

func toAmount(m entities.Money) amount {
	return amount{CurrencyCode: m.Currency, Value: m.Decimal().StringFixed(2)}
}

func (c *Client) do(ctx context.Context, method, path, requestID string, in, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("PayPal-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetToken()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// accessToken returns the cached OAuth token, fetching a new one when it is
// about to expire.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed: %w", statusError(resp))
	}

	var res struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if res.AccessToken == "" {
		return "", errors.New("token response has no access token")
	}

	c.token = res.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(res.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.token, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
