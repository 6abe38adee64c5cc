package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ivmarchuk/filmstore/internal/checkout/domain"
	"github.com/ivmarchuk/filmstore/internal/checkout/ports"
)

const defaultBaseURL = "https://api.stripe.com"

// Client talks to the Stripe REST API. Every call is bounded by the
// configured timeout; transport errors and non-2xx responses surface as
// *domain.GatewayError so callers can roll back cleanly.
type Client struct {
	httpClient *http.Client
	secretKey  string
	baseURL    string
}

// Option customizes the client.
type Option func(*Client)

// WithBaseURL points the client at a different API host, used by tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func NewClient(secretKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// CreateIntent opens a payment intent for the amount in the given currency.
// Stripe expects amounts in the smallest currency unit.
func (c *Client) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*ports.PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amount.Mul(decimal.NewFromInt(100)).IntPart(), 10))
	form.Set("currency", currency)
	form.Add("payment_method_types[]", "card")

	var resp intentResponse
	if err := c.post(ctx, "/v1/payment_intents", form, &resp); err != nil {
		return nil, &domain.GatewayError{Op: "create intent", Err: err}
	}

	return &ports.PaymentIntent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
	}, nil
}

// CreateRefund refunds the charge behind a payment intent.
func (c *Client) CreateRefund(ctx context.Context, intentID string) (*ports.RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", intentID)

	var resp refundResponse
	if err := c.post(ctx, "/v1/refunds", form, &resp); err != nil {
		return nil, &domain.GatewayError{Op: "refund", Err: err}
	}

	return &ports.RefundResult{
		ID:     resp.ID,
		Status: resp.Status,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	// Stripe dedupes retried POSTs on this key.
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s: %s", resp.Status, apiErr.Error.Message)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
