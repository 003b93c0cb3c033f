// Package payment is the HTTP client for the external payment gateway. It
// implements the lifecycle charge contracts: saved-method capture and hosted
// payment link creation. Single attempts, no automatic retry.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"velora/internal/lifecycle"
)

// Client calls the gateway's REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a gateway client with baseURL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type captureBody struct {
	BookingID   int64  `json:"booking_id"`
	Method      string `json:"method"`
	AmountCents int64  `json:"amount_cents"`
}

type captureResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Capture charges the saved method for the amount. The idempotency key
// makes accidental resubmits harmless on the gateway side.
func (c *Client) Capture(ctx context.Context, req lifecycle.CaptureRequest) error {
	endpoint := fmt.Sprintf("%s/v1/captures", c.baseURL)
	body := captureBody{BookingID: req.BookingID, Method: req.Method, AmountCents: req.AmountCents}

	var resp captureResponse
	if err := c.doPost(ctx, endpoint, req.IdempotencyKey, body, &resp); err != nil {
		return err
	}
	if resp.Status != "succeeded" {
		return fmt.Errorf("capture %s: %s", resp.Status, resp.Error)
	}
	return nil
}

type linkBody struct {
	Reference   string `json:"reference"`
	BookingID   int64  `json:"booking_id"`
	AmountCents int64  `json:"amount_cents"`
}

type linkResponse struct {
	URL string `json:"url"`
}

// CreateLink asks the gateway for a hosted payment page URL.
func (c *Client) CreateLink(ctx context.Context, req lifecycle.LinkRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/payment_links", c.baseURL)
	body := linkBody{Reference: req.Reference, BookingID: req.BookingID, AmountCents: req.AmountCents}

	var resp linkResponse
	if err := c.doPost(ctx, endpoint, req.Reference, body, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("gateway returned no link URL")
	}
	return resp.URL, nil
}

func (c *Client) doPost(ctx context.Context, endpoint, idempotencyKey string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
