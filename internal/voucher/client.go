// Package voucher is the HTTP client for the gift-voucher redemption
// service. Redemption runs after a booking committed and never rolls one
// back.
package voucher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls the redemption REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a redemption client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type redeemBody struct {
	Code        string `json:"code"`
	BookingID   int64  `json:"booking_id"`
	AmountCents int64  `json:"amount_cents,omitempty"`
}

type redeemResponse struct {
	Redeemed bool   `json:"redeemed"`
	Error    string `json:"error,omitempty"`
}

// Redeem applies the voucher code against the booking.
func (c *Client) Redeem(ctx context.Context, code string, bookingID int64, amountCents int64) error {
	data, err := json.Marshal(redeemBody{Code: code, BookingID: bookingID, AmountCents: amountCents})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/v1/redemptions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(data)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %d", resp.StatusCode)
	}

	var out redeemResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if !out.Redeemed {
		return fmt.Errorf("redemption refused: %s", out.Error)
	}
	return nil
}
