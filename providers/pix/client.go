package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/javascriptando/vips.lat-sub001/providers"
)

// Client talks to the PIX settlement gateway over its JSON API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// ClientFromEnv builds the gateway client from PIX_GATEWAY_URL,
// PIX_GATEWAY_TOKEN and PIX_GATEWAY_TIMEOUT_SECONDS.
func ClientFromEnv() *Client {
	timeout := 15 * time.Second
	if raw := os.Getenv("PIX_GATEWAY_TIMEOUT_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}
	return NewClient(os.Getenv("PIX_GATEWAY_URL"), os.Getenv("PIX_GATEWAY_TOKEN"), timeout)
}

// Transfer submits a payout transfer. The gateway answers synchronously
// with either a settled transfer or one still processing.
func (c *Client) Transfer(ctx context.Context, req providers.TransferRequest) (*providers.TransferResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal transfer request: %w", err)
	}
	return c.call(ctx, http.MethodPost, "/v1/transfers", bytes.NewBuffer(body))
}

// GetTransfer fetches the current state of a transfer by the gateway's id.
func (c *Client) GetTransfer(ctx context.Context, id string) (*providers.TransferResult, error) {
	if id == "" {
		return nil, fmt.Errorf("transfer id is empty")
	}
	return c.call(ctx, http.MethodGet, "/v1/transfers/"+id, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader) (*providers.TransferResult, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	var payload struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if payload.Message != "" {
			return nil, fmt.Errorf("gateway refused transfer: %s (status %d)", payload.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("gateway refused transfer, status %d", resp.StatusCode)
	}

	status := providers.TransferStatus(strings.ToLower(payload.Status))
	if !status.Valid() {
		return nil, fmt.Errorf("gateway returned unknown transfer status %q", payload.Status)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("gateway returned no transfer id")
	}
	return &providers.TransferResult{ID: payload.ID, Status: status}, nil
}
