// Package gateway delivers text messages through the WhatsApp HTTP API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultInstance is used when a campaign has no instance configured.
const DefaultInstance = "default"

// Client sends text messages through a gateway instance.
type Client struct {
	baseURL         string
	apiKey          string
	defaultInstance string
	httpClient      *http.Client
	logger          *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:         strings.TrimRight(baseURL, "/"),
		apiKey:          apiKey,
		defaultInstance: DefaultInstance,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "gateway"),
	}
}

// SetDefaultInstance overrides the instance used for campaigns that do
// not name one.
func (c *Client) SetDefaultInstance(instance string) {
	if instance != "" {
		c.defaultInstance = instance
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// SendText delivers one chunk of text to a phone number through the
// given instance. Any network error or non-2xx response is reported as
// false and logged, never returned as an error.
func (c *Client) SendText(ctx context.Context, instance, phone, text string) bool {
	if instance == "" {
		instance = c.defaultInstance
	}

	body, err := json.Marshal(sendTextRequest{Number: phone, Text: text})
	if err != nil {
		c.logger.Error("marshal send request failed", "error", err)
		return false
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.baseURL, instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error("build send request failed", "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("send request failed", "instance", instance, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("send returned non-2xx", "instance", instance, "status", resp.StatusCode)
		return false
	}

	return true
}
