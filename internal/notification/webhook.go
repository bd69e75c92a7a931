package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/honeynil/PaymentServiceBF/internal/models"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookPayload is the body posted to productInfo.webhookUrl.
type WebhookPayload struct {
	Event         models.EventType   `json:"event"`
	TransactionID string             `json:"transactionId"`
	ClientInfo    models.ClientInfo  `json:"clientInfo"`
	ProductInfo   models.ProductInfo `json:"productInfo"`
}

type WebhookClient struct {
	client *http.Client
}

func NewWebhookClient(timeout time.Duration) *WebhookClient {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookClient{client: &http.Client{Timeout: timeout}}
}

func (c *WebhookClient) Post(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
