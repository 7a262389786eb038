package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"timecompliance.service/internal/ports/messaging"
)

// Client contract for the external notification dispatcher, which handles
// the actual escalation channels (push, in-app, certified messages).
type Client interface {
	DispatchViolation(ctx context.Context, event messaging.ViolationAlertEvent) error
}

// HTTPClient dispatcher client using HTTP
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

// NewHTTPClient new HTTPClient
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: baseURL,
	}
}

// DispatchViolation sends one violation alert to the dispatcher.
func (c *HTTPClient) DispatchViolation(ctx context.Context, event messaging.ViolationAlertEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatcher payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call dispatcher: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("dispatcher returned non-successful status code: %d", resp.StatusCode)
	}
	return nil
}
