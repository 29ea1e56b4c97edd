package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/pesaflow/backend/internal/application/settlement"
)

// SalesWebhook notifies the upstream sales system that the sale behind a
// fully paid invoice can be closed. It implements settlement.SaleCompleter.
type SalesWebhook struct {
	url        string
	httpClient *http.Client
}

// NewSalesWebhook creates a sales webhook completer
func NewSalesWebhook(url string) *SalesWebhook {
	return &SalesWebhook{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CompleteSale posts the sale identifier to the configured endpoint
func (w *SalesWebhook) CompleteSale(ctx context.Context, saleID uuid.UUID) error {
	payload, err := json.Marshal(map[string]string{
		"sale_id": saleID.String(),
		"status":  "COMPLETED",
	})
	if err != nil {
		return fmt.Errorf("sales webhook: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sales webhook: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sales webhook: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sales webhook: returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Ensure SalesWebhook implements SaleCompleter
var _ settlement.SaleCompleter = (*SalesWebhook)(nil)
