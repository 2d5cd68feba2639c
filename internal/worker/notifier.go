package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/model"
)

// WebhookNotifier delivers order confirmations by POSTing them to the
// notification channel's webhook. With no URL configured it degrades to a
// log line, which keeps local environments working without the channel.
type WebhookNotifier struct {
	client *http.Client
	url    string
}

// NewWebhookNotifier creates a notifier for the given webhook URL.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
		url:    url,
	}
}

type orderConfirmation struct {
	Event      string `json:"event"`
	UserID     int64  `json:"user_id"`
	OrderID    string `json:"order_id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
}

// SendOrderConfirmation posts the confirmation payload. Runs on the detached
// executor; errors returned here are logged there and never reach the order
// flow.
func (n *WebhookNotifier) SendOrderConfirmation(ctx context.Context, userID int64, order *model.Order) error {
	if n.url == "" {
		log.Info().
			Int64("user_id", userID).
			Str("order_id", order.ID).
			Msg("order confirmation (no webhook configured)")
		return nil
	}

	payload, err := json.Marshal(orderConfirmation{
		Event:      "order.created",
		UserID:     userID,
		OrderID:    order.ID,
		TotalPrice: order.TotalPrice,
		Status:     string(order.Status),
	})
	if err != nil {
		return fmt.Errorf("marshal confirmation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build confirmation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("confirmation webhook returned status %d", resp.StatusCode)
	}
	return nil
}
