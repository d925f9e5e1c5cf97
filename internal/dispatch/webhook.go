package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mediahub/library-notifier/internal/ratelimiter"
)

// itemTypeHeader lets destinations route on the item kind without parsing
// the body.
const itemTypeHeader = "X-Item-Type"

// WebhookDispatcher POSTs the payload as JSON to each destination URL in
// turn. Destinations are independent: one failing endpoint never blocks
// delivery to the rest, and the combined error is returned for logging only.
type WebhookDispatcher struct {
	destinations []string
	client       *http.Client
	limiters     *ratelimiter.DestinationLimiters
	logger       *zap.Logger
}

func NewWebhookDispatcher(
	destinations []string,
	timeout time.Duration,
	limiters *ratelimiter.DestinationLimiters,
	logger *zap.Logger,
) *WebhookDispatcher {
	return &WebhookDispatcher{
		destinations: destinations,
		client:       &http.Client{Timeout: timeout},
		limiters:     limiters,
		logger:       logger,
	}
}

// SendItemAddedNotification delivers data to every destination sequentially,
// waiting on the per-destination rate limiter before each POST. Any 2xx
// response counts as delivered.
func (d *WebhookDispatcher) SendItemAddedNotification(ctx context.Context, data map[string]any, itemType string) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	var errs []error
	for _, url := range d.destinations {
		if err := d.limiters.Wait(ctx, url); err != nil {
			// ctx cancelled while waiting — shutdown in progress.
			errs = append(errs, err)
			break
		}
		if err := d.post(ctx, url, body, itemType); err != nil {
			d.logger.Warn("webhook delivery failed",
				zap.String("destination", url),
				zap.String("item_type", itemType),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", url, err))
			continue
		}
		d.logger.Debug("webhook delivered",
			zap.String("destination", url),
			zap.String("item_type", itemType),
		)
	}
	return errors.Join(errs...)
}

func (d *WebhookDispatcher) post(ctx context.Context, url string, body []byte, itemType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(itemTypeHeader, itemType)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected destination status: %d", resp.StatusCode)
	}
	return nil
}

// compile-time check that WebhookDispatcher implements Dispatcher
var _ Dispatcher = (*WebhookDispatcher)(nil)
