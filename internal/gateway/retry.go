package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/scalable-order-system/internal/service"
)

const (
	// maxAttempts bounds retries against a gateway: one call, one retry.
	maxAttempts = 2

	baseBackoff = 200 * time.Millisecond
)

// doJSON sends payload (or nothing, when nil) to url and decodes the JSON
// response into out. Transient failures - network errors and 5xx responses -
// are retried once with jittered backoff; 4xx responses are final and never
// retried. Every failure path wraps service.ErrUpstream so callers can map
// it without inspecting transport details.
func doJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal gateway request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt)*baseBackoff + rand.N(baseBackoff)
			log.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Str("url", url).
				Dur("backoff", backoff).
				Msg("retrying gateway call")
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %w", service.ErrUpstream, ctx.Err())
			case <-time.After(backoff):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("build gateway request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue // network error or timeout: retryable
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("gateway returned status %d", resp.StatusCode)
			continue // retryable
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("%w: gateway returned status %d", service.ErrUpstream, resp.StatusCode)
		}

		if out == nil {
			resp.Body.Close()
			return nil
		}
		decErr := json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if decErr != nil {
			return fmt.Errorf("%w: decode gateway response: %w", service.ErrUpstream, decErr)
		}
		return nil
	}

	return fmt.Errorf("%w: %d attempts exhausted: %w", service.ErrUpstream, maxAttempts, lastErr)
}
