package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"
	"go.uber.org/zap"
)

const maxErrorBody = 4 << 10

// client performs signed JSON calls against one provider API.
type client struct {
	key        types.PaymentProvider
	cfg        config.ProviderConfig
	httpClient *http.Client
	logger     *zap.SugaredLogger
	metrics    *metrics.PaymentMetrics
	now        func() time.Time
}

func newClient(key types.PaymentProvider, cfg config.ProviderConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &client{
		key:        key,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("provider", string(key)),
		metrics:    m,
		now:        time.Now,
	}
}

// post sends payload to endpoint and decodes a 2xx answer into out.
// 4xx answers return *RequestError immediately; 5xx answers and transport
// failures are retried up to MaxRetries times, then return *TransientError.
func (c *client) post(ctx context.Context, endpoint, idempotencyKey string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	url := c.cfg.BaseURL + endpoint

	var lastErr error
	lastStatus := 0
	attempts := 0
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Infow("retrying provider request",
				"url", url,
				"attempt", attempt,
				"error", lastErr,
			)
			select {
			case <-ctx.Done():
				return &TransientError{Provider: string(c.key), StatusCode: lastStatus, Attempts: attempts, Err: ctx.Err()}
			case <-time.After(c.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
		attempts++

		req, err := c.newRequest(ctx, url, idempotencyKey, body)
		if err != nil {
			return err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.metrics.ObserveProviderRequest(string(c.key), 0, time.Since(start))
			lastErr = fmt.Errorf("request failed: %w", err)
			lastStatus = 0
			if ctx.Err() != nil {
				break
			}
			continue
		}
		c.metrics.ObserveProviderRequest(string(c.key), resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return &RequestError{
				Provider:   string(c.key),
				StatusCode: resp.StatusCode,
				Message:    errorMessage(respBody),
			}
		}
		if resp.StatusCode >= 500 {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %s", errorMessage(respBody))
			lastStatus = resp.StatusCode
			continue
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decode %s response failed: %w", c.key, err)
		}
		return nil
	}

	return &TransientError{Provider: string(c.key), StatusCode: lastStatus, Attempts: attempts, Err: lastErr}
}

func (c *client) newRequest(ctx context.Context, url, idempotencyKey string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	ts := strconv.FormatInt(c.now().Unix(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", signRequest(c.cfg.APISecret, ts, body))
	req.Header.Set("Idempotency-Key", idempotencyKey)
	if c.cfg.MerchantID != "" {
		req.Header.Set("X-Merchant-Id", c.cfg.MerchantID)
	}
	return req, nil
}

// errorMessage extracts a human readable message from a provider error body.
func errorMessage(body []byte) string {
	var parsed struct {
		Message          string `json:"message"`
		Error            any    `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			return parsed.Message
		case parsed.ErrorDescription != "":
			return parsed.ErrorDescription
		}
		if s, ok := parsed.Error.(string); ok && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response body"
	}
	return msg
}
