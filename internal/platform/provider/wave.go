package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"
	"go.uber.org/zap"
)

const waveCheckoutPath = "/v1/checkout/sessions"

type Wave struct {
	base
}

func NewWave(cfg config.ProviderConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *Wave {
	return &Wave{base: newBase(types.PaymentProviderWave, cfg, logger, m)}
}

type waveCheckoutRequest struct {
	Amount          string         `json:"amount"`
	Currency        string         `json:"currency"`
	ClientReference string         `json:"client_reference"`
	Customer        Customer       `json:"customer"`
	SuccessURL      string         `json:"success_url,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type waveCheckoutResponse struct {
	ID            string `json:"id"`
	WaveLaunchURL string `json:"wave_launch_url"`
	WhenExpires   string `json:"when_expires"`
}

func (w *Wave) InitiatePayment(ctx context.Context, req *InitiationRequest) (*InitiationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload := waveCheckoutRequest{
		Amount:          strconv.FormatInt(req.Amount, 10),
		Currency:        req.Currency,
		ClientReference: req.OrderID,
		Customer:        req.Customer,
		SuccessURL:      w.cfg.CallbackURL,
		Metadata:        req.Metadata,
	}
	var out waveCheckoutResponse
	if err := w.client.post(ctx, waveCheckoutPath, w.idempotencyKey(req), payload, &out); err != nil {
		return nil, err
	}
	if out.ID == "" || out.WaveLaunchURL == "" {
		return nil, fmt.Errorf("wave: incomplete checkout session response")
	}
	return &InitiationResponse{
		ProviderPaymentID: out.ID,
		CheckoutURL:       out.WaveLaunchURL,
		ExpiresAt:         parseOptionalTime(out.WhenExpires),
	}, nil
}

func (w *Wave) MapStatus(providerStatus string) types.PaymentStatus {
	switch normalizeStatus(providerStatus) {
	case "SUCCESS", "SUCCEEDED", "COMPLETE", "COMPLETED":
		return types.PaymentStatusCompleted
	case "PENDING", "OPEN":
		return types.PaymentStatusPending
	case "PROCESSING":
		return types.PaymentStatusProcessing
	case "CANCELLED", "CANCELED":
		return types.PaymentStatusCancelled
	default:
		return types.PaymentStatusFailed
	}
}

type waveWebhook struct {
	Type string `json:"type"`
	Data struct {
		ID            string         `json:"id"`
		TransactionID string         `json:"transaction_id"`
		Amount        string         `json:"amount"`
		Currency      string         `json:"currency"`
		Status        string         `json:"status"`
		Metadata      map[string]any `json:"metadata"`
	} `json:"data"`
	Timestamp string `json:"timestamp"`
}

func (w *Wave) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var in waveWebhook
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if in.Type == "" || in.Data.ID == "" || in.Data.Status == "" {
		return nil, fmt.Errorf("%w: type, data.id and data.status are required", ErrMalformedWebhook)
	}
	var amount int64
	if in.Data.Amount != "" {
		v, err := strconv.ParseInt(in.Data.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad amount %q", ErrMalformedWebhook, in.Data.Amount)
		}
		amount = v
	}
	ts, err := parseEventTime(in.Timestamp)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		EventType:     in.Type,
		PaymentID:     in.Data.ID,
		TransactionID: optionalString(in.Data.TransactionID),
		Amount:        amount,
		Currency:      in.Data.Currency,
		Status:        in.Data.Status,
		Metadata:      in.Data.Metadata,
		Timestamp:     ts,
	}, nil
}
