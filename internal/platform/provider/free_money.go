package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"
	"go.uber.org/zap"
)

const freeMoneyPaymentsPath = "/api/v1/payments"

type FreeMoney struct {
	base
}

func NewFreeMoney(cfg config.ProviderConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *FreeMoney {
	return &FreeMoney{base: newBase(types.PaymentProviderFreeMoney, cfg, logger, m)}
}

type freeMoneyPaymentRequest struct {
	Reference   string         `json:"reference"`
	Amount      int64          `json:"amount"`
	Currency    string         `json:"currency"`
	MSISDN      string         `json:"msisdn"`
	Customer    Customer       `json:"customer"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type freeMoneyPaymentResponse struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
	ExpiresAt   string `json:"expires_at"`
}

func (f *FreeMoney) InitiatePayment(ctx context.Context, req *InitiationRequest) (*InitiationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload := freeMoneyPaymentRequest{
		Reference:   req.OrderID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		MSISDN:      req.Customer.Phone,
		Customer:    req.Customer,
		CallbackURL: f.cfg.CallbackURL,
		Metadata:    req.Metadata,
	}
	var out freeMoneyPaymentResponse
	if err := f.client.post(ctx, freeMoneyPaymentsPath, f.idempotencyKey(req), payload, &out); err != nil {
		return nil, err
	}
	if out.PaymentID == "" || out.RedirectURL == "" {
		return nil, fmt.Errorf("free_money: incomplete payment response")
	}
	return &InitiationResponse{
		ProviderPaymentID: out.PaymentID,
		CheckoutURL:       out.RedirectURL,
		ExpiresAt:         parseOptionalTime(out.ExpiresAt),
	}, nil
}

func (f *FreeMoney) MapStatus(providerStatus string) types.PaymentStatus {
	switch normalizeStatus(providerStatus) {
	case "COMPLETED", "SUCCESS":
		return types.PaymentStatusCompleted
	case "PENDING":
		return types.PaymentStatusPending
	case "IN_PROGRESS", "PROCESSING":
		return types.PaymentStatusProcessing
	case "CANCELLED":
		return types.PaymentStatusCancelled
	default:
		return types.PaymentStatusFailed
	}
}

type freeMoneyWebhook struct {
	EventType     string         `json:"event_type"`
	PaymentID     string         `json:"payment_id"`
	TransactionID string         `json:"transaction_id"`
	Amount        int64          `json:"amount"`
	Currency      string         `json:"currency"`
	Status        string         `json:"status"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     string         `json:"created_at"`
}

func (f *FreeMoney) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var in freeMoneyWebhook
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if in.EventType == "" || in.PaymentID == "" || in.Status == "" {
		return nil, fmt.Errorf("%w: event_type, payment_id and status are required", ErrMalformedWebhook)
	}
	ts, err := parseEventTime(in.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &WebhookEvent{
		EventType:     in.EventType,
		PaymentID:     in.PaymentID,
		TransactionID: optionalString(in.TransactionID),
		Amount:        in.Amount,
		Currency:      in.Currency,
		Status:        in.Status,
		Metadata:      in.Metadata,
		Timestamp:     ts,
	}, nil
}
