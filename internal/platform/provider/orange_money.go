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

const orangeMoneyInitPath = "/omcoreapis/1.0.2/mp/init"

type OrangeMoney struct {
	base
}

func NewOrangeMoney(cfg config.ProviderConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *OrangeMoney {
	return &OrangeMoney{base: newBase(types.PaymentProviderOrangeMoney, cfg, logger, m)}
}

type orangeMoneyInitRequest struct {
	MerchantID     string         `json:"merchant_id"`
	OrderID        string         `json:"order_id"`
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	CustomerMSISDN string         `json:"customer_msisdn"`
	CustomerName   string         `json:"customer_name,omitempty"`
	CustomerEmail  string         `json:"customer_email,omitempty"`
	NotifURL       string         `json:"notif_url,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type orangeMoneyInitResponse struct {
	PayToken   string `json:"pay_token"`
	PaymentURL string `json:"payment_url"`
	QRCode     string `json:"qr_code"`
	ExpiresAt  string `json:"expires_at"`
}

func (o *OrangeMoney) InitiatePayment(ctx context.Context, req *InitiationRequest) (*InitiationResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	payload := orangeMoneyInitRequest{
		MerchantID:     o.cfg.MerchantID,
		OrderID:        req.OrderID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		CustomerMSISDN: req.Customer.Phone,
		CustomerName:   req.Customer.Name,
		CustomerEmail:  req.Customer.Email,
		NotifURL:       o.cfg.CallbackURL,
		Metadata:       req.Metadata,
	}
	var out orangeMoneyInitResponse
	if err := o.client.post(ctx, orangeMoneyInitPath, o.idempotencyKey(req), payload, &out); err != nil {
		return nil, err
	}
	if out.PayToken == "" || out.PaymentURL == "" {
		return nil, fmt.Errorf("orange_money: incomplete init response")
	}
	return &InitiationResponse{
		ProviderPaymentID: out.PayToken,
		CheckoutURL:       out.PaymentURL,
		ExpiresAt:         parseOptionalTime(out.ExpiresAt),
		QRCode:            optionalString(out.QRCode),
	}, nil
}

func (o *OrangeMoney) MapStatus(providerStatus string) types.PaymentStatus {
	switch normalizeStatus(providerStatus) {
	case "SUCCESS":
		return types.PaymentStatusCompleted
	case "INITIATED", "PENDING":
		return types.PaymentStatusPending
	case "CANCELLED":
		return types.PaymentStatusCancelled
	default:
		return types.PaymentStatusFailed
	}
}

type orangeMoneyWebhook struct {
	Event      string `json:"event"`
	PayToken   string `json:"pay_token"`
	TxnID      string `json:"txnid"`
	Amount     int64  `json:"amount"`
	Currency   string `json:"currency"`
	Status     string `json:"status"`
	NotifToken string `json:"notif_token"`
	OrderID    string `json:"order_id"`
	Timestamp  string `json:"timestamp"`
}

func (o *OrangeMoney) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var in orangeMoneyWebhook
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	if in.Event == "" || in.PayToken == "" || in.Status == "" {
		return nil, fmt.Errorf("%w: event, pay_token and status are required", ErrMalformedWebhook)
	}
	ts, err := parseEventTime(in.Timestamp)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{}
	if in.OrderID != "" {
		meta["order_id"] = in.OrderID
	}
	if in.NotifToken != "" {
		meta["notif_token"] = in.NotifToken
	}
	return &WebhookEvent{
		EventType:     in.Event,
		PaymentID:     in.PayToken,
		TransactionID: optionalString(in.TxnID),
		Amount:        in.Amount,
		Currency:      in.Currency,
		Status:        in.Status,
		Metadata:      meta,
		Timestamp:     ts,
	}, nil
}
