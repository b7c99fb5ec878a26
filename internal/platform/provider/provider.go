package provider

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/fatflowers/paybridge/pkg/types"
)

// Provider is the contract every mobile-money network adapter satisfies.
type Provider interface {
	Key() types.PaymentProvider
	// InitiatePayment opens a checkout session on the provider side.
	InitiatePayment(ctx context.Context, req *InitiationRequest) (*InitiationResponse, error)
	// MapStatus translates the provider vocabulary into an internal status.
	// Unknown values map to failed.
	MapStatus(providerStatus string) types.PaymentStatus
	// VerifyWebhook checks the signature of a raw webhook body.
	VerifyWebhook(body []byte, signature string) bool
	ParseWebhook(body []byte) (*WebhookEvent, error)
	// IsConfigured reports whether credentials are present.
	IsConfigured() bool
}

type Customer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

type InitiationRequest struct {
	OrderID string
	// Amount is expressed in the smallest currency unit.
	Amount   int64
	Currency string
	Customer Customer
	Metadata map[string]any
	// IdempotencyKey is sent on every attempt of this initiation; generated when empty.
	IdempotencyKey string
}

var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func (r *InitiationRequest) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	if r.OrderID == "" {
		return fmt.Errorf("%w: order id is required", ErrInvalidRequest)
	}
	if r.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidRequest, r.Amount)
	}
	if !currencyRe.MatchString(r.Currency) {
		return fmt.Errorf("%w: invalid currency %q", ErrInvalidRequest, r.Currency)
	}
	return nil
}

type InitiationResponse struct {
	ProviderPaymentID string
	CheckoutURL       string
	ExpiresAt         *time.Time
	QRCode            *string
}

// WebhookEvent is the provider independent view of a webhook notification.
// Status keeps the provider vocabulary; use Provider.MapStatus to translate it.
type WebhookEvent struct {
	EventType     string
	PaymentID     string
	TransactionID *string
	Amount        int64
	Currency      string
	Status        string
	Metadata      map[string]any
	Timestamp     time.Time
	// Signature is the verified header value, set by the webhook service.
	Signature string
}

func parseOptionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseEventTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad timestamp %q", ErrMalformedWebhook, s)
	}
	return t, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
