package payment

import (
	"time"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/types"
)

// ProviderRegistry resolves adapters by key. *provider.Factory satisfies it.
type ProviderRegistry interface {
	Get(key types.PaymentProvider) (provider.Provider, error)
	IsAvailable(key types.PaymentProvider) bool
}

type InitiateRequest struct {
	UserID   string
	OrderID  string
	Provider types.PaymentProvider
	Customer provider.Customer
	Metadata map[string]any
}

type InitiateResult struct {
	PaymentID   string                `json:"id"`
	Provider    types.PaymentProvider `json:"provider"`
	CheckoutURL string                `json:"checkout_url"`
	ExpiresAt   *time.Time            `json:"expires_at,omitempty"`
	QRCode      *string               `json:"qr_code,omitempty"`
}

type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// ScannableFields lists the payment columns accepted in filters and sort_by.
var ScannableFields = []string{
	"id", "order_id", "provider", "status", "provider_payment_id",
	"transaction_id", "currency", "amount", "created_at", "updated_at", "completed_at",
}
