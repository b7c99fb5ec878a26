package models

import (
	"time"

	"github.com/fatflowers/paybridge/pkg/types"

	"gorm.io/datatypes"
)

// PaymentCustomer is the payer contact captured at initiation time.
type PaymentCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// Payment is one attempt to collect an order through one provider. Several
// payments may reference the same order across retries.
type Payment struct {
	ID                string                `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderID           string                `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	Provider          types.PaymentProvider `gorm:"column:provider;type:varchar(32);not null;uniqueIndex:unique_provider_provider_payment_id,priority:1" json:"provider"`
	Amount            int64                 `gorm:"column:amount;type:bigint;not null" json:"amount"`
	Currency          string                `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	Status            types.PaymentStatus   `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	ProviderPaymentID string                `gorm:"column:provider_payment_id;type:varchar(128);not null;uniqueIndex:unique_provider_provider_payment_id,priority:2" json:"provider_payment_id"`
	CheckoutURL       string                `gorm:"column:checkout_url;type:text" json:"checkout_url"`
	TransactionID     *string               `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	ExpiresAt         *time.Time            `gorm:"column:expires_at" json:"expires_at"`
	QRCode            *string               `gorm:"column:qr_code;type:text" json:"qr_code"`

	Customer    datatypes.JSONType[*PaymentCustomer] `gorm:"column:customer;type:jsonb" json:"customer"`
	Metadata    datatypes.JSONMap                    `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CompletedAt *time.Time                           `gorm:"column:completed_at" json:"completed_at"`
	CreatedAt   time.Time                            `json:"created_at"`
	UpdatedAt   time.Time                            `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

func (p *Payment) GetCustomer() *PaymentCustomer {
	if p == nil {
		return nil
	}
	return p.Customer.Data()
}
