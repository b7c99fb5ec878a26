package models

import (
	"time"

	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/shopspring/decimal"
)

// Order is a customer purchase created by the checkout flow. This service only
// moves its payment_status forward; orders are never deleted.
type Order struct {
	ID            string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID        string                   `gorm:"column:user_id;type:varchar(64);not null;index" json:"user_id"`
	Total         decimal.Decimal          `gorm:"column:total;type:numeric(12,2);not null" json:"total"`
	Currency      string                   `gorm:"column:currency;type:varchar(3);not null" json:"currency"`
	PaymentStatus types.OrderPaymentStatus `gorm:"column:payment_status;type:varchar(32);not null;default:'pending'" json:"payment_status"`
	// PaymentMethod is the provider key of PaymentID.
	PaymentMethod *string `gorm:"column:payment_method;type:varchar(32)" json:"payment_method"`
	// PaymentID references the latest Payment row created for this order,
	// or the one that paid it once paid.
	PaymentID     *string   `gorm:"column:payment_id;type:uuid" json:"payment_id"`
	TransactionID *string   `gorm:"column:transaction_id;type:varchar(128)" json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

// AmountInSmallestUnit converts the decimal total into integer minor units (round(total*100)).
func (o *Order) AmountInSmallestUnit() int64 {
	if o == nil {
		return 0
	}
	return o.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
