package models

import "time"

type NotificationKind string

const (
	NotificationKindOrderConfirmation NotificationKind = "order_confirmation"
)

// NotificationDeadLetter keeps notifications that could not be delivered after all retries.
type NotificationDeadLetter struct {
	ID        string           `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Kind      NotificationKind `gorm:"column:kind;type:varchar(64);not null" json:"kind"`
	OrderID   string           `gorm:"column:order_id;type:uuid;not null;index" json:"order_id"`
	PaymentID string           `gorm:"column:payment_id;type:uuid" json:"payment_id"`
	Attempts  int              `gorm:"column:attempts;not null" json:"attempts"`
	LastError string           `gorm:"column:last_error;type:text" json:"last_error"`
	CreatedAt time.Time        `json:"created_at"`
}

func (NotificationDeadLetter) TableName() string { return "notification_dead_letters" }
