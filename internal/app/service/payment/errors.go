package payment

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderForbidden      = errors.New("order belongs to another user")
	ErrOrderAlreadyPaid    = errors.New("order already paid")
	ErrProviderUnavailable = errors.New("payment provider not configured")
	ErrInvalidAmount       = errors.New("order amount must be positive")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrInvalidScan         = errors.New("invalid scan request")
)
