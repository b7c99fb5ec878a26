package types

import "strings"

type PaymentProvider string

const (
	PaymentProviderWave        PaymentProvider = "wave"
	PaymentProviderOrangeMoney PaymentProvider = "orange_money"
	PaymentProviderFreeMoney   PaymentProvider = "free_money"
)

// PaymentProviders lists every provider the service can route to.
var PaymentProviders = []PaymentProvider{
	PaymentProviderWave,
	PaymentProviderOrangeMoney,
	PaymentProviderFreeMoney,
}

func ParsePaymentProvider(s string) (PaymentProvider, bool) {
	p := PaymentProvider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range PaymentProviders {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// EnvKey returns the upper-case prefix used by environment variables, e.g. ORANGE_MONEY.
func (p PaymentProvider) EnvKey() string {
	return strings.ToUpper(string(p))
}

// PaymentStatus is the internal status of a single payment attempt.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// IsTerminal reports whether no further transition is accepted from s.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted
}

// IsFailure reports whether s ends the attempt without payment.
func (s PaymentStatus) IsFailure() bool {
	return s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// OrderPaymentStatus is the payment state carried by an order.
type OrderPaymentStatus string

const (
	OrderPaymentStatusPending    OrderPaymentStatus = "pending"
	OrderPaymentStatusProcessing OrderPaymentStatus = "processing"
	OrderPaymentStatusPaid       OrderPaymentStatus = "paid"
	OrderPaymentStatusFailed     OrderPaymentStatus = "failed"
)

type ProviderEnvironment string

const (
	ProviderEnvironmentSandbox    ProviderEnvironment = "sandbox"
	ProviderEnvironmentProduction ProviderEnvironment = "production"
)
