package provider

import (
	"fmt"
	"sync"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"
	"go.uber.org/zap"
)

// Factory builds adapters on first use and caches them. Adapters are
// immutable after construction.
type Factory struct {
	cfg     config.ProvidersConfig
	logger  *zap.SugaredLogger
	metrics *metrics.PaymentMetrics

	mu       sync.Mutex
	adapters map[types.PaymentProvider]Provider
}

func NewFactory(cfg config.ProvidersConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *Factory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Factory{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		adapters: make(map[types.PaymentProvider]Provider, len(types.PaymentProviders)),
	}
}

func (f *Factory) Get(key types.PaymentProvider) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.adapters[key]; ok {
		return p, nil
	}
	pc, ok := f.cfg.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, key)
	}

	var p Provider
	switch key {
	case types.PaymentProviderWave:
		p = NewWave(pc, f.logger, f.metrics)
	case types.PaymentProviderOrangeMoney:
		p = NewOrangeMoney(pc, f.logger, f.metrics)
	case types.PaymentProviderFreeMoney:
		p = NewFreeMoney(pc, f.logger, f.metrics)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, key)
	}
	if pc.WebhookSecret == "" && !pc.IsProduction() {
		f.logger.Warnw("webhook signature verification disabled: no secret configured in sandbox", "provider", key)
	}
	f.adapters[key] = p
	return p, nil
}

// IsAvailable reports whether key is a known provider with credentials.
func (f *Factory) IsAvailable(key types.PaymentProvider) bool {
	p, err := f.Get(key)
	if err != nil {
		return false
	}
	return p.IsConfigured()
}

func (f *Factory) Availability() map[types.PaymentProvider]bool {
	out := make(map[types.PaymentProvider]bool, len(types.PaymentProviders))
	for _, key := range types.PaymentProviders {
		out[key] = f.IsAvailable(key)
	}
	return out
}
