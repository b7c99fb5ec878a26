package provider

import (
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newFactory(cfg *config.Config, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) *Factory {
	return NewFactory(cfg.Providers, logger, m)
}

var Module = fx.Options(
	fx.Provide(newFactory),
)
