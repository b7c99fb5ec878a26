package payment

import (
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"go.uber.org/fx"
)

func newProviderRegistry(f *provider.Factory) ProviderRegistry { return f }

// Module exposes the payment service via Fx.
var Module = fx.Options(
	fx.Provide(newProviderRegistry),
	fx.Provide(NewService),
)
