package webhook

import (
	"github.com/fatflowers/paybridge/internal/app/service/notification"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"go.uber.org/fx"
)

func newProviderRegistry(f *provider.Factory) ProviderRegistry { return f }

func newNotifier(d *notification.Dispatcher) Notifier { return d }

// Module exposes the webhook service via Fx.
var Module = fx.Options(
	fx.Provide(newProviderRegistry, newNotifier),
	fx.Provide(NewService),
)
