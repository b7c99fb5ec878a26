package notification

import (
	"github.com/fatflowers/paybridge/internal/platform/mailer"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDispatcher(db *gorm.DB, log *zap.SugaredLogger, m mailer.Mailer, pm *metrics.PaymentMetrics, cfg *config.Config) *Dispatcher {
	return NewDispatcher(db, log, m, pm, cfg.Notification)
}

func registerLifecycle(lc fx.Lifecycle, d *Dispatcher) {
	lc.Append(fx.StartStopHook(d.Start, d.Stop))
}

// Module exposes the notification dispatcher via Fx.
var Module = fx.Options(
	fx.Provide(newDispatcher),
	fx.Invoke(registerLifecycle),
)
