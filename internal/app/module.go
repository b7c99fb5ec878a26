package app

import (
	"time"

	"github.com/fatflowers/paybridge/internal/app/api/server"
	auditlog "github.com/fatflowers/paybridge/internal/app/service/audit_log"
	"github.com/fatflowers/paybridge/internal/app/service/notification"
	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/app/service/reconcile"
	"github.com/fatflowers/paybridge/internal/app/service/statistics"
	"github.com/fatflowers/paybridge/internal/app/service/webhook"
	"github.com/fatflowers/paybridge/internal/platform/db"
	"github.com/fatflowers/paybridge/internal/platform/mailer"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/logger"
	"github.com/fatflowers/paybridge/pkg/metrics"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 30 * time.Second
)

// Core wires configuration, logging, storage and the provider adapters.
// CLI subcommands that do not serve traffic start only this.
var Core = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	metrics.Module,
	provider.Module,
)

var Module = fx.Options(
	Core,
	mailer.Module,
	auditlog.Module,
	notification.Module,
	payment.Module,
	webhook.Module,
	reconcile.Module,
	statistics.Module,
	server.Module,
)
