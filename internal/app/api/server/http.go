package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fatflowers/paybridge/docs"
	"github.com/fatflowers/paybridge/internal/app/api/handlers"
	mw "github.com/fatflowers/paybridge/internal/app/api/middleware"
	auditlog "github.com/fatflowers/paybridge/internal/app/service/audit_log"
	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/app/service/statistics"
	"github.com/fatflowers/paybridge/internal/app/service/webhook"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	cfgpkg "github.com/fatflowers/paybridge/pkg/config"
	metrics "github.com/fatflowers/paybridge/pkg/metrics"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Engine    *gin.Engine
	Log       *zap.SugaredLogger
	Config    *cfgpkg.Config
	DB        *gorm.DB
	Payments  *payment.Service
	Webhooks  *webhook.Service
	Audit     *auditlog.Service
	Stats     *statistics.Service
	Providers *provider.Factory
}

func registerRoutes(p routeParams) error {
	r, log, cfg := p.Engine, p.Log, p.Config

	// Prometheus metrics
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ListenAddress: cfg.MetricsAddr,
			Logger:        log,
		})
		prom.Use(r)
		p.Lifecycle.Append(fx.StartStopHook(prom.Start, prom.Stop))
	}

	sqlDB, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub, sqlDB)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Webhooks authenticate by provider signature, not by session
	hooks := r.Group("/api/payments/webhook")
	hooks.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterPaymentWebhookRoutes(hooks, p.Webhooks, log)

	pay := r.Group("/api/payments")
	pay.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg.Auth.JWTSecret, log))
	handlers.RegisterPaymentRoutes(pay, p.Payments, log)

	admin := r.Group("/api/v1/admin")
	admin.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.AuthMiddleware(cfg.Auth.JWTSecret, log), mw.AdminOnly())
	handlers.RegisterAdminPaymentRoutes(admin, handlers.AdminDeps{
		Payments:   p.Payments,
		Audit:      p.Audit,
		Statistics: p.Stats,
		Providers:  p.Providers,
	}, log)
	return nil
}

func runServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "error", err)
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
