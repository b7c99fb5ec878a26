package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const sweepLimit = 500

type StaleLister interface {
	StalePayments(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error)
}

// Sweeper periodically reports payments stuck in pending. It never changes
// them; operators reconcile with the provider by hand.
type Sweeper struct {
	lister    StaleLister
	log       *zap.SugaredLogger
	metrics   *metrics.PaymentMetrics
	cfg       config.ReconcileConfig
	scheduler gocron.Scheduler
}

func NewSweeper(lister StaleLister, log *zap.SugaredLogger, m *metrics.PaymentMetrics, cfg config.ReconcileConfig) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = time.Hour
	}
	return &Sweeper{lister: lister, log: log, metrics: m, cfg: cfg}
}

// Sweep logs every stale pending payment and returns how many were found.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	rows, err := s.lister.StalePayments(ctx, s.cfg.StaleAfter, sweepLimit)
	if err != nil {
		s.log.Errorw("stale payment sweep failed", "error", err)
		return 0, err
	}
	for _, p := range rows {
		s.log.Warnw("stale pending payment",
			"payment_id", p.ID,
			"order_id", p.OrderID,
			"provider", p.Provider,
			"provider_payment_id", p.ProviderPaymentID,
			"created_at", p.CreatedAt,
		)
	}
	s.metrics.SetStalePending(len(rows))
	if len(rows) > 0 {
		s.log.Infow("stale payment sweep finished", "stale", len(rows), "older_than", s.cfg.StaleAfter.String())
	}
	return len(rows), nil
}

func (s *Sweeper) Start() error {
	sch, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	_, err = sch.NewJob(
		gocron.DurationJob(s.cfg.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
			defer cancel()
			_, _ = s.Sweep(ctx)
		}),
		gocron.WithName("stale-payment-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sch.Shutdown()
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	sch.Start()
	s.scheduler = sch
	s.log.Infow("stale payment sweep scheduled", "interval", s.cfg.Interval.String())
	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Shutdown()
}

func newSweeper(svc *payment.Service, log *zap.SugaredLogger, m *metrics.PaymentMetrics, cfg *config.Config) *Sweeper {
	return NewSweeper(svc, log, m, cfg.Reconcile)
}

func registerLifecycle(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.StartStopHook(s.Start, s.Stop))
}

var Module = fx.Options(
	fx.Provide(newSweeper),
	fx.Invoke(registerLifecycle),
)
