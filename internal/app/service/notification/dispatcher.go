package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/mailer"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/tool"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errDispatcherStopped = errors.New("dispatcher stopped")

// Job asks for the confirmation email of one paid order.
type Job struct {
	OrderID   string
	PaymentID string
	TraceID   string
}

// Dispatcher delivers order confirmations from a bounded queue with a fixed
// pool of workers. Jobs that cannot be delivered end up in notification_dead_letters.
type Dispatcher struct {
	db      *gorm.DB
	log     *zap.SugaredLogger
	mailer  mailer.Mailer
	metrics *metrics.PaymentMetrics
	cfg     config.NotificationConfig

	mu     sync.RWMutex
	closed bool
	queue  chan Job
	wg     sync.WaitGroup

	runCtx    context.Context
	cancelRun context.CancelFunc
}

func NewDispatcher(db *gorm.DB, log *zap.SugaredLogger, m mailer.Mailer, pm *metrics.PaymentMetrics, cfg config.NotificationConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	runCtx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		db:        db,
		log:       log,
		mailer:    m,
		metrics:   pm,
		cfg:       cfg,
		queue:     make(chan Job, cfg.QueueSize),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Infow("notification dispatcher started", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
}

// Stop refuses new jobs and waits for queued ones. When ctx expires first,
// pending retries are abandoned and dead-lettered.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancelRun()
		return nil
	case <-ctx.Done():
		d.cancelRun()
		<-done
		return ctx.Err()
	}
}

// NotifyOrderPaid queues the confirmation for orderID without blocking.
func (d *Dispatcher) NotifyOrderPaid(ctx context.Context, orderID, paymentID string) {
	d.Enqueue(Job{OrderID: orderID, PaymentID: paymentID, TraceID: logctx.TraceID(ctx)})
}

// Enqueue never blocks. A full or stopped queue dead-letters the job and returns false.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.deadLetter(job, 0, errDispatcherStopped)
		return false
	}
	select {
	case d.queue <- job:
		d.mu.RUnlock()
		return true
	default:
		d.mu.RUnlock()
		d.deadLetter(job, 0, fmt.Errorf("notification queue full (%d)", d.cfg.QueueSize))
		return false
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for job := range d.queue {
		d.process(job)
	}
	d.log.Debugw("notification worker exited", "worker", n)
}

func (d *Dispatcher) process(job Job) {
	ctx := context.WithValue(d.runCtx, logctx.KeyTraceID, job.TraceID)
	log := d.log.With("trace_id", job.TraceID, "order_id", job.OrderID, "payment_id", job.PaymentID)

	msg, err := d.buildMessage(ctx, job)
	if err != nil {
		d.deadLetter(job, 0, err)
		return
	}
	if msg == nil {
		log.Infow("no customer email on payment, confirmation skipped")
		return
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		lastErr = d.mailer.Send(ctx, msg)
		if lastErr == nil {
			log.Infow("order confirmation sent", "attempt", attempt)
			return
		}
		log.Warnw("order confirmation failed", "attempt", attempt, "error", lastErr)
		if attempt == d.cfg.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			d.deadLetter(job, attempt, fmt.Errorf("%w: %v", errDispatcherStopped, lastErr))
			return
		case <-time.After(d.cfg.RetryBackoff * time.Duration(attempt)):
		}
	}
	d.deadLetter(job, d.cfg.MaxAttempts, lastErr)
}

func (d *Dispatcher) buildMessage(ctx context.Context, job Job) (*mailer.Message, error) {
	var payment models.Payment
	if err := d.db.WithContext(ctx).Where("id = ?", job.PaymentID).First(&payment).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	var order models.Order
	if err := d.db.WithContext(ctx).Where("id = ?", job.OrderID).First(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	customer := payment.GetCustomer()
	if customer == nil || customer.Email == "" {
		return nil, nil
	}
	return orderConfirmation(&order, &payment, customer), nil
}

func (d *Dispatcher) deadLetter(job Job, attempts int, cause error) {
	d.metrics.IncDeadLetter()
	row := &models.NotificationDeadLetter{
		ID:        tool.GenerateUUIDV7(),
		Kind:      models.NotificationKindOrderConfirmation,
		OrderID:   job.OrderID,
		PaymentID: job.PaymentID,
		Attempts:  attempts,
		LastError: fmt.Sprint(cause),
	}
	log := d.log.With("trace_id", job.TraceID, "order_id", job.OrderID, "payment_id", job.PaymentID)
	log.Errorw("order confirmation dead-lettered", "attempts", attempts, "error", cause)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.db.WithContext(ctx).Create(row).Error; err != nil {
		log.Errorw("failed to persist dead letter", "error", err)
	}
}
