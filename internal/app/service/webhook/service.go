package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditlog "github.com/fatflowers/paybridge/internal/app/service/audit_log"
	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrPaymentNotFound  = errors.New("payment not found")
)

// Outcome is how a single webhook delivery ended.
type Outcome string

const (
	OutcomeProcessed        Outcome = "processed"
	OutcomeIgnored          Outcome = "ignored"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomePaymentNotFound  Outcome = "payment_not_found"
	OutcomeInvalidSignature Outcome = "invalid_signature"
	OutcomeMalformed        Outcome = "malformed"
	OutcomeUnknownProvider  Outcome = "unknown_provider"
	OutcomeError            Outcome = "error"
)

// ProviderRegistry resolves adapters by key. *provider.Factory satisfies it.
type ProviderRegistry interface {
	Get(key types.PaymentProvider) (provider.Provider, error)
}

// Notifier is told when an order becomes paid. It must not block.
type Notifier interface {
	NotifyOrderPaid(ctx context.Context, orderID, paymentID string)
}

type Result struct {
	Outcome   Outcome
	PaymentID string
	Status    types.PaymentStatus
}

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	providers ProviderRegistry
	audit     *auditlog.Service
	notifier  Notifier
	metrics   *metrics.PaymentMetrics
	now       func() time.Time
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, providers ProviderRegistry, audit *auditlog.Service, notifier Notifier, m *metrics.PaymentMetrics) *Service {
	return &Service{db: db, log: log, providers: providers, audit: audit, notifier: notifier, metrics: m, now: time.Now}
}

// Handle authenticates, parses and applies one webhook delivery. body must be
// the exact bytes received.
func (s *Service) Handle(ctx context.Context, key types.PaymentProvider, body []byte, signature string) (res *Result, err error) {
	log := logctx.FromCtx(ctx, s.log).With("provider", key)
	res = &Result{}
	defer func() {
		if err != nil {
			res.Outcome = outcomeForError(err)
		}
		s.metrics.ObserveWebhook(string(key), string(res.Outcome))
		log.Infow("webhook handled", "outcome", res.Outcome, "payment_id", res.PaymentID, "status", res.Status)
	}()

	p, err := s.providers.Get(key)
	if err != nil {
		return res, err
	}
	if !p.VerifyWebhook(body, signature) {
		log.Warnw("webhook signature rejected", "signature_present", signature != "")
		return res, ErrInvalidSignature
	}
	ev, err := p.ParseWebhook(body)
	if err != nil {
		return res, err
	}
	ev.Signature = signature
	res.PaymentID = ev.PaymentID
	res.Status = p.MapStatus(ev.Status)
	log = log.With("provider_payment_id", ev.PaymentID, "event_type", ev.EventType)
	log.Infow("webhook received", "provider_status", ev.Status)

	seen, err := s.audit.ExistsForReplay(ctx, nil, key, ev.PaymentID, ev.EventType)
	if err != nil {
		return res, err
	}
	if seen {
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	var payment models.Payment
	err = s.db.WithContext(ctx).
		Where("provider = ? AND provider_payment_id = ?", key, ev.PaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry := s.auditEntry(key, ev, res.Status, models.AuditLogOutcomePaymentNotFound, body)
		entry.Metadata["error"] = "Payment not found"
		if aerr := s.audit.Append(ctx, nil, entry); aerr != nil {
			return res, aerr
		}
		return res, ErrPaymentNotFound
	}
	if err != nil {
		return res, fmt.Errorf("failed to load payment: %w", err)
	}

	var outcome models.AuditLogOutcome
	var newlyPaid bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var aerr error
		outcome, newlyPaid, aerr = s.apply(ctx, tx, key, ev, res.Status, body, payment.ID)
		return aerr
	})
	if err != nil {
		log.Errorw("failed to apply webhook", "payment_id", payment.ID, "error", err)
		return res, fmt.Errorf("failed to apply webhook: %w", err)
	}
	switch outcome {
	case "":
		res.Outcome = OutcomeDuplicate
	case models.AuditLogOutcomeIgnored:
		res.Outcome = OutcomeIgnored
	default:
		res.Outcome = OutcomeProcessed
	}

	if newlyPaid && s.notifier != nil {
		s.notifier.NotifyOrderPaid(ctx, payment.OrderID, payment.ID)
	}
	return res, nil
}

// apply runs inside the transaction. An empty outcome means a concurrent
// delivery with the same key committed first.
func (s *Service) apply(ctx context.Context, tx *gorm.DB, key types.PaymentProvider, ev *provider.WebhookEvent, status types.PaymentStatus, body []byte, paymentID string) (models.AuditLogOutcome, bool, error) {
	var payment models.Payment
	if err := forUpdate(tx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		return "", false, fmt.Errorf("failed to lock payment: %w", err)
	}
	seen, err := s.audit.ExistsForReplay(ctx, tx, key, ev.PaymentID, ev.EventType)
	if err != nil {
		return "", false, err
	}
	if seen {
		return "", false, nil
	}

	var order models.Order
	if err := tx.Where("id = ?", payment.OrderID).First(&order).Error; err != nil {
		return "", false, fmt.Errorf("failed to load order: %w", err)
	}

	entry := s.auditEntry(key, ev, status, models.AuditLogOutcomeProcessed, body)
	if ev.Amount > 0 && ev.Amount != payment.Amount {
		entry.Metadata["amount_mismatch"] = true
		entry.Metadata["expected_amount"] = payment.Amount
		logctx.FromCtx(ctx, s.log).Warnw("webhook amount differs from payment",
			"payment_id", payment.ID, "expected", payment.Amount, "got", ev.Amount)
	}

	if payment.Status.IsTerminal() && status != payment.Status {
		entry.Outcome = models.AuditLogOutcomeIgnored
		entry.Metadata["reason"] = fmt.Sprintf("payment already %s", payment.Status)
		return entry.Outcome, false, s.audit.Append(ctx, tx, entry)
	}

	newlyPaid := false
	if payment.Status != status || ev.TransactionID != nil {
		updates := map[string]any{"status": status}
		if ev.TransactionID != nil {
			updates["transaction_id"] = *ev.TransactionID
		}
		if status == types.PaymentStatusCompleted && payment.CompletedAt == nil {
			updates["completed_at"] = s.now()
			newlyPaid = true
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(updates).Error; err != nil {
			return "", false, fmt.Errorf("failed to update payment: %w", err)
		}
	}

	// A second payment for an already paid order still records the collected
	// money, but the order keeps its paying payment and is not notified again.
	if newlyPaid && order.PaymentStatus == types.OrderPaymentStatusPaid && !paidBy(&order, payment.ID) {
		newlyPaid = false
		entry.Metadata["duplicate_completion"] = true
		if order.PaymentID != nil {
			entry.Metadata["paid_by_payment_id"] = *order.PaymentID
		}
		logctx.FromCtx(ctx, s.log).Errorw("order already paid by another payment, refund or reconcile manually",
			"order_id", order.ID, "payment_id", payment.ID, "provider", payment.Provider,
			"provider_payment_id", payment.ProviderPaymentID, "paid_by_payment_id", order.PaymentID)
	}

	if orderUpdates := orderTransition(&order, &payment, status, ev.TransactionID); len(orderUpdates) > 0 {
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(orderUpdates).Error; err != nil {
			return "", false, fmt.Errorf("failed to update order: %w", err)
		}
	} else if order.PaymentStatus == types.OrderPaymentStatusPaid && status != types.PaymentStatusCompleted {
		entry.Metadata["order_kept_paid"] = true
	} else if superseded(&order, payment.ID) && status.IsFailure() {
		entry.Metadata["order_kept"] = "superseded"
		entry.Metadata["current_payment_id"] = *order.PaymentID
	}

	return entry.Outcome, newlyPaid, s.audit.Append(ctx, tx, entry)
}

func paidBy(order *models.Order, paymentID string) bool {
	return order.PaymentID != nil && *order.PaymentID == paymentID
}

// superseded reports whether the order already points at a newer payment.
func superseded(order *models.Order, paymentID string) bool {
	return order.PaymentID != nil && *order.PaymentID != paymentID
}

// orderTransition returns the order columns to change for payment now in
// status. A paid order never moves again, and a failure of a payment the order
// no longer points at leaves it alone.
func orderTransition(order *models.Order, payment *models.Payment, status types.PaymentStatus, transactionID *string) map[string]any {
	if order.PaymentStatus == types.OrderPaymentStatusPaid {
		return nil
	}
	switch {
	case status == types.PaymentStatusCompleted:
		updates := map[string]any{
			"payment_status": types.OrderPaymentStatusPaid,
			"payment_id":     payment.ID,
			"payment_method": string(payment.Provider),
		}
		if transactionID != nil {
			updates["transaction_id"] = *transactionID
		}
		return updates
	case status.IsFailure():
		if order.PaymentStatus == types.OrderPaymentStatusFailed || superseded(order, payment.ID) {
			return nil
		}
		return map[string]any{"payment_status": types.OrderPaymentStatusFailed}
	default:
		return nil
	}
}

func (s *Service) auditEntry(key types.PaymentProvider, ev *provider.WebhookEvent, status types.PaymentStatus, outcome models.AuditLogOutcome, body []byte) *models.AuditLog {
	meta := datatypes.JSONMap{}
	for k, v := range ev.Metadata {
		meta[k] = v
	}
	meta["provider_status"] = ev.Status
	if ev.TransactionID != nil {
		meta["transaction_id"] = *ev.TransactionID
	}
	if ev.Signature != "" {
		meta["signature"] = ev.Signature
	}
	return &models.AuditLog{
		Provider:  key,
		PaymentID: ev.PaymentID,
		EventType: ev.EventType,
		Status:    status,
		Outcome:   outcome,
		Payload:   datatypes.JSON(body),
		Metadata:  meta,
	}
}

// forUpdate adds a row lock where the dialect supports one.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func outcomeForError(err error) Outcome {
	switch {
	case errors.Is(err, provider.ErrUnknownProvider):
		return OutcomeUnknownProvider
	case errors.Is(err, ErrInvalidSignature):
		return OutcomeInvalidSignature
	case errors.Is(err, provider.ErrMalformedWebhook):
		return OutcomeMalformed
	case errors.Is(err, ErrPaymentNotFound):
		return OutcomePaymentNotFound
	default:
		return OutcomeError
	}
}
