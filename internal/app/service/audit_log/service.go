package audit_log

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/tool"
	"github.com/fatflowers/paybridge/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

func (s *Service) conn(ctx context.Context, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// Append inserts entry through tx, or through the service connection when tx is nil.
// Entries are never updated afterwards.
func (s *Service) Append(ctx context.Context, tx *gorm.DB, entry *models.AuditLog) error {
	if entry == nil {
		return errors.New("nil audit entry")
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	if entry.TraceID == "" {
		entry.TraceID = logctx.TraceID(ctx)
	}
	if err := s.conn(ctx, tx).Create(entry).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to append audit entry",
			"provider", entry.Provider,
			"payment_id", entry.PaymentID,
			"event_type", entry.EventType,
			"error", err,
		)
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// ExistsForReplay reports whether an event with this key was already
// processed or deliberately ignored. payment_not_found entries do not count.
func (s *Service) ExistsForReplay(ctx context.Context, tx *gorm.DB, provider types.PaymentProvider, paymentID, eventType string) (bool, error) {
	var n int64
	err := s.conn(ctx, tx).Model(&models.AuditLog{}).
		Where("provider = ? AND payment_id = ? AND event_type = ?", provider, paymentID, eventType).
		Where("outcome IN ?", models.ReplayOutcomes).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up audit entries: %w", err)
	}
	return n > 0, nil
}

// ListByPayment returns the audit trail of one provider payment, oldest first.
func (s *Service) ListByPayment(ctx context.Context, provider types.PaymentProvider, paymentID string) ([]*models.AuditLog, error) {
	var rows []*models.AuditLog
	err := s.db.WithContext(ctx).
		Where("provider = ? AND payment_id = ?", provider, paymentID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return rows, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
