package payment

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/tool"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	initiationResultOK          = "ok"
	initiationResultRejected    = "rejected"
	initiationResultUnavailable = "unavailable"
	initiationResultError       = "error"
)

type Service struct {
	db        *gorm.DB
	log       *zap.SugaredLogger
	providers ProviderRegistry
	metrics   *metrics.PaymentMetrics
}

func NewService(db *gorm.DB, log *zap.SugaredLogger, providers ProviderRegistry, m *metrics.PaymentMetrics) *Service {
	return &Service{db: db, log: log, providers: providers, metrics: m}
}

// Initiate opens a checkout session for an order owned by req.UserID, records
// a pending Payment and moves the order to processing in one transaction.
func (s *Service) Initiate(ctx context.Context, req *InitiateRequest) (res *InitiateResult, err error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	log := logctx.FromCtx(ctx, s.log).With("order_id", req.OrderID, "provider", req.Provider)

	defer func() {
		result := initiationResultOK
		var reqErr *provider.RequestError
		switch {
		case err == nil:
		case errors.As(err, &reqErr):
			result = initiationResultRejected
		case errors.Is(err, ErrProviderUnavailable):
			result = initiationResultUnavailable
		default:
			result = initiationResultError
		}
		s.metrics.ObserveInitiation(string(req.Provider), result)
	}()

	// ids are uuid columns; anything else cannot exist
	if _, err := uuid.Parse(req.OrderID); err != nil {
		return nil, ErrOrderNotFound
	}
	var order models.Order
	if err := s.db.WithContext(ctx).Where("id = ?", req.OrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != req.UserID {
		log.Warnw("payment initiation on foreign order", "owner_id", order.UserID)
		return nil, ErrOrderForbidden
	}
	if order.PaymentStatus == types.OrderPaymentStatusPaid {
		return nil, ErrOrderAlreadyPaid
	}
	if !s.providers.IsAvailable(req.Provider) {
		return nil, ErrProviderUnavailable
	}
	p, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	amount := order.AmountInSmallestUnit()
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	currency := strings.ToUpper(strings.TrimSpace(order.Currency))

	meta := map[string]any{}
	maps.Copy(meta, req.Metadata)
	meta["order_id"] = order.ID
	meta["user_id"] = order.UserID

	started, err := p.InitiatePayment(ctx, &provider.InitiationRequest{
		OrderID:  order.ID,
		Amount:   amount,
		Currency: currency,
		Customer: req.Customer,
		Metadata: meta,
	})
	if err != nil {
		log.Errorw("provider initiation failed", "amount", amount, "currency", currency, "error", err)
		return nil, fmt.Errorf("failed to initiate payment: %w", err)
	}

	payment := &models.Payment{
		ID:                tool.GenerateUUIDV7(),
		OrderID:           order.ID,
		Provider:          req.Provider,
		Amount:            amount,
		Currency:          currency,
		Status:            types.PaymentStatusPending,
		ProviderPaymentID: started.ProviderPaymentID,
		CheckoutURL:       started.CheckoutURL,
		ExpiresAt:         started.ExpiresAt,
		QRCode:            started.QRCode,
		Customer: datatypes.NewJSONType(&models.PaymentCustomer{
			Name:  req.Customer.Name,
			Phone: req.Customer.Phone,
			Email: req.Customer.Email,
		}),
		Metadata: datatypes.JSONMap(meta),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}
		upd := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status <> ?", order.ID, types.OrderPaymentStatusPaid).
			Updates(map[string]any{
				"payment_status": types.OrderPaymentStatusProcessing,
				"payment_method": string(req.Provider),
				"payment_id":     payment.ID,
			})
		if upd.Error != nil {
			return fmt.Errorf("failed to update order: %w", upd.Error)
		}
		if upd.RowsAffected == 0 {
			return ErrOrderAlreadyPaid
		}
		return nil
	})
	if err != nil {
		// The provider session exists but nothing references it locally.
		log.Errorw("payment persistence failed, manual reconciliation required",
			"provider_payment_id", started.ProviderPaymentID,
			"checkout_url", started.CheckoutURL,
			"error", err,
		)
		if errors.Is(err, ErrOrderAlreadyPaid) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to persist payment: %w", err)
	}

	log.Infow("payment initiated", "payment_id", payment.ID, "provider_payment_id", payment.ProviderPaymentID, "amount", amount)

	return &InitiateResult{
		PaymentID:   payment.ID,
		Provider:    payment.Provider,
		CheckoutURL: payment.CheckoutURL,
		ExpiresAt:   payment.ExpiresAt,
		QRCode:      payment.QRCode,
	}, nil
}

// GetPayment returns a payment whose order belongs to userID.
func (s *Service) GetPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error) {
	if _, err := uuid.Parse(paymentID); err != nil {
		return nil, ErrPaymentNotFound
	}
	var payment models.Payment
	if err := s.db.WithContext(ctx).Where("id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", payment.OrderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderForbidden
	}
	return &payment, nil
}

// filtersAnd is a helper to combine multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// ScanPayments implements paginated admin listing with whitelisted filters.
func (s *Service) ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil request", ErrInvalidScan)
	}
	for _, f := range req.Filters {
		if err := f.Validate(ScannableFields); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidScan, err)
		}
	}
	if req.SortBy != "" && !lo.Contains(ScannableFields, req.SortBy) {
		return nil, fmt.Errorf("%w: cannot sort by %s", ErrInvalidScan, req.SortBy)
	}
	if req.Size <= 0 {
		req.Size = 10
	}
	if req.Size > 200 {
		req.Size = 200
	}
	if req.From < 0 {
		req.From = 0
	}

	tx := s.db.WithContext(ctx).Model(&models.Payment{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count payments: %w", err)
	}

	var rows []*models.Payment

	q := tx.Limit(req.Size)

	if req.From > 0 {
		q = q.Offset(req.From)
	}

	sortBy := req.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	q = q.Order(clause.OrderBy{Columns: []clause.OrderByColumn{{Column: clause.Column{Name: sortBy}, Desc: req.SortOrder != "asc"}}})
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &ScanPaymentsResponse{Items: rows, Total: total}, nil
}

// StalePayments lists payments still pending that were created before now-olderThan.
func (s *Service) StalePayments(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().Add(-olderThan)
	var rows []*models.Payment
	err := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", types.PaymentStatusPending, cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return rows, nil
}
