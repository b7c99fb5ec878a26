package statistics

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatisticType string

const (
	// Payments created per day and provider
	StatisticTypeDailyPaymentCount StatisticType = "daily_payment_count"
	// Completed amount per day and currency, by completion date
	StatisticTypeDailyCollected StatisticType = "daily_collected"
	// Completed amount per currency
	StatisticTypeTotalCollected StatisticType = "total_collected"
	// Completed share of payments per provider, in basis points
	StatisticTypeConversionRate StatisticType = "conversion_rate"
)

var statisticTypes = []StatisticType{
	StatisticTypeDailyPaymentCount,
	StatisticTypeDailyCollected,
	StatisticTypeTotalCollected,
	StatisticTypeConversionRate,
}

// FilterableFields are the payment columns statistics may be narrowed by.
var FilterableFields = []string{"provider", "currency", "created_at"}

var ErrInvalidRequest = errors.New("invalid statistic request")

type DataItem struct {
	ID StatisticType `json:"id"`
}

type Request struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*DataItem           `json:"data_items"`
}

func (r *Request) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("%w: no data items", ErrInvalidRequest)
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("%w: unknown data item", ErrInvalidRequest)
		}
	}
	for _, f := range r.Filters {
		if err := f.Validate(FilterableFields); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return nil
}

// Build composes the WHERE clause from the request filters.
func (r *Request) Build(builder clause.Builder) {
	if len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	for i, filter := range r.Filters {
		if i > 0 {
			builder.WriteString(" AND ")
		}
		filter.Build(builder)
	}
}

// ResponseDataItem is one row of a statistic series. Value2/Value3 carry the
// denominator and numerator for rates.
type ResponseDataItem struct {
	Date   string `json:"date,omitempty"`
	Label  string `json:"label,omitempty"`
	Value  int64  `json:"value"`
	Value2 int64  `json:"value2,omitempty"`
	Value3 int64  `json:"value3,omitempty"`
}

type Response struct {
	DataItems map[StatisticType][]ResponseDataItem `json:"data_items"`
}

// Service provides statistics operations
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

// dayExpr renders column as YYYY-MM-DD in the connected dialect.
func (s *Service) dayExpr(column string) string {
	if s.db.Dialector.Name() == "postgres" {
		return fmt.Sprintf("TO_CHAR(%s, 'YYYY-MM-DD')", column)
	}
	return fmt.Sprintf("strftime('%%Y-%%m-%%d', %s)", column)
}

func (s *Service) payments(ctx context.Context, request *Request) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where(clause.Where{Exprs: []clause.Expression{request}})
}

func (s *Service) getDailyPaymentCount(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	day := s.dayExpr("created_at")
	err := s.payments(ctx, request).
		Select(day + " as date, provider as label, count(*) as value").
		Group(day).
		Group("provider").
		Order("date DESC, label ASC").
		Find(&results).Error
	return results, err
}

func (s *Service) getDailyCollected(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	day := s.dayExpr("completed_at")
	err := s.payments(ctx, request).
		Select(day+" as date, currency as label, sum(amount) as value").
		Where("status = ?", types.PaymentStatusCompleted).
		Group(day).
		Group("currency").
		Order("date DESC, label ASC").
		Find(&results).Error
	return results, err
}

func (s *Service) getTotalCollected(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var results []ResponseDataItem
	err := s.payments(ctx, request).
		Select("currency as label, sum(amount) as value").
		Where("status = ?", types.PaymentStatusCompleted).
		Group("currency").
		Order("label ASC").
		Find(&results).Error
	return results, err
}

type conversionRow struct {
	Label     string
	Total     int64
	Completed int64
}

func (s *Service) getConversionRate(ctx context.Context, request *Request) ([]ResponseDataItem, error) {
	var rows []conversionRow
	err := s.payments(ctx, request).
		Select("provider as label, count(*) as total, sum(CASE WHEN status = ? THEN 1 ELSE 0 END) as completed", types.PaymentStatusCompleted).
		Group("provider").
		Order("label ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r conversionRow, _ int) ResponseDataItem {
		var rate int64
		if r.Total > 0 {
			rate = r.Completed * 10000 / r.Total
		}
		return ResponseDataItem{Label: r.Label, Value: rate, Value2: r.Total, Value3: r.Completed}
	}), nil
}

func (s *Service) getStatistic(ctx context.Context, request *Request, dataItem *DataItem) ([]ResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeDailyPaymentCount:
		return s.getDailyPaymentCount(ctx, request)
	case StatisticTypeDailyCollected:
		return s.getDailyCollected(ctx, request)
	case StatisticTypeTotalCollected:
		return s.getTotalCollected(ctx, request)
	case StatisticTypeConversionRate:
		return s.getConversionRate(ctx, request)
	default:
		return nil, fmt.Errorf("%w: invalid data item id: %s", ErrInvalidRequest, dataItem.ID)
	}
}

// GetPaymentStatistic computes every requested data item concurrently.
func (s *Service) GetPaymentStatistic(ctx context.Context, request *Request) (*Response, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	results := make(map[StatisticType][]ResponseDataItem, len(request.DataItems))
	g, gctx := errgroup.WithContext(ctx)
	for _, item := range request.DataItems {
		item := item
		g.Go(func() error {
			res, err := s.getStatistic(gctx, request, item)
			if err != nil {
				return fmt.Errorf("%s: %w", item.ID, err)
			}
			mu.Lock()
			results[item.ID] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &Response{DataItems: results}, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
