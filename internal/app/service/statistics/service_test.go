package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/db/dbtest"
	"github.com/fatflowers/paybridge/pkg/tool"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedPayment(t *testing.T, db *gorm.DB, p types.PaymentProvider, status types.PaymentStatus, amount int64, currency string, at time.Time) {
	t.Helper()
	row := &models.Payment{
		ID:                tool.GenerateUUIDV7(),
		OrderID:           tool.GenerateUUIDV7(),
		Provider:          p,
		Amount:            amount,
		Currency:          currency,
		Status:            status,
		ProviderPaymentID: tool.GenerateUUIDV7(),
		CreatedAt:         at,
		UpdatedAt:         at,
	}
	if status == types.PaymentStatusCompleted {
		row.CompletedAt = lo.ToPtr(at)
	}
	require.NoError(t, db.Create(row).Error)
}

func TestGetPaymentStatistic(t *testing.T) {
	db := dbtest.New(t)
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	seedPayment(t, db, types.PaymentProviderWave, types.PaymentStatusCompleted, 1000000, "XOF", day1)
	seedPayment(t, db, types.PaymentProviderWave, types.PaymentStatusFailed, 500000, "XOF", day1)
	seedPayment(t, db, types.PaymentProviderOrangeMoney, types.PaymentStatusCompleted, 250000, "XOF", day2)
	seedPayment(t, db, types.PaymentProviderWave, types.PaymentStatusPending, 100, "XOF", day2)

	svc := New(db)
	res, err := svc.GetPaymentStatistic(context.Background(), &Request{DataItems: []*DataItem{
		{ID: StatisticTypeDailyPaymentCount},
		{ID: StatisticTypeDailyCollected},
		{ID: StatisticTypeTotalCollected},
		{ID: StatisticTypeConversionRate},
	}})
	require.NoError(t, err)

	require.Equal(t, []ResponseDataItem{
		{Date: "2026-03-02", Label: "orange_money", Value: 1},
		{Date: "2026-03-02", Label: "wave", Value: 1},
		{Date: "2026-03-01", Label: "wave", Value: 2},
	}, res.DataItems[StatisticTypeDailyPaymentCount])

	require.Equal(t, []ResponseDataItem{
		{Date: "2026-03-02", Label: "XOF", Value: 250000},
		{Date: "2026-03-01", Label: "XOF", Value: 1000000},
	}, res.DataItems[StatisticTypeDailyCollected])

	require.Equal(t, []ResponseDataItem{{Label: "XOF", Value: 1250000}}, res.DataItems[StatisticTypeTotalCollected])

	require.Equal(t, []ResponseDataItem{
		{Label: "orange_money", Value: 10000, Value2: 1, Value3: 1},
		{Label: "wave", Value: 3333, Value2: 3, Value3: 1},
	}, res.DataItems[StatisticTypeConversionRate])
}

func TestGetPaymentStatistic_Filters(t *testing.T) {
	db := dbtest.New(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedPayment(t, db, types.PaymentProviderWave, types.PaymentStatusCompleted, 1000, "XOF", now)
	seedPayment(t, db, types.PaymentProviderFreeMoney, types.PaymentStatusCompleted, 2000, "XOF", now)

	res, err := New(db).GetPaymentStatistic(context.Background(), &Request{
		Filters:   []*types.CommonFilter{{Field: "provider", Operator: types.CommonFilterOperatorEq, Values: []any{"free_money"}}},
		DataItems: []*DataItem{{ID: StatisticTypeTotalCollected}},
	})
	require.NoError(t, err)
	require.Equal(t, []ResponseDataItem{{Label: "XOF", Value: 2000}}, res.DataItems[StatisticTypeTotalCollected])
}

func TestGetPaymentStatistic_Invalid(t *testing.T) {
	svc := New(dbtest.New(t))
	cases := []*Request{
		{},
		{DataItems: []*DataItem{{ID: "renewal_success_rate"}}},
		{
			DataItems: []*DataItem{{ID: StatisticTypeTotalCollected}},
			Filters:   []*types.CommonFilter{{Field: "metadata", Operator: types.CommonFilterOperatorEq, Values: []any{"x"}}},
		},
	}
	for _, req := range cases {
		_, err := svc.GetPaymentStatistic(context.Background(), req)
		require.ErrorIs(t, err, ErrInvalidRequest)
	}
}
