package audit_log

import (
	"context"
	"testing"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/db/dbtest"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/types"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func entry(outcome models.AuditLogOutcome) *models.AuditLog {
	return &models.AuditLog{
		Provider:  types.PaymentProviderWave,
		PaymentID: "cos_1",
		EventType: "checkout.session.completed",
		Status:    types.PaymentStatusCompleted,
		Outcome:   outcome,
		Payload:   []byte(`{"type":"checkout.session.completed"}`),
	}
}

func TestAppend_FillsIDAndTraceID(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.WithValue(context.Background(), logctx.KeyTraceID, "trace-1")

	e := entry(models.AuditLogOutcomeProcessed)
	require.NoError(t, svc.Append(ctx, nil, e))
	require.NotEmpty(t, e.ID)

	rows, err := svc.ListByPayment(ctx, types.PaymentProviderWave, "cos_1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "trace-1", rows[0].TraceID)
}

func TestExistsForReplay_IgnoresNotFoundEntries(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	require.NoError(t, svc.Append(ctx, nil, entry(models.AuditLogOutcomePaymentNotFound)))
	ok, err := svc.ExistsForReplay(ctx, nil, types.PaymentProviderWave, "cos_1", "checkout.session.completed")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.Append(ctx, nil, entry(models.AuditLogOutcomeIgnored)))
	ok, err = svc.ExistsForReplay(ctx, nil, types.PaymentProviderWave, "cos_1", "checkout.session.completed")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.ExistsForReplay(ctx, nil, types.PaymentProviderWave, "cos_1", "checkout.session.expired")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExistsForReplay_MatchesCountsForReplay(t *testing.T) {
	outcomes := []models.AuditLogOutcome{
		models.AuditLogOutcomeProcessed,
		models.AuditLogOutcomeIgnored,
		models.AuditLogOutcomePaymentNotFound,
	}
	for _, outcome := range outcomes {
		t.Run(string(outcome), func(t *testing.T) {
			db := dbtest.New(t)
			svc := New(db, zap.NewNop().Sugar())
			ctx := context.Background()

			require.NoError(t, svc.Append(ctx, nil, entry(outcome)))
			ok, err := svc.ExistsForReplay(ctx, nil, types.PaymentProviderWave, "cos_1", "checkout.session.completed")
			require.NoError(t, err)
			require.Equal(t, outcome.CountsForReplay(), ok)
		})
	}
}

func TestAppend_RolledBackWithTransaction(t *testing.T) {
	db := dbtest.New(t)
	svc := New(db, zap.NewNop().Sugar())
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Append(ctx, tx, entry(models.AuditLogOutcomeProcessed)))
		return gorm.ErrInvalidTransaction
	})
	require.ErrorIs(t, err, gorm.ErrInvalidTransaction)

	rows, err := svc.ListByPayment(ctx, types.PaymentProviderWave, "cos_1")
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestAppend_Nil(t *testing.T) {
	svc := New(dbtest.New(t), zap.NewNop().Sugar())
	require.Error(t, svc.Append(context.Background(), nil, nil))
}
