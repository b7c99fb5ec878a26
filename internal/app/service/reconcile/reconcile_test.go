package reconcile

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubLister struct {
	rows  []*models.Payment
	err   error
	calls atomic.Int32
	got   time.Duration
}

func (l *stubLister) StalePayments(_ context.Context, olderThan time.Duration, _ int) ([]*models.Payment, error) {
	l.calls.Add(1)
	l.got = olderThan
	return l.rows, l.err
}

func TestSweep_LogsEachStalePayment(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	lister := &stubLister{rows: []*models.Payment{
		{ID: "p1", OrderID: "o1", Provider: types.PaymentProviderWave, ProviderPaymentID: "cos_1"},
		{ID: "p2", OrderID: "o2", Provider: types.PaymentProviderFreeMoney, ProviderPaymentID: "fm_2"},
	}}
	s := NewSweeper(lister, zap.New(core).Sugar(), nil, config.ReconcileConfig{StaleAfter: 2 * time.Hour})

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, 2*time.Hour, lister.got)

	stale := logs.FilterMessage("stale pending payment").All()
	require.Len(t, stale, 2)
	require.Equal(t, "cos_1", stale[0].ContextMap()["provider_payment_id"])
}

func TestSweep_Error(t *testing.T) {
	s := NewSweeper(&stubLister{err: errors.New("db down")}, zap.NewNop().Sugar(), nil, config.ReconcileConfig{})
	_, err := s.Sweep(context.Background())
	require.Error(t, err)
}

func TestSweeper_RunsOnSchedule(t *testing.T) {
	lister := &stubLister{}
	s := NewSweeper(lister, zap.NewNop().Sugar(), nil, config.ReconcileConfig{Interval: 20 * time.Millisecond})
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool { return lister.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	s := NewSweeper(&stubLister{}, zap.NewNop().Sugar(), nil, config.ReconcileConfig{})
	require.NoError(t, s.Stop())
}
