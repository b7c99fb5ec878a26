package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"

	auditlog "github.com/fatflowers/paybridge/internal/app/service/audit_log"
	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/db/dbtest"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/tool"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][2]string
}

func (n *recordingNotifier) NotifyOrderPaid(_ context.Context, orderID, paymentID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, [2]string{orderID, paymentID})
}

type fixture struct {
	svc      *Service
	db       *gorm.DB
	notifier *recordingNotifier
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log := zap.NewNop().Sugar()
	factory := provider.NewFactory(config.ProvidersConfig{
		Wave: config.ProviderConfig{
			APIKey:        "key",
			WebhookSecret: webhookSecret,
			Environment:   types.ProviderEnvironmentSandbox,
		},
	}, log, nil)
	n := &recordingNotifier{}
	return &fixture{
		svc:      NewService(db, log, factory, auditlog.New(db, log), n, nil),
		db:       db,
		notifier: n,
	}
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func waveEvent(eventType, ppid, status string) []byte {
	return []byte(fmt.Sprintf(`{"type":%q,"data":{"id":%q,"transaction_id":"T_%s","amount":"1000000","currency":"XOF","status":%q},"timestamp":"2026-01-02T15:04:05Z"}`,
		eventType, ppid, ppid, status))
}

func (f *fixture) seed(t *testing.T, ppid string) (*models.Order, *models.Payment) {
	t.Helper()
	order := &models.Order{
		ID:            tool.GenerateUUIDV7(),
		UserID:        "user-1",
		Total:         decimal.NewFromInt(10000),
		Currency:      "XOF",
		PaymentStatus: types.OrderPaymentStatusProcessing,
	}
	require.NoError(t, f.db.Create(order).Error)
	return order, f.retry(t, order, ppid)
}

// retry adds a new pending payment to order and points the order at it.
func (f *fixture) retry(t *testing.T, order *models.Order, ppid string) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		ID:                tool.GenerateUUIDV7(),
		OrderID:           order.ID,
		Provider:          types.PaymentProviderWave,
		Amount:            order.AmountInSmallestUnit(),
		Currency:          "XOF",
		Status:            types.PaymentStatusPending,
		ProviderPaymentID: ppid,
	}
	require.NoError(t, f.db.Create(payment).Error)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("payment_id", payment.ID).Error)
	order.PaymentID = &payment.ID
	return payment
}

func (f *fixture) deliver(t *testing.T, body []byte) (*Result, error) {
	t.Helper()
	return f.svc.Handle(context.Background(), types.PaymentProviderWave, body, sign(body))
}

func (f *fixture) reload(t *testing.T, order *models.Order, payment *models.Payment) (models.Order, models.Payment) {
	t.Helper()
	var o models.Order
	var p models.Payment
	require.NoError(t, f.db.Where("id = ?", order.ID).First(&o).Error)
	require.NoError(t, f.db.Where("id = ?", payment.ID).First(&p).Error)
	return o, p
}

func (f *fixture) audits(t *testing.T, ppid string) []models.AuditLog {
	t.Helper()
	var rows []models.AuditLog
	require.NoError(t, f.db.Where("payment_id = ?", ppid).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func TestHandle_SuccessCompletesPaymentAndOrder(t *testing.T) {
	f := setup(t)
	order, payment := f.seed(t, "cos_1")
	require.EqualValues(t, 1000000, payment.Amount)

	res, err := f.deliver(t, waveEvent("checkout.session.completed", "cos_1", "SUCCESS"))
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, res.Outcome)
	require.Equal(t, types.PaymentStatusCompleted, res.Status)

	o, p := f.reload(t, order, payment)
	require.Equal(t, types.PaymentStatusCompleted, p.Status)
	require.NotNil(t, p.CompletedAt)
	require.Equal(t, "T_cos_1", *p.TransactionID)
	require.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)
	require.Equal(t, "T_cos_1", *o.TransactionID)

	rows := f.audits(t, "cos_1")
	require.Len(t, rows, 1)
	require.Equal(t, models.AuditLogOutcomeProcessed, rows[0].Outcome)
	require.Equal(t, types.PaymentStatusCompleted, rows[0].Status)
	require.Equal(t, [][2]string{{order.ID, payment.ID}}, f.notifier.calls)
	require.Equal(t, sign(waveEvent("checkout.session.completed", "cos_1", "SUCCESS")), rows[0].Metadata["signature"])
}

func TestHandle_ReplayIsAcknowledgedWithoutMutation(t *testing.T) {
	f := setup(t)
	f.seed(t, "cos_1")
	body := waveEvent("checkout.session.completed", "cos_1", "SUCCESS")

	_, err := f.deliver(t, body)
	require.NoError(t, err)
	res, err := f.deliver(t, body)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, res.Outcome)

	require.Len(t, f.audits(t, "cos_1"), 1)
	require.Len(t, f.notifier.calls, 1)
}

func TestHandle_UnknownPaymentIsAuditedAndRetryable(t *testing.T) {
	f := setup(t)
	body := waveEvent("checkout.session.completed", "cos_late", "SUCCESS")

	res, err := f.deliver(t, body)
	require.ErrorIs(t, err, ErrPaymentNotFound)
	require.Equal(t, OutcomePaymentNotFound, res.Outcome)

	rows := f.audits(t, "cos_late")
	require.Len(t, rows, 1)
	require.Equal(t, models.AuditLogOutcomePaymentNotFound, rows[0].Outcome)
	require.Equal(t, "Payment not found", rows[0].Metadata["error"])

	order, payment := f.seed(t, "cos_late")
	res, err = f.deliver(t, body)
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, res.Outcome)
	o, p := f.reload(t, order, payment)
	require.Equal(t, types.PaymentStatusCompleted, p.Status)
	require.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)
}

func TestHandle_RejectsBadSignatureBeforeParsing(t *testing.T) {
	f := setup(t)
	f.seed(t, "cos_1")
	body := waveEvent("checkout.session.completed", "cos_1", "SUCCESS")

	res, err := f.svc.Handle(context.Background(), types.PaymentProviderWave, body, sign([]byte("other")))
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Equal(t, OutcomeInvalidSignature, res.Outcome)

	_, err = f.svc.Handle(context.Background(), types.PaymentProviderWave, []byte("not json"), "")
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Empty(t, f.audits(t, "cos_1"))
}

func TestHandle_MalformedAndUnknownProvider(t *testing.T) {
	f := setup(t)

	body := []byte(`{"type":"checkout.session.completed","data":{}}`)
	res, err := f.deliver(t, body)
	require.ErrorIs(t, err, provider.ErrMalformedWebhook)
	require.Equal(t, OutcomeMalformed, res.Outcome)

	res, err = f.svc.Handle(context.Background(), types.PaymentProvider("paypal"), body, sign(body))
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
	require.Equal(t, OutcomeUnknownProvider, res.Outcome)
}

func TestHandle_CompletedPaymentIsNeverDowngraded(t *testing.T) {
	f := setup(t)
	order, payment := f.seed(t, "cos_1")

	_, err := f.deliver(t, waveEvent("checkout.session.completed", "cos_1", "SUCCESS"))
	require.NoError(t, err)
	res, err := f.deliver(t, waveEvent("checkout.session.expired", "cos_1", "EXPIRED"))
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, res.Outcome)

	o, p := f.reload(t, order, payment)
	require.Equal(t, types.PaymentStatusCompleted, p.Status)
	require.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)

	rows := f.audits(t, "cos_1")
	require.Len(t, rows, 2)
	require.Equal(t, models.AuditLogOutcomeIgnored, rows[1].Outcome)

	res, err = f.deliver(t, waveEvent("checkout.session.expired", "cos_1", "EXPIRED"))
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, res.Outcome)
	require.Len(t, f.notifier.calls, 1)
}

func TestHandle_LateSuccessAfterFailure(t *testing.T) {
	f := setup(t)
	order, payment := f.seed(t, "cos_1")

	_, err := f.deliver(t, waveEvent("checkout.session.payment_failed", "cos_1", "FAILED"))
	require.NoError(t, err)
	o, p := f.reload(t, order, payment)
	require.Equal(t, types.PaymentStatusFailed, p.Status)
	require.Equal(t, types.OrderPaymentStatusFailed, o.PaymentStatus)
	require.Empty(t, f.notifier.calls)

	_, err = f.deliver(t, waveEvent("checkout.session.completed", "cos_1", "SUCCESS"))
	require.NoError(t, err)
	o, p = f.reload(t, order, payment)
	require.Equal(t, types.PaymentStatusCompleted, p.Status)
	require.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)
	require.Len(t, f.notifier.calls, 1)
}

func TestHandle_AmountMismatchIsFlagged(t *testing.T) {
	f := setup(t)
	f.seed(t, "cos_1")
	body := []byte(`{"type":"checkout.session.completed","data":{"id":"cos_1","amount":"1","currency":"XOF","status":"SUCCESS"}}`)

	_, err := f.deliver(t, body)
	require.NoError(t, err)
	rows := f.audits(t, "cos_1")
	require.Len(t, rows, 1)
	require.Equal(t, true, rows[0].Metadata["amount_mismatch"])
}

func TestHandle_SecondPaymentOnPaidOrderIsFlagged(t *testing.T) {
	f := setup(t)
	order, first := f.seed(t, "cos_1")
	second := f.retry(t, order, "cos_2")

	_, err := f.deliver(t, waveEvent("checkout.session.completed", "cos_1", "SUCCESS"))
	require.NoError(t, err)
	o, _ := f.reload(t, order, first)
	require.Equal(t, types.OrderPaymentStatusPaid, o.PaymentStatus)
	require.Equal(t, first.ID, *o.PaymentID)

	res, err := f.deliver(t, waveEvent("checkout.session.completed", "cos_2", "SUCCESS"))
	require.NoError(t, err)
	require.Equal(t, OutcomeProcessed, res.Outcome)

	o, p := f.reload(t, order, second)
	require.Equal(t, types.PaymentStatusCompleted, p.Status)
	require.Equal(t, first.ID, *o.PaymentID)
	require.Equal(t, "T_cos_1", *o.TransactionID)
	require.Equal(t, [][2]string{{order.ID, first.ID}}, f.notifier.calls)

	require.Empty(t, f.audits(t, "cos_1")[0].Metadata["duplicate_completion"])
	rows := f.audits(t, "cos_2")
	require.Len(t, rows, 1)
	require.Equal(t, true, rows[0].Metadata["duplicate_completion"])
	require.Equal(t, first.ID, rows[0].Metadata["paid_by_payment_id"])
}

func TestHandle_SupersededPaymentFailureKeepsOrder(t *testing.T) {
	f := setup(t)
	order, first := f.seed(t, "cos_1")
	second := f.retry(t, order, "cos_2")

	_, err := f.deliver(t, waveEvent("checkout.session.expired", "cos_1", "EXPIRED"))
	require.NoError(t, err)

	o, p := f.reload(t, order, first)
	require.Equal(t, types.PaymentStatusFailed, p.Status)
	require.Equal(t, types.OrderPaymentStatusProcessing, o.PaymentStatus)
	require.Equal(t, second.ID, *o.PaymentID)
	rows := f.audits(t, "cos_1")
	require.Len(t, rows, 1)
	require.Equal(t, "superseded", rows[0].Metadata["order_kept"])
	require.Equal(t, second.ID, rows[0].Metadata["current_payment_id"])

	_, err = f.deliver(t, waveEvent("checkout.session.payment_failed", "cos_2", "FAILED"))
	require.NoError(t, err)
	o, _ = f.reload(t, order, second)
	require.Equal(t, types.OrderPaymentStatusFailed, o.PaymentStatus)
}

func TestOrderTransition(t *testing.T) {
	txn := "T1"
	current := &models.Payment{ID: "p-2", Provider: types.PaymentProviderWave}
	stale := &models.Payment{ID: "p-1", Provider: types.PaymentProviderWave}
	cases := []struct {
		name    string
		order   types.OrderPaymentStatus
		payment *models.Payment
		status  types.PaymentStatus
		want    map[string]any
	}{
		{"paid stays paid on failure", types.OrderPaymentStatusPaid, current, types.PaymentStatusFailed, nil},
		{"paid stays paid on success", types.OrderPaymentStatusPaid, stale, types.PaymentStatusCompleted, nil},
		{"processing to paid", types.OrderPaymentStatusProcessing, current, types.PaymentStatusCompleted,
			map[string]any{"payment_status": types.OrderPaymentStatusPaid, "transaction_id": "T1", "payment_id": "p-2", "payment_method": "wave"}},
		{"stale payment still pays", types.OrderPaymentStatusProcessing, stale, types.PaymentStatusCompleted,
			map[string]any{"payment_status": types.OrderPaymentStatusPaid, "transaction_id": "T1", "payment_id": "p-1", "payment_method": "wave"}},
		{"processing to failed on cancel", types.OrderPaymentStatusProcessing, current, types.PaymentStatusCancelled,
			map[string]any{"payment_status": types.OrderPaymentStatusFailed}},
		{"stale payment failure keeps order", types.OrderPaymentStatusProcessing, stale, types.PaymentStatusFailed, nil},
		{"already failed", types.OrderPaymentStatusFailed, current, types.PaymentStatusFailed, nil},
		{"pending event leaves order", types.OrderPaymentStatusProcessing, current, types.PaymentStatusPending, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := &models.Order{PaymentStatus: tc.order, PaymentID: &current.ID}
			got := orderTransition(order, tc.payment, tc.status, &txn)
			if tc.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tc.want, got)
		})
	}
}
