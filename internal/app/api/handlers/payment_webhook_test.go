package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/paybridge/internal/app/service/webhook"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/types"
)

type stubWebhookSvc struct {
	err       error
	calls     int
	key       types.PaymentProvider
	body      []byte
	signature string
}

func (s *stubWebhookSvc) Handle(_ context.Context, key types.PaymentProvider, body []byte, signature string) (*webhook.Result, error) {
	s.calls++
	s.key, s.body, s.signature = key, body, signature
	return &webhook.Result{Outcome: webhook.OutcomeProcessed}, s.err
}

func webhookRouter(svc WebhookService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPaymentWebhookRoutes(r.Group("/api/payments/webhook"), svc, zap.NewNop().Sugar())
	return r
}

func postWebhook(r http.Handler, provider string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook/"+provider, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestApiPaymentWebhook_Acknowledges(t *testing.T) {
	svc := &stubWebhookSvc{}
	body := []byte(`{"type":"checkout.session.completed"}`)
	w := postWebhook(webhookRouter(svc), "wave", body, map[string]string{"X-Wave-Signature": "abc"})

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"code":0,"message":"ok","data":{"received":true}}`, w.Body.String())
	require.Equal(t, types.PaymentProviderWave, svc.key)
	require.Equal(t, body, svc.body)
	require.Equal(t, "abc", svc.signature)
}

func TestApiPaymentWebhook_UnknownProvider(t *testing.T) {
	svc := &stubWebhookSvc{}
	w := postWebhook(webhookRouter(svc), "paypal", []byte(`{}`), nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Zero(t, svc.calls)
}

func TestApiPaymentWebhook_SignatureHeaderVariants(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"underscore form", map[string]string{"x-orange_money-signature": "u", "x-orange-money-signature": "d", "x-signature": "g"}, "u"},
		{"dashed form", map[string]string{"x-orange-money-signature": "d", "x-signature": "g"}, "d"},
		{"generic", map[string]string{"x-signature": "g"}, "g"},
		{"none", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubWebhookSvc{}
			postWebhook(webhookRouter(svc), "orange_money", []byte(`{}`), tc.headers)
			require.Equal(t, tc.want, svc.signature)
		})
	}
}

func TestApiPaymentWebhook_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{webhook.ErrInvalidSignature, http.StatusUnauthorized},
		{provider.ErrMalformedWebhook, http.StatusBadRequest},
		{webhook.ErrPaymentNotFound, http.StatusNotFound},
		{provider.ErrUnknownProvider, http.StatusNotFound},
		{errors.New("deadlock detected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := postWebhook(webhookRouter(&stubWebhookSvc{err: tc.err}), "free_money", []byte(`{}`), nil)
			require.Equal(t, tc.code, w.Code)
			require.NotContains(t, w.Body.String(), "deadlock")
		})
	}
}

func TestApiPaymentWebhook_BodyLimit(t *testing.T) {
	svc := &stubWebhookSvc{}
	big := []byte(`{"pad":"` + strings.Repeat("a", maxWebhookBody) + `"}`)
	w := postWebhook(webhookRouter(svc), "wave", big, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	require.Zero(t, svc.calls)
}
