package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSendGridMailer_Send(t *testing.T) {
	var auth string
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.key", "Orders", "orders@example.com", zap.NewNop().Sugar())
	m.baseURL = srv.URL

	err := m.Send(context.Background(), &Message{ToEmail: "awa@example.com", Subject: "Order confirmed", PlainText: "ok", HTML: "<b>ok</b>"})
	require.NoError(t, err)
	require.Equal(t, "Bearer SG.key", auth)
	require.Equal(t, "Order confirmed", payload["subject"])
}

func TestSendGridMailer_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	m := NewSendGridMailer("SG.bad", "Orders", "orders@example.com", zap.NewNop().Sugar())
	m.baseURL = srv.URL

	err := m.Send(context.Background(), &Message{ToEmail: "awa@example.com", Subject: "x"})
	require.ErrorContains(t, err, "status 401")
}

func TestNew_SelectsImplementation(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := zap.New(core).Sugar()

	require.IsType(t, &LogMailer{}, New(&config.Config{}, log))
	require.Equal(t, 1, logs.Len())

	cfg := &config.Config{Mail: config.MailConfig{SendgridAPIKey: "SG.key", FromEmail: "orders@example.com"}}
	require.IsType(t, &SendGridMailer{}, New(cfg, log))
}

func TestLogMailer_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core).Sugar())
	require.NoError(t, m.Send(context.Background(), &Message{ToEmail: "awa@example.com", Subject: "s"}))
	require.Equal(t, 1, logs.FilterMessage("email not sent, mailer disabled").Len())
}
