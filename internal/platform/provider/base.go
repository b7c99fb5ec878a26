package provider

import (
	"strings"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/metrics"
	"github.com/fatflowers/paybridge/pkg/tool"
	"github.com/fatflowers/paybridge/pkg/types"
	"go.uber.org/zap"
)

// base carries what every adapter shares: credentials, the signed client and webhook verification.
type base struct {
	key    types.PaymentProvider
	cfg    config.ProviderConfig
	client *client
}

func newBase(key types.PaymentProvider, cfg config.ProviderConfig, logger *zap.SugaredLogger, m *metrics.PaymentMetrics) base {
	return base{key: key, cfg: cfg, client: newClient(key, cfg, logger, m)}
}

func (b *base) Key() types.PaymentProvider { return b.key }

func (b *base) IsConfigured() bool { return b.cfg.APIKey != "" }

// VerifyWebhook accepts every body when no secret is configured in sandbox,
// and rejects every body when no secret is configured in production.
func (b *base) VerifyWebhook(body []byte, signature string) bool {
	if b.cfg.WebhookSecret == "" {
		return !b.cfg.IsProduction()
	}
	return verifyWebhookSignature(b.cfg.WebhookSecret, body, signature)
}

func (b *base) idempotencyKey(req *InitiationRequest) string {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = tool.NewIdempotencyKey()
	}
	return req.IdempotencyKey
}

func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
