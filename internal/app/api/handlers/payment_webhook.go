package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/fatflowers/paybridge/internal/app/service/webhook"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/response"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

type WebhookService interface {
	Handle(ctx context.Context, key types.PaymentProvider, body []byte, signature string) (*webhook.Result, error)
}

type WebhookAck struct {
	Received bool `json:"received"`
}

// signatureHeader returns the first non-empty signature header for key:
// x-<key>-signature, x-<key with dashes>-signature, x-signature.
func signatureHeader(h http.Header, key types.PaymentProvider) string {
	candidates := []string{
		"x-" + string(key) + "-signature",
		"x-" + strings.ReplaceAll(string(key), "_", "-") + "-signature",
		"x-signature",
	}
	for _, name := range candidates {
		if v := h.Get(name); v != "" {
			return v
		}
	}
	return ""
}

// @Summary      Provider webhook
// @Description  Receives payment status notifications. Authenticated by the provider HMAC signature over the raw body.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        provider  path  string  true  "Provider key"  Enums(wave, orange_money, free_money)
// @Param        payload   body  object  true  "Provider specific webhook payload"
// @Success      200  {object}  handlers.RespWebhookAck
// @Failure      400  {object}  handlers.RespOK
// @Failure      401  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/payments/webhook/{provider} [post]
func ApiPaymentWebhook(svc WebhookService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := types.ParsePaymentProvider(c.Param("provider"))
		if !ok {
			c.JSON(http.StatusNotFound, response.ErrorMsg(response.APIResponseCodeNotFound, "Unknown provider"))
			return
		}
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, response.ErrorMsg(response.APIResponseCodeBadRequest, "payload too large"))
				return
			}
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "unreadable body"))
			return
		}

		_, err = svc.Handle(c.Request.Context(), key, body, signatureHeader(c.Request.Header, key))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OKT(WebhookAck{Received: true}))
		case errors.Is(err, provider.ErrUnknownProvider):
			c.JSON(http.StatusNotFound, response.ErrorMsg(response.APIResponseCodeNotFound, "Unknown provider"))
		case errors.Is(err, webhook.ErrInvalidSignature):
			c.JSON(http.StatusUnauthorized, response.ErrorMsg(response.APIResponseCodeUnauthorized, "Invalid signature"))
		case errors.Is(err, provider.ErrMalformedWebhook):
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "Malformed payload"))
		case errors.Is(err, webhook.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, response.ErrorMsg(response.APIResponseCodeNotFound, "Payment not found"))
		default:
			logctx.FromGin(c, log).Errorw("webhook_handle_error", "provider", key, "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
		}
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, svc WebhookService, log *zap.SugaredLogger) {
	// Mount under provided group, expected at "/api/payments/webhook"
	r.POST("/:provider", ApiPaymentWebhook(svc, log))
}
