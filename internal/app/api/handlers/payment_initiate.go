package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	mw "github.com/fatflowers/paybridge/internal/app/api/middleware"
	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/provider"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/response"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PaymentService is the part of payment.Service used by the customer endpoints.
type PaymentService interface {
	Initiate(ctx context.Context, req *payment.InitiateRequest) (*payment.InitiateResult, error)
	GetPayment(ctx context.Context, userID, paymentID string) (*models.Payment, error)
}

type InitiateCustomer struct {
	Name  string `json:"name" binding:"required,max=128"`
	Phone string `json:"phone" binding:"required,max=32"`
	Email string `json:"email" binding:"omitempty,email"`
}

type InitiatePaymentRequest struct {
	OrderID  string           `json:"order_id" binding:"required,uuid"`
	Provider string           `json:"provider" binding:"required,oneof=wave orange_money free_money"`
	Customer InitiateCustomer `json:"customer"`
	Metadata map[string]any   `json:"metadata"`
}

// @Summary      Initiate payment
// @Description  Opens a checkout session with a mobile-money provider for an order owned by the caller.
// @Tags         Payment
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body InitiatePaymentRequest true "Initiation request"
// @Success      201  {object}  handlers.RespInitiatePayment
// @Failure      400  {object}  handlers.RespFieldErrors
// @Failure      401  {object}  handlers.RespOK
// @Failure      403  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Failure      502  {object}  handlers.RespOK
// @Failure      503  {object}  handlers.RespOK
// @Router       /api/payments/initiate [post]
func ApiInitiatePayment(svc PaymentService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitiatePaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			if fields, ok := fieldErrors(err); ok {
				c.JSON(http.StatusBadRequest, response.ErrorT(response.APIResponseCodeBadRequest, fields))
				return
			}
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "invalid request body"))
			return
		}
		key, _ := types.ParsePaymentProvider(req.Provider)

		res, err := svc.Initiate(c.Request.Context(), &payment.InitiateRequest{
			UserID:   mw.UserID(c),
			OrderID:  req.OrderID,
			Provider: key,
			Customer: provider.Customer{Name: req.Customer.Name, Phone: req.Customer.Phone, Email: req.Customer.Email},
			Metadata: req.Metadata,
		})
		if err != nil {
			status, body := initiateError(err)
			if status >= http.StatusInternalServerError {
				logctx.FromGin(c, log).Errorw("payment_initiate_error", "order_id", req.OrderID, "provider", key, "error", err.Error())
			}
			c.JSON(status, body)
			return
		}
		c.JSON(http.StatusCreated, response.OKT(res))
	}
}

func initiateError(err error) (int, *response.APIResponse[any]) {
	var reqErr *provider.RequestError
	var transient *provider.TransientError
	switch {
	case errors.Is(err, payment.ErrOrderNotFound):
		return http.StatusNotFound, response.ErrorMsg(response.APIResponseCodeNotFound, "Order not found")
	case errors.Is(err, payment.ErrOrderForbidden):
		return http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil)
	case errors.Is(err, payment.ErrOrderAlreadyPaid):
		return http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "Order already paid")
	case errors.Is(err, payment.ErrInvalidAmount), errors.Is(err, provider.ErrInvalidRequest):
		return http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "Order amount cannot be charged")
	case errors.Is(err, payment.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, response.ErrorT[any](response.APIResponseCodeServiceUnavailable, nil)
	case errors.As(err, &reqErr):
		return http.StatusBadGateway, response.ErrorT[any](response.APIResponseCodeBadGateway, nil)
	case errors.As(err, &transient):
		return http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil)
	default:
		return http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil)
	}
}

type PaymentView struct {
	ID                string                `json:"id"`
	OrderID           string                `json:"order_id"`
	Provider          types.PaymentProvider `json:"provider"`
	Status            types.PaymentStatus   `json:"status"`
	Amount            int64                 `json:"amount"`
	Currency          string                `json:"currency"`
	ProviderPaymentID string                `json:"provider_payment_id"`
	CheckoutURL       string                `json:"checkout_url"`
	TransactionID     *string               `json:"transaction_id,omitempty"`
	QRCode            *string               `json:"qr_code,omitempty"`
	ExpiresAt         *time.Time            `json:"expires_at,omitempty"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func toPaymentView(p *models.Payment) *PaymentView {
	return &PaymentView{
		ID:                p.ID,
		OrderID:           p.OrderID,
		Provider:          p.Provider,
		Status:            p.Status,
		Amount:            p.Amount,
		Currency:          p.Currency,
		ProviderPaymentID: p.ProviderPaymentID,
		CheckoutURL:       p.CheckoutURL,
		TransactionID:     p.TransactionID,
		QRCode:            p.QRCode,
		ExpiresAt:         p.ExpiresAt,
		CompletedAt:       p.CompletedAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// @Summary      Get payment
// @Description  Returns a payment of an order owned by the caller.
// @Tags         Payment
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Payment ID"
// @Success      200  {object}  handlers.RespPayment
// @Failure      401  {object}  handlers.RespOK
// @Failure      403  {object}  handlers.RespOK
// @Failure      404  {object}  handlers.RespOK
// @Router       /api/payments/{id} [get]
func ApiGetPayment(svc PaymentService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := svc.GetPayment(c.Request.Context(), mw.UserID(c), c.Param("id"))
		switch {
		case err == nil:
			c.JSON(http.StatusOK, response.OKT(toPaymentView(p)))
		case errors.Is(err, payment.ErrPaymentNotFound):
			c.JSON(http.StatusNotFound, response.ErrorMsg(response.APIResponseCodeNotFound, "Payment not found"))
		case errors.Is(err, payment.ErrOrderForbidden):
			c.JSON(http.StatusForbidden, response.ErrorT[any](response.APIResponseCodeForbidden, nil))
		default:
			logctx.FromGin(c, log).Errorw("payment_get_error", "payment_id", c.Param("id"), "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
		}
	}
}

// RegisterPaymentRoutes mounts the customer endpoints; r must already enforce authentication.
func RegisterPaymentRoutes(r gin.IRouter, svc PaymentService, log *zap.SugaredLogger) {
	useJSONFieldNames()
	r.POST("/initiate", ApiInitiatePayment(svc, log))
	r.GET("/:id", ApiGetPayment(svc, log))
}
