package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/app/service/statistics"
	models "github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/fatflowers/paybridge/pkg/response"
	"github.com/fatflowers/paybridge/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

type AdminPaymentService interface {
	ScanPayments(ctx context.Context, req *payment.ScanPaymentsRequest) (*payment.ScanPaymentsResponse, error)
	StalePayments(ctx context.Context, olderThan time.Duration, limit int) ([]*models.Payment, error)
}

type AuditTrail interface {
	ListByPayment(ctx context.Context, provider types.PaymentProvider, paymentID string) ([]*models.AuditLog, error)
}

type PaymentStatistics interface {
	GetPaymentStatistic(ctx context.Context, req *statistics.Request) (*statistics.Response, error)
}

type ProviderAvailability interface {
	Availability() map[types.PaymentProvider]bool
}

type ListPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order" binding:"omitempty,oneof=asc desc"`
}

type ListPaymentsResponse struct {
	Items []*PaymentView `json:"items"`
	Total int64          `json:"total"`
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body ListPaymentsRequest true "List payments request with filters, pagination, and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments/list [post]
func ApiListPayments(svc AdminPaymentService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ListPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		scanReq := &payment.ScanPaymentsRequest{Filters: req.Filters, From: req.From, Size: req.Size, SortBy: req.SortBy, SortOrder: req.SortOrder}
		res, err := svc.ScanPayments(c.Request.Context(), scanReq)
		if err != nil {
			if errors.Is(err, payment.ErrInvalidScan) {
				c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("admin_list_payments_error", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		items := lo.Map(res.Items, func(it *models.Payment, _ int) *PaymentView { return toPaymentView(it) })
		c.JSON(http.StatusOK, response.OKT(&ListPaymentsResponse{Items: items, Total: res.Total}))
	}
}

// @Summary      Stale Pending Payments (Admin)
// @Description  Lists payments still pending after older_than (default 1h) for manual reconciliation.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        older_than  query  string  false  "Go duration, e.g. 30m"
// @Param        limit       query  int     false  "Maximum rows (default 100)"
// @Success      200  {object}  handlers.RespPaymentList
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments/stale [get]
func ApiStalePayments(svc AdminPaymentService, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q struct {
			OlderThan string `form:"older_than"`
			Limit     int    `form:"limit" binding:"omitempty,min=1,max=1000"`
		}
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		olderThan := time.Hour
		if q.OlderThan != "" {
			d, err := time.ParseDuration(q.OlderThan)
			if err != nil || d <= 0 {
				c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "invalid older_than"))
				return
			}
			olderThan = d
		}
		rows, err := svc.StalePayments(c.Request.Context(), olderThan, q.Limit)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin_stale_payments_error", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(lo.Map(rows, func(it *models.Payment, _ int) *PaymentView { return toPaymentView(it) })))
	}
}

// @Summary      Webhook Audit Trail (Admin)
// @Description  Lists audit entries recorded for one provider payment id.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        provider    query  string  true  "Provider key"
// @Param        payment_id  query  string  true  "Provider payment id"
// @Success      200  {object}  handlers.RespAuditTrail
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/admin/payments/audit [get]
func ApiAuditTrail(audit AuditTrail, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := types.ParsePaymentProvider(c.Query("provider"))
		paymentID := c.Query("payment_id")
		if !ok || paymentID == "" {
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, "provider and payment_id are required"))
			return
		}
		rows, err := audit.ListByPayment(c.Request.Context(), key, paymentID)
		if err != nil {
			logctx.FromGin(c, log).Errorw("admin_audit_trail_error", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Provider Availability (Admin)
// @Description  Reports which providers have credentials configured.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  handlers.RespProviders
// @Router       /api/v1/admin/providers [get]
func ApiProviders(p ProviderAvailability) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, response.OKT(p.Availability()))
	}
}

// @Summary      Payment Statistics (Admin)
// @Description  Daily counts, collected amounts and per provider conversion.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.Request true "Data items and filters"
// @Success      200  {object}  handlers.RespStatistics
// @Failure      400  {object}  handlers.RespOK
// @Router       /api/v1/admin/statistics [post]
func ApiPaymentStatistics(stats PaymentStatistics, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.GetPaymentStatistic(c.Request.Context(), &req)
		if err != nil {
			if errors.Is(err, statistics.ErrInvalidRequest) {
				c.JSON(http.StatusBadRequest, response.ErrorMsg(response.APIResponseCodeBadRequest, err.Error()))
				return
			}
			logctx.FromGin(c, log).Errorw("admin_statistics_error", "error", err.Error())
			c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, nil))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// AdminDeps groups the services behind the admin endpoints.
type AdminDeps struct {
	Payments   AdminPaymentService
	Audit      AuditTrail
	Statistics PaymentStatistics
	Providers  ProviderAvailability
}

// RegisterAdminPaymentRoutes mounts admin endpoints; r must already enforce the admin role.
func RegisterAdminPaymentRoutes(r gin.IRouter, deps AdminDeps, log *zap.SugaredLogger) {
	svc := deps.Payments
	r.POST("/payments/list", ApiListPayments(svc, log))
	r.GET("/payments/stale", ApiStalePayments(svc, log))
	r.GET("/payments/audit", ApiAuditTrail(deps.Audit, log))
	r.POST("/statistics", ApiPaymentStatistics(deps.Statistics, log))
	r.GET("/providers", ApiProviders(deps.Providers))
}
