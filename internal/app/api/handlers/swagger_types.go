package handlers

import (
	"github.com/fatflowers/paybridge/internal/app/service/payment"
	"github.com/fatflowers/paybridge/internal/app/service/statistics"
	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/pkg/response"
	"github.com/fatflowers/paybridge/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespFieldErrors is the 400 envelope listing failed validation rules.
type RespFieldErrors struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []FieldError             `json:"data"`
}

type RespInitiatePayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payment.InitiateResult   `json:"data"`
}

type RespPayment struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    PaymentView              `json:"data"`
}

type RespPaymentList struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []PaymentView            `json:"data"`
}

// RespListPayments wraps ListPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ListPaymentsResponse     `json:"data"`
}

type RespWebhookAck struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    WebhookAck               `json:"data"`
}

type RespAuditTrail struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.AuditLog        `json:"data"`
}

type RespProviders struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    map[types.PaymentProvider]bool `json:"data"`
}

type RespStatistics struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    statistics.Response      `json:"data"`
}
