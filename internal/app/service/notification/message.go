package notification

import (
	"fmt"
	"html"

	"github.com/fatflowers/paybridge/internal/models"
	"github.com/fatflowers/paybridge/internal/platform/mailer"
)

func orderConfirmation(order *models.Order, payment *models.Payment, customer *models.PaymentCustomer) *mailer.Message {
	total := order.Total.StringFixed(2) + " " + order.Currency
	txn := ""
	if payment.TransactionID != nil {
		txn = *payment.TransactionID
	}
	text := fmt.Sprintf("Dear %s,\n\nWe received your payment for order %s.\nTotal: %s\nPaid with: %s\nTransaction: %s\n\nThank you for your purchase!",
		customer.Name, order.ID, total, payment.Provider, txn)
	body := fmt.Sprintf("<strong>Dear %s,</strong><br><br>We received your payment for order <strong>%s</strong>.<br>Total: <strong>%s</strong><br>Paid with: <strong>%s</strong><br>Transaction: %s<br><br>Thank you for your purchase!",
		html.EscapeString(customer.Name), order.ID, total, payment.Provider, html.EscapeString(txn))
	return &mailer.Message{
		ToEmail:   customer.Email,
		ToName:    customer.Name,
		Subject:   "Order confirmation",
		PlainText: text,
		HTML:      body,
	}
}
