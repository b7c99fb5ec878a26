package mailer

import (
	"context"
	"fmt"

	"github.com/fatflowers/paybridge/pkg/config"
	"github.com/fatflowers/paybridge/pkg/logctx"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Message struct {
	ToEmail   string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
}

// Mailer delivers a single transactional email.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// SendGridMailer sends mail through the SendGrid v3 API.
type SendGridMailer struct {
	apiKey   string
	// baseURL overrides the SendGrid endpoint when set.
	baseURL  string
	fromName string
	fromAddr string
	log      *zap.SugaredLogger
}

func NewSendGridMailer(apiKey, fromName, fromAddr string, log *zap.SugaredLogger) *SendGridMailer {
	return &SendGridMailer{
		apiKey:   apiKey,
		fromName: fromName,
		fromAddr: fromAddr,
		log:      log,
	}
}

func (m *SendGridMailer) Send(ctx context.Context, msg *Message) error {
	from := mail.NewEmail(m.fromName, m.fromAddr)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	email := mail.NewSingleEmail(from, msg.Subject, to, msg.PlainText, msg.HTML)

	// sendgrid.Client keeps the request body on itself, so each send gets its own.
	client := sendgrid.NewSendClient(m.apiKey)
	if m.baseURL != "" {
		client.BaseURL = m.baseURL
	}
	resp, err := client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid rejected email (status %d): %s", resp.StatusCode, resp.Body)
	}
	logctx.FromCtx(ctx, m.log).Debugw("email sent", "to", msg.ToEmail, "subject", msg.Subject)
	return nil
}

// LogMailer only logs messages. Used when no SendGrid key is configured.
type LogMailer struct {
	log *zap.SugaredLogger
}

func NewLogMailer(log *zap.SugaredLogger) *LogMailer { return &LogMailer{log: log} }

func (m *LogMailer) Send(ctx context.Context, msg *Message) error {
	logctx.FromCtx(ctx, m.log).Infow("email not sent, mailer disabled",
		"to", msg.ToEmail,
		"subject", msg.Subject,
	)
	return nil
}

func New(cfg *config.Config, log *zap.SugaredLogger) Mailer {
	if cfg.Mail.SendgridAPIKey == "" {
		log.Warn("mail.sendgrid_api_key is empty, order emails will only be logged")
		return NewLogMailer(log)
	}
	return NewSendGridMailer(cfg.Mail.SendgridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail, log)
}

var Module = fx.Options(
	fx.Provide(New),
)
