package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"

	"finance-tracker/internal/config"

	"github.com/resend/resend-go/v2"
	"github.com/shopspring/decimal"
)

const emailServiceName = "email"

//go:embed templates/*.html
var emailTemplates embed.FS

var budgetAlertTemplate = template.Must(template.ParseFS(emailTemplates, "templates/budget_alert.html"))

type resendEmailClient interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// ResendEmailSender delivers email through the Resend API. A circuit breaker
// stops hammering the provider while it is failing.
type ResendEmailSender struct {
	client         resendEmailClient
	from           string
	circuitBreaker CircuitBreakerInterface
	metrics        MetricsRecorderInterface
	logger         *slog.Logger
}

// NewEmailSender returns a Resend-backed sender, or a sender that only logs
// when no API key is configured.
func NewEmailSender(cfg config.EmailConfig, circuitBreaker CircuitBreakerInterface, metrics MetricsRecorderInterface, logger *slog.Logger) EmailSenderInterface {
	if cfg.ResendAPIKey == "" {
		logger.Warn("RESEND_API_KEY not set, emails will only be logged")
		return &LogEmailSender{logger: logger}
	}

	client := resend.NewClient(cfg.ResendAPIKey)
	return newResendEmailSender(client.Emails, cfg.From, circuitBreaker, metrics, logger)
}

func newResendEmailSender(client resendEmailClient, from string, circuitBreaker CircuitBreakerInterface, metrics MetricsRecorderInterface, logger *slog.Logger) *ResendEmailSender {
	return &ResendEmailSender{
		client:         client,
		from:           from,
		circuitBreaker: circuitBreaker,
		metrics:        metrics,
		logger:         logger,
	}
}

func (s *ResendEmailSender) Send(ctx context.Context, to, subject, html string) error {
	if s.circuitBreaker.IsOpen() {
		s.metrics.IncrementCounter(MetricEmailFailed, map[string]string{"reason": "circuit_open"})
		return fmt.Errorf("%w: %w", ErrEmailDelivery, ErrCircuitBreakerOpen)
	}

	resp, err := s.client.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		s.circuitBreaker.RecordFailure()
		s.metrics.IncrementCounter(MetricEmailFailed, map[string]string{"reason": "provider"})
		s.logger.ErrorContext(ctx, "failed to send email",
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", ErrEmailDelivery, err)
	}

	s.circuitBreaker.RecordSuccess()
	s.metrics.IncrementCounter(MetricEmailSent, nil)
	s.logger.InfoContext(ctx, "email sent",
		slog.String("email_id", resp.Id),
		slog.String("subject", subject),
	)

	return nil
}

// LogEmailSender stands in for a real provider in local development.
type LogEmailSender struct {
	logger *slog.Logger
}

func (s *LogEmailSender) Send(ctx context.Context, to, subject, html string) error {
	s.logger.InfoContext(ctx, "email not sent, no provider configured",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(html)),
	)
	return nil
}

// BudgetAlertEmail is the data behind one budget alert message.
type BudgetAlertEmail struct {
	UserName       string
	AccountName    string
	AccountType    string
	PercentageUsed decimal.Decimal
	BudgetAmount   decimal.Decimal
	TotalExpenses  decimal.Decimal
	AppURL         string
}

type budgetAlertView struct {
	UserName       string
	AccountName    string
	AccountType    string
	PercentageUsed string
	BudgetAmount   string
	TotalExpenses  string
	Remaining      string
	Exceeded       bool
	ProgressWidth  string
	ProgressRest   string
	ProgressColor  string
	AppURL         string
}

var (
	progressWarningThreshold = decimal.NewFromInt(80)
	hundred                  = decimal.NewFromInt(100)
)

// RenderBudgetAlertEmail returns the subject and HTML body of a budget alert.
func RenderBudgetAlertEmail(data BudgetAlertEmail) (string, string, error) {
	remaining := data.BudgetAmount.Sub(data.TotalExpenses)

	progress := decimal.Min(data.PercentageUsed, hundred)
	if progress.IsNegative() {
		progress = decimal.Zero
	}

	color := "#10b981"
	if data.PercentageUsed.GreaterThan(progressWarningThreshold) {
		color = "#ef4444"
	}

	view := budgetAlertView{
		UserName:       data.UserName,
		AccountName:    data.AccountName,
		AccountType:    data.AccountType,
		PercentageUsed: data.PercentageUsed.StringFixed(1),
		BudgetAmount:   data.BudgetAmount.StringFixed(2),
		TotalExpenses:  data.TotalExpenses.StringFixed(2),
		Remaining:      remaining.Abs().StringFixed(2),
		Exceeded:       remaining.IsNegative(),
		ProgressWidth:  progress.StringFixed(1),
		ProgressRest:   hundred.Sub(progress).StringFixed(1),
		ProgressColor:  color,
		AppURL:         data.AppURL,
	}

	var body bytes.Buffer
	if err := budgetAlertTemplate.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("failed to render budget alert: %w", err)
	}

	return fmt.Sprintf("Budget Alert for %s", data.AccountName), body.String(), nil
}
