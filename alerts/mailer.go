package alerts

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/linesmerrill/push-dispatcher/models"
	templates "github.com/linesmerrill/push-dispatcher/templates/html"
)

const (
	fromName    = "Push Dispatcher"
	fromAddress = "no-reply@push-dispatcher.local"
)

// EmailClient sends a prepared SendGrid message
type EmailClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer emails a run report when a run needs attention
type Mailer struct {
	client EmailClient
	to     string
}

// NewMailer creates a mailer backed by the SendGrid API
func NewMailer(apiKey, to string) *Mailer {
	return NewMailerWithClient(sendgrid.NewSendClient(apiKey), to)
}

// NewMailerWithClient creates a mailer that sends through client
func NewMailerWithClient(client EmailClient, to string) *Mailer {
	return &Mailer{client: client, to: to}
}

// Report sends the run report if the run failed or left failed notifications.
// Clean and skipped runs are not reported.
func (m *Mailer) Report(ctx context.Context, report models.RunReport, runErr error) error {
	if report.Skipped || (runErr == nil && report.Failed == 0) {
		return nil
	}

	from := mail.NewEmail(fromName, fromAddress)
	to := mail.NewEmail("", m.to)
	subject := templates.RunReportSubject(report)
	message := mail.NewSingleEmail(from, subject, to, templates.RenderRunReportText(report), templates.RenderRunReportEmail(report))

	response, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		zap.S().Errorw("failed to send run report", "error", err, "runId", report.RunID)
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "runId", report.RunID)
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}
	zap.S().Infow("run report sent", "to", m.to, "subject", subject, "runId", report.RunID)
	return nil
}
