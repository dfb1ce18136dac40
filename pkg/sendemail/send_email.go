package sendemail

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

type EmailService interface {
	SendEmail(ctx context.Context, subject, toEmail, plainTextContent, htmlContent string) error
}

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sendGridService struct {
	client      sender
	senderEmail string
	senderName  string
}

func NewSendGridService(apiKey, senderEmail, senderName string) EmailService {
	return &sendGridService{
		client:      sendgrid.NewSendClient(apiKey),
		senderEmail: senderEmail,
		senderName:  senderName,
	}
}

func (e *sendGridService) SendEmail(ctx context.Context, subject, toEmail, plainTextContent, htmlContent string) error {
	from := mail.NewEmail(e.senderName, e.senderEmail)
	to := mail.NewEmail("", toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainTextContent, htmlContent)
	res, err := e.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// logService writes mail to the log instead of sending it. Used when no
// SendGrid key is configured.
type logService struct {
	logger *zap.Logger
}

func NewLogService(logger *zap.Logger) EmailService {
	return &logService{logger: logger}
}

func (l *logService) SendEmail(_ context.Context, subject, toEmail, plainTextContent, _ string) error {
	l.logger.Info("email not sent (no provider configured)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
		zap.String("body", plainTextContent))
	return nil
}
