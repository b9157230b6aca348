// Package email delivers account emails (verification and password reset codes).
package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/telemetry"
	"go.uber.org/zap"
)

// Sender delivers account codes to a user's mailbox.
type Sender interface {
	SendVerificationCode(ctx context.Context, to, name, code string) error
	SendPasswordResetCode(ctx context.Context, to, name, code string) error
}

// sesAPI is the part of the SES client used here
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESSender sends email through AWS SES
type SESSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
	baseURL   string
}

// NewSESSender loads the default AWS credential chain for region.
func NewSESSender(region, fromEmail, fromName, baseURL string) (*SESSender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESSender{
		client:    ses.NewFromConfig(cfg),
		fromEmail: fromEmail,
		fromName:  fromName,
		baseURL:   baseURL,
	}, nil
}

func (e *SESSender) SendVerificationCode(ctx context.Context, to, name, code string) error {
	subject, text := verificationBody(name, code, e.baseURL)
	return e.send(ctx, "verify_email", to, subject, text)
}

func (e *SESSender) SendPasswordResetCode(ctx context.Context, to, name, code string) error {
	subject, text := resetBody(name, code, e.baseURL)
	return e.send(ctx, "reset_password", to, subject, text)
}

func (e *SESSender) send(ctx context.Context, kind, to, subject, text string) error {
	ctx, span := telemetry.TraceExternalCall(ctx, "ses", "send_email", kind)
	defer span.End()

	from := e.fromEmail
	if e.fromName != "" {
		from = fmt.Sprintf("%s <%s>", e.fromName, e.fromEmail)
	}

	input := &ses.SendEmailInput{
		Source:      aws.String(from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
			},
		},
	}
	if _, err := e.client.SendEmail(ctx, input); err != nil {
		telemetry.RecordExternalCallError(span, err, 0)
		return fmt.Errorf("failed to send %s email: %w", kind, err)
	}
	return nil
}

func verificationBody(name, code, baseURL string) (string, string) {
	return "Verify your HireWire email", fmt.Sprintf(`Hi %s,

Your HireWire verification code is %s. It expires in 15 minutes.

Enter it at %s/verify-email to finish setting up your account.
`, name, code, baseURL)
}

func resetBody(name, code, baseURL string) (string, string) {
	return "Reset your HireWire password", fmt.Sprintf(`Hi %s,

Your password reset code is %s. It expires in 15 minutes.

Enter it at %s/reset-password. If you did not ask for a reset you can ignore this email.
`, name, code, baseURL)
}

// LogSender writes codes to the log instead of sending mail. For development.
type LogSender struct{}

func (LogSender) SendVerificationCode(_ context.Context, to, _, code string) error {
	logger.Log.Info("Verification code", zap.String("to", to), zap.String("code", code))
	return nil
}

func (LogSender) SendPasswordResetCode(_ context.Context, to, _, code string) error {
	logger.Log.Info("Password reset code", zap.String("to", to), zap.String("code", code))
	return nil
}

var (
	_ Sender = (*SESSender)(nil)
	_ Sender = LogSender{}
)
