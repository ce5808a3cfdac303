package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/zipfood/reset-api/pkg/logger"
)

// SESNotifier sends the "your password was changed" email through AWS SES.
type SESNotifier struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewSESNotifier creates an SES-backed notifier for the given region and
// sender address.
func NewSESNotifier(region, fromAddress string, logger *slog.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESNotifier{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// PasswordChanged notifies the account owner that their password was reset
// through the SMS flow.
func (n *SESNotifier) PasswordChanged(ctx context.Context, email, name string) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + name
	}

	textBody := fmt.Sprintf(`%s,

The password for your ZipFood account was just changed using the SMS reset flow.

If this was you, no action is needed.

If you did not request this change, your phone number may be compromised. Contact support immediately and do not share verification codes with anyone.

This is an automated message. Please do not reply to this email.
`, greeting)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your ZipFood password was changed"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := n.sesClient.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send password-changed email via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	n.logger.Info("password-changed email sent",
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
