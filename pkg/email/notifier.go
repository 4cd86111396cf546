package email

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// Notifier sends transactional mail
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SESNotifier sends mail through Amazon SES
type SESNotifier struct {
	client *sesv2.Client
	sender string
	logger *zap.Logger
}

func NewSESNotifier(ctx context.Context, region, sender string, logger *zap.Logger) (*SESNotifier, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &SESNotifier{
		client: sesv2.NewFromConfig(cfg),
		sender: sender,
		logger: logger,
	}, nil
}

func (n *SESNotifier) Send(ctx context.Context, to, subject, body string) error {
	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &n.sender,
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body:    &types.Body{Text: &types.Content{Data: &body}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	n.logger.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// NoopNotifier discards mail. Used when no email backend is configured.
type NoopNotifier struct{}

func (NoopNotifier) Send(ctx context.Context, to, subject, body string) error { return nil }
