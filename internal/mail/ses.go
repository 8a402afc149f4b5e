package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/zgpcy/status-exporter/internal/config"
	"github.com/zgpcy/status-exporter/internal/logger"
)

type sesMailer struct {
	client *sesv2.Client
	log    *logger.Logger
}

// newSES builds the SES transport. Credentials and region come from the
// config when set, otherwise from the ambient AWS environment.
func newSES(ctx context.Context, cfg config.SESConfig, log *logger.Logger) (*sesMailer, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""))))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &sesMailer{client: sesv2.NewFromConfig(awsCfg), log: log}, nil
}

func (m *sesMailer) Send(ctx context.Context, msg Message) error {
	_, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: msg.To,
			CcAddresses: msg.Cc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(msg.Body)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	m.log.Info("Sent email", "provider", "ses", "to", strings.Join(msg.To, ","), "subject", msg.Subject)
	return nil
}
