package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"contactguard/internal/config"
)

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type SESDispatcher struct {
	client SESAPI
}

// NewSESDispatcher builds a client for cfg.Region. Static credentials are used
// when both keys are set, otherwise the default AWS credential chain applies.
func NewSESDispatcher(ctx context.Context, cfg config.SESConfig) (*SESDispatcher, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESDispatcherWithClient(sesv2.NewFromConfig(awsCfg)), nil
}

func NewSESDispatcherWithClient(client SESAPI) *SESDispatcher {
	return &SESDispatcher{client: client}
}

func (d *SESDispatcher) Send(ctx context.Context, env Envelope) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(env.From),
		Destination:      &types.Destination{ToAddresses: []string{env.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(sanitizeHeader(env.Subject)), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(env.TextBody), Charset: aws.String("UTF-8")},
					Html: &types.Content{Data: aws.String(env.HTMLBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if env.ReplyTo != "" {
		input.ReplyToAddresses = []string{env.ReplyTo}
	}

	if _, err := d.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("ses send failed: %w", err)
	}
	return nil
}
