package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// SESTransport sends mail through AWS SES using the SDK v2.
type SESTransport struct {
	client *sesv2.Client
}

// NewSESTransport creates an SES transport. When access keys are empty the
// default AWS credential chain is used (instance role, env vars).
func NewSESTransport(accessKey, secretKey, region string) (*SESTransport, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESTransport{client: sesv2.NewFromConfig(cfg)}, nil
}

// Send delivers a single email through SES. Cc and Bcc are omitted from the
// destination entirely when empty; SES rejects empty address lists.
func (t *SESTransport) Send(ctx context.Context, msg *Message) error {
	dest := &types.Destination{ToAddresses: msg.To}
	if len(msg.Cc) > 0 {
		dest.CcAddresses = msg.Cc
	}
	if len(msg.Bcc) > 0 {
		dest.BccAddresses = msg.Bcc
	}

	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      dest,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	result, err := t.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("email sent via ses", "to", logger.RedactEmail(msg.To[0]), "message_id", messageID)
	return nil
}
