package delivery

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/inteldesk/inteldesk/internal/domain"
)

// S3Archiver writes a copy of each sent email body to S3, keyed by send
// date and email id. Archives are for compliance review; delivery never
// depends on them.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Archiver creates an archiver using the default AWS credential chain.
func NewS3Archiver(bucket, region, prefix string) (*S3Archiver, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &S3Archiver{client: s3.NewFromConfig(awsCfg), bucket: bucket, prefix: prefix}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, email *domain.ScheduledEmail, body string) error {
	sentAt := time.Now().UTC()
	if email.SentAt != nil {
		sentAt = email.SentAt.UTC()
	}
	key := fmt.Sprintf("%s%s/%s.html", a.prefix, sentAt.Format("2006/01/02"), email.ID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader([]byte(body)),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("put archive object: %w", err)
	}
	return nil
}
