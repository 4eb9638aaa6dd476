package tracking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// Queue carries tracking events from the HTTP edge to the consumer.
// Publish must not block the caller and must not surface failures: the pixel
// or redirect response has already been committed by the time it runs.
type Queue interface {
	Publish(ctx context.Context, evt Event)
}

// Source is the consuming side of an event queue.
type Source interface {
	// Receive blocks until events are available or ctx is done.
	Receive(ctx context.Context) ([]Event, error)
}

// SQSQueue publishes and consumes tracking events over an SQS queue,
// decoupling the tracking edge service from the database entirely.
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSQueue creates a queue over an SQS client.
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{client: client, queueURL: queueURL}
}

// Publish sends the event in a detached goroutine. Errors are logged and
// swallowed; the response that triggered this event has already been sent.
func (q *SQSQueue) Publish(ctx context.Context, evt Event) {
	body, err := json.Marshal(evt)
	if err != nil {
		logger.Error("marshal tracking event", "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(q.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if err != nil {
			logger.Error("publish tracking event", "error", err, "queue", q.queueURL)
		}
	}()
}

// Receive long-polls SQS for up to 10 events and deletes them after decode.
// Decode failures are dropped; they would never become processable.
func (q *SQSQueue) Receive(ctx context.Context) ([]Event, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(out.Messages))
	for _, msg := range out.Messages {
		var evt Event
		if err := json.Unmarshal([]byte(*msg.Body), &evt); err != nil {
			logger.Warn("drop undecodable tracking message", "error", err)
		} else {
			events = append(events, evt)
		}
		q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
			QueueUrl:      aws.String(q.queueURL),
			ReceiptHandle: msg.ReceiptHandle,
		})
	}
	return events, nil
}
