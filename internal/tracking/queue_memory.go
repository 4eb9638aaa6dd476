package tracking

import (
	"context"

	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// MemoryQueue is an in-process event queue for single-binary deployments
// and tests. It deliberately mirrors the SQS behavior: Publish never blocks
// and a full queue drops the event with a log line.
type MemoryQueue struct {
	ch chan Event
}

// NewMemoryQueue creates a queue with the given buffer size.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 1024
	}
	return &MemoryQueue{ch: make(chan Event, size)}
}

// Publish enqueues the event without blocking.
func (q *MemoryQueue) Publish(_ context.Context, evt Event) {
	select {
	case q.ch <- evt:
	default:
		logger.Warn("tracking queue full, dropping event", "tracking_id", evt.TrackingID, "type", evt.Type)
	}
}

// Receive returns the next batch of buffered events, blocking until at
// least one is available or ctx is done.
func (q *MemoryQueue) Receive(ctx context.Context) ([]Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case evt := <-q.ch:
		events := []Event{evt}
		for {
			select {
			case next := <-q.ch:
				events = append(events, next)
				if len(events) >= 10 {
					return events, nil
				}
			default:
				return events, nil
			}
		}
	}
}
