package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
	"github.com/inteldesk/inteldesk/internal/store"
)

// EventStore persists decoded tracking events.
type EventStore interface {
	RecordOpen(ctx context.Context, open *domain.EmailOpen) error
	RecordClick(ctx context.Context, click *domain.EmailClick) error
}

// Consumer drains a queue of tracking events into the store. It is the only
// component that writes engagement data; the HTTP edge just publishes.
type Consumer struct {
	source Source
	events EventStore
	dedup  Deduper

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewConsumer(source Source, events EventStore, dedup Deduper) *Consumer {
	if dedup == nil {
		dedup = NopDeduper{}
	}
	return &Consumer{source: source, events: events, dedup: dedup}
}

// Start launches the consume loop. Call Stop to drain and exit.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
}

// Stop signals the loop to exit and waits for in-flight events.
func (c *Consumer) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		events, err := c.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("receive tracking events", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}
		for _, evt := range events {
			c.process(ctx, evt)
		}
	}
}

// process writes one event. Unknown tracking identifiers are dropped
// without logging at error level: probes against the public endpoints are
// routine and must leave no signal that an identifier does not exist.
func (c *Consumer) process(ctx context.Context, evt Event) {
	if evt.TrackingID == "" {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	unique := !c.dedup.Seen(ctx, evt)

	var err error
	switch evt.Type {
	case EventOpen:
		err = c.events.RecordOpen(ctx, &domain.EmailOpen{
			TrackingID: evt.TrackingID,
			IPAddress:  evt.IPAddress,
			UserAgent:  evt.UserAgent,
			Referer:    evt.Referer,
			Unique:     unique,
			OccurredAt: evt.Timestamp,
		})
	case EventClick:
		err = c.events.RecordClick(ctx, &domain.EmailClick{
			TrackingID: evt.TrackingID,
			LinkURL:    evt.LinkURL,
			LinkID:     evt.LinkID,
			IPAddress:  evt.IPAddress,
			UserAgent:  evt.UserAgent,
			Referer:    evt.Referer,
			Unique:     unique,
			OccurredAt: evt.Timestamp,
		})
	default:
		logger.Warn("unknown tracking event type", "type", evt.Type)
		return
	}

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logger.Debug("tracking event for unknown id", "type", evt.Type)
			return
		}
		logger.Error("record tracking event", "type", evt.Type, "error", err)
	}
}
