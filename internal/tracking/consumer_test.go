package tracking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/store"
)

// fakeEventStore mimics the store's tracking semantics: events for unknown
// identifiers return ErrNotFound, the first open stamps openedAt.
type fakeEventStore struct {
	mu       sync.Mutex
	known    map[string]bool
	opens    []*domain.EmailOpen
	clicks   []*domain.EmailClick
	openedAt map[string]time.Time
}

func newFakeEventStore(known ...string) *fakeEventStore {
	f := &fakeEventStore{known: make(map[string]bool), openedAt: make(map[string]time.Time)}
	for _, k := range known {
		f.known[k] = true
	}
	return f
}

func (f *fakeEventStore) RecordOpen(_ context.Context, open *domain.EmailOpen) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[open.TrackingID] {
		return store.ErrNotFound
	}
	if _, ok := f.openedAt[open.TrackingID]; !ok {
		f.openedAt[open.TrackingID] = open.OccurredAt
	}
	f.opens = append(f.opens, open)
	return nil
}

func (f *fakeEventStore) RecordClick(_ context.Context, click *domain.EmailClick) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.known[click.TrackingID] {
		return store.ErrNotFound
	}
	f.clicks = append(f.clicks, click)
	return nil
}

func TestConsumer_RecordsOpensAndClicks(t *testing.T) {
	events := newFakeEventStore("known")
	c := NewConsumer(nil, events, nil)

	c.process(context.Background(), Event{Type: EventOpen, TrackingID: "known", IPAddress: "192.0.2.1"})
	c.process(context.Background(), Event{Type: EventClick, TrackingID: "known", LinkURL: "https://example.com", LinkID: "3"})

	require.Len(t, events.opens, 1)
	assert.Equal(t, "192.0.2.1", events.opens[0].IPAddress)
	assert.True(t, events.opens[0].Unique)
	require.Len(t, events.clicks, 1)
	assert.Equal(t, "3", events.clicks[0].LinkID)
}

func TestConsumer_UnknownIDDroppedSilently(t *testing.T) {
	events := newFakeEventStore("known")
	c := NewConsumer(nil, events, nil)

	c.process(context.Background(), Event{Type: EventOpen, TrackingID: "bogus"})
	c.process(context.Background(), Event{Type: EventClick, TrackingID: "bogus", LinkURL: "https://example.com"})

	assert.Empty(t, events.opens)
	assert.Empty(t, events.clicks)
}

// Every open is appended; openedAt keeps the first event's timestamp.
func TestConsumer_RepeatOpensAllAppended(t *testing.T) {
	events := newFakeEventStore("known")
	c := NewConsumer(nil, events, nil)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		c.process(context.Background(), Event{
			Type:       EventOpen,
			TrackingID: "known",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	require.Len(t, events.opens, 5)
	assert.Equal(t, base, events.openedAt["known"])
}

// N goroutines logging opens for one identifier: every open is kept and
// openedAt stays pinned to whichever open landed first.
func TestConsumer_ConcurrentFirstOpen(t *testing.T) {
	const n = 32

	events := newFakeEventStore("known")
	c := NewConsumer(nil, events, nil)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			c.process(context.Background(), Event{
				Type:       EventOpen,
				TrackingID: "known",
				IPAddress:  "192.0.2.1",
				Timestamp:  base.Add(time.Duration(i) * time.Second),
			})
		}(i)
	}
	wg.Wait()

	require.Len(t, events.opens, n)

	openedAt, ok := events.openedAt["known"]
	require.True(t, ok)
	assert.Equal(t, events.opens[0].OccurredAt, openedAt)
	for _, open := range events.opens {
		assert.Equal(t, "known", open.TrackingID)
	}
}

type alwaysSeen struct{}

func (alwaysSeen) Seen(context.Context, Event) bool { return true }

func TestConsumer_DuplicateStillAppendedButNotUnique(t *testing.T) {
	events := newFakeEventStore("known")
	c := NewConsumer(nil, events, alwaysSeen{})

	c.process(context.Background(), Event{Type: EventOpen, TrackingID: "known"})

	require.Len(t, events.opens, 1)
	assert.False(t, events.opens[0].Unique)
}

func TestConsumer_DrainsSourceUntilStopped(t *testing.T) {
	queue := NewMemoryQueue(16)
	events := newFakeEventStore("known")
	c := NewConsumer(queue, events, nil)

	c.Start(context.Background())
	queue.Publish(context.Background(), Event{Type: EventOpen, TrackingID: "known"})
	queue.Publish(context.Background(), Event{Type: EventClick, TrackingID: "known", LinkURL: "https://example.com"})

	require.Eventually(t, func() bool {
		events.mu.Lock()
		defer events.mu.Unlock()
		return len(events.opens) == 1 && len(events.clicks) == 1
	}, 2*time.Second, 10*time.Millisecond)

	c.Stop()
}
