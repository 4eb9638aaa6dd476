// Package feeds ingests security advisories from RSS and Atom threat
// feeds. Ingested items become advisories with the feed as author; items
// already seen (by source URL) are skipped.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/pkg/httpretry"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// AdvisoryStore persists ingested advisories.
type AdvisoryStore interface {
	CreateAdvisoryIfNew(ctx context.Context, a *domain.Advisory) (bool, error)
}

// Poller fetches the configured feeds on an interval.
type Poller struct {
	store    AdvisoryStore
	client   *httpretry.Client
	parser   *gofeed.Parser
	sources  []string
	interval time.Duration

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewPoller(store AdvisoryStore, sources []string, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Poller{
		store:    store,
		client:   httpretry.New(&http.Client{Timeout: 30 * time.Second}, 3),
		parser:   gofeed.NewParser(),
		sources:  sources,
		interval: interval,
	}
}

// Start launches the polling loop with an immediate first pass.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.PollAll(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.PollAll(ctx)
			}
		}
	}()
	logger.Info("feed poller started", "sources", len(p.sources), "interval", p.interval.String())
}

// Stop halts the loop and waits for an in-flight pass.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}

// PollAll fetches every configured source once. Per-source failures are
// logged and do not stop the pass.
func (p *Poller) PollAll(ctx context.Context) {
	for _, src := range p.sources {
		if ctx.Err() != nil {
			return
		}
		ingested, err := p.pollOne(ctx, src)
		if err != nil {
			logger.Error("poll feed", "source", src, "error", err)
			continue
		}
		if ingested > 0 {
			logger.Info("ingested advisories", "source", src, "count", ingested)
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, src string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", "inteldesk-feed-poller/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := p.parser.Parse(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	ingested := 0
	for _, item := range feed.Items {
		adv := itemToAdvisory(feed, item)
		if adv == nil {
			continue
		}
		created, err := p.store.CreateAdvisoryIfNew(ctx, adv)
		if err != nil {
			logger.Warn("store feed item", "source", src, "error", err)
			continue
		}
		if created {
			ingested++
		}
	}
	return ingested, nil
}

func itemToAdvisory(feed *gofeed.Feed, item *gofeed.Item) *domain.Advisory {
	title := strings.TrimSpace(item.Title)
	if title == "" || item.Link == "" {
		return nil
	}

	desc := item.Content
	if desc == "" {
		desc = item.Description
	}
	published := time.Now().UTC()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	}

	return &domain.Advisory{
		Title:         title,
		Severity:      severityFromItem(item),
		Category:      "feed",
		Description:   desc,
		CVEIDs:        extractCVEs(title + " " + desc),
		Author:        feed.Title,
		SourceURL:     item.Link,
		PublishedDate: published,
	}
}

// severityFromItem guesses a severity from feed categories and title
// keywords. Feeds rarely carry structured severity; Medium is the default.
func severityFromItem(item *gofeed.Item) domain.Severity {
	text := strings.ToLower(item.Title)
	for _, cat := range item.Categories {
		text += " " + strings.ToLower(cat)
	}
	switch {
	case strings.Contains(text, "critical"):
		return domain.SeverityCritical
	case strings.Contains(text, "high"):
		return domain.SeverityHigh
	case strings.Contains(text, "low"):
		return domain.SeverityLow
	}
	return domain.SeverityMedium
}
