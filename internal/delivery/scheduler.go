package delivery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/pkg/distlock"
	"github.com/inteldesk/inteldesk/internal/pkg/logger"
)

// DueLister finds pending emails whose scheduled time has arrived.
type DueLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledEmail, error)
}

// Sender delivers one email by id. Satisfied by the Orchestrator.
type Sender interface {
	SendNow(ctx context.Context, id uuid.UUID, actor *domain.AuditLog, force bool) (*domain.ScheduledEmail, error)
}

// Scheduler polls for due scheduled emails and hands each to the sender.
// A distributed lock keeps concurrent replicas from processing the same
// poll; whichever replica holds the lock does the work for that tick.
type Scheduler struct {
	due          DueLister
	sender       Sender
	lock         distlock.Lock
	pollInterval time.Duration
	batchSize    int

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func NewScheduler(due DueLister, sender Sender, lock distlock.Lock, pollInterval time.Duration, batchSize int) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Scheduler{
		due:          due,
		sender:       sender,
		lock:         lock,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Start launches the polling loop.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
	logger.Info("scheduler started", "poll_interval", s.pollInterval.String(), "batch_size", s.batchSize)
}

// Stop halts the loop and waits for the in-flight tick.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.TryAcquire(ctx)
		if err != nil {
			logger.Error("scheduler lock", "error", err)
			return
		}
		if !acquired {
			// Another replica owns this tick.
			return
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				logger.Warn("scheduler lock release", "error", err)
			}
		}()
	}

	due, err := s.due.ListDue(ctx, time.Now().UTC(), s.batchSize)
	if err != nil {
		logger.Error("list due emails", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	logger.Info("processing due emails", "count", len(due))

	for _, email := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.sender.SendNow(ctx, email.ID, nil, false); err != nil {
			// SendNow already recorded the failure; a raced-away email
			// surfaces here as ErrAlreadySent and is fine to skip.
			logger.Warn("scheduled send failed", "email_id", email.ID, "error", err)
		}
	}
}
