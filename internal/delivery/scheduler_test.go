package delivery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteldesk/inteldesk/internal/domain"
)

type fakeDueLister struct {
	mu  sync.Mutex
	due []*domain.ScheduledEmail
}

func (f *fakeDueLister) ListDue(_ context.Context, _ time.Time, _ int) ([]*domain.ScheduledEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	due := f.due
	f.due = nil
	return due, nil
}

type fakeSender struct {
	mu   sync.Mutex
	sent []uuid.UUID
}

func (f *fakeSender) SendNow(_ context.Context, id uuid.UUID, _ *domain.AuditLog, _ bool) (*domain.ScheduledEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	return &domain.ScheduledEmail{ID: id, Status: domain.EmailSent}, nil
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	acquired int
	released int
}

func (l *fakeLock) TryAcquire(context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	l.acquired++
	return true, nil
}

func (l *fakeLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

func TestScheduler_SendsDueEmails(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	due := &fakeDueLister{due: []*domain.ScheduledEmail{{ID: a}, {ID: b}}}
	sender := &fakeSender{}
	lock := &fakeLock{}

	s := NewScheduler(due, sender, lock, time.Second, 10)
	s.tick(context.Background())

	assert.Equal(t, []uuid.UUID{a, b}, sender.sent)
	assert.Equal(t, 1, lock.acquired)
	assert.Equal(t, 1, lock.released, "lock released after the tick")
}

func TestScheduler_SkipsTickWhenLockHeld(t *testing.T) {
	due := &fakeDueLister{due: []*domain.ScheduledEmail{{ID: uuid.New()}}}
	sender := &fakeSender{}
	lock := &fakeLock{held: true}

	s := NewScheduler(due, sender, lock, time.Second, 10)
	s.tick(context.Background())

	assert.Empty(t, sender.sent)
	require.Len(t, due.due, 1, "due list untouched when another replica holds the lock")
}

func TestScheduler_StartStop(t *testing.T) {
	id := uuid.New()
	due := &fakeDueLister{due: []*domain.ScheduledEmail{{ID: id}}}
	sender := &fakeSender{}

	s := NewScheduler(due, sender, nil, 20*time.Millisecond, 10)
	s.Start(context.Background())

	require.Eventually(t, func() bool {
		sender.mu.Lock()
		defer sender.mu.Unlock()
		return len(sender.sent) == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
}
