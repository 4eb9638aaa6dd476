package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inteldesk/inteldesk/internal/audit"
	"github.com/inteldesk/inteldesk/internal/domain"
	"github.com/inteldesk/inteldesk/internal/mailer"
	"github.com/inteldesk/inteldesk/internal/store"
)

type fakeStore struct {
	mu         sync.Mutex
	emails     map[uuid.UUID]*domain.ScheduledEmail
	advisories map[uuid.UUID]*domain.Advisory
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		emails:     make(map[uuid.UUID]*domain.ScheduledEmail),
		advisories: make(map[uuid.UUID]*domain.Advisory),
	}
}

func (f *fakeStore) GetScheduledEmail(_ context.Context, id uuid.UUID) (*domain.ScheduledEmail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.emails[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeStore) GetAdvisory(_ context.Context, id uuid.UUID) (*domain.Advisory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.advisories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) SetTrackingID(_ context.Context, id uuid.UUID, trackingID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.emails[id]
	if !ok {
		return "", store.ErrNotFound
	}
	if e.TrackingID == "" {
		e.TrackingID = trackingID
	}
	return e.TrackingID, nil
}

func (f *fakeStore) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = domain.EmailSent
	e.SentAt = &sentAt
	e.ErrorMessage = ""
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.emails[id]
	if !ok {
		return store.ErrNotFound
	}
	e.Status = domain.EmailFailed
	e.ErrorMessage = errMsg
	e.RetryCount++
	return nil
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (f *fakeTransport) Send(_ context.Context, msg *mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func seed(fs *fakeStore) (*domain.ScheduledEmail, *domain.Advisory) {
	adv := &domain.Advisory{
		ID:            uuid.New(),
		Title:         "OpenSSL RCE",
		Severity:      domain.SeverityCritical,
		Description:   "Remote code execution in handshake parsing.",
		References:    []string{"https://vendor.example.com/advisory/9"},
		PublishedDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	email := &domain.ScheduledEmail{
		ID:          uuid.New(),
		AdvisoryID:  adv.ID,
		To:          []string{"soc@client.example.com"},
		Subject:     "Critical: OpenSSL RCE",
		Status:      domain.EmailPending,
		ScheduledAt: time.Now(),
	}
	fs.advisories[adv.ID] = adv
	fs.emails[email.ID] = email
	return email, adv
}

func newTestOrchestrator(fs *fakeStore, transport mailer.Transport) *Orchestrator {
	return NewOrchestrator(fs, NewRenderer(), transport, audit.New(nil), nil,
		"alerts@inteldesk.example.com", "IntelDesk Alerts", "https://intel.example.com")
}

func TestSendNow_Success(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	transport := &fakeTransport{}
	o := newTestOrchestrator(fs, transport)

	sent, err := o.SendNow(context.Background(), email.ID, nil, false)
	require.NoError(t, err)

	assert.Equal(t, domain.EmailSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	assert.Len(t, sent.TrackingID, 64)

	require.Len(t, transport.sent, 1)
	msg := transport.sent[0]
	assert.Equal(t, []string{"soc@client.example.com"}, msg.To)
	assert.Contains(t, msg.HTML, "/track/pixel?t="+sent.TrackingID)
	assert.Contains(t, msg.HTML, "/track/link?t="+sent.TrackingID)
	assert.NotContains(t, msg.HTML, `href="https://vendor.example.com/advisory/9"`)

	// Stored state matches what was returned.
	stored := fs.emails[email.ID]
	assert.Equal(t, domain.EmailSent, stored.Status)
	assert.Equal(t, sent.TrackingID, stored.TrackingID)
}

func TestSendNow_TransportFailure(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	transport := &fakeTransport{err: errors.New("smtp dial: connection refused")}
	o := newTestOrchestrator(fs, transport)

	_, err := o.SendNow(context.Background(), email.ID, nil, false)
	require.Error(t, err)

	stored := fs.emails[email.ID]
	assert.Equal(t, domain.EmailFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "connection refused")
	assert.Equal(t, 1, stored.RetryCount)
}

func TestSendNow_RetryAfterFailureKeepsTrackingID(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	transport := &fakeTransport{err: errors.New("smtp dial: timeout")}
	o := newTestOrchestrator(fs, transport)

	_, err := o.SendNow(context.Background(), email.ID, nil, false)
	require.Error(t, err)
	firstID := fs.emails[email.ID].TrackingID
	require.NotEmpty(t, firstID)

	transport.err = nil
	sent, err := o.SendNow(context.Background(), email.ID, nil, false)
	require.NoError(t, err)
	assert.Equal(t, firstID, sent.TrackingID)
	assert.Equal(t, 1, sent.RetryCount)
}

func TestSendNow_NotFound(t *testing.T) {
	o := newTestOrchestrator(newFakeStore(), &fakeTransport{})

	_, err := o.SendNow(context.Background(), uuid.New(), nil, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSendNow_AlreadySent(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	fs.emails[email.ID].Status = domain.EmailSent
	transport := &fakeTransport{}
	o := newTestOrchestrator(fs, transport)

	_, err := o.SendNow(context.Background(), email.ID, nil, false)
	assert.ErrorIs(t, err, ErrAlreadySent)
	assert.Empty(t, transport.sent)

	// Force overrides the guard.
	sent, err := o.SendNow(context.Background(), email.ID, nil, true)
	require.NoError(t, err)
	assert.Equal(t, domain.EmailSent, sent.Status)
	assert.Len(t, transport.sent, 1)
}

func TestSendNow_CancelledRefusedEvenWithForce(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	fs.emails[email.ID].Status = domain.EmailCancelled
	transport := &fakeTransport{}
	o := newTestOrchestrator(fs, transport)

	_, err := o.SendNow(context.Background(), email.ID, nil, true)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Empty(t, transport.sent)
}

func TestSendNow_PixelBeforeClosingBody(t *testing.T) {
	fs := newFakeStore()
	email, _ := seed(fs)
	transport := &fakeTransport{}
	o := newTestOrchestrator(fs, transport)

	sent, err := o.SendNow(context.Background(), email.ID, nil, false)
	require.NoError(t, err)

	html := transport.sent[0].HTML
	pixelIdx := strings.Index(html, "/track/pixel?t="+sent.TrackingID)
	bodyIdx := strings.LastIndex(html, "</body>")
	require.Greater(t, pixelIdx, 0)
	assert.Less(t, pixelIdx, bodyIdx)
}
