package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	mu     sync.Mutex
	events []Event
}

func (q *captureQueue) Publish(_ context.Context, evt Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, evt)
}

func (q *captureQueue) all() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Event(nil), q.events...)
}

func TestPixel_ServesGIFAndPublishes(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	req := httptest.NewRequest(http.MethodGet, "/track/pixel?t=deadbeef", nil)
	req.Header.Set("User-Agent", "test-client")
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/gif", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-cache")
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, pixelGIF, rec.Body.Bytes())

	events := queue.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventOpen, events[0].Type)
	assert.Equal(t, "deadbeef", events[0].TrackingID)
	assert.Equal(t, "test-client", events[0].UserAgent)
}

// The response for an unknown or missing identifier must be byte-identical
// to the known-identifier response.
func TestPixel_ResponseShapeIndependentOfID(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	serve := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	withID := serve("/track/pixel?t=deadbeef")
	withoutID := serve("/track/pixel")

	assert.Equal(t, withID.Code, withoutID.Code)
	assert.Equal(t, withID.Body.Bytes(), withoutID.Body.Bytes())
	assert.Equal(t, withID.Header(), withoutID.Header())
}

func TestPixel_MissingIDPublishesNothing(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/track/pixel", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, queue.all())
}

func TestLink_RedirectsAndPublishes(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	target := "/track/link?t=deadbeef&u=https%3A%2F%2Fvendor.example.com%2Fpatch%3Fid%3D42&l=7"
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://vendor.example.com/patch?id=42", rec.Header().Get("Location"))

	events := queue.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventClick, events[0].Type)
	assert.Equal(t, "deadbeef", events[0].TrackingID)
	assert.Equal(t, "https://vendor.example.com/patch?id=42", events[0].LinkURL)
	assert.Equal(t, "7", events[0].LinkID)
}

func TestLink_RepeatClicksEachPublish(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	target := "/track/link?t=deadbeef&u=https%3A%2F%2Fexample.com&l=42"
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusFound, rec.Code)
	}

	events := queue.all()
	require.Len(t, events, 2)
	for _, evt := range events {
		assert.Equal(t, "42", evt.LinkID)
	}
}

func TestLink_BadRequests(t *testing.T) {
	queue := &captureQueue{}
	h := NewHandler(queue)

	tests := []struct {
		name   string
		target string
	}{
		{"missing url", "/track/link?t=deadbeef"},
		{"missing id", "/track/link?u=https%3A%2F%2Fexample.com"},
		{"private target", "/track/link?t=deadbeef&u=http%3A%2F%2F192.168.1.1%2F"},
		{"loopback target", "/track/link?t=deadbeef&u=http%3A%2F%2F127.0.0.1%2F"},
		{"bad scheme", "/track/link?t=deadbeef&u=javascript%3Aalert(1)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, queue.all(), "rejected requests must not publish events")
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	assert.Equal(t, "203.0.113.9", realIP(req))

	req.Header.Set("X-Real-Ip", "198.51.100.2")
	assert.Equal(t, "198.51.100.2", realIP(req))

	req.Header.Set("X-Forwarded-For", "192.0.2.1, 198.51.100.2")
	assert.Equal(t, "192.0.2.1", realIP(req))
}
