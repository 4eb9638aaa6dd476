package tracking

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// pixelGIF is a 1x1 transparent GIF, served for every pixel request.
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3B,
}

// Handler serves the public tracking endpoints. It never touches the
// database: every observed event is published to the queue and the response
// is written immediately.
type Handler struct {
	queue Queue
}

func NewHandler(queue Queue) *Handler {
	return &Handler{queue: queue}
}

// Routes mounts the tracking endpoints on a new router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/track/pixel", h.Pixel)
	r.Get("/track/link", h.Link)
	r.Get("/health", h.Health)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Pixel records an open and returns the GIF. The response is identical
// whether or not the tracking identifier exists, so the endpoint cannot be
// used to probe for valid identifiers.
func (h *Handler) Pixel(w http.ResponseWriter, r *http.Request) {
	if t := r.URL.Query().Get("t"); t != "" {
		h.queue.Publish(r.Context(), Event{
			Type:       EventOpen,
			TrackingID: t,
			IPAddress:  realIP(r),
			UserAgent:  r.UserAgent(),
			Referer:    r.Referer(),
			Timestamp:  time.Now().UTC(),
		})
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

// Link records a click and redirects to the original URL. The destination
// is validated again here: the query parameter is attacker-controlled
// regardless of what the injector originally wrote.
func (h *Handler) Link(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	trackingID := q.Get("t")
	target := q.Get("u")

	if trackingID == "" || target == "" {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}
	if !IsValidRedirectURL(target) {
		http.Error(w, "invalid redirect url", http.StatusBadRequest)
		return
	}

	h.queue.Publish(r.Context(), Event{
		Type:       EventClick,
		TrackingID: trackingID,
		LinkURL:    target,
		LinkID:     q.Get("l"),
		IPAddress:  realIP(r),
		UserAgent:  r.UserAgent(),
		Referer:    r.Referer(),
		Timestamp:  time.Now().UTC(),
	})

	http.Redirect(w, r, target, http.StatusFound)
}

// realIP prefers proxy-set headers over the socket address.
func realIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}
