// Package tracking implements per-email engagement tracking: identifier
// issuance, pixel/link injection into outgoing HTML, the public pixel and
// redirect endpoints, and the asynchronous event pipeline behind them.
package tracking

import "time"

// EventType distinguishes the two engagement events the pipeline records.
type EventType string

const (
	EventOpen  EventType = "open"
	EventClick EventType = "click"
)

// Event is the wire format handed from the HTTP edge to the consumer. The
// edge never waits for the store; it publishes and responds.
type Event struct {
	Type       EventType `json:"event_type"`
	TrackingID string    `json:"tracking_id"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	LinkURL    string    `json:"link_url,omitempty"`
	LinkID     string    `json:"link_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
