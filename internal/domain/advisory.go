package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity classifies an advisory by impact.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Advisory is a published security advisory. The email subsystem only
// reads advisories; they are owned by advisory management.
type Advisory struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Severity         Severity  `json:"severity"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	Summary          string    `json:"summary,omitempty"`
	AffectedProducts []string  `json:"affected_products,omitempty"`
	References       []string  `json:"references,omitempty"`
	CVEIDs           []string  `json:"cve_ids,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
	Author           string    `json:"author"`
	SourceURL        string    `json:"source_url,omitempty"`
	PublishedDate    time.Time `json:"published_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist an advisory.
func (a *Advisory) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrMissingField("title")
	}
	if strings.TrimSpace(a.Description) == "" {
		return ErrMissingField("description")
	}
	if !a.Severity.Valid() {
		return ErrInvalidField("severity")
	}
	return nil
}

// Client is a distribution-list entry: a customer organization and the
// addresses advisories are delivered to.
type Client struct {
	ID        uuid.UUID `json:"id"`
	ClientID  string    `json:"client_id"`
	Name      string    `json:"name"`
	Emails    []string  `json:"emails"`
	CcEmails  []string  `json:"cc_emails,omitempty"`
	BccEmails []string  `json:"bcc_emails,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields required to persist a client.
func (c *Client) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return ErrMissingField("client_id")
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrMissingField("name")
	}
	if len(c.Emails) == 0 {
		return ErrMissingField("emails")
	}
	return nil
}
