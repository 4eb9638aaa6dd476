package tracking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

// trackingIDBytes gives 256 bits of randomness, rendered as 64 hex chars.
const trackingIDBytes = 32

// NewTrackingID mints a cryptographically random tracking identifier.
// A failing random source is fatal for the caller: an email must not go out
// untrackable with a guessable identifier.
func NewTrackingID() (string, error) {
	b := make([]byte, trackingIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("tracking id entropy: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// IDStore persists a newly minted identifier, returning whichever identifier
// the record ended up with (ours, or one a concurrent issuer won with).
type IDStore interface {
	SetTrackingID(ctx context.Context, id uuid.UUID, trackingID string) (string, error)
}

// Issuer assigns tracking identifiers to scheduled emails.
type Issuer struct {
	store IDStore
}

// NewIssuer creates an issuer over the given store.
func NewIssuer(store IDStore) *Issuer {
	return &Issuer{store: store}
}

// Ensure returns the email's tracking identifier, minting and persisting one
// if the record has none. Calling Ensure repeatedly yields the same
// identifier; it is never reassigned.
func (i *Issuer) Ensure(ctx context.Context, e *domain.ScheduledEmail) (string, error) {
	if e.TrackingID != "" {
		return e.TrackingID, nil
	}

	minted, err := NewTrackingID()
	if err != nil {
		return "", err
	}

	stored, err := i.store.SetTrackingID(ctx, e.ID, minted)
	if err != nil {
		return "", fmt.Errorf("persist tracking id: %w", err)
	}
	e.TrackingID = stored
	return stored, nil
}
