package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/inteldesk/inteldesk/internal/domain"
)

func setupTestDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestSetTrackingID_AssignsWhenUnset(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE scheduled_emails SET tracking_id = \$1.*WHERE id = \$2 AND tracking_id IS NULL`).
		WithArgs("minted", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT tracking_id FROM scheduled_emails WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"tracking_id"}).AddRow("minted"))

	got, err := s.SetTrackingID(context.Background(), id, "minted")
	if err != nil {
		t.Fatalf("SetTrackingID: %v", err)
	}
	if got != "minted" {
		t.Errorf("got %q, want minted", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A racing issuer that lost the conditional update must adopt the winner's
// identifier instead of its own.
func TestSetTrackingID_KeepsExistingOnRace(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE scheduled_emails SET tracking_id = \$1.*tracking_id IS NULL`).
		WithArgs("loser", id).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT tracking_id FROM scheduled_emails WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"tracking_id"}).AddRow("winner"))

	got, err := s.SetTrackingID(context.Background(), id, "loser")
	if err != nil {
		t.Fatalf("SetTrackingID: %v", err)
	}
	if got != "winner" {
		t.Errorf("got %q, want winner", got)
	}
}

func TestRecordOpen_AtomicFirstOpen(t *testing.T) {
	s, mock := setupTestDB(t)
	occurred := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE scheduled_emails SET is_opened = TRUE,\s*opened_at = COALESCE\(opened_at, \$1\)`).
		WithArgs(occurred, "tid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO email_opens`).
		WithArgs("tid", "192.0.2.1", "mua", "", true, occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RecordOpen(context.Background(), &domain.EmailOpen{
		TrackingID: "tid",
		IPAddress:  "192.0.2.1",
		UserAgent:  "mua",
		Unique:     true,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("RecordOpen: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestRecordOpen_UnknownIDReturnsNotFound(t *testing.T) {
	s, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE scheduled_emails SET is_opened = TRUE`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.RecordOpen(context.Background(), &domain.EmailOpen{TrackingID: "bogus", OccurredAt: time.Now()})
	if err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRecordClick_AppendsAndCounts(t *testing.T) {
	s, mock := setupTestDB(t)
	occurred := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE scheduled_emails SET click_count = click_count \+ 1`).
		WithArgs("tid").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO email_clicks`).
		WithArgs("tid", "https://example.com", "42", "", "", "", true, occurred).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := s.RecordClick(context.Background(), &domain.EmailClick{
		TrackingID: "tid",
		LinkURL:    "https://example.com",
		LinkID:     "42",
		Unique:     true,
		OccurredAt: occurred,
	})
	if err != nil {
		t.Fatalf("RecordClick: %v", err)
	}
}

func TestMarkFailed_BumpsRetryCount(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()

	mock.ExpectExec(`UPDATE scheduled_emails SET status = 'failed', error_message = \$1,\s*retry_count = retry_count \+ 1`).
		WithArgs("smtp dial: timeout", id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MarkFailed(context.Background(), id, "smtp dial: timeout"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
}

func TestMarkSent_ClearsError(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()
	sentAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE scheduled_emails SET status = 'sent', sent_at = \$1, error_message = ''`).
		WithArgs(sentAt, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.MarkSent(context.Background(), id, sentAt); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
}

func TestCancelScheduledEmail_OnlyPending(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()

	mock.ExpectExec(`(?s)UPDATE scheduled_emails SET status = 'cancelled'.*status = 'pending'`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := s.CancelScheduledEmail(context.Background(), id); err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound for non-pending email", err)
	}
}

func TestGetScheduledEmail_NotFound(t *testing.T) {
	s, mock := setupTestDB(t)
	id := uuid.New()

	mock.ExpectQuery(`(?s)SELECT .* FROM scheduled_emails WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.GetScheduledEmail(context.Background(), id)
	if err != ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
