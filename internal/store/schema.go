package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements are idempotent so Migrate can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS advisories (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		severity TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		affected_products TEXT[] NOT NULL DEFAULT '{}',
		refs TEXT[] NOT NULL DEFAULT '{}',
		cve_ids TEXT[] NOT NULL DEFAULT '{}',
		tags TEXT[] NOT NULL DEFAULT '{}',
		author TEXT NOT NULL DEFAULT '',
		source_url TEXT NOT NULL DEFAULT '',
		published_date TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS advisories_source_url_idx
		ON advisories (source_url) WHERE source_url <> ''`,

	`CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY,
		client_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		emails TEXT[] NOT NULL DEFAULT '{}',
		cc_emails TEXT[] NOT NULL DEFAULT '{}',
		bcc_emails TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS scheduled_emails (
		id UUID PRIMARY KEY,
		advisory_id UUID NOT NULL,
		recipients_to TEXT[] NOT NULL,
		recipients_cc TEXT[] NOT NULL DEFAULT '{}',
		recipients_bcc TEXT[] NOT NULL DEFAULT '{}',
		subject TEXT NOT NULL,
		custom_message TEXT NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_by TEXT NOT NULL,
		sent_at TIMESTAMPTZ,
		error_message TEXT NOT NULL DEFAULT '',
		retry_count INT NOT NULL DEFAULT 0,
		tracking_id TEXT UNIQUE,
		is_opened BOOLEAN NOT NULL DEFAULT FALSE,
		opened_at TIMESTAMPTZ,
		open_count INT NOT NULL DEFAULT 0,
		click_count INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS scheduled_emails_due_idx
		ON scheduled_emails (scheduled_at, status)`,

	`CREATE TABLE IF NOT EXISTS email_opens (
		id BIGSERIAL PRIMARY KEY,
		tracking_id TEXT NOT NULL,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		referer TEXT NOT NULL DEFAULT '',
		is_unique BOOLEAN NOT NULL DEFAULT TRUE,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS email_opens_tracking_idx
		ON email_opens (tracking_id, occurred_at)`,

	`CREATE TABLE IF NOT EXISTS email_clicks (
		id BIGSERIAL PRIMARY KEY,
		tracking_id TEXT NOT NULL,
		link_url TEXT NOT NULL,
		link_id TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		referer TEXT NOT NULL DEFAULT '',
		is_unique BOOLEAN NOT NULL DEFAULT TRUE,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS email_clicks_tracking_idx
		ON email_clicks (tracking_id, occurred_at)`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id UUID PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_role TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		details TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_user_idx ON audit_logs (user_id, occurred_at)`,
	`CREATE INDEX IF NOT EXISTS audit_logs_action_idx ON audit_logs (action, occurred_at)`,
}

// Migrate applies the schema. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
