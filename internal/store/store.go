// Package store provides the Postgres persistence layer for advisories,
// clients, scheduled emails, engagement events, and audit logs.
package store

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store provides database operations for dashboard entities.
type Store struct {
	db *sql.DB
}

// New creates a store over an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(url string, maxOpen, maxIdle int, connMaxLife time.Duration) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(connMaxLife)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// DB exposes the underlying handle for components that need raw access
// (advisory locks, migrations).
func (s *Store) DB() *sql.DB {
	return s.db
}
