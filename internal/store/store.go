// Package store persists relay outcomes.
package store

import (
	"context"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
)

// Repository defines the interface for the relay journal.
type Repository interface {
	// RecordRelay stores the outcome of one inbound event.
	RecordRelay(ctx context.Context, rec *domain.RelayRecord) error

	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.RelayRecord, error)

	// DeleteOlderThan removes records created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
