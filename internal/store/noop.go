package store

import (
	"context"
	"time"

	"github.com/ashureev/chatrelay/internal/domain"
)

// Noop is a Repository that keeps nothing. It is used when the journal is disabled.
type Noop struct{}

// RecordRelay discards rec.
func (Noop) RecordRelay(context.Context, *domain.RelayRecord) error { return nil }

// ListRecent always returns an empty list.
func (Noop) ListRecent(context.Context, int) ([]*domain.RelayRecord, error) {
	return []*domain.RelayRecord{}, nil
}

// DeleteOlderThan removes nothing.
func (Noop) DeleteOlderThan(context.Context, time.Time) (int64, error) { return 0, nil }

// Ping always succeeds.
func (Noop) Ping(context.Context) error { return nil }

// Close always succeeds.
func (Noop) Close() error { return nil }
