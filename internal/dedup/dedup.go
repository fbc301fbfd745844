// Package dedup tracks inbound message identifiers that were already handled.
package dedup

import (
	"context"
	"errors"
)

// DefaultCapacity is the size above which a set is cleared.
const DefaultCapacity = 1000

var (
	ErrInvalidConfig = errors.New("invalid dedup configuration")
	ErrInvalidDriver = errors.New("invalid dedup driver")
)

// Set records processed message identifiers.
//
// The set is not an LRU: once it holds more than its capacity it is
// cleared in its entirety.
type Set interface {
	// MarkIfNew records id and reports true when it had not been seen before.
	// Check and record happen atomically, so concurrent deliveries of the
	// same id yield exactly one true. A true result with a non-nil error
	// means the id was recorded but trimming the set failed.
	MarkIfNew(ctx context.Context, id string) (bool, error)

	// Len returns the number of recorded identifiers.
	Len(ctx context.Context) (int, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources.
	Close() error
}
