package workflow

import (
	"context"
	"errors"
	"time"
)

// ErrDuplicateIdempotencyKey is returned by Create when the key is taken.
var ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")

// Repository persists orchestrator runs.
type Repository interface {
	// Create inserts a new run. Returns ErrDuplicateIdempotencyKey when
	// another run holds the same non-empty key.
	Create(ctx context.Context, run *Run) error

	// Save persists the current state of an existing run.
	Save(ctx context.Context, run *Run) error

	// FindByID returns nil, nil when no run exists.
	FindByID(ctx context.Context, id int64) (*Run, error)

	// FindByIdempotencyKey returns nil, nil when no run holds the key.
	FindByIdempotencyKey(ctx context.Context, key string) (*Run, error)

	// ListByStatus returns runs with any of the statuses, oldest first.
	ListByStatus(ctx context.Context, statuses []Status, limit int) ([]*Run, error)

	// CountByStatus counts runs with the status.
	CountByStatus(ctx context.Context, status Status) (int64, error)

	// CountStale counts runs still in a non-terminal state last updated before cutoff.
	CountStale(ctx context.Context, cutoff time.Time) (int64, error)

	// ListStale returns those runs, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*Run, error)
}

// ResultCache short-circuits idempotent replays in front of the Repository.
type ResultCache interface {
	Get(ctx context.Context, key string) (*TierChangeResult, bool)
	Set(ctx context.Context, key string, res *TierChangeResult)
}
