// Package store provides the persistent suspicion memory: one record per
// account tracking how often and how recently it cleared the dynamic
// threshold.
//
// Two implementations exist: a thread-safe in-memory map (the default, and
// the deterministic fake used in tests) and a Postgres-backed store. Both
// honour the same contract: times_flagged only ever increases and a batch of
// increments is applied all-or-nothing.
package store

import (
	"context"
	"errors"

	"muleguard/intel-api/internal/domain"
)

// ErrEmptyAccountID is returned when a caller passes a blank account id.
var ErrEmptyAccountID = errors.New("account id must not be empty")

// Increment is one planned memory write: the account survived the threshold
// with the given final score.
type Increment struct {
	AccountID string
	Score     float64
}

// History is the persistent suspicion memory interface.
type History interface {
	// Get returns the record for an account, or nil when none exists.
	Get(ctx context.Context, accountID string) (*domain.HistoryRecord, error)

	// UpsertIncrement creates the record with times_flagged=1, or bumps
	// times_flagged and overwrites last_score on an existing one.
	UpsertIncrement(ctx context.Context, accountID string, score float64) error

	// ApplyIncrements applies a batch of increments atomically: either all
	// records are updated or none are.
	ApplyIncrements(ctx context.Context, updates []Increment) error

	// ListAll returns every record, ordered by account id.
	ListAll(ctx context.Context) ([]domain.HistoryRecord, error)
}
