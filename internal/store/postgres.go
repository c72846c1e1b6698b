package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"muleguard/intel-api/internal/domain"
)

// schemaSQL is compiled into the binary at build time so schema init works
// inside a minimal runtime image.
//
//go:embed schema.sql
var schemaSQL string

const upsertSQL = `
	INSERT INTO suspicious_history (account_id, last_score, times_flagged, last_flagged_at)
	VALUES ($1, $2, 1, NOW())
	ON CONFLICT (account_id) DO UPDATE
	SET last_score      = EXCLUDED.last_score,
	    times_flagged   = suspicious_history.times_flagged + 1,
	    last_flagged_at = NOW();
`

// Postgres is the pgx-backed History implementation.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool and verifies connectivity.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close gracefully closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// InitSchema executes the embedded DDL.
func (p *Postgres) InitSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Get returns the record for an account, or nil when absent.
func (p *Postgres) Get(ctx context.Context, accountID string) (*domain.HistoryRecord, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}

	var rec domain.HistoryRecord
	err := p.pool.QueryRow(ctx, `
		SELECT account_id, last_score, times_flagged, last_flagged_at
		FROM suspicious_history
		WHERE account_id = $1`, accountID,
	).Scan(&rec.AccountID, &rec.LastScore, &rec.TimesFlagged, &rec.LastFlaggedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get history for %s: %w", accountID, err)
	}
	return &rec, nil
}

// UpsertIncrement creates or bumps a single record.
func (p *Postgres) UpsertIncrement(ctx context.Context, accountID string, score float64) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}
	if _, err := p.pool.Exec(ctx, upsertSQL, accountID, score); err != nil {
		return fmt.Errorf("upsert history for %s: %w", accountID, err)
	}
	return nil
}

// ApplyIncrements runs the whole batch in one transaction so a failed run
// leaves the memory unchanged.
func (p *Postgres) ApplyIncrements(ctx context.Context, updates []Increment) error {
	if len(updates) == 0 {
		return nil
	}
	for _, u := range updates {
		if u.AccountID == "" {
			return ErrEmptyAccountID
		}
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin history batch: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, u := range updates {
		if _, err := tx.Exec(ctx, upsertSQL, u.AccountID, u.Score); err != nil {
			return fmt.Errorf("upsert history for %s: %w", u.AccountID, err)
		}
	}
	return tx.Commit(ctx)
}

// ListAll returns every record ordered by account id.
func (p *Postgres) ListAll(ctx context.Context) ([]domain.HistoryRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT account_id, last_score, times_flagged, last_flagged_at
		FROM suspicious_history
		ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(&rec.AccountID, &rec.LastScore, &rec.TimesFlagged, &rec.LastFlaggedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
