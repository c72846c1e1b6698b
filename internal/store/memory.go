package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"muleguard/intel-api/internal/domain"
)

// Memory is a thread-safe in-memory History implementation. It backs
// single-process deployments and deterministic tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*domain.HistoryRecord

	// now is swappable so tests can pin last_flagged_at.
	now func() time.Time
}

// NewMemory creates an empty, ready-to-use store.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[string]*domain.HistoryRecord),
		now:     time.Now,
	}
}

// SetClock overrides the timestamp source. Test use only.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

// Get returns a copy of the account's record, or nil when absent.
func (m *Memory) Get(_ context.Context, accountID string) (*domain.HistoryRecord, error) {
	if accountID == "" {
		return nil, ErrEmptyAccountID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[accountID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

// UpsertIncrement creates or bumps the account's record.
func (m *Memory) UpsertIncrement(_ context.Context, accountID string, score float64) error {
	if accountID == "" {
		return ErrEmptyAccountID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upsertLocked(accountID, score)
	return nil
}

// ApplyIncrements applies the batch under one lock. Validation happens
// before any write so a bad update leaves memory untouched.
func (m *Memory) ApplyIncrements(_ context.Context, updates []Increment) error {
	for _, u := range updates {
		if u.AccountID == "" {
			return ErrEmptyAccountID
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		m.upsertLocked(u.AccountID, u.Score)
	}
	return nil
}

func (m *Memory) upsertLocked(accountID string, score float64) {
	if rec, ok := m.records[accountID]; ok {
		rec.LastScore = score
		rec.TimesFlagged++
		rec.LastFlaggedAt = m.now().UTC()
		return
	}
	m.records[accountID] = &domain.HistoryRecord{
		AccountID:     accountID,
		LastScore:     score,
		TimesFlagged:  1,
		LastFlaggedAt: m.now().UTC(),
	}
}

// ListAll returns every record ordered by account id.
func (m *Memory) ListAll(_ context.Context) ([]domain.HistoryRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.HistoryRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
