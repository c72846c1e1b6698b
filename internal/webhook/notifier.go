// Package webhook handles asynchronous notifications to registered webhook URLs
// when an analysis run flags high-risk accounts.
//
// Notifications are sent in a goroutine so they never block the HTTP response.
// Failed deliveries are logged but not retried (a production system would use
// a persistent queue with exponential backoff).
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"muleguard/intel-api/internal/domain"
)

// Registry holds the registered webhook endpoints for this process.
type Registry struct {
	mu    sync.RWMutex
	hooks map[string]*domain.WebhookConfig
}

func NewRegistry() *Registry {
	return &Registry{hooks: make(map[string]*domain.WebhookConfig)}
}

// Register adds a webhook endpoint and returns its generated config.
func (r *Registry) Register(url string, threshold float64) *domain.WebhookConfig {
	wh := &domain.WebhookConfig{
		ID:        uuid.NewString(),
		URL:       url,
		Threshold: threshold,
		CreatedAt: time.Now().UTC(),
		Active:    true,
	}
	r.mu.Lock()
	r.hooks[wh.ID] = wh
	r.mu.Unlock()
	return wh
}

// Delete removes a webhook by ID; it reports whether the ID existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hooks[id]; !ok {
		return false
	}
	delete(r.hooks, id)
	return true
}

// ListActive returns all active webhooks, ordered by creation time.
func (r *Registry) ListActive() []*domain.WebhookConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.WebhookConfig, 0, len(r.hooks))
	for _, wh := range r.hooks {
		if wh.Active {
			out = append(out, wh)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Notifier sends webhook payloads to all registered, active endpoints.
type Notifier struct {
	registry *Registry
	client   *http.Client
}

// New creates a Notifier with a sensible default HTTP client timeout.
func New(r *Registry) *Notifier {
	return &Notifier{
		registry: r,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// NotifyAsync fires webhook calls in the background for one analysis result.
// Each active webhook receives only the flagged accounts at or above its own
// threshold; webhooks with no matching accounts stay silent.
func (n *Notifier) NotifyAsync(result *domain.AnalysisResult) {
	for _, wh := range n.registry.ListActive() {
		var matched []*domain.SuspiciousAccount
		for _, acc := range result.SuspiciousAccounts {
			if acc.SuspicionScore >= wh.Threshold {
				matched = append(matched, acc)
			}
		}
		if len(matched) > 0 {
			go n.send(wh, matched, result.Summary)
		}
	}
}

// send delivers a single webhook call and logs the outcome.
func (n *Notifier) send(wh *domain.WebhookConfig, accounts []*domain.SuspiciousAccount, summary domain.Summary) {
	payload := domain.WebhookPayload{
		Event:       "high_risk_accounts",
		TriggeredAt: time.Now().UTC(),
		Accounts:    accounts,
		Summary:     summary,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("webhook: failed to marshal payload", "webhook_id", wh.ID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		slog.Error("webhook: failed to build request", "webhook_id", wh.ID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Muleguard-Event", "high_risk_accounts")

	resp, err := n.client.Do(req)
	if err != nil {
		slog.Warn("webhook: delivery failed", "webhook_id", wh.ID, "url", wh.URL, "error", err)
		return
	}
	defer resp.Body.Close()

	slog.Info("webhook: delivered",
		"webhook_id", wh.ID,
		"url", wh.URL,
		"status", resp.StatusCode,
		"accounts", len(accounts),
	)
}
