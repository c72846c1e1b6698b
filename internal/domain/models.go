// Package domain contains all core types used across the application.
// Keeping domain types in one place makes the fraud detection rules easy
// to reason about.
package domain

import "time"

// ─── Pattern types ───────────────────────────────────────────────────────────

// PatternType identifies which detector produced a finding. It is a closed
// set so the scoring engine can cover every case.
type PatternType string

const (
	PatternCycle      PatternType = "cycle"       // circular routing between 3-5 accounts
	PatternSmurfing   PatternType = "smurfing"    // fan-in aggregation within a time window
	PatternShellChain PatternType = "shell_chain" // layering through low-traffic intermediaries
)

// Risk level labels that correspond to score bands.
const (
	RiskHigh   = "HIGH"   // score >= 70
	RiskMedium = "MEDIUM" // score >= 50
	RiskLow    = "LOW"    // everything else
)

// Score thresholds for risk classification and the dynamic cutoff.
const (
	ThresholdHigh   = 70.0
	ThresholdMedium = 50.0

	// MinDynamicThreshold is the floor of the per-run score cutoff.
	// The actual cutoff is max(floor, 70th percentile of all scores).
	MinDynamicThreshold = 40.0
)

// ─── Core domain types ───────────────────────────────────────────────────────

// Transaction is one validated row of the uploaded batch. Immutable input.
type Transaction struct {
	TransactionID string    `json:"transaction_id"`
	SenderID      string    `json:"sender_id"`
	ReceiverID    string    `json:"receiver_id"`
	Amount        float64   `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

// Ring is a set of accounts tied together by one detected pattern instance.
// MemberAccounts preserves cycle/path order; for smurfing it is the sender
// set followed by the receiver.
type Ring struct {
	RingID         string      `json:"ring_id"`
	MemberAccounts []string    `json:"member_accounts"`
	PatternType    PatternType `json:"pattern_type"`
}

// SuspiciousAccount is created by the detectors and scored in place by the
// scoring engine. DetectedPatterns may hold duplicates when the same pattern
// flagged the account more than once in a run.
type SuspiciousAccount struct {
	AccountID        string        `json:"account_id"`
	DetectedPatterns []PatternType `json:"detected_patterns"`
	RingID           string        `json:"ring_id"`
	SuspicionScore   float64       `json:"suspicion_score"`
	RiskLevel        string        `json:"risk_level"`
	Explanation      string        `json:"explanation"`

	// Reasons holds the ordered explanation parts before joining.
	Reasons []string `json:"-"`
}

// HasPattern reports whether the account was flagged with the given pattern.
func (a *SuspiciousAccount) HasPattern(p PatternType) bool {
	for _, dp := range a.DetectedPatterns {
		if dp == p {
			return true
		}
	}
	return false
}

// ─── Persistent suspicion memory ─────────────────────────────────────────────

// HistoryRecord is the cross-run suspicion memory for one account.
// TimesFlagged only ever increases; it is incremented exactly once per run
// in which the account survives the dynamic threshold.
type HistoryRecord struct {
	AccountID     string    `json:"account_id"`
	LastScore     float64   `json:"last_score"`
	TimesFlagged  int       `json:"times_flagged"`
	LastFlaggedAt time.Time `json:"last_flagged_at"`
}

// ─── Analysis output ─────────────────────────────────────────────────────────

// Summary carries headline metrics for one analysis run.
type Summary struct {
	TotalAccountsAnalyzed     int     `json:"total_accounts_analyzed"`
	TotalTransactions         int     `json:"total_transactions"`
	SuspiciousAccountsFlagged int     `json:"suspicious_accounts_flagged"`
	FraudRingsDetected        int     `json:"fraud_rings_detected"`
	HighRiskAccounts          int     `json:"high_risk_accounts"`
	MediumRiskAccounts        int     `json:"medium_risk_accounts"`
	LowRiskAccounts           int     `json:"low_risk_accounts"`
	FraudDensityPercentage    float64 `json:"fraud_density_percentage"`
	DynamicThresholdUsed      float64 `json:"dynamic_threshold_used"`
}

// AnalysisResult is the full outcome of one batch run.
type AnalysisResult struct {
	FraudRings         []Ring               `json:"fraud_rings"`
	SuspiciousAccounts []*SuspiciousAccount `json:"suspicious_accounts"`
	Summary            Summary              `json:"summary"`
}

// ─── Webhooks ────────────────────────────────────────────────────────────────

// WebhookConfig is a registered callback that receives an alert whenever an
// analysis run flags accounts at or above the configured score threshold.
type WebhookConfig struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Threshold float64   `json:"threshold"` // fire when a surviving account scores >= this
	CreatedAt time.Time `json:"created_at"`
	Active    bool      `json:"active"`
}

// WebhookPayload is the body sent to registered webhook URLs.
type WebhookPayload struct {
	Event       string               `json:"event"` // always "high_risk_accounts"
	TriggeredAt time.Time            `json:"triggered_at"`
	Accounts    []*SuspiciousAccount `json:"accounts"`
	Summary     Summary              `json:"summary"`
}
