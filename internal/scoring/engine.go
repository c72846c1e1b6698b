// Package scoring implements the hybrid suspicion scoring engine.
//
// Architecture:
//   The engine scores consolidated accounts in place but never commits the
//   memory writes itself. It plans one increment per surviving account and
//   hands the batch back to the caller, so a failed commit cannot leave the
//   run half-applied and the times_flagged value used in scoring is always
//   the pre-increment one.
//
// Scoring philosophy:
//   Each signal contributes a non-negative delta and one explanation string.
//   Signals are evaluated in a fixed order so explanations read the same
//   way on every run: pattern memberships first, then the statistical
//   anomaly boost, then graph centrality, activity, and finally the
//   persistent suspicion memory.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/store"
)

// Signal weights. Values are exact contracts shared with downstream
// consumers of the explanation strings.
const (
	cycleBoost        = 50.0
	aggregatorBoost   = 45.0
	feederBoost       = 35.0
	shellBoost        = 25.0
	anomalyScale      = 50.0
	connectivityBoost = 5.0
	bridgeBoost       = 10.0
	influenceBoost    = 5.0
	activityBoost     = 10.0
	memoryBoostStep   = 5.0

	degreeCutoff      = 0.1
	betweennessCutoff = 0.05
	pageRankCutoff    = 0.05
	aggregatorTxCount = 2
	activityTxCount   = 5
)

// Signals bundles the precomputed per-account inputs the engine scores
// against.
type Signals struct {
	// TxCounts is how often each account appears as sender or receiver
	// across the whole batch.
	TxCounts map[string]int

	Degree      map[string]float64
	Betweenness map[string]float64
	PageRank    map[string]float64
	Anomaly     map[string]float64
}

// Outcome is the scored, thresholded result of one run.
type Outcome struct {
	Accounts  []*domain.SuspiciousAccount
	Rings     []domain.Ring
	Threshold float64

	// Increments holds exactly one planned memory write per surviving
	// account, reflecting its final score.
	Increments []store.Increment
}

// Engine scores consolidated suspicious accounts. It reads the suspicion
// memory but leaves writes to the caller.
type Engine struct {
	history store.History
}

// New creates a scoring engine backed by the given suspicion memory.
func New(h store.History) *Engine {
	return &Engine{history: h}
}

// Run scores every account in place, applies the dynamic threshold, prunes
// rings with no surviving member, and plans the memory increments.
func (e *Engine) Run(ctx context.Context, accounts []*domain.SuspiciousAccount, rings []domain.Ring, sig Signals) (*Outcome, error) {
	for _, acc := range accounts {
		if err := e.score(ctx, acc, sig); err != nil {
			return nil, err
		}
	}

	threshold := domain.MinDynamicThreshold
	if len(accounts) > 0 {
		scores := make([]float64, len(accounts))
		for i, acc := range accounts {
			scores[i] = acc.SuspicionScore
		}
		if p70 := percentile(scores, 70); p70 > threshold {
			threshold = p70
		}
	}

	var surviving []*domain.SuspiciousAccount
	survivingIDs := make(map[string]bool)
	for _, acc := range accounts {
		if acc.SuspicionScore >= threshold {
			surviving = append(surviving, acc)
			survivingIDs[acc.AccountID] = true
		}
	}

	var keptRings []domain.Ring
	for _, ring := range rings {
		for _, member := range ring.MemberAccounts {
			if survivingIDs[member] {
				keptRings = append(keptRings, ring)
				break
			}
		}
	}

	increments := make([]store.Increment, 0, len(surviving))
	for _, acc := range surviving {
		increments = append(increments, store.Increment{
			AccountID: acc.AccountID,
			Score:     acc.SuspicionScore,
		})
	}

	return &Outcome{
		Accounts:   surviving,
		Rings:      keptRings,
		Threshold:  threshold,
		Increments: increments,
	}, nil
}

// score accumulates the account's raw score and explanation in signal order.
func (e *Engine) score(ctx context.Context, acc *domain.SuspiciousAccount, sig Signals) error {
	raw := 0.0
	var reasons []string

	add := func(delta float64, reason string) {
		raw += delta
		reasons = append(reasons, reason)
	}

	txCount := sig.TxCounts[acc.AccountID]

	if acc.HasPattern(domain.PatternCycle) {
		add(cycleBoost, "Participates in circular routing pattern")
	}
	if acc.HasPattern(domain.PatternSmurfing) {
		if txCount > aggregatorTxCount {
			add(aggregatorBoost, "Acts as smurfing aggregator")
		} else {
			add(feederBoost, "Participates as smurfing feeder")
		}
	}
	if acc.HasPattern(domain.PatternShellChain) {
		add(shellBoost, "Involved in shell layering chain")
	}

	if a := sig.Anomaly[acc.AccountID]; a < 0 {
		add(math.Abs(a)*anomalyScale, "Statistically abnormal transaction behavior")
	}

	if sig.Degree[acc.AccountID] > degreeCutoff {
		add(connectivityBoost, "High connectivity in transaction graph")
	}
	if sig.Betweenness[acc.AccountID] > betweennessCutoff {
		add(bridgeBoost, "Acts as bridge between transaction paths")
	}
	if sig.PageRank[acc.AccountID] > pageRankCutoff {
		add(influenceBoost, "High influence score (PageRank)")
	}

	if txCount > activityTxCount {
		add(activityBoost, "High transaction activity")
	}

	rec, err := e.history.Get(ctx, acc.AccountID)
	if err != nil {
		return fmt.Errorf("read suspicion memory for %s: %w", acc.AccountID, err)
	}
	if rec != nil {
		add(float64(rec.TimesFlagged)*memoryBoostStep,
			fmt.Sprintf("Previously flagged %d time(s)", rec.TimesFlagged))
	}

	acc.SuspicionScore = round2(raw)
	acc.RiskLevel = riskLevel(acc.SuspicionScore)
	acc.Reasons = reasons
	acc.Explanation = strings.Join(reasons, "; ")
	return nil
}

func riskLevel(score float64) string {
	switch {
	case score >= domain.ThresholdHigh:
		return domain.RiskHigh
	case score >= domain.ThresholdMedium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentile computes the q-th percentile (0-100) with linear interpolation
// between closest ranks, matching the numpy default.
func percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)

	rank := q / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}
