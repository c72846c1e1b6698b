// Package engine runs a full fraud analysis pass over one transaction batch.
//
// The pipeline is: build the transaction graph, compute graph metrics and
// pattern detections in parallel, consolidate the findings into rings and
// accounts, score them, and commit the suspicion memory for every account
// that survived the dynamic threshold. The engine owns the ordering and the
// memory commit; all scoring math lives in the scoring package.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"muleguard/intel-api/internal/anomaly"
	"muleguard/intel-api/internal/detect"
	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/graph"
	"muleguard/intel-api/internal/scoring"
	"muleguard/intel-api/internal/store"
)

// Engine wires the detection pipeline to a suspicion memory backend.
type Engine struct {
	history store.History
	scorer  *scoring.Engine
	logger  *slog.Logger
}

func New(history store.History, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		history: history,
		scorer:  scoring.New(history),
		logger:  logger,
	}
}

// Analyze runs the complete pipeline over one batch and persists a suspicion
// memory increment for every flagged account. The batch is analyzed in
// isolation; only the memory store carries state across calls.
func (e *Engine) Analyze(ctx context.Context, batch []domain.Transaction) (*domain.AnalysisResult, error) {
	started := time.Now()

	g := graph.Build(batch)
	if g.NodeCount() == 0 {
		return emptyResult(), nil
	}

	var (
		degree      map[string]float64
		betweenness map[string]float64
		pagerank    map[string]float64
		anomalies   map[string]float64
		cycles      detect.Findings
		smurfs      detect.Findings
		shells      detect.Findings
	)

	// Metrics and detectors only read the graph, so they fan out freely.
	eg, _ := errgroup.WithContext(ctx)
	eg.Go(func() error { degree = graph.DegreeCentrality(g); return nil })
	eg.Go(func() error { betweenness = graph.BetweennessCentrality(g); return nil })
	eg.Go(func() error { pagerank = graph.PageRank(g); return nil })
	eg.Go(func() error { anomalies = anomaly.Scores(g); return nil })
	eg.Go(func() error { cycles = detect.DetectCycles(g); return nil })
	eg.Go(func() error { smurfs = detect.DetectSmurfing(batch); return nil })
	eg.Go(func() error { shells = detect.DetectShellChains(g); return nil })
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	rings, accounts := detect.Consolidate(cycles, smurfs, shells)

	sig := scoring.Signals{
		TxCounts:    txCounts(batch),
		Degree:      degree,
		Betweenness: betweenness,
		PageRank:    pagerank,
		Anomaly:     anomalies,
	}
	outcome, err := e.scorer.Run(ctx, accounts, rings, sig)
	if err != nil {
		return nil, fmt.Errorf("scoring batch: %w", err)
	}

	if err := e.history.ApplyIncrements(ctx, outcome.Increments); err != nil {
		return nil, fmt.Errorf("recording suspicion memory: %w", err)
	}

	if outcome.Rings == nil {
		outcome.Rings = []domain.Ring{}
	}
	if outcome.Accounts == nil {
		outcome.Accounts = []*domain.SuspiciousAccount{}
	}
	result := &domain.AnalysisResult{
		FraudRings:         outcome.Rings,
		SuspiciousAccounts: outcome.Accounts,
		Summary:            summarize(g, batch, outcome),
	}
	e.logger.Info("analysis complete",
		"transactions", len(batch),
		"accounts", g.NodeCount(),
		"flagged", len(outcome.Accounts),
		"rings", len(outcome.Rings),
		"threshold", result.Summary.DynamicThresholdUsed,
		"duration", time.Since(started).Round(time.Millisecond),
	)
	return result, nil
}

func summarize(g *graph.Graph, batch []domain.Transaction, out *scoring.Outcome) domain.Summary {
	s := domain.Summary{
		TotalAccountsAnalyzed:     g.NodeCount(),
		TotalTransactions:         len(batch),
		SuspiciousAccountsFlagged: len(out.Accounts),
		FraudRingsDetected:        len(out.Rings),
		DynamicThresholdUsed:      round2(out.Threshold),
	}
	for _, acc := range out.Accounts {
		switch acc.RiskLevel {
		case domain.RiskHigh:
			s.HighRiskAccounts++
		case domain.RiskMedium:
			s.MediumRiskAccounts++
		default:
			s.LowRiskAccounts++
		}
	}
	if s.TotalAccountsAnalyzed > 0 {
		s.FraudDensityPercentage = round2(float64(s.SuspiciousAccountsFlagged) / float64(s.TotalAccountsAnalyzed) * 100)
	}
	return s
}

// txCounts counts every appearance of an account in the batch, as sender or
// receiver. A self-transfer counts twice.
func txCounts(batch []domain.Transaction) map[string]int {
	counts := make(map[string]int, len(batch))
	for _, tx := range batch {
		counts[tx.SenderID]++
		counts[tx.ReceiverID]++
	}
	return counts
}

func emptyResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		FraudRings:         []domain.Ring{},
		SuspiciousAccounts: []*domain.SuspiciousAccount{},
		Summary: domain.Summary{
			DynamicThresholdUsed: domain.MinDynamicThreshold,
		},
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
