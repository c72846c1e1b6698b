// Package detect implements the three structural pattern detectors (cycles,
// smurfing, shell chains) and the consolidation of their findings.
//
// Each detector returns its findings as a Findings value: the rings it
// produced plus the suspicious-account seeds for every ring member. Ring ids
// are namespaced per detector and numbered monotonically within a run.
package detect

import (
	"fmt"

	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/graph"
)

// Findings is one detector's output before consolidation.
type Findings struct {
	Rings    []domain.Ring
	Accounts []*domain.SuspiciousAccount
}

// Cycle window: only circular routes of 3 to 5 accounts count as rings.
// Shorter loops are ordinary back-and-forth transfers; longer ones drown in
// false positives.
const (
	cycleMinLen = 3
	cycleMaxLen = 5
)

// DetectCycles enumerates every simple directed cycle of 3-5 accounts and
// turns each into a fraud ring of type cycle. An account appearing in
// several cycles keeps its first ring id while "cycle" is recorded once per
// containing ring.
func DetectCycles(g *graph.Graph) Findings {
	cycles := simpleCycles(g, cycleMaxLen)

	var f Findings
	byAccount := make(map[string]*domain.SuspiciousAccount)

	n := 0
	for _, cycle := range cycles {
		if len(cycle) < cycleMinLen {
			continue
		}
		n++
		ringID := fmt.Sprintf("RING_%03d", n)
		f.Rings = append(f.Rings, domain.Ring{
			RingID:         ringID,
			MemberAccounts: cycle,
			PatternType:    domain.PatternCycle,
		})

		for _, account := range cycle {
			acc, ok := byAccount[account]
			if !ok {
				acc = &domain.SuspiciousAccount{
					AccountID: account,
					RingID:    ringID,
				}
				byAccount[account] = acc
				f.Accounts = append(f.Accounts, acc)
			}
			acc.DetectedPatterns = append(acc.DetectedPatterns, domain.PatternCycle)
		}
	}
	return f
}

// simpleCycles enumerates every simple directed cycle with at most maxLen
// nodes, each reported exactly once, starting from its lexicographically
// smallest account. Bounding the search depth at maxLen keeps the walk
// tractable while still covering the full retained window.
func simpleCycles(g *graph.Graph, maxLen int) [][]string {
	order := g.SortedNodes()
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	var cycles [][]string
	path := make([]string, 0, maxLen)
	onPath := make(map[string]bool, maxLen)

	var walk func(start, cur string)
	walk = func(start, cur string) {
		for _, next := range g.Successors(cur) {
			if next == start {
				// Closing edge. Self-loops and 2-cycles are still
				// cycles; the caller filters by length.
				cycle := make([]string, len(path))
				copy(cycle, path)
				cycles = append(cycles, cycle)
				continue
			}
			if onPath[next] || rank[next] < rank[start] {
				continue
			}
			if len(path) == maxLen {
				continue
			}
			path = append(path, next)
			onPath[next] = true
			walk(start, next)
			onPath[next] = false
			path = path[:len(path)-1]
		}
	}

	for _, start := range order {
		path = append(path[:0], start)
		onPath[start] = true
		walk(start, start)
		onPath[start] = false
	}
	return cycles
}
