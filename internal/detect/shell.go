package detect

import (
	"fmt"

	"muleguard/intel-api/internal/domain"
	"muleguard/intel-api/internal/graph"
)

// Shell-chain contract: simple paths of at least 4 nodes and at most 7 edges
// where every intermediary has in-degree and out-degree of at most 2 in the
// full graph. Endpoints are exempt from the degree cap.
const (
	shellMinNodes  = 4
	shellMaxEdges  = 7
	shellDegreeCap = 2
)

// DetectShellChains enumerates bounded simple paths through low-traffic
// intermediaries. The search is a depth-first walk that prunes a branch as
// soon as the node it would pass through exceeds the degree cap, instead of
// enumerating full paths and filtering afterwards. Every qualifying path is
// its own ring; every path member is seeded as a suspicious account, with
// the first containing ring winning on overlap (consolidation dedupes).
func DetectShellChains(g *graph.Graph) Findings {
	var f Findings
	n := 0

	emit := func(path []string) {
		n++
		ringID := fmt.Sprintf("SHELL_%03d", n)
		members := make([]string, len(path))
		copy(members, path)
		f.Rings = append(f.Rings, domain.Ring{
			RingID:         ringID,
			MemberAccounts: members,
			PatternType:    domain.PatternShellChain,
		})
		for _, account := range members {
			f.Accounts = append(f.Accounts, &domain.SuspiciousAccount{
				AccountID:        account,
				DetectedPatterns: []domain.PatternType{domain.PatternShellChain},
				RingID:           ringID,
			})
		}
	}

	path := make([]string, 0, shellMaxEdges+1)
	onPath := make(map[string]bool, shellMaxEdges+1)

	var walk func(cur string)
	walk = func(cur string) {
		for _, next := range g.Successors(cur) {
			if onPath[next] {
				continue
			}
			path = append(path, next)
			if len(path) >= shellMinNodes {
				// next is the path's endpoint here, so its own degree
				// does not matter.
				emit(path)
			}
			// Extending past next makes it an intermediary: prune unless
			// it looks like a low-traffic pass-through.
			if len(path) <= shellMaxEdges &&
				g.InDegree(next) <= shellDegreeCap &&
				g.OutDegree(next) <= shellDegreeCap {
				onPath[next] = true
				walk(next)
				onPath[next] = false
			}
			path = path[:len(path)-1]
		}
	}

	for _, source := range g.SortedNodes() {
		path = append(path[:0], source)
		onPath[source] = true
		walk(source)
		onPath[source] = false
	}
	return f
}
