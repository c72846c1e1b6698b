// Package graph builds the directed transaction multigraph and computes the
// centrality signals consumed by the scoring engine.
//
// The graph is built once per run and read-only afterwards. Parallel
// transfers between the same ordered pair of accounts are kept as separate
// edges; self-transfers are kept as self-loops.
package graph

import (
	"sort"
	"time"

	"muleguard/intel-api/internal/domain"
)

// Edge is one transaction projected onto the graph.
type Edge struct {
	From      string
	To        string
	Amount    float64
	Timestamp time.Time
}

// Graph is a directed multigraph of accounts. Nodes are account identifiers
// in first-seen order.
type Graph struct {
	ids   []string
	index map[string]int

	// succ[i] / pred[i] map a neighbour index to the number of parallel
	// edges, so degree counts and random-walk weights see multiplicity
	// while adjacency stays deduplicated.
	succ []map[int]int
	pred []map[int]int

	inDeg  []int // edge counts, self-loops included
	outDeg []int
	sent   []float64
	recv   []float64

	edges []Edge
}

// Build constructs the graph from a validated transaction batch. Every
// account that appears as sender or receiver becomes a node; every
// transaction becomes one directed edge sender→receiver.
func Build(batch []domain.Transaction) *Graph {
	g := &Graph{index: make(map[string]int)}
	for _, tx := range batch {
		s := g.addNode(tx.SenderID)
		r := g.addNode(tx.ReceiverID)

		g.succ[s][r]++
		g.pred[r][s]++
		g.outDeg[s]++
		g.inDeg[r]++
		g.sent[s] += tx.Amount
		g.recv[r] += tx.Amount

		g.edges = append(g.edges, Edge{
			From:      tx.SenderID,
			To:        tx.ReceiverID,
			Amount:    tx.Amount,
			Timestamp: tx.Timestamp,
		})
	}
	return g
}

func (g *Graph) addNode(id string) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	i := len(g.ids)
	g.index[id] = i
	g.ids = append(g.ids, id)
	g.succ = append(g.succ, make(map[int]int))
	g.pred = append(g.pred, make(map[int]int))
	g.inDeg = append(g.inDeg, 0)
	g.outDeg = append(g.outDeg, 0)
	g.sent = append(g.sent, 0)
	g.recv = append(g.recv, 0)
	return i
}

// Nodes returns the account ids in first-seen order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.ids))
	copy(out, g.ids)
	return out
}

// SortedNodes returns the account ids in lexicographic order. Detectors use
// it so ring numbering is deterministic across runs.
func (g *Graph) SortedNodes() []string {
	out := g.Nodes()
	sort.Strings(out)
	return out
}

// NodeCount returns the number of accounts in the graph.
func (g *Graph) NodeCount() int { return len(g.ids) }

// EdgeCount returns the number of transactions in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// HasNode reports whether the account appears in the graph.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.index[id]
	return ok
}

// InDegree returns the number of incoming edges, counting parallel transfers.
func (g *Graph) InDegree(id string) int {
	if i, ok := g.index[id]; ok {
		return g.inDeg[i]
	}
	return 0
}

// OutDegree returns the number of outgoing edges, counting parallel transfers.
func (g *Graph) OutDegree(id string) int {
	if i, ok := g.index[id]; ok {
		return g.outDeg[i]
	}
	return 0
}

// TotalSent returns the summed amount the account sent.
func (g *Graph) TotalSent(id string) float64 {
	if i, ok := g.index[id]; ok {
		return g.sent[i]
	}
	return 0
}

// TotalReceived returns the summed amount the account received.
func (g *Graph) TotalReceived(id string) float64 {
	if i, ok := g.index[id]; ok {
		return g.recv[i]
	}
	return 0
}

// Successors returns the distinct accounts this account sent to, in
// lexicographic order.
func (g *Graph) Successors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.succ[i]))
	for j := range g.succ[i] {
		out = append(out, g.ids[j])
	}
	sort.Strings(out)
	return out
}

// Edges returns a copy of every edge in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}
