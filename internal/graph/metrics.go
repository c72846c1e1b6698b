package graph

import "math"

// Centrality signal conventions:
//
//   - Degree centrality: distinct undirected neighbours / (n-1). Self-loops
//     do not add a neighbour.
//   - Betweenness centrality: Brandes over directed unweighted shortest
//     paths, normalized by 1/((n-1)(n-2)).
//   - PageRank: damped random walk over the multigraph (parallel edges act
//     as transition weight), damping 0.85, power iteration until the L1
//     change drops below n*tol.
//
// All three return account_id → value maps consumed only by scoring.

const (
	pageRankDamping = 0.85
	pageRankTol     = 1e-6
	pageRankMaxIter = 100
)

// DegreeCentrality returns the fraction of possible neighbours each account
// is connected to, in the undirected sense.
func DegreeCentrality(g *Graph) map[string]float64 {
	n := len(g.ids)
	out := make(map[string]float64, n)
	if n <= 1 {
		for _, id := range g.ids {
			out[id] = 0
		}
		return out
	}

	denom := float64(n - 1)
	for i, id := range g.ids {
		seen := make(map[int]struct{}, len(g.succ[i])+len(g.pred[i]))
		for j := range g.succ[i] {
			if j != i {
				seen[j] = struct{}{}
			}
		}
		for j := range g.pred[i] {
			if j != i {
				seen[j] = struct{}{}
			}
		}
		out[id] = float64(len(seen)) / denom
	}
	return out
}

// BetweennessCentrality returns the normalized fraction of all-pairs
// directed shortest paths passing through each account (Brandes' algorithm).
func BetweennessCentrality(g *Graph) map[string]float64 {
	n := len(g.ids)
	cb := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0
		stack = stack[:0]
		queue = append(queue[:0], s)

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for w := range g.succ[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		// Accumulate dependencies in reverse BFS order.
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += sigma[v] / sigma[w] * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	out := make(map[string]float64, n)
	scale := 0.0
	if n > 2 {
		scale = 1 / float64((n-1)*(n-2))
	}
	for i, id := range g.ids {
		out[id] = cb[i] * scale
	}
	return out
}

// PageRank returns the damped random-walk stationary distribution over the
// multigraph. Rank from dangling accounts is redistributed uniformly.
func PageRank(g *Graph) map[string]float64 {
	n := len(g.ids)
	out := make(map[string]float64, n)
	if n == 0 {
		return out
	}

	x := make([]float64, n)
	next := make([]float64, n)
	for i := range x {
		x[i] = 1 / float64(n)
	}

	for iter := 0; iter < pageRankMaxIter; iter++ {
		danglesum := 0.0
		for i := range next {
			next[i] = 0
		}
		for u := 0; u < n; u++ {
			if g.outDeg[u] == 0 {
				danglesum += x[u]
				continue
			}
			share := pageRankDamping * x[u] / float64(g.outDeg[u])
			for v, mult := range g.succ[u] {
				next[v] += share * float64(mult)
			}
		}

		base := (1-pageRankDamping)/float64(n) + pageRankDamping*danglesum/float64(n)
		err := 0.0
		for i := range next {
			next[i] += base
			err += math.Abs(next[i] - x[i])
		}
		x, next = next, x

		if err < float64(n)*pageRankTol {
			break
		}
	}

	for i, id := range g.ids {
		out[id] = x[i]
	}
	return out
}
