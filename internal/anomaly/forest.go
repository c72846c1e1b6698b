// Package anomaly scores per-account behaviour with an isolation forest.
//
// The model follows the reference isolation-forest conventions: random
// recursive partitioning, anomaly score derived from the average isolation
// path length, and a decision function offset by the contamination
// percentile so that negative values mark the anomalous fraction. The seed
// is fixed so repeated runs over the same batch rank accounts identically.
package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"muleguard/intel-api/internal/graph"
)

const (
	numTrees      = 100
	maxSamples    = 256
	contamination = 0.1
	randomSeed    = 42
)

// Scores fits the forest over every account's 5-dimensional feature vector
// [in_degree, out_degree, total_sent, total_received, transaction_count]
// and returns account_id → decision value. More negative means more
// anomalous; roughly the contamination fraction of accounts lands below 0.
func Scores(g *graph.Graph) map[string]float64 {
	accounts := g.Nodes()
	out := make(map[string]float64, len(accounts))
	if len(accounts) == 0 {
		return out
	}

	features := make([][5]float64, len(accounts))
	for i, id := range accounts {
		in := float64(g.InDegree(id))
		o := float64(g.OutDegree(id))
		features[i] = [5]float64{in, o, g.TotalSent(id), g.TotalReceived(id), in + o}
	}

	f := fit(features, rand.New(rand.NewSource(randomSeed)))
	raw := make([]float64, len(features))
	for i := range features {
		raw[i] = f.scoreSample(features[i])
	}

	// Offset at the contamination percentile: the most anomalous 10% of
	// training points score below zero.
	offset := percentile(raw, contamination*100)
	for i, id := range accounts {
		out[id] = raw[i] - offset
	}
	return out
}

// ─── Forest internals ────────────────────────────────────────────────────────

type treeNode struct {
	// Leaf when left is nil; size is the number of training points that
	// reached it.
	size        int
	splitFeat   int
	splitValue  float64
	left, right *treeNode
}

type forest struct {
	trees []*treeNode
	// cPsi normalizes path lengths by the average unsuccessful-search depth
	// of a tree built over the subsample size.
	cPsi float64
}

func fit(features [][5]float64, rng *rand.Rand) *forest {
	n := len(features)
	psi := n
	if psi > maxSamples {
		psi = maxSamples
	}
	heightLimit := int(math.Ceil(math.Log2(math.Max(float64(psi), 2))))

	f := &forest{cPsi: avgPathLength(psi)}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	for t := 0; t < numTrees; t++ {
		sample := indices
		if n > maxSamples {
			perm := rng.Perm(n)
			sample = perm[:maxSamples]
		}
		f.trees = append(f.trees, buildTree(features, append([]int{}, sample...), 0, heightLimit, rng))
	}
	return f
}

func buildTree(features [][5]float64, sample []int, depth, heightLimit int, rng *rand.Rand) *treeNode {
	if depth >= heightLimit || len(sample) <= 1 {
		return &treeNode{size: len(sample)}
	}

	// Split on a random feature that still varies within the sample.
	var candidates []int
	var lo, hi [5]float64
	for feat := 0; feat < 5; feat++ {
		lo[feat] = features[sample[0]][feat]
		hi[feat] = lo[feat]
		for _, i := range sample[1:] {
			v := features[i][feat]
			if v < lo[feat] {
				lo[feat] = v
			}
			if v > hi[feat] {
				hi[feat] = v
			}
		}
		if hi[feat] > lo[feat] {
			candidates = append(candidates, feat)
		}
	}
	if len(candidates) == 0 {
		return &treeNode{size: len(sample)}
	}

	feat := candidates[rng.Intn(len(candidates))]
	split := lo[feat] + rng.Float64()*(hi[feat]-lo[feat])

	var left, right []int
	for _, i := range sample {
		if features[i][feat] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{size: len(sample)}
	}

	return &treeNode{
		size:       len(sample),
		splitFeat:  feat,
		splitValue: split,
		left:       buildTree(features, left, depth+1, heightLimit, rng),
		right:      buildTree(features, right, depth+1, heightLimit, rng),
	}
}

// scoreSample returns the sample-score convention of the reference model:
// -2^(-E[h(x)]/c(psi)), in (-1, 0), where shorter average paths push the
// value toward -1.
func (f *forest) scoreSample(x [5]float64) float64 {
	if f.cPsi == 0 {
		return -0.5
	}
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, x, 0)
	}
	avg := total / float64(len(f.trees))
	return -math.Pow(2, -avg/f.cPsi)
}

func pathLength(node *treeNode, x [5]float64, depth int) float64 {
	if node.left == nil {
		return float64(depth) + avgPathLength(node.size)
	}
	if x[node.splitFeat] < node.splitValue {
		return pathLength(node.left, x, depth+1)
	}
	return pathLength(node.right, x, depth+1)
}

// avgPathLength is c(n): the average path length of an unsuccessful search
// in a binary search tree over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + 0.5772156649 // harmonic number approximation
		return 2*h - 2*float64(n-1)/float64(n)
	}
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
