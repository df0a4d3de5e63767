// Package boost implements gradient-boosted regression trees: an
// ensemble of shallow CART regression trees fit to residuals with
// shrinkage. The trainer is deterministic for a fixed seed.
package boost

import (
	"sort"
)

// TreeNode is one node of a regression tree. Fields are exported so a
// trained ensemble survives gob encoding inside a model bundle.
type TreeNode struct {
	// Leaf reports whether this node is terminal.
	Leaf bool

	// Value is the prediction emitted at a leaf.
	Value float64

	// Feature and Threshold define the split: samples with
	// x[Feature] <= Threshold go left.
	Feature   int
	Threshold float64

	Left  *TreeNode
	Right *TreeNode
}

// PredictRow walks the tree for a single sample.
func (n *TreeNode) PredictRow(x []float64) float64 {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// treeBuilder grows one regression tree on the rows listed in idx,
// choosing the split with the largest reduction in the sum of squared
// errors of the target.
type treeBuilder struct {
	X        [][]float64
	y        []float64
	params   TrainingParams
	features []int // candidate feature indices for this tree
}

func (b *treeBuilder) build(idx []int, depth int) *TreeNode {
	if len(idx) < b.params.MinSamplesSplit || (b.params.MaxDepth > 0 && depth >= b.params.MaxDepth) {
		return b.leaf(idx)
	}

	best, ok := b.bestSplit(idx)
	if !ok {
		return b.leaf(idx)
	}

	var left, right []int
	for _, i := range idx {
		if b.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < b.params.MinSamplesLeaf || len(right) < b.params.MinSamplesLeaf {
		return b.leaf(idx)
	}

	return &TreeNode{
		Feature:   best.feature,
		Threshold: best.threshold,
		Left:      b.build(left, depth+1),
		Right:     b.build(right, depth+1),
	}
}

func (b *treeBuilder) leaf(idx []int) *TreeNode {
	var sum float64
	for _, i := range idx {
		sum += b.y[i]
	}
	value := 0.0
	if len(idx) > 0 {
		value = sum / float64(len(idx))
	}
	return &TreeNode{Leaf: true, Value: value}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// bestSplit scans every candidate feature with a sorted sweep, using
// prefix sums to score each cut point in O(1).
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	n := len(idx)

	var totalSum, totalSq float64
	for _, i := range idx {
		totalSum += b.y[i]
		totalSq += b.y[i] * b.y[i]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	type pair struct {
		value  float64
		target float64
	}
	pairs := make([]pair, n)

	best := split{gain: b.params.MinGainToSplit}
	found := false

	for _, feature := range b.features {
		for k, i := range idx {
			pairs[k] = pair{value: b.X[i][feature], target: b.y[i]}
		}
		sort.Slice(pairs, func(a, c int) bool { return pairs[a].value < pairs[c].value })

		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			leftSum += pairs[k].target
			leftSq += pairs[k].target * pairs[k].target

			// Only cut between distinct values.
			if pairs[k].value == pairs[k+1].value {
				continue
			}
			nLeft := k + 1
			nRight := n - nLeft
			if nLeft < b.params.MinSamplesLeaf || nRight < b.params.MinSamplesLeaf {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			leftSSE := leftSq - leftSum*leftSum/float64(nLeft)
			rightSSE := rightSq - rightSum*rightSum/float64(nRight)

			gain := parentSSE - leftSSE - rightSSE
			if gain > best.gain {
				best = split{
					feature:   feature,
					threshold: (pairs[k].value + pairs[k+1].value) / 2,
					gain:      gain,
				}
				found = true
			}
		}
	}
	return best, found
}
