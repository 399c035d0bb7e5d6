// Package ml trains and runs the gradient-boosted probability model. Trees
// grow leaf-wise with second-order (Newton) leaf values over the logistic
// loss, the same shape the LightGBM binary objective produces. The missing
// sentinel needs no special handling: it is an ordinary value outside every
// real feature range, so splits isolate it naturally.
package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Params controls tree growth and boosting.
type Params struct {
	NumLeaves       int
	LearningRate    float64
	NumEstimators   int
	FeatureFraction float64
	BaggingFraction float64
	BaggingFreq     int
	MinDataInLeaf   int
	Lambda          float64
	Seed            int64
}

// NormalParams is the full-strength training profile.
func NormalParams() Params {
	return Params{
		NumLeaves:       31,
		LearningRate:    0.05,
		NumEstimators:   100,
		FeatureFraction: 0.9,
		BaggingFraction: 0.8,
		BaggingFreq:     5,
		MinDataInLeaf:   20,
		Seed:            42,
	}
}

// LightweightParams is the reduced profile used for in-backtest retraining.
func LightweightParams() Params {
	p := NormalParams()
	p.NumLeaves = 15
	p.LearningRate = 0.10
	p.NumEstimators = 50
	return p
}

// Node is one tree node. Left/Right of -1 marks a leaf.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
}

// Tree is one regression tree in the ensemble.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Model is the serialized form of a trained classifier. All fields are
// exported for gob.
type Model struct {
	Base         float64
	LearningRate float64
	Trees        []Tree
	FeatureNames []string
}

// NumFeatures returns the width of the expected feature vector.
func (m *Model) NumFeatures() int {
	return len(m.FeatureNames)
}

// PredictProba returns the positive-class probability for one feature vector.
func (m *Model) PredictProba(x []float64) (float64, error) {
	if len(x) != len(m.FeatureNames) {
		return 0, fmt.Errorf("feature vector has %d slots, model expects %d", len(x), len(m.FeatureNames))
	}
	score := m.Base
	for i := range m.Trees {
		score += m.LearningRate * m.Trees[i].predict(x)
	}
	return sigmoid(score), nil
}

// PredictBatch returns probabilities for a matrix of feature vectors.
func (m *Model) PredictBatch(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i, x := range X {
		p, err := m.PredictProba(x)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// FeatureImportance sums split gain per feature across the ensemble.
func (m *Model) FeatureImportance() map[string]float64 {
	out := make(map[string]float64, len(m.FeatureNames))
	for _, name := range m.FeatureNames {
		out[name] = 0
	}
	for i := range m.Trees {
		for _, n := range m.Trees[i].Nodes {
			if n.Left >= 0 {
				out[m.FeatureNames[n.Feature]] += n.Gain
			}
		}
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// fit runs the boosting loop. X is row-major, y holds 0/1 labels.
func fit(X [][]float64, y []int, featureNames []string, p Params) *Model {
	n := len(X)
	rng := rand.New(rand.NewSource(p.Seed))

	base := baseScore(y)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = base
	}

	model := &Model{
		Base:         base,
		LearningRate: p.LearningRate,
		FeatureNames: featureNames,
		Trees:        make([]Tree, 0, p.NumEstimators),
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	bag := allIndices(n)

	for m := 0; m < p.NumEstimators; m++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(scores[i])
			grad[i] = prob - float64(y[i])
			hess[i] = prob * (1 - prob)
		}

		if p.BaggingFraction < 1 && p.BaggingFreq > 0 && m%p.BaggingFreq == 0 {
			bag = sampleIndices(rng, n, p.BaggingFraction)
		}
		features := sampleFeatures(rng, len(featureNames), p.FeatureFraction)

		tree := growTree(X, grad, hess, bag, features, p)
		model.Trees = append(model.Trees, tree)

		for i := 0; i < n; i++ {
			scores[i] += p.LearningRate * tree.predict(X[i])
		}
	}

	return model
}

func baseScore(y []int) float64 {
	pos := 0
	for _, v := range y {
		pos += v
	}
	p := float64(pos) / float64(len(y))
	const eps = 1e-6
	p = math.Min(1-eps, math.Max(eps, p))
	return math.Log(p / (1 - p))
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func sampleIndices(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Round(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

func sampleFeatures(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Round(float64(n) * fraction))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	perm := rng.Perm(n)[:k]
	sort.Ints(perm)
	return perm
}

// leaf tracks one growable leaf during construction.
type leaf struct {
	node    int
	samples []int
	sumG    float64
	sumH    float64
}

// split is the best found partition of one leaf.
type split struct {
	ok        bool
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// growTree grows one tree best-first until NumLeaves leaves exist or no
// split improves the loss.
func growTree(X [][]float64, grad, hess []float64, samples []int, features []int, p Params) Tree {
	t := Tree{}

	sumG, sumH := sums(grad, hess, samples)
	root := leaf{node: 0, samples: samples, sumG: sumG, sumH: sumH}
	t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Value: leafValue(sumG, sumH, p.Lambda)})

	leaves := []leaf{root}
	for len(leaves) < p.NumLeaves {
		bestIdx := -1
		var best split
		for li, l := range leaves {
			s := bestSplit(X, grad, hess, l, features, p)
			if s.ok && (bestIdx < 0 || s.gain > best.gain) {
				bestIdx = li
				best = s
			}
		}
		if bestIdx < 0 {
			break
		}

		parent := leaves[bestIdx]
		lg, lh := sums(grad, hess, best.left)
		rg, rh := sums(grad, hess, best.right)

		leftNode := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Value: leafValue(lg, lh, p.Lambda)})
		rightNode := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{Left: -1, Right: -1, Value: leafValue(rg, rh, p.Lambda)})

		t.Nodes[parent.node] = Node{
			Feature:   best.feature,
			Threshold: best.threshold,
			Left:      leftNode,
			Right:     rightNode,
			Gain:      best.gain,
		}

		leaves[bestIdx] = leaf{node: leftNode, samples: best.left, sumG: lg, sumH: lh}
		leaves = append(leaves, leaf{node: rightNode, samples: best.right, sumG: rg, sumH: rh})
	}

	return t
}

func sums(grad, hess []float64, samples []int) (float64, float64) {
	g, h := 0.0, 0.0
	for _, i := range samples {
		g += grad[i]
		h += hess[i]
	}
	return g, h
}

const hessianEps = 1e-12

func leafValue(g, h, lambda float64) float64 {
	return -g / (h + lambda + hessianEps)
}

func leafObjective(g, h, lambda float64) float64 {
	return g * g / (h + lambda + hessianEps)
}

// bestSplit exhaustively searches the sampled features for the partition
// with the highest gain.
func bestSplit(X [][]float64, grad, hess []float64, l leaf, features []int, p Params) split {
	if len(l.samples) < 2*p.MinDataInLeaf {
		return split{}
	}

	parentObj := leafObjective(l.sumG, l.sumH, p.Lambda)
	best := split{}

	ordered := make([]int, len(l.samples))
	for _, f := range features {
		copy(ordered, l.samples)
		sort.SliceStable(ordered, func(a, b int) bool {
			return X[ordered[a]][f] < X[ordered[b]][f]
		})

		gLeft, hLeft := 0.0, 0.0
		for pos := 0; pos < len(ordered)-1; pos++ {
			i := ordered[pos]
			gLeft += grad[i]
			hLeft += hess[i]

			// Split only between distinct values.
			if X[i][f] == X[ordered[pos+1]][f] {
				continue
			}
			nLeft := pos + 1
			nRight := len(ordered) - nLeft
			if nLeft < p.MinDataInLeaf || nRight < p.MinDataInLeaf {
				continue
			}

			gRight := l.sumG - gLeft
			hRight := l.sumH - hLeft
			gain := leafObjective(gLeft, hLeft, p.Lambda) + leafObjective(gRight, hRight, p.Lambda) - parentObj
			if gain <= 0 || (best.ok && gain <= best.gain) {
				continue
			}

			threshold := (X[i][f] + X[ordered[pos+1]][f]) / 2
			best = split{
				ok:        true,
				feature:   f,
				threshold: threshold,
				gain:      gain,
				left:      append([]int(nil), ordered[:nLeft]...),
				right:     append([]int(nil), ordered[nLeft:]...),
			}
		}
	}

	return best
}
