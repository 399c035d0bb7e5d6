package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// precisionAtK ranks the holdout globally by predicted probability and
// reports the positive fraction of the top k.
func precisionAtK(y []int, probs []float64, k int) float64 {
	if len(y) == 0 {
		return 0
	}
	if k > len(y) {
		k = len(y)
	}

	order := argsortDesc(probs)
	hits := 0
	for _, idx := range order[:k] {
		hits += y[idx]
	}
	return float64(hits) / float64(k)
}

// groupedPrecisionAtK computes precision@k within each race group and
// averages over groups, the form the reporter treats as canonical.
func groupedPrecisionAtK(y []int, probs []float64, groups []string, k int) float64 {
	byGroup := map[string][]int{}
	for i, g := range groups {
		byGroup[g] = append(byGroup[g], i)
	}

	total := 0.0
	counted := 0
	for _, indices := range byGroup {
		kk := k
		if kk > len(indices) {
			kk = len(indices)
		}
		if kk == 0 {
			continue
		}
		sort.SliceStable(indices, func(a, b int) bool {
			return probs[indices[a]] > probs[indices[b]]
		})
		hits := 0
		for _, idx := range indices[:kk] {
			hits += y[idx]
		}
		total += float64(hits) / float64(kk)
		counted++
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// rocAUC computes the area under the ROC curve. ok is false when the
// holdout holds a single class.
func rocAUC(y []int, probs []float64) (float64, bool) {
	pos := 0
	for _, v := range y {
		pos += v
	}
	if pos == 0 || pos == len(y) {
		return 0, false
	}

	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] < probs[order[b]]
	})

	sorted := make([]float64, len(order))
	classes := make([]bool, len(order))
	for i, idx := range order {
		sorted[i] = probs[idx]
		classes[i] = y[idx] == 1
	}

	tpr, fpr, _ := stat.ROC(nil, sorted, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), true
}

// logLoss is the mean negative log-likelihood with clamped probabilities.
func logLoss(y []int, probs []float64) float64 {
	const eps = 1e-15
	sum := 0.0
	for i, p := range probs {
		p = math.Min(1-eps, math.Max(eps, p))
		if y[i] == 1 {
			sum += -math.Log(p)
		} else {
			sum += -math.Log(1 - p)
		}
	}
	return sum / float64(len(probs))
}

func argsortDesc(values []float64) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] > values[order[b]]
	})
	return order
}
