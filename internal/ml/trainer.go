package ml

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-analytics/internal/models"
)

// MinTrainingSamples is the floor below which a fit is refused.
const MinTrainingSamples = 100

// DefaultCVFolds is the stratified cross-validation fold count.
const DefaultCVFolds = 5

// cvSeed fixes fold assignment so repeated runs produce identical metrics.
const cvSeed = 42

// CVMetrics is the bundle reported by a cross-validated training round.
// RaceGrouped records whether Precision@K was computed per race group or
// globally over each holdout.
type CVMetrics struct {
	PrecisionAt1 float64
	PrecisionAt3 float64
	AUC          float64
	LogLoss      float64
	AUCFolds     int
	RaceGrouped  bool
	Samples      int
}

// Trainer fits the gradient-boosted classifier.
type Trainer struct {
	params Params
	folds  int
	logger *logrus.Logger
}

// NewTrainer creates a trainer. lightweight selects the reduced profile
// used during backtest retraining.
func NewTrainer(lightweight bool, logger *logrus.Logger) *Trainer {
	if logger == nil {
		logger = logrus.New()
	}
	params := NormalParams()
	if lightweight {
		params = LightweightParams()
	}
	return &Trainer{params: params, folds: DefaultCVFolds, logger: logger}
}

// WithFolds overrides the CV fold count.
func (t *Trainer) WithFolds(folds int) *Trainer {
	if folds > 1 {
		t.folds = folds
	}
	return t
}

// Train fits on the full data without cross-validation.
func (t *Trainer) Train(X [][]float64, y []int, featureNames []string) (*Model, error) {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return nil, err
	}
	return fit(X, y, featureNames, t.params), nil
}

// TrainWithCV runs stratified K-fold cross-validation, aggregates fold
// metrics by mean, then refits on all data. groups optionally assigns each
// sample to a race; when present, Precision@K is computed per race group.
func (t *Trainer) TrainWithCV(X [][]float64, y []int, featureNames []string, groups []string) (*Model, CVMetrics, error) {
	if err := validateTrainingData(X, y, featureNames); err != nil {
		return nil, CVMetrics{}, err
	}
	if groups != nil && len(groups) != len(y) {
		return nil, CVMetrics{}, fmt.Errorf("groups length %d does not match samples %d", len(groups), len(y))
	}

	start := time.Now()
	folds := stratifiedKFold(y, t.folds, cvSeed)

	var p1, p3, auc, logloss []float64
	for _, holdout := range folds {
		trainX, trainY, valX, valY := partition(X, y, holdout)
		model := fit(trainX, trainY, featureNames, t.params)
		probs, err := model.PredictBatch(valX)
		if err != nil {
			return nil, CVMetrics{}, err
		}

		if groups != nil {
			valGroups := make([]string, len(holdout))
			for i, idx := range holdout {
				valGroups[i] = groups[idx]
			}
			p1 = append(p1, groupedPrecisionAtK(valY, probs, valGroups, 1))
			p3 = append(p3, groupedPrecisionAtK(valY, probs, valGroups, 3))
		} else {
			p1 = append(p1, precisionAtK(valY, probs, 1))
			p3 = append(p3, precisionAtK(valY, probs, 3))
		}

		// A single-class holdout has no ROC curve; drop the fold's AUC.
		if a, ok := rocAUC(valY, probs); ok {
			auc = append(auc, a)
		}
		logloss = append(logloss, logLoss(valY, probs))
	}

	final := fit(X, y, featureNames, t.params)

	metrics := CVMetrics{
		PrecisionAt1: mean(p1),
		PrecisionAt3: mean(p3),
		AUC:          mean(auc),
		LogLoss:      mean(logloss),
		AUCFolds:     len(auc),
		RaceGrouped:  groups != nil,
		Samples:      len(y),
	}

	t.logger.WithFields(logrus.Fields{
		"samples":        metrics.Samples,
		"folds":          t.folds,
		"precision_at_1": metrics.PrecisionAt1,
		"precision_at_3": metrics.PrecisionAt3,
		"auc":            metrics.AUC,
		"log_loss":       metrics.LogLoss,
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("Cross-validated training completed")

	return final, metrics, nil
}

func validateTrainingData(X [][]float64, y []int, featureNames []string) error {
	if len(X) != len(y) {
		return fmt.Errorf("feature matrix has %d rows, labels have %d", len(X), len(y))
	}
	if len(X) < MinTrainingSamples {
		return fmt.Errorf("%w: %d samples, need %d", models.ErrInsufficientTrainingData, len(X), MinTrainingSamples)
	}
	for i, row := range X {
		if len(row) != len(featureNames) {
			return fmt.Errorf("row %d has %d features, want %d", i, len(row), len(featureNames))
		}
	}
	return nil
}

// stratifiedKFold deals class indices round-robin into k shuffled folds so
// every fold keeps the overall class balance.
func stratifiedKFold(y []int, k int, seed int64) [][]int {
	rng := rand.New(rand.NewSource(seed))

	byClass := map[int][]int{}
	for i, label := range y {
		byClass[label] = append(byClass[label], i)
	}

	folds := make([][]int, k)
	for _, label := range []int{0, 1} {
		indices := byClass[label]
		rng.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		for pos, idx := range indices {
			f := pos % k
			folds[f] = append(folds[f], idx)
		}
	}
	return folds
}

func partition(X [][]float64, y []int, holdout []int) ([][]float64, []int, [][]float64, []int) {
	inHoldout := make(map[int]bool, len(holdout))
	for _, i := range holdout {
		inHoldout[i] = true
	}

	var trainX, valX [][]float64
	var trainY, valY []int
	for i := range X {
		if inHoldout[i] {
			continue
		}
		trainX = append(trainX, X[i])
		trainY = append(trainY, y[i])
	}
	for _, i := range holdout {
		valX = append(valX, X[i])
		valY = append(valY, y[i])
	}
	return trainX, trainY, valX, valY
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
