package training

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/keiba-analytics/internal/feature"
	"github.com/yourusername/keiba-analytics/internal/ml"
	"github.com/yourusername/keiba-analytics/internal/repository"
)

// Service runs a full cross-validated training round and persists the
// resulting artifact.
type Service struct {
	builder *DataBuilder
	logger  *logrus.Logger
}

// NewService creates a training service.
func NewService(repos *repository.Repositories, logger *logrus.Logger) (*Service, error) {
	if logger == nil {
		logger = logrus.New()
	}
	builder, err := NewDataBuilder(repos, nil, 0)
	if err != nil {
		return nil, err
	}
	return &Service{builder: builder, logger: logger}, nil
}

// Result reports one completed training run.
type Result struct {
	ArtifactPath string
	Metrics      ml.CVMetrics
	Importance   map[string]float64
}

// Train builds the dataset up to the cutoff, trains with race-grouped
// stratified cross-validation, and writes the artifact into modelDir.
func (s *Service) Train(ctx context.Context, cutoff time.Time, lightweight bool, folds int, modelDir string) (*Result, error) {
	ds, err := s.builder.Build(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"samples": len(ds.Y),
		"cutoff":  cutoff.Format("2006-01-02"),
	}).Info("Training dataset built")

	trainer := ml.NewTrainer(lightweight, s.logger).WithFolds(folds)
	model, metrics, err := trainer.TrainWithCV(ds.X, ds.Y, feature.Names(), ds.Groups)
	if err != nil {
		return nil, err
	}

	path, err := ml.SaveModel(model, modelDir)
	if err != nil {
		return nil, fmt.Errorf("failed to persist model: %w", err)
	}

	return &Result{
		ArtifactPath: path,
		Metrics:      metrics,
		Importance:   model.FeatureImportance(),
	}, nil
}
