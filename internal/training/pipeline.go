package training

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/internal/features"
	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/internal/model"
	"github.com/ssenyonjo/aircast/internal/modelstore"
	"github.com/ssenyonjo/aircast/pkg/types"
)

type Pipeline struct {
	registry *modelstore.Registry
	trials   int
	logger   zerolog.Logger
}

func NewPipeline(registry *modelstore.Registry, trials int, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		trials:   trials,
		logger:   logger.With().Str("component", "training").Logger(),
	}
}

// Run takes a fully engineered feature table through split, search, refit and
// registry save, returning the registered model.
func (p *Pipeline) Run(ctx context.Context, f *dataset.Frame, freq types.Frequency) (*model.Model, error) {
	if f.Len() == 0 {
		return nil, types.ErrEmptyInput
	}
	started := time.Now()

	parts, err := Split(f)
	if err != nil {
		return nil, fmt.Errorf("temporal split: %w", err)
	}
	if parts.Train.Len() == 0 {
		return nil, fmt.Errorf("training partition: %w", types.ErrEmptyInput)
	}
	p.logger.Info().
		Int("train_rows", parts.Train.Len()).
		Int("validation_rows", parts.Validation.Len()).
		Int("test_rows", parts.Test.Len()).
		Msg("temporal split done")

	featureNames := features.ModelColumns(f)

	best, score, err := Search(ctx, parts, featureNames, p.trials, p.logger)
	if err != nil {
		return nil, fmt.Errorf("hyperparameter search: %w", err)
	}
	p.logger.Info().Float64("val_mse", score).Interface("params", best).Msg("search finished")

	trainX, trainY := matrix(parts.Train, featureNames)
	testX, testY := matrix(parts.Test, featureNames)
	best.Seed = searchSeed
	m, err := model.Train(best, freq, featureNames, trainX, trainY, testX, testY, stoppingRounds)
	if err != nil {
		return nil, fmt.Errorf("final fit: %w", err)
	}

	if err := p.registry.Save(ctx, m, freq.ModelKey()); err != nil {
		return nil, err
	}
	metrics.TrainingDurationSeconds.WithLabelValues(string(freq)).Observe(time.Since(started).Seconds())
	metrics.TrainingRowsTotal.WithLabelValues(string(freq)).Add(float64(f.Len()))
	return m, nil
}

// matrix extracts model inputs and targets from a feature table, rows ordered
// as the frame, columns ordered as featureNames.
func matrix(f *dataset.Frame, featureNames []string) ([][]float64, []float64) {
	X := make([][]float64, f.Len())
	for i := range X {
		row := make([]float64, len(featureNames))
		for j, c := range featureNames {
			row[j] = f.Value(c, i)
		}
		X[i] = row
	}
	y := make([]float64, f.Len())
	copy(y, f.Column(dataset.ColPM25))
	return X, y
}
