// Package forecast generates multi-step-ahead predictions by recursion: each
// step appends a scaffold row, recomputes lag/rolling/cyclic features over
// the extended series (previously generated predictions included) and asks
// the model for the next value. Forecast error therefore compounds forward;
// that is the intended autoregressive behavior.
package forecast

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/internal/features"
	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/internal/model"
	"github.com/ssenyonjo/aircast/pkg/types"
)

type Engine struct {
	yearPeriod int
	workers    int
	logger     zerolog.Logger
}

func NewEngine(yearPeriod, workers int, logger zerolog.Logger) *Engine {
	if yearPeriod <= 0 {
		yearPeriod = features.DefaultYearPeriod
	}
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		yearPeriod: yearPeriod,
		workers:    workers,
		logger:     logger.With().Str("component", "forecast").Logger(),
	}
}

// Run forecasts exactly horizon points per (device, site) group in f, which
// must be a fully engineered feature table whose columns match what m was
// trained with. Groups run on a bounded worker pool; the model is shared
// read-only. Output order follows group first-appearance order, so two runs
// over the same inputs are identical.
func (e *Engine) Run(ctx context.Context, f *dataset.Frame, m *model.Model, freq types.Frequency, horizon int) ([]types.ForecastPoint, error) {
	if f.Len() == 0 {
		return nil, types.ErrEmptyInput
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	if err := checkColumns(f, m); err != nil {
		return nil, err
	}

	order, groups := f.GroupBy([]string{dataset.ColDeviceID, dataset.ColSiteID})

	results := make([][]types.ForecastPoint, len(order))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for gi, key := range order {
		wg.Add(1)
		sem <- struct{}{}
		go func(gi int, idx []int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[gi] = e.forecastGroup(f.Select(idx), m, freq, horizon)
		}(gi, groups[key])
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]types.ForecastPoint, 0, len(order)*horizon)
	for _, r := range results {
		out = append(out, r...)
	}
	metrics.ForecastPointsTotal.WithLabelValues(string(freq)).Add(float64(len(out)))
	return out, nil
}

// forecastGroup runs the recursion for one device's seed window. The seed
// frame is a private copy, so mutating it in place is safe.
func (e *Engine) forecastGroup(seed *dataset.Frame, m *model.Model, freq types.Frequency, horizon int) []types.ForecastPoint {
	step := freq.Step()
	row := make([]float64, len(m.FeatureNames))

	for h := 0; h < horizon; h++ {
		last := seed.Len() - 1
		seed.CopyRow(last)
		i := seed.Len() - 1
		seed.Timestamp[i] = seed.Timestamp[last].Add(step)

		pm := seed.Column(dataset.ColPM25)

		for _, k := range features.LagSteps(freq) {
			v := math.NaN()
			if i >= k {
				v = pm[i-k]
			}
			seed.SetValue(features.LagColumn(k, freq), i, v)
		}

		for _, w := range features.RollWindows(freq) {
			for _, fn := range features.RollFuncs(freq) {
				v := math.NaN()
				if i >= w {
					// one-step lookback: the scaffold's own slot is excluded
					v = features.RollAgg(fn, pm[i-w:i])
				}
				seed.SetValue(features.RollColumn(fn, w, freq), i, v)
			}
		}

		cyc := features.CyclicValues(seed.Timestamp[i], freq, e.yearPeriod)
		for c, v := range cyc {
			if seed.HasColumn(c) {
				seed.SetValue(c, i, v)
			}
		}

		for j, c := range m.FeatureNames {
			row[j] = seed.Value(c, i)
		}
		seed.SetValue(dataset.ColPM25, i, m.Predict(row))
	}

	points := make([]types.ForecastPoint, 0, horizon)
	for i := seed.Len() - horizon; i < seed.Len(); i++ {
		points = append(points, types.ForecastPoint{
			DeviceID:  seed.DeviceID[i],
			SiteID:    seed.SiteID[i],
			Timestamp: seed.Timestamp[i],
			PM25:      seed.Value(dataset.ColPM25, i),
		})
	}
	return points
}

// checkColumns enforces the inference contract: the table must carry exactly
// the feature columns the model was trained with, in the same order.
func checkColumns(f *dataset.Frame, m *model.Model) error {
	got := features.ModelColumns(f)
	if len(got) != len(m.FeatureNames) {
		return fmt.Errorf("feature columns do not match model: got %d columns, model trained with %d",
			len(got), len(m.FeatureNames))
	}
	for i := range got {
		if got[i] != m.FeatureNames[i] {
			return fmt.Errorf("feature column %d is %q, model trained with %q", i, got[i], m.FeatureNames[i])
		}
	}
	return nil
}
