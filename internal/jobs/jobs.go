// Package jobs wires the pipeline stages end to end: warehouse reads,
// feature engineering, training or recursive forecasting, and the sinks.
// Each job is one stateless batch run; the scheduler in internal/worker
// decides when runs happen and serializes runs per frequency.
package jobs

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ssenyonjo/aircast/internal/config"
	"github.com/ssenyonjo/aircast/internal/dataset"
	"github.com/ssenyonjo/aircast/internal/devices"
	"github.com/ssenyonjo/aircast/internal/docstore"
	"github.com/ssenyonjo/aircast/internal/features"
	"github.com/ssenyonjo/aircast/internal/forecast"
	"github.com/ssenyonjo/aircast/internal/metrics"
	"github.com/ssenyonjo/aircast/internal/modelstore"
	"github.com/ssenyonjo/aircast/internal/training"
	"github.com/ssenyonjo/aircast/pkg/types"
)

// Warehouse is the tabular-store contract the jobs read from and append to.
type Warehouse interface {
	GetObservations(ctx context.Context, from, to time.Time) ([]types.Observation, error)
	SaveForecasts(ctx context.Context, points []types.ForecastPoint, freq types.Frequency) error
}

// EventPublisher announces run transitions; publishing failures never fail a run.
type EventPublisher interface {
	PublishJobEvent(ev types.JobEvent) error
}

// DeviceRegistry supplies registered device coordinates.
type DeviceRegistry interface {
	ListDevices() ([]devices.Device, error)
}

type Runner struct {
	cfg       *config.Config
	warehouse Warehouse
	registry  *modelstore.Registry
	pipeline  *training.Pipeline
	engine    *forecast.Engine
	sink      *docstore.Sink
	events    EventPublisher // may be nil
	devices   DeviceRegistry // may be nil
	logger    zerolog.Logger
	now       func() time.Time
}

func NewRunner(
	cfg *config.Config,
	warehouse Warehouse,
	registry *modelstore.Registry,
	pipeline *training.Pipeline,
	engine *forecast.Engine,
	sink *docstore.Sink,
	events EventPublisher,
	reg DeviceRegistry,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		warehouse: warehouse,
		registry:  registry,
		pipeline:  pipeline,
		engine:    engine,
		sink:      sink,
		events:    events,
		devices:   reg,
		logger:    logger.With().Str("component", "jobs").Logger(),
		now:       time.Now,
	}
}

// trainingGroupKeys vs predictionGroupKeys: training groups by device only,
// prediction by device and site. The asymmetry is inherited behavior; keep
// both lists explicit so a future unification is a two-line change.
var (
	trainingGroupKeys   = []string{dataset.ColDeviceID}
	predictionGroupKeys = []string{dataset.ColDeviceID, dataset.ColSiteID}
)

// Train runs the full training pipeline for one frequency.
func (r *Runner) Train(ctx context.Context, freq types.Frequency) error {
	runID := uuid.NewString()
	logger := r.logger.With().Str("run_id", runID).Str("frequency", string(freq)).Logger()
	r.publish(types.JobEvent{RunID: runID, Job: "train", Frequency: freq, State: types.JobStateStarted})

	err := r.train(ctx, freq, logger)
	if err != nil {
		logger.Error().Err(err).Msg("training run failed")
		metrics.JobRunsTotal.WithLabelValues("train", string(freq), "failed").Inc()
		r.publish(types.JobEvent{RunID: runID, Job: "train", Frequency: freq, State: types.JobStateFailed, Error: err.Error()})
		return err
	}
	metrics.JobRunsTotal.WithLabelValues("train", string(freq), "completed").Inc()
	r.publish(types.JobEvent{RunID: runID, Job: "train", Frequency: freq, State: types.JobStateCompleted})
	return nil
}

func (r *Runner) train(ctx context.Context, freq types.Frequency, logger zerolog.Logger) error {
	now := r.now().UTC()
	var from time.Time
	switch freq {
	case types.FrequencyHourly:
		from = now.Add(-time.Duration(r.cfg.HourlyTrainingScopeHours) * time.Hour)
	case types.FrequencyDaily:
		from = now.AddDate(0, 0, -r.cfg.DailyTrainingScopeDays)
	default:
		return types.ErrUnsupportedFrequency
	}

	obs, err := r.warehouse.GetObservations(ctx, from, now)
	if err != nil {
		return err
	}
	if len(obs) == 0 {
		return types.ErrEmptyInput
	}
	logger.Info().Int("rows", len(obs)).Time("from", from).Msg("training window fetched")

	f, err := r.engineer(dataset.FromObservations(obs), freq, trainingGroupKeys)
	if err != nil {
		return err
	}

	_, err = r.pipeline.Run(ctx, f, freq)
	return err
}

// Forecast runs the inference pipeline for one frequency.
func (r *Runner) Forecast(ctx context.Context, freq types.Frequency) error {
	runID := uuid.NewString()
	logger := r.logger.With().Str("run_id", runID).Str("frequency", string(freq)).Logger()
	r.publish(types.JobEvent{RunID: runID, Job: "forecast", Frequency: freq, State: types.JobStateStarted})

	rows, err := r.forecast(ctx, freq, logger)
	if err != nil {
		logger.Error().Err(err).Msg("forecast run failed")
		metrics.JobRunsTotal.WithLabelValues("forecast", string(freq), "failed").Inc()
		r.publish(types.JobEvent{RunID: runID, Job: "forecast", Frequency: freq, State: types.JobStateFailed, Error: err.Error()})
		return err
	}
	metrics.JobRunsTotal.WithLabelValues("forecast", string(freq), "completed").Inc()
	r.publish(types.JobEvent{RunID: runID, Job: "forecast", Frequency: freq, State: types.JobStateCompleted, Rows: rows})
	return nil
}

func (r *Runner) forecast(ctx context.Context, freq types.Frequency, logger zerolog.Logger) (int, error) {
	now := r.now().UTC()
	var from time.Time
	switch freq {
	case types.FrequencyHourly:
		from = now.Add(-time.Duration(r.cfg.HourlyPredictionScopeHours) * time.Hour)
	case types.FrequencyDaily:
		from = now.AddDate(0, 0, -r.cfg.DailyPredictionScopeDays)
	default:
		return 0, types.ErrUnsupportedFrequency
	}

	m, err := r.registry.Load(ctx, freq.ModelKey())
	if err != nil {
		return 0, err
	}

	obs, err := r.warehouse.GetObservations(ctx, from, now)
	if err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, types.ErrEmptyInput
	}

	f, err := r.engineer(dataset.FromObservations(obs), freq, predictionGroupKeys)
	if err != nil {
		return 0, err
	}

	horizon, err := r.cfg.Horizon(freq)
	if err != nil {
		return 0, err
	}

	points, err := r.engine.Run(ctx, f, m, freq, horizon)
	if err != nil {
		return 0, err
	}
	logger.Info().Int("points", len(points)).Msg("forecasts generated")

	saved, err := r.sink.Upsert(ctx, points, freq)
	if err != nil {
		return 0, err
	}
	logger.Info().Int("documents", saved).Msg("forecast documents upserted")

	if err := r.warehouse.SaveForecasts(ctx, points, freq); err != nil {
		return 0, err
	}
	return len(points), nil
}

// engineer applies the full feature chain with the given grouping keys.
func (r *Runner) engineer(f *dataset.Frame, freq types.Frequency, groupBy []string) (*dataset.Frame, error) {
	r.hydrateCoordinates(f)

	out, err := features.InterpolateAndResample(f, freq, groupBy)
	if err != nil {
		return nil, err
	}
	if err := features.LagAndRolling(out, dataset.ColPM25, freq, groupBy); err != nil {
		return nil, err
	}
	if err := features.CyclicTime(out, freq, r.cfg.YearPeriod); err != nil {
		return nil, err
	}
	if err := features.Spatial(out); err != nil {
		return nil, err
	}
	return out, nil
}

// hydrateCoordinates fills missing lat/lon from the device registry, when one
// is configured. Registry errors only cost us the hydration, not the run.
func (r *Runner) hydrateCoordinates(f *dataset.Frame) {
	if r.devices == nil {
		return
	}
	devs, err := r.devices.ListDevices()
	if err != nil {
		r.logger.Warn().Err(err).Msg("device registry unavailable, skipping coordinate hydration")
		return
	}
	idx := devices.CoordinateIndex(devs)

	lat := f.Column(dataset.ColLatitude)
	lon := f.Column(dataset.ColLongitude)
	if lat == nil || lon == nil {
		return
	}
	for i := 0; i < f.Len(); i++ {
		missing := math.IsNaN(lat[i]) || (lat[i] == 0 && lon[i] == 0)
		if !missing {
			continue
		}
		if c, ok := idx[f.DeviceID[i]]; ok {
			lat[i], lon[i] = c[0], c[1]
		}
	}
}

func (r *Runner) publish(ev types.JobEvent) {
	if r.events == nil {
		return
	}
	ev.At = r.now().UTC()
	if err := r.events.PublishJobEvent(ev); err != nil {
		r.logger.Warn().Err(err).Str("run_id", ev.RunID).Msg("failed to publish job event")
	}
}
